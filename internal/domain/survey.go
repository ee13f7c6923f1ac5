package domain

import "time"

// Survey is a customer satisfaction response.
type Survey struct {
	ID           int64
	CustomerName string
	Contact      string
	Score        int
	Comment      string
	StaffID      *int64
	CreatedAt    time.Time
}

// SurveySummary aggregates survey scores.
type SurveySummary struct {
	Count        int64
	AverageScore float64
}
