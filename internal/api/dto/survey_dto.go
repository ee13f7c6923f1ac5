package dto

import "time"

// SurveySubmitRequest is posted by customers.
type SurveySubmitRequest struct {
	CustomerName string `json:"customer_name"`
	Contact      string `json:"contact"`
	Score        int    `json:"score"`
	Comment      string `json:"comment"`
	StaffID      *int64 `json:"staff_id,omitempty"`
}

// SurveyResponse is a stored survey.
type SurveyResponse struct {
	ID           int64     `json:"id"`
	CustomerName string    `json:"customer_name"`
	Contact      string    `json:"contact,omitempty"`
	Score        int       `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	StaffID      *int64    `json:"staff_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SurveySummaryResponse aggregates scores.
type SurveySummaryResponse struct {
	Count        int64   `json:"count"`
	AverageScore float64 `json:"average_score"`
}
