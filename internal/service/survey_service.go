package service

import (
	"context"
	"strings"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/repository"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

// Survey score bounds.
const (
	MinSurveyScore = 1
	MaxSurveyScore = 5
)

// SurveyService records and reports customer satisfaction.
type SurveyService struct {
	surveys repository.SurveyRepository
}

// NewSurveyService constructs the service.
func NewSurveyService(surveys repository.SurveyRepository) *SurveyService {
	return &SurveyService{surveys: surveys}
}

// SubmitSurveyInput is a customer's response.
type SubmitSurveyInput struct {
	CustomerName string
	Contact      string
	Score        int
	Comment      string
	StaffID      *int64
}

// Submit validates and stores a survey.
func (s *SurveyService) Submit(ctx context.Context, in SubmitSurveyInput) (*domain.Survey, error) {
	details := map[string]any{}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		details["customer_name"] = "required"
	}
	if in.Score < MinSurveyScore || in.Score > MaxSurveyScore {
		details["score"] = "must be between 1 and 5"
	}
	if len(in.Comment) > 2000 {
		details["comment"] = "too long"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid survey", details)
	}

	survey := &domain.Survey{
		CustomerName: name,
		Contact:      strings.TrimSpace(in.Contact),
		Score:        in.Score,
		Comment:      strings.TrimSpace(in.Comment),
		StaffID:      in.StaffID,
	}
	if err := s.surveys.Create(ctx, survey); err != nil {
		return nil, apperrors.MapError(err)
	}
	return survey, nil
}

// List returns recent surveys.
func (s *SurveyService) List(ctx context.Context, limit, offset int) ([]domain.Survey, error) {
	surveys, err := s.surveys.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return surveys, nil
}

// Summary aggregates all surveys.
func (s *SurveyService) Summary(ctx context.Context) (domain.SurveySummary, error) {
	summary, err := s.surveys.Summary(ctx)
	if err != nil {
		return domain.SurveySummary{}, apperrors.MapError(err)
	}
	return summary, nil
}
