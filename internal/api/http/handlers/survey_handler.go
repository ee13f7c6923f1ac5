package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/service"
)

// SurveyHandler exposes customer satisfaction surveys.
type SurveyHandler struct {
	surveys *service.SurveyService
}

// NewSurveyHandler constructs handler.
func NewSurveyHandler(surveys *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveys: surveys}
}

// Submit handles POST /public/surveys.
func (h *SurveyHandler) Submit(c *fiber.Ctx) error {
	var req dto.SurveySubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	survey, err := h.surveys.Submit(c.UserContext(), service.SubmitSurveyInput{
		CustomerName: req.CustomerName,
		Contact:      req.Contact,
		Score:        req.Score,
		Comment:      req.Comment,
		StaffID:      req.StaffID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": surveyResponse(survey)})
}

// List handles GET /surveys.
func (h *SurveyHandler) List(c *fiber.Ctx) error {
	limit, offset := parsePage(c)
	surveys, err := h.surveys.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]dto.SurveyResponse, 0, len(surveys))
	for i := range surveys {
		resp = append(resp, surveyResponse(&surveys[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Summary handles GET /surveys/summary.
func (h *SurveyHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.surveys.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SurveySummaryResponse{Count: summary.Count, AverageScore: summary.AverageScore}})
}

func surveyResponse(s *domain.Survey) dto.SurveyResponse {
	return dto.SurveyResponse{
		ID:           s.ID,
		CustomerName: s.CustomerName,
		Contact:      s.Contact,
		Score:        s.Score,
		Comment:      s.Comment,
		StaffID:      s.StaffID,
		CreatedAt:    s.CreatedAt,
	}
}
