package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studio-ops/studio-erp/internal/domain"
)

// SurveyRepository persists customer satisfaction surveys.
type SurveyRepository interface {
	Create(ctx context.Context, survey *domain.Survey) error
	List(ctx context.Context, limit, offset int) ([]domain.Survey, error)
	Summary(ctx context.Context) (domain.SurveySummary, error)
}

type surveyRepository struct {
	pool *pgxpool.Pool
}

// NewSurveyRepository constructs the repository.
func NewSurveyRepository(pool *pgxpool.Pool) SurveyRepository {
	return &surveyRepository{pool: pool}
}

func (r *surveyRepository) Create(ctx context.Context, survey *domain.Survey) error {
	const query = `
        INSERT INTO surveys (customer_name, contact, score, comment, staff_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		survey.CustomerName,
		survey.Contact,
		survey.Score,
		survey.Comment,
		survey.StaffID,
	).Scan(&survey.ID, &survey.CreatedAt)
}

func (r *surveyRepository) List(ctx context.Context, limit, offset int) ([]domain.Survey, error) {
	limit, offset = normalizePage(limit, offset)
	query := fmt.Sprintf(`
        SELECT id, customer_name, contact, score, comment, staff_id, created_at
        FROM surveys
        ORDER BY created_at DESC, id DESC
        LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Survey
	for rows.Next() {
		var s domain.Survey
		if err := rows.Scan(
			&s.ID,
			&s.CustomerName,
			&s.Contact,
			&s.Score,
			&s.Comment,
			&s.StaffID,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *surveyRepository) Summary(ctx context.Context) (domain.SurveySummary, error) {
	const query = `SELECT COUNT(*), COALESCE(AVG(score), 0)::float8 FROM surveys`
	var summary domain.SurveySummary
	err := r.pool.QueryRow(ctx, query).Scan(&summary.Count, &summary.AverageScore)
	return summary, err
}
