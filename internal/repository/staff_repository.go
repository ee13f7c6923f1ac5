package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studio-ops/studio-erp/internal/domain"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffRecord) error
	Update(ctx context.Context, staff *domain.StaffRecord) error
	GetByID(ctx context.Context, id int64) (*domain.StaffRecord, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffRecord, error)
	FindActiveByEmail(ctx context.Context, email string, limit int) ([]domain.StaffRecord, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffRecord, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

const staffColumns = `id, email, staff_name, password_hash, role, is_active, created_at, updated_at`

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffRecord) error {
	const query = `
        INSERT INTO staff_members (email, staff_name, password_hash, role, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		domain.NormalizeEmail(staff.Email),
		staff.StaffName,
		staff.PasswordHash,
		staff.Role,
		staff.IsActive,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffRecord) error {
	const query = `
        UPDATE staff_members
        SET email=$1, staff_name=$2, password_hash=$3, role=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		domain.NormalizeEmail(staff.Email),
		staff.StaffName,
		staff.PasswordHash,
		staff.Role,
		staff.IsActive,
		staff.ID,
	).Scan(&staff.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*domain.StaffRecord, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE id=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffRecord, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE LOWER(email)=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

// FindActiveByEmail returns up to limit active staff with the email.
func (r *staffRepository) FindActiveByEmail(ctx context.Context, email string, limit int) ([]domain.StaffRecord, error) {
	if limit <= 0 {
		limit = 1
	}
	query := `SELECT ` + staffColumns + `
        FROM staff_members
        WHERE LOWER(email)=$1 AND is_active = TRUE
        ORDER BY id
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain.NormalizeEmail(email), limit)
	if err != nil {
		return nil, err
	}
	return collectStaff(rows)
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffRecord, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectStaff(rows)
}

func scanStaff(row pgx.Row) (*domain.StaffRecord, error) {
	var staff domain.StaffRecord
	if err := row.Scan(
		&staff.ID,
		&staff.Email,
		&staff.StaffName,
		&staff.PasswordHash,
		&staff.Role,
		&staff.IsActive,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func collectStaff(rows pgx.Rows) ([]domain.StaffRecord, error) {
	defer rows.Close()

	var result []domain.StaffRecord
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
