package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/repository"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

// StaffService provisions staff accounts. Every change is announced so live sessions
// of the affected staff member re-resolve.
type StaffService struct {
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	bcryptCost int
	logger     *zap.Logger
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

// CreateStaffInput carries a new account.
type CreateStaffInput struct {
	Email     string
	StaffName string
	Password  string
	Role      domain.StaffRole
}

// UpdateStaffInput carries optional changes. Nil fields are left untouched.
type UpdateStaffInput struct {
	StaffName *string
	Role      *domain.StaffRole
	IsActive  *bool
	Password  *string
}

// NewStaffService constructs the service.
func NewStaffService(staff repository.StaffRepository, dispatcher events.Dispatcher, bcryptCost int, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{staff: staff, dispatcher: dispatcher, bcryptCost: bcryptCost, logger: logger}
}

// CreateStaffMember adds a new, active staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, in CreateStaffInput) (*domain.StaffRecord, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.StaffName)
	details := map[string]any{}
	if email == "" || !strings.Contains(email, "@") {
		details["email"] = "a valid email is required"
	}
	if name == "" {
		details["staff_name"] = "required"
	}
	if !in.Role.Valid() {
		details["role"] = "unknown role"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid staff member", details)
	}

	if existing, err := s.staff.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	staff := &domain.StaffRecord{
		Email:        email,
		StaffName:    name,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.announce(ctx, staff)
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, filters StaffListFilters) ([]domain.StaffRecord, error) {
	staff, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// GetStaffMemberByID fetches staff.
func (s *StaffService) GetStaffMemberByID(ctx context.Context, id int64) (*domain.StaffRecord, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("staff member", map[string]any{"id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// UpdateStaffMember applies the non-nil fields of in.
func (s *StaffService) UpdateStaffMember(ctx context.Context, id int64, in UpdateStaffInput) (*domain.StaffRecord, error) {
	staff, err := s.GetStaffMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.StaffName != nil {
		name := strings.TrimSpace(*in.StaffName)
		if name == "" {
			return nil, apperrors.NewValidationError("invalid staff member", map[string]any{"staff_name": "required"})
		}
		staff.StaffName = name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid staff member", map[string]any{"role": "unknown role"})
		}
		staff.Role = *in.Role
	}
	if in.IsActive != nil {
		staff.IsActive = *in.IsActive
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		staff.PasswordHash = hash
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.announce(ctx, staff)
	return staff, nil
}

// DeactivateStaffMember revokes access for the staff member.
func (s *StaffService) DeactivateStaffMember(ctx context.Context, id int64) (*domain.StaffRecord, error) {
	inactive := false
	return s.UpdateStaffMember(ctx, id, UpdateStaffInput{IsActive: &inactive})
}

func (s *StaffService) hash(password string) (string, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if errors.Is(err, auth.ErrWeakPassword) {
		return "", apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func (s *StaffService) announce(ctx context.Context, staff *domain.StaffRecord) {
	s.logger.Info("staff member changed",
		zap.Int64("staff_id", staff.ID),
		zap.String("role", string(staff.Role)),
		zap.Bool("is_active", staff.IsActive))
	if s.dispatcher == nil {
		return
	}
	ev := events.New(events.EventStaffChanged)
	ev.Email = staff.Email
	ev.Payload = events.StaffChangedPayload{
		StaffID:  staff.ID,
		Role:     string(staff.Role),
		IsActive: staff.IsActive,
	}
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish staff change", zap.Error(err))
	}
}
