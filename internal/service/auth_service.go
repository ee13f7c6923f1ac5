package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/config"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/repository"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

// SessionReleaser tears down the live state kept for a session.
type SessionReleaser interface {
	Release(sessionID string)
}

// AuthService coordinates staff sign-in, sign-out and token refresh.
type AuthService struct {
	staff      repository.StaffRepository
	sessions   repository.SessionStore
	dispatcher events.Dispatcher
	releaser   SessionReleaser
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	StaffRepo    repository.StaffRepository
	SessionStore repository.SessionStore
	Dispatcher   events.Dispatcher
	Releaser     SessionReleaser
	Logger       *zap.Logger
}

// SignInResult is returned by Login and Refresh.
type SignInResult struct {
	Staff   *domain.StaffRecord
	Session *domain.Session
	Token   string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		staff:      deps.StaffRepo,
		sessions:   deps.SessionStore,
		dispatcher: deps.Dispatcher,
		releaser:   deps.Releaser,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Login authenticates active staff and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SignInResult, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !staff.IsActive {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	now := s.now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		StaffID:   staff.ID,
		Email:     staff.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenMgr.TTL()),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, err := s.tokenMgr.GenerateToken(sess, staff.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventSignedIn, sess)
	s.logger.Info("staff signed in", zap.Int64("staff_id", staff.ID), zap.String("session_id", sess.ID))
	return &SignInResult{Staff: staff, Session: sess, Token: token}, nil
}

// Logout ends the session. Ending an unknown session is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.EventSignedOut, &domain.Session{ID: sessionID})
	if s.releaser != nil {
		s.releaser.Release(sessionID)
	}
	return nil
}

// Refresh extends the session and issues a new token for it.
func (s *AuthService) Refresh(ctx context.Context, sessionID string) (*SignInResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, apperrors.NewUnauthorized("session expired")
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff, err := s.staff.GetByID(ctx, sess.StaffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !staff.IsActive {
		return nil, apperrors.NewUnauthorized("staff inactive")
	}

	sess.ExpiresAt = s.now().UTC().Add(s.tokenMgr.TTL())
	if err := s.sessions.Touch(ctx, sess.ID, sess.ExpiresAt); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, err := s.tokenMgr.GenerateToken(sess, staff.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventTokenRefreshed, sess)
	return &SignInResult{Staff: staff, Session: sess, Token: token}, nil
}

// ChangePassword verifies current password before updating to new hash. Existing
// sessions stay valid; their providers are told the record changed.
func (s *AuthService) ChangePassword(ctx context.Context, staffID int64, currentPassword, newPassword string) error {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if errors.Is(err, auth.ErrWeakPassword) {
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	staff.PasswordHash = hash
	if err := s.staff.Update(ctx, staff); err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("password changed", zap.Int64("staff_id", staff.ID))
	if s.dispatcher != nil {
		ev := events.New(events.EventStaffChanged)
		ev.Email = staff.Email
		ev.Payload = events.StaffChangedPayload{StaffID: staff.ID, Role: string(staff.Role), IsActive: staff.IsActive}
		if err := s.dispatcher.Publish(ctx, ev); err != nil {
			s.logger.Warn("publish staff change", zap.Error(err))
		}
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, sess *domain.Session) {
	if s.dispatcher == nil {
		return
	}
	ev := events.New(eventType)
	ev.SessionID = sess.ID
	ev.Email = sess.Email
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish auth event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
