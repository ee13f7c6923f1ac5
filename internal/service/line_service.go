package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/line"
	"github.com/studio-ops/studio-erp/internal/repository"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

// LineService handles webhook deliveries and the groups they reveal.
type LineService struct {
	secret string
	groups repository.LineGroupRepository
	logger *zap.Logger
}

// NewLineService constructs the service.
func NewLineService(channelSecret string, groups repository.LineGroupRepository, logger *zap.Logger) *LineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineService{secret: channelSecret, groups: groups, logger: logger}
}

// HandleWebhook verifies and processes a webhook body, returning the group IDs seen.
func (s *LineService) HandleWebhook(ctx context.Context, body []byte, signature string) ([]string, error) {
	if s.secret == "" {
		return nil, apperrors.NewUnavailable("LINE_NOT_CONFIGURED", "line channel secret not configured")
	}
	if err := line.VerifySignature(s.secret, body, signature); err != nil {
		if errors.Is(err, line.ErrMissingSignature) {
			return nil, apperrors.NewUnauthorized("missing signature")
		}
		return nil, apperrors.NewUnauthorized("invalid signature")
	}

	payload, err := line.ParseWebhook(body)
	if err != nil {
		return nil, apperrors.NewValidationError("malformed webhook body", nil)
	}

	ids := payload.GroupIDs()
	for _, id := range ids {
		group, err := s.groups.Touch(ctx, id)
		if err != nil {
			s.logger.Warn("record line group", zap.String("group_id", id), zap.Error(err))
			continue
		}
		s.logger.Info("line group seen",
			zap.String("group_id", group.GroupID),
			zap.Time("first_seen_at", group.FirstSeenAt))
	}
	return ids, nil
}

// ListGroups returns discovered groups.
func (s *LineService) ListGroups(ctx context.Context) ([]domain.LineGroup, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return groups, nil
}
