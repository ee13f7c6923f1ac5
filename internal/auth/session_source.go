package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/repository"
	"github.com/studio-ops/studio-erp/internal/session"
)

// SessionSource is the auth service as seen by one session's provider. It reads the
// session from the store and relays dispatcher events that concern this session.
type SessionSource struct {
	sessionID  string
	store      repository.SessionStore
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu    sync.RWMutex
	email string
}

var _ session.AuthService = (*SessionSource)(nil)

// NewSessionSource builds a source for sessionID.
func NewSessionSource(sessionID string, store repository.SessionStore, dispatcher events.Dispatcher, logger *zap.Logger) *SessionSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSource{
		sessionID:  sessionID,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("session_id", sessionID)),
	}
}

// GetSession returns the identity behind the session, or nil when it is gone.
func (s *SessionSource) GetSession(ctx context.Context) (*domain.Identity, error) {
	sess, err := s.store.Get(ctx, s.sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	email := domain.NormalizeEmail(sess.Email)
	s.mu.Lock()
	s.email = email
	s.mu.Unlock()

	return &domain.Identity{SessionID: sess.ID, Email: email}, nil
}

// OnChange relays auth events naming this session, or naming its staff email when the
// event is not tied to a particular session. Until the first lookup has learned the
// email, every email-scoped event is relayed.
func (s *SessionSource) OnChange(cb func(session.ChangeEvent)) func() {
	unsubs := make([]events.Unsubscribe, 0, len(events.AuthEventTypes))
	for _, eventType := range events.AuthEventTypes {
		unsubs = append(unsubs, s.dispatcher.Subscribe(eventType, func(_ context.Context, ev events.Event) error {
			if !s.concerns(ev) {
				return nil
			}
			s.logger.Debug("session change", zap.String("event_type", string(ev.Type)))
			cb(session.ChangeEvent{Kind: session.ChangeKind(ev.Type), ID: ev.ID})
			return nil
		}))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, unsub := range unsubs {
				unsub()
			}
		})
	}
}

func (s *SessionSource) concerns(ev events.Event) bool {
	if ev.SessionID != "" {
		return ev.SessionID == s.sessionID
	}
	if ev.Email == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email == "" || domain.NormalizeEmail(ev.Email) == s.email
}
