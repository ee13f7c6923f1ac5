package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/repository"
)

type memStaffRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.StaffRecord
}

func newMemStaffRepo() *memStaffRepo {
	return &memStaffRepo{rows: make(map[int64]domain.StaffRecord)}
}

func (r *memStaffRepo) Create(_ context.Context, staff *domain.StaffRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	staff.ID = r.nextID
	staff.Email = domain.NormalizeEmail(staff.Email)
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	r.rows[staff.ID] = *staff
	return nil
}

func (r *memStaffRepo) Update(_ context.Context, staff *domain.StaffRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	staff.UpdatedAt = time.Now()
	r.rows[staff.ID] = *staff
	return nil
}

func (r *memStaffRepo) GetByID(_ context.Context, id int64) (*domain.StaffRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &row, nil
}

func (r *memStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Email == domain.NormalizeEmail(email) {
			return &row, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memStaffRepo) FindActiveByEmail(ctx context.Context, email string, _ int) ([]domain.StaffRecord, error) {
	row, err := r.GetByEmail(ctx, email)
	if err != nil || !row.IsActive {
		return nil, nil
	}
	return []domain.StaffRecord{*row}, nil
}

func (r *memStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffRecord
	for _, row := range r.rows {
		if filter.Role != nil && row.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && row.IsActive != *filter.Active {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]domain.Session)}
}

func (s *memSessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *memSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *memSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) Touch(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	sess.ExpiresAt = expiresAt
	s.sessions[id] = sess
	return nil
}

type memSurveyRepo struct {
	rows []domain.Survey
}

func (r *memSurveyRepo) Create(_ context.Context, survey *domain.Survey) error {
	survey.ID = int64(len(r.rows) + 1)
	survey.CreatedAt = time.Now()
	r.rows = append(r.rows, *survey)
	return nil
}

func (r *memSurveyRepo) List(_ context.Context, _, _ int) ([]domain.Survey, error) {
	return r.rows, nil
}

func (r *memSurveyRepo) Summary(context.Context) (domain.SurveySummary, error) {
	var total int
	for _, row := range r.rows {
		total += row.Score
	}
	summary := domain.SurveySummary{Count: int64(len(r.rows))}
	if len(r.rows) > 0 {
		summary.AverageScore = float64(total) / float64(len(r.rows))
	}
	return summary, nil
}

type memLineGroups struct {
	seen map[string]domain.LineGroup
}

func (m *memLineGroups) Touch(_ context.Context, id string) (*domain.LineGroup, error) {
	if m.seen == nil {
		m.seen = make(map[string]domain.LineGroup)
	}
	g, ok := m.seen[id]
	now := time.Now()
	if !ok {
		g = domain.LineGroup{GroupID: id, FirstSeenAt: now}
	}
	g.LastSeenAt = now
	m.seen[id] = g
	return &g, nil
}

func (m *memLineGroups) List(context.Context) ([]domain.LineGroup, error) {
	out := make([]domain.LineGroup, 0, len(m.seen))
	for _, g := range m.seen {
		out = append(out, g)
	}
	return out, nil
}

type pushed struct {
	to, text string
}

type fakePusher struct {
	mu   sync.Mutex
	sent []pushed
	err  error
}

func (p *fakePusher) PushText(_ context.Context, to, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, pushed{to: to, text: text})
	return nil
}

type resultRecorder struct {
	results []string
}

func (r *resultRecorder) RecordNotification(result string) {
	r.results = append(r.results, result)
}

type releaseRecorder struct {
	released []string
}

func (r *releaseRecorder) Release(id string) {
	r.released = append(r.released, id)
}
