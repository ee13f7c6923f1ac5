package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/repository"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

type memStaff struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.StaffRecord
}

func newMemStaff() *memStaff {
	return &memStaff{rows: make(map[int64]domain.StaffRecord)}
}

func (m *memStaff) Create(_ context.Context, staff *domain.StaffRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	staff.ID = m.nextID
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	m.rows[staff.ID] = *staff
	return nil
}

func (m *memStaff) Update(_ context.Context, staff *domain.StaffRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	staff.UpdatedAt = time.Now()
	m.rows[staff.ID] = *staff
	return nil
}

func (m *memStaff) GetByID(_ context.Context, id int64) (*domain.StaffRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &row, nil
}

func (m *memStaff) GetByEmail(_ context.Context, email string) (*domain.StaffRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == domain.NormalizeEmail(email) {
			return &row, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStaff) FindActiveByEmail(ctx context.Context, email string, _ int) ([]domain.StaffRecord, error) {
	row, err := m.GetByEmail(ctx, email)
	if err != nil || !row.IsActive {
		return nil, nil
	}
	return []domain.StaffRecord{*row}, nil
}

func (m *memStaff) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StaffRecord, 0, len(m.rows))
	for _, row := range m.rows {
		if filter.Role != nil && row.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && row.IsActive != *filter.Active {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSurveys struct {
	mu   sync.Mutex
	rows []domain.Survey
}

func (m *memSurveys) Create(_ context.Context, survey *domain.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	survey.ID = int64(len(m.rows) + 1)
	survey.CreatedAt = time.Now()
	m.rows = append(m.rows, *survey)
	return nil
}

func (m *memSurveys) List(_ context.Context, limit, offset int) ([]domain.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.rows) {
		end = len(m.rows)
	}
	return append([]domain.Survey(nil), m.rows[offset:end]...), nil
}

func (m *memSurveys) Summary(context.Context) (domain.SurveySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum domain.SurveySummary
	total := 0
	for _, s := range m.rows {
		sum.Count++
		total += s.Score
	}
	if sum.Count > 0 {
		sum.AverageScore = float64(total) / float64(sum.Count)
	}
	return sum, nil
}

type memGroups struct {
	mu     sync.Mutex
	groups map[string]domain.LineGroup
}

func newMemGroups() *memGroups {
	return &memGroups{groups: make(map[string]domain.LineGroup)}
}

func (m *memGroups) Touch(_ context.Context, groupID string) (*domain.LineGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	g, ok := m.groups[groupID]
	if !ok {
		g = domain.LineGroup{GroupID: groupID, FirstSeenAt: now}
	}
	g.LastSeenAt = now
	m.groups[groupID] = g
	return &g, nil
}

func (m *memGroups) List(context.Context) ([]domain.LineGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LineGroup, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

type releaseLog struct {
	mu  sync.Mutex
	ids []string
}

func (r *releaseLog) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *releaseLog) released() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

// newTestApp renders errors the way the global error middleware does.
func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "details": de.Details}})
	}})
}

type testResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r testResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) testResponse {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, ok := payload.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(payload)
			require.NoError(t, err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return testResponse{status: resp.StatusCode, header: resp.Header, body: raw}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
