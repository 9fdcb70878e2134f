package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/habit-service/internal/handler"
	"zenhabit/habit-service/internal/service"
	"zenhabit/pkg/stats"
	"zenhabit/pkg/trace"
	"zenhabit/pkg/util"
)

const testSecret = "router-test-secret"

type stubTracker struct {
	err        error
	toggleDate string
	userID     int
	year       int
	milestone  service.MilestoneInput
}

func (s *stubTracker) CreateHabit(_ context.Context, userID int, name, frequency string) (*dbcontracts.Habit, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &dbcontracts.Habit{ID: 7, UserID: userID, Name: name, Frequency: frequency}, nil
}

func (s *stubTracker) ListHabits(_ context.Context, userID int) ([]service.HabitView, error) {
	s.userID = userID
	return []service.HabitView{{Habit: dbcontracts.Habit{ID: 1, Name: "Read"}, Streak: 4}}, s.err
}

func (s *stubTracker) SetHabitActive(context.Context, int, int, bool) error { return s.err }

func (s *stubTracker) DeleteHabit(context.Context, int, int) error { return s.err }

func (s *stubTracker) ToggleCompletion(_ context.Context, _ int, habitID int, date string) (*service.ToggleResult, error) {
	s.toggleDate = date
	if s.err != nil {
		return nil, s.err
	}
	return &service.ToggleResult{HabitID: habitID, Date: "2024-06-12", Done: true, Streak: 3}, nil
}

func (s *stubTracker) CreateMilestone(_ context.Context, userID int, in service.MilestoneInput) (*dbcontracts.Milestone, error) {
	s.milestone = in
	if s.err != nil {
		return nil, s.err
	}
	return &dbcontracts.Milestone{ID: 2, UserID: userID, Date: in.Date, Title: in.Title}, nil
}

func (s *stubTracker) ListMilestones(context.Context, int) ([]service.MilestoneView, error) {
	return nil, s.err
}

func (s *stubTracker) DeleteMilestone(context.Context, int, int) error { return s.err }

func (s *stubTracker) Dashboard(context.Context, int) (*service.Dashboard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.Dashboard{Date: "2024-06-12", BestStreak: 5}, nil
}

func (s *stubTracker) Heatmap(_ context.Context, _ int, year int) ([]stats.HeatmapCell, error) {
	s.year = year
	return []stats.HeatmapCell{}, s.err
}

func (s *stubTracker) RequestInsight(context.Context, int) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "req-1", nil
}

func (s *stubTracker) LatestInsight(context.Context, int) (*dbcontracts.Insight, error) {
	return nil, s.err
}

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, email, _ string) (*dbcontracts.User, error) {
	return &dbcontracts.User{ID: 1, Email: email}, nil
}

func (stubAuth) Login(_ context.Context, _, password string) (string, error) {
	if password != "right" {
		return "", service.ErrInvalidCredentials
	}
	return util.GenerateJWT(1, testSecret)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubConn bool

func (c stubConn) IsConnected() bool { return bool(c) }

func newTestRouter(tr *stubTracker, db Pinger, mq ConnChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	h := Handlers{
		Auth:      handler.NewAuthHandler(stubAuth{}, log),
		Habit:     handler.NewHabitHandler(tr, log),
		Milestone: handler.NewMilestoneHandler(tr, log),
		Stats:     handler.NewStatsHandler(tr, log),
		Insight:   handler.NewInsightHandler(tr, log),
	}
	return NewRouter(h, testSecret, log, db, mq)
}

func do(t *testing.T, r http.Handler, method, path, body string, userID int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		token, err := util.GenerateJWT(userID, testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(&stubTracker{}, stubPinger{}, stubConn(true))

	for _, path := range []string{"/healthz", "/health", "/readyz"} {
		w := do(t, r, http.MethodGet, path, "", 0)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := do(t, r, http.MethodGet, "/metrics", "", 0)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyz_Dependencies(t *testing.T) {
	r := newTestRouter(&stubTracker{}, stubPinger{err: errors.New("down")}, stubConn(true))
	w := do(t, r, http.MethodGet, "/readyz", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "db_not_ready", decode(t, w)["status"])

	r = newTestRouter(&stubTracker{}, stubPinger{}, stubConn(false))
	w = do(t, r, http.MethodGet, "/readyz", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "mq_not_ready", decode(t, w)["status"])
}

func TestTraceHeader(t *testing.T) {
	r := newTestRouter(&stubTracker{}, stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName, "abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(trace.HeaderName))

	w = do(t, r, http.MethodGet, "/healthz", "", 0)
	assert.Len(t, w.Header().Get(trace.HeaderName), 32)
}

func TestAuthRoutes(t *testing.T) {
	r := newTestRouter(&stubTracker{}, stubPinger{}, nil)

	w := do(t, r, http.MethodPost, "/register", `{"email":"a@b.c","password":"secret1"}`, 0)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/register", `{"email":"a@b.c"}`, 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/login", `{"email":"a@b.c","password":"wrong"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/login", `{"email":"a@b.c","password":"right"}`, 0)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(&stubTracker{}, stubPinger{}, nil)

	w := do(t, r, http.MethodGet, "/habits", "", 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/habits", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", decode(t, w)["error"])
}

func TestHabitRoutes(t *testing.T) {
	tr := &stubTracker{}
	r := newTestRouter(tr, stubPinger{}, nil)

	w := do(t, r, http.MethodGet, "/habits", "", 42)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 42, tr.userID)
	habits := decode(t, w)["habits"].([]any)
	require.Len(t, habits, 1)
	assert.Equal(t, float64(4), habits[0].(map[string]any)["streak"])

	w = do(t, r, http.MethodPost, "/habits", `{"name":"Read","frequency":"daily"}`, 42)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPatch, "/habits/7/active", `{"is_active":false}`, 42)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPatch, "/habits/7/active", `{}`, 42)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/habits/abc", "", 42)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/habits/7", "", 42)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToggleRoute(t *testing.T) {
	tr := &stubTracker{}
	r := newTestRouter(tr, stubPinger{}, nil)

	w := do(t, r, http.MethodPost, "/habits/3/toggle", "", 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", tr.toggleDate)
	body := decode(t, w)
	assert.Equal(t, true, body["done"])
	assert.Equal(t, float64(3), body["streak"])

	w = do(t, r, http.MethodPost, "/habits/3/toggle", `{"date":"2024-06-11"}`, 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-11", tr.toggleDate)

	tr.err = service.ErrMilestoneDay
	w = do(t, r, http.MethodPost, "/habits/3/toggle", "", 1)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, service.ErrMilestoneDay.Error(), decode(t, w)["error"])

	tr.err = service.ErrNotFound
	w = do(t, r, http.MethodPost, "/habits/3/toggle", "", 1)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMilestoneRoutes(t *testing.T) {
	tr := &stubTracker{}
	r := newTestRouter(tr, stubPinger{}, nil)

	w := do(t, r, http.MethodPost, "/milestones", `{"title":"Finals","date":"2024-06-20","confirm":true}`, 1)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, tr.milestone.Confirm)
	assert.Equal(t, "Finals", tr.milestone.Title)

	w = do(t, r, http.MethodGet, "/milestones", "", 1)
	assert.Equal(t, http.StatusOK, w.Code)

	tr.err = service.ErrMilestoneConflict
	w = do(t, r, http.MethodPost, "/milestones", `{"title":"Finals","date":"2024-06-20"}`, 1)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatsAndInsightRoutes(t *testing.T) {
	tr := &stubTracker{}
	r := newTestRouter(tr, stubPinger{}, nil)

	w := do(t, r, http.MethodGet, "/stats/dashboard", "", 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), decode(t, w)["best_streak"])

	w = do(t, r, http.MethodGet, "/stats/heatmap?year=2023", "", 1)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2023, tr.year)

	w = do(t, r, http.MethodGet, "/stats/heatmap?year=abc", "", 1)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/insights", "", 1)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "req-1", decode(t, w)["request_id"])

	tr.err = service.ErrNoHabits
	w = do(t, r, http.MethodPost, "/insights", "", 1)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	tr.err = errors.New("db exploded")
	w = do(t, r, http.MethodGet, "/insights/latest", "", 1)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w)["error"])
}
