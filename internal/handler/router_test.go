package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/soullog/internal/auth"
	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/middleware"
	"github.com/hitoshi/soullog/internal/model"
)

type stubResolver struct {
	res auth.Resolution
}

func (s stubResolver) ResolveSession(ctx context.Context, token string) auth.Resolution {
	return s.res
}

func newTestRouter(t *testing.T, res auth.Resolution, reg *prometheus.Registry) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(120, 30))
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		Sessions:           stubResolver{res: res},
		Cookies:            &memCookies{},
		CORSAllowedOrigins: []string{"*"},
		RateLimiter:        rl,
		AuthService:        &mockAuthService{},
		JournalService:     &mockJournalService{},
	}
	if reg != nil {
		deps.Recorder = metrics.NewCollector(reg)
		deps.Gatherer = reg
	}
	return NewRouter(deps)
}

func TestNewRouter_Health(t *testing.T) {
	router := newTestRouter(t, auth.Resolution{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

// ストア障害中でも/healthと/auth/statusは200を返す。
func TestNewRouter_DependencyDown_StatusIsAnonymous(t *testing.T) {
	router := newTestRouter(t, auth.Resolution{DependencyErr: model.ErrDependencyUnavailable}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"authenticated":false,"user":null}` {
		t.Errorf("body = %s", got)
	}
}

func TestNewRouter_ProtectedRoutes_RequireAuth(t *testing.T) {
	router := newTestRouter(t, auth.Resolution{}, nil)

	for _, path := range []string{"/api/entries", "/api/entries/export", "/api/stats"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestNewRouter_AuthenticatedListEntries(t *testing.T) {
	router := newTestRouter(t, auth.Resolution{User: &model.User{ID: "user-1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_UnknownProvider_Returns404(t *testing.T) {
	router := newTestRouter(t, auth.Resolution{}, nil)

	for _, path := range []string{"/auth/github", "/auth/github/callback"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := newTestRouter(t, auth.Resolution{}, reg)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{"soullog_http_requests_total", "soullog_session_resolutions_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output should contain %s", name)
		}
	}
}

func TestNewRouter_NoGatherer_NoMetricsRoute(t *testing.T) {
	router := newTestRouter(t, auth.Resolution{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
