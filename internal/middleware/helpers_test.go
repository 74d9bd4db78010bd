package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/soullog/internal/auth"
	"github.com/hitoshi/soullog/internal/metrics"
)

// fakeRecorder は記録内容を保持するmetrics.Recorderのテスト実装。
type fakeRecorder struct {
	mu          sync.Mutex
	resolutions []string
	deps        []string
	routes      []string
	statuses    []int
}

func (f *fakeRecorder) RecordLogin(string) {}

func (f *fakeRecorder) RecordSessionResolution(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions = append(f.resolutions, outcome)
}

func (f *fakeRecorder) RecordDependencyFailure(dep string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deps = append(f.deps, dep)
}

func (f *fakeRecorder) RecordEntryCreated(string) {}

func (f *fakeRecorder) RecordHTTPRequest(_, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
	f.statuses = append(f.statuses, status)
}

var _ metrics.Recorder = (*fakeRecorder)(nil)

// mockResolver はSessionResolverのモック。
type mockResolver struct {
	resolveFn func(ctx context.Context, token string) auth.Resolution
	calls     int
}

func (m *mockResolver) ResolveSession(ctx context.Context, token string) auth.Resolution {
	m.calls++
	return m.resolveFn(ctx, token)
}

// plainCookie は署名しないSessionCookieのテスト実装。
type plainCookie struct {
	written []string
	err     error
}

func (p *plainCookie) Read(r *http.Request) string {
	c, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (p *plainCookie) Write(w http.ResponseWriter, token string) error {
	if p.err != nil {
		return p.err
	}
	p.written = append(p.written, token)
	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Value: token, Path: "/"})
	return nil
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}
