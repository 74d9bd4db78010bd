package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/soullog/internal/auth"
	"github.com/hitoshi/soullog/internal/journal"
	"github.com/hitoshi/soullog/internal/middleware"
	"github.com/hitoshi/soullog/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	initiateLoginFn  func(ctx context.Context, existingToken, returnTo, state string) (*auth.LoginStart, error)
	exchangeCodeFn   func(ctx context.Context, code string) (*model.ExternalProfile, error)
	handleCallbackFn func(ctx context.Context, pendingToken string, profile *model.ExternalProfile) (*auth.CallbackResult, error)
	logoutFn         func(ctx context.Context, token string) error
}

func (m *mockAuthService) ProviderName() string { return "google" }

func (m *mockAuthService) FailureRedirectURL() string {
	return "http://localhost:5173/login?error=google_oauth_failed"
}

func (m *mockAuthService) InitiateLogin(ctx context.Context, existingToken, returnTo, state string) (*auth.LoginStart, error) {
	if m.initiateLoginFn != nil {
		return m.initiateLoginFn(ctx, existingToken, returnTo, state)
	}
	return &auth.LoginStart{LoginURL: "https://accounts.google.com/o/oauth2/auth?state=" + state}, nil
}

func (m *mockAuthService) ExchangeCode(ctx context.Context, code string) (*model.ExternalProfile, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return &model.ExternalProfile{ID: "g-1"}, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, pendingToken string, profile *model.ExternalProfile) (*auth.CallbackResult, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, pendingToken, profile)
	}
	return nil, nil
}

func (m *mockAuthService) GetStatus(user *model.User) auth.Status {
	if user == nil {
		return auth.Status{}
	}
	return auth.Status{Authenticated: true, User: user.Public()}
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

// mockJournalService はJournalServiceInterfaceのモック実装。
type mockJournalService struct {
	createFn  func(ctx context.Context, userID string, input journal.CreateEntryInput) (*journal.CreatedEntry, error)
	listFn    func(ctx context.Context, userID string, q journal.ListQuery) ([]*model.JournalEntry, error)
	exportFn  func(ctx context.Context, userID string) (*journal.Export, error)
	clearFn   func(ctx context.Context, userID string) (int64, error)
	summaryFn func(ctx context.Context, userID string, q journal.SummaryQuery) (*journal.Summary, error)
}

func (m *mockJournalService) Create(ctx context.Context, userID string, input journal.CreateEntryInput) (*journal.CreatedEntry, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockJournalService) List(ctx context.Context, userID string, q journal.ListQuery) ([]*model.JournalEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, q)
	}
	return nil, nil
}

func (m *mockJournalService) Export(ctx context.Context, userID string) (*journal.Export, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, userID)
	}
	return &journal.Export{Filename: "soul-log-journal-2024-03-10.json", Entries: []journal.ExportEntry{}}, nil
}

func (m *mockJournalService) Clear(ctx context.Context, userID string) (int64, error) {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockJournalService) Summary(ctx context.Context, userID string, q journal.SummaryQuery) (*journal.Summary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, userID, q)
	}
	return &journal.Summary{}, nil
}

// memCookies は署名しないSessionCookieStoreのテスト実装。
type memCookies struct {
	written []string
	cleared int
}

func (c *memCookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c *memCookies) Write(w http.ResponseWriter, token string) error {
	c.written = append(c.written, token)
	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Value: token, Path: "/"})
	return nil
}

func (c *memCookies) Clear(w http.ResponseWriter) {
	c.cleared++
	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Value: "", Path: "/", MaxAge: -1})
}

// --- テストヘルパー ---

// withUser はリクエストコンテキストに認証済みユーザーを注入する。
func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), &model.User{ID: userID}))
}

// withChiURLParam はchiのURLパラメータを注入する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseErrorBody はレスポンスボディから統一エラーフォーマットをパースする。
func parseErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}
