// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/soullog/internal/auth"
	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/middleware"
	"github.com/hitoshi/soullog/internal/model"
)

const (
	oauthStateCookie = "soul_log.oauth_state"
	oauthStateMaxAge = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	ProviderName() string
	FailureRedirectURL() string
	InitiateLogin(ctx context.Context, existingToken, returnTo, state string) (*auth.LoginStart, error)
	ExchangeCode(ctx context.Context, code string) (*model.ExternalProfile, error)
	HandleCallback(ctx context.Context, pendingToken string, profile *model.ExternalProfile) (*auth.CallbackResult, error)
	GetStatus(user *model.User) auth.Status
	Logout(ctx context.Context, token string) error
}

// SessionCookieStore はセッションCookieの読み書きと削除を行う。
type SessionCookieStore interface {
	Read(r *http.Request) string
	Write(w http.ResponseWriter, token string) error
	Clear(w http.ResponseWriter)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  SessionCookieStore
	config   AuthHandlerConfig
	recorder metrics.Recorder
	errs     errorResponder
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, cookies SessionCookieStore, config AuthHandlerConfig, recorder metrics.Recorder, exposeDetail bool) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		config:   config,
		recorder: recorder,
		errs:     errorResponder{ExposeDetail: exposeDetail, Recorder: recorder},
	}
}

// Login はOAuthフローを開始し、同意画面にリダイレクトする。
// GET /auth/{provider}?returnTo=...
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if provider != h.service.ProviderName() {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProviderNotFoundError(provider))
		return
	}

	state, err := generateState()
	if err != nil {
		h.errs.handleServiceError(w, r, err, "")
		return
	}

	start, err := h.service.InitiateLogin(r.Context(), h.cookies.Read(r), r.URL.Query().Get("returnTo"), state)
	if err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencySessionStore)
		return
	}

	if start.SessionToken != "" {
		if err := h.cookies.Write(w, start.SessionToken); err != nil {
			h.errs.handleServiceError(w, r, err, "")
			return
		}
	}
	h.setStateCookie(w, state, oauthStateMaxAge)

	http.Redirect(w, r, start.LoginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// 成功時はreturnTo（または既定の遷移先）へ、失敗時はログイン画面へリダイレクトする。
// Identity Storeの障害時は503を返す。
// GET /auth/{provider}/callback?code=...&state=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if provider != h.service.ProviderName() {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProviderNotFoundError(provider))
		return
	}

	q := r.URL.Query()
	stateCookie, err := r.Cookie(oauthStateCookie)
	h.setStateCookie(w, "", -1)

	switch {
	case q.Get("error") != "":
		h.failLogin(w, r, "provider returned error", slog.String("provider_error", q.Get("error")))
		return
	case err != nil || q.Get("state") == "" ||
		subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(q.Get("state"))) != 1:
		h.failLogin(w, r, "oauth state mismatch")
		return
	case q.Get("code") == "":
		h.failLogin(w, r, "missing authorization code")
		return
	}

	profile, err := h.service.ExchangeCode(r.Context(), q.Get("code"))
	if err != nil {
		h.failLogin(w, r, "oauth code exchange failed", slog.String("error", err.Error()))
		return
	}

	result, err := h.service.HandleCallback(r.Context(), h.cookies.Read(r), profile)
	if err != nil {
		if errors.Is(err, model.ErrDependencyUnavailable) {
			h.recordLogin(metrics.LoginDependencyError)
			h.errs.handleServiceError(w, r, err, metrics.DependencyIdentityStore)
			return
		}
		h.failLogin(w, r, "oauth callback failed", slog.String("error", err.Error()))
		return
	}

	if err := h.cookies.Write(w, result.Session.Token); err != nil {
		h.errs.handleServiceError(w, r, err, "")
		return
	}
	h.recordLogin(metrics.LoginSuccess)

	http.Redirect(w, r, result.RedirectURL, http.StatusTemporaryRedirect)
}

// Status は現在の認証状態を返す。ストア障害時も匿名として200を返す。
// GET /auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetStatus(middleware.UserFromContext(r.Context())))
}

// Logout はセッションを破棄し、Cookieを削除する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.cookies.Read(r)
	h.cookies.Clear(w)

	if err := h.service.Logout(r.Context(), token); err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencySessionStore)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, reason string, attrs ...any) {
	slog.Warn("login failed", append([]any{slog.String("reason", reason)}, attrs...)...)
	h.recordLogin(metrics.LoginProviderFailure)
	http.Redirect(w, r, h.service.FailureRedirectURL(), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) recordLogin(outcome string) {
	if h.recorder != nil {
		h.recorder.RecordLogin(outcome)
	}
}

func (h *AuthHandler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はOAuthのstateパラメータ用の乱数を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
