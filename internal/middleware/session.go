// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/soullog/internal/auth"
	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey         = contextKey("user")
	sessionTokenContextKey = contextKey("session_token")
)

// SessionResolver はセッショントークンからユーザーを解決する。
// auth.Serviceが実装する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) auth.Resolution
}

// SessionCookie はセッションCookieの読み書きを行う。
// auth.CookieCodecが実装する。
type SessionCookie interface {
	Read(r *http.Request) string
	Write(w http.ResponseWriter, token string) error
}

// NewSessionMiddleware はCookieからセッションを解決し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証でもリクエストは拒否しない。拒否はRequireAuthで行う。
// ストア障害時は警告を記録し、匿名としてリクエストを続行する。
func NewSessionMiddleware(resolver SessionResolver, cookies SessionCookie, recorder metrics.Recorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.Read(r)
			if token == "" {
				recordResolution(recorder, metrics.SessionAnonymous)
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			res := resolver.ResolveSession(ctx, token)

			switch {
			case res.DependencyErr != nil:
				slog.Warn("session store unavailable, continuing as anonymous",
					slog.String("path", r.URL.Path),
					slog.String("error", res.DependencyErr.Error()),
				)
				recordResolution(recorder, metrics.SessionDependencyError)
				if recorder != nil {
					recorder.RecordDependencyFailure(metrics.DependencySessionStore)
				}
			case res.User != nil:
				recordResolution(recorder, metrics.SessionAuthenticated)
				// スライディング有効期限: Cookieの Max-Age を毎回リセットする
				if err := cookies.Write(w, token); err != nil {
					slog.Warn("failed to refresh session cookie",
						slog.String("user_id", res.User.ID),
						slog.String("error", err.Error()),
					)
				}
				ctx = ContextWithUser(ctx, res.User)
				ctx = context.WithValue(ctx, sessionTokenContextKey, token)
				setLogUserID(ctx, res.User.ID)
			default:
				recordResolution(recorder, metrics.SessionAnonymous)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth は認証済みユーザーがいないリクエストに401を返す。
// NewSessionMiddlewareの後に配置する。
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func recordResolution(recorder metrics.Recorder, outcome string) {
	if recorder != nil {
		recorder.RecordSessionResolution(outcome)
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 匿名の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return user.ID, nil
}

// SessionTokenFromContext は解決済みセッションのトークンを返す。
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenContextKey).(string)
	return token
}
