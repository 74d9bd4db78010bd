// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/soullog/internal/model"
	"github.com/hitoshi/soullog/internal/repository"
)

// DefaultLandingPath はreturnToが無い場合のログイン後の遷移先。
const DefaultLandingPath = "/journal"

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// Name はURLに使うプロバイダー名（"google"）を返す。
	Name() string
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*model.ExternalProfile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge time.Duration // セッション有効期間（スライディング）
	FrontendURL   string        // ログイン後のリダイレクト先のオリジン
}

// Service は認証に関するビジネスロジックを提供する。
// 起動時に一度だけ生成し、ハンドラー・ミドルウェアに渡す。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	config.FrontendURL = strings.TrimRight(config.FrontendURL, "/")
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// ProviderName は登録済みプロバイダー名を返す。
func (s *Service) ProviderName() string {
	return s.oauth.Name()
}

// FailureRedirectURL はOAuth失敗時の遷移先を返す。
func (s *Service) FailureRedirectURL() string {
	return s.config.FrontendURL + "/login?error=google_oauth_failed"
}

// LoginStart はInitiateLoginの結果。
type LoginStart struct {
	// SessionToken はCookieに設定すべき未認証セッションのトークン。空なら変更不要。
	SessionToken string
	LoginURL     string
}

// InitiateLogin はreturnToを未認証セッションに記録し、同意画面のURLを返す。
// Identity Storeには触れない。returnToが不正な値の場合は記録しない。
func (s *Service) InitiateLogin(ctx context.Context, existingToken, returnTo, state string) (*LoginStart, error) {
	start := &LoginStart{LoginURL: s.oauth.GetLoginURL(state)}
	target := s.normalizeReturnTo(returnTo)
	expiresAt := s.now().Add(s.config.SessionMaxAge)

	if existingToken != "" {
		// 既存の未認証セッションは上書きする。returnToが無ければ古い値を消す。
		updated, err := s.sessionRepo.UpdateData(ctx, existingToken, model.SessionData{ReturnTo: target}, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to record return target: %w", err)
		}
		if updated {
			return start, nil
		}
	}

	if target == "" {
		return start, nil
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	pending := &model.Session{
		Token:     token,
		Data:      model.SessionData{ReturnTo: target},
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.sessionRepo.Create(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to create pending session: %w", err)
	}

	start.SessionToken = token
	return start, nil
}

// ExchangeCode は認可コードをプロバイダーのプロフィールに交換する。
func (s *Service) ExchangeCode(ctx context.Context, code string) (*model.ExternalProfile, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	return profile, nil
}

// CallbackResult はHandleCallbackの結果。
type CallbackResult struct {
	User        *model.User
	Session     *model.Session
	RedirectURL string
}

// HandleCallback はプロフィールでユーザーをUPSERTし、認証済みセッションを発行する。
// 未認証セッションに記録されたreturnToは一度だけ使用し、セッションごと破棄する。
// Identity Storeの障害時はmodel.ErrDependencyUnavailableを返し、セッションは作成しない。
func (s *Service) HandleCallback(ctx context.Context, pendingToken string, profile *model.ExternalProfile) (*CallbackResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	// 1. external_provider_idでUPSERT
	user, err := s.userRepo.Upsert(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", asDependencyError(err))
	}

	// 2. 未認証セッションからreturnToを取り出す
	var returnTo string
	if pendingToken != "" {
		pending, err := s.sessionRepo.FindByToken(ctx, pendingToken)
		if err != nil {
			slog.Warn("failed to load pending session",
				slog.String("error", err.Error()),
			)
		} else if pending != nil && !pending.Authenticated() {
			returnTo = pending.Data.ReturnTo
		}
	}

	// 3. 新しいトークンで認証済みセッションを発行
	session, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", asDependencyError(err))
	}

	// 4. ログイン前のセッションを破棄（returnToの再利用とセッション固定を防ぐ）
	if pendingToken != "" {
		if err := s.sessionRepo.DeleteByToken(ctx, pendingToken); err != nil {
			slog.Warn("failed to delete pending session",
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", s.oauth.Name()),
	)

	return &CallbackResult{
		User:        user,
		Session:     session,
		RedirectURL: s.redirectTarget(returnTo),
	}, nil
}

// IssueSession はユーザーに紐付く認証済みセッションを作成し永続化する。
func (s *Service) IssueSession(ctx context.Context, user *model.User) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.SessionMaxAge),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// LoadUserForSession はセッショントークンからユーザーを読み込む。
// セッションが無い、未認証、またはユーザーが存在しない場合は(nil, nil)を返す。
// エラーはストア障害の場合のみ返す。成功時は有効期限を延長する。
func (s *Service) LoadUserForSession(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", asDependencyError(err))
	}
	if !session.Authenticated() {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", asDependencyError(err))
	}
	if user == nil {
		slog.Warn("session references missing user",
			slog.String("user_id", session.UserID),
		)
		return nil, nil
	}

	if err := s.sessionRepo.Touch(ctx, token, s.now().Add(s.config.SessionMaxAge)); err != nil {
		// 延長に失敗しても現在のリクエストは認証済みとして扱う
		slog.Warn("failed to extend session",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// Resolution はResolveSessionの結果。
type Resolution struct {
	// User は認証済みユーザー。nilの場合は匿名。
	User *model.User
	// DependencyErr はストア障害により匿名扱いにした場合の原因。
	DependencyErr error
}

// ResolveSession はLoadUserForSessionを呼び出し、失敗時も匿名として結果を返す。
// 認証済みとして扱うのは、セッションとユーザーの両方を読み込めた場合だけ。
func (s *Service) ResolveSession(ctx context.Context, token string) Resolution {
	user, err := s.LoadUserForSession(ctx, token)
	if err != nil {
		return Resolution{DependencyErr: err}
	}
	return Resolution{User: user}
}

// Status はGET /auth/statusのレスポンス。
type Status struct {
	Authenticated bool                 `json:"authenticated"`
	User          *model.PublicProfile `json:"user"`
}

// GetStatus は解決済みユーザーから認証状態を返す。ストアにはアクセスしない。
func (s *Service) GetStatus(user *model.User) Status {
	if user == nil {
		return Status{}
	}
	return Status{Authenticated: true, User: user.Public()}
}

// Logout はセッションを破棄する。トークンが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("session destroyed")
	return nil
}

// normalizeReturnTo はreturnToを検証し、保存可能な値に正規化する。
// サイト内の相対パス、またはFrontendURLと同一オリジンの絶対URLのみ受け付ける。
func (s *Service) normalizeReturnTo(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "\\\r\n") {
		return ""
	}

	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") {
			return ""
		}
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	frontend, err := url.Parse(s.config.FrontendURL)
	if err != nil {
		return ""
	}
	if !strings.EqualFold(u.Scheme, frontend.Scheme) || !strings.EqualFold(u.Host, frontend.Host) {
		return ""
	}
	return u.String()
}

// redirectTarget はreturnToからリダイレクト先URLを組み立てる。
func (s *Service) redirectTarget(returnTo string) string {
	switch {
	case returnTo == "":
		return s.config.FrontendURL + DefaultLandingPath
	case strings.HasPrefix(returnTo, "/"):
		return s.config.FrontendURL + returnTo
	default:
		return returnTo
	}
}

// asDependencyError はストアのエラーをmodel.ErrDependencyUnavailableとして扱えるようにする。
func asDependencyError(err error) error {
	if errors.Is(err, model.ErrDependencyUnavailable) || errors.Is(err, model.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrDependencyUnavailable, err)
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
