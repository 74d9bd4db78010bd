package model

import (
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// ExternalProviderID は外部IdPの主体IDで、ユーザーとの唯一の結合キーになる。
type User struct {
	ID                 string
	ExternalProviderID string
	Email              string
	Name               string
	AvatarURL          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PublicProfile はフロントエンドへ公開するユーザー情報。
type PublicProfile struct {
	ID        string  `json:"id"`
	Email     *string `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// Public はUserを公開用プロフィールに変換する。
// 未設定のフィールドはJSONでnullになる。
func (u *User) Public() *PublicProfile {
	return &PublicProfile{
		ID:        u.ID,
		Email:     nullable(u.Email),
		Name:      nullable(u.Name),
		AvatarURL: nullable(u.AvatarURL),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ExternalProfile はOAuthプロバイダーが返したプロフィールを表す。
// HandleCallbackに渡す前にValidateで一度だけ検証する。
type ExternalProfile struct {
	ID          string
	Emails      []string
	DisplayName string
	Photos      []string
}

// Validate はプロフィールに外部IDが含まれていることを確認する。
func (p *ExternalProfile) Validate() error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return NewValidationError("external profile has no subject id")
	}
	return nil
}

// PrimaryEmail は先頭の空でないメールアドレスを返す。
func (p *ExternalProfile) PrimaryEmail() string {
	return firstNonEmpty(p.Emails)
}

// PrimaryPhoto は先頭の空でないアバターURLを返す。
func (p *ExternalProfile) PrimaryPhoto() string {
	return firstNonEmpty(p.Photos)
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Session はサーバー側で保持するセッションを表す。
// UserIDが空のセッションはログイン前（PendingCallback）の状態。
type Session struct {
	Token     string
	UserID    string
	Data      SessionData
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Authenticated はセッションがユーザーに紐付いているかを返す。
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// SessionData はセッションに保存する小さなペイロード。
type SessionData struct {
	ReturnTo string `json:"returnTo,omitempty"`
}
