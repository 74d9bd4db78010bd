// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrDependencyUnavailable はIdentity Store / Session Storeに到達できないことを表す。
// リポジトリ層のエラーはこの番兵でラップされる。
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ErrValidation は入力検証エラーを表す。
var ErrValidation = errors.New("validation failure")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, journal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is はCategoryに応じて番兵エラーとの比較を可能にする。
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Category == "validation"
	case ErrDependencyUnavailable:
		return e.Code == ErrCodeDependencyUnavailable
	}
	return false
}

// 定義済みエラーコード
const (
	ErrCodeValidation            = "VALIDATION_FAILED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	ErrCodeInternal              = "INTERNAL_ERROR"
	ErrCodeProviderNotFound      = "PROVIDER_NOT_FOUND"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeCSRF                  = "CSRF_VALIDATION_FAILED"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDependencyUnavailableError は依存先障害の利用者向けエラーを生成する。
// 接続先などの詳細は含めない。
func NewDependencyUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeDependencyUnavailable,
		Message:  "Service temporarily unavailable.",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーの利用者向けエラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal Server Error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProviderNotFoundError は未対応のOAuthプロバイダーが指定された場合のエラーを生成する。
func NewProviderNotFoundError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderNotFound,
		Message:  fmt.Sprintf("unknown auth provider: %s", provider),
		Category: "auth",
		Action:   "対応しているプロバイダーでログインしてください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "CSRF token validation failed.",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}
