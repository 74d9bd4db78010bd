// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/soullog/internal/model"
)

// UserRepository はユーザーデータ（Identity Store）の永続化インターフェース。
type UserRepository interface {
	// Upsert は外部プロフィールでユーザーを作成または更新する。
	// external_provider_idをキーとした単一文で実行し、並行ログインでも重複しない。
	Upsert(ctx context.Context, profile *model.ExternalProfile) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータ（Session Store）の永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。期限切れの場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// UpdateData は未認証セッションのペイロードと有効期限を更新する。
	// 該当セッションが存在しない場合はfalseを返す。
	UpdateData(ctx context.Context, token string, data model.SessionData, expiresAt time.Time) (bool, error)

	// Touch はセッションの有効期限を延長する。
	Touch(ctx context.Context, token string, expiresAt time.Time) error

	// DeleteByToken は指定トークンのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// EntryFilter は日記エントリ一覧の絞り込み条件。
type EntryFilter struct {
	Type model.EntryType // 空の場合は全種類
}

// EntryRepository は日記エントリの永続化インターフェース。
type EntryRepository interface {
	// Create はエントリを作成し、採番されたIDと作成日時を設定する。
	Create(ctx context.Context, entry *model.JournalEntry) error

	// ListByUser はユーザーのエントリを作成日時の降順で返す。
	ListByUser(ctx context.Context, userID string, filter EntryFilter) ([]*model.JournalEntry, error)

	// DeleteByUser はユーザーの全エントリを削除し、削除件数を返す。
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
