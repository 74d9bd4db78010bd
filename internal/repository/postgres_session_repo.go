package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/soullog/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。UserIDが空の場合はuser_idをNULLで保存する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, data, expiry, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.Token, nullString(session.UserID), data, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return wrapDBError("create session", err)
	}
	return nil
}

// FindByToken は指定トークンのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session := &model.Session{Token: token}
	var userID sql.NullString
	var data []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, data, expiry, created_at
		 FROM sessions
		 WHERE token = $1 AND expiry > now()`,
		token,
	).Scan(&userID, &data, &session.ExpiresAt, &session.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("find session", err)
	}

	session.UserID = userID.String
	if len(data) > 0 {
		// 壊れたペイロードは空として扱う
		if err := json.Unmarshal(data, &session.Data); err != nil {
			session.Data = model.SessionData{}
		}
	}

	return session, nil
}

// UpdateData は未認証セッションのペイロードと有効期限を更新する。
func (r *PostgresSessionRepo) UpdateData(ctx context.Context, token string, data model.SessionData, expiresAt time.Time) (bool, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to encode session data: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET data = $2, expiry = $3
		 WHERE token = $1 AND user_id IS NULL AND expiry > now()`,
		token, encoded, expiresAt,
	)
	if err != nil {
		return false, wrapDBError("update session data", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, wrapDBError("get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// Touch はセッションの有効期限を延長する。
func (r *PostgresSessionRepo) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expiry = $2 WHERE token = $1`,
		token, expiresAt,
	)
	if err != nil {
		return wrapDBError("touch session", err)
	}
	return nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`,
		token,
	)
	if err != nil {
		return wrapDBError("delete session", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを削除する。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expiry <= now()`,
	)
	if err != nil {
		return 0, wrapDBError("delete expired sessions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapDBError("get rows affected", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
