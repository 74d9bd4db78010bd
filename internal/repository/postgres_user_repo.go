package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/soullog/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, external_provider_id, COALESCE(email, ''), COALESCE(name, ''), COALESCE(avatar_url, ''), created_at, updated_at`

// Upsert は外部プロフィールでユーザーを作成または更新する。
// 既存ユーザーの場合はemail、name、avatar_urlを最新のプロフィールで上書きする。
func (r *PostgresUserRepo) Upsert(ctx context.Context, profile *model.ExternalProfile) (*model.User, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (external_provider_id, email, name, avatar_url)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (external_provider_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   name = EXCLUDED.name,
		   avatar_url = EXCLUDED.avatar_url,
		   updated_at = now()
		 RETURNING `+userColumns,
		profile.ID, profile.PrimaryEmail(), profile.DisplayName, profile.PrimaryPhoto(),
	).Scan(&user.ID, &user.ExternalProviderID, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapDBError("upsert user", err)
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.ExternalProviderID, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("find user %s", id), err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
