package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/soullog/internal/model"
)

// PostgresEntryRepo はPostgreSQLを使用した日記エントリリポジトリ。
type PostgresEntryRepo struct {
	db *sql.DB
}

// NewPostgresEntryRepo はPostgresEntryRepoを生成する。
func NewPostgresEntryRepo(db *sql.DB) *PostgresEntryRepo {
	return &PostgresEntryRepo{db: db}
}

// Create はエントリを作成する。IDと作成日時はDB側で採番する。
func (r *PostgresEntryRepo) Create(ctx context.Context, entry *model.JournalEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO entries (user_id, type, category, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		entry.UserID, string(entry.Type), string(entry.Category), entry.Content,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return wrapDBError("create entry", err)
	}
	return nil
}

// ListByUser はユーザーのエントリを作成日時の降順で返す。
func (r *PostgresEntryRepo) ListByUser(ctx context.Context, userID string, filter EntryFilter) ([]*model.JournalEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, user_id, type, category, content, created_at
		 FROM entries
		 WHERE user_id = $1`)
	args := []any{userID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC, id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapDBError("list entries", err)
	}
	defer rows.Close()

	var entries []*model.JournalEntry
	for rows.Next() {
		e := &model.JournalEntry{}
		var entryType, category string
		if err := rows.Scan(&e.ID, &e.UserID, &entryType, &category, &e.Content, &e.CreatedAt); err != nil {
			return nil, wrapDBError("scan entry", err)
		}
		e.Type = model.EntryType(entryType)
		e.Category = model.Category(category)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate entries", err)
	}

	return entries, nil
}

// DeleteByUser はユーザーの全エントリを削除する。
func (r *PostgresEntryRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, wrapDBError("delete entries", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapDBError("get rows affected", err)
	}
	return n, nil
}

// compile-time interface check
var _ EntryRepository = (*PostgresEntryRepo)(nil)
