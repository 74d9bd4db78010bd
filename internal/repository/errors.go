package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/soullog/internal/model"
)

// integrityViolationClass はPostgreSQLの整合性制約違反のSQLSTATEクラス。
const integrityViolationClass = "23"

// wrapDBError はデータベースエラーを分類してラップする。
// 制約違反以外（接続断、タイムアウト等）はmodel.ErrDependencyUnavailableとして扱う。
func wrapDBError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == integrityViolationClass {
		return fmt.Errorf("failed to %s (%s): %w", op, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, model.ErrDependencyUnavailable, err)
}
