package ports

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Transactor : выдаёт исполнителя запросов вне транзакции и открывает транзакции.
// BeginTX возвращает exec, rollback и commit. rollback после commit безопасен
type Transactor interface {
	Executor() sqlx.ExtContext
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
	BeginReadOnlyTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}
