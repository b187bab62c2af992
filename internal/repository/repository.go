package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation : например, идентификатор не в формате UUID
	invalidTextRepresentation = "22P02"
)

// TxManager : открывает транзакции поверх общего пула соединений
type TxManager struct {
	*config.Database
}

func NewTxManager(database *config.Database) *TxManager {
	return &TxManager{database}
}

func (m *TxManager) Executor() sqlx.ExtContext {
	return m.DB
}

func (m *TxManager) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	return m.begin(ctx, nil)
}

// BeginReadOnlyTX : снимок для согласованных агрегатов (статистика)
func (m *TxManager) BeginReadOnlyTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	return m.begin(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (m *TxManager) begin(ctx context.Context, opts *sql.TxOptions) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := m.DB.BeginTxx(ctx, opts)
	if err != nil {
		return nil, nil, nil, util.LogError("[TxManager] не удалось начать транзакцию", err)
	}

	rollback := func() error {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return nil
	}
	return tx, rollback, tx.Commit, nil
}

// translateError : sql.ErrNoRows и некорректный UUID -> model.ErrNotFound,
// нарушение уникальности -> model.ErrAlreadyExists
func translateError(message string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", message, model.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", message, model.ErrAlreadyExists)
		case invalidTextRepresentation:
			return fmt.Errorf("%s: %w", message, model.ErrNotFound)
		}
	}
	return util.LogError(message, err)
}

// conditions : собирает WHERE из условий с плейсхолдерами "?"
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// addAuditScope : администратор видит всё, остальные свои записи и записи по своим документам
func (c *conditions) addAuditScope(scope model.AuditScope) {
	if scope.All {
		return
	}
	c.add("(user_uuid = ? OR document_uuid IN (SELECT uuid FROM documents WHERE owner_uuid = ?))", scope.UserUUID, scope.UserUUID)
}

func (c *conditions) addAuditFilter(filter model.AuditFilter) {
	if filter.ActionType != nil {
		c.add("action_type = ?", string(*filter.ActionType))
	}
	if filter.DocumentUUID != "" {
		c.add("document_uuid = ?", filter.DocumentUUID)
	}
	if filter.Start != nil {
		c.add("timestamp >= ?", *filter.Start)
	}
	if filter.End != nil {
		c.add("timestamp <= ?", *filter.End)
	}
}

func rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}
