package repository

import (
	"context"
	"database/sql"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/pkg/database"
)

type contextKey string

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxManager implements port.TransactionManager by stashing the transaction
// in the context; repositories pick it up through getExecutor.
type TxManager struct {
	db *database.DB
}

func NewTxManager(db *database.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, contextKey("tx"), tx))
	})
}

func executorFrom(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(contextKey("tx")).(*sql.Tx); ok {
		return tx
	}
	return db
}

// Verify interface compliance
var _ port.TransactionManager = (*TxManager)(nil)
