package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

// TxRunner is the transaction boundary every aggregate write goes through.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// defaultTxAttempts bounds reruns of a body that lost a serialization or
// deadlock race. The body must not have side effects outside the tx.
const defaultTxAttempts = 3

type gormTxRunner struct {
	db       *gorm.DB
	attempts int
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db, attempts: defaultTxAttempts}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "tx", "transaction runner has nil db", nil)
	}
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || !txRaceLost(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// txRaceLost reports serialization failures and deadlocks, which postgres
// resolves by aborting one side; sqlite reports contention as a busy lock.
func txRaceLost(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "database is locked")
}
