package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

// InjectedTxRunner runs aggregate bodies without a database and counts the
// transaction lifecycle. FailBegin and FailCommit are returned at that stage;
// a failed commit counts as a rollback.
type InjectedTxRunner struct {
	FailBegin  error
	FailCommit error

	mu            sync.Mutex
	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.count(&r.BeginCalls)
	if r.FailBegin != nil {
		return r.FailBegin
	}
	if fn != nil {
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			r.count(&r.RollbackCalls)
			return err
		}
	}
	if r.FailCommit != nil {
		r.count(&r.RollbackCalls)
		return r.FailCommit
	}
	r.count(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) count(n *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*n++
}
