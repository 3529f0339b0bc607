package execution

import (
	"context"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"hftexec/internal/report"
	"hftexec/pkg/exception"
)

// ReconcileState asks every client for a mass status concurrently and
// reconciles each. A client that returns nothing counts as a failure.
func (e *Engine) ReconcileState(ctx context.Context) bool {
	if !e.cfg.Reconciliation {
		logs.Warnf("execution: reconciliation deactivated")
		return true
	}
	clients := e.Clients()
	if len(clients) == 0 {
		logs.Warnf("execution: no clients to reconcile")
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.startupTimeout())
	defer cancel()

	// results is read only once every client has returned.
	results := make([]*report.ExecutionMassStatus, len(clients))
	var g errgroup.Group
	for i, c := range clients {
		g.Go(func() error {
			ms, err := c.GenerateMassStatus(ctx, e.cfg.ReconciliationLookbackMins)
			if err != nil {
				logs.Errorf("execution: mass status from %s, err: %+v", c.ID(), err)
				return nil
			}
			results[i] = ms
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logs.Errorf("execution: mass status from %d client(s) not complete, err: %+v", len(clients), ctx.Err())
		return false
	}

	ok := true
	for i, ms := range results {
		if ms == nil {
			logs.Errorf("execution: %s, err: %+v", clients[i].ID(), exception.ErrExecNoMassStatus)
			ok = false
			continue
		}
		if !e.ReconcileMassStatus(ms) {
			ok = false
		}
	}
	if ok {
		logs.Infof("execution: state reconciled across %d client(s)", len(clients))
	} else {
		logs.Errorf("execution: state reconciliation incomplete")
	}
	return ok
}
