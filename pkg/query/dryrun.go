package query

import (
	"context"
	"fmt"
	"time"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

// DryRunExecutor validates statements with an execution plan instead of
// running them.
type DryRunExecutor struct {
	stmt *Statement
}

// NewDryRunExecutor creates a dry-run executor for s.
func NewDryRunExecutor(s *Statement) *DryRunExecutor {
	return &DryRunExecutor{stmt: s}
}

// Execute plans the statement once. Queries then fetch no rows.
func (d *DryRunExecutor) Execute(ctx context.Context, commit bool) error {
	s := d.stmt
	if s.state != nil {
		return s.state.Err
	}
	state := &ExecutionState{Commit: commit, Started: time.Now()}
	if _, err := s.explain(ctx); err != nil {
		state.Err = fmt.Errorf("%w: %w", dberror.ErrInvalidSQL, err)
	}
	state.Duration = time.Since(state.Started)
	s.state = state
	return state.Err
}

func (d *DryRunExecutor) Insert(context.Context, string, bool) (int64, error) {
	return 0, dberror.ErrDryRun
}

func (d *DryRunExecutor) ExecuteMultiple(context.Context, []string, []int, [][]string, bool) (int, error) {
	return 0, dberror.ErrDryRun
}

func (d *DryRunExecutor) Commit() error { return nil }

func (d *DryRunExecutor) Rollback() error { return nil }

var _ StatementExecutor = (*DryRunExecutor)(nil)
