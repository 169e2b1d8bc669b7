package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

// StatementStatus represents the status of a managed statement.
type StatementStatus string

const (
	StatementStatusPending  StatementStatus = "pending"
	StatementStatusRunning  StatementStatus = "running"
	StatementStatusSuccess  StatementStatus = "success"
	StatementStatusFailed   StatementStatus = "failed"
	StatementStatusCanceled StatementStatus = "canceled"
)

// ManagedStatement is an adapter kept open between requests.
type ManagedStatement struct {
	Handle      string
	Status      StatementStatus
	SQLText     string
	Database    string
	Schema      string
	CreatedOn   time.Time
	LastUsed    time.Time
	CompletedOn *time.Time
	Err         error
	Adapter     *Adapter
	cancelFunc  context.CancelFunc

	// use serializes requests working on Adapter.
	use sync.Mutex
}

// StatementInfo is a copy of the bookkeeping fields of a ManagedStatement.
type StatementInfo struct {
	Handle      string
	Status      StatementStatus
	SQLText     string
	Database    string
	Schema      string
	CreatedOn   time.Time
	CompletedOn *time.Time
	Err         error
}

// StatementManager keeps adapters by handle and closes them once they have
// not been used for longer than the TTL.
type StatementManager struct {
	mu         sync.RWMutex
	statements map[string]*ManagedStatement
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// DefaultStatementTTL is used when NewStatementManager gets a non-positive
// TTL.
const DefaultStatementTTL = time.Hour

// NewStatementManager creates a statement manager and starts its cleanup
// loop. Close stops the loop.
func NewStatementManager(ttl time.Duration) *StatementManager {
	if ttl <= 0 {
		ttl = DefaultStatementTTL
	}
	sm := &StatementManager{
		statements: make(map[string]*ManagedStatement),
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// TTL returns how long an unused statement is kept.
func (sm *StatementManager) TTL() time.Duration { return sm.ttl }

// Register stores adapter under a new handle.
func (sm *StatementManager) Register(adapter *Adapter, sqlText string) *ManagedStatement {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	ms := &ManagedStatement{
		Handle:    generateStatementHandle(),
		Status:    StatementStatusPending,
		SQLText:   sqlText,
		Database:  adapter.Connection().Database(),
		Schema:    adapter.Connection().Schema(),
		CreatedOn: now,
		LastUsed:  now,
		Adapter:   adapter,
	}
	sm.statements[ms.Handle] = ms
	return ms
}

// Get retrieves a statement by handle and marks it used.
func (sm *StatementManager) Get(handle string) (*ManagedStatement, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ms, ok := sm.statements[handle]
	if ok {
		ms.LastUsed = sm.now()
	}
	return ms, ok
}

// Info returns a snapshot of a statement without marking it used.
func (sm *StatementManager) Info(handle string) (StatementInfo, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ms, ok := sm.statements[handle]
	if !ok {
		return StatementInfo{}, false
	}
	return StatementInfo{
		Handle:      ms.Handle,
		Status:      ms.Status,
		SQLText:     ms.SQLText,
		Database:    ms.Database,
		Schema:      ms.Schema,
		CreatedOn:   ms.CreatedOn,
		CompletedOn: ms.CompletedOn,
		Err:         ms.Err,
	}, true
}

// Use runs fn with the statement's adapter. Calls for the same handle run
// one at a time, and Cancel cancels the context passed to fn.
func (sm *StatementManager) Use(ctx context.Context, handle string, fn func(context.Context, *Adapter) error) error {
	ms, ok := sm.Get(handle)
	if !ok {
		return fmt.Errorf("%w: %s", dberror.ErrStatementNotFound, handle)
	}
	ms.use.Lock()
	defer ms.use.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sm.SetCancelFunc(handle, cancel)
	defer sm.SetCancelFunc(handle, nil)

	return fn(ctx, ms.Adapter)
}

// Len returns the number of managed statements.
func (sm *StatementManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.statements)
}

// UpdateStatus updates the status of a statement.
func (sm *StatementManager) UpdateStatus(handle string, status StatementStatus) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ms, ok := sm.statements[handle]
	if !ok {
		return false
	}
	ms.Status = status
	if status == StatementStatusSuccess || status == StatementStatusFailed || status == StatementStatusCanceled {
		now := sm.now()
		ms.CompletedOn = &now
	}
	return true
}

// SetError marks a statement failed.
func (sm *StatementManager) SetError(handle string, err error) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ms, ok := sm.statements[handle]
	if !ok {
		return false
	}
	ms.Err = err
	ms.Status = StatementStatusFailed
	now := sm.now()
	ms.CompletedOn = &now
	return true
}

// SetCancelFunc sets the cancel function of a running statement.
func (sm *StatementManager) SetCancelFunc(handle string, cancelFunc context.CancelFunc) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ms, ok := sm.statements[handle]
	if !ok {
		return false
	}
	ms.cancelFunc = cancelFunc
	return true
}

// Cancel cancels a pending or running statement.
func (sm *StatementManager) Cancel(handle string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ms, ok := sm.statements[handle]
	if !ok {
		return fmt.Errorf("%w: %s", dberror.ErrStatementNotFound, handle)
	}
	if ms.Status != StatementStatusRunning && ms.Status != StatementStatusPending {
		return fmt.Errorf("statement %s is not running (status: %s)", handle, ms.Status)
	}
	if ms.cancelFunc != nil {
		ms.cancelFunc()
	}
	ms.Status = StatementStatusCanceled
	now := sm.now()
	ms.CompletedOn = &now
	return nil
}

// Delete removes a statement and closes its adapter.
func (sm *StatementManager) Delete(handle string) error {
	sm.mu.Lock()
	ms, ok := sm.statements[handle]
	delete(sm.statements, handle)
	sm.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", dberror.ErrStatementNotFound, handle)
	}
	return ms.close()
}

func (ms *ManagedStatement) close() error {
	ms.use.Lock()
	defer ms.use.Unlock()
	return ms.Adapter.Close()
}

// Close stops the cleanup loop and closes every managed adapter.
func (sm *StatementManager) Close() error {
	sm.closeOnce.Do(func() { close(sm.done) })

	sm.mu.Lock()
	statements := sm.statements
	sm.statements = make(map[string]*ManagedStatement)
	sm.mu.Unlock()

	for _, ms := range statements {
		_ = ms.close()
	}
	return nil
}

// cleanupLoop periodically closes expired statements.
func (sm *StatementManager) cleanupLoop() {
	interval := sm.ttl / 2
	if interval <= 0 {
		interval = sm.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			return
		case <-ticker.C:
			sm.cleanup()
		}
	}
}

// cleanup closes statements not used for longer than the TTL.
func (sm *StatementManager) cleanup() {
	sm.mu.Lock()
	now := sm.now()
	var expired []*ManagedStatement
	for handle, ms := range sm.statements {
		if now.Sub(ms.LastUsed) > sm.ttl {
			expired = append(expired, ms)
			delete(sm.statements, handle)
		}
	}
	sm.mu.Unlock()

	for _, ms := range expired {
		_ = ms.close()
	}
}

func generateStatementHandle() string {
	return uuid.NewString()
}
