// Package snapshot binds point-in-time index readers to transactions.
//
// A Manager owns the transaction lifecycle. A Provider hands out the
// snapshot of one view for the transaction found in the request context:
//
//	mgr := snapshot.NewManager(logger)
//	txID, _ := mgr.Begin(ctx)
//	ctx = txcontext.WithTransactionID(ctx, txID)
//	snap, _ := provider.FindOrCreate(ctx)
//	reader := snap.Reader() // immutable for the rest of the call
//	...
//	mgr.Commit(ctx, txID) // releases every snapshot of the transaction
//
// Snapshots are never released individually.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TransactionState represents the lifecycle stage of a transaction.
type TransactionState string

const (
	// TransactionActive indicates an open transaction.
	TransactionActive TransactionState = "active"

	// TransactionCommitted indicates a successfully completed transaction.
	TransactionCommitted TransactionState = "committed"

	// TransactionAborted indicates a rolled-back transaction.
	TransactionAborted TransactionState = "aborted"
)

var (
	// ErrNoTransaction is returned when the context carries no transaction id.
	ErrNoTransaction = errors.New("no transaction in context")

	// ErrTransactionNotFound is returned for unknown transaction ids.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionEnded is returned when binding a snapshot to a committed
	// or aborted transaction.
	ErrTransactionEnded = errors.New("transaction already ended")
)

// Manager tracks transactions and the snapshots bound to them.
// Safe for concurrent use.
type Manager struct {
	logger *slog.Logger

	mu  sync.Mutex
	txs map[string]*transaction

	onRelease func(n int)
}

type transaction struct {
	state     TransactionState
	started   time.Time
	snapshots map[string]*Snapshot
}

// NewManager creates a manager. A nil logger uses slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger, txs: make(map[string]*transaction)}
}

// OnRelease registers fn to be called with the number of snapshots released
// when a transaction ends.
func (m *Manager) OnRelease(fn func(n int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRelease = fn
}

// Begin starts a transaction and returns its id.
func (m *Manager) Begin(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.txs[id] = &transaction{
		state:     TransactionActive,
		started:   time.Now(),
		snapshots: make(map[string]*Snapshot),
	}
	m.mu.Unlock()
	m.logger.Debug("Transaction started", "tx_id", id)
	return id, nil
}

// Commit ends a transaction successfully and releases its snapshots.
// Idempotent for committed transactions.
func (m *Manager) Commit(ctx context.Context, txID string) error {
	return m.end(txID, TransactionCommitted)
}

// Abort rolls a transaction back and releases its snapshots.
// Idempotent for aborted transactions.
func (m *Manager) Abort(ctx context.Context, txID string) error {
	return m.end(txID, TransactionAborted)
}

func (m *Manager) end(txID string, state TransactionState) error {
	m.mu.Lock()
	tx, ok := m.txs[txID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
	}
	if tx.state == state {
		m.mu.Unlock()
		return nil
	}
	if tx.state != TransactionActive {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrTransactionEnded, txID, tx.state)
	}
	tx.state = state
	released := tx.snapshots
	tx.snapshots = nil
	onRelease := m.onRelease
	m.mu.Unlock()

	for _, s := range released {
		s.release()
	}
	if onRelease != nil && len(released) > 0 {
		onRelease(len(released))
	}
	m.logger.Debug("Transaction ended",
		"tx_id", txID,
		"state", state,
		"snapshots", len(released),
		"duration", time.Since(tx.started))
	return nil
}

// Status returns the state of a transaction.
// Returns (state, true) if the transaction exists, ("", false) otherwise.
func (m *Manager) Status(ctx context.Context, txID string) (TransactionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txID]
	if !ok {
		return "", false
	}
	return tx.state, true
}

// Forget drops the record of an ended transaction. Active transactions are
// kept.
func (m *Manager) Forget(txID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.txs[txID]; ok && tx.state != TransactionActive {
		delete(m.txs, txID)
	}
}

// Active returns the number of active transactions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tx := range m.txs {
		if tx.state == TransactionActive {
			n++
		}
	}
	return n
}

// Snapshots returns the number of snapshots bound to active transactions.
func (m *Manager) Snapshots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tx := range m.txs {
		n += len(tx.snapshots)
	}
	return n
}

func (m *Manager) lookup(txID, view string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.active(txID)
	if err != nil {
		return nil, err
	}
	return tx.snapshots[view], nil
}

// bind associates s with the transaction unless a snapshot of the same view
// is already bound, in which case the bound one is returned.
func (m *Manager) bind(txID string, s *Snapshot) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, err := m.active(txID)
	if err != nil {
		return nil, err
	}
	if existing, ok := tx.snapshots[s.view]; ok {
		return existing, nil
	}
	tx.snapshots[s.view] = s
	return s, nil
}

func (m *Manager) active(txID string) (*transaction, error) {
	tx, ok := m.txs[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
	}
	if tx.state != TransactionActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrTransactionEnded, txID, tx.state)
	}
	return tx, nil
}
