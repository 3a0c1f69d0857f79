package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hugr-lab/viewsearch/index"
	"github.com/hugr-lab/viewsearch/internal/txcontext"
)

// Mode selects how a Provider acquires a snapshot.
type Mode int

const (
	// FindOrCreate returns the bound snapshot, creating it from the current
	// committed segments if absent.
	FindOrCreate Mode = iota
	// Find returns the bound snapshot or nil.
	Find
	// SyncAndReplace refreshes the bound snapshot to the current committed
	// segments, creating it if absent.
	SyncAndReplace
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Find:
		return "find"
	case FindOrCreate:
		return "find_or_create"
	case SyncAndReplace:
		return "sync_and_replace"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "find":
		return Find, nil
	case "", "find_or_create":
		return FindOrCreate, nil
	case "sync_and_replace":
		return SyncAndReplace, nil
	}
	return 0, fmt.Errorf("unknown snapshot mode %q", s)
}

// Source publishes the latest committed reader of a view. *index.Writer
// implements it.
type Source interface {
	Reader() *index.Reader
}

// Snapshot is the point-in-time handle of one view bound to a transaction.
type Snapshot struct {
	view     string
	txID     string
	reader   atomic.Pointer[index.Reader]
	released atomic.Bool
}

func newSnapshot(view, txID string, r *index.Reader) *Snapshot {
	s := &Snapshot{view: view, txID: txID}
	s.reader.Store(r)
	return s
}

// Reader returns the immutable reader the snapshot currently holds. Callers
// read it once per call; a later SyncAndReplace does not affect readers
// already returned.
func (s *Snapshot) Reader() *index.Reader { return s.reader.Load() }

// View returns the view name.
func (s *Snapshot) View() string { return s.view }

// Transaction returns the id of the owning transaction.
func (s *Snapshot) Transaction() string { return s.txID }

// Released reports whether the owning transaction has ended.
func (s *Snapshot) Released() bool { return s.released.Load() }

func (s *Snapshot) release() { s.released.Store(true) }

// Provider acquires snapshots of one view. Safe for concurrent use.
type Provider struct {
	view    string
	source  Source
	manager *Manager
	logger  *slog.Logger
	group   singleflight.Group
}

// NewProvider creates a provider for view backed by source.
func NewProvider(view string, source Source, manager *Manager, logger *slog.Logger) (*Provider, error) {
	if source == nil {
		return nil, errors.New("snapshot source is required")
	}
	if manager == nil {
		return nil, errors.New("transaction manager is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{view: view, source: source, manager: manager, logger: logger}, nil
}

// View returns the view name.
func (p *Provider) View() string { return p.view }

// Get acquires the snapshot of the context's transaction in mode. In Find
// mode a missing snapshot yields (nil, nil).
func (p *Provider) Get(ctx context.Context, mode Mode) (*Snapshot, error) {
	txID, ok := txcontext.TransactionIDFromContext(ctx)
	if !ok {
		return nil, ErrNoTransaction
	}
	switch mode {
	case Find:
		return p.manager.lookup(txID, p.view)
	case FindOrCreate:
		return p.findOrCreate(txID)
	case SyncAndReplace:
		return p.syncAndReplace(txID)
	}
	return nil, fmt.Errorf("unknown snapshot mode %v", mode)
}

// Find returns the snapshot bound to the context's transaction, or nil.
func (p *Provider) Find(ctx context.Context) (*Snapshot, error) {
	return p.Get(ctx, Find)
}

// FindOrCreate returns the bound snapshot or atomically creates one.
func (p *Provider) FindOrCreate(ctx context.Context) (*Snapshot, error) {
	return p.Get(ctx, FindOrCreate)
}

// SyncAndReplace refreshes the bound snapshot, creating it if absent.
func (p *Provider) SyncAndReplace(ctx context.Context) (*Snapshot, error) {
	return p.Get(ctx, SyncAndReplace)
}

func (p *Provider) findOrCreate(txID string) (*Snapshot, error) {
	if s, err := p.manager.lookup(txID, p.view); err != nil || s != nil {
		return s, err
	}
	v, err, _ := p.group.Do(txID, func() (any, error) {
		s, err := p.manager.bind(txID, newSnapshot(p.view, txID, p.source.Reader()))
		if err != nil {
			return nil, err
		}
		p.logger.Debug("Snapshot created",
			"view", p.view,
			"tx_id", txID,
			"tick", s.Reader().Tick())
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (p *Provider) syncAndReplace(txID string) (*Snapshot, error) {
	s, err := p.findOrCreate(txID)
	if err != nil {
		return nil, err
	}
	latest := p.source.Reader()
	if prev := s.reader.Swap(latest); prev != latest {
		p.logger.Debug("Snapshot refreshed",
			"view", p.view,
			"tx_id", txID,
			"from_tick", prev.Tick(),
			"to_tick", latest.Tick())
	}
	return s, nil
}
