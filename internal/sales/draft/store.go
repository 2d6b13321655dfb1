package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bayala/bayala-stock/internal/catalog"
	"github.com/bayala/bayala-stock/internal/sales/orders"
)

// ErrNotFound is returned for unknown or swept drafts.
var ErrNotFound = errors.New("draft not found")

// CatalogSource provides the catalog snapshot a new draft prices against.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Store keeps open drafts in memory keyed by id.
type Store struct {
	mu       sync.RWMutex
	drafts   map[uuid.UUID]*Draft
	catalogs CatalogSource
	deps     *Deps
	idleTTL  time.Duration
}

// NewStore creates a store. Drafts untouched for idleTTL are swept; zero
// disables sweeping.
func NewStore(catalogs CatalogSource, deps Deps, idleTTL time.Duration) *Store {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Store{
		drafts:   make(map[uuid.UUID]*Draft),
		catalogs: catalogs,
		deps:     &deps,
		idleTTL:  idleTTL,
	}
}

// Create opens a draft for mode with one empty line.
func (s *Store) Create(ctx context.Context, mode orders.Mode) (*Draft, error) {
	cat, err := s.catalogs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	d := newDraft(uuid.New(), mode, cat, s.deps)

	s.mu.Lock()
	s.drafts[d.id] = d
	s.mu.Unlock()

	s.deps.Logger.Debug("draft opened", slog.String("draft_id", d.id.String()), slog.String("mode", string(mode.Kind)))
	return d, nil
}

// Get returns the draft with id.
func (s *Store) Get(id uuid.UUID) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// Delete discards a draft. Busy drafts cannot be discarded.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return ErrNotFound
	}
	if d.State().Busy() {
		return ErrDraftBusy
	}
	delete(s.drafts, id)
	return nil
}

// Len returns the number of open drafts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// Sweep removes drafts idle since before now minus the idle TTL and
// returns how many were removed. Busy drafts are kept.
func (s *Store) Sweep(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, d := range s.drafts {
		if d.State().Busy() || !d.lastTouched().Before(cutoff) {
			continue
		}
		delete(s.drafts, id)
		removed++
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context) {
	if s.idleTTL <= 0 {
		return
	}
	interval := s.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.deps.now()); n > 0 {
				s.deps.Logger.Info("swept idle drafts", slog.Int("count", n))
			}
		}
	}
}
