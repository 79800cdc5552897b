package dispatch

import (
	"context"
	"sync"
	"time"

	"fleetdesk/backend/metrics"
	"fleetdesk/backend/querycache"
)

// Registry tracks the open boards of this process.
type Registry struct {
	store JobStore
	cache *querycache.Cache
	opts  Options

	mu     sync.Mutex
	boards map[string]*Board
}

func NewRegistry(store JobStore, cache *querycache.Cache, opts Options) *Registry {
	return &Registry{
		store:  store,
		cache:  cache,
		opts:   opts.withDefaults(),
		boards: make(map[string]*Board),
	}
}

// Open creates and loads a board for orgID on date.
func (r *Registry) Open(ctx context.Context, orgID string, date time.Time) (*Board, error) {
	b := NewBoard(orgID, date, r.store, r.cache, r.opts)
	if err := b.Refresh(ctx); err != nil {
		b.Close()
		return nil, err
	}

	r.mu.Lock()
	r.boards[b.ID()] = b
	n := len(r.boards)
	r.mu.Unlock()
	metrics.SetOpenBoards(n)
	return b, nil
}

// Get returns an open board owned by orgID.
func (r *Registry) Get(orgID, id string) (*Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[id]
	if !ok || b.OrganizationID() != orgID {
		return nil, ErrBoardNotFound
	}
	return b, nil
}

func (r *Registry) Close(orgID, id string) error {
	b, err := r.Get(orgID, id)
	if err != nil {
		return err
	}
	r.remove(b)
	return nil
}

func (r *Registry) remove(b *Board) {
	r.mu.Lock()
	delete(r.boards, b.ID())
	n := len(r.boards)
	r.mu.Unlock()
	b.Close()
	metrics.SetOpenBoards(n)
}

// Boards lists the open boards.
func (r *Registry) Boards() []*Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Board, 0, len(r.boards))
	for _, b := range r.boards {
		out = append(out, b)
	}
	return out
}

// Sweep closes boards unused for longer than the idle timeout and reports how many it closed.
func (r *Registry) Sweep() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.opts.Now().Add(-r.opts.IdleTimeout)
	closed := 0
	for _, b := range r.Boards() {
		if b.LastUsed().Before(cutoff) {
			r.remove(b)
			closed++
		}
	}
	return closed
}

func (r *Registry) CloseAll() {
	for _, b := range r.Boards() {
		r.remove(b)
	}
}
