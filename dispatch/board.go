package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/metrics"
	"fleetdesk/backend/models"
	"fleetdesk/backend/querycache"
)

type Options struct {
	// FeedSize bounds the notifications a board keeps.
	FeedSize int
	// IdleTimeout is how long a registry keeps an unused board open.
	IdleTimeout time.Duration
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FeedSize <= 0 {
		o.FeedSize = 50
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Board is one open dispatch view. The snapshot is swapped atomically and
// never edited; the visible arrangement, the in-flight set and the feed are
// guarded by mu. No lock is held across a store call.
type Board struct {
	id    string
	orgID string
	date  time.Time
	key   querycache.Key
	store JobStore
	cache *querycache.Cache
	opts  Options

	snapshot atomic.Pointer[Snapshot]

	mu          sync.Mutex
	lists       map[ListID][]string
	inFlight    map[string]ListID
	drags       map[string]DragToken
	feed        []Notification
	seq         int64
	stale       bool
	closed      bool
	lastUsed    time.Time
	unsubscribe func()
}

// NewBoard creates an empty board for orgID on date. Call Refresh to load it.
func NewBoard(orgID string, date time.Time, store JobStore, cache *querycache.Cache, opts Options) *Board {
	opts = opts.withDefaults()
	date = models.DateOf(date)
	b := &Board{
		id:       uuid.NewString(),
		orgID:    orgID,
		date:     date,
		key:      querycache.JobsKey(orgID, date),
		store:    store,
		cache:    cache,
		opts:     opts,
		lists:    map[ListID][]string{Unassigned: nil},
		inFlight: make(map[string]ListID),
		drags:    make(map[string]DragToken),
		lastUsed: opts.Now(),
	}
	b.unsubscribe = cache.Subscribe(b.key, func(querycache.Key) { b.markStale() })
	return b
}

func (b *Board) ID() string             { return b.id }
func (b *Board) OrganizationID() string { return b.orgID }
func (b *Board) Date() time.Time        { return b.date }
func (b *Board) Key() querycache.Key    { return b.key }

// Snapshot returns the installed snapshot, nil before the first Refresh.
func (b *Board) Snapshot() *Snapshot {
	return b.snapshot.Load()
}

func (b *Board) Stale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

func (b *Board) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Board) LastUsed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

func (b *Board) markStale() {
	b.mu.Lock()
	b.stale = true
	b.mu.Unlock()
}

func (b *Board) fetch(ctx context.Context) (any, error) {
	jobs, err := b.store.ListJobsForDate(ctx, b.orgID, b.date)
	if err != nil {
		return nil, err
	}
	drivers, err := b.store.ListDrivers(ctx, b.orgID)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(b.orgID, b.date, jobs, drivers, b.opts.Now()), nil
}

// Refresh refetches the snapshot and rebuilds the lists from it.
func (b *Board) Refresh(ctx context.Context) error {
	if b.Closed() {
		return ErrBoardClosed
	}
	v, err := b.cache.Refetch(ctx, b.key, b.fetch)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("board", b.id).Warn("Board refresh failed")
		return models.NewPersistenceError("refresh board", err)
	}

	// A result invalidated while loading is not cached; prefer whatever newer
	// value the cache holds and otherwise keep the board marked stale.
	snap := v.(*Snapshot)
	current := true
	if cached, ok := b.cache.Get(b.key); ok {
		snap = cached.(*Snapshot)
	} else {
		current = false
	}
	b.install(snap, current)
	return nil
}

// sync installs the cached snapshot for the board's key, if any.
func (b *Board) sync() bool {
	v, ok := b.cache.Get(b.key)
	if !ok {
		return false
	}
	b.install(v.(*Snapshot), true)
	return true
}

func (b *Board) install(snap *Snapshot, current bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.snapshot.Load() != snap {
		b.snapshot.Store(snap)
		b.lists = arrange(snap, b.lists, b.inFlight)
	}
	b.stale = !current
}

// StartDrag begins a gesture on jobID. A job with a commit in flight cannot be dragged.
func (b *Board) StartDrag(jobID string) (DragToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return DragToken{}, ErrBoardClosed
	}
	b.lastUsed = b.opts.Now()
	if _, busy := b.inFlight[jobID]; busy {
		return DragToken{}, ErrMoveInFlight
	}
	from, ok := locate(b.lists, jobID)
	if !ok {
		return DragToken{}, &models.StaleReferenceError{Entity: "job", ID: jobID}
	}
	token := DragToken{ID: uuid.NewString(), JobID: jobID, From: from}
	b.drags[token.ID] = token
	return token, nil
}

// CancelDrag abandons a gesture without dropping it.
func (b *Board) CancelDrag(tokenID string) {
	b.mu.Lock()
	delete(b.drags, tokenID)
	b.mu.Unlock()
}

// Move is StartDrag followed by Drop.
func (b *Board) Move(ctx context.Context, jobID string, dest Position) (MoveResult, error) {
	token, err := b.StartDrag(jobID)
	if err != nil {
		return MoveResult{}, err
	}
	return b.Drop(ctx, token.ID, dest)
}

// Drop validates the gesture against the current snapshot and then either
// rejects it, treats it as a local no-op or reorder, or commits the new
// driver assignment. Every path leaves exactly one notification.
func (b *Board) Drop(ctx context.Context, tokenID string, dest Position) (MoveResult, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return MoveResult{}, ErrBoardClosed
	}
	b.lastUsed = b.opts.Now()
	token, ok := b.drags[tokenID]
	if !ok {
		b.mu.Unlock()
		return MoveResult{}, models.NewValidationError("token", "unknown or expired drag token")
	}
	delete(b.drags, tokenID)

	snap := b.snapshot.Load()
	jobID := token.JobID
	job, ok := snap.Job(jobID)
	if !ok {
		return b.reject(ctx, snap, &models.StaleReferenceError{Entity: "job", ID: jobID}, jobID)
	}
	if driverID := dest.List.DriverID(); driverID != nil {
		if _, ok := snap.Driver(*driverID); !ok {
			return b.reject(ctx, snap, &models.StaleReferenceError{Entity: "driver", ID: *driverID}, jobID)
		}
	}
	if _, busy := b.inFlight[jobID]; busy {
		n := b.notifyLocked(LevelWarning, fmt.Sprintf("%s is still being saved", jobLabel(snap, jobID)), jobID, OutcomeRejected)
		b.mu.Unlock()
		metrics.MoveOutcome(string(OutcomeRejected))
		return MoveResult{Outcome: OutcomeRejected, From: token.From, To: token.From, Notification: n}, ErrMoveInFlight
	}
	from, ok := locate(b.lists, jobID)
	if !ok {
		return b.reject(ctx, snap, &models.StaleReferenceError{Entity: "job", ID: jobID}, jobID)
	}

	limit := len(b.lists[dest.List])
	if dest.List == from.List {
		limit--
	}
	to := Position{List: dest.List, Index: clamp(dest.Index, limit)}

	switch {
	case to == from:
		n := b.notifyLocked(LevelInfo, "No changes made", jobID, OutcomeNoOp)
		b.mu.Unlock()
		metrics.MoveOutcome(string(OutcomeNoOp))
		return MoveResult{Outcome: OutcomeNoOp, Job: &job, From: from, To: to, Notification: n}, nil
	case to.List == from.List:
		b.lists = move(b.lists, from, to)
		n := b.notifyLocked(LevelInfo, fmt.Sprintf("%s reordered", jobLabel(snap, jobID)), jobID, OutcomeReordered)
		b.mu.Unlock()
		metrics.MoveOutcome(string(OutcomeReordered))
		return MoveResult{Outcome: OutcomeReordered, Job: &job, From: from, To: to, Notification: n}, nil
	}

	b.lists = move(b.lists, from, to)
	b.inFlight[jobID] = to.List
	b.mu.Unlock()

	return b.commit(ctx, job, from, to)
}

// reject is called with mu held and releases it.
func (b *Board) reject(ctx context.Context, snap *Snapshot, cause *models.StaleReferenceError, jobID string) (MoveResult, error) {
	n := b.notifyLocked(LevelError, staleMessage(snap, cause), jobID, OutcomeRejected)
	b.mu.Unlock()
	metrics.MoveOutcome(string(OutcomeRejected))

	logging.FromContext(ctx).WithFields(logrus.Fields{"board": b.id, "job": jobID}).Info(cause.Error())
	if err := b.Refresh(ctx); err != nil && !errors.Is(err, ErrBoardClosed) {
		logging.FromContext(ctx).WithError(err).Warn("Refresh after stale drop failed")
	}
	return MoveResult{Outcome: OutcomeRejected, Notification: n}, cause
}

func (b *Board) commit(ctx context.Context, job models.Job, from, to Position) (MoveResult, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"board": b.id, "job": job.ID, "to": to.List})

	// The assignment is idempotent and completes even if the caller goes away.
	start := time.Now()
	updated, err := b.store.AssignDriver(context.WithoutCancel(ctx), b.orgID, job.ID, to.List.DriverID())
	metrics.ObserveCommit(start, err)

	var stale *models.StaleReferenceError
	switch {
	case errors.Is(err, models.ErrNotFound):
		stale = &models.StaleReferenceError{Entity: "job", ID: job.ID}
	case err != nil:
		errors.As(err, &stale)
	}

	b.mu.Lock()
	delete(b.inFlight, job.ID)
	if b.closed {
		b.mu.Unlock()
		log.Info("Board closed while commit was in flight")
		if err != nil {
			return MoveResult{Outcome: OutcomeFailed, From: from, To: from}, models.NewPersistenceError("assign driver", err)
		}
		b.cache.Invalidate(ctx, b.key)
		return MoveResult{Outcome: OutcomeCommitted, Job: &updated, From: from, To: to}, nil
	}

	if err != nil {
		if cur, ok := locate(b.lists, job.ID); ok {
			limit := len(b.lists[from.List])
			if cur.List == from.List {
				limit--
			}
			b.lists = move(b.lists, cur, Position{List: from.List, Index: clamp(from.Index, limit)})
		}
		snap := b.snapshot.Load()

		if stale != nil {
			n := b.notifyLocked(LevelError, staleMessage(snap, stale), job.ID, OutcomeRejected)
			b.mu.Unlock()
			metrics.MoveOutcome(string(OutcomeRejected))
			log.WithError(err).Info("Assignment target vanished; rolled back")
			if rerr := b.Refresh(ctx); rerr != nil && !errors.Is(rerr, ErrBoardClosed) {
				log.WithError(rerr).Warn("Refresh after stale commit failed")
			}
			return MoveResult{Outcome: OutcomeRejected, From: from, To: from, Notification: n}, stale
		}

		n := b.notifyLocked(LevelError, fmt.Sprintf("Could not move %s. The change was undone, please try again.", jobLabel(snap, job.ID)), job.ID, OutcomeFailed)
		b.mu.Unlock()
		metrics.MoveOutcome(string(OutcomeFailed))
		log.WithError(err).Error("Assignment commit failed; rolled back")
		if !models.IsPersistence(err) {
			err = models.NewPersistenceError("assign driver", err)
		}
		return MoveResult{Outcome: OutcomeFailed, From: from, To: from, Notification: n}, err
	}

	snap := b.snapshot.Load()
	n := b.notifyLocked(LevelSuccess, successMessage(snap, job.ID, to.List), job.ID, OutcomeCommitted)
	b.mu.Unlock()
	metrics.MoveOutcome(string(OutcomeCommitted))

	b.cache.Invalidate(ctx, b.key)
	if rerr := b.Refresh(ctx); rerr != nil && !errors.Is(rerr, ErrBoardClosed) {
		log.WithError(rerr).Warn("Refresh after commit failed; board stays stale")
	}
	return MoveResult{Outcome: OutcomeCommitted, Job: &updated, From: from, To: to, Notification: n}, nil
}

func (b *Board) notifyLocked(level Level, message, jobID string, outcome Outcome) Notification {
	b.seq++
	n := Notification{Seq: b.seq, Level: level, Message: message, JobID: jobID, Outcome: outcome, At: b.opts.Now()}
	b.feed = append(b.feed, n)
	if over := len(b.feed) - b.opts.FeedSize; over > 0 {
		b.feed = append([]Notification(nil), b.feed[over:]...)
	}
	return n
}

// Notifications returns feed entries with a sequence number above after.
func (b *Board) Notifications(after int64) []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, 0, len(b.feed))
	for _, n := range b.feed {
		if n.Seq > after {
			out = append(out, n)
		}
	}
	return out
}

// JobIDs returns the ordered job ids of one list.
func (b *Board) JobIDs(list ListID) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lists[list]...)
}

// InFlight reports whether jobID has a commit outstanding.
func (b *Board) InFlight(jobID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inFlight[jobID]
	return ok
}

// CheckPartition verifies that every snapshot job is in exactly one list and
// that no list holds a job outside the snapshot.
func (b *Board) CheckPartition() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snapshot.Load()

	seen := make(map[string]ListID)
	for list, ids := range b.lists {
		for _, id := range ids {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("job %s appears in %s and %s", id, prev, list)
			}
			if _, ok := snap.Job(id); !ok {
				return fmt.Errorf("job %s in %s is not in the snapshot", id, list)
			}
			seen[id] = list
		}
	}
	if snap == nil {
		return nil
	}
	for _, j := range snap.Jobs {
		if _, ok := seen[j.ID]; !ok {
			return fmt.Errorf("job %s is missing from every list", j.ID)
		}
	}
	return nil
}

// Close tears the board down. A commit still in flight completes in the
// datastore, but nothing is applied to a closed board afterwards.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.drags = make(map[string]DragToken)
	unsubscribe := b.unsubscribe
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func jobLabel(snap *Snapshot, jobID string) string {
	if j, ok := snap.Job(jobID); ok && j.JobNumber != "" {
		return j.JobNumber
	}
	return "Job " + jobID
}

func listLabel(snap *Snapshot, list ListID) string {
	id := list.DriverID()
	if id == nil {
		return "Unassigned"
	}
	if d, ok := snap.Driver(*id); ok && d.Name != "" {
		return d.Name
	}
	return "driver " + *id
}

func successMessage(snap *Snapshot, jobID string, to ListID) string {
	if to == Unassigned {
		return fmt.Sprintf("%s moved to Unassigned", jobLabel(snap, jobID))
	}
	return fmt.Sprintf("%s assigned to %s", jobLabel(snap, jobID), listLabel(snap, to))
}

func staleMessage(snap *Snapshot, cause *models.StaleReferenceError) string {
	if cause.Entity == "driver" {
		return fmt.Sprintf("Driver %s is no longer available. The board has been refreshed.", cause.ID)
	}
	return fmt.Sprintf("%s is no longer on this board. The board has been refreshed.", jobLabel(snap, cause.ID))
}
