// Package store keeps an in-memory snapshot of the remote posts collection
// consistent across load, create and delete without reloading the whole
// collection after every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/smileynet/postdeck/internal/post"
	"github.com/smileynet/postdeck/internal/remote"
)

// Error taxonomy. Operation failures are *OpError values that match one of
// these with errors.Is and still unwrap to the underlying cause.
var (
	ErrLoadFailed   = errors.New("store: load failed")
	ErrCreateFailed = errors.New("store: create failed")
	ErrDeleteFailed = errors.New("store: delete failed")
	ErrNotFound     = errors.New("store: post not found")
)

// errDiscarded is returned inside a flight whose callers all gave up.
var errDiscarded = errors.New("store: result discarded")

// errRemovedDuringFetch is the cause reported when a post was deleted while
// its single-item fetch was in flight.
var errRemovedDuringFetch = errors.New("store: post deleted while fetching")

// collectionKey identifies the posts collection in the in-flight registry.
const collectionKey = "posts"

// OpError describes a failed store operation.
type OpError struct {
	Op   string  // "load", "get", "create" or "delete"
	ID   post.ID // zero for collection-wide operations
	Kind error   // one of the Err* sentinels
	Err  error   // underlying cause
}

func (e *OpError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("store: %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// LoadState is the lifecycle of the collection as a whole.
type LoadState int

const (
	StateIdle    LoadState = iota // Never loaded.
	StateLoading                  // A load is in flight.
	StateLoaded                   // Last load succeeded.
	StateError                    // Last load failed; the previous snapshot is kept.
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Remote is the source of truth the store synchronizes with.
// Get must return an error matching remote.ErrNotFound for missing posts.
type Remote interface {
	List(ctx context.Context) ([]post.Post, error)
	Get(ctx context.Context, id post.ID) (post.Post, error)
	Create(ctx context.Context, d post.Draft) (post.Post, error)
	Delete(ctx context.Context, id post.ID) error
}

// Store owns the collection snapshot and all pending-mutation markers.
// It is safe for concurrent use; remote calls are made without holding the lock.
type Store struct {
	remote       Remote
	defaultOwner int
	staleAfter   time.Duration
	logger       *slog.Logger
	now          func() time.Time

	flights singleflight.Group

	mu       sync.Mutex
	snapshot []post.Post
	details  map[post.ID]post.Post
	state    LoadState
	loadErr  error
	loadedAt time.Time
	deleting map[post.ID]int
	creating int

	// removed counts successful deletes per id. A single-item fetch that
	// started under an older count is never cached.
	removed map[post.ID]uint64

	// While a collection load is in flight, settled mutations are journaled
	// and replayed onto the fetched list before it replaces the snapshot.
	loading bool
	journal []reconcileFunc
	waiters int
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultOwner sets the owner ID used for drafts that leave it unset.
func WithDefaultOwner(id int) Option {
	return func(s *Store) { s.defaultOwner = id }
}

// WithStaleAfter sets how long Ensure trusts a loaded snapshot.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) { s.staleAfter = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store backed by r.
func New(r Remote, opts ...Option) *Store {
	s := &Store{
		remote:       r,
		defaultOwner: 1,
		staleAfter:   5 * time.Minute,
		now:          time.Now,
		details:      make(map[post.ID]post.Post),
		deleting:     make(map[post.ID]int),
		removed:      make(map[post.ID]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Load fetches the whole collection and replaces the snapshot.
// Concurrent calls share one request. On failure the previous snapshot is
// kept and the returned error matches ErrLoadFailed. If ctx ends before the
// request completes, Load returns ctx.Err() and, when no other caller is
// waiting, the result is discarded.
func (s *Store) Load(ctx context.Context) ([]post.Post, error) {
	for {
		posts, err := s.join(ctx)
		// A flight discarded just as this caller joined it; start a new one.
		if errors.Is(err, errDiscarded) {
			continue
		}
		return posts, err
	}
}

// join waits on the collection flight, starting one if none is running.
func (s *Store) join(ctx context.Context) ([]post.Post, error) {
	s.mu.Lock()
	s.waiters++
	s.mu.Unlock()

	ch := s.flights.DoChan(collectionKey, func() (any, error) {
		return s.fetchAll()
	})

	select {
	case res := <-ch:
		s.leave()
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]post.Post)), nil
	case <-ctx.Done():
		s.leave()
		return nil, ctx.Err()
	}
}

func (s *Store) leave() {
	s.mu.Lock()
	s.waiters--
	s.mu.Unlock()
}

// fetchAll runs once per flight.
func (s *Store) fetchAll() ([]post.Post, error) {
	s.mu.Lock()
	prev := s.state
	s.state = StateLoading
	s.loading = true
	s.journal = nil
	s.mu.Unlock()

	// Callers may abandon the flight; the request itself is bounded by the
	// remote's own timeout.
	posts, err := s.remote.List(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	journal := s.journal
	s.journal = nil
	s.loading = false

	if s.waiters == 0 {
		s.state = prev
		s.logger.Debug("load result discarded, no callers left")
		return nil, errDiscarded
	}

	if err != nil {
		s.state = StateError
		s.loadErr = &OpError{Op: "load", Kind: ErrLoadFailed, Err: err}
		s.logger.Warn("load failed", "err", err)
		return nil, s.loadErr
	}

	for _, fn := range journal {
		posts = fn(posts)
	}
	s.snapshot = dedupe(posts)
	s.state = StateLoaded
	s.loadErr = nil
	s.loadedAt = s.now()
	s.logger.Debug("loaded", "count", len(s.snapshot), "replayed", len(journal))
	return clone(s.snapshot), nil
}

// Ensure returns the snapshot without a network call when it was loaded
// less than the stale-after window ago, and loads otherwise.
func (s *Store) Ensure(ctx context.Context) ([]post.Post, error) {
	s.mu.Lock()
	fresh := s.state == StateLoaded && s.now().Sub(s.loadedAt) < s.staleAfter
	snap := clone(s.snapshot)
	s.mu.Unlock()
	if fresh {
		return snap, nil
	}
	return s.Load(ctx)
}

// Create validates and submits d. The created post is prepended to the
// snapshot. On failure the snapshot is untouched and the error matches
// ErrCreateFailed; validation errors are returned unchanged.
func (s *Store) Create(ctx context.Context, d post.Draft) (post.Post, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return post.Post{}, err
	}
	if d.OwnerID == 0 {
		d.OwnerID = s.defaultOwner
	}

	s.mu.Lock()
	s.creating++
	s.mu.Unlock()

	p, err := s.remote.Create(ctx, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating--
	if err != nil {
		s.logger.Warn("create failed", "err", err)
		return post.Post{}, &OpError{Op: "create", Kind: ErrCreateFailed, Err: err}
	}

	s.reconcileLocked(func(posts []post.Post) []post.Post { return prepend(posts, p) })
	delete(s.details, p.ID)
	s.logger.Debug("created", "id", p.ID)
	return p, nil
}

// Remove deletes the post with the given ID. While the request is in flight
// IsDeleting(id) reports true. On success the post leaves the snapshot (a
// missing ID is not an error). On failure the snapshot is untouched and the
// error matches ErrDeleteFailed.
func (s *Store) Remove(ctx context.Context, id post.ID) error {
	s.mu.Lock()
	s.deleting[id]++
	s.mu.Unlock()

	err := s.remote.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleting[id]--; s.deleting[id] <= 0 {
		delete(s.deleting, id)
	}
	if err != nil {
		s.logger.Warn("delete failed", "id", id, "err", err)
		return &OpError{Op: "delete", ID: id, Kind: ErrDeleteFailed, Err: err}
	}

	s.reconcileLocked(func(posts []post.Post) []post.Post { return without(posts, id) })
	delete(s.details, id)
	s.removed[id]++
	s.logger.Debug("deleted", "id", id)
	return nil
}

// reconcileLocked applies fn to the snapshot and journals it for an
// in-flight load. s.mu must be held.
func (s *Store) reconcileLocked(fn reconcileFunc) {
	s.snapshot = fn(s.snapshot)
	if s.loading {
		s.journal = append(s.journal, fn)
	}
}

// fetched is the value of a single-item flight.
type fetched struct {
	post post.Post
	gen  uint64 // removed[id] when the fetch started
}

// GetByID returns the post from the snapshot when present. Otherwise it
// fetches it once (concurrent callers share the request) and caches it for
// later lookups. A missing post yields an error matching ErrNotFound, as
// does a post deleted through the store while its fetch was in flight.
func (s *Store) GetByID(ctx context.Context, id post.ID) (post.Post, error) {
	if p, ok := s.Lookup(id); ok {
		return p, nil
	}

	ch := s.flights.DoChan(collectionKey+"/"+id.String(), func() (any, error) {
		s.mu.Lock()
		gen := s.removed[id]
		s.mu.Unlock()
		p, err := s.remote.Get(context.Background(), id)
		return fetched{post: p, gen: gen}, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return post.Post{}, ctx.Err()
	}
	if ctx.Err() != nil {
		return post.Post{}, ctx.Err()
	}

	if res.Err != nil {
		kind := ErrLoadFailed
		if errors.Is(res.Err, remote.ErrNotFound) {
			kind = ErrNotFound
		}
		return post.Post{}, &OpError{Op: "get", ID: id, Kind: kind, Err: res.Err}
	}

	f := res.Val.(fetched)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed[id] != f.gen {
		s.logger.Debug("fetch result discarded, post deleted", "id", id)
		return post.Post{}, &OpError{Op: "get", ID: id, Kind: ErrNotFound, Err: errRemovedDuringFetch}
	}
	if s.deleting[id] == 0 {
		s.details[id] = f.post
	}
	return f.post, nil
}

// Lookup returns a cached post without any network call.
func (s *Store) Lookup(id post.ID) (post.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.snapshot {
		if p.ID == id {
			return p, true
		}
	}
	p, ok := s.details[id]
	return p, ok
}

// Snapshot returns a copy of the current collection snapshot.
func (s *Store) Snapshot() []post.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.snapshot)
}

// State returns the collection load state.
func (s *Store) State() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed load, or nil after a success.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// LoadedAt returns when the snapshot was last replaced by a load.
func (s *Store) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

// IsDeleting reports whether a delete of id is in flight.
func (s *Store) IsDeleting(id post.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleting[id] > 0
}

// Creating reports whether any create is in flight.
func (s *Store) Creating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creating > 0
}
