// Package bookmark keeps the user's bookmarked coins and mirrors them into
// durable key-value storage.
package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"cryptoverse/internal/domain"
	"cryptoverse/internal/infra"
)

// Commit describes the outcome of one toggle.
//
// The in-memory collection always reflects the toggle. Persisted reports
// whether the durable mirror was rewritten as well; when it was not, Err holds
// the reason. Seq numbers commits from 1 in the order they were applied.
type Commit struct {
	Seq       uint64
	Bookmark  domain.Bookmark
	Added     bool
	Persisted bool
	Err       error
}

// Store is the authoritative set of bookmarked coins.
type Store struct {
	mu        sync.RWMutex
	bookmarks []domain.Bookmark
	kv        domain.KeyValueStore
	metrics   *infra.Metrics
	logger    *slog.Logger
	seq       uint64 // last applied commit, guarded by mu

	// Subscribers see commits one at a time in Seq order.
	deliverMu sync.Mutex
	turn      *sync.Cond
	delivered uint64

	subMu  sync.Mutex
	subs   map[int]func(Commit)
	nextID int
}

// Open initializes a store from the mirror in kv.
// An absent, unreadable or malformed mirror yields an empty collection.
func Open(ctx context.Context, kv domain.KeyValueStore, metrics *infra.Metrics, logger *slog.Logger) *Store {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		bookmarks: []domain.Bookmark{},
		kv:        kv,
		metrics:   metrics,
		logger:    logger.With("module", "bookmark_store"),
		subs:      make(map[int]func(Commit)),
	}
	s.turn = sync.NewCond(&s.deliverMu)
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	payload, found, err := s.kv.Get(ctx, domain.KeyBookmarks)
	if err != nil {
		s.logger.Warn("Failed to read bookmarks, starting empty", slog.Any("error", err))
		return
	}
	if !found {
		return
	}

	bookmarks, err := Decode(payload)
	if err != nil {
		s.logger.Warn("Malformed bookmarks payload, starting empty", slog.Any("error", err))
		return
	}
	s.bookmarks = bookmarks
	s.logger.Debug("Bookmarks loaded", slog.Int("count", len(bookmarks)))
}

// Toggle removes the bookmark with record's id if present, otherwise appends record.
// The full collection is written to durable storage before Toggle returns.
// The returned error is only set for records that cannot be keyed; storage
// failures are reported through Commit.
func (s *Store) Toggle(ctx context.Context, record domain.Bookmark) (Commit, error) {
	if err := record.Validate(); err != nil {
		return Commit{}, err
	}

	commit := s.commit(ctx, record)
	s.metrics.RecordCommit(commit.Persisted)
	if commit.Err != nil {
		s.logger.Warn("Bookmark change not persisted",
			slog.String("id", record.ID),
			slog.Bool("added", commit.Added),
			slog.Any("error", commit.Err))
	}

	s.deliver(commit)
	return commit, nil
}

// commit performs the mutation and the durable write under one write lock so
// readers see either the whole old or the whole new collection.
func (s *Store) commit(ctx context.Context, record domain.Bookmark) Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	commit := Commit{Seq: s.seq, Bookmark: record}
	if i := domain.IndexOfBookmark(s.bookmarks, record.ID); i >= 0 {
		commit.Bookmark = s.bookmarks[i]
		s.bookmarks = slices.Delete(s.bookmarks, i, i+1)
	} else {
		s.bookmarks = append(s.bookmarks, record)
		commit.Added = true
	}

	payload, err := Encode(s.bookmarks)
	if err != nil {
		commit.Err = fmt.Errorf("encode bookmarks: %w", err)
		return commit
	}
	if err := s.kv.Set(ctx, domain.KeyBookmarks, payload); err != nil {
		commit.Err = fmt.Errorf("write bookmarks: %w", err)
		return commit
	}
	commit.Persisted = true
	return commit
}

// IsBookmarked reports whether id is in the collection.
func (s *Store) IsBookmarked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ContainsBookmark(s.bookmarks, id)
}

// List returns the collection in bookmarking order.
func (s *Store) List() []domain.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.bookmarks)
}

// IDs returns the bookmarked coin ids in bookmarking order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.bookmarks))
	for i, b := range s.bookmarks {
		ids[i] = b.ID
	}
	return ids
}

// Subscribe registers fn to be called after every toggle.
// Calls are serialized in commit order, so fn may read the store but must not
// call Toggle. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Commit)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// deliver waits for every earlier commit to reach subscribers before
// notifying them of this one.
func (s *Store) deliver(commit Commit) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	for s.delivered+1 != commit.Seq {
		s.turn.Wait()
	}
	s.notify(commit)
	s.delivered = commit.Seq
	s.turn.Broadcast()
}

func (s *Store) notify(commit Commit) {
	s.subMu.Lock()
	subs := make([]func(Commit), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(commit)
	}
}

// Close detaches every subscriber. The collection itself stays in durable storage.
func (s *Store) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	clear(s.subs)
}
