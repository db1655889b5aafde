package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingStore wraps MemoryStore with per-operation error injection and
// call counting.
type recordingStore struct {
	*MemoryStore

	mu        sync.Mutex
	calls     map[string]int
	findErr   error
	addErr    error
	updateErr error
	removeErr error
	rewriteID string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore(), calls: make(map[string]int)}
}

func (s *recordingStore) record(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *recordingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *recordingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *recordingStore) Find(ctx context.Context, id string) (Authenticator, bool, error) {
	s.record("find")
	if s.findErr != nil {
		return Authenticator{}, false, s.findErr
	}
	return s.MemoryStore.Find(ctx, id)
}

func (s *recordingStore) Add(ctx context.Context, a Authenticator) (Authenticator, error) {
	s.record("add")
	if s.addErr != nil {
		return Authenticator{}, s.addErr
	}
	stored, err := s.MemoryStore.Add(ctx, a)
	if err == nil && s.rewriteID != "" {
		stored.ID = s.rewriteID
	}
	return stored, err
}

func (s *recordingStore) Update(ctx context.Context, a Authenticator) (Authenticator, error) {
	s.record("update")
	if s.updateErr != nil {
		return Authenticator{}, s.updateErr
	}
	return s.MemoryStore.Update(ctx, a)
}

func (s *recordingStore) Remove(ctx context.Context, id string) error {
	s.record("remove")
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.MemoryStore.Remove(ctx, id)
}

// sequenceIDs hands out ids in order, then fails.
type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
}

func (g *sequenceIDs) Generate(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return "", errExhausted
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

var (
	errExhausted = errors.New("id generator exhausted")
	errBackend   = errors.New("backend unavailable")
)

var testLogin = LoginInfo{ProviderID: "credentials", ProviderKey: "alice@example.com"}
