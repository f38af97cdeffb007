package coach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-coach/internal/rules"
	"github.com/park285/chess-coach/internal/sessionstore"
)

func newRedisSnapshotStore(t *testing.T) *sessionstore.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return sessionstore.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
}

func TestManagerRestoresSessionFromSnapshot(t *testing.T) {
	store := newRedisSnapshotStore(t)
	deps := Deps{Advisor: fixedAdvice("Nf6"), Store: store}

	first := NewManager(deps)
	s := first.Create()
	if err := s.StartMatch(ModeHumanVsHuman, rules.Black); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	waitView(t, s, "awaiting", phaseIs(PhaseAwaitingHumanMove))
	if res, err := s.ApplyHumanMove("d2", "d4"); res != MoveApplied {
		t.Fatalf("move: %s, %v", res, err)
	}
	waitView(t, s, "awaiting", phaseIs(PhaseAwaitingHumanMove))
	fen := s.FEN()

	// a fresh process sees only the store
	second := NewManager(deps)
	defer second.Close(context.Background())
	restored, err := second.Get(context.Background(), s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if restored.FEN() != fen {
		t.Fatalf("restored fen %q != %q", restored.FEN(), fen)
	}
	v := waitView(t, restored, "restored advice", phaseIs(PhaseAwaitingHumanMove))
	if v.Match == nil || v.Match.Mode != ModeHumanVsHuman || v.Match.HumanSide != rules.Black {
		t.Fatalf("match config lost: %+v", v.Match)
	}
	again, err := second.Get(context.Background(), s.ID())
	if err != nil || again != restored {
		t.Fatalf("second Get returned a different session: %v", err)
	}

	if !first.Remove(s.ID()) {
		t.Fatalf("Remove returned false")
	}
	if _, err := store.Load(context.Background(), s.ID()); !errors.Is(err, sessionstore.ErrNotFound) {
		t.Fatalf("snapshot survived removal: %v", err)
	}
	if err := first.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestManagerRestoreResumesBotTurn(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	adv := newBlockingAdvisor()
	m := NewManager(Deps{Advisor: adv, Store: store})
	defer m.Close(context.Background())

	snap := &sessionstore.Snapshot{SessionID: "6f1c1a52-7e37-4a53-9d0f-0a3b8fb4e5a1", Mode: "pve", HumanSide: "white", MovesUCI: []string{"e2e4"}}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s, err := m.Get(context.Background(), snap.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := s.Phase(); got != PhaseRequestingBotMove {
		t.Fatalf("phase = %s", got)
	}
	adv.next(t).respond("**Best Move:** e5", nil)
	adv.next(t).respond("**Best Move:** Nf3", nil)
	v := waitView(t, s, "human turn", phaseIs(PhaseAwaitingHumanMove))
	if len(v.Moves) != 2 {
		t.Fatalf("moves = %v", v.Moves)
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(Deps{Advisor: fixedAdvice("e4"), Store: sessionstore.NewMemoryStore()})
	if _, err := m.Get(context.Background(), "not-a-uuid"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("bad id: %v", err)
	}
	if _, err := m.Get(context.Background(), "0d7f0f8e-4a8a-4d9c-b7b5-5b8f0e0c1a2b"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestManagerRejectsCorruptSnapshot(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	id := "9a1e4c9e-2b7d-4f43-8d4c-6a0b1c2d3e4f"
	_ = store.Save(context.Background(), &sessionstore.Snapshot{SessionID: id, Mode: "pvp", HumanSide: "white", MovesUCI: []string{"e2e5"}})
	m := NewManager(Deps{Advisor: fixedAdvice("e4"), Store: store})
	if _, err := m.Get(context.Background(), id); !errors.Is(err, ErrSessionCorrupted) {
		t.Fatalf("expected ErrSessionCorrupted, got %v", err)
	}
}

func TestManagerConcurrentRestoreAsksAdvisorOnce(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	id := "3c5d7e9f-1a2b-4c3d-8e4f-5a6b7c8d9e0f"
	if err := store.Save(context.Background(), &sessionstore.Snapshot{SessionID: id, Mode: "pvp", HumanSide: "white", MovesUCI: []string{"e2e4"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	adv := fixedAdvice("e5")
	m := NewManager(Deps{Advisor: adv, Store: store})
	defer m.Close(context.Background())

	const n = 8
	got := make([]*Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get(context.Background(), id)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			got[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("Get %d returned a different session", i)
		}
	}
	got[0].Wait()
	if c := adv.calls(); c != 1 {
		t.Fatalf("advisor calls = %d, want 1", c)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d", m.Len())
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := sessionstore.NewMemoryStore()
	m := NewManager(Deps{Advisor: fixedAdvice("e4"), Store: store, Now: clock.Now})
	defer m.Close(context.Background())

	idle := m.Create()
	busy := m.Create()
	streamed := m.Create()
	_, unsubscribe := streamed.Subscribe()
	defer unsubscribe()

	clock.advance(50 * time.Minute)
	if _, err := m.Get(context.Background(), busy.ID()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := m.Sweep(time.Hour); n != 0 {
		t.Fatalf("evicted %d before ttl", n)
	}

	clock.advance(20 * time.Minute)
	if n := m.Sweep(time.Hour); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, err := m.Get(context.Background(), idle.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle session still reachable: %v", err)
	}
	if _, ok := <-mustSubscribe(idle); ok {
		t.Fatalf("evicted session still streams views")
	}
	for _, s := range []*Session{busy, streamed} {
		if got, err := m.Get(context.Background(), s.ID()); err != nil || got != s {
			t.Fatalf("session %s evicted early: %v", s.ID(), err)
		}
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d", m.Len())
	}
}

func mustSubscribe(s *Session) <-chan View {
	ch, _ := s.Subscribe()
	return ch
}

func TestSweepInterval(t *testing.T) {
	cases := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{24 * time.Hour, time.Minute},
		{2 * time.Minute, 30 * time.Second},
		{time.Second, time.Second},
	}
	for _, c := range cases {
		if got := sweepInterval(c.ttl); got != c.want {
			t.Fatalf("sweepInterval(%v) = %v, want %v", c.ttl, got, c.want)
		}
	}
}
