package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/park285/wordle-duel/internal/session"
)

func TestQuickMatchScenario(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.JoinOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("JoinOrCreate(alice): %v", err)
	}
	if !a.Pending || a.Status != session.StatusPending {
		t.Fatalf("first caller should get a pending marker: %+v", a)
	}
	chk, err := m.CheckOpponentJoined(ctx, a.GameID, "alice")
	if err != nil || !chk.Pending {
		t.Fatalf("CheckOpponentJoined before pairing: %+v %v", chk, err)
	}

	b, err := m.JoinOrCreate(ctx, "bob")
	if err != nil {
		t.Fatalf("JoinOrCreate(bob): %v", err)
	}
	if b.Pending || b.GameID != a.GameID || b.OpponentID != "alice" {
		t.Fatalf("bob should be paired with alice: %+v", b)
	}
	chk, err = m.CheckOpponentJoined(ctx, a.GameID, "alice")
	if err != nil || chk.Pending || chk.OpponentID != "bob" || chk.Status != session.StatusStarted {
		t.Fatalf("CheckOpponentJoined after pairing: %+v %v", chk, err)
	}
	// the second player is not the one polling for an opponent
	chk, err = m.CheckOpponentJoined(ctx, a.GameID, "bob")
	if err != nil || !chk.Pending {
		t.Fatalf("CheckOpponentJoined(bob): %+v %v", chk, err)
	}
}

func TestJoinOrCreateRetryReturnsSameSession(t *testing.T) {
	run := func(t *testing.T, m *Manager, st session.Store) {
		ctx := context.Background()
		first, err := m.JoinOrCreate(ctx, "alice")
		if err != nil {
			t.Fatalf("JoinOrCreate: %v", err)
		}
		retry, err := m.JoinOrCreate(ctx, "alice")
		if err != nil {
			t.Fatalf("JoinOrCreate retry: %v", err)
		}
		if retry.GameID != first.GameID || !retry.Pending {
			t.Fatalf("retry opened another session: first=%s retry=%+v", first.GameID, retry)
		}
		if s := mustLoad(t, st, first.GameID); s.Player2.Name != "" {
			t.Fatalf("own session claimed: %+v", s)
		}

		b, err := m.JoinOrCreate(ctx, "bob")
		if err != nil {
			t.Fatalf("JoinOrCreate(bob): %v", err)
		}
		if b.Pending || b.GameID != first.GameID || b.OpponentID != "alice" {
			t.Fatalf("bob should pair into alice's session: %+v", b)
		}
		chk, err := m.CheckOpponentJoined(ctx, first.GameID, "alice")
		if err != nil || chk.Pending || chk.OpponentID != "bob" {
			t.Fatalf("alice still waiting: %+v %v", chk, err)
		}
		left, err := st.FindOne(ctx, session.Filter{Statuses: []session.Status{session.StatusPending}})
		if err != nil || left != nil {
			t.Fatalf("orphaned pending session: %+v %v", left, err)
		}
	}
	t.Run("memory", func(t *testing.T) {
		m, st := newTestManager(t)
		run(t, m, st)
	})
	t.Run("redis", func(t *testing.T) {
		m, st := newRedisTestManager(t)
		run(t, m, st)
	})
}

func TestJoinGameResumesOwnQueueSession(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	first, err := m.JoinOrCreate(ctx, "alice")
	if err != nil {
		t.Fatalf("JoinOrCreate: %v", err)
	}

	done := make(chan *GameView, 1)
	go func() {
		v, err := m.JoinGame(ctx, "alice")
		if err != nil {
			t.Errorf("JoinGame: %v", err)
		}
		done <- v
	}()
	time.Sleep(20 * time.Millisecond)
	b, err := m.JoinOrCreate(ctx, "bob")
	if err != nil || b.GameID != first.GameID {
		t.Fatalf("bob=%+v err=%v", b, err)
	}
	v := <-done
	if v == nil || v.GameID != first.GameID || v.OpponentID != "bob" {
		t.Fatalf("alice view=%+v", v)
	}
	if s := mustLoad(t, st, first.GameID); s.Status != session.StatusStarted {
		t.Fatalf("status=%s", s.Status)
	}
}

func TestCheckOpponentJoinedUnknownGame(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.CheckOpponentJoined(context.Background(), "missing", "alice"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestJoinRejectsEmptyUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.JoinOrCreate(ctx, "  "); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
	if _, err := m.JoinGame(ctx, ""); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
	if _, err := m.CreateSolo(ctx, ""); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func testConcurrentClaims(t *testing.T, m *Manager, st session.Store) {
	ctx := context.Background()
	seed, err := m.JoinOrCreate(ctx, "host")
	if err != nil {
		t.Fatalf("JoinOrCreate(host): %v", err)
	}
	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			v, err := m.JoinOrCreate(ctx, user)
			if err != nil {
				t.Errorf("JoinOrCreate(%s): %v", user, err)
				return
			}
			if v.GameID == seed.GameID && !v.Pending {
				mu.Lock()
				winners = append(winners, user)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if len(winners) != 1 {
		t.Fatalf("expected exactly one claim of the seeded session, got %v", winners)
	}
	s := mustLoad(t, st, seed.GameID)
	if s.Status != session.StatusStarted || s.Player2.Name != winners[0] {
		t.Fatalf("stored session disagrees with claim: %+v", s)
	}
}

func TestConcurrentClaimsAtMostOne(t *testing.T) {
	m, st := newTestManager(t)
	testConcurrentClaims(t, m, st)
}

func TestConcurrentClaimsAtMostOneRedis(t *testing.T) {
	m, st := newRedisTestManager(t)
	testConcurrentClaims(t, m, st)
}

func TestJoinGameTimeoutCancelsSession(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	start := time.Now()
	_, err := m.JoinGame(ctx, "alice")
	if !errors.Is(err, ErrJoinTimeout) {
		t.Fatalf("expected ErrJoinTimeout, got %v", err)
	}
	if time.Since(start) < m.opts.JoinTimeout {
		t.Fatalf("returned before the join timeout")
	}
	s, err := st.FindOne(ctx, session.Filter{Statuses: []session.Status{session.StatusCancelled}})
	if err != nil || s == nil {
		t.Fatalf("expected a cancelled session: %v %v", s, err)
	}
	if s.Player1.Name != "alice" {
		t.Fatalf("wrong session cancelled: %+v", s)
	}
	if p, _ := st.FindOne(ctx, session.Filter{Statuses: []session.Status{session.StatusPending}}); p != nil {
		t.Fatalf("orphaned pending session left behind: %+v", p)
	}
}

func TestJoinGamePairsWhileWaiting(t *testing.T) {
	m, st := newTestManager(t)
	m.opts.JoinTimeout = 2 * time.Second
	ctx := context.Background()

	type result struct {
		v   *GameView
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := m.JoinGame(ctx, "alice")
		done <- result{v, err}
	}()

	deadline := time.Now().Add(time.Second)
	for {
		p, _ := st.FindOne(ctx, queueFilter("bob"))
		if p != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("alice never opened a session")
		}
		time.Sleep(2 * time.Millisecond)
	}
	b, err := m.JoinGame(ctx, "bob")
	if err != nil || b.OpponentID != "alice" {
		t.Fatalf("JoinGame(bob): %+v %v", b, err)
	}
	r := <-done
	if r.err != nil || r.v.OpponentID != "bob" || r.v.GameID != b.GameID {
		t.Fatalf("JoinGame(alice): %+v %v", r.v, r.err)
	}
}

func TestJoinGameCallerCancel(t *testing.T) {
	m, st := newTestManager(t)
	m.opts.JoinTimeout = 5 * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := m.JoinGame(ctx, "alice")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	s, _ := st.FindOne(context.Background(), session.Filter{Statuses: []session.Status{session.StatusCancelled}})
	if s == nil || s.Player1.Name != "alice" {
		t.Fatalf("session not cancelled after caller left: %+v", s)
	}
}

func TestAbandonReturnsLateClaim(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	s, err := m.create(ctx, session.ModeOnline, "alice", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok, err := st.ConditionalUpdate(ctx, s.ID, session.StatusPending, session.Patch{Status: session.StatusStarted, Player2: "bob"}); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	v, err := m.abandonQueueSession(ctx, s.ID, "alice", context.DeadlineExceeded)
	if err != nil || v.OpponentID != "bob" {
		t.Fatalf("late claim should win: %+v %v", v, err)
	}
	if got := mustLoad(t, st, s.ID); got.Status != session.StatusStarted {
		t.Fatalf("late-claimed session was cancelled: %s", got.Status)
	}
}

func TestCreateSolo(t *testing.T) {
	m, st := newTestManager(t)
	v, err := m.CreateSolo(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CreateSolo: %v", err)
	}
	if v.Pending || v.Status != session.StatusStarted || v.Mode != session.ModeSolo {
		t.Fatalf("unexpected solo view: %+v", v)
	}
	s := mustLoad(t, st, v.GameID)
	if s.Player2.Name != "" || s.SecretWord != testSecret {
		t.Fatalf("unexpected solo session: %+v", s)
	}
	// solo sessions are never offered to the queue
	q, err := m.JoinOrCreate(context.Background(), "bob")
	if err != nil || q.GameID == v.GameID {
		t.Fatalf("solo session leaked into the queue: %+v %v", q, err)
	}
}
