package match

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/park285/wordle-duel/internal/session"
)

func TestWinDetection(t *testing.T) {
	m, st := newTestManager(t)
	sink := &recordingSink{}
	m.AttachArchive(sink)
	ctx := context.Background()
	id := startedOnline(t, m)

	r, err := m.SubmitGuess(ctx, id, "bob", "SLATE")
	if err != nil || r.Status != session.StatusStarted {
		t.Fatalf("SubmitGuess(bob): %+v %v", r, err)
	}
	r, err = m.SubmitGuess(ctx, id, "alice", "crane")
	if err != nil {
		t.Fatalf("SubmitGuess(alice): %v", err)
	}
	if r.Status != session.StatusFinished {
		t.Fatalf("expected finished, got %s", r.Status)
	}
	for _, st := range r.RowResponse {
		if st != session.LetterCorrect {
			t.Fatalf("row response not all correct: %v", r.RowResponse)
		}
	}
	s := mustLoad(t, st, id)
	if s.Winner != "alice" || s.Status != session.StatusFinished {
		t.Fatalf("unexpected session: %+v", s)
	}
	if _, err := m.SubmitGuess(ctx, id, "bob", "TRACE"); !errors.Is(err, ErrNotOngoing) {
		t.Fatalf("expected ErrNotOngoing after finish, got %v", err)
	}
	if len(sink.saved) != 1 || sink.saved[0].ID != id {
		t.Fatalf("finished session not archived: %+v", sink.saved)
	}
}

func TestGuessFeedbackParity(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)
	for _, w := range []string{"SLATE", "TRACE", "GHOST"} {
		if _, err := m.SubmitGuess(ctx, id, "bob", w); err != nil {
			t.Fatalf("SubmitGuess(%s): %v", w, err)
		}
	}
	_, _ = m.SubmitGuess(ctx, id, "bob", "NOTAWORD")
	s := mustLoad(t, st, id)
	if len(s.Player2.Guesses) != 3 || len(s.Player2.Feedback) != 3 {
		t.Fatalf("parity broken: %d/%d", len(s.Player2.Guesses), len(s.Player2.Feedback))
	}
	for i, g := range s.Player2.Guesses {
		if len(g) != len(s.SecretWord) || len(s.Player2.Feedback[i]) != len(g) {
			t.Fatalf("row %d length mismatch", i)
		}
	}
	if len(s.Player1.Guesses) != 0 {
		t.Fatalf("guess leaked into the other slot")
	}
}

func TestSubmitGuessErrors(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)

	cases := []struct {
		name, game, player, word string
		want                     error
	}{
		{"unknown game", "missing", "alice", "SLATE", ErrGameNotFound},
		{"not in dictionary", id, "alice", "ZZZZZ", ErrInvalidWord},
		{"wrong length", id, "alice", "SLATES", ErrInvalidWord},
		{"stranger", id, "mallory", "SLATE", ErrNotParticipant},
		{"empty name", id, "", "SLATE", ErrNotParticipant},
	}
	for _, c := range cases {
		if _, err := m.SubmitGuess(ctx, c.game, c.player, c.word); !errors.Is(err, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestSubmitGuessOnPendingSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	v, _ := m.JoinOrCreate(ctx, "alice")
	if _, err := m.SubmitGuess(ctx, v.GameID, "alice", "SLATE"); !errors.Is(err, ErrNotOngoing) {
		t.Fatalf("expected ErrNotOngoing, got %v", err)
	}
}

func TestGuessCeiling(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	v, _ := m.CreateSolo(ctx, "alice")
	for i := 0; i < 6; i++ {
		if _, err := m.SubmitGuess(ctx, v.GameID, "alice", "SLATE"); err != nil {
			t.Fatalf("guess %d: %v", i+1, err)
		}
	}
	if _, err := m.SubmitGuess(ctx, v.GameID, "alice", "CRANE"); !errors.Is(err, ErrNoGuessesLeft) {
		t.Fatalf("expected ErrNoGuessesLeft, got %v", err)
	}
}

func TestMonotonicStatus(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)
	if _, ok, err := st.ConditionalUpdate(ctx, id, session.StatusStarted, session.Patch{Status: session.StatusPending}); !errors.Is(err, session.ErrIllegalTransition) || ok {
		t.Fatalf("Started -> Pending allowed: ok=%v err=%v", ok, err)
	}
	if _, err := m.SubmitGuess(ctx, id, "alice", "CRANE"); err != nil {
		t.Fatalf("winning guess: %v", err)
	}
	if _, _, err := st.ConditionalUpdate(ctx, id, session.StatusFinished, session.Patch{Status: session.StatusCancelled}); !errors.Is(err, session.ErrIllegalTransition) {
		t.Fatalf("Finished -> Cancelled allowed: %v", err)
	}
	if KindOf(session.ErrIllegalTransition) != KindInvalidState {
		t.Fatalf("illegal transitions must surface as invalid state")
	}
}

func TestConcurrentGuessesDisjointSlotsRedis(t *testing.T) {
	m, st := newRedisTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)

	var wg sync.WaitGroup
	for _, p := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for _, w := range []string{"SLATE", "TRACE", "GHOST"} {
				if _, err := m.SubmitGuess(ctx, id, p, w); err != nil {
					t.Errorf("SubmitGuess(%s,%s): %v", p, w, err)
				}
			}
		}(p)
	}
	wg.Wait()
	s := mustLoad(t, st, id)
	if len(s.Player1.Guesses) != 3 || len(s.Player2.Guesses) != 3 {
		t.Fatalf("lost guesses under concurrency: %d/%d", len(s.Player1.Guesses), len(s.Player2.Guesses))
	}
}

func TestConcurrentWinnersSingleFinish(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, p := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			r, err := m.SubmitGuess(ctx, id, p, "CRANE")
			if err == nil && r.Status == session.StatusFinished {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if err != nil && !errors.Is(err, ErrNotOngoing) {
				t.Errorf("SubmitGuess(%s): %v", p, err)
			}
		}(p)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected a single finishing guess, got %d", wins)
	}
	s := mustLoad(t, st, id)
	if s.Winner == "" || (len(s.Player1.Guesses)+len(s.Player2.Guesses)) != 1 {
		t.Fatalf("unexpected final session: %+v", s)
	}
}
