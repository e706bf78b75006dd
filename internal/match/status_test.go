package match

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/wordle-duel/internal/session"
)

func TestPlayerStatusDisclosure(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)

	if _, err := m.SubmitGuess(ctx, id, "bob", "SLATE"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	ps, err := m.PlayerStatus(ctx, id, "alice")
	if err != nil {
		t.Fatalf("PlayerStatus: %v", err)
	}
	if ps.Wordle != "" || ps.GameStatus != session.StatusStarted || len(ps.PlayerStatuses) != 0 {
		t.Fatalf("unexpected status before finish: %+v", ps)
	}

	if _, err := m.SubmitGuess(ctx, id, "alice", "CRANE"); err != nil {
		t.Fatalf("winning guess: %v", err)
	}
	winner, _ := m.PlayerStatus(ctx, id, "alice")
	loser, _ := m.PlayerStatus(ctx, id, "bob")
	if winner.Wordle != testSecret {
		t.Fatalf("winner should see the word: %+v", winner)
	}
	if loser.Wordle != "" || len(loser.PlayerStatuses) != 1 {
		t.Fatalf("loser view wrong: %+v", loser)
	}
	if _, err := m.PlayerStatus(ctx, id, "mallory"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := m.PlayerStatus(ctx, "missing", "alice"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestSoloWordleReveal(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	v, _ := m.CreateSolo(ctx, "alice")

	if ok, _ := m.CanRetrieveWordle(ctx, v.GameID); ok {
		t.Fatalf("revealable before any guess")
	}
	if _, err := m.Wordle(ctx, v.GameID); !errors.Is(err, ErrWordleWithheld) {
		t.Fatalf("expected ErrWordleWithheld, got %v", err)
	}
	for i := 0; i < 6; i++ {
		if _, err := m.SubmitGuess(ctx, v.GameID, "alice", "GHOST"); err != nil {
			t.Fatalf("guess %d: %v", i+1, err)
		}
	}
	ok, err := m.CanRetrieveWordle(ctx, v.GameID)
	if err != nil || !ok {
		t.Fatalf("CanRetrieveWordle after six guesses: %v %v", ok, err)
	}
	w, err := m.Wordle(ctx, v.GameID)
	if err != nil || w != testSecret {
		t.Fatalf("Wordle: %q %v", w, err)
	}
}

func TestOnlineWordleNeverRevealed(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := startedOnline(t, m)
	for i := 0; i < 6; i++ {
		if _, err := m.SubmitGuess(ctx, id, "alice", "GHOST"); err != nil {
			t.Fatalf("guess %d: %v", i+1, err)
		}
	}
	if ok, _ := m.CanRetrieveWordle(ctx, id); ok {
		t.Fatalf("online secret revealable")
	}
	if ok, err := m.CanRetrieveWordle(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing game: %v %v", ok, err)
	}
}

func TestPlayerBoard(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	v, _ := m.CreateSolo(ctx, "alice")
	_, _ = m.SubmitGuess(ctx, v.GameID, "alice", "SLATE")
	_, _ = m.SubmitGuess(ctx, v.GameID, "alice", "CRANE")

	b, err := m.PlayerBoard(ctx, v.GameID, "alice")
	if err != nil {
		t.Fatalf("PlayerBoard: %v", err)
	}
	if len(b.Rows) != 2 || !b.Solved || b.MaxRows != 6 || b.WordSize != 5 {
		t.Fatalf("unexpected board: %+v", b)
	}
	if b.Rows[1][0].Character != "C" || b.Rows[1][0].State != session.LetterCorrect {
		t.Fatalf("unexpected tile: %+v", b.Rows[1][0])
	}
	if _, err := m.PlayerBoard(ctx, v.GameID, "bob"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}
