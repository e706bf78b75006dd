package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/wordle-duel/internal/session"
)

func finishedSession() *session.Session {
	t0 := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	s := session.New("g1", session.ModeOnline, "CRANE", "alice", "", t0)
	s.Player2.Name = "bob"
	c, p, a := session.LetterCorrect, session.LetterPresent, session.LetterAbsent
	s.Player1.Guesses = []string{"SLATE", "CRANE"}
	s.Player1.Feedback = [][]session.LetterState{{a, a, c, a, c}, {c, c, c, c, c}}
	s.Player2.Guesses = []string{"NACRE"}
	s.Player2.Feedback = [][]session.LetterState{{p, p, p, p, c}}
	s.Status = session.StatusFinished
	s.Winner = "alice"
	s.UpdatedAt = t0.Add(90 * time.Second)
	return s
}

func TestNewRecord(t *testing.T) {
	rec, err := newRecord(finishedSession())
	if err != nil {
		t.Fatalf("newRecord: %v", err)
	}
	if rec.rows1 != 2 || rec.rows2 != 1 {
		t.Fatalf("rows=%d/%d", rec.rows1, rec.rows2)
	}
	if rec.durationMS != 90_000 {
		t.Fatalf("duration=%d", rec.durationMS)
	}
	if !strings.Contains(rec.guesses, `"player2":["NACRE"]`) {
		t.Fatalf("guesses json=%s", rec.guesses)
	}
}

func TestTranscript(t *testing.T) {
	got := buildTranscript(finishedSession())
	for _, want := range []string{
		`[Date "2025.03.04"]`,
		`[Winner "alice"]`,
		"1. SLATE ..G.G",
		"2. CRANE GGGGG",
		"bob:\n1. NACRE YYYYG",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("transcript missing %q:\n%s", want, got)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize(" a\"b\\c\n "); got != "a'b c" {
		t.Fatalf("sanitize=%q", got)
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.SaveResult(context.Background(), finishedSession()); err != nil {
		t.Fatalf("SaveResult on nil: %v", err)
	}
	st, err := r.PlayerStats(context.Background(), "alice")
	if err != nil || st.Played != 0 {
		t.Fatalf("PlayerStats on nil: %+v %v", st, err)
	}
	if _, err := NewRepository("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
