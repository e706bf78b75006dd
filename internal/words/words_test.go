package words

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/park285/wordle-duel/internal/session"
)

const (
	C = session.LetterCorrect
	P = session.LetterPresent
	A = session.LetterAbsent
)

func TestScore(t *testing.T) {
	cases := []struct {
		secret, guess string
		want          []session.LetterState
	}{
		{"CRANE", "CRANE", []session.LetterState{C, C, C, C, C}},
		{"CRANE", "SLATE", []session.LetterState{A, A, C, A, C}},
		{"CRANE", "NACRE", []session.LetterState{P, P, P, P, C}},
		// duplicate letters in the guess only earn as many marks as the secret holds
		{"ABBEY", "BOBBY", []session.LetterState{P, A, C, A, C}},
		{"CRANE", "EERIE", []session.LetterState{A, A, P, A, C}},
		{"crane", "CrAnE", []session.LetterState{C, C, C, C, C}},
	}
	for _, c := range cases {
		got := Score(c.secret, c.guess)
		if !slices.Equal(got, c.want) {
			t.Fatalf("Score(%s,%s)=%v want %v", c.secret, c.guess, got, c.want)
		}
	}
}

func TestSolved(t *testing.T) {
	if !Solved(Score("CRANE", "CRANE")) {
		t.Fatalf("exact guess not solved")
	}
	if Solved(Score("CRANE", "SLATE")) || Solved(nil) {
		t.Fatalf("unexpected solve")
	}
}

func TestDefaultListValidation(t *testing.T) {
	l := Default()
	ctx := context.Background()
	for _, w := range []string{"CRANE", "crane", "Slate"} {
		ok, err := l.IsValidWord(ctx, w)
		if err != nil || !ok {
			t.Fatalf("IsValidWord(%s)=%v,%v", w, ok, err)
		}
	}
	for _, w := range []string{"", "CRAN", "CRANES", "ZZZZZ", "CR4NE"} {
		if ok, _ := l.IsValidWord(ctx, w); ok {
			t.Fatalf("IsValidWord(%q) should be false", w)
		}
	}
	a, allowed := l.Stats()
	if a == 0 || allowed < a {
		t.Fatalf("unexpected stats: %d %d", a, allowed)
	}
}

func TestGenerateSecretFromAnswers(t *testing.T) {
	l := Default()
	for i := 0; i < 20; i++ {
		s := l.GenerateSecret()
		if len(s) != Length || !slices.Contains(l.answers, s) {
			t.Fatalf("secret %q not from answer pool", s)
		}
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	ans := filepath.Join(dir, "answers.txt")
	if err := os.WriteFile(ans, []byte("crane\nbogus-line\nslate\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := Load(ans, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n, _ := l.Stats(); n != 2 {
		t.Fatalf("expected 2 answers, got %d", n)
	}
	empty := filepath.Join(dir, "empty.txt")
	_ = os.WriteFile(empty, []byte("x\n"), 0o644)
	if _, err := Load(empty, ""); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestIsValidWordHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Default().IsValidWord(ctx, "CRANE"); err == nil {
		t.Fatalf("expected context error")
	}
}
