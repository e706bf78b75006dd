// Package words supplies the secret-word pool, guess validation and the
// per-letter scoring used by the match engine.
//
// Word lists hold one five-letter word per line. The embedded defaults are used
// unless both paths are provided to Load; an allowed-only path serves as both
// answer pool and dictionary.
package words

import (
	"bufio"
	"context"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/park285/wordle-duel/internal/session"
)

// Length is the fixed word length.
const Length = 5

//go:embed answers.txt
var embeddedAnswers string

//go:embed allowed.txt
var embeddedAllowed string

// ErrEmpty is returned when no answers survive normalization.
var ErrEmpty = errors.New("words: answers list is empty")

// List is an immutable word oracle.
type List struct {
	answers []string
	allowed map[string]struct{}
}

// Default returns the embedded lists.
func Default() *List {
	l, err := newList(normalizeLines(embeddedAnswers), normalizeLines(embeddedAllowed))
	if err != nil {
		panic(err)
	}
	return l
}

// Load reads word lists from disk, falling back to the embedded defaults when
// both paths are empty.
func Load(answersPath, allowedPath string) (*List, error) {
	answersPath, allowedPath = strings.TrimSpace(answersPath), strings.TrimSpace(allowedPath)
	switch {
	case answersPath != "" && allowedPath != "":
		ans, err := readWordFile(answersPath)
		if err != nil {
			return nil, err
		}
		allow, err := readWordFile(allowedPath)
		if err != nil {
			return nil, err
		}
		return newList(ans, allow)
	case allowedPath != "":
		allow, err := readWordFile(allowedPath)
		if err != nil {
			return nil, err
		}
		return newList(allow, nil)
	case answersPath != "":
		ans, err := readWordFile(answersPath)
		if err != nil {
			return nil, err
		}
		return newList(ans, nil)
	}
	return Default(), nil
}

func newList(answers, extra []string) (*List, error) {
	answers = lo.Uniq(answers)
	if len(answers) == 0 {
		return nil, ErrEmpty
	}
	allowed := lo.SliceToMap(append(append([]string{}, answers...), extra...), func(w string) (string, struct{}) {
		return w, struct{}{}
	})
	return &List{answers: answers, allowed: allowed}, nil
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w, ok := normalize(sc.Text()); ok {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

func normalizeLines(s string) []string {
	return lo.FilterMap(strings.Split(s, "\n"), func(line string, _ int) (string, bool) {
		return normalize(line)
	})
}

func normalize(w string) (string, bool) {
	w = strings.ToUpper(strings.TrimSpace(w))
	return w, len(w) == Length && isAlpha(w)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Stats returns the answer pool and dictionary sizes.
func (l *List) Stats() (answers, allowed int) { return len(l.answers), len(l.allowed) }

// GenerateSecret picks a uniformly random answer.
func (l *List) GenerateSecret() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.answers))))
	if err != nil {
		return l.answers[0]
	}
	return l.answers[n.Int64()]
}

// IsValidWord reports whether word is a five-letter dictionary word.
func (l *List) IsValidWord(ctx context.Context, word string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	w, ok := normalize(word)
	if !ok {
		return false, nil
	}
	_, ok = l.allowed[w]
	return ok, nil
}

// Score delegates to the package-level scorer.
func (l *List) Score(secret, guess string) []session.LetterState { return Score(secret, guess) }

// Score implements two-pass scoring: exact positions first, then present
// letters bounded by the remaining count of each letter in the secret.
// Comparison is case-insensitive.
func Score(secret, guess string) []session.LetterState {
	secret, guess = strings.ToUpper(secret), strings.ToUpper(guess)
	n := len(guess)
	out := make([]session.LetterState, n)
	if len(secret) != n {
		for i := range out {
			out[i] = session.LetterAbsent
		}
		return out
	}
	remaining := make(map[byte]int, n)
	for i := 0; i < n; i++ {
		if guess[i] == secret[i] {
			out[i] = session.LetterCorrect
		} else {
			remaining[secret[i]]++
		}
	}
	for i := 0; i < n; i++ {
		if out[i] == session.LetterCorrect {
			continue
		}
		if remaining[guess[i]] > 0 {
			out[i] = session.LetterPresent
			remaining[guess[i]]--
		} else {
			out[i] = session.LetterAbsent
		}
	}
	return out
}

// Solved reports whether every symbol is correct.
func Solved(fb []session.LetterState) bool {
	return len(fb) > 0 && lo.EveryBy(fb, func(s session.LetterState) bool { return s == session.LetterCorrect })
}
