// Package archive keeps a durable record of finished duels in Postgres.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/wordle-duel/internal/session"
)

const schema = `CREATE TABLE IF NOT EXISTS wordle_games (
    game_id      TEXT PRIMARY KEY,
    mode         TEXT NOT NULL,
    join_code    TEXT NOT NULL DEFAULT '',
    secret_word  TEXT NOT NULL,
    player1      TEXT NOT NULL,
    player2      TEXT NOT NULL DEFAULT '',
    winner       TEXT NOT NULL DEFAULT '',
    rows1        INTEGER NOT NULL,
    rows2        INTEGER NOT NULL,
    guesses      JSONB NOT NULL,
    transcript   TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS wordle_games_player1 ON wordle_games (player1);
CREATE INDEX IF NOT EXISTS wordle_games_player2 ON wordle_games (player2);`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// record is the flattened row written for a finished session.
type record struct {
	gameID     string
	mode       string
	joinCode   string
	secret     string
	player1    string
	player2    string
	winner     string
	rows1      int
	rows2      int
	guesses    string
	transcript string
	startedAt  time.Time
	endedAt    time.Time
	durationMS int64
}

func newRecord(s *session.Session) (record, error) {
	raw, err := json.Marshal(map[string][]string{
		"player1": s.Player1.Guesses,
		"player2": s.Player2.Guesses,
	})
	if err != nil {
		return record{}, fmt.Errorf("marshal guesses: %w", err)
	}
	duration := s.UpdatedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	return record{
		gameID:     s.ID,
		mode:       string(s.Mode),
		joinCode:   s.JoinCode,
		secret:     s.SecretWord,
		player1:    s.Player1.Name,
		player2:    s.Player2.Name,
		winner:     s.Winner,
		rows1:      len(s.Player1.Guesses),
		rows2:      len(s.Player2.Guesses),
		guesses:    string(raw),
		transcript: buildTranscript(s),
		startedAt:  s.CreatedAt,
		endedAt:    s.UpdatedAt,
		durationMS: duration,
	}, nil
}

// SaveResult upserts a finished session. Other statuses are ignored.
func (r *Repository) SaveResult(ctx context.Context, s *session.Session) error {
	if r == nil || r.db == nil || s == nil || s.Status != session.StatusFinished {
		return nil
	}
	rec, err := newRecord(s)
	if err != nil {
		return err
	}

	q := `INSERT INTO wordle_games (
        game_id, mode, join_code, secret_word, player1, player2, winner,
        rows1, rows2, guesses, transcript, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        player2=EXCLUDED.player2,
        winner=EXCLUDED.winner,
        rows1=EXCLUDED.rows1,
        rows2=EXCLUDED.rows2,
        guesses=EXCLUDED.guesses,
        transcript=EXCLUDED.transcript,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rec.gameID, rec.mode, rec.joinCode, rec.secret,
		rec.player1, rec.player2, rec.winner,
		rec.rows1, rec.rows2, rec.guesses, rec.transcript,
		rec.startedAt, rec.endedAt, rec.durationMS,
	)
	return err
}

// Stats summarizes a player's archived games.
type Stats struct {
	Player string `json:"player"`
	Played int    `json:"played"`
	Won    int    `json:"won"`
}

func (r *Repository) PlayerStats(ctx context.Context, player string) (*Stats, error) {
	player = strings.TrimSpace(player)
	st := &Stats{Player: player}
	if r == nil || r.db == nil || player == "" {
		return st, nil
	}
	q := `SELECT COUNT(*), COUNT(*) FILTER (WHERE winner = $1)
      FROM wordle_games WHERE player1 = $1 OR player2 = $1`
	if err := r.db.QueryRowContext(ctx, q, player).Scan(&st.Played, &st.Won); err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	return st, nil
}

// buildTranscript renders a plain-text log of both boards, one guess per line.
func buildTranscript(s *session.Session) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	date := s.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[Mode \"%s\"]\n", s.Mode))
	b.WriteString(fmt.Sprintf("[Word \"%s\"]\n", s.SecretWord))
	b.WriteString(fmt.Sprintf("[Winner \"%s\"]\n", sanitize(s.Winner)))
	for _, id := range []session.SlotID{session.Player1, session.Player2} {
		sl := s.Slot(id)
		if sl.Name == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s:\n", sanitize(sl.Name)))
		for i, g := range sl.Guesses {
			var fb []session.LetterState
			if i < len(sl.Feedback) {
				fb = sl.Feedback[i]
			}
			b.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, g, marks(fb)))
		}
	}
	return b.String()
}

func marks(fb []session.LetterState) string {
	out := make([]byte, len(fb))
	for i, st := range fb {
		switch st {
		case session.LetterCorrect:
			out[i] = 'G'
		case session.LetterPresent:
			out[i] = 'Y'
		default:
			out[i] = '.'
		}
	}
	return string(out)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
