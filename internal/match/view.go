package match

import (
	"github.com/samber/lo"

	"github.com/park285/wordle-duel/internal/session"
)

// Tile is one cell of a board. Character is omitted for opponent rows.
type Tile struct {
	Character string              `json:"character,omitempty"`
	State     session.LetterState `json:"state"`
}

// GameView is what a join or poll returns to a player. Pending is set while
// the session waits for a second player.
type GameView struct {
	GameID        string         `json:"gameId"`
	OpponentID    string         `json:"opponentId,omitempty"`
	Status        session.Status `json:"status"`
	Pending       bool           `json:"pending"`
	Mode          session.Mode   `json:"mode"`
	GameCode      string         `json:"gameCode,omitempty"`
	Moves         [][]Tile       `json:"moves,omitempty"`
	OpponentMoves [][]Tile       `json:"opponentMoves,omitempty"`
}

func pendingView(s *session.Session) *GameView {
	return &GameView{
		GameID:   s.ID,
		Status:   s.Status,
		Pending:  true,
		Mode:     s.Mode,
		GameCode: s.JoinCode,
	}
}

func pairedView(s *session.Session, userID string) *GameView {
	v := &GameView{GameID: s.ID, Status: s.Status, Mode: s.Mode, GameCode: s.JoinCode}
	if id, ok := s.SlotOf(userID); ok {
		v.OpponentID = s.Slot(session.Opponent(id)).Name
	}
	return v
}

// reconnectView adds the caller's own rows with letters and the opponent's
// feedback without letters.
func reconnectView(s *session.Session, userID string) *GameView {
	v := pairedView(s, userID)
	id, ok := s.SlotOf(userID)
	if !ok {
		return v
	}
	own := s.Slot(id)
	v.Moves = mergeRows(own.Guesses, own.Feedback)
	v.OpponentMoves = statesOnly(s.Slot(session.Opponent(id)).Feedback)
	return v
}

func mergeRows(guesses []string, feedback [][]session.LetterState) [][]Tile {
	return lo.Map(feedback, func(row []session.LetterState, i int) []Tile {
		word := ""
		if i < len(guesses) {
			word = guesses[i]
		}
		return lo.Map(row, func(st session.LetterState, j int) Tile {
			ch := ""
			if j < len(word) {
				ch = word[j : j+1]
			}
			return Tile{Character: ch, State: st}
		})
	})
}

func statesOnly(feedback [][]session.LetterState) [][]Tile {
	return lo.Map(feedback, func(row []session.LetterState, _ int) []Tile {
		return lo.Map(row, func(st session.LetterState, _ int) Tile { return Tile{State: st} })
	})
}
