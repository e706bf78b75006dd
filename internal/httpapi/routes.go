package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/park285/wordle-duel/internal/match"
	"github.com/park285/wordle-duel/internal/render"
)

func param(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func (s *Server) routes(metricsHandler fasthttp.RequestHandler) *router.Router {
	r := router.New()
	r.SaveMatchedRoutePath = true
	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		s.writeStatus(ctx, fasthttp.StatusNotFound, "route_not_found", "route not found")
	}
	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) {
		s.writeStatus(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}

	r.GET("/health", s.handleHealth)
	if metricsHandler != nil {
		r.GET("/metrics", metricsHandler)
	}

	games := r.Group("/games")
	games.POST("/join", s.userHandler(s.mgr.JoinGame))
	games.POST("/join-or-create", s.userHandler(s.mgr.JoinOrCreate))
	games.POST("/join-solo", s.userHandler(s.mgr.CreateSolo))
	games.POST("/generate-code", s.userHandler(s.mgr.GenerateCode))
	games.POST("/join-with-code", s.codeHandler(s.mgr.JoinFromCode, true))
	games.POST("/v2/join-with-code", s.codeHandler(s.mgr.JoinFromCodeNoWait, false))
	games.POST("/poll-for-player", s.handlePollForPlayer)

	games.GET("/game/{id}/status/{player}", s.handleStatus)
	games.GET("/game/{id}/wordle", s.handleWordle)
	games.GET("/game/{id}/card/{player}", s.handleCard)
	games.GET("/game/{id}/share/{player}", s.handleShare)
	games.GET("/player/{name}/stats", s.handleStats)

	r.POST("/play/row", s.handleRow)
	return r
}

// routeLabel is the matched route pattern, or "unmatched".
func routeLabel(ctx *fasthttp.RequestCtx) string {
	if p, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && p != "" {
		return p
	}
	return "unmatched"
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) error {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		return match.ErrInvalidArgs
	}
	return nil
}

type userRequest struct {
	UserID string `json:"userId"`
}

type codeRequest struct {
	UserID   string `json:"userId"`
	GameCode string `json:"gameCode"`
}

type pollRequest struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type rowRequest struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
	Word       string `json:"word"`
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) userHandler(op func(context.Context, string) (*match.GameView, error)) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req userRequest
		if err := decodeBody(ctx, &req); err != nil {
			s.writeError(ctx, err, nil)
			return
		}
		view, err := op(ctx, req.UserID)
		if err != nil {
			s.writeError(ctx, err, nil)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, view)
	}
}

func (s *Server) codeHandler(op func(context.Context, string, string) (*match.GameView, error), blocking bool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req codeRequest
		if err := decodeBody(ctx, &req); err != nil {
			s.writeError(ctx, err, nil)
			return
		}
		var (
			opCtx  context.Context = ctx
			cancel context.CancelFunc
		)
		if blocking {
			opCtx, cancel = context.WithTimeout(ctx, s.longPoll)
			defer cancel()
		}
		view, err := op(opCtx, req.UserID, req.GameCode)
		if err != nil {
			s.writeError(ctx, err, map[string]any{"Code": strings.ToUpper(strings.TrimSpace(req.GameCode))})
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, view)
	}
}

func (s *Server) handlePollForPlayer(ctx *fasthttp.RequestCtx) {
	var req pollRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	view, err := s.mgr.CheckOpponentJoined(ctx, req.GameID, req.PlayerID)
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, view)
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	st, err := s.mgr.PlayerStatus(ctx, param(ctx, "id"), param(ctx, "player"))
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, st)
}

func (s *Server) handleWordle(ctx *fasthttp.RequestCtx) {
	w, err := s.mgr.Wordle(ctx, param(ctx, "id"))
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"wordle": w})
}

func (s *Server) handleRow(ctx *fasthttp.RequestCtx) {
	var req rowRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	res, err := s.mgr.SubmitGuess(ctx, req.GameID, req.PlayerName, req.Word)
	if err != nil {
		s.writeError(ctx, err, map[string]any{"Player": req.PlayerName})
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, res)
}

func (s *Server) shareTexts(b *match.Board) (header, footer string) {
	score := "X"
	if b.Solved {
		score = strconv.Itoa(len(b.Rows))
	}
	header = s.catalog.Text("share.header", map[string]any{
		"Mode":    string(b.Mode),
		"Score":   score,
		"MaxRows": b.MaxRows,
	}, "Wordle Duel "+score+"/"+strconv.Itoa(b.MaxRows))
	footer = s.catalog.Text("share.footer", map[string]any{
		"Player": b.Player,
		"Solved": b.Solved,
	}, b.Player)
	return header, footer
}

func (s *Server) handleShare(ctx *fasthttp.RequestCtx) {
	b, err := s.mgr.PlayerBoard(ctx, param(ctx, "id"), param(ctx, "player"))
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	header, footer := s.shareTexts(b)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(header + "\n" + render.Grid(b) + "\n" + footer)
}

// handleCard renders the board as PNG. Letters are shown only with
// letters=1 once the game can no longer be played.
func (s *Server) handleCard(ctx *fasthttp.RequestCtx) {
	b, err := s.mgr.PlayerBoard(ctx, param(ctx, "id"), param(ctx, "player"))
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	header, footer := s.shareTexts(b)
	showLetters := string(ctx.QueryArgs().Peek("letters")) == "1" && b.Status.IsTerminal()
	raw, err := s.renderer.RenderPNG(ctx, b, render.Options{Title: header, Footer: footer, ShowLetters: showLetters})
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	ctx.SetContentType("image/png")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(raw)
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	if s.stats == nil {
		s.writeStatus(ctx, fasthttp.StatusNotFound, "stats_unavailable", "player stats are not enabled")
		return
	}
	st, err := s.stats.PlayerStats(ctx, param(ctx, "name"))
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"player":  st.Player,
		"played":  st.Played,
		"won":     st.Won,
		"summary": s.catalog.Text("stats.summary", st, ""),
	})
}
