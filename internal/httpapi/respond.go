package httpapi

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/match"
	"github.com/park285/wordle-duel/internal/obslog"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(kind match.Kind) int {
	switch kind {
	case match.KindNotFound:
		return fasthttp.StatusNotFound
	case match.KindInvalidState, match.KindCapacity:
		return fasthttp.StatusConflict
	case match.KindUnauthorized:
		return fasthttp.StatusForbidden
	case match.KindInvalidInput:
		return fasthttp.StatusBadRequest
	case match.KindTimeout:
		return fasthttp.StatusRequestTimeout
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("http_encode_error", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(raw)
}

// writeError renders err through the catalog as error.<code>. data fills
// template fields such as Code or Player.
func (s *Server) writeError(ctx *fasthttp.RequestCtx, err error, data map[string]any) {
	code := match.CodeOf(err)
	status := statusFor(match.KindOf(err))
	fallback := err.Error()
	if status == fasthttp.StatusInternalServerError {
		obslog.L().Error("http_internal_error",
			zap.ByteString("path", ctx.Path()),
			zap.Error(err),
		)
		fallback = "internal error"
	}
	writeJSON(ctx, status, errorBody{Error: s.catalog.Text("error."+code, data, fallback), Code: code})
}

func (s *Server) writeStatus(ctx *fasthttp.RequestCtx, status int, code, fallback string) {
	writeJSON(ctx, status, errorBody{Error: s.catalog.Text("error."+code, nil, fallback), Code: code})
}
