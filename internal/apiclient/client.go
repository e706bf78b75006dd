// Package apiclient is a fasthttp client for the wordle duel HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/wordle-duel/internal/archive"
	"github.com/park285/wordle-duel/internal/match"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 90 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 90 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wordle api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// CodeOf returns the error code of an APIError, or "".
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/health", nil, nil, true)
}

func (c *Client) JoinGame(ctx context.Context, userID string) (*match.GameView, error) {
	return c.view(ctx, "/games/join", map[string]string{"userId": userID})
}

func (c *Client) JoinOrCreate(ctx context.Context, userID string) (*match.GameView, error) {
	return c.view(ctx, "/games/join-or-create", map[string]string{"userId": userID})
}

func (c *Client) CreateSolo(ctx context.Context, userID string) (*match.GameView, error) {
	return c.view(ctx, "/games/join-solo", map[string]string{"userId": userID})
}

func (c *Client) GenerateCode(ctx context.Context, userID string) (*match.GameView, error) {
	return c.view(ctx, "/games/generate-code", map[string]string{"userId": userID})
}

func (c *Client) JoinWithCode(ctx context.Context, userID, code string) (*match.GameView, error) {
	return c.view(ctx, "/games/join-with-code", map[string]string{"userId": userID, "gameCode": code})
}

func (c *Client) JoinWithCodeNoWait(ctx context.Context, userID, code string) (*match.GameView, error) {
	return c.view(ctx, "/games/v2/join-with-code", map[string]string{"userId": userID, "gameCode": code})
}

func (c *Client) PollForPlayer(ctx context.Context, gameID, playerID string) (*match.GameView, error) {
	return c.view(ctx, "/games/poll-for-player", map[string]string{"gameId": gameID, "playerId": playerID})
}

func (c *Client) view(ctx context.Context, path string, body any) (*match.GameView, error) {
	var v match.GameView
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, body, &v, false); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) SubmitRow(ctx context.Context, gameID, player, word string) (*match.GuessResult, error) {
	var res match.GuessResult
	body := map[string]string{"gameId": gameID, "playerName": player, "word": word}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/play/row", body, &res, false); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Status(ctx context.Context, gameID, player string) (*match.PlayerStatus, error) {
	var st match.PlayerStatus
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/game/"+url.PathEscape(gameID)+"/status/"+url.PathEscape(player), nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Wordle(ctx context.Context, gameID string) (string, error) {
	var resp struct {
		Wordle string `json:"wordle"`
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/game/"+url.PathEscape(gameID)+"/wordle", nil, &resp, true); err != nil {
		return "", err
	}
	return resp.Wordle, nil
}

func (c *Client) PlayerStats(ctx context.Context, player string) (*archive.Stats, error) {
	var st archive.Stats
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/player/"+url.PathEscape(player)+"/stats", nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

// Share returns the plain-text share block for a player's board.
func (c *Client) Share(ctx context.Context, gameID, player string) (string, error) {
	raw, err := c.doRaw(ctx, fasthttp.MethodGet, "/games/game/"+url.PathEscape(gameID)+"/share/"+url.PathEscape(player), nil, true)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Card returns the PNG share card.
func (c *Client) Card(ctx context.Context, gameID, player string, letters bool) ([]byte, error) {
	path := "/games/game/" + url.PathEscape(gameID) + "/card/" + url.PathEscape(player)
	if letters {
		path += "?letters=1"
	}
	return c.doRaw(ctx, fasthttp.MethodGet, path, nil, true)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = raw
	}
	body, err := c.doRaw(ctx, method, path, payload, retry)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, payload []byte, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status, Message: truncate(string(resp.Body()), 512)}
			var body struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if json.Unmarshal(resp.Body(), &body) == nil && body.Error != "" {
				apiErr.Code, apiErr.Message = body.Code, body.Error
			}
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// DialerFor adapts a listener-style dial func to fasthttp.
func DialerFor(dial func() (net.Conn, error)) fasthttp.DialFunc {
	return func(string) (net.Conn, error) { return dial() }
}
