// Package httpapi exposes the matchmaking engine as JSON over fasthttp.
package httpapi

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/archive"
	"github.com/park285/wordle-duel/internal/match"
	"github.com/park285/wordle-duel/internal/metrics"
	"github.com/park285/wordle-duel/internal/msgcat"
	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/render"
)

// StatsSource serves per-player aggregates from the archive.
type StatsSource interface {
	PlayerStats(ctx context.Context, player string) (*archive.Stats, error)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string
	// LongPoll bounds code joins that would otherwise wait with no deadline.
	LongPoll time.Duration

	Catalog  *msgcat.Catalog
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Stats    StatsSource
	Renderer render.CardRenderer
}

const (
	defaultLongPoll = 60 * time.Second
	limiterIdle     = 10 * time.Minute
)

type Server struct {
	mgr      *match.Manager
	catalog  *msgcat.Catalog
	metrics  *metrics.Metrics
	stats    StatsSource
	renderer render.CardRenderer
	longPoll time.Duration

	limiters *limiterSet
	trusted  map[string]struct{}
	router   *router.Router
	srv      *fasthttp.Server
}

func New(mgr *match.Manager, cfg Config) *Server {
	s := &Server{
		mgr:      mgr,
		catalog:  cfg.Catalog,
		metrics:  cfg.Metrics,
		stats:    cfg.Stats,
		renderer: cfg.Renderer,
		longPoll: cfg.LongPoll,
		limiters: newLimiterSet(cfg.RateLimitRPS, cfg.RateLimitBurst),
		trusted:  make(map[string]struct{}),
	}
	if s.longPoll <= 0 {
		s.longPoll = defaultLongPoll
	}
	if s.renderer == nil {
		s.renderer = render.NewCardRenderer()
	}
	for _, p := range cfg.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			s.trusted[p] = struct{}{}
		}
	}
	var metricsHandler fasthttp.RequestHandler
	if cfg.Gatherer != nil {
		metricsHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = s.routes(metricsHandler)

	// Blocking joins hold the response for up to the join timeout or the
	// long-poll bound, whichever is longer.
	writeTimeout := max(mgr.Options().JoinTimeout, s.longPoll) + 10*time.Second
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "wordle-duel",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
		Logger:       zap.NewStdLog(obslog.L()),
	}
	return s
}

// Handler is the full middleware chain: request id, logging, rate limit and
// routing.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		reqID := string(ctx.Request.Header.Peek("X-Request-Id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx.Response.Header.Set("X-Request-Id", reqID)
		ip := clientIP(ctx, s.trusted)

		if !exemptFromLimit(ctx.Path()) && !s.limiters.allow(ip) {
			s.writeStatus(ctx, fasthttp.StatusTooManyRequests, "rate_limited", "too many requests")
		} else {
			s.router.Handler(ctx)
		}

		pattern := routeLabel(ctx)
		elapsed := time.Since(start)
		status := ctx.Response.StatusCode()
		s.metrics.ObserveRequest(pattern, status, elapsed)
		obslog.L().Info("http_request",
			zap.String("request_id", reqID),
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.String("route", pattern),
			zap.Int("status", status),
			zap.String("ip", ip),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func exemptFromLimit(path []byte) bool {
	switch string(path) {
	case "/health", "/metrics":
		return true
	}
	return false
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// Run listens on addr and serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	obslog.L().Info("http_listen", zap.String("addr", ln.Addr().String()))

	go s.runLimiterJanitor(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) runLimiterJanitor(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.limiters.evictIdle(limiterIdle); n > 0 {
				obslog.L().Debug("rate_limiter_evicted", zap.Int("count", n), zap.Int("remaining", s.limiters.size()))
			}
		}
	}
}
