package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	PollInterval  time.Duration
	JoinTimeout   time.Duration
	StaleAfter    time.Duration
	SweepInterval time.Duration
	MaxGuesses    int

	WordsAnswersFile string
	WordsAllowedFile string
	MessagesDir      string

	RateLimitRPS   float64
	RateLimitBurst int

	MetricsNamespace string
	TrustedProxies   []string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:         ":8080",
		PollInterval:     time.Second,
		JoinTimeout:      30 * time.Second,
		StaleAfter:       120 * time.Hour,
		SweepInterval:    time.Hour,
		MaxGuesses:       6,
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		MetricsNamespace: "wordle",
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.WordsAnswersFile = strings.TrimSpace(os.Getenv("WORDS_ANSWERS_FILE"))
	cfg.WordsAllowedFile = strings.TrimSpace(os.Getenv("WORDS_ALLOWED_FILE"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	durations := map[string]*time.Duration{
		"POLL_INTERVAL":  &cfg.PollInterval,
		"JOIN_TIMEOUT":   &cfg.JoinTimeout,
		"STALE_AFTER":    &cfg.StaleAfter,
		"SWEEP_INTERVAL": &cfg.SweepInterval,
	}
	for key, dst := range durations {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		// invalid values keep the default
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("MAX_GUESSES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxGuesses = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimitRPS = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_NAMESPACE")); v != "" {
		cfg.MetricsNamespace = v
	}
	if v := strings.TrimSpace(os.Getenv("TRUSTED_PROXIES")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, s)
			}
		}
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("POLL_INTERVAL must be positive")
	}
	if cfg.JoinTimeout <= 0 {
		return nil, errors.New("JOIN_TIMEOUT must be positive")
	}
	if cfg.JoinTimeout < cfg.PollInterval {
		return nil, errors.New("JOIN_TIMEOUT must not be shorter than POLL_INTERVAL")
	}
	if cfg.StaleAfter <= 0 {
		return nil, errors.New("STALE_AFTER must be positive")
	}

	return cfg, nil
}
