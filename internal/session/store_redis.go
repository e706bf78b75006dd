package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/obslog"
)

const maxWatchRetries = 16

// RedisStore keeps each session as a JSON document plus two indexes: a sorted
// set per status scored by creation time, and a set of ids per join code.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb, now: time.Now} }

// DialRedis connects using a redis:// or rediss:// URL and pings the server.
func DialRedis(ctx context.Context, raw string) (*redis.Client, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := ParseRedisURL(raw)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// ParseRedisURL extracts address, password and db from a redis URL.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func keySession(id string) string     { return "wordle:session:" + strings.TrimSpace(id) }
func keyStatus(st Status) string      { return "wordle:idx:status:" + string(st) }
func keyCode(code string) string      { return "wordle:idx:code:" + strings.ToUpper(strings.TrimSpace(code)) }
func createdScore(s *Session) float64 { return float64(s.CreatedAt.UnixMilli()) }

func (r *RedisStore) Insert(ctx context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrInvariant)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	key := keySession(s.ID)
	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.ZAdd(ctx, keyStatus(s.Status), redis.Z{Score: createdScore(s), Member: s.ID})
			if s.JoinCode != "" {
				pipe.SAdd(ctx, keyCode(s.JoinCode), s.ID)
			}
			return nil
		})
		return err
	}, key)
}

func (r *RedisStore) FindByID(ctx context.Context, id string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, keySession(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOne returns the oldest matching session, or nil.
func (r *RedisStore) FindOne(ctx context.Context, f Filter) (*Session, error) {
	list, err := r.matching(ctx, f)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *RedisStore) ConditionalUpdate(ctx context.Context, id string, expected Status, p Patch) (*Session, bool, error) {
	key := keySession(id)
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		var (
			out      *Session
			mismatch bool
		)
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var cur Session
			if err := json.Unmarshal(raw, &cur); err != nil {
				return err
			}
			if cur.Status != expected {
				mismatch = true
				return nil
			}
			from := cur.Status
			if err := p.Apply(&cur, r.now()); err != nil {
				return err
			}
			next, err := json.Marshal(&cur)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				if from != cur.Status {
					pipe.ZRem(ctx, keyStatus(from), cur.ID)
					pipe.ZAdd(ctx, keyStatus(cur.Status), redis.Z{Score: createdScore(&cur), Member: cur.ID})
				}
				return nil
			})
			if err != nil {
				return err
			}
			out = &cur
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("session_watch_retry", zap.String("session_id", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if mismatch {
			return nil, false, nil
		}
		return out, true, nil
	}
	return nil, false, fmt.Errorf("session %s: %w after %d attempts", id, redis.TxFailedErr, maxWatchRetries)
}

func (r *RedisStore) UpdateMany(ctx context.Context, f Filter, p Patch) (int, error) {
	list, err := r.matching(ctx, f)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range list {
		_, ok, err := r.ConditionalUpdate(ctx, s.ID, s.Status, p)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// matching resolves candidate ids from the narrowest index, loads them and
// applies the full filter. Results are ordered oldest first.
func (r *RedisStore) matching(ctx context.Context, f Filter) ([]*Session, error) {
	ids, err := r.candidateIDs(ctx, f)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keySession(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var s Session
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			obslog.L().Warn("session_decode_error", zap.String("session_id", ids[i]), zap.Error(err))
			continue
		}
		if f.Matches(&s) {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RedisStore) candidateIDs(ctx context.Context, f Filter) ([]string, error) {
	if f.Code == CodeExact {
		if f.JoinCode == "" {
			return nil, nil
		}
		return r.rdb.SMembers(ctx, keyCode(f.JoinCode)).Result()
	}
	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = allStatuses
	}
	max := "+inf"
	if !f.CreatedBefore.IsZero() {
		max = strconv.FormatInt(f.CreatedBefore.UnixMilli(), 10)
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, st := range statuses {
		if st == f.NotStatus {
			continue
		}
		got, err := r.rdb.ZRangeByScore(ctx, keyStatus(st), &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range got {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
