package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// RedisJournal keeps submissions in Redis. Outcomes live in a hash keyed by
// submission id; a sorted set scored by request time (ms) orders them.
type RedisJournal struct {
	client *redis.Client
	prefix string
}

// NewRedisJournal wraps an existing client. prefix namespaces the keys.
func NewRedisJournal(client *redis.Client, prefix string) *RedisJournal {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "crptdoc"
	}
	return &RedisJournal{client: client, prefix: prefix}
}

// OpenRedis connects to the configured server and verifies it answers.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*RedisJournal, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis journal: %w", err)
	}
	return NewRedisJournal(client, cfg.Key), nil
}

func (r *RedisJournal) indexKey() string {
	return r.prefix + ":submissions"
}

func (r *RedisJournal) dataKey() string {
	return r.prefix + ":submission"
}

// RecordSubmission stores one outcome, replacing an entry with the same id.
func (r *RedisJournal) RecordSubmission(ctx context.Context, outcome *core.SubmissionOutcome) error {
	if r == nil || r.client == nil {
		return errors.New("redis journal is not initialized")
	}
	if outcome == nil {
		return errors.New("outcome is required")
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	id := outcome.Provenance.SubmissionID
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.dataKey(), id, payload)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{
			Score:  float64(outcome.Provenance.RequestedAt.UnixMilli()),
			Member: id,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// ListSubmissions returns matching entries, newest first.
func (r *RedisJournal) ListSubmissions(ctx context.Context, q SubmissionQuery) ([]core.SubmissionOutcome, error) {
	entries, err := r.matching(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries, nil
}

func (r *RedisJournal) CountSubmissions(ctx context.Context, q SubmissionQuery) (int, error) {
	entries, err := r.matching(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (r *RedisJournal) PurgeSubmissions(ctx context.Context, q SubmissionQuery) (int64, error) {
	entries, err := r.matching(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(entries))
	members := make([]any, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Provenance.SubmissionID)
		members = append(members, entry.Provenance.SubmissionID)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.indexKey(), members...)
		pipe.HDel(ctx, r.dataKey(), ids...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}
	return int64(len(ids)), nil
}

// Close closes the underlying Redis client.
func (r *RedisJournal) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *RedisJournal) matching(ctx context.Context, q SubmissionQuery) ([]core.SubmissionOutcome, error) {
	if r == nil || r.client == nil {
		return nil, errors.New("redis journal is not initialized")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	span := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !q.Since.IsZero() {
		span.Min = strconv.FormatInt(q.Since.UnixMilli(), 10)
	}
	if !q.Before.IsZero() {
		span.Max = "(" + strconv.FormatInt(q.Before.UnixMilli(), 10)
	}

	ids, err := r.client.ZRevRangeByScore(ctx, r.indexKey(), span).Result()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if len(ids) == 0 {
		return []core.SubmissionOutcome{}, nil
	}

	payloads, err := r.client.HMGet(ctx, r.dataKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	entries := []core.SubmissionOutcome{}
	for _, raw := range payloads {
		payload, ok := raw.(string)
		if !ok {
			// index entry without data
			continue
		}
		var outcome core.SubmissionOutcome
		if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		if q.matches(&outcome) {
			entries = append(entries, outcome)
		}
	}
	return entries, nil
}
