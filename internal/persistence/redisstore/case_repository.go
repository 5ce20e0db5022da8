// Package redisstore keeps case records in a Redis hash, one JSON document per
// case keyed by its id.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-finder/internal/persistence"
)

// DefaultHashKey is the Redis hash holding every case record.
const DefaultHashKey = "cases"

// CaseRepository implements persistence.CaseRepository on top of a Redis hash.
type CaseRepository struct {
	redis   redis.UniversalClient
	hashKey string
}

// NewCaseRepository wraps a Redis client. An empty hashKey selects DefaultHashKey.
func NewCaseRepository(client redis.UniversalClient, hashKey string) *CaseRepository {
	if hashKey == "" {
		hashKey = DefaultHashKey
	}
	return &CaseRepository{redis: client, hashKey: hashKey}
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ListCases returns all cases ordered by CreatedAt ascending.
func (r *CaseRepository) ListCases(ctx context.Context) ([]persistence.Case, error) {
	resultMap, err := r.redis.HGetAll(ctx, r.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	cases := make([]persistence.Case, 0, len(resultMap))
	for id, value := range resultMap {
		c, err := decodeCase(value)
		if err != nil {
			return nil, fmt.Errorf("decode case %s: %w", id, err)
		}
		cases = append(cases, c)
	}
	sort.Slice(cases, func(i, j int) bool {
		if cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].ID < cases[j].ID
		}
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
	return cases, nil
}

// GetCase retrieves a case by ID.
func (r *CaseRepository) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	value, err := r.redis.HGet(ctx, r.hashKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return persistence.Case{}, persistence.ErrNotFound
		}
		return persistence.Case{}, fmt.Errorf("get case %s: %w", id, err)
	}
	c, err := decodeCase(value)
	if err != nil {
		return persistence.Case{}, fmt.Errorf("decode case %s: %w", id, err)
	}
	return c, nil
}

// PutCase inserts or replaces a case.
func (r *CaseRepository) PutCase(ctx context.Context, c persistence.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(c.Clone())
	if err != nil {
		return fmt.Errorf("encode case %s: %w", c.ID, err)
	}
	if err := r.redis.HSet(ctx, r.hashKey, c.ID, payload).Err(); err != nil {
		return fmt.Errorf("put case %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCase removes a case by ID.
func (r *CaseRepository) DeleteCase(ctx context.Context, id string) error {
	removed, err := r.redis.HDel(ctx, r.hashKey, id).Result()
	if err != nil {
		return fmt.Errorf("delete case %s: %w", id, err)
	}
	if removed == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func decodeCase(value string) (persistence.Case, error) {
	var c persistence.Case
	if err := json.Unmarshal([]byte(value), &c); err != nil {
		return persistence.Case{}, err
	}
	return c.Clone(), nil
}
