package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ats:analytics"

// Cache stores computed reports. Keys embed a per-company version, so
// bumping the version invalidates every report of the company at once.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Version(ctx context.Context, companyID uuid.UUID) (int64, error)
	Invalidate(ctx context.Context, companyID uuid.UUID) error
}

// NewRedisClient creates a go-redis client.
func NewRedisClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})
}

// Ping checks that redis is reachable.
func Ping(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}

// RedisCache is a Cache storing JSON values in redis
type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps a redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get decodes the value at key into dst. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON with a TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Version returns the company's current cache version, 0 when never bumped.
func (c *RedisCache) Version(ctx context.Context, companyID uuid.UUID) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(companyID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache version: %w", err)
	}
	return v, nil
}

// Invalidate bumps the company's cache version. Old entries expire on their TTL.
func (c *RedisCache) Invalidate(ctx context.Context, companyID uuid.UUID) error {
	if err := c.client.Incr(ctx, versionKey(companyID)).Err(); err != nil {
		return fmt.Errorf("failed to bump cache version: %w", err)
	}
	return nil
}

func versionKey(companyID uuid.UUID) string {
	return keyPrefix + ":v:" + companyID.String()
}

// reportKey names one cached report. Recruiters get their own entries since
// they see a subset of the company.
func reportKey(report string, version int64, q Query) string {
	scope := "all"
	if q.Principal().IsRecruiter() {
		scope = "recruiter:" + q.ActorID.String()
	}
	return strings.Join([]string{
		keyPrefix,
		q.CompanyID.String(),
		"v" + strconv.FormatInt(version, 10),
		report,
		scope,
		filtersHash(q.Filters),
	}, ":")
}

func filtersHash(f Filters) string {
	var b strings.Builder
	writeTime := func(t *time.Time) {
		if t != nil {
			b.WriteString(t.UTC().Format(time.RFC3339Nano))
		}
		b.WriteByte('|')
	}
	writeTime(f.From)
	writeTime(f.To)
	b.WriteString(strings.ToLower(f.Department))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(f.Location))
	b.WriteByte('|')
	if f.JobID != nil {
		b.WriteString(f.JobID.String())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
