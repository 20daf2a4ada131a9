package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const reportKeyPrefix = "report:"

// ReportCache stores computed report payloads keyed by report name and query
// parameters.
type ReportCache interface {
	Get(ctx context.Context, report string, params map[string]string, dest any) (bool, error)
	Set(ctx context.Context, report string, params map[string]string, value any) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	if client == nil {
		return &noopReportCache{}
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisReportCache{client: client, ttl: ttl}
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, report string, params map[string]string, dest any) (bool, error) {
	key := buildReportKey(report, params)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode %s report cache: %w", report, err)
	}
	return true, nil
}

func (c *redisReportCache) Set(ctx context.Context, report string, params map[string]string, value any) error {
	key := buildReportKey(report, params)
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s report cache: %w", report, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, scanBatchSize)
}

func (n *noopReportCache) Get(ctx context.Context, report string, params map[string]string, dest any) (bool, error) {
	return false, nil
}

func (n *noopReportCache) Set(ctx context.Context, report string, params map[string]string, value any) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(report string, params map[string]string) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	if len(parts) == 0 {
		return reportKeyPrefix + report + ":default"
	}
	sort.Strings(parts)

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return reportKeyPrefix + report + ":" + hex.EncodeToString(hash[:])
}
