// Package cache memoizes analysis results in Redis, keyed by image content
// and the measurement settings that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/andresmejia3/willis/internal/utils"
	"github.com/andresmejia3/willis/internal/willis"
)

const keyPrefix = "willis:result:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache stores analysis results. A miss is (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (willis.Result, bool, error)
	Set(ctx context.Context, key string, res willis.Result) error
	// Clear deletes every cached result and reports how many were removed.
	Clear(ctx context.Context) (int, error)
	Close() error
}

// New connects to the Redis instance at url (redis://[user:pass@]host:port/db).
// An empty url disables caching.
func New(ctx context.Context, url string, ttl time.Duration) (Cache, error) {
	if url == "" {
		return Nop{}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache url: %w", err)
	}

	logrus.Debugf("Connecting to Redis at %s...", opts.Addr)
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Redis is the go-redis backed Cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *Redis) Get(ctx context.Context, key string) (willis.Result, bool, error) {
	var res willis.Result
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, false, nil
	} else if err != nil {
		return res, false, err
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		logrus.WithError(err).Warnf("Discarding unreadable cache entry %s", key)
		return willis.Result{}, false, nil
	}
	return res, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, res willis.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

func (r *Redis) Clear(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return n, err
			}
			n += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return n, err
		}
		n += len(batch)
	}
	return n, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (willis.Result, bool, error) { return willis.Result{}, false, nil }
func (Nop) Set(context.Context, string, willis.Result) error { return nil }
func (Nop) Clear(context.Context) (int, error) { return 0, nil }
func (Nop) Close() error { return nil }

// Fingerprint identifies the settings a result depends on.
func Fingerprint(t willis.Thresholds, estimator string, mesh bool) string {
	raw, _ := json.Marshal(struct {
		T    willis.Thresholds `json:"t"`
		E    string            `json:"e"`
		Mesh bool              `json:"m"`
	}{t, estimator, mesh})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

// Key combines the image content hash with a settings fingerprint.
func Key(image []byte, fingerprint string) string {
	return keyPrefix + utils.ContentID(image) + ":" + fingerprint
}
