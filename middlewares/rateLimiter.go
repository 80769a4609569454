package middlewares

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"civicsync-api/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Counter is a windowed counter store.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisCounter keeps counters in Redis so limits hold across instances.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *RedisCounter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

// MemoryCounter is a single-process Counter used when Redis is not
// configured.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count   int64
	expires time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryCounter) liveLocked(key string) memoryEntry {
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return memoryEntry{}
	}
	return e
}

func (m *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.liveLocked(key)
	e.count++
	m.entries[key] = e
	return e.count, nil
}

func (m *MemoryCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.liveLocked(key)
	e.expires = m.now().Add(ttl)
	m.entries[key] = e
	return nil
}

func (m *MemoryCounter) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.liveLocked(key)
	if e.expires.IsZero() {
		return -1, nil
	}
	return e.expires.Sub(m.now()), nil
}

// Limit describes one rate limit.
type Limit struct {
	Name    string
	Prefix  string
	Max     int64
	Window  time.Duration
	Message string
	// Key identifies the client; ok=false skips limiting.
	Key func(c *gin.Context) (string, bool)
}

// RateLimiter counts requests per key inside a fixed window and rejects the
// request once Max is exceeded. Store errors let the request through.
func RateLimiter(counter Counter, l Limit, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := l.Key(c)
		if counter == nil || !ok || l.Max <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := l.Prefix + ":" + id

		count, err := counter.Incr(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("limiter", l.Name).Msg("rate limit counter unavailable")
			c.Next()
			return
		}
		// first hit opens the window
		if count == 1 {
			if err := counter.Expire(ctx, key, l.Window); err != nil {
				log.Warn().Err(err).Str("limiter", l.Name).Msg("rate limit expiry not set")
			}
		}

		if count > l.Max {
			retryAfter, _ := counter.TTL(ctx, key)
			if retryAfter < 0 {
				retryAfter = l.Window
			}
			metrics.RateLimited.WithLabelValues(l.Name).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     l.Message,
				"retry_after": retryAfter.Seconds(),
			})
			return
		}
		c.Next()
	}
}

// IssueRateLimiter caps issue creation per user per day. It must run after
// AuthMiddleware.
func IssueRateLimiter(counter Counter, prefix string, limit int, log zerolog.Logger) gin.HandlerFunc {
	return RateLimiter(counter, Limit{
		Name:    "issue_daily",
		Prefix:  prefix,
		Max:     int64(limit),
		Window:  24 * time.Hour,
		Message: "Daily issue limit reached, please try again later",
		Key: func(c *gin.Context) (string, bool) {
			id := c.GetString(ctxUserID)
			return id, id != ""
		},
	}, log)
}

// APIRateLimiter caps requests per client IP.
func APIRateLimiter(counter Counter, max int, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return RateLimiter(counter, Limit{
		Name:    "api",
		Prefix:  "ratelimit:api",
		Max:     int64(max),
		Window:  window,
		Message: "Too many requests from this IP, please try again later.",
		Key: func(c *gin.Context) (string, bool) {
			return c.ClientIP(), true
		},
	}, log)
}
