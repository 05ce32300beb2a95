package mteam

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	auth "kyri56xcaesar/teamup/internal/authmw"
	"kyri56xcaesar/teamup/internal/metrics"
	"kyri56xcaesar/teamup/internal/mteam/apierr"
)

// memoryEvictEvery is how many increments pass between scans for closed
// windows in the in-process counters.
const memoryEvictEvery = 1024

// windowCounter counts hits per key in a fixed window that opens on the
// first hit. incr returns the hit count including this one and the time the
// window closes.
type windowCounter interface {
	incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
	close() error
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// RateLimiter applies a per-key limit over a windowCounter. Counter errors
// fail open.
type RateLimiter struct {
	counter windowCounter
	logger  *zap.SugaredLogger
}

func newRateLimiter(counter windowCounter, logger *zap.SugaredLogger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RateLimiter{counter: counter, logger: logger}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}

	hits, end, err := rl.counter.incr(ctx, key, window)
	if err != nil {
		rl.logger.Errorw("rate limiter counter failed", "key", key, "error", err)
		return rateDecision{allowed: true}
	}
	return rateDecision{
		allowed:   hits <= int64(limit),
		count:     int(hits),
		windowEnd: end,
	}
}

func (rl *RateLimiter) Close() {
	if err := rl.counter.close(); err != nil {
		rl.logger.Warnw("rate limiter close", "error", err)
	}
}

type memoryWindow struct {
	hits int64
	end  time.Time
}

// memoryCounter keeps windows in process. Closed windows are dropped when
// their key is hit again or by the periodic eviction scan.
type memoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	ops     int
	now     func() time.Time
}

func NewMemoryRateLimiter() *RateLimiter {
	return newRateLimiter(&memoryCounter{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}, nil)
}

func (m *memoryCounter) incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ops++; m.ops%memoryEvictEvery == 0 {
		m.evict(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.end) {
		w = &memoryWindow{end: now.Add(window)}
		m.windows[key] = w
	}
	w.hits++
	return w.hits, w.end, nil
}

func (m *memoryCounter) evict(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.end) {
			delete(m.windows, key)
		}
	}
}

func (m *memoryCounter) close() error { return nil }

// redisCounter shares windows across replicas with INCR and a TTL set on
// the first hit.
type redisCounter struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisRateLimiter shares counters across replicas. It fails when Redis
// is unreachable at startup; later Redis errors let requests through.
func NewRedisRateLimiter(addr, password string, db int, logger *zap.SugaredLogger) (*RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRateLimiter(&redisCounter{
		client:  client,
		prefix:  "teamup:ratelimit:",
		timeout: 250 * time.Millisecond,
	}, logger), nil
}

func (r *redisCounter) incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	key = r.prefix + key
	var (
		hits *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	}); err != nil {
		return 0, time.Time{}, err
	}

	left := ttl.Val()
	if hits.Val() == 1 || left < 0 {
		if err := r.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		left = window
	}
	return hits.Val(), time.Now().Add(left), nil
}

func (r *redisCounter) close() error {
	return r.client.Close()
}

// rateLimit keys on the authenticated user, falling back to the client IP.
// It must run after RequireUser to see the user id.
func rateLimit(limiter *RateLimiter, route string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if uid, ok := auth.UserID(c); ok {
			key = "user:" + uid
		}
		key = route + ":" + key

		decision := limiter.Allow(c.Request.Context(), key, limit, window)
		remaining := max(limit-decision.count, 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !decision.windowEnd.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
		}

		if !decision.allowed {
			metrics.RateLimited(route)
			if retry := time.Until(decision.windowEnd); retry > 0 {
				c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			}
			apierr.WriteApiErrJSON(c, http.StatusTooManyRequests, apierr.TooManyRequests)
			return
		}
		c.Next()
	}
}
