package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/soullog/internal/model"
)

// RateLimiterConfig はレート制限の設定。
type RateLimiterConfig struct {
	GeneralRate      rate.Limit // API全般（req/sec）
	GeneralBurst     int
	EntryCreateRate  rate.Limit // エントリ作成（req/sec）
	EntryCreateBurst int
	CleanupInterval  time.Duration
}

// RateLimiterConfigPerMinute は1分あたりの許容数から設定を組み立てる。
// バーストは1分ぶんの許容数と同じにする。
func RateLimiterConfigPerMinute(general, entryCreate int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:      rate.Limit(float64(general) / 60.0),
		GeneralBurst:     general,
		EntryCreateRate:  rate.Limit(float64(entryCreate) / 60.0),
		EntryCreateBurst: entryCreate,
		CleanupInterval:  5 * time.Minute,
	}
}

// limiterSet はキー（ユーザーIDまたはクライアントIP）ごとのリミッターを保持する。
type limiterSet struct {
	name  string
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*keyedLimiter
}

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newLimiterSet(name string, limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		name:    name,
		limit:   limit,
		burst:   burst,
		entries: make(map[string]*keyedLimiter),
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	kl, ok := s.entries[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = kl
	}
	kl.lastAccess = now
	s.mu.Unlock()

	return kl.limiter.AllowN(now, 1)
}

func (s *limiterSet) sweep(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, kl := range s.entries {
		if now.Sub(kl.lastAccess) > ttl {
			delete(s.entries, key)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RateLimiter はAPI全般とエントリ作成の2種類のレート制限を管理する。
type RateLimiter struct {
	config      RateLimiterConfig
	general     *limiterSet
	entryCreate *limiterSet

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter はRateLimiterを生成し、アイドルなリミッターの掃除を開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:      config,
		general:     newLimiterSet("general", config.GeneralRate, config.GeneralBurst),
		entryCreate: newLimiterSet("entry_create", config.EntryCreateRate, config.EntryCreateBurst),
		stopCh:      make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop は掃除用ゴルーチンを停止する。複数回呼んでもよい。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general)
}

// EntryCreateMiddleware はエントリ作成専用のレート制限ミドルウェアを返す。
// API全般の制限とは独立にカウントする。
func (rl *RateLimiter) EntryCreateMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.entryCreate)
}

// GeneralLimiterCount は保持しているAPI全般リミッターの数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int { return rl.general.len() }

// EntryCreateLimiterCount は保持しているエントリ作成リミッターの数を返す。
func (rl *RateLimiter) EntryCreateLimiterCount() int { return rl.entryCreate.len() }

func (rl *RateLimiter) middleware(set *limiterSet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			if !set.allow(key, time.Now()) {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", set.name),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(set.limit)))
				WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitKey は認証済みならユーザーID、匿名ならクライアントIPを返す。
func rateLimitKey(r *http.Request) string {
	if userID, err := UserIDFromContext(r.Context()); err == nil {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// retryAfterSeconds は1トークンが補充されるまでの秒数（最低1秒）。
func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	sec := int(math.Ceil(1.0 / float64(limit)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからCleanupIntervalの2倍を超えたリミッターを破棄する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.general.sweep(now, ttl)
	rl.entryCreate.sweep(now, ttl)
}
