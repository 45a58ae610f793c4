package ginserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	perMinute int
	logger    *slog.Logger
	now       func() time.Time
}

func NewRateLimiter(perMinute int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		perMinute: perMinute,
		logger:    logger,
		now:       time.Now,
	}
}

func (l *RateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cl, ok := l.clients[ip]
	if !ok {
		l.prune(now)
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (l *RateLimiter) prune(now time.Time) {
	for ip, cl := range l.clients {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(l.clients, ip)
		}
	}
}

// Middleware rejects requests over the per-minute budget with 429. A
// non-positive budget disables limiting.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.perMinute <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !l.get(ip).Allow() {
			if l.logger != nil {
				l.logger.Warn("rate limit exceeded", "client_ip", ip, "path", c.FullPath())
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later", Retry: true})
			return
		}
		c.Next()
	}
}
