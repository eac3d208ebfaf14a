package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// userID returns the authenticated user id stored by authMiddleware.
func userID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// authMiddleware verifies the access token from the Authorization header
// (with or without a Bearer prefix) and stores the user id in the request
// context.
func (s *HTTPServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(common.AuthHeaderName)
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			s.writeError(w, r, common.ErrUnauthorized)
			return
		}

		id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(w, r, common.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limiterPool keeps a token-bucket limiter per client IP. Polling clients
// fire a request every couple of seconds, so the bucket is sized well above
// that.
type limiterPool struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
}

func newLimiterPool() *limiterPool {
	return &limiterPool{m: make(map[string]*rate.Limiter)}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(10), 30)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
