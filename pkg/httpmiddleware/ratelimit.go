package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the fixed-window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the window duration.
	Window time.Duration
	// KeyFunc extracts the limiter key from a request. Defaults to the
	// client IP (X-Forwarded-For aware).
	KeyFunc func(*http.Request) string
}

type window struct {
	start time.Time
	count int
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

// allow counts the request against its key's current window and reports
// whether it fits, together with the window reset time.
func (l *limiter) allow(key string, now time.Time) (resetAt time.Time, allowed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.start.Add(l.cfg.Window), w.count <= l.cfg.Max
}

// sweep drops windows that ended before now.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

// RateLimit returns a middleware enforcing a per-client fixed-window rate
// limit. Stale windows are swept by a background goroutine tied to ctx.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	l := &limiter{cfg: cfg, windows: make(map[string]*window)}

	go func() {
		ticker := time.NewTicker(cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.sweep(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resetAt, ok := l.allow(cfg.KeyFunc(r), time.Now())
			if !ok {
				retry := max(int(time.Until(resetAt).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// First hop in X-Forwarded-For is the originating client.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
