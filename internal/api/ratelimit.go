package api

import (
    "net/http"
    "sync"

    "golang.org/x/time/rate"
)

// RateLimitMiddleware applies a per-remote-address token bucket.
func RateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
    var mu sync.Mutex
    limiters := map[string]*rate.Limiter{}
    get := func(addr string) *rate.Limiter {
        mu.Lock()
        defer mu.Unlock()
        l, ok := limiters[addr]
        if !ok {
            l = rate.NewLimiter(rate.Limit(rps), burst)
            limiters[addr] = l
        }
        return l
    }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !get(r.RemoteAddr).Allow() {
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}
