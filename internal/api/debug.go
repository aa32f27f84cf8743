package api

import (
    "encoding/json"
    "net/http"
    "time"

    "routeopt/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "addr":            s.cfg.Addr,
            "matrixProvider":  s.cfg.MatrixProvider,
            "cacheCapacity":   s.cfg.CacheCapacity,
            "rateLimitPerSec": s.cfg.RateLimitPerSec,
            "hasDatabaseUrl":  s.cfg.DatabaseURL != "",
            "hasRedisUrl":     s.cfg.RedisURL != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
