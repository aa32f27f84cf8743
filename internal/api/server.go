package api

import (
    "context"
    "strings"

    "routeopt/internal/config"
    "routeopt/internal/matrix"
    "routeopt/internal/model"
    "routeopt/internal/optimize"
    "routeopt/internal/store"
)

type Server struct {
    Store  store.Store
    Broker EventBroker
    Opt    *optimize.Optimizer
    Cache  *matrix.Cache
    cfg    config.Config
}

// NewServer wires the store, event broker, matrix provider and optimizer
// from the loaded configuration. If DatabaseURL is unset, uses the
// in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if err := sp.Migrate(context.Background()); err != nil {
            return nil, err
        }
        s = sp
    }

    var broker EventBroker
    if cfg.RedisURL != "" {
        rb, err := NewRedisBroker(cfg.RedisURL)
        if err != nil {
            return nil, err
        }
        broker = rb
    } else {
        broker = NewBroker()
    }

    var provider matrix.Provider
    if cfg.MatrixProvider == "graphhopper" {
        provider = matrix.NewGraphHopper(cfg.GraphHopperURL, cfg.GraphHopperKey, cfg.MatrixTimeout.Std())
    } else {
        provider = &matrix.HaversineProvider{}
    }

    cache := matrix.NewCache(cfg.CacheCapacity)
    opt := optimize.New(cache, provider)

    srv := &Server{Store: s, Broker: broker, Opt: opt, Cache: cache, cfg: cfg}
    opt.SetNotifier(srv)
    return srv, nil
}

// OptimizationEvent republishes optimizer lifecycle transitions on the
// event broker.
func (s *Server) OptimizationEvent(id string, status model.OptimizationStatus, data map[string]any) {
    s.Broker.Publish(id, Event{Type: "optimization." + string(status), Data: data})
}
