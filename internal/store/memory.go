package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "routeopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu       sync.Mutex
    jobs     map[string]model.Job
    vehicles map[string]model.Vehicle
    results  map[string]model.OptimizationResult
    resOrder []string // result ids, oldest first
    savedAt  map[string]time.Time
}

func NewMemory() *Memory {
    return &Memory{
        jobs:     map[string]model.Job{},
        vehicles: map[string]model.Vehicle{},
        results:  map[string]model.OptimizationResult{},
        savedAt:  map[string]time.Time{},
    }
}

func (m *Memory) CreateJob(ctx context.Context, j model.Job) (model.Job, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.jobs[j.ID]; ok {
        return model.Job{}, ErrConflict
    }
    m.jobs[j.ID] = j
    return j, nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (model.Job, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    j, ok := m.jobs[id]
    if !ok {
        return model.Job{}, ErrNotFound
    }
    return j, nil
}

func (m *Memory) ListJobs(ctx context.Context) ([]model.Job, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := make([]model.Job, 0, len(m.jobs))
    for _, j := range m.jobs {
        out = append(out, j)
    }
    sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
    return out, nil
}

func (m *Memory) UpdateJob(ctx context.Context, j model.Job) (model.Job, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.jobs[j.ID]; !ok {
        return model.Job{}, ErrNotFound
    }
    m.jobs[j.ID] = j
    return j, nil
}

func (m *Memory) DeleteJob(ctx context.Context, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.jobs[id]; !ok {
        return ErrNotFound
    }
    delete(m.jobs, id)
    return nil
}

func (m *Memory) CreateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.vehicles[v.ID]; ok {
        return model.Vehicle{}, ErrConflict
    }
    m.vehicles[v.ID] = v
    return v, nil
}

func (m *Memory) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    v, ok := m.vehicles[id]
    if !ok {
        return model.Vehicle{}, ErrNotFound
    }
    return v, nil
}

func (m *Memory) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := make([]model.Vehicle, 0, len(m.vehicles))
    for _, v := range m.vehicles {
        out = append(out, v)
    }
    sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
    return out, nil
}

func (m *Memory) UpdateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.vehicles[v.ID]; !ok {
        return model.Vehicle{}, ErrNotFound
    }
    m.vehicles[v.ID] = v
    return v, nil
}

func (m *Memory) DeleteVehicle(ctx context.Context, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.vehicles[id]; !ok {
        return ErrNotFound
    }
    delete(m.vehicles, id)
    return nil
}

func (m *Memory) SaveResult(ctx context.Context, res model.OptimizationResult) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.results[res.ID]; !ok {
        m.resOrder = append(m.resOrder, res.ID)
    }
    m.results[res.ID] = res
    m.savedAt[res.ID] = time.Now()
    return nil
}

func (m *Memory) GetResult(ctx context.Context, id string) (model.OptimizationResult, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    res, ok := m.results[id]
    if !ok {
        return model.OptimizationResult{}, ErrNotFound
    }
    return res, nil
}

// ListResults returns the most recent results first.
func (m *Memory) ListResults(ctx context.Context, limit int) ([]model.OptimizationResult, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := make([]model.OptimizationResult, 0, len(m.resOrder))
    for i := len(m.resOrder) - 1; i >= 0; i-- {
        out = append(out, m.results[m.resOrder[i]])
        if limit > 0 && len(out) >= limit {
            break
        }
    }
    return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
