package api

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"

    "routeopt/internal/model"
    "routeopt/internal/store"
)

// JobsHandler handles POST/GET /v1/jobs
func (s *Server) JobsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var j model.Job
        if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if j.ID == "" {
            j.ID = uuid.New().String()
        }
        if err := j.Validate(); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid job", err.Error(), r.URL.Path)
            return
        }
        created, err := s.Store.CreateJob(r.Context(), j)
        if err != nil {
            writeStoreError(w, r, "Create job failed", err)
            return
        }
        writeJSON(w, http.StatusCreated, created)
    case http.MethodGet:
        items, err := s.Store.ListJobs(r.Context())
        if err != nil {
            writeStoreError(w, r, "List jobs failed", err)
            return
        }
        if items == nil {
            items = []model.Job{}
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// JobByIDHandler handles GET/PUT/DELETE /v1/jobs/{id}
func (s *Server) JobByIDHandler(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
    if id == "" || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    switch r.Method {
    case http.MethodGet:
        j, err := s.Store.GetJob(r.Context(), id)
        if err != nil {
            writeStoreError(w, r, "Get job failed", err)
            return
        }
        writeJSON(w, http.StatusOK, j)
    case http.MethodPut:
        var j model.Job
        if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        j.ID = id
        if err := j.Validate(); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid job", err.Error(), r.URL.Path)
            return
        }
        updated, err := s.Store.UpdateJob(r.Context(), j)
        if err != nil {
            writeStoreError(w, r, "Update job failed", err)
            return
        }
        writeJSON(w, http.StatusOK, updated)
    case http.MethodDelete:
        if err := s.Store.DeleteJob(r.Context(), id); err != nil {
            writeStoreError(w, r, "Delete job failed", err)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// VehiclesHandler handles POST/GET /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var v model.Vehicle
        if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if v.ID == "" {
            v.ID = uuid.New().String()
        }
        if err := v.Validate(); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid vehicle", err.Error(), r.URL.Path)
            return
        }
        created, err := s.Store.CreateVehicle(r.Context(), v)
        if err != nil {
            writeStoreError(w, r, "Create vehicle failed", err)
            return
        }
        writeJSON(w, http.StatusCreated, created)
    case http.MethodGet:
        items, err := s.Store.ListVehicles(r.Context())
        if err != nil {
            writeStoreError(w, r, "List vehicles failed", err)
            return
        }
        if items == nil {
            items = []model.Vehicle{}
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// VehicleByIDHandler handles GET/PUT/DELETE /v1/vehicles/{id}
func (s *Server) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
    if id == "" || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    switch r.Method {
    case http.MethodGet:
        v, err := s.Store.GetVehicle(r.Context(), id)
        if err != nil {
            writeStoreError(w, r, "Get vehicle failed", err)
            return
        }
        writeJSON(w, http.StatusOK, v)
    case http.MethodPut:
        var v model.Vehicle
        if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        v.ID = id
        if err := v.Validate(); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid vehicle", err.Error(), r.URL.Path)
            return
        }
        updated, err := s.Store.UpdateVehicle(r.Context(), v)
        if err != nil {
            writeStoreError(w, r, "Update vehicle failed", err)
            return
        }
        writeJSON(w, http.StatusOK, updated)
    case http.MethodDelete:
        if err := s.Store.DeleteVehicle(r.Context(), id); err != nil {
            writeStoreError(w, r, "Delete vehicle failed", err)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// OptimizeHandler handles POST /v1/optimize. By default it runs the
// optimization synchronously and returns the terminal result; with
// ?async=true it returns 202 with the result ID immediately and stores the
// result when the run finishes.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.OptimizationRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateOptimizeRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
        return
    }

    if r.URL.Query().Get("async") == "true" {
        id := uuid.New().String()
        pending := model.OptimizationResult{
            ID:               id,
            Status:           model.StatusPending,
            Routes:           []model.Route{},
            OptimizationType: req.OptimizationType,
        }
        if err := s.Store.SaveResult(r.Context(), pending); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
            return
        }
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
            defer cancel()
            res, err := s.Opt.OptimizeWithID(ctx, id, req)
            if err != nil {
                log.Printf("async optimize %s rejected: %v", id, err)
                res = &model.OptimizationResult{
                    ID:     id,
                    Status: model.StatusFailed,
                    Routes: []model.Route{},
                    Errors: []string{err.Error()},
                }
            }
            if serr := s.Store.SaveResult(ctx, *res); serr != nil {
                log.Printf("save result %s: %v", id, serr)
            }
        }()
        writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": model.StatusPending})
        return
    }

    res, err := s.Opt.Optimize(r.Context(), req)
    if err != nil {
        var verr *model.ValidationError
        if errors.As(err, &verr) {
            writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
        return
    }
    if serr := s.Store.SaveResult(r.Context(), *res); serr != nil {
        log.Printf("save result %s: %v", res.ID, serr)
    }
    writeJSON(w, http.StatusOK, res)
}

// OptimizationsHandler handles GET /v1/optimizations
func (s *Server) OptimizationsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    limit := 50
    if v := r.URL.Query().Get("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            limit = n
        }
    }
    items, err := s.Store.ListResults(r.Context(), limit)
    if err != nil {
        writeStoreError(w, r, "List optimizations failed", err)
        return
    }
    if items == nil {
        items = []model.OptimizationResult{}
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// OptimizationByIDHandler handles GET /v1/optimizations/{id} and the
// WebSocket event stream at /v1/optimizations/{id}/events.
func (s *Server) OptimizationByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/optimizations/")
    if rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    if id, ok := strings.CutSuffix(rest, "/events"); ok {
        s.streamEvents(w, r, id)
        return
    }
    if strings.Contains(rest, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    res, err := s.Store.GetResult(r.Context(), rest)
    if err != nil {
        writeStoreError(w, r, "Get optimization failed", err)
        return
    }
    writeJSON(w, http.StatusOK, res)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil {
        writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// CacheStatsHandler reports matrix cache effectiveness.
func (s *Server) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
    hits, misses := s.Cache.Stats()
    writeJSON(w, http.StatusOK, map[string]any{
        "hits":     hits,
        "misses":   misses,
        "entries":  s.Cache.Len(),
        "capacity": s.Cache.Capacity(),
    })
}

func writeStoreError(w http.ResponseWriter, r *http.Request, title string, err error) {
    switch {
    case errors.Is(err, store.ErrNotFound):
        writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
    case errors.Is(err, store.ErrConflict):
        writeProblem(w, http.StatusConflict, "Conflict", err.Error(), r.URL.Path)
    default:
        writeProblem(w, http.StatusInternalServerError, title, err.Error(), r.URL.Path)
    }
}
