// Package optimize is the orchestration entry point: it sequences schedule
// generation, problem compilation, solving, and result formatting, and owns
// the result status state machine.
package optimize

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"routeopt/internal/compile"
	"routeopt/internal/matrix"
	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/schedule"
	"routeopt/internal/solve"
)

// Optimizer runs route optimizations against an injected matrix cache and
// provider so tests can instantiate isolated instances.
type Optimizer struct {
	cache    *matrix.Cache
	provider matrix.Provider
	notify   Notifier
}

func New(cache *matrix.Cache, provider matrix.Provider) *Optimizer {
	return &Optimizer{cache: cache, provider: provider}
}

// Notifier receives lifecycle transitions for in-flight optimizations.
// Nil means no one is listening.
type Notifier interface {
	OptimizationEvent(id string, status model.OptimizationStatus, data map[string]any)
}

func (o *Optimizer) SetNotifier(n Notifier) { o.notify = n }

func (o *Optimizer) emit(res *model.OptimizationResult, data map[string]any) {
	if o.notify != nil {
		o.notify.OptimizationEvent(res.ID, res.Status, data)
	}
}

// Optimize produces exactly one terminal result per call. It returns a
// non-nil error only for programmer-error-level input violations caught
// before any work starts; every later failure (validation, matrix fetch,
// solving, panic) is converted into a FAILED result instead of escaping.
func (o *Optimizer) Optimize(ctx context.Context, req model.OptimizationRequest) (*model.OptimizationResult, error) {
	return o.OptimizeWithID(ctx, uuid.New().String(), req)
}

// OptimizeWithID is Optimize with a caller-chosen result ID, so callers that
// run the optimization asynchronously can hand out the ID up front.
func (o *Optimizer) OptimizeWithID(ctx context.Context, id string, req model.OptimizationRequest) (res *model.OptimizationResult, err error) {
	if len(req.Vehicles) == 0 {
		return nil, model.Validationf("at least one vehicle must be provided")
	}
	for i, v := range req.Vehicles {
		if v.StartLocation == nil {
			return nil, model.Validationf("vehicle at index %d has no start location", i)
		}
	}
	for i, j := range req.Jobs {
		if j.Location == nil {
			return nil, model.Validationf("job at index %d has no location", i)
		}
	}

	optType := req.OptimizationType
	if optType == "" {
		optType = model.OptimizeDuration
	}
	opts := req.Options.WithDefaults()

	res = &model.OptimizationResult{
		ID:               id,
		Status:           model.StatusPending,
		Routes:           []model.Route{},
		OptimizationType: optType,
		Metadata:         map[string]any{},
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("optimize %s: panic recovered: %v", res.ID, r)
			o.fail(res, fmt.Errorf("internal error: %v", r))
		}
	}()

	started := time.Now()
	res.Status = model.StatusInProgress
	o.emit(res, map[string]any{"vehicles": len(req.Vehicles), "jobs": len(req.Jobs)})

	schedules, serr := schedule.BuildSchedules(req.Vehicles, req.PlanningHorizon)
	if serr != nil {
		return o.fail(res, serr), nil
	}

	// An empty job list is a valid request: nothing to route, no matrix
	// fetch, completed with zero totals.
	if len(req.Jobs) == 0 {
		o.finish(res, started, 0, len(req.Vehicles), len(schedules))
		return res, nil
	}

	cp, cerr := compile.Compile(ctx, o.cache, o.provider, req.Vehicles, req.Jobs, opts)
	if cerr != nil {
		return o.fail(res, cerr), nil
	}

	budget := time.Duration(opts.TimeBudgetSec) * time.Second
	raw, verr := solve.SolveProblem(ctx, cp, optType, budget, opts.Seed)
	if verr != nil {
		return o.fail(res, verr), nil
	}

	routes := formatRoutes(raw, cp, schedules)
	jobsByID := make(map[string]model.Job, len(req.Jobs))
	for _, j := range req.Jobs {
		jobsByID[j.ID] = j
	}
	assignToSchedules(routes, jobsByID, schedules)

	res.Routes = routes
	for _, r := range routes {
		res.TotalDistance += r.TotalDistance
		res.TotalDuration += r.TotalDuration
		res.TotalCost += r.TotalCost
	}

	unassigned := make([]string, 0, len(raw.UnassignedJobs))
	for _, ji := range raw.UnassignedJobs {
		unassigned = append(unassigned, cp.Jobs[ji].ID)
	}
	res.Metadata["unassignedJobs"] = unassigned
	res.Metadata["solverIterations"] = raw.Metrics.Iterations
	res.Metadata["solverImprovements"] = raw.Metrics.Improvements
	res.Metadata["profile"] = opts.Profile

	o.finish(res, started, len(req.Jobs), len(req.Vehicles), len(schedules))
	return res, nil
}

func (o *Optimizer) finish(res *model.OptimizationResult, started time.Time, jobs, vehicles, scheduled int) {
	hits, misses := o.cache.Stats()
	res.Metadata["cacheHits"] = hits
	res.Metadata["cacheMisses"] = misses
	res.Metadata["vehicleCount"] = vehicles
	res.Metadata["jobCount"] = jobs
	res.Metadata["scheduledVehicles"] = scheduled
	res.Metadata["elapsedMs"] = time.Since(started).Milliseconds()
	res.Status = model.StatusCompleted
	metrics.Optimizations.WithLabelValues(string(res.OptimizationType), string(res.Status)).Inc()
	o.emit(res, map[string]any{
		"routes":        len(res.Routes),
		"totalDistance": res.TotalDistance,
		"totalDuration": res.TotalDuration,
	})
}

// fail moves the result to its FAILED terminal state, preserving the error
// message. Solver infeasibility and external-service failures both land
// here; they stay distinguishable by message category.
func (o *Optimizer) fail(res *model.OptimizationResult, err error) *model.OptimizationResult {
	log.Printf("optimize %s: %v", res.ID, err)
	res.Status = model.StatusFailed
	res.Errors = append(res.Errors, err.Error())
	hits, misses := o.cache.Stats()
	res.Metadata["cacheHits"] = hits
	res.Metadata["cacheMisses"] = misses
	metrics.Optimizations.WithLabelValues(string(res.OptimizationType), string(res.Status)).Inc()
	o.emit(res, map[string]any{"error": err.Error()})
	return res
}
