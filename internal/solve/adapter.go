// Package solve adapts the compiled routing problem onto the ALNS engine
// and translates raw engine output for the result formatter.
package solve

import (
	"context"
	"time"

	"routeopt/internal/compile"
	"routeopt/internal/metrics"
	"routeopt/internal/model"
)

// Visit is one served job with its schedule, in elapsed seconds.
type Visit struct {
	JobIndex  int // index into the compiled job list
	Arrival   int
	Departure int
	Wait      int
}

// BreakVisit is a taken break placed after the given visit (-1 = before the
// first job).
type BreakVisit struct {
	ID         string
	AfterVisit int
	Start      int
	End        int
}

// VehicleRoute is one vehicle's raw visit sequence.
type VehicleRoute struct {
	VehicleID  string
	Visits     []Visit
	Breaks     []BreakVisit
	EndArrival int
	DriveSec   float64
	DistM      float64
	WaitSec    int
	BreakSec   int
}

// RawSolution is the solver's output before domain formatting.
type RawSolution struct {
	Vehicles       []VehicleRoute
	UnassignedJobs []int // indices into the compiled job list
	Cost           float64
	Metrics        Metrics
}

// SolveProblem runs the engine against the compiled problem on an isolated
// worker goroutine under the wall-clock budget. Domain infeasibility is
// returned as a SolverFailure, never as a panic or system error.
func SolveProblem(ctx context.Context, cp *compile.Problem, optType model.OptimizationType, budget time.Duration, seed int64) (*RawSolution, error) {
	ep := buildEngineProblem(cp, optType)

	objective := string(model.OptimizeDistance)
	if optType == model.OptimizeDuration {
		objective = string(model.OptimizeDuration)
	}
	start := time.Now()

	type outcome struct {
		sol Solution
		m   Metrics
	}
	// The solve is CPU-bound; run it off the caller's goroutine so other
	// optimize calls keep making progress while this one is awaited.
	ch := make(chan outcome, 1)
	go func() {
		sol, m := Solve(ep, seed, budget)
		ch <- outcome{sol: sol, m: m}
	}()

	var o outcome
	select {
	case <-ctx.Done():
		return nil, &model.SolverFailure{Reason: "solve aborted: " + ctx.Err().Error()}
	case o = <-ch:
	}
	metrics.SolveDuration.WithLabelValues(objective).Observe(time.Since(start).Seconds())

	if len(cp.Jobs) > 0 && len(o.sol.Unassigned) == len(cp.Jobs) {
		return nil, &model.SolverFailure{Reason: "no solution found for the given constraints"}
	}

	raw := &RawSolution{
		UnassignedJobs: append([]int(nil), o.sol.Unassigned...),
		Cost:           o.sol.Cost,
		Metrics:        o.m,
	}
	for vi, pl := range o.sol.Plans {
		v := ep.Vehicles[vi]
		sched, ok := schedulePlan(ep, pl, v)
		if !ok {
			// The engine only keeps feasible plans; a failure here means an
			// internal inconsistency, treated as infeasible output.
			return nil, &model.SolverFailure{Reason: "solver produced an infeasible plan for vehicle " + v.ID}
		}
		vr := VehicleRoute{
			VehicleID:  v.ID,
			EndArrival: sched.endArrival,
			DriveSec:   sched.driveSec,
			DistM:      sched.distM,
			WaitSec:    sched.waitSec,
			BreakSec:   sched.breakSec,
		}
		for _, vis := range sched.visits {
			vr.Visits = append(vr.Visits, Visit{JobIndex: vis.node, Arrival: vis.arrival, Departure: vis.departure, Wait: vis.wait})
		}
		for _, be := range sched.breaks {
			vr.Breaks = append(vr.Breaks, BreakVisit{ID: v.Breaks[be.spec].ID, AfterVisit: be.after, Start: be.start, End: be.end})
		}
		raw.Vehicles = append(raw.Vehicles, vr)
	}
	return raw, nil
}

func buildEngineProblem(cp *compile.Problem, optType model.OptimizationType) Problem {
	ep := Problem{
		Dist:     cp.Matrices.Distances,
		Time:     cp.Matrices.Times,
		Strategy: StrategyDistance,
	}
	if optType == model.OptimizeDuration {
		ep.Strategy = StrategyDuration
	}
	for _, j := range cp.Jobs {
		ep.Nodes = append(ep.Nodes, Node{
			Matrix:   j.Node,
			Service:  j.Service,
			Setup:    j.Setup,
			TWStart:  j.TWStart,
			TWEnd:    j.TWEnd,
			Priority: j.Priority,
		})
	}
	for vi, v := range cp.Vehicles {
		vs := VehicleSpec{
			ID:          v.ID,
			Start:       v.Start,
			End:         v.End,
			TWStart:     v.TWStart,
			TWEnd:       v.TWEnd,
			SpeedFactor: v.SpeedFactor,
			MaxDriveSec: v.MaxDriving,
			MaxDistM:    v.MaxDistance,
			MaxTasks:    v.MaxTasks,
		}
		if cp.Serveable != nil {
			vs.Serveable = cp.Serveable[vi]
		}
		for _, b := range v.Breaks {
			vs.Breaks = append(vs.Breaks, BreakSpec{
				ID:             b.ID,
				Duration:       b.Duration,
				Windows:        b.Windows,
				MaxDriveBefore: b.MaxDriveBefore,
			})
		}
		ep.Vehicles = append(ep.Vehicles, vs)
	}
	for _, pr := range cp.Pairs {
		ep.Pairs = append(ep.Pairs, Pair{Pickup: pr.Pickup, Delivery: pr.Delivery, MaxTransit: pr.MaxTransit})
	}
	return ep
}
