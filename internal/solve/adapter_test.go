package solve

import (
	"context"
	"errors"
	"testing"
	"time"

	"routeopt/internal/compile"
	"routeopt/internal/matrix"
	"routeopt/internal/model"
)

type gridProvider struct{}

func (gridProvider) GetDistanceMatrix(_ context.Context, locs []model.Location, _ string) (matrix.Matrices, error) {
	n := len(locs)
	d := make([][]float64, n)
	t := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		t[i] = make([]float64, n)
		for j := range d[i] {
			if i != j {
				dd := (locs[i].Lat-locs[j].Lat)*(locs[i].Lat-locs[j].Lat) +
					(locs[i].Lng-locs[j].Lng)*(locs[i].Lng-locs[j].Lng)
				d[i][j] = dd * 100000
				t[i][j] = dd * 10000
			}
		}
	}
	return matrix.Matrices{Distances: d, Times: t}, nil
}

func compiled(t *testing.T, vehicles []model.Vehicle, jobs []model.Job) *compile.Problem {
	t.Helper()
	cp, err := compile.Compile(context.Background(), matrix.NewCache(8), gridProvider{}, vehicles, jobs, model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cp
}

func TestSolveProblemAssignsJobs(t *testing.T) {
	vehicles := []model.Vehicle{{ID: "v1", StartLocation: &model.Location{Lat: 0, Lng: 0}}}
	jobs := []model.Job{
		{ID: "j1", Location: &model.Location{Lat: 0.01, Lng: 0}, Duration: 60},
		{ID: "j2", Location: &model.Location{Lat: 0.02, Lng: 0}, Duration: 60},
	}
	cp := compiled(t, vehicles, jobs)
	raw, err := SolveProblem(context.Background(), cp, model.OptimizeDuration, 300*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("SolveProblem: %v", err)
	}
	if len(raw.UnassignedJobs) != 0 {
		t.Fatalf("unassigned: %v", raw.UnassignedJobs)
	}
	var visits int
	for _, vr := range raw.Vehicles {
		prev := -1
		for _, v := range vr.Visits {
			visits++
			if v.Arrival < prev {
				t.Fatalf("arrivals not monotonic: %+v", vr.Visits)
			}
			prev = v.Arrival
			if v.Departure < v.Arrival {
				t.Fatalf("departure before arrival: %+v", v)
			}
		}
	}
	if visits != len(jobs) {
		t.Fatalf("visits = %d, want %d", visits, len(jobs))
	}
}

func TestSolveProblemInfeasibleIsSolverFailure(t *testing.T) {
	// Jobs restricted to a vehicle that does not exist in the plan.
	vehicles := []model.Vehicle{{ID: "v1", StartLocation: &model.Location{Lat: 0, Lng: 0}}}
	jobs := []model.Job{
		{ID: "j1", Location: &model.Location{Lat: 0.01, Lng: 0}, AllowedVehicles: []string{"ghost"}},
	}
	cp := compiled(t, vehicles, jobs)
	_, err := SolveProblem(context.Background(), cp, model.OptimizeDistance, 100*time.Millisecond, 1)
	var sf *model.SolverFailure
	if !errors.As(err, &sf) {
		t.Fatalf("expected SolverFailure, got %v", err)
	}
}

func TestSolveProblemContextCancel(t *testing.T) {
	vehicles := []model.Vehicle{{ID: "v1", StartLocation: &model.Location{Lat: 0, Lng: 0}}}
	jobs := []model.Job{{ID: "j1", Location: &model.Location{Lat: 0.01, Lng: 0}}}
	cp := compiled(t, vehicles, jobs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SolveProblem(ctx, cp, model.OptimizeDuration, 5*time.Second, 1)
	var sf *model.SolverFailure
	if !errors.As(err, &sf) {
		t.Fatalf("expected SolverFailure on cancelled context, got %v", err)
	}
}

func TestSolveProblemBreakTaken(t *testing.T) {
	maxDrive := 50
	vehicles := []model.Vehicle{{
		ID:            "v1",
		StartLocation: &model.Location{Lat: 0, Lng: 0},
		Breaks: []model.VehicleBreak{{
			ID:                            "rest",
			Duration:                      600,
			MaxDrivingDurationBeforeBreak: &maxDrive,
		}},
	}}
	jobs := []model.Job{
		{ID: "j1", Location: &model.Location{Lat: 0.1, Lng: 0}, Duration: 60},
	}
	cp := compiled(t, vehicles, jobs)
	raw, err := SolveProblem(context.Background(), cp, model.OptimizeDuration, 300*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("SolveProblem: %v", err)
	}
	if len(raw.Vehicles) == 0 || len(raw.Vehicles[0].Breaks) == 0 {
		t.Fatalf("forced break not taken: %+v", raw.Vehicles)
	}
	if raw.Vehicles[0].BreakSec < 600 {
		t.Fatalf("break seconds = %d, want >= 600", raw.Vehicles[0].BreakSec)
	}
}
