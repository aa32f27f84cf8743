package optimize

import (
	"context"
	"errors"
	"testing"

	"routeopt/internal/matrix"
	"routeopt/internal/model"
)

type fixedProvider struct {
	fail bool
}

func (p *fixedProvider) GetDistanceMatrix(_ context.Context, locs []model.Location, _ string) (matrix.Matrices, error) {
	if p.fail {
		return matrix.Matrices{}, &model.ExternalServiceError{Service: "graphhopper", Err: errors.New("upstream down")}
	}
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
				d[i][j] = dd * 1e7
				t[i][j] = dd * 1e6
			}
		}
	}
	return matrix.Matrices{Distances: d, Times: t}, nil
}

func newTestOptimizer(p matrix.Provider) *Optimizer {
	return New(matrix.NewCache(16), p)
}

func baseRequest() model.OptimizationRequest {
	return model.OptimizationRequest{
		Vehicles: []model.Vehicle{
			{ID: "v1", Type: model.VehicleCar, StartLocation: &model.Location{Lat: 0, Lng: 0}},
		},
		Jobs: []model.Job{
			{ID: "j1", Location: &model.Location{Lat: 0.01, Lng: 0}, Duration: 120},
			{ID: "j2", Location: &model.Location{Lat: 0.02, Lng: 0}, Duration: 60},
		},
		Options: model.Options{TimeBudgetSec: 1, Seed: 42},
	}
}

func TestOptimizeCompletes(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	res, err := o.Optimize(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Fatalf("status = %s, errors = %v", res.Status, res.Errors)
	}
	if res.ID == "" {
		t.Fatal("result has no id")
	}
	if len(res.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(res.Routes))
	}
	r := res.Routes[0]
	if r.Stops[0].Type != "start" || r.Stops[len(r.Stops)-1].Type != "end" {
		t.Fatalf("route not bracketed by depot stops: %+v", r.Stops)
	}
	jobStops := 0
	var sumDist float64
	var sumDur int
	for _, s := range r.Stops {
		if s.Type == "job" {
			jobStops++
		}
		sumDist += s.Distance
		sumDur += s.Duration
	}
	if jobStops != 2 {
		t.Fatalf("job stops = %d, want 2", jobStops)
	}
	if r.TotalDistance != sumDist {
		t.Fatalf("route total %.1f != stop sum %.1f", r.TotalDistance, sumDist)
	}
	if r.TotalDuration != sumDur {
		t.Fatalf("route duration %d != stop sum %d", r.TotalDuration, sumDur)
	}
	if res.TotalDistance != r.TotalDistance || res.TotalDuration != r.TotalDuration {
		t.Fatal("grand totals do not match route totals")
	}
	if res.Metadata["jobCount"] != 2 {
		t.Fatalf("metadata = %v", res.Metadata)
	}
}

func TestOptimizeEmptyVehiclesIsError(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	req := baseRequest()
	req.Vehicles = nil
	_, err := o.Optimize(context.Background(), req)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestOptimizeEmptyJobsCompletesWithoutFetch(t *testing.T) {
	p := &fixedProvider{fail: true} // any matrix fetch would fail the run
	o := newTestOptimizer(p)
	req := baseRequest()
	req.Jobs = nil
	res, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Fatalf("status = %s, errors = %v", res.Status, res.Errors)
	}
	if len(res.Routes) != 0 || res.TotalDistance != 0 || res.TotalDuration != 0 || res.TotalCost != 0 {
		t.Fatalf("empty run must have zero totals: %+v", res)
	}
}

func TestOptimizeProviderFailureIsFailedResult(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{fail: true})
	res, err := o.Optimize(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("provider failure must not escape as error: %v", err)
	}
	if res.Status != model.StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Errors) == 0 {
		t.Fatal("failed result carries no error message")
	}
}

func TestOptimizeInfeasibleJobsIsFailedResult(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	req := baseRequest()
	for i := range req.Jobs {
		req.Jobs[i].AllowedVehicles = []string{"ghost"}
	}
	res, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Status != model.StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestOptimizeUnassignedReported(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	req := baseRequest()
	// Second job only serveable by a vehicle that is not there.
	req.Jobs[1].AllowedVehicles = []string{"ghost"}
	res, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Fatalf("status = %s, errors = %v", res.Status, res.Errors)
	}
	un, ok := res.Metadata["unassignedJobs"].([]string)
	if !ok || len(un) != 1 || un[0] != "j2" {
		t.Fatalf("unassignedJobs = %v", res.Metadata["unassignedJobs"])
	}
}

func TestOptimizeCacheReuseAcrossRuns(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	req := baseRequest()
	if _, err := o.Optimize(context.Background(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Metadata["cacheHits"].(int64) < 1 {
		t.Fatalf("second run did not hit the cache: %v", res.Metadata)
	}
}

func TestOptimizeNotifierSeesLifecycle(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	var events []model.OptimizationStatus
	o.SetNotifier(notifierFunc(func(_ string, st model.OptimizationStatus, _ map[string]any) {
		events = append(events, st)
	}))
	if _, err := o.Optimize(context.Background(), baseRequest()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(events) != 2 || events[0] != model.StatusInProgress || events[1] != model.StatusCompleted {
		t.Fatalf("events = %v", events)
	}
}

func TestOptimizeNoDuplicateAssignment(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	req := model.OptimizationRequest{
		Vehicles: []model.Vehicle{
			{ID: "v1", StartLocation: &model.Location{Lat: 0, Lng: 0}},
			{ID: "v2", StartLocation: &model.Location{Lat: 0, Lng: 0.05}},
		},
		Jobs: []model.Job{
			{ID: "j1", Location: &model.Location{Lat: 0.01, Lng: 0}, Duration: 60},
			{ID: "j2", Location: &model.Location{Lat: 0.02, Lng: 0}, Duration: 60},
			{ID: "j3", Location: &model.Location{Lat: 0, Lng: 0.04}, Duration: 60},
			{ID: "j4", Location: &model.Location{Lat: 0, Lng: 0.06}, Duration: 60},
		},
		Options: model.Options{TimeBudgetSec: 1, Seed: 5},
	}
	res, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Fatalf("status = %s, errors = %v", res.Status, res.Errors)
	}
	seen := map[string]int{}
	for _, r := range res.Routes {
		for _, s := range r.Stops {
			if s.JobID != "" {
				seen[s.JobID]++
			}
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Fatalf("job %s assigned %d times", id, n)
		}
	}
	un := res.Metadata["unassignedJobs"].([]string)
	if len(seen)+len(un) != len(req.Jobs) {
		t.Fatalf("assigned %d + unassigned %d != %d jobs", len(seen), len(un), len(req.Jobs))
	}
}

func TestOptimizeDurationObjectiveNoWorseThanDistance(t *testing.T) {
	o := newTestOptimizer(&fixedProvider{})
	req := model.OptimizationRequest{
		Vehicles: []model.Vehicle{
			{ID: "v1", StartLocation: &model.Location{Lat: 0, Lng: 0}},
			{ID: "v2", StartLocation: &model.Location{Lat: 0, Lng: 0}},
		},
		Jobs: []model.Job{
			{ID: "j1", Location: &model.Location{Lat: 0.01, Lng: 0}},
			{ID: "j2", Location: &model.Location{Lat: 0, Lng: 0.02}},
		},
		Options: model.Options{TimeBudgetSec: 1, Seed: 9},
	}
	req.OptimizationType = model.OptimizeDuration
	byDur, err := o.Optimize(context.Background(), req)
	if err != nil || byDur.Status != model.StatusCompleted {
		t.Fatalf("duration run: %v %+v", err, byDur)
	}
	req.OptimizationType = model.OptimizeDistance
	byDist, err := o.Optimize(context.Background(), req)
	if err != nil || byDist.Status != model.StatusCompleted {
		t.Fatalf("distance run: %v %+v", err, byDist)
	}
	if byDur.TotalDuration > byDist.TotalDuration {
		t.Fatalf("duration objective yielded %d s, distance objective %d s", byDur.TotalDuration, byDist.TotalDuration)
	}
}

type notifierFunc func(id string, st model.OptimizationStatus, data map[string]any)

func (f notifierFunc) OptimizationEvent(id string, st model.OptimizationStatus, data map[string]any) {
	f(id, st, data)
}
