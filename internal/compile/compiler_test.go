package compile

import (
	"context"
	"errors"
	"testing"

	"routeopt/internal/matrix"
	"routeopt/internal/model"
)

type fakeProvider struct {
	calls int
}

func (p *fakeProvider) GetDistanceMatrix(_ context.Context, locs []model.Location, _ string) (matrix.Matrices, error) {
	p.calls++
	n := len(locs)
	d := make([][]float64, n)
	t := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		t[i] = make([]float64, n)
		for j := range d[i] {
			if i != j {
				d[i][j] = 1000
				t[i][j] = 100
			}
		}
	}
	return matrix.Matrices{Distances: d, Times: t}, nil
}

func testVehicle(id string, lat, lng float64) model.Vehicle {
	return model.Vehicle{ID: id, StartLocation: &model.Location{Lat: lat, Lng: lng}}
}

func testJob(id string, lat, lng float64) model.Job {
	return model.Job{ID: id, Location: &model.Location{Lat: lat, Lng: lng}, Duration: 300}
}

func TestCompileNodeIndexing(t *testing.T) {
	p := &fakeProvider{}
	cache := matrix.NewCache(8)
	depot := model.Location{Lat: 52.52, Lng: 13.405}
	vehicles := []model.Vehicle{
		{ID: "v1", StartLocation: &depot},
		{ID: "v2", StartLocation: &depot}, // same depot, same node
	}
	jobs := []model.Job{
		testJob("j1", 52.53, 13.41),
		{ID: "j2", Location: &depot, Duration: 60}, // job at the depot
		testJob("j3", 52.50, 13.39),
	}
	cp, err := Compile(context.Background(), cache, p, vehicles, jobs, model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// depot, j1, j3 -> three distinct locations.
	if len(cp.Locations) != 3 {
		t.Fatalf("got %d locations, want 3", len(cp.Locations))
	}
	v1 := cp.VehicleNode["v1"]
	v2 := cp.VehicleNode["v2"]
	if v1.Start != 0 || v2.Start != 0 {
		t.Fatalf("depot node not shared: %+v %+v", v1, v2)
	}
	// Without an end location the end node equals the start node.
	if v1.End != v1.Start {
		t.Fatalf("end node = %d, want %d", v1.End, v1.Start)
	}
	if cp.JobNode["j2"] != 0 {
		t.Fatalf("job at depot got node %d, want 0", cp.JobNode["j2"])
	}
	if cp.JobNode["j1"] != 1 || cp.JobNode["j3"] != 2 {
		t.Fatalf("first-seen order violated: j1=%d j3=%d", cp.JobNode["j1"], cp.JobNode["j3"])
	}
	if cp.NodeJob[cp.JobNode["j1"]] != "j1" {
		t.Fatal("NodeJob is not the inverse of JobNode")
	}
	if len(cp.Matrices.Distances) != 3 {
		t.Fatalf("matrix size %d, want 3", len(cp.Matrices.Distances))
	}
}

func TestCompileValidatesBeforeFetch(t *testing.T) {
	p := &fakeProvider{}
	cache := matrix.NewCache(8)
	vehicles := []model.Vehicle{testVehicle("v1", 1, 2), testVehicle("v1", 3, 4)}
	_, err := Compile(context.Background(), cache, p, vehicles, nil, model.Options{})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if p.calls != 0 {
		t.Fatalf("provider called %d times before validation failure", p.calls)
	}
}

func TestCompileDefaultWindowsAndSpeed(t *testing.T) {
	p := &fakeProvider{}
	cache := matrix.NewCache(8)
	cp, err := Compile(context.Background(), cache, p,
		[]model.Vehicle{testVehicle("v1", 1, 2)},
		[]model.Job{testJob("j1", 3, 4)},
		model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cv := cp.Vehicles[0]
	if cv.TWStart != 0 || cv.TWEnd != model.SecondsPerDay {
		t.Fatalf("vehicle window %d-%d", cv.TWStart, cv.TWEnd)
	}
	if cv.SpeedFactor != 1 {
		t.Fatalf("speed factor = %v", cv.SpeedFactor)
	}
	cj := cp.Jobs[0]
	if cj.TWStart != 0 || cj.TWEnd != model.SecondsPerDay {
		t.Fatalf("job window %d-%d", cj.TWStart, cj.TWEnd)
	}
	if cj.Priority != 1 {
		t.Fatalf("priority = %d, want defaulted 1", cj.Priority)
	}
	if cp.Profile != "car" {
		t.Fatalf("profile = %s", cp.Profile)
	}
}

func TestCompileServeableMatrix(t *testing.T) {
	p := &fakeProvider{}
	cache := matrix.NewCache(8)
	vehicles := []model.Vehicle{
		{ID: "v1", StartLocation: &model.Location{Lat: 1, Lng: 2}},
		{ID: "v2", StartLocation: &model.Location{Lat: 1, Lng: 3}, Skills: model.VehicleSkills{CanCarryRefrigerated: true}},
	}
	jobs := []model.Job{
		testJob("j1", 5, 6),
		{ID: "j2", Location: &model.Location{Lat: 5, Lng: 7}, Requirements: model.JobRequirements{RequiresRefrigerated: true}},
	}
	cp, err := Compile(context.Background(), cache, p, vehicles, jobs, model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !cp.Serveable[0][0] || cp.Serveable[0][1] {
		t.Fatalf("v1 serveability wrong: %v", cp.Serveable[0])
	}
	if !cp.Serveable[1][0] || !cp.Serveable[1][1] {
		t.Fatalf("v2 serveability wrong: %v", cp.Serveable[1])
	}
}

func TestCompilePairs(t *testing.T) {
	p := &fakeProvider{}
	cache := matrix.NewCache(8)
	delivery := "j2"
	transit := 1800
	jobs := []model.Job{
		{ID: "j1", Location: &model.Location{Lat: 5, Lng: 6}, PairedJobID: &delivery, MaxTransitTime: &transit},
		testJob("j2", 5, 7),
	}
	cp, err := Compile(context.Background(), cache, p, []model.Vehicle{testVehicle("v1", 1, 2)}, jobs, model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(cp.Pairs) != 1 {
		t.Fatalf("pairs = %+v", cp.Pairs)
	}
	pair := cp.Pairs[0]
	if pair.Pickup != 0 || pair.Delivery != 1 || pair.MaxTransit != 1800 {
		t.Fatalf("pair = %+v", pair)
	}

	missing := "nope"
	bad := []model.Job{{ID: "j1", Location: &model.Location{Lat: 5, Lng: 6}, PairedJobID: &missing}}
	if _, err := Compile(context.Background(), cache, p, []model.Vehicle{testVehicle("v1", 1, 2)}, bad, model.Options{}); err == nil {
		t.Fatal("dangling paired job accepted")
	}
}

func TestCompileMutualPairDeclarations(t *testing.T) {
	p := &fakeProvider{}
	cache := matrix.NewCache(8)
	j1, j2 := "j1", "j2"
	transit := 1800

	jobs := []model.Job{
		{ID: "j1", Location: &model.Location{Lat: 5, Lng: 6}, PairedJobID: &j2, MaxTransitTime: &transit},
		{ID: "j2", Location: &model.Location{Lat: 5, Lng: 7}, PairedJobID: &j1},
	}
	cp, err := Compile(context.Background(), cache, p, []model.Vehicle{testVehicle("v1", 1, 2)}, jobs, model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(cp.Pairs) != 1 {
		t.Fatalf("mutual declaration produced %d pairs: %+v", len(cp.Pairs), cp.Pairs)
	}
	pair := cp.Pairs[0]
	if pair.Pickup != 0 || pair.Delivery != 1 || pair.MaxTransit != 1800 {
		t.Fatalf("pair = %+v", pair)
	}

	// Transit declared only on the second job still applies to the pair.
	jobs[0].MaxTransitTime = nil
	jobs[1].MaxTransitTime = &transit
	cp, err = Compile(context.Background(), cache, p, []model.Vehicle{testVehicle("v1", 1, 2)}, jobs, model.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(cp.Pairs) != 1 || cp.Pairs[0].MaxTransit != 1800 {
		t.Fatalf("pairs = %+v", cp.Pairs)
	}

	other := 900
	jobs[0].MaxTransitTime = &transit
	jobs[1].MaxTransitTime = &other
	if _, err := Compile(context.Background(), cache, p, []model.Vehicle{testVehicle("v1", 1, 2)}, jobs, model.Options{}); err == nil {
		t.Fatal("conflicting maxTransitTime accepted")
	}

	self := "j1"
	selfPaired := []model.Job{{ID: "j1", Location: &model.Location{Lat: 5, Lng: 6}, PairedJobID: &self}}
	if _, err := Compile(context.Background(), cache, p, []model.Vehicle{testVehicle("v1", 1, 2)}, selfPaired, model.Options{}); err == nil {
		t.Fatal("self-paired job accepted")
	}
}
