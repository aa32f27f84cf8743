package matrix

import (
	"context"
	"testing"

	"routeopt/internal/model"
)

func TestHaversineMatrix(t *testing.T) {
	p := &HaversineProvider{}
	ls := []model.Location{
		{Lat: 52.5200, Lng: 13.4050}, // Berlin
		{Lat: 48.1351, Lng: 11.5820}, // Munich
	}
	m, err := p.GetDistanceMatrix(context.Background(), ls, "car")
	if err != nil {
		t.Fatalf("GetDistanceMatrix: %v", err)
	}
	if m.Distances[0][0] != 0 || m.Times[1][1] != 0 {
		t.Fatal("diagonal must be zero")
	}
	d := m.Distances[0][1]
	// Great-circle Berlin-Munich is roughly 504 km.
	if d < 490_000 || d > 520_000 {
		t.Fatalf("Berlin-Munich distance = %.0f m", d)
	}
	if m.Distances[0][1] != m.Distances[1][0] {
		t.Fatal("haversine matrix must be symmetric")
	}
	// time = distance / speed; car profile is 50 km/h.
	wantSec := d / (50.0 / 3.6)
	if got := m.Times[0][1]; got < wantSec*0.99 || got > wantSec*1.01 {
		t.Fatalf("time = %.0f s, want about %.0f s", got, wantSec)
	}
}

func TestHaversineSpeedOverride(t *testing.T) {
	slow := &HaversineProvider{SpeedKph: 10}
	fast := &HaversineProvider{SpeedKph: 100}
	ls := []model.Location{{Lat: 52.52, Lng: 13.405}, {Lat: 52.53, Lng: 13.41}}
	ms, _ := slow.GetDistanceMatrix(context.Background(), ls, "car")
	mf, _ := fast.GetDistanceMatrix(context.Background(), ls, "car")
	if ms.Times[0][1] <= mf.Times[0][1] {
		t.Fatalf("slower speed must yield longer times: %.1f vs %.1f", ms.Times[0][1], mf.Times[0][1])
	}
}
