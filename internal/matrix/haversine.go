package matrix

import (
	"context"
	"math"

	"routeopt/internal/model"
)

// HaversineProvider derives matrices from great-circle distances and a
// per-profile average speed. Used in tests and when no matrix API key is
// configured.
type HaversineProvider struct {
	// SpeedKph overrides the profile speed when > 0.
	SpeedKph float64
}

var profileSpeedKph = map[string]float64{
	"car":         50,
	"truck":       40,
	"small_truck": 45,
	"bike":        15,
	"foot":        5,
	"scooter":     25,
}

func (h *HaversineProvider) GetDistanceMatrix(_ context.Context, locations []model.Location, profile string) (Matrices, error) {
	speed := h.SpeedKph
	if speed <= 0 {
		speed = profileSpeedKph[profile]
	}
	if speed <= 0 {
		speed = 50
	}
	mps := speed / 3.6
	n := len(locations)
	dist := make([][]float64, n)
	times := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
		times[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := haversineMeters(locations[i].Lat, locations[i].Lng, locations[j].Lat, locations[j].Lng)
			dist[i][j] = d
			times[i][j] = d / mps
		}
	}
	return Matrices{Distances: dist, Times: times}, nil
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
