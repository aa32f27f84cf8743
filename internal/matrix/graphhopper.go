package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
)

// GraphHopper is a client for the GraphHopper Matrix API.
type GraphHopper struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

const defaultMatrixTimeout = 30 * time.Second

func NewGraphHopper(baseURL, apiKey string, timeout time.Duration) *GraphHopper {
	if timeout <= 0 {
		timeout = defaultMatrixTimeout
	}
	return &GraphHopper{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

type matrixResponse struct {
	Distances [][]float64 `json:"distances"`
	Times     [][]float64 `json:"times"`
}

// GetDistanceMatrix calls the /matrix endpoint for the full location set.
// Failures are wrapped as ExternalServiceError; the caller decides fatality.
func (g *GraphHopper) GetDistanceMatrix(ctx context.Context, locations []model.Location, profile string) (Matrices, error) {
	start := time.Now()
	m, err := g.fetch(ctx, locations, profile)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.MatrixProviderLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return m, err
}

func (g *GraphHopper) fetch(ctx context.Context, locations []model.Location, profile string) (Matrices, error) {
	q := url.Values{}
	q.Set("profile", profile)
	q.Set("type", "json")
	q.Set("key", g.apiKey)
	q.Add("out_array", "distances")
	q.Add("out_array", "times")
	for _, l := range locations {
		q.Add("point", fmt.Sprintf("%f,%f", l.Lat, l.Lng))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/matrix?"+q.Encode(), nil)
	if err != nil {
		return Matrices{}, &model.ExternalServiceError{Service: "graphhopper", Err: err}
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return Matrices{}, &model.ExternalServiceError{Service: "graphhopper", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Matrices{}, &model.ExternalServiceError{
			Service: "graphhopper",
			Err:     fmt.Errorf("matrix request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return Matrices{}, &model.ExternalServiceError{Service: "graphhopper", Err: fmt.Errorf("decode matrix response: %w", err)}
	}
	m := Matrices{Distances: mr.Distances, Times: mr.Times}
	if err := checkSquare(m, len(locations)); err != nil {
		return Matrices{}, &model.ExternalServiceError{Service: "graphhopper", Err: err}
	}
	return m, nil
}

func checkSquare(m Matrices, n int) error {
	if len(m.Distances) != n || len(m.Times) != n {
		return fmt.Errorf("malformed matrix response: expected %dx%d", n, n)
	}
	for i := 0; i < n; i++ {
		if len(m.Distances[i]) != n || len(m.Times[i]) != n {
			return fmt.Errorf("malformed matrix response: row %d is not length %d", i, n)
		}
	}
	return nil
}
