package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"routeopt/internal/model"
)

func TestGraphHopperRequestShape(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/matrix" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]float64{{0, 100}, {100, 0}},
			Times:     [][]float64{{0, 10}, {10, 0}},
		})
	}))
	defer srv.Close()

	g := NewGraphHopper(srv.URL, "test-key", time.Second)
	ls := []model.Location{{Lat: 52.52, Lng: 13.405}, {Lat: 52.53, Lng: 13.41}}
	m, err := g.GetDistanceMatrix(context.Background(), ls, "bike")
	if err != nil {
		t.Fatalf("GetDistanceMatrix: %v", err)
	}
	if m.Distances[0][1] != 100 || m.Times[1][0] != 10 {
		t.Fatalf("unexpected matrices: %+v", m)
	}
	if gotQuery["profile"][0] != "bike" || gotQuery["key"][0] != "test-key" {
		t.Fatalf("query = %v", gotQuery)
	}
	if len(gotQuery["point"]) != 2 {
		t.Fatalf("points = %v", gotQuery["point"])
	}
	if len(gotQuery["out_array"]) != 2 {
		t.Fatalf("out_array = %v", gotQuery["out_array"])
	}
}

func TestGraphHopperUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGraphHopper(srv.URL, "k", time.Second)
	_, err := g.GetDistanceMatrix(context.Background(), []model.Location{{Lat: 1, Lng: 2}}, "car")
	var ext *model.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if ext.Service != "graphhopper" {
		t.Fatalf("service = %s", ext.Service)
	}
}

func TestGraphHopperMalformedMatrix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]float64{{0}},
			Times:     [][]float64{{0}},
		})
	}))
	defer srv.Close()

	g := NewGraphHopper(srv.URL, "k", time.Second)
	ls := []model.Location{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}
	var ext *model.ExternalServiceError
	if _, err := g.GetDistanceMatrix(context.Background(), ls, "car"); !errors.As(err, &ext) {
		t.Fatalf("expected ExternalServiceError for wrong dimensions, got %v", err)
	}
}
