package store

import (
    "context"
    "errors"
    "testing"

    "routeopt/internal/model"
)

func TestMemoryJobCRUD(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    j := model.Job{ID: "j1", Location: &model.Location{Lat: 40.0, Lng: -74.0}}
    if _, err := m.CreateJob(ctx, j); err != nil {
        t.Fatalf("CreateJob: %v", err)
    }
    if _, err := m.CreateJob(ctx, j); !errors.Is(err, ErrConflict) {
        t.Fatalf("expected ErrConflict on duplicate create, got %v", err)
    }
    got, err := m.GetJob(ctx, "j1")
    if err != nil || got.ID != "j1" {
        t.Fatalf("GetJob: got %+v err %v", got, err)
    }
    j.Duration = 120
    if _, err := m.UpdateJob(ctx, j); err != nil {
        t.Fatalf("UpdateJob: %v", err)
    }
    got, _ = m.GetJob(ctx, "j1")
    if got.Duration != 120 {
        t.Fatalf("update not applied: %+v", got)
    }
    if err := m.DeleteJob(ctx, "j1"); err != nil {
        t.Fatalf("DeleteJob: %v", err)
    }
    if _, err := m.GetJob(ctx, "j1"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound after delete, got %v", err)
    }
}

func TestMemoryVehicleListSorted(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    for _, id := range []string{"v3", "v1", "v2"} {
        if _, err := m.CreateVehicle(ctx, model.Vehicle{ID: id, StartLocation: &model.Location{Lat: 1, Lng: 2}}); err != nil {
            t.Fatalf("CreateVehicle %s: %v", id, err)
        }
    }
    vs, err := m.ListVehicles(ctx)
    if err != nil {
        t.Fatalf("ListVehicles: %v", err)
    }
    if len(vs) != 3 || vs[0].ID != "v1" || vs[2].ID != "v3" {
        t.Fatalf("unexpected order: %+v", vs)
    }
}

func TestMemoryResultsNewestFirst(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    for _, id := range []string{"r1", "r2", "r3"} {
        if err := m.SaveResult(ctx, model.OptimizationResult{ID: id, Status: model.StatusCompleted}); err != nil {
            t.Fatalf("SaveResult %s: %v", id, err)
        }
    }
    res, err := m.ListResults(ctx, 2)
    if err != nil {
        t.Fatalf("ListResults: %v", err)
    }
    if len(res) != 2 || res[0].ID != "r3" || res[1].ID != "r2" {
        t.Fatalf("unexpected listing: %+v", res)
    }
    // Re-saving an existing id must not duplicate it.
    if err := m.SaveResult(ctx, model.OptimizationResult{ID: "r3", Status: model.StatusFailed}); err != nil {
        t.Fatalf("SaveResult overwrite: %v", err)
    }
    all, _ := m.ListResults(ctx, 0)
    if len(all) != 3 {
        t.Fatalf("expected 3 results, got %d", len(all))
    }
    if all[0].Status != model.StatusFailed {
        t.Fatalf("overwrite not applied: %+v", all[0])
    }
}
