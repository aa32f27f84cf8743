package store

import (
    "context"
    "errors"

    "routeopt/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Jobs
    CreateJob(ctx context.Context, j model.Job) (model.Job, error)
    GetJob(ctx context.Context, id string) (model.Job, error)
    ListJobs(ctx context.Context) ([]model.Job, error)
    UpdateJob(ctx context.Context, j model.Job) (model.Job, error)
    DeleteJob(ctx context.Context, id string) error

    // Vehicles
    CreateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error)
    GetVehicle(ctx context.Context, id string) (model.Vehicle, error)
    ListVehicles(ctx context.Context) ([]model.Vehicle, error)
    UpdateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error)
    DeleteVehicle(ctx context.Context, id string) error

    // Optimization results
    SaveResult(ctx context.Context, res model.OptimizationResult) error
    GetResult(ctx context.Context, id string) (model.OptimizationResult, error)
    ListResults(ctx context.Context, limit int) ([]model.OptimizationResult, error)

    Ping(ctx context.Context) error
    Close() error
}

var (
    ErrNotFound = errors.New("not found")
    ErrConflict = errors.New("already exists")
)
