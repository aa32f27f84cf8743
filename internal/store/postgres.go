package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    _ "github.com/jackc/pgx/v5/stdlib"

    "routeopt/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS vehicles (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS optimization_results (
    id         TEXT PRIMARY KEY,
    status     TEXT NOT NULL,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_results_created ON optimization_results (created_at DESC);
`

// Migrate creates the schema. Safe to run on every startup.
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, schema)
    return err
}

func (p *Postgres) CreateJob(ctx context.Context, j model.Job) (model.Job, error) {
    doc, err := json.Marshal(j)
    if err != nil {
        return model.Job{}, err
    }
    _, err = p.db.ExecContext(ctx, `INSERT INTO jobs (id, doc) VALUES ($1,$2)`, j.ID, doc)
    if err != nil {
        if isUniqueViolation(err) {
            return model.Job{}, ErrConflict
        }
        return model.Job{}, err
    }
    return j, nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (model.Job, error) {
    var doc []byte
    err := p.db.QueryRowContext(ctx, `SELECT doc FROM jobs WHERE id=$1`, id).Scan(&doc)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Job{}, ErrNotFound
    }
    if err != nil {
        return model.Job{}, err
    }
    var j model.Job
    if err := json.Unmarshal(doc, &j); err != nil {
        return model.Job{}, fmt.Errorf("decode job %s: %w", id, err)
    }
    return j, nil
}

func (p *Postgres) ListJobs(ctx context.Context) ([]model.Job, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT doc FROM jobs ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Job
    for rows.Next() {
        var doc []byte
        if err := rows.Scan(&doc); err != nil {
            return nil, err
        }
        var j model.Job
        if err := json.Unmarshal(doc, &j); err != nil {
            return nil, err
        }
        out = append(out, j)
    }
    return out, rows.Err()
}

func (p *Postgres) UpdateJob(ctx context.Context, j model.Job) (model.Job, error) {
    doc, err := json.Marshal(j)
    if err != nil {
        return model.Job{}, err
    }
    res, err := p.db.ExecContext(ctx, `UPDATE jobs SET doc=$2, updated_at=now() WHERE id=$1`, j.ID, doc)
    if err != nil {
        return model.Job{}, err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return model.Job{}, ErrNotFound
    }
    return j, nil
}

func (p *Postgres) DeleteJob(ctx context.Context, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM jobs WHERE id=$1`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

func (p *Postgres) CreateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
    doc, err := json.Marshal(v)
    if err != nil {
        return model.Vehicle{}, err
    }
    _, err = p.db.ExecContext(ctx, `INSERT INTO vehicles (id, doc) VALUES ($1,$2)`, v.ID, doc)
    if err != nil {
        if isUniqueViolation(err) {
            return model.Vehicle{}, ErrConflict
        }
        return model.Vehicle{}, err
    }
    return v, nil
}

func (p *Postgres) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
    var doc []byte
    err := p.db.QueryRowContext(ctx, `SELECT doc FROM vehicles WHERE id=$1`, id).Scan(&doc)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Vehicle{}, ErrNotFound
    }
    if err != nil {
        return model.Vehicle{}, err
    }
    var v model.Vehicle
    if err := json.Unmarshal(doc, &v); err != nil {
        return model.Vehicle{}, fmt.Errorf("decode vehicle %s: %w", id, err)
    }
    return v, nil
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT doc FROM vehicles ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.Vehicle
    for rows.Next() {
        var doc []byte
        if err := rows.Scan(&doc); err != nil {
            return nil, err
        }
        var v model.Vehicle
        if err := json.Unmarshal(doc, &v); err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    return out, rows.Err()
}

func (p *Postgres) UpdateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
    doc, err := json.Marshal(v)
    if err != nil {
        return model.Vehicle{}, err
    }
    res, err := p.db.ExecContext(ctx, `UPDATE vehicles SET doc=$2, updated_at=now() WHERE id=$1`, v.ID, doc)
    if err != nil {
        return model.Vehicle{}, err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return model.Vehicle{}, ErrNotFound
    }
    return v, nil
}

func (p *Postgres) DeleteVehicle(ctx context.Context, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id=$1`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

func (p *Postgres) SaveResult(ctx context.Context, res model.OptimizationResult) error {
    doc, err := json.Marshal(res)
    if err != nil {
        return err
    }
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO optimization_results (id, status, doc) VALUES ($1,$2,$3)
         ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, doc=EXCLUDED.doc`,
        res.ID, string(res.Status), doc)
    return err
}

func (p *Postgres) GetResult(ctx context.Context, id string) (model.OptimizationResult, error) {
    var doc []byte
    err := p.db.QueryRowContext(ctx, `SELECT doc FROM optimization_results WHERE id=$1`, id).Scan(&doc)
    if errors.Is(err, sql.ErrNoRows) {
        return model.OptimizationResult{}, ErrNotFound
    }
    if err != nil {
        return model.OptimizationResult{}, err
    }
    var res model.OptimizationResult
    if err := json.Unmarshal(doc, &res); err != nil {
        return model.OptimizationResult{}, fmt.Errorf("decode result %s: %w", id, err)
    }
    return res, nil
}

func (p *Postgres) ListResults(ctx context.Context, limit int) ([]model.OptimizationResult, error) {
    if limit <= 0 {
        limit = 50
    }
    rows, err := p.db.QueryContext(ctx, `SELECT doc FROM optimization_results ORDER BY created_at DESC LIMIT $1`, limit)
    if err != nil {
        return nil, err
    }
    defer func() { _ = rows.Close() }()
    var out []model.OptimizationResult
    for rows.Next() {
        var doc []byte
        if err := rows.Scan(&doc); err != nil {
            return nil, err
        }
        var res model.OptimizationResult
        if err := json.Unmarshal(doc, &res); err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error { return p.db.Close() }

// isUniqueViolation matches Postgres error code 23505 without importing pgconn.
func isUniqueViolation(err error) bool {
    type coder interface{ SQLState() string }
    var c coder
    if errors.As(err, &c) {
        return c.SQLState() == "23505"
    }
    return false
}
