// Package compile turns validated vehicles and jobs into a solver-ready
// problem: stable node indices, travel matrices, elapsed-seconds time
// windows, break intervals, and the symbol table mapping solver nodes back
// to domain ids.
package compile

import (
	"context"

	"routeopt/internal/matrix"
	"routeopt/internal/model"
)

// VehicleNodes are a vehicle's depot node indices.
type VehicleNodes struct {
	Start int
	End   int
}

// CompiledBreak is a break converted to solver-native intervals.
type CompiledBreak struct {
	ID             string
	Duration       int
	Windows        [][2]int
	MaxDriveBefore int // 0 = unbounded
}

// CompiledVehicle carries one vehicle's solver-facing constraints.
type CompiledVehicle struct {
	ID          string
	Start       int
	End         int
	TWStart     int
	TWEnd       int
	Breaks      []CompiledBreak
	SpeedFactor float64
	MaxDriving  int     // seconds, 0 = unbounded
	MaxDistance float64 // meters, 0 = unbounded
	MaxTasks    int     // 0 = unbounded
	Costs       model.VehicleCosts
}

// CompiledJob carries one job's solver-facing constraints.
type CompiledJob struct {
	ID       string
	Node     int
	Service  int
	Setup    int
	TWStart  int
	TWEnd    int
	Priority int
}

// Pair links a pickup job to its delivery job by job slice index.
type Pair struct {
	Pickup     int
	Delivery   int
	MaxTransit int // seconds, 0 = unbounded
}

// Problem is the compiled, solver-ready model.
type Problem struct {
	Locations []model.Location // node index -> location
	Matrices  matrix.Matrices
	Vehicles  []CompiledVehicle
	Jobs      []CompiledJob
	Serveable [][]bool // [vehicle][job]
	Pairs     []Pair

	// Symbol table: solver nodes back to domain ids.
	JobNode     map[string]int
	NodeJob     map[int]string
	VehicleNode map[string]VehicleNodes

	Profile string
}

// Compile validates the inputs, assigns node indices in first-seen order,
// fetches matrices through the cache, and converts constraints to elapsed
// seconds. Validation failures are reported before any matrix fetch so the
// external quota is not wasted on malformed input.
func Compile(ctx context.Context, cache *matrix.Cache, provider matrix.Provider, vehicles []model.Vehicle, jobs []model.Job, opts model.Options) (*Problem, error) {
	if err := validate(vehicles, jobs); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	p := &Problem{
		JobNode:     make(map[string]int, len(jobs)),
		NodeJob:     make(map[int]string, len(jobs)),
		VehicleNode: make(map[string]VehicleNodes, len(vehicles)),
		Profile:     opts.Profile,
	}

	// Node indexing: identity is the exact lat/lng pair, first-seen order.
	nodeOf := map[model.Location]int{}
	index := func(l model.Location) int {
		if n, ok := nodeOf[l]; ok {
			return n
		}
		n := len(p.Locations)
		nodeOf[l] = n
		p.Locations = append(p.Locations, l)
		return n
	}

	for _, v := range vehicles {
		start := index(*v.StartLocation)
		end := index(*v.End())
		p.VehicleNode[v.ID] = VehicleNodes{Start: start, End: end}
	}
	for _, j := range jobs {
		n := index(*j.Location)
		p.JobNode[j.ID] = n
		p.NodeJob[n] = j.ID
	}

	m, err := cache.GetOrFetch(ctx, provider, p.Locations, opts.Profile, opts.ForceRefresh)
	if err != nil {
		return nil, err
	}
	p.Matrices = m

	jobIdx := make(map[string]int, len(jobs))
	for i, j := range jobs {
		jobIdx[j.ID] = i
		twStart, twEnd := 0, model.SecondsPerDay
		if j.TimeWindow != nil {
			twStart, twEnd = j.TimeWindow.Start, j.TimeWindow.End
		}
		p.Jobs = append(p.Jobs, CompiledJob{
			ID:       j.ID,
			Node:     p.JobNode[j.ID],
			Service:  j.Duration,
			Setup:    j.SetupDuration,
			TWStart:  twStart,
			TWEnd:    twEnd,
			Priority: j.EffectivePriority(),
		})
	}

	for _, v := range vehicles {
		twStart, twEnd := 0, model.SecondsPerDay
		if v.TimeWindow != nil {
			twStart, twEnd = v.TimeWindow.Start, v.TimeWindow.End
		}
		cv := CompiledVehicle{
			ID:          v.ID,
			Start:       p.VehicleNode[v.ID].Start,
			End:         p.VehicleNode[v.ID].End,
			TWStart:     twStart,
			TWEnd:       twEnd,
			SpeedFactor: v.SpeedFactor,
			Costs:       v.Costs,
		}
		if cv.SpeedFactor <= 0 {
			cv.SpeedFactor = 1
		}
		if v.MaxDrivingDuration != nil {
			cv.MaxDriving = *v.MaxDrivingDuration
		}
		if v.MaxDistance != nil {
			cv.MaxDistance = *v.MaxDistance
		}
		if v.MaxTaskCount != nil {
			cv.MaxTasks = *v.MaxTaskCount
		}
		for _, b := range v.Breaks {
			cb := CompiledBreak{ID: b.ID, Duration: b.Duration}
			if b.MaxDrivingDurationBeforeBreak != nil {
				cb.MaxDriveBefore = *b.MaxDrivingDurationBeforeBreak
			}
			for _, w := range b.TimeWindows {
				cb.Windows = append(cb.Windows, [2]int{w.Start, w.End})
			}
			cv.Breaks = append(cv.Breaks, cb)
		}
		p.Vehicles = append(p.Vehicles, cv)
	}

	p.Serveable = make([][]bool, len(vehicles))
	for vi, v := range vehicles {
		p.Serveable[vi] = make([]bool, len(jobs))
		for ji, j := range jobs {
			p.Serveable[vi][ji] = model.CanServe(v, j)
		}
	}

	for ji, j := range jobs {
		if j.PairedJobID == nil {
			continue
		}
		di, ok := jobIdx[*j.PairedJobID]
		if !ok {
			return nil, model.Validationf("job %s: paired job %s not found", j.ID, *j.PairedJobID)
		}
		if di == ji {
			return nil, model.Validationf("job %s: paired with itself", j.ID)
		}
		d := jobs[di]
		mutual := d.PairedJobID != nil && *d.PairedJobID == j.ID
		if mutual {
			// Two jobs naming each other describe one pairing; the
			// first-declared job is the pickup.
			if di < ji {
				continue
			}
			if j.MaxTransitTime != nil && d.MaxTransitTime != nil && *j.MaxTransitTime != *d.MaxTransitTime {
				return nil, model.Validationf("jobs %s and %s declare conflicting maxTransitTime", j.ID, d.ID)
			}
		}
		pair := Pair{Pickup: ji, Delivery: di}
		if j.MaxTransitTime != nil {
			pair.MaxTransit = *j.MaxTransitTime
		} else if mutual && d.MaxTransitTime != nil {
			pair.MaxTransit = *d.MaxTransitTime
		}
		p.Pairs = append(p.Pairs, pair)
	}

	return p, nil
}

func validate(vehicles []model.Vehicle, jobs []model.Job) error {
	seenV := map[string]bool{}
	for i, v := range vehicles {
		if err := v.Validate(); err != nil {
			return model.Validationf("vehicle at index %d: %v", i, err)
		}
		if seenV[v.ID] {
			return model.Validationf("duplicate vehicle id %s", v.ID)
		}
		seenV[v.ID] = true
	}
	seenJ := map[string]bool{}
	for i, j := range jobs {
		if err := j.Validate(); err != nil {
			return model.Validationf("job at index %d: %v", i, err)
		}
		if seenJ[j.ID] {
			return model.Validationf("duplicate job id %s", j.ID)
		}
		seenJ[j.ID] = true
	}
	return nil
}
