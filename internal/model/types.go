package model

import (
	"time"
)

// Core domain types for route optimization.

type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleTruck      VehicleType = "truck"
	VehicleBike       VehicleType = "bike"
	VehicleFoot       VehicleType = "foot"
	VehicleScooter    VehicleType = "scooter"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleSmallTruck VehicleType = "small_truck"
	VehicleLargeTruck VehicleType = "large_truck"
)

// OptimizationType selects the single active objective for a solve.
type OptimizationType string

const (
	OptimizeDuration OptimizationType = "duration"
	OptimizeDistance OptimizationType = "distance"
)

// OptimizationStatus is the lifecycle state of one optimize call.
// Transitions: pending -> in_progress -> {completed, failed}.
type OptimizationStatus string

const (
	StatusPending    OptimizationStatus = "pending"
	StatusInProgress OptimizationStatus = "in_progress"
	StatusCompleted  OptimizationStatus = "completed"
	StatusFailed     OptimizationStatus = "failed"
)

const SecondsPerDay = 86400

// Location is an immutable geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return Validationf("latitude %v out of range [-90,90]", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return Validationf("longitude %v out of range [-180,180]", l.Lng)
	}
	return nil
}

// TimeWindow is an inclusive interval in seconds since midnight.
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (tw TimeWindow) Validate() error {
	if tw.Start < 0 || tw.End > SecondsPerDay || tw.Start >= tw.End {
		return Validationf("time window [%d,%d] must satisfy 0 <= start < end <= %d", tw.Start, tw.End, SecondsPerDay)
	}
	return nil
}

// BreakTimeWindow adds optional duration bounds to a plain time window.
type BreakTimeWindow struct {
	TimeWindow
	MinDuration *int `json:"minDuration,omitempty"`
	MaxDuration *int `json:"maxDuration,omitempty"`
}

func (b BreakTimeWindow) Validate() error {
	if err := b.TimeWindow.Validate(); err != nil {
		return err
	}
	if b.MinDuration != nil && *b.MinDuration < 0 {
		return Validationf("break minDuration must be >= 0")
	}
	if b.MaxDuration != nil && *b.MaxDuration < 0 {
		return Validationf("break maxDuration must be >= 0")
	}
	if b.MinDuration != nil && b.MaxDuration != nil && *b.MinDuration > *b.MaxDuration {
		return Validationf("break minDuration %d exceeds maxDuration %d", *b.MinDuration, *b.MaxDuration)
	}
	return nil
}

// VehicleBreak is a required rest a vehicle must take within one of its windows.
type VehicleBreak struct {
	ID                            string       `json:"id"`
	Duration                      int          `json:"duration"`
	TimeWindows                   []TimeWindow `json:"timeWindows,omitempty"`
	MaxDrivingDurationBeforeBreak *int         `json:"maxDrivingDurationBeforeBreak,omitempty"`
}

func (vb VehicleBreak) Validate() error {
	if vb.ID == "" {
		return Validationf("break id must be non-empty")
	}
	if vb.Duration <= 0 {
		return Validationf("break %s: duration must be > 0", vb.ID)
	}
	if vb.MaxDrivingDurationBeforeBreak != nil && *vb.MaxDrivingDurationBeforeBreak <= 0 {
		return Validationf("break %s: maxDrivingDurationBeforeBreak must be > 0", vb.ID)
	}
	for _, tw := range vb.TimeWindows {
		if err := tw.Validate(); err != nil {
			return Validationf("break %s: %v", vb.ID, err)
		}
	}
	return nil
}

// VehicleCosts are non-negative cost coefficients; distance-dominant by default.
type VehicleCosts struct {
	Fixed     float64 `json:"fixed"`
	Distance  float64 `json:"distance"`
	Time      float64 `json:"time"`
	Waiting   float64 `json:"waiting"`
	BreakTime float64 `json:"breakTime"`
}

func DefaultVehicleCosts() VehicleCosts {
	return VehicleCosts{Fixed: 0, Distance: 0.1, Time: 0.05, Waiting: 0.02, BreakTime: 0}
}

func (c VehicleCosts) Validate() error {
	if c.Fixed < 0 || c.Distance < 0 || c.Time < 0 || c.Waiting < 0 || c.BreakTime < 0 {
		return Validationf("vehicle cost coefficients must be >= 0")
	}
	return nil
}

// VehicleSkills describe what a vehicle is capable of carrying.
type VehicleSkills struct {
	RequiredLicenses     []string `json:"requiredLicenses,omitempty"`
	CanCarryHazardous    bool     `json:"canCarryHazardous"`
	CanCarryRefrigerated bool     `json:"canCarryRefrigerated"`
	MaxWeight            *float64 `json:"maxWeight,omitempty"`
	MaxVolume            *float64 `json:"maxVolume,omitempty"`
}

// JobRequirements must be met by the serving vehicle's skills.
type JobRequirements struct {
	RequiredLicenses     []string `json:"requiredLicenses,omitempty"`
	RequiresHazardous    bool     `json:"requiresHazardous"`
	RequiresRefrigerated bool     `json:"requiresRefrigerated"`
	MaxWeight            *float64 `json:"maxWeight,omitempty"`
	MaxVolume            *float64 `json:"maxVolume,omitempty"`
}

type Vehicle struct {
	ID                       string         `json:"id"`
	Type                     VehicleType    `json:"type"`
	StartLocation            *Location      `json:"startLocation"`
	EndLocation              *Location      `json:"endLocation,omitempty"`
	TimeWindow               *TimeWindow    `json:"timeWindow,omitempty"`
	Breaks                   []VehicleBreak `json:"breaks,omitempty"`
	Costs                    VehicleCosts   `json:"costs"`
	Skills                   VehicleSkills  `json:"skills"`
	MaxDrivingDuration       *int           `json:"maxDrivingDuration,omitempty"`
	MaxWeeklyDrivingDuration *int           `json:"maxWeeklyDrivingDuration,omitempty"`
	MaxDistance              *float64       `json:"maxDistance,omitempty"`
	MaxTaskCount             *int           `json:"maxTaskCount,omitempty"`
	SpeedFactor              float64        `json:"speedFactor,omitempty"`
}

func (v Vehicle) Validate() error {
	if v.ID == "" {
		return Validationf("vehicle id must be non-empty")
	}
	if v.StartLocation == nil {
		return Validationf("vehicle %s: start location is required", v.ID)
	}
	if err := v.StartLocation.Validate(); err != nil {
		return Validationf("vehicle %s: start location: %v", v.ID, err)
	}
	if v.EndLocation != nil {
		if err := v.EndLocation.Validate(); err != nil {
			return Validationf("vehicle %s: end location: %v", v.ID, err)
		}
	}
	if v.TimeWindow != nil {
		if err := v.TimeWindow.Validate(); err != nil {
			return Validationf("vehicle %s: %v", v.ID, err)
		}
	}
	if err := v.Costs.Validate(); err != nil {
		return Validationf("vehicle %s: %v", v.ID, err)
	}
	if v.MaxDrivingDuration != nil && *v.MaxDrivingDuration <= 0 {
		return Validationf("vehicle %s: maxDrivingDuration must be > 0", v.ID)
	}
	if v.MaxWeeklyDrivingDuration != nil && *v.MaxWeeklyDrivingDuration <= 0 {
		return Validationf("vehicle %s: maxWeeklyDrivingDuration must be > 0", v.ID)
	}
	if v.MaxDistance != nil && *v.MaxDistance <= 0 {
		return Validationf("vehicle %s: maxDistance must be > 0", v.ID)
	}
	if v.MaxTaskCount != nil && *v.MaxTaskCount <= 0 {
		return Validationf("vehicle %s: maxTaskCount must be > 0", v.ID)
	}
	if v.SpeedFactor < 0 {
		return Validationf("vehicle %s: speedFactor must be > 0", v.ID)
	}
	seen := map[string]bool{}
	for _, b := range v.Breaks {
		if err := b.Validate(); err != nil {
			return Validationf("vehicle %s: %v", v.ID, err)
		}
		if seen[b.ID] {
			return Validationf("vehicle %s: duplicate break id %s", v.ID, b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}

// End returns the vehicle's end location, defaulting to the start depot.
func (v Vehicle) End() *Location {
	if v.EndLocation != nil {
		return v.EndLocation
	}
	return v.StartLocation
}

type Job struct {
	ID              string          `json:"id"`
	Location        *Location       `json:"location"`
	Duration        int             `json:"duration"`
	TimeWindow      *TimeWindow     `json:"timeWindow,omitempty"`
	Priority        int             `json:"priority,omitempty"`
	Requirements    JobRequirements `json:"requirements"`
	SetupDuration   int             `json:"setupDuration,omitempty"`
	AllowedVehicles []string        `json:"allowedVehicles,omitempty"`
	PairedJobID     *string         `json:"pairedJobId,omitempty"`
	MaxTransitTime  *int            `json:"maxTransitTime,omitempty"`
}

func (j Job) Validate() error {
	if j.ID == "" {
		return Validationf("job id must be non-empty")
	}
	if j.Location == nil {
		return Validationf("job %s: location is required", j.ID)
	}
	if err := j.Location.Validate(); err != nil {
		return Validationf("job %s: %v", j.ID, err)
	}
	if j.Duration < 0 {
		return Validationf("job %s: duration must be >= 0", j.ID)
	}
	if j.SetupDuration < 0 {
		return Validationf("job %s: setupDuration must be >= 0", j.ID)
	}
	if j.Priority != 0 && (j.Priority < 1 || j.Priority > 10) {
		return Validationf("job %s: priority must be in [1,10]", j.ID)
	}
	if j.TimeWindow != nil {
		if err := j.TimeWindow.Validate(); err != nil {
			return Validationf("job %s: %v", j.ID, err)
		}
	}
	if j.MaxTransitTime != nil && *j.MaxTransitTime <= 0 {
		return Validationf("job %s: maxTransitTime must be > 0", j.ID)
	}
	return nil
}

// EffectivePriority defaults unset priorities to 1.
func (j Job) EffectivePriority() int {
	if j.Priority == 0 {
		return 1
	}
	return j.Priority
}

// CanServe reports whether the vehicle's skill set satisfies the job's
// requirement set and any allowed-vehicle restriction.
func CanServe(v Vehicle, j Job) bool {
	if len(j.AllowedVehicles) > 0 {
		ok := false
		for _, id := range j.AllowedVehicles {
			if id == v.ID {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if j.Requirements.RequiresHazardous && !v.Skills.CanCarryHazardous {
		return false
	}
	if j.Requirements.RequiresRefrigerated && !v.Skills.CanCarryRefrigerated {
		return false
	}
	if j.Requirements.MaxWeight != nil {
		if v.Skills.MaxWeight == nil || *v.Skills.MaxWeight < *j.Requirements.MaxWeight {
			return false
		}
	}
	if j.Requirements.MaxVolume != nil {
		if v.Skills.MaxVolume == nil || *v.Skills.MaxVolume < *j.Requirements.MaxVolume {
			return false
		}
	}
	if len(j.Requirements.RequiredLicenses) > 0 {
		have := make(map[string]bool, len(v.Skills.RequiredLicenses))
		for _, l := range v.Skills.RequiredLicenses {
			have[l] = true
		}
		for _, l := range j.Requirements.RequiredLicenses {
			if !have[l] {
				return false
			}
		}
	}
	return true
}

// PlanningHorizon is the multi-day date range and working calendar over
// which per-vehicle schedules are generated.
type PlanningHorizon struct {
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	WorkingDays  []int     `json:"workingDays"`
	WorkingHours [2]int    `json:"workingHours"`
}

// DefaultWorkingHours is 09:00-17:00 in seconds since midnight.
var DefaultWorkingHours = [2]int{9 * 3600, 17 * 3600}

func (h PlanningHorizon) Validate() error {
	if h.EndDate.Before(h.StartDate) {
		return Validationf("planning horizon: endDate before startDate")
	}
	for _, d := range h.WorkingDays {
		if d < 0 || d > 6 {
			return Validationf("planning horizon: working day %d out of range [0,6]", d)
		}
	}
	start, end := h.WorkingHours[0], h.WorkingHours[1]
	if !(0 <= start && start < end && end <= SecondsPerDay) {
		return Validationf("planning horizon: working hours [%d,%d] must satisfy 0 <= start < end <= %d", start, end, SecondsPerDay)
	}
	return nil
}

// Normalize dedupes and sorts working days and fills default hours.
func (h PlanningHorizon) Normalize() PlanningHorizon {
	if h.WorkingHours == [2]int{} {
		h.WorkingHours = DefaultWorkingHours
	}
	if len(h.WorkingDays) == 0 {
		h.WorkingDays = []int{0, 1, 2, 3, 4}
		return h
	}
	seen := map[int]bool{}
	days := make([]int, 0, len(h.WorkingDays))
	for d := 0; d <= 6; d++ {
		for _, wd := range h.WorkingDays {
			if wd == d && !seen[d] {
				days = append(days, d)
				seen[d] = true
			}
		}
	}
	h.WorkingDays = days
	return h
}

// Weekday maps Go's Sunday-based weekday to the horizon's Monday-based one.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// VehicleSchedule is one vehicle's plan container for a single day.
// Derived per optimization run; never persisted.
type VehicleSchedule struct {
	VehicleID          string         `json:"vehicleId"`
	Date               time.Time      `json:"date"`
	StartTime          int            `json:"startTime"`
	EndTime            int            `json:"endTime"`
	Breaks             []VehicleBreak `json:"breaks,omitempty"`
	MaxDrivingDuration *int           `json:"maxDrivingDuration,omitempty"`
	MaxDistance        *float64       `json:"maxDistance,omitempty"`
	AssignedJobs       []Job          `json:"assignedJobs,omitempty"`
}

// WorkingDuration is the schedule's working span in seconds.
func (s VehicleSchedule) WorkingDuration() int {
	d := s.EndTime - s.StartTime
	if d < 0 {
		d += SecondsPerDay
	}
	return d
}

// Stop is one step of a produced route. Distance and Duration are measured
// from the previous stop.
type Stop struct {
	Type          string   `json:"type"` // start, job, break, end
	Location      Location `json:"location"`
	ArrivalTime   int      `json:"arrivalTime"`
	DepartureTime int      `json:"departureTime"`
	Distance      float64  `json:"distance"`
	Duration      int      `json:"duration"`
	WaitingTime   int      `json:"waitingTime,omitempty"`
	ServiceTime   int      `json:"serviceTime,omitempty"`
	JobID         string   `json:"jobId,omitempty"`
	BreakID       string   `json:"breakId,omitempty"`
}

// Route is the ordered stop sequence for one vehicle on one (optional) date.
type Route struct {
	VehicleID        string     `json:"vehicleId"`
	Date             *time.Time `json:"date,omitempty"`
	Stops            []Stop     `json:"stops"`
	TotalDistance    float64    `json:"totalDistance"`
	TotalDuration    int        `json:"totalDuration"`
	TotalCost        float64    `json:"totalCost"`
	TotalWaitingTime int        `json:"totalWaitingTime,omitempty"`
	TotalBreakTime   int        `json:"totalBreakTime,omitempty"`
}

// OptimizationResult is the terminal output of one optimize call.
type OptimizationResult struct {
	ID               string             `json:"id"`
	Status           OptimizationStatus `json:"status"`
	Routes           []Route            `json:"routes"`
	TotalDistance    float64            `json:"totalDistance"`
	TotalDuration    int                `json:"totalDuration"`
	TotalCost        float64            `json:"totalCost"`
	OptimizationType OptimizationType   `json:"optimizationType"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
	Errors           []string           `json:"errors,omitempty"`
}

// Options is the closed set of recognized optimize options.
type Options struct {
	Profile       string `json:"profile,omitempty"`       // travel profile, defaults to "car"
	ForceRefresh  bool   `json:"forceRefresh,omitempty"`  // bypass matrix cache reads
	TimeBudgetSec int    `json:"timeBudgetSec,omitempty"` // solver wall-clock budget
	Seed          int64  `json:"seed,omitempty"`          // engine RNG seed, 0 = time-based
}

const (
	DefaultProfile       = "car"
	DefaultTimeBudgetSec = 5
)

// WithDefaults fills unset option fields.
func (o Options) WithDefaults() Options {
	if o.Profile == "" {
		o.Profile = DefaultProfile
	}
	if o.TimeBudgetSec <= 0 {
		o.TimeBudgetSec = DefaultTimeBudgetSec
	}
	return o
}

// OptimizationRequest is the input to the orchestrator.
type OptimizationRequest struct {
	Vehicles         []Vehicle        `json:"vehicles"`
	Jobs             []Job            `json:"jobs"`
	OptimizationType OptimizationType `json:"optimizationType,omitempty"`
	PlanningHorizon  *PlanningHorizon `json:"planningHorizon,omitempty"`
	Options          Options          `json:"options"`
}

func (r OptimizationRequest) Validate() error {
	if len(r.Vehicles) == 0 {
		return Validationf("at least one vehicle must be provided")
	}
	for i, v := range r.Vehicles {
		if err := v.Validate(); err != nil {
			return Validationf("vehicle at index %d: %v", i, err)
		}
	}
	for i, j := range r.Jobs {
		if err := j.Validate(); err != nil {
			return Validationf("job at index %d: %v", i, err)
		}
	}
	switch r.OptimizationType {
	case "", OptimizeDuration, OptimizeDistance:
	default:
		return Validationf("unknown optimization type %q", r.OptimizationType)
	}
	if r.PlanningHorizon != nil {
		if err := r.PlanningHorizon.Validate(); err != nil {
			return err
		}
	}
	return nil
}
