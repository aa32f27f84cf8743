// Package schedule expands a planning horizon into per-vehicle daily
// schedules honoring the working calendar.
package schedule

import (
	"time"

	"routeopt/internal/model"
)

// BuildSchedules returns one ordered list of daily schedules per vehicle id.
// Without a horizon, each vehicle gets a single schedule for the current
// date using default working hours. Schedules carry the vehicle's breaks and
// per-day driving/distance caps; assigned jobs start empty and are populated
// only by downstream solving.
func BuildSchedules(vehicles []model.Vehicle, horizon *model.PlanningHorizon) (map[string][]model.VehicleSchedule, error) {
	out := make(map[string][]model.VehicleSchedule, len(vehicles))

	if horizon == nil {
		today := midnight(time.Now().UTC())
		for _, v := range vehicles {
			out[v.ID] = []model.VehicleSchedule{daySchedule(v, today, model.DefaultWorkingHours)}
		}
		return out, nil
	}

	h := horizon.Normalize()
	if err := h.Validate(); err != nil {
		return nil, err
	}
	working := make(map[int]bool, len(h.WorkingDays))
	for _, d := range h.WorkingDays {
		working[d] = true
	}

	for _, v := range vehicles {
		var days []model.VehicleSchedule
		for d := midnight(h.StartDate); !d.After(midnight(h.EndDate)); d = d.AddDate(0, 0, 1) {
			if !working[model.Weekday(d)] {
				continue
			}
			days = append(days, daySchedule(v, d, h.WorkingHours))
		}
		out[v.ID] = days
	}
	return out, nil
}

func daySchedule(v model.Vehicle, date time.Time, hours [2]int) model.VehicleSchedule {
	start, end := hours[0], hours[1]
	// A vehicle-level time window narrows the working hours for the day.
	if v.TimeWindow != nil {
		if v.TimeWindow.Start > start {
			start = v.TimeWindow.Start
		}
		if v.TimeWindow.End < end {
			end = v.TimeWindow.End
		}
	}
	return model.VehicleSchedule{
		VehicleID:          v.ID,
		Date:               date,
		StartTime:          start,
		EndTime:            end,
		Breaks:             v.Breaks,
		MaxDrivingDuration: v.MaxDrivingDuration,
		MaxDistance:        v.MaxDistance,
		AssignedJobs:       []model.Job{},
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
