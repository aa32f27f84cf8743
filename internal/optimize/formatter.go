package optimize

import (
	"time"

	"routeopt/internal/compile"
	"routeopt/internal/model"
	"routeopt/internal/solve"
)

// formatRoutes converts the raw solver output into public Routes. Distance
// and duration "from previous stop" are taken directly from the matrix entry
// between the two nodes, not from cumulative differences.
func formatRoutes(raw *solve.RawSolution, cp *compile.Problem, schedules map[string][]model.VehicleSchedule) []model.Route {
	routes := []model.Route{}
	for vi, vr := range raw.Vehicles {
		if len(vr.Visits) == 0 {
			continue
		}
		cv := cp.Vehicles[vi]
		var date *time.Time
		if days := schedules[cv.ID]; len(days) > 0 {
			d := days[0].Date
			date = &d
		}

		route := model.Route{
			VehicleID:        cv.ID,
			Date:             date,
			TotalWaitingTime: vr.WaitSec,
			TotalBreakTime:   vr.BreakSec,
		}

		route.Stops = append(route.Stops, model.Stop{
			Type:          "start",
			Location:      cp.Locations[cv.Start],
			ArrivalTime:   cv.TWStart,
			DepartureTime: cv.TWStart,
		})

		appendBreaks := func(after int, prevLoc model.Location) {
			for _, b := range vr.Breaks {
				if b.AfterVisit != after {
					continue
				}
				route.Stops = append(route.Stops, model.Stop{
					Type:          "break",
					Location:      prevLoc,
					ArrivalTime:   b.Start,
					DepartureTime: b.End,
					BreakID:       b.ID,
				})
			}
		}

		prev := cv.Start
		appendBreaks(-1, cp.Locations[cv.Start])
		for i, v := range vr.Visits {
			job := cp.Jobs[v.JobIndex]
			dist := cp.Matrices.Distances[prev][job.Node]
			dur := int(cp.Matrices.Times[prev][job.Node] / cv.SpeedFactor)
			route.Stops = append(route.Stops, model.Stop{
				Type:          "job",
				Location:      cp.Locations[job.Node],
				ArrivalTime:   v.Arrival,
				DepartureTime: v.Departure,
				Distance:      dist,
				Duration:      dur,
				WaitingTime:   v.Wait,
				ServiceTime:   job.Setup + job.Service,
				JobID:         job.ID,
			})
			route.TotalDistance += dist
			route.TotalDuration += dur
			prev = job.Node
			appendBreaks(i, cp.Locations[job.Node])
		}

		endDist := cp.Matrices.Distances[prev][cv.End]
		endDur := int(cp.Matrices.Times[prev][cv.End] / cv.SpeedFactor)
		route.Stops = append(route.Stops, model.Stop{
			Type:          "end",
			Location:      cp.Locations[cv.End],
			ArrivalTime:   vr.EndArrival,
			DepartureTime: vr.EndArrival,
			Distance:      endDist,
			Duration:      endDur,
		})
		route.TotalDistance += endDist
		route.TotalDuration += endDur

		route.TotalCost = routeCost(cv.Costs, route)
		routes = append(routes, route)
	}
	return routes
}

func routeCost(c model.VehicleCosts, r model.Route) float64 {
	return c.Fixed +
		c.Distance*r.TotalDistance +
		c.Time*float64(r.TotalDuration) +
		c.Waiting*float64(r.TotalWaitingTime) +
		c.BreakTime*float64(r.TotalBreakTime)
}

// assignToSchedules populates the first schedule of each routed vehicle with
// its served jobs, for reporting only.
func assignToSchedules(routes []model.Route, jobsByID map[string]model.Job, schedules map[string][]model.VehicleSchedule) {
	for _, r := range routes {
		days := schedules[r.VehicleID]
		if len(days) == 0 {
			continue
		}
		for _, s := range r.Stops {
			if s.JobID == "" {
				continue
			}
			if j, ok := jobsByID[s.JobID]; ok {
				days[0].AssignedJobs = append(days[0].AssignedJobs, j)
			}
		}
		schedules[r.VehicleID] = days
	}
}
