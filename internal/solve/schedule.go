package solve

// visit is a served node with its computed times, all in elapsed seconds.
type visit struct {
	node      int // index into Problem.Nodes
	arrival   int
	departure int
	wait      int
}

// breakEvent records a taken break and the visit it follows (-1 = before the
// first visit).
type breakEvent struct {
	spec  int // index into VehicleSpec.Breaks
	after int
	start int
	end   int
}

// planSchedule is the propagated timing of one route plan.
type planSchedule struct {
	visits     []visit
	breaks     []breakEvent
	endArrival int
	driveSec   float64
	distM      float64
	waitSec    int
	breakSec   int
}

// schedulePlan walks the plan from the vehicle's start depot, accumulating
// travel, waits, service, and breaks, and reports feasibility against node
// and vehicle time windows and the vehicle's driving/distance caps.
// Breaks are taken when their driving limit forces them or when the current
// time enters one of their windows; an empty plan takes no breaks.
func schedulePlan(p Problem, pl RoutePlan, v VehicleSpec) (planSchedule, bool) {
	var s planSchedule
	if len(pl.Order) == 0 {
		s.endArrival = v.TWStart
		return s, true
	}

	t := v.TWStart
	cur := v.Start
	taken := make([]bool, len(v.Breaks))
	driveSince := 0.0

	takeBreak := func(bi int) bool {
		b := v.Breaks[bi]
		start := breakStart(b, t)
		if start < 0 {
			return false
		}
		s.breaks = append(s.breaks, breakEvent{spec: bi, after: len(s.visits) - 1, start: start, end: start + b.Duration})
		if start > t {
			s.waitSec += start - t
		}
		t = start + b.Duration
		s.breakSec += b.Duration
		driveSince = 0
		taken[bi] = true
		return true
	}

	for _, idx := range pl.Order {
		nd := p.Nodes[idx]
		legTime := arcTime(p, v, cur, nd.Matrix)
		legDist := p.Dist[cur][nd.Matrix]

		// Forced break before this leg would exceed the driving limit.
		for bi, b := range v.Breaks {
			if taken[bi] || b.MaxDriveBefore <= 0 {
				continue
			}
			if driveSince+legTime > float64(b.MaxDriveBefore) {
				if !takeBreak(bi) {
					return s, false
				}
			}
		}

		t += int(legTime)
		driveSince += legTime
		s.driveSec += legTime
		s.distM += legDist

		arr := t
		wait := 0
		if arr < nd.TWStart {
			wait = nd.TWStart - arr
			arr = nd.TWStart
			t = arr
		}
		if arr > nd.TWEnd {
			return s, false
		}
		dep := arr + nd.Setup + nd.Service
		t = dep
		s.waitSec += wait
		s.visits = append(s.visits, visit{node: idx, arrival: arr, departure: dep, wait: wait})
		cur = nd.Matrix

		// Opportunistic breaks whose window is open now.
		for bi, b := range v.Breaks {
			if taken[bi] || b.MaxDriveBefore > 0 {
				continue
			}
			if inWindow(b.Windows, t) {
				if !takeBreak(bi) {
					return s, false
				}
			}
		}
	}

	legTime := arcTime(p, v, cur, v.End)
	s.driveSec += legTime
	s.distM += p.Dist[cur][v.End]
	t += int(legTime)
	s.endArrival = t

	if t > v.TWEnd {
		return s, false
	}
	if v.MaxDriveSec > 0 && s.driveSec > float64(v.MaxDriveSec) {
		return s, false
	}
	if v.MaxDistM > 0 && s.distM > v.MaxDistM {
		return s, false
	}
	if v.MaxTasks > 0 && len(pl.Order) > v.MaxTasks {
		return s, false
	}
	return s, true
}

// breakStart picks the earliest permitted start at or after t, or -1 when
// every window has closed.
func breakStart(b BreakSpec, t int) int {
	if len(b.Windows) == 0 {
		return t
	}
	best := -1
	for _, w := range b.Windows {
		if t > w[1] {
			continue
		}
		start := t
		if start < w[0] {
			start = w[0]
		}
		if best < 0 || start < best {
			best = start
		}
	}
	return best
}

func inWindow(windows [][2]int, t int) bool {
	for _, w := range windows {
		if t >= w[0] && t <= w[1] {
			return true
		}
	}
	return false
}
