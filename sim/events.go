package sim

import "time"

// Event is anything the simulator reports while running a day.
type Event interface{ isEvent() }

// DayStart opens a simulated day.
type DayStart struct {
	Day     time.Time
	Crews   int
	Pending int
}

// RoundStart opens one dispatch round within a day.
type RoundStart struct {
	Round int
}

// CrewAssigned reports one successful crew dispatch.
type CrewAssigned struct {
	CrewID string
	Round  int
	Orders int
}

// CrewSkipped reports a crew abandoned for the day.
type CrewSkipped struct {
	CrewID string
	Reason string
}

// Fallback kinds carried by SolverFallback, matching the error taxonomy of
// the external optimizer.
const (
	FallbackEmptyRoute = "empty_route"
	FallbackBadRequest = "bad_request"
	FallbackTransient  = "transient"
)

// SolverFallback reports a tier-1 failure handled by the fallback path.
type SolverFallback struct {
	CrewID string
	Kind   string
	Err    string
}

// DayDone closes a simulated day.
type DayDone struct {
	Day       time.Time
	Assigned  int
	Remaining int
}

func (DayStart) isEvent()       {}
func (RoundStart) isEvent()     {}
func (CrewAssigned) isEvent()   {}
func (CrewSkipped) isEvent()    {}
func (SolverFallback) isEvent() {}
func (DayDone) isEvent()        {}
