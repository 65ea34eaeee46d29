// Package schedule turns an ordered visit sequence plus travel durations into
// arrival and finish timestamps, honouring the crew pause, the daytime window
// of restricted commercial services and the shift overrun cut-off.
package schedule

import (
	"time"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/travel"
)

// Options carries the crew and policy parameters of one build.
type Options struct {
	ShiftStart time.Time
	ShiftEnd   time.Time
	PauseStart time.Time // zero: no pause
	PauseEnd   time.Time

	OverrunFraction float64
	DaytimeCodes    map[int]bool
	DayStartHour    int
	DayEndHour      int
}

// Stop is one timed visit.
type Stop struct {
	Order   *model.ServiceOrder
	Arrival time.Time
	Finish  time.Time
}

// Result is a built itinerary. Stops may be shorter than the input when the
// overrun cut-off truncated the sequence.
type Result struct {
	Stops      []Stop
	BaseReturn time.Time
	Truncated  bool
}

func (o *Options) hasPause() bool {
	return !o.PauseStart.IsZero() && !o.PauseEnd.IsZero() && o.PauseEnd.After(o.PauseStart)
}

// advance moves the cursor by d seconds of work, suspending over the pause
// window.
func (o *Options) advance(t time.Time, d int) time.Time {
	dur := time.Duration(d) * time.Second
	if !o.hasPause() {
		return t.Add(dur)
	}
	end := t.Add(dur)
	switch {
	case !end.After(o.PauseStart) || !t.Before(o.PauseEnd):
		return end
	case t.Before(o.PauseStart):
		remaining := dur - o.PauseStart.Sub(t)
		return o.PauseEnd.Add(remaining)
	default: // cursor already inside the pause
		return o.PauseEnd.Add(dur)
	}
}

// snapDaytime moves restricted commercial arrivals into the daylight window.
func (o *Options) snapDaytime(order *model.ServiceOrder, arrival time.Time) time.Time {
	if order.Type != model.ServiceCommercial || !o.DaytimeCodes[order.ServiceCode] {
		return arrival
	}
	start, end := o.DayStartHour, o.DayEndHour
	if start == 0 && end == 0 {
		start, end = 8, 18
	}
	y, m, d := arrival.Date()
	switch {
	case arrival.Hour() < start:
		return time.Date(y, m, d, start, 0, 0, 0, arrival.Location())
	case arrival.Hour() >= end:
		return time.Date(y, m, d, start, 0, 0, 0, arrival.Location()).AddDate(0, 0, 1)
	}
	return arrival
}

// Build times the sequence. The matrix must cover base plus every order, in
// order: index 0 is the base, index i+1 is orders[i]. The return leg uses the
// last served stop back to index 0.
func Build(orders []*model.ServiceOrder, matrix travel.Matrix, opts Options) Result {
	res := Result{}
	cursor := opts.ShiftStart
	deadline := opts.ShiftStart.Add(time.Duration(float64(shiftSeconds(opts))*(1+opts.OverrunFraction)) * time.Second)
	last := 0 // matrix index of the current position

	for i, order := range orders {
		leg := legSeconds(matrix, last, i+1)
		arrival := opts.advance(cursor, leg)
		arrival = opts.snapDaytime(order, arrival)
		finish := arrival.Add(time.Duration(order.ServiceSeconds()) * time.Second)
		if finish.After(deadline) {
			res.Truncated = true
			break
		}
		res.Stops = append(res.Stops, Stop{Order: order, Arrival: arrival, Finish: finish})
		cursor = finish
		last = i + 1
	}

	back := legSeconds(matrix, last, 0)
	res.BaseReturn = opts.advance(cursor, back)
	return res
}

func shiftSeconds(opts Options) int {
	d := opts.ShiftEnd.Sub(opts.ShiftStart)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

func legSeconds(m travel.Matrix, from, to int) int {
	if from < len(m) && to < len(m[from]) {
		s := m[from][to]
		if s > 0 {
			return int(s)
		}
	}
	return 0
}
