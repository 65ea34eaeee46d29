package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/config"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/metrics"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/opt"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/schedule"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/travel"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/vroom"
)

// Solver is the external route optimizer surface the dispatcher needs.
// *vroom.Client implements it.
type Solver interface {
	Route(ctx context.Context, vehicle vroom.Vehicle, jobs []vroom.Job) (*vroom.Route, error)
	RouteMulti(ctx context.Context, vehicles []vroom.Vehicle, jobs []vroom.Job) ([]vroom.Route, error)
}

// Snapper moves a coordinate onto the road network. *travel.OSRM implements
// it; nil disables snapping.
type Snapper interface {
	Nearest(ctx context.Context, p model.Point) model.Point
}

// Dispatcher runs the per-crew pipeline: eligibility is the caller's job,
// then candidate selection, then timing through the optimizer or the
// fallback tiers.
type Dispatcher struct {
	Cfg      config.Config
	Solver   Solver // nil: go straight to the fallback tiers
	Chain    *travel.Chain
	Snapper  Snapper
	Selector *opt.Selector
	Logger   hclog.Logger
	Metrics  *metrics.Metrics

	// OnFallback is called whenever the external optimizer fails and the
	// fallback tiers take over. May be called from concurrent crews.
	OnFallback func(crewID, kind string, err error)
}

// Dispatch picks at most capacity orders from pool for the crew and times
// them. A nil error with zero assignments is a valid outcome. An error means
// no travel tier could answer for this crew.
func (d *Dispatcher) Dispatch(ctx context.Context, crew *model.Crew, pool []*model.ServiceOrder, capacity int) ([]model.Assignment, error) {
	selected := d.Selector.Select(pool, capacity, crew.ShiftStart)
	if len(selected) == 0 {
		return nil, nil
	}
	base := d.crewBase(ctx, crew)

	if d.Solver != nil {
		asg, err := d.viaSolver(ctx, crew, base, selected)
		if err == nil {
			return asg, nil
		}
		d.logger().Warn("optimizer failed, using fallback tiers", "crew", crew.ID, "error", err)
		if d.Metrics != nil {
			d.Metrics.SolverErrors.WithLabelValues("vroom").Inc()
		}
		if d.OnFallback != nil {
			d.OnFallback(crew.ID, classifySolverErr(err), err)
		}
	}
	return d.viaFallback(ctx, crew, base, selected)
}

// classifySolverErr maps an optimizer failure onto the fallback kinds.
func classifySolverErr(err error) string {
	var se *vroom.StatusError
	switch {
	case errors.Is(err, vroom.ErrEmptyRoute):
		return FallbackEmptyRoute
	case errors.As(err, &se) && se.IsBadRequest():
		return FallbackBadRequest
	default:
		return FallbackTransient
	}
}

func (d *Dispatcher) logger() hclog.Logger {
	if d.Logger == nil {
		return hclog.NewNullLogger()
	}
	return d.Logger
}

// crewBase resolves the crew depot, snapped to the road network when a
// snapper is configured. Snap failures fall back to the raw coordinate.
func (d *Dispatcher) crewBase(ctx context.Context, crew *model.Crew) model.Point {
	base := d.Cfg.Base()
	if crew.Base != nil && crew.Base.Valid() {
		base = *crew.Base
	}
	if d.Snapper != nil {
		base = d.Snapper.Nearest(ctx, base)
	}
	return base
}

// viaSolver asks the external optimizer for a single-vehicle route over the
// selected orders and converts its relative arrivals into timestamps.
func (d *Dispatcher) viaSolver(ctx context.Context, crew *model.Crew, base model.Point, selected []*model.ServiceOrder) ([]model.Assignment, error) {
	vehicle := vroom.Vehicle{
		ID:         1,
		Start:      [2]float64{base.Lon, base.Lat},
		End:        [2]float64{base.Lon, base.Lat},
		TimeWindow: [2]int{0, crew.ShiftSeconds()},
	}
	jobs := make([]vroom.Job, 0, len(selected))
	byNum := make(map[int64]*model.ServiceOrder, len(selected))
	for _, o := range selected {
		jobs = append(jobs, vroom.Job{
			ID:       o.NumOS,
			Location: [2]float64{o.Location.Lon, o.Location.Lat},
			Service:  o.ServiceSeconds(),
		})
		byNum[o.NumOS] = o
	}

	route, err := d.Solver.Route(ctx, vehicle, jobs)
	if err != nil {
		return nil, err
	}
	asg, err := d.routeToAssignments(crew, crew.ShiftStart, *route, byNum)
	if err != nil {
		return nil, err
	}
	if len(asg) == 0 {
		// every job unassigned, same as no route at all
		return nil, vroom.ErrEmptyRoute
	}
	return asg, nil
}

// routeToAssignments turns one solved route into assignment records. epoch is
// the instant the solver's second zero maps to.
func (d *Dispatcher) routeToAssignments(crew *model.Crew, epoch time.Time, route vroom.Route, byNum map[int64]*model.ServiceOrder) ([]model.Assignment, error) {
	var (
		out        []model.Assignment
		baseReturn time.Time
		prevDepart = 0
	)
	for _, step := range route.Steps {
		switch step.Type {
		case "job":
			order, ok := byNum[step.Job]
			if !ok {
				return nil, fmt.Errorf("optimizer returned unknown job %d", step.Job)
			}
			arrival := epoch.Add(time.Duration(step.Arrival) * time.Second)
			out = append(out, model.Assignment{
				Order:      order,
				CrewID:     crew.ID,
				Day:        crew.Day,
				Arrival:    arrival,
				Finish:     arrival.Add(time.Duration(order.ServiceSeconds()) * time.Second),
				TravelSecs: step.Arrival - prevDepart,
				Source:     model.SourceExternalOptimizer,
			})
			prevDepart = step.Arrival + order.ServiceSeconds()
		case "end":
			baseReturn = epoch.Add(time.Duration(step.Arrival) * time.Second)
		}
	}
	for i := range out {
		out[i].BaseReturn = baseReturn
	}
	d.count(out)
	return out, nil
}

// viaFallback times the selector's order with a duration matrix from the
// travel chain and the local schedule builder.
func (d *Dispatcher) viaFallback(ctx context.Context, crew *model.Crew, base model.Point, selected []*model.ServiceOrder) ([]model.Assignment, error) {
	points := make([]model.Point, 0, len(selected)+1)
	points = append(points, base)
	for _, o := range selected {
		points = append(points, o.Location)
	}
	matrix, source, err := d.Chain.Durations(ctx, points)
	if err != nil {
		if d.Metrics != nil {
			d.Metrics.SolverErrors.WithLabelValues("chain").Inc()
		}
		return nil, fmt.Errorf("crew %s: every travel tier failed: %w", crew.ID, err)
	}

	res := schedule.Build(selected, matrix, schedule.Options{
		ShiftStart:      crew.ShiftStart,
		ShiftEnd:        crew.ShiftEnd,
		PauseStart:      crew.PauseStart,
		PauseEnd:        crew.PauseEnd,
		OverrunFraction: d.Cfg.OverrunFraction,
		DaytimeCodes:    d.Cfg.DaytimeCodeSet(),
		DayStartHour:    d.Cfg.DayStartHour,
		DayEndHour:      d.Cfg.DayEndHour,
	})

	out := make([]model.Assignment, 0, len(res.Stops))
	for i, stop := range res.Stops {
		out = append(out, model.Assignment{
			Order:      stop.Order,
			CrewID:     crew.ID,
			Day:        crew.Day,
			Arrival:    stop.Arrival,
			Finish:     stop.Finish,
			BaseReturn: res.BaseReturn,
			TravelSecs: legSeconds(matrix, i, i+1),
			Source:     source,
		})
	}
	d.count(out)
	return out, nil
}

func (d *Dispatcher) count(asg []model.Assignment) {
	if d.Metrics == nil {
		return
	}
	for _, a := range asg {
		d.Metrics.Assignments.WithLabelValues(string(a.Order.Type), string(a.Source)).Inc()
	}
}

func legSeconds(m travel.Matrix, from, to int) int {
	if from < len(m) && to < len(m[from]) && m[from][to] > 0 {
		return int(m[from][to])
	}
	return 0
}
