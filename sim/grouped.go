package sim

import (
	"context"
	"errors"
	"sort"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/opt"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/vroom"
)

// errNoSolver forces the round fallback when no external optimizer is wired.
var errNoSolver = errors.New("no external optimizer configured")

// runGrouped is the grouped variant: crews sharing a shift start are solved
// as one multi-vehicle problem with per-vehicle capacity. A group whose
// solver call fails is re-run through the round engine instead.
func (s *Simulator) runGrouped(ctx context.Context, crews []*model.Crew) ([]model.Assignment, error) {
	var all []model.Assignment
	for _, group := range groupByShiftStart(crews) {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		asg, err := s.dispatchGroup(ctx, group)
		if err != nil {
			s.log().Warn("group solve failed, falling back to rounds", "crews", len(group), "error", err)
			s.emit(SolverFallback{CrewID: group[0].ID, Kind: classifySolverErr(err), Err: err.Error()})
			if s.Metrics != nil {
				s.Metrics.SolverErrors.WithLabelValues("vroom").Inc()
			}
			asg, err = s.runRounds(ctx, group, nil)
			if err != nil {
				return all, err
			}
		}
		all = append(all, asg...)
	}
	return all, nil
}

// groupByShiftStart partitions crews into groups with identical shift starts,
// ordered by start time. The input must already be sorted by shift start.
func groupByShiftStart(crews []*model.Crew) [][]*model.Crew {
	var groups [][]*model.Crew
	for _, crew := range crews {
		n := len(groups)
		if n > 0 && groups[n-1][0].ShiftStart.Equal(crew.ShiftStart) {
			groups[n-1] = append(groups[n-1], crew)
			continue
		}
		groups = append(groups, []*model.Crew{crew})
	}
	return groups
}

// dispatchGroup solves one multi-vehicle problem for a shift-start group and
// commits the result.
func (s *Simulator) dispatchGroup(ctx context.Context, group []*model.Crew) ([]model.Assignment, error) {
	if s.Dispatcher.Solver == nil {
		return nil, errNoSolver
	}
	start := group[0].ShiftStart
	pool := s.Backlog.Eligible(start)
	if len(pool) == 0 {
		return nil, nil
	}

	// Score-descending pre-filter sized for the whole group.
	limit := s.Cfg.CrewLimit * len(group) * 4
	if len(pool) > limit {
		scorer := opt.Scorer{Ref: start}
		scored := make([]*model.ServiceOrder, len(pool))
		copy(scored, pool)
		sort.SliceStable(scored, func(i, j int) bool {
			return scorer.Score(scored[i]) > scorer.Score(scored[j])
		})
		pool = scored[:limit]
	}

	vehicles := make([]vroom.Vehicle, 0, len(group))
	for i, crew := range group {
		base := s.Dispatcher.crewBase(ctx, crew)
		vehicles = append(vehicles, vroom.Vehicle{
			ID:         i + 1,
			Start:      [2]float64{base.Lon, base.Lat},
			End:        [2]float64{base.Lon, base.Lat},
			TimeWindow: [2]int{0, crew.ShiftSeconds()},
			Capacity:   []int{s.Cfg.CrewLimit},
		})
	}
	jobs := make([]vroom.Job, 0, len(pool))
	byNum := make(map[int64]*model.ServiceOrder, len(pool))
	for _, o := range pool {
		jobs = append(jobs, vroom.Job{
			ID:       o.NumOS,
			Location: [2]float64{o.Location.Lon, o.Location.Lat},
			Service:  o.ServiceSeconds(),
			Delivery: []int{1},
		})
		byNum[o.NumOS] = o
	}

	routes, err := s.Dispatcher.Solver.RouteMulti(ctx, vehicles, jobs)
	if err != nil {
		return nil, err
	}

	// Validate the whole response before committing anything: a bad route
	// must not leave earlier routes' orders removed from the backlog with
	// no assignment to show for them.
	type crewRoute struct {
		crew *model.Crew
		asg  []model.Assignment
	}
	parsed := make([]crewRoute, 0, len(routes))
	for _, route := range routes {
		idx := route.Vehicle - 1
		if idx < 0 || idx >= len(group) {
			continue
		}
		crew := group[idx]
		asg, err := s.Dispatcher.routeToAssignments(crew, start, route, byNum)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, crewRoute{crew: crew, asg: asg})
	}

	used := make(map[string]int, len(group))
	var all []model.Assignment
	for _, cr := range parsed {
		all = append(all, s.accept(cr.crew, cr.asg, used, 1)...)
	}
	return all, nil
}
