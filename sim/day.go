// Package sim runs the daily dispatch simulation over a backlog of service
// orders: selects candidates per crew, times them through the optimizer or
// the fallback tiers, and retires assigned orders for good.
package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/config"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/metrics"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// Simulator drives one or more simulated days against a shared backlog.
type Simulator struct {
	Cfg        config.Config
	Dispatcher *Dispatcher
	Backlog    *Backlog
	Logger     hclog.Logger
	Metrics    *metrics.Metrics
	OnEvent    func(Event) // optional sink, called synchronously

	mu sync.Mutex // serializes OnEvent across concurrent crews
}

func (s *Simulator) emit(e Event) {
	if s.OnEvent == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OnEvent(e)
}

func (s *Simulator) log() hclog.Logger {
	if s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

// RunDay simulates one day for the given crews and returns the assignments
// produced. The backlog is updated in place; orders assigned today never
// reappear on later days.
func (s *Simulator) RunDay(ctx context.Context, day time.Time, crews []*model.Crew) ([]model.Assignment, error) {
	ordered := make([]*model.Crew, len(crews))
	copy(ordered, crews)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ShiftStart.Equal(ordered[j].ShiftStart) {
			return ordered[i].ShiftStart.Before(ordered[j].ShiftStart)
		}
		return ordered[i].ID < ordered[j].ID
	})

	s.emit(DayStart{Day: day, Crews: len(ordered), Pending: s.Backlog.Len()})
	s.log().Info("day start", "day", day.Format("2006-01-02"), "crews", len(ordered), "pending", s.Backlog.Len())

	s.Dispatcher.OnFallback = func(crewID, kind string, err error) {
		s.emit(SolverFallback{CrewID: crewID, Kind: kind, Err: err.Error()})
	}

	var (
		out []model.Assignment
		err error
	)
	switch s.Cfg.Mode {
	case config.ModeGrouped:
		out, err = s.runGrouped(ctx, ordered)
	default:
		out, err = s.runRounds(ctx, ordered, nil)
	}
	if err != nil {
		return out, err
	}

	if s.Metrics != nil {
		s.Metrics.DaysSimulated.Inc()
		s.Metrics.BacklogSize.Set(float64(s.Backlog.Len()))
	}
	s.emit(DayDone{Day: day, Assigned: len(out), Remaining: s.Backlog.Len()})
	s.log().Info("day done", "day", day.Format("2006-01-02"), "assigned", len(out), "remaining", s.Backlog.Len())
	return out, nil
}

// runRounds is the round engine: every crew with spare capacity gets one
// dispatch attempt per round, and rounds repeat while anyone makes progress.
// A non-nil used map carries capacity already consumed, letting the grouped
// variant reuse this as its fallback.
func (s *Simulator) runRounds(ctx context.Context, crews []*model.Crew, used map[string]int) ([]model.Assignment, error) {
	if used == nil {
		used = make(map[string]int, len(crews))
	}
	failed := make(map[string]bool, len(crews))
	var all []model.Assignment

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		s.emit(RoundStart{Round: round})

		var accepted []model.Assignment
		if s.Cfg.Parallel {
			accepted = s.roundParallel(ctx, crews, used, failed, round)
		} else {
			accepted = s.roundSequential(ctx, crews, used, failed, round)
		}
		all = append(all, accepted...)
		if len(accepted) == 0 {
			return all, nil
		}
	}
}

func (s *Simulator) roundSequential(ctx context.Context, crews []*model.Crew, used map[string]int, failed map[string]bool, round int) []model.Assignment {
	var accepted []model.Assignment
	for _, crew := range crews {
		remaining := s.Cfg.CrewLimit - used[crew.ID]
		if remaining <= 0 || failed[crew.ID] {
			continue
		}
		pool := s.Backlog.Eligible(crew.ShiftStart)
		if len(pool) == 0 {
			continue
		}
		asg, err := s.Dispatcher.Dispatch(ctx, crew, pool, remaining)
		if err != nil {
			failed[crew.ID] = true
			s.skipCrew(crew, err)
			continue
		}
		accepted = append(accepted, s.accept(crew, asg, used, round)...)
	}
	return accepted
}

// roundParallel dispatches every ready crew concurrently over a snapshot of
// the backlog, then reconciles in crew order: an order claimed by two crews
// stays with the one earlier in the ordering.
func (s *Simulator) roundParallel(ctx context.Context, crews []*model.Crew, used map[string]int, failed map[string]bool, round int) []model.Assignment {
	type proposal struct {
		crew *model.Crew
		asg  []model.Assignment
		err  error
	}
	var ready []*model.Crew
	for _, crew := range crews {
		if s.Cfg.CrewLimit-used[crew.ID] > 0 && !failed[crew.ID] {
			ready = append(ready, crew)
		}
	}
	proposals := make([]proposal, len(ready))
	g, gctx := errgroup.WithContext(ctx)
	for i, crew := range ready {
		i, crew := i, crew
		g.Go(func() error {
			pool := s.Backlog.Eligible(crew.ShiftStart)
			if len(pool) == 0 {
				proposals[i] = proposal{crew: crew}
				return nil
			}
			asg, err := s.Dispatcher.Dispatch(gctx, crew, pool, s.Cfg.CrewLimit-used[crew.ID])
			proposals[i] = proposal{crew: crew, asg: asg, err: err}
			return nil
		})
	}
	_ = g.Wait() // per-crew errors live in the proposals

	var accepted []model.Assignment
	taken := make(map[int64]bool)
	for _, p := range proposals {
		if p.err != nil {
			failed[p.crew.ID] = true
			s.skipCrew(p.crew, p.err)
			continue
		}
		kept := p.asg[:0:0]
		for _, a := range p.asg {
			if taken[a.Order.NumOS] || s.Backlog.Assigned(a.Order.NumOS) {
				continue
			}
			taken[a.Order.NumOS] = true
			kept = append(kept, a)
		}
		accepted = append(accepted, s.accept(p.crew, kept, used, round)...)
	}
	return accepted
}

// accept commits a crew's assignments: removes the orders from the backlog,
// charges the crew's capacity and emits the event.
func (s *Simulator) accept(crew *model.Crew, asg []model.Assignment, used map[string]int, round int) []model.Assignment {
	if len(asg) == 0 {
		return nil
	}
	nums := make([]int64, len(asg))
	for i, a := range asg {
		nums[i] = a.Order.NumOS
	}
	s.Backlog.Remove(nums...)
	used[crew.ID] += len(asg)
	s.emit(CrewAssigned{CrewID: crew.ID, Round: round, Orders: len(asg)})
	return asg
}

func (s *Simulator) skipCrew(crew *model.Crew, err error) {
	s.log().Error("crew skipped", "crew", crew.ID, "error", err)
	s.emit(CrewSkipped{CrewID: crew.ID, Reason: err.Error()})
	if s.Metrics != nil {
		s.Metrics.CrewsSkipped.Inc()
	}
}
