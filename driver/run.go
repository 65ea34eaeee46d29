// Package driver wires the loader, travel tiers, optimizer client and day
// simulator into one end-to-end run over a span of days.
package driver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/config"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/loader"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/metrics"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/opt"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/sim"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/travel"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/vroom"
)

// Inputs names the three source tables of one run.
type Inputs struct {
	CrewsPath      string
	TechnicalPath  string
	CommercialPath string
}

// DayResult is one simulated day's outcome.
type DayResult struct {
	Day      time.Time
	Assigned int
	File     string
}

// Summary is the run outcome.
type Summary struct {
	RunID     string
	Days      []DayResult
	Assigned  int
	Remaining int
}

// Runner owns the long-lived pieces of a run.
type Runner struct {
	Cfg     config.Config
	Logger  hclog.Logger
	Metrics *metrics.Metrics
	Out     io.Writer // per-day summaries; nil silences them
}

// Run loads the inputs, simulates every day found in the crew table in
// chronological order and persists one assignment file per day.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Summary, error) {
	log := r.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	runID := uuid.NewString()
	log.Info("run start", "run_id", runID, "mode", r.Cfg.Mode, "k", r.Cfg.CrewLimit)

	ld := loader.New(log.Named("loader"))
	crews, err := ld.Crews(in.CrewsPath)
	if err != nil {
		return nil, fmt.Errorf("load crews: %w", err)
	}
	if len(crews) == 0 {
		return nil, fmt.Errorf("no usable crews in %s", in.CrewsPath)
	}
	tech, err := ld.Technical(in.TechnicalPath)
	if err != nil {
		return nil, fmt.Errorf("load technical orders: %w", err)
	}
	comm, err := ld.Commercial(in.CommercialPath)
	if err != nil {
		return nil, fmt.Errorf("load commercial orders: %w", err)
	}

	backlog := sim.NewBacklog()
	backlog.Add(tech)
	backlog.Add(comm)
	if r.Metrics != nil {
		r.Metrics.BacklogSize.Set(float64(backlog.Len()))
	}

	timeout := time.Duration(r.Cfg.HTTPTimeoutSec) * time.Second
	osrm := travel.NewOSRM(r.Cfg.OSRMURL, timeout)
	chain := travel.NewChain(log.Named("travel"), osrm, travel.NewGreatCircle(r.Cfg.AvgSpeedKmh))

	dispatcher := &sim.Dispatcher{
		Cfg:      r.Cfg,
		Solver:   vroom.New(r.Cfg.VroomURL, timeout),
		Chain:    chain,
		Snapper:  osrm,
		Selector: opt.NewSelector(r.Cfg.Seed),
		Logger:   log.Named("dispatch"),
		Metrics:  r.Metrics,
	}
	simulator := &sim.Simulator{
		Cfg:        r.Cfg,
		Dispatcher: dispatcher,
		Backlog:    backlog,
		Logger:     log.Named("sim"),
		Metrics:    r.Metrics,
	}
	var emptyRoutes, badRequests int
	simulator.OnEvent = func(e sim.Event) {
		f, ok := e.(sim.SolverFallback)
		if !ok {
			return
		}
		switch f.Kind {
		case sim.FallbackEmptyRoute:
			emptyRoutes++
		case sim.FallbackBadRequest:
			badRequests++
		}
	}

	summary := &Summary{RunID: runID}
	for _, day := range dayOrder(crews) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		dayCrews := crewsOfDay(crews, day)
		emptyRoutes, badRequests = 0, 0
		asg, err := simulator.RunDay(ctx, day, dayCrews)
		if err != nil {
			return summary, fmt.Errorf("day %s: %w", day.Format("2006-01-02"), err)
		}
		if r.Out != nil {
			newPending, carried := backlog.PendingSplit(day)
			sim.WriteDayReport(r.Out, day, asg, sim.DayStats{
				NewPending:  newPending,
				Carried:     carried,
				EmptyRoutes: emptyRoutes,
				BadRequests: badRequests,
			})
		}
		path, err := loader.WriteAssignments(r.Cfg.ResultsDir, runID, day, asg)
		if err != nil {
			return summary, fmt.Errorf("persist day %s: %w", day.Format("2006-01-02"), err)
		}
		summary.Days = append(summary.Days, DayResult{Day: day, Assigned: len(asg), File: path})
		summary.Assigned += len(asg)
	}
	summary.Remaining = backlog.Len()
	log.Info("run done", "run_id", runID, "days", len(summary.Days), "assigned", summary.Assigned, "remaining", summary.Remaining)
	return summary, nil
}

func dayOrder(crews []*model.Crew) []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, c := range crews {
		if !seen[c.Day] {
			seen[c.Day] = true
			days = append(days, c.Day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func crewsOfDay(crews []*model.Crew, day time.Time) []*model.Crew {
	var out []*model.Crew
	for _, c := range crews {
		if c.Day.Equal(day) {
			out = append(out, c)
		}
	}
	return out
}
