package sim

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/config"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/opt"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/travel"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/vroom"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CrewLimit = 15
	cfg.AvgSpeedKmh = 60
	// depot right next to the (1,1) test orders
	cfg.BaseLon, cfg.BaseLat = 1.001, 1
	return cfg
}

func testCrew(id string, day time.Time) *model.Crew {
	return &model.Crew{
		ID:         id,
		Day:        day,
		ShiftStart: day.Add(8 * time.Hour),
		ShiftEnd:   day.Add(17 * time.Hour),
	}
}

// newDispatcher wires the fallback tiers only; pass a solver to add tier 1.
func newDispatcher(cfg config.Config, solver Solver) *Dispatcher {
	return &Dispatcher{
		Cfg:      cfg,
		Solver:   solver,
		Chain:    travel.NewChain(nil, travel.NewGreatCircle(cfg.AvgSpeedKmh)),
		Selector: opt.NewSelector(cfg.Seed),
	}
}

func newSimulator(cfg config.Config, d *Dispatcher) *Simulator {
	return &Simulator{Cfg: cfg, Dispatcher: d, Backlog: NewBacklog()}
}

func TestDispatchFallbackTimesTwoStops(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	cfg := testConfig()
	crew := testCrew("EQ-01", day)
	a := order(1, t0.Add(-time.Hour))
	a.Location = model.Point{Lon: 0.01, Lat: 0}
	a.ExecMinutes = 30
	b := order(2, t0.Add(-2*time.Hour))
	b.Location = model.Point{Lon: 0.02, Lat: 0}
	b.ExecMinutes = 20
	cfg.BaseLon, cfg.BaseLat = 0, 0.00001

	d := newDispatcher(cfg, nil)
	asg, err := d.Dispatch(context.Background(), crew, []*model.ServiceOrder{a, b}, cfg.CrewLimit)
	require.NoError(t, err)
	require.Len(t, asg, 2)
	for _, x := range asg {
		assert.Equal(t, model.SourceGreatCircle, x.Source)
		assert.Equal(t, "EQ-01", x.CrewID)
		assert.False(t, x.BaseReturn.IsZero())
	}
	assert.Equal(t, "08:01", asg[0].Arrival.Format("15:04"))
	assert.Equal(t, "08:31", asg[0].Finish.Format("15:04"))
}

func TestDispatchEmptyPool(t *testing.T) {
	crew := testCrew("EQ-01", t0.Add(-8*time.Hour))
	asg, err := newDispatcher(testConfig(), nil).Dispatch(context.Background(), crew, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, asg)
}

func TestDispatchSolverPreferred(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":0,"routes":[{"vehicle":1,"steps":[
			{"type":"start","arrival":0},
			{"type":"job","job":2,"arrival":600},
			{"type":"job","job":1,"arrival":2400},
			{"type":"end","arrival":3600}
		]}]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	crew := testCrew("EQ-01", day)
	pool := []*model.ServiceOrder{order(1, t0.Add(-time.Hour)), order(2, t0.Add(-time.Hour))}
	d := newDispatcher(cfg, vroom.New(srv.URL, time.Second))

	asg, err := d.Dispatch(context.Background(), crew, pool, cfg.CrewLimit)
	require.NoError(t, err)
	require.Len(t, asg, 2)
	// the optimizer's order and relative arrivals are preserved
	assert.Equal(t, int64(2), asg[0].Order.NumOS)
	assert.Equal(t, crew.ShiftStart.Add(10*time.Minute), asg[0].Arrival)
	assert.Equal(t, asg[0].Arrival.Add(10*time.Minute), asg[0].Finish)
	assert.Equal(t, crew.ShiftStart.Add(40*time.Minute), asg[1].Arrival)
	for _, x := range asg {
		assert.Equal(t, model.SourceExternalOptimizer, x.Source)
		assert.Equal(t, crew.ShiftStart.Add(time.Hour), x.BaseReturn)
	}
}

func TestDispatchSolverBadRequestFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig()
	crew := testCrew("EQ-01", t0.Add(-8*time.Hour))
	pool := []*model.ServiceOrder{order(1, t0.Add(-time.Hour)), order(2, t0.Add(-time.Hour)), order(3, t0.Add(-time.Hour))}
	d := newDispatcher(cfg, vroom.New(srv.URL, time.Second))

	asg, err := d.Dispatch(context.Background(), crew, pool, cfg.CrewLimit)
	require.NoError(t, err)
	require.Len(t, asg, 3)
	for _, x := range asg {
		assert.Contains(t, []model.TravelSource{model.SourceRoadNetworkTable, model.SourceGreatCircle}, x.Source)
	}
}

type failingOracle struct{}

func (failingOracle) Durations(context.Context, []model.Point) (travel.Matrix, error) {
	return nil, fmt.Errorf("table down")
}
func (failingOracle) Source() model.TravelSource { return model.SourceRoadNetworkTable }

func TestDispatchAllTiersFailIsFatalForCrew(t *testing.T) {
	cfg := testConfig()
	d := &Dispatcher{
		Cfg:      cfg,
		Chain:    travel.NewChain(nil, failingOracle{}),
		Selector: opt.NewSelector(1),
	}
	crew := testCrew("EQ-01", t0.Add(-8*time.Hour))
	_, err := d.Dispatch(context.Background(), crew, []*model.ServiceOrder{order(1, t0.Add(-time.Hour))}, 5)
	assert.ErrorContains(t, err, "every travel tier failed")
}

func TestRunDayCapacityAndTopScores(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	cfg := testConfig()
	cfg.CrewLimit = 2

	s := newSimulator(cfg, newDispatcher(cfg, nil))
	var pool []*model.ServiceOrder
	for i := 1; i <= 5; i++ {
		pool = append(pool, order(int64(i), t0.Add(-time.Duration(i)*time.Hour)))
	}
	// orders 4 and 5 get a decisive pending-days advantage
	pool[3].RequestedAt = t0.AddDate(0, 0, -30)
	pool[4].RequestedAt = t0.AddDate(0, 0, -40)
	s.Backlog.Add(pool)

	asg, err := s.RunDay(context.Background(), day, []*model.Crew{testCrew("EQ-01", day)})
	require.NoError(t, err)
	require.Len(t, asg, 2, "per-crew cap applies")
	got := map[int64]bool{}
	for _, a := range asg {
		got[a.Order.NumOS] = true
	}
	assert.True(t, got[4] && got[5], "top-2 by score expected, got %v", got)
}

func TestRunDayExclusivityAcrossDays(t *testing.T) {
	day1 := t0.Add(-8 * time.Hour)
	day2 := day1.AddDate(0, 0, 1)
	cfg := testConfig()

	s := newSimulator(cfg, newDispatcher(cfg, nil))
	mk := func() []*model.ServiceOrder {
		return []*model.ServiceOrder{order(1, day1), order(2, day1), order(3, day1)}
	}
	s.Backlog.Add(mk())

	first, err := s.RunDay(context.Background(), day1, []*model.Crew{testCrew("EQ-01", day1)})
	require.NoError(t, err)
	require.Len(t, first, 3)

	// day 2 input repeats the same raw orders
	s.Backlog.Add(mk())
	second, err := s.RunDay(context.Background(), day2, []*model.Crew{testCrew("EQ-01", day2)})
	require.NoError(t, err)
	assert.Empty(t, second, "assigned orders never reappear")
}

func TestRunDayTwoCrewsNoOverlap(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	cfg := testConfig()
	cfg.CrewLimit = 2

	s := newSimulator(cfg, newDispatcher(cfg, nil))
	var pool []*model.ServiceOrder
	for i := 1; i <= 6; i++ {
		pool = append(pool, order(int64(i), day))
	}
	s.Backlog.Add(pool)

	crews := []*model.Crew{testCrew("EQ-01", day), testCrew("EQ-02", day)}
	asg, err := s.RunDay(context.Background(), day, crews)
	require.NoError(t, err)
	require.Len(t, asg, 4)

	seen := map[int64]string{}
	perCrew := map[string]int{}
	for _, a := range asg {
		prev, dup := seen[a.Order.NumOS]
		require.False(t, dup, "order %d assigned to both %s and %s", a.Order.NumOS, prev, a.CrewID)
		seen[a.Order.NumOS] = a.CrewID
		perCrew[a.CrewID]++
	}
	for id, n := range perCrew {
		assert.LessOrEqual(t, n, cfg.CrewLimit, "crew %s over capacity", id)
	}
}

func TestRunDayParallelKeepsInvariants(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	cfg := testConfig()
	cfg.CrewLimit = 3
	cfg.Parallel = true

	s := newSimulator(cfg, newDispatcher(cfg, nil))
	var pool []*model.ServiceOrder
	for i := 1; i <= 10; i++ {
		pool = append(pool, order(int64(i), day))
	}
	s.Backlog.Add(pool)

	crews := []*model.Crew{testCrew("EQ-01", day), testCrew("EQ-02", day)}
	asg, err := s.RunDay(context.Background(), day, crews)
	require.NoError(t, err)

	seen := map[int64]bool{}
	perCrew := map[string]int{}
	for _, a := range asg {
		require.False(t, seen[a.Order.NumOS], "order %d duplicated", a.Order.NumOS)
		seen[a.Order.NumOS] = true
		perCrew[a.CrewID]++
	}
	for id, n := range perCrew {
		assert.LessOrEqual(t, n, cfg.CrewLimit, "crew %s over capacity", id)
	}
}

func TestRunDayIdempotent(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	run := func() []model.Assignment {
		cfg := testConfig()
		cfg.CrewLimit = 3
		cfg.Seed = 42
		s := newSimulator(cfg, newDispatcher(cfg, nil))
		var pool []*model.ServiceOrder
		for i := 1; i <= 25; i++ {
			pool = append(pool, order(int64(i), t0.Add(-time.Duration(i)*time.Minute)))
		}
		s.Backlog.Add(pool)
		asg, err := s.RunDay(context.Background(), day, []*model.Crew{testCrew("EQ-01", day)})
		require.NoError(t, err)
		return asg
	}
	a, b := run(), run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Order.NumOS, b[i].Order.NumOS)
		assert.Equal(t, a[i].Arrival, b[i].Arrival)
		assert.Equal(t, a[i].Finish, b[i].Finish)
	}
}

func TestRunDayEvents(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	cfg := testConfig()
	s := newSimulator(cfg, newDispatcher(cfg, nil))
	s.Backlog.Add([]*model.ServiceOrder{order(1, day)})

	var events []Event
	s.OnEvent = func(e Event) { events = append(events, e) }
	_, err := s.RunDay(context.Background(), day, []*model.Crew{testCrew("EQ-01", day)})
	require.NoError(t, err)

	var sawStart, sawAssigned, sawDone bool
	for _, e := range events {
		switch e.(type) {
		case DayStart:
			sawStart = true
		case CrewAssigned:
			sawAssigned = true
		case DayDone:
			sawDone = true
		}
	}
	assert.True(t, sawStart && sawAssigned && sawDone)
}

func TestRunDaySkipsFailedCrew(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	cfg := testConfig()
	d := &Dispatcher{
		Cfg:      cfg,
		Chain:    travel.NewChain(nil, failingOracle{}),
		Selector: opt.NewSelector(1),
	}
	s := newSimulator(cfg, d)
	s.Backlog.Add([]*model.ServiceOrder{order(1, day), order(2, day)})

	var skipped int
	s.OnEvent = func(e Event) {
		if _, ok := e.(CrewSkipped); ok {
			skipped++
		}
	}
	asg, err := s.RunDay(context.Background(), day, []*model.Crew{testCrew("EQ-01", day)})
	require.NoError(t, err, "a crew fatal never aborts the day")
	assert.Empty(t, asg)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, s.Backlog.Len(), "orders stay for the next day")
}

func TestRunDaySolverFallbackEvent(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig()
	s := newSimulator(cfg, newDispatcher(cfg, vroom.New(srv.URL, time.Second)))
	s.Backlog.Add([]*model.ServiceOrder{order(1, day), order(2, day)})

	var falls []SolverFallback
	s.OnEvent = func(e Event) {
		if f, ok := e.(SolverFallback); ok {
			falls = append(falls, f)
		}
	}
	asg, err := s.RunDay(context.Background(), day, []*model.Crew{testCrew("EQ-01", day)})
	require.NoError(t, err)
	require.Len(t, asg, 2, "fallback tiers still place the orders")

	require.Len(t, falls, 1)
	assert.Equal(t, "EQ-01", falls[0].CrewID)
	assert.Equal(t, FallbackBadRequest, falls[0].Kind)
	assert.NotEmpty(t, falls[0].Err)
}

func TestGroupedVariant(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":0,"routes":[
			{"vehicle":1,"steps":[{"type":"start","arrival":0},{"type":"job","job":1,"arrival":900},{"type":"end","arrival":1800}]},
			{"vehicle":2,"steps":[{"type":"start","arrival":0},{"type":"job","job":2,"arrival":600},{"type":"end","arrival":1200}]}
		]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Mode = config.ModeGrouped
	s := newSimulator(cfg, newDispatcher(cfg, vroom.New(srv.URL, time.Second)))
	s.Backlog.Add([]*model.ServiceOrder{order(1, day), order(2, day)})

	crews := []*model.Crew{testCrew("EQ-01", day), testCrew("EQ-02", day)}
	asg, err := s.RunDay(context.Background(), day, crews)
	require.NoError(t, err)
	require.Len(t, asg, 2)

	byCrew := map[string]model.Assignment{}
	for _, a := range asg {
		byCrew[a.CrewID] = a
	}
	require.Contains(t, byCrew, "EQ-01")
	require.Contains(t, byCrew, "EQ-02")
	assert.Equal(t, int64(1), byCrew["EQ-01"].Order.NumOS)
	assert.Equal(t, crews[0].ShiftStart.Add(15*time.Minute), byCrew["EQ-01"].Arrival)
	assert.Equal(t, crews[0].ShiftStart.Add(10*time.Minute), byCrew["EQ-02"].Arrival)
	assert.Equal(t, model.SourceExternalOptimizer, byCrew["EQ-01"].Source)
}

func TestGroupedBadRouteCommitsNothing(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	// one parseable route plus one referencing a job that was never sent;
	// the group response must be rejected as a whole
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":0,"routes":[
			{"vehicle":1,"steps":[{"type":"start","arrival":0},{"type":"job","job":1,"arrival":900},{"type":"end","arrival":1800}]},
			{"vehicle":2,"steps":[{"type":"start","arrival":0},{"type":"job","job":999,"arrival":600},{"type":"end","arrival":1200}]}
		]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Mode = config.ModeGrouped
	s := newSimulator(cfg, newDispatcher(cfg, vroom.New(srv.URL, time.Second)))
	s.Backlog.Add([]*model.ServiceOrder{order(1, day), order(2, day)})

	crews := []*model.Crew{testCrew("EQ-01", day), testCrew("EQ-02", day)}
	asg, err := s.RunDay(context.Background(), day, crews)
	require.NoError(t, err)

	// the round fallback still places both orders; none may vanish
	inOutput := map[int64]bool{}
	for _, a := range asg {
		inOutput[a.Order.NumOS] = true
	}
	for _, num := range []int64{1, 2} {
		if s.Backlog.Assigned(num) {
			assert.True(t, inOutput[num], "order %d removed from backlog but absent from the day's output", num)
		}
	}
	require.Len(t, asg, 2)
	assert.Equal(t, 0, s.Backlog.Len())
}

func TestGroupedFallsBackToRounds(t *testing.T) {
	day := t0.Add(-8 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Mode = config.ModeGrouped
	s := newSimulator(cfg, newDispatcher(cfg, vroom.New(srv.URL, time.Second)))
	s.Backlog.Add([]*model.ServiceOrder{order(1, day), order(2, day)})

	asg, err := s.RunDay(context.Background(), day, []*model.Crew{testCrew("EQ-01", day)})
	require.NoError(t, err)
	require.Len(t, asg, 2)
	for _, a := range asg {
		assert.Equal(t, model.SourceGreatCircle, a.Source)
	}
}
