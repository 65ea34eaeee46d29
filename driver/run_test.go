package driver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/config"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/loader"
)

var shift = time.Date(2024, 5, 10, 8, 0, 0, 0, time.Local)

type crewRow struct {
	Equipe string    `parquet:"equipe"`
	Inicio time.Time `parquet:"data_inicio_turno,timestamp"`
	Fim    time.Time `parquet:"data_fim_turno,timestamp"`
}

type orderRow struct {
	NumOS     int64     `parquet:"numos"`
	DhInicio  time.Time `parquet:"dh_inicio,timestamp"`
	DataVenc  time.Time `parquet:"data_venc,timestamp"`
	TE        float64   `parquet:"te"`
	Longitude float64   `parquet:"longitude"`
	Latitude  float64   `parquet:"latitude"`
}

func write[T any](t *testing.T, dir, name string, rows []T) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, parquet.WriteFile(path, rows))
	return path
}

// rejecting stub for both external services; every call falls through to the
// great-circle tier without retry delays
func deadServices(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	crews := write(t, dir, "equipes.parquet", []crewRow{
		{Equipe: "EQ-01", Inicio: shift, Fim: shift.Add(9 * time.Hour)},
	})
	tech := write(t, dir, "tecnicas.parquet", []orderRow{
		{NumOS: 1, DhInicio: shift.Add(-2 * time.Hour), TE: 20, Longitude: 1.002, Latitude: 1},
		{NumOS: 2, DhInicio: shift.Add(-time.Hour), TE: 25, Longitude: 1.003, Latitude: 1},
	})
	comm := write(t, dir, "comerciais.parquet", []orderRow{
		{NumOS: 3, DhInicio: shift.Add(-3 * time.Hour), DataVenc: shift.AddDate(0, 0, 2), TE: 15, Longitude: 1.004, Latitude: 1},
	})

	srv := deadServices(t)
	cfg := config.Default()
	cfg.VroomURL = srv.URL
	cfg.OSRMURL = srv.URL
	cfg.BaseLon, cfg.BaseLat = 1.001, 1
	cfg.AvgSpeedKmh = 60
	cfg.ResultsDir = filepath.Join(dir, "results")

	var out strings.Builder
	runner := &Runner{Cfg: cfg, Out: &out}
	summary, err := runner.Run(context.Background(), Inputs{
		CrewsPath:      crews,
		TechnicalPath:  tech,
		CommercialPath: comm,
	})
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Days, 1)
	assert.Equal(t, 3, summary.Assigned)
	assert.Equal(t, 0, summary.Remaining)
	assert.Contains(t, out.String(), "assigned: 3")
	assert.Contains(t, out.String(), "bad_request=1")

	rows, err := loader.ReadAssignments(summary.Days[0].File)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	seen := map[int64]bool{}
	for _, r := range rows {
		assert.Equal(t, "EQ-01", r.CrewID)
		assert.Equal(t, summary.RunID, r.RunID)
		assert.False(t, seen[r.NumOS])
		seen[r.NumOS] = true
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := config.Default()
	runner := &Runner{Cfg: cfg}
	_, err := runner.Run(context.Background(), Inputs{
		CrewsPath: filepath.Join(t.TempDir(), "missing.parquet"),
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "load crews")
}
