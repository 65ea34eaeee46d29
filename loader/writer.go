package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// AssignmentRow is the stable output schema, one row per assigned order.
type AssignmentRow struct {
	RunID      string    `parquet:"run_id"`
	Day        time.Time `parquet:"dt_ref,timestamp"`
	CrewID     string    `parquet:"equipe"`
	NumOS      int64     `parquet:"numos"`
	Type       string    `parquet:"tipo_serv"`
	Lon        float64   `parquet:"longitude"`
	Lat        float64   `parquet:"latitude"`
	Arrival    time.Time `parquet:"dth_chegada_estimada,timestamp"`
	Finish     time.Time `parquet:"dth_final_estimada,timestamp"`
	BaseReturn time.Time `parquet:"fim_turno_estimado,timestamp"`
	TravelSecs int64     `parquet:"td_sec"`
	Source     string    `parquet:"eta_source"`
}

// WriteAssignments persists one day's assignments under dir as
// atribuicoes_<date>.parquet and returns the file path.
func WriteAssignments(dir, runID string, day time.Time, asg []model.Assignment) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("results dir: %w", err)
	}
	path := filepath.Join(dir, "atribuicoes_"+day.Format("2006-01-02")+".parquet")
	rows := make([]AssignmentRow, 0, len(asg))
	for _, a := range asg {
		rows = append(rows, AssignmentRow{
			RunID:      runID,
			Day:        a.Day,
			CrewID:     a.CrewID,
			NumOS:      a.Order.NumOS,
			Type:       string(a.Order.Type),
			Lon:        a.Order.Location.Lon,
			Lat:        a.Order.Location.Lat,
			Arrival:    a.Arrival,
			Finish:     a.Finish,
			BaseReturn: a.BaseReturn,
			TravelSecs: int64(a.TravelSecs),
			Source:     string(a.Source),
		})
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadAssignments loads one persisted day back, used by the results server.
func ReadAssignments(path string) ([]AssignmentRow, error) {
	rows, err := parquet.ReadFile[AssignmentRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
