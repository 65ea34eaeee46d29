// Package loader reads the crew and service-order tables from parquet files
// and normalises their many source schemas into the engine entities. Column
// names vary between extractions; a synonym dictionary maps them to the
// canonical fields.
package loader

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/parquet-go/parquet-go"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// Column synonym dictionary. First match wins, lookups are lower-case.
var (
	colCrewID     = []string{"equipe", "nome"}
	colShiftStart = []string{"data_inicio_turno", "dthaps_ini", "inicio_turno"}
	colShiftEnd   = []string{"data_fim_turno", "dthaps_fim_ajustado", "fim_turno"}
	colPauseStart = []string{"dthpausa_ini"}
	colPauseEnd   = []string{"dthpausa_fim"}
	colDay        = []string{"dt_ref"}
	colNumOS      = []string{"numos"}
	colReqTech    = []string{"dh_inicio", "data_sol"}
	colReqComm    = []string{"data_sol", "dh_inicio"}
	colDeadline   = []string{"data_venc"}
	colExecMin    = []string{"te"}
	colExtraMin   = []string{"td"}
	colLon        = []string{"longitude", "nox"}
	colLat        = []string{"latitude", "noy"}
	colEUSD       = []string{"eusd", "eusd_fio_b"}
	colServCode   = []string{"codserv"}
)

// Loader reads input tables. A nil logger is replaced with a no-op one.
type Loader struct {
	Logger hclog.Logger
}

func New(logger hclog.Logger) *Loader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Loader{Logger: logger}
}

// Crews reads one crew table.
func (l *Loader) Crews(path string) ([]*model.Crew, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	var out []*model.Crew
	for i := 0; i < t.rows; i++ {
		id := t.str(i, colCrewID)
		start := t.time(i, colShiftStart)
		end := t.time(i, colShiftEnd)
		if id == "" || start.IsZero() || end.IsZero() || !end.After(start) {
			l.Logger.Debug("dropping crew row", "file", path, "row", i, "id", id)
			continue
		}
		day := t.time(i, colDay)
		if day.IsZero() {
			day = start.Truncate(24 * time.Hour)
		}
		out = append(out, &model.Crew{
			ID:         id,
			Day:        day,
			ShiftStart: start,
			ShiftEnd:   end,
			PauseStart: t.time(i, colPauseStart),
			PauseEnd:   t.time(i, colPauseEnd),
		})
	}
	l.Logger.Info("crews loaded", "file", path, "rows", t.rows, "kept", len(out))
	return out, nil
}

// Technical reads one technical-order table.
func (l *Loader) Technical(path string) ([]*model.ServiceOrder, error) {
	return l.orders(path, model.ServiceTechnical)
}

// Commercial reads one commercial-order table. Orders whose deadline precedes
// their request time are rejected here, not in the engine.
func (l *Loader) Commercial(path string) ([]*model.ServiceOrder, error) {
	return l.orders(path, model.ServiceCommercial)
}

func (l *Loader) orders(path string, typ model.ServiceType) ([]*model.ServiceOrder, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	reqCols := colReqTech
	if typ == model.ServiceCommercial {
		reqCols = colReqComm
	}

	seen := make(map[int64]bool, t.rows)
	var out []*model.ServiceOrder
	dropped := 0
	for i := 0; i < t.rows; i++ {
		numos := t.int64(i, colNumOS)
		if numos == 0 || seen[numos] {
			dropped++
			continue
		}
		o := &model.ServiceOrder{
			NumOS:        numos,
			Type:         typ,
			Location:     model.Point{Lon: t.float(i, colLon), Lat: t.float(i, colLat)},
			RequestedAt:  t.time(i, reqCols),
			ExecMinutes:  clampMinutes(t.float(i, colExecMin)),
			ExtraMinutes: clampMinutes(t.float(i, colExtraMin)),
			EUSD:         t.float(i, colEUSD),
			ServiceCode:  int(t.int64(i, colServCode)),
			Priority:     1,
		}
		if typ == model.ServiceCommercial {
			o.Deadline = t.time(i, colDeadline)
			if o.HasDeadline() && o.Deadline.Before(o.RequestedAt) {
				dropped++
				continue
			}
		}
		if !o.Usable() {
			dropped++
			continue
		}
		seen[numos] = true
		out = append(out, o)
	}
	l.Logger.Info("orders loaded", "file", path, "type", typ, "rows", t.rows, "kept", len(out), "dropped", dropped)
	return out, nil
}

func clampMinutes(m float64) float64 {
	if math.IsNaN(m) || m < 0 {
		return 0
	}
	return m
}

// table is a flat columnar view of one parquet file, keyed by lower-case
// leaf column name.
type table struct {
	cols map[string][]parquet.Value
	rows int
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}

	t := &table{cols: make(map[string][]parquet.Value)}
	paths := pf.Schema().Columns()
	for _, rg := range pf.RowGroups() {
		for _, chunk := range rg.ColumnChunks() {
			leaf := paths[chunk.Column()]
			name := strings.ToLower(leaf[len(leaf)-1])
			if err := readChunk(t, name, chunk); err != nil {
				return nil, fmt.Errorf("parquet %s column %s: %w", path, name, err)
			}
		}
	}
	for _, vals := range t.cols {
		if len(vals) > t.rows {
			t.rows = len(vals)
		}
	}
	return t, nil
}

func readChunk(t *table, name string, chunk parquet.ColumnChunk) error {
	pages := chunk.Pages()
	defer pages.Close()
	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		buf := make([]parquet.Value, page.NumValues())
		n, err := page.Values().ReadValues(buf)
		if err != nil && err != io.EOF {
			return err
		}
		t.cols[name] = append(t.cols[name], buf[:n]...)
	}
}

func (t *table) value(row int, names []string) (parquet.Value, bool) {
	for _, name := range names {
		vals, ok := t.cols[name]
		if !ok || row >= len(vals) {
			continue
		}
		v := vals[row]
		if v.IsNull() {
			continue
		}
		return v, true
	}
	return parquet.Value{}, false
}

func (t *table) str(row int, names []string) string {
	v, ok := t.value(row, names)
	if !ok {
		return ""
	}
	if v.Kind() == parquet.ByteArray {
		return strings.TrimSpace(string(v.ByteArray()))
	}
	return strings.TrimSpace(v.String())
}

func (t *table) float(row int, names []string) float64 {
	v, ok := t.value(row, names)
	if !ok {
		return 0
	}
	switch v.Kind() {
	case parquet.Double, parquet.Float:
		return v.Double()
	case parquet.Int32, parquet.Int64:
		return float64(v.Int64())
	case parquet.ByteArray:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(v.ByteArray())), 64)
		return f
	}
	return 0
}

func (t *table) int64(row int, names []string) int64 {
	v, ok := t.value(row, names)
	if !ok {
		return 0
	}
	switch v.Kind() {
	case parquet.Int32, parquet.Int64:
		return v.Int64()
	case parquet.Double, parquet.Float:
		return int64(v.Double())
	case parquet.ByteArray:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(v.ByteArray())), 10, 64)
		return n
	}
	return 0
}

// Timestamp layouts seen in the source extractions.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

func (t *table) time(row int, names []string) time.Time {
	v, ok := t.value(row, names)
	if !ok {
		return time.Time{}
	}
	switch v.Kind() {
	case parquet.Int64, parquet.Int32:
		return epochToTime(v.Int64())
	case parquet.ByteArray:
		s := strings.TrimSpace(string(v.ByteArray()))
		for _, layout := range timeLayouts {
			if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

// epochToTime guesses the unit of an integer timestamp by magnitude. The
// extractions mix second, milli, micro and nanosecond encodings.
func epochToTime(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	switch {
	case n > 1e17:
		return time.Unix(0, n).In(time.Local)
	case n > 1e14:
		return time.UnixMicro(n).In(time.Local)
	case n > 1e11:
		return time.UnixMilli(n).In(time.Local)
	default:
		return time.Unix(n, 0).In(time.Local)
	}
}
