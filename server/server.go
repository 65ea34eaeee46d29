// Package server exposes the results of a finished run over HTTP: run
// summary, per-day assignments and the Prometheus scrape endpoint.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/loader"
)

// Server serves persisted assignment files from one results directory.
type Server struct {
	ResultsDir string
	Logger     hclog.Logger
	Registry   *prometheus.Registry // nil: no /metrics endpoint
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/api/summary", s.summary)
	mux.HandleFunc("/api/assignments", s.assignments)
	if s.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log().Info("results server listening", "addr", addr, "dir", s.ResultsDir)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) log() hclog.Logger {
	if s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type daySummary struct {
	Day      string `json:"day"`
	Assigned int    `json:"assigned"`
	File     string `json:"file"`
}

// summary lists every persisted day with its assignment count.
func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	days, err := s.listDays()
	if err != nil {
		s.log().Error("summary failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]daySummary, 0, len(days))
	total := 0
	for _, day := range days {
		rows, err := loader.ReadAssignments(day.path)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		out = append(out, daySummary{Day: day.date, Assigned: len(rows), File: filepath.Base(day.path)})
		total += len(rows)
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": out, "assigned": total})
}

// assignments returns one day's rows; ?day=2006-01-02 selects the day.
func (s *Server) assignments(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("day")
	if date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day parameter required"})
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be YYYY-MM-DD"})
		return
	}
	path := filepath.Join(s.ResultsDir, "atribuicoes_"+date+".parquet")
	rows, err := loader.ReadAssignments(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no assignments for " + date})
			return
		}
		s.log().Error("assignments read failed", "day", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type dayFile struct {
	date string
	path string
}

func (s *Server) listDays() ([]dayFile, error) {
	entries, err := os.ReadDir(s.ResultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []dayFile
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "atribuicoes_") || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, "atribuicoes_"), ".parquet")
		out = append(out, dayFile{date: date, path: filepath.Join(s.ResultsDir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date < out[j].date })
	return out, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
