package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// OSRM queries an OSRM HTTP instance for duration tables and nearest-road
// snapping.
type OSRM struct {
	BaseURL string
	HTTP    *http.Client
	Retries uint64
}

// NewOSRM builds a client for the given base URL, e.g. "http://localhost:5000".
func NewOSRM(baseURL string, timeout time.Duration) *OSRM {
	return &OSRM{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Retries: 2,
	}
}

func (o *OSRM) Source() model.TravelSource { return model.SourceRoadNetworkTable }

type tableResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances"`
}

type nearestResponse struct {
	Code      string `json:"code"`
	Waypoints []struct {
		Location [2]float64 `json:"location"` // lon, lat
	} `json:"waypoints"`
}

// Durations fetches the full pairwise table for the points.
func (o *OSRM) Durations(ctx context.Context, points []model.Point) (Matrix, error) {
	if len(points) == 0 {
		return Matrix{}, nil
	}
	url := o.BaseURL + "/table/v1/driving/" + coordPath(points) + "?annotations=duration,distance"
	var resp tableResponse
	if err := o.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" {
		return nil, fmt.Errorf("osrm table: %s %s", resp.Code, resp.Message)
	}
	if len(resp.Durations) != len(points) {
		return nil, fmt.Errorf("osrm table: got %d rows for %d points", len(resp.Durations), len(points))
	}
	return Matrix(resp.Durations), nil
}

// Nearest snaps a point to the closest road-network coordinate. On any
// failure the input point is returned unchanged.
func (o *OSRM) Nearest(ctx context.Context, p model.Point) model.Point {
	url := o.BaseURL + "/nearest/v1/driving/" +
		strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," +
		strconv.FormatFloat(p.Lat, 'f', -1, 64) + "?number=1"
	var resp nearestResponse
	if err := o.getJSON(ctx, url, &resp); err != nil {
		return p
	}
	if resp.Code != "Ok" || len(resp.Waypoints) == 0 {
		return p
	}
	loc := resp.Waypoints[0].Location
	snapped := model.Point{Lon: loc[0], Lat: loc[1]}
	if !snapped.Valid() {
		return p
	}
	return snapped
}

func (o *OSRM) getJSON(ctx context.Context, url string, dst any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		res, err := o.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		body, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
		if err != nil {
			return err
		}
		if res.StatusCode >= 500 {
			return fmt.Errorf("osrm: status %d", res.StatusCode)
		}
		if res.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("osrm: status %d: %s", res.StatusCode, truncate(body, 200)))
		}
		if err := json.Unmarshal(body, dst); err != nil {
			return backoff.Permanent(fmt.Errorf("osrm: decode: %w", err))
		}
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.Retries), ctx)
	return backoff.Retry(op, bo)
}

func coordPath(points []model.Point) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
	}
	return b.String()
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
