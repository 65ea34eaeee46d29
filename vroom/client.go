// Package vroom is a thin client for the VROOM route optimizer HTTP API.
// Only the subset the dispatcher needs is modelled: single and multi vehicle
// problems with service times and optional unit deliveries.
package vroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrEmptyRoute reports that the solver answered but produced no route,
// typically because every job was unassigned.
var ErrEmptyRoute = errors.New("vroom: no route in response")

// StatusError is a non-2xx answer from the solver.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vroom: status %d: %s", e.Code, e.Body)
}

// IsBadRequest reports whether the solver rejected the problem itself, as
// opposed to failing transiently.
func (e *StatusError) IsBadRequest() bool { return e.Code >= 400 && e.Code < 500 }

// Job is one visit to solve for.
type Job struct {
	ID       int64      `json:"id"`
	Location [2]float64 `json:"location"` // lon, lat
	Service  int        `json:"service,omitempty"`
	Delivery []int      `json:"delivery,omitempty"`
}

// Vehicle is one crew's routing profile for the day.
type Vehicle struct {
	ID         int        `json:"id"`
	Start      [2]float64 `json:"start"`
	End        [2]float64 `json:"end"`
	TimeWindow [2]int     `json:"time_window,omitempty"`
	Capacity   []int      `json:"capacity,omitempty"`
}

// Step is one stop in a solved route. Arrival is seconds from the problem
// epoch.
type Step struct {
	Type    string `json:"type"` // start, job, end
	Job     int64  `json:"job,omitempty"`
	Arrival int    `json:"arrival"`
	Service int    `json:"service,omitempty"`
}

// Route is one vehicle's solved itinerary.
type Route struct {
	Vehicle int    `json:"vehicle"`
	Steps   []Step `json:"steps"`
}

// Response is the solver answer.
type Response struct {
	Code    int     `json:"code"`
	Error   string  `json:"error,omitempty"`
	Routes  []Route `json:"routes"`
	Summary struct {
		Cost       int `json:"cost"`
		Unassigned int `json:"unassigned"`
	} `json:"summary"`
}

type problem struct {
	Vehicles []Vehicle      `json:"vehicles"`
	Jobs     []Job          `json:"jobs"`
	Options  map[string]any `json:"options"`
}

// Client talks to one VROOM instance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Retries uint64
}

// New builds a client for the given base URL, e.g. "http://localhost:3000".
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Retries: 2,
	}
}

// Route solves a single-vehicle problem and returns its route.
func (c *Client) Route(ctx context.Context, vehicle Vehicle, jobs []Job) (*Route, error) {
	resp, err := c.solve(ctx, []Vehicle{vehicle}, jobs)
	if err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, ErrEmptyRoute
	}
	return &resp.Routes[0], nil
}

// RouteMulti solves a multi-vehicle problem and returns all routes.
func (c *Client) RouteMulti(ctx context.Context, vehicles []Vehicle, jobs []Job) ([]Route, error) {
	resp, err := c.solve(ctx, vehicles, jobs)
	if err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, ErrEmptyRoute
	}
	return resp.Routes, nil
}

func (c *Client) solve(ctx context.Context, vehicles []Vehicle, jobs []Job) (*Response, error) {
	payload, err := json.Marshal(problem{
		Vehicles: vehicles,
		Jobs:     jobs,
		Options:  map[string]any{"g": false},
	})
	if err != nil {
		return nil, fmt.Errorf("vroom: encode problem: %w", err)
	}

	var out Response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		res, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		body, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
		if err != nil {
			return err
		}
		if res.StatusCode >= 500 {
			return &StatusError{Code: res.StatusCode, Body: snippet(body)}
		}
		if res.StatusCode >= 400 {
			return backoff.Permanent(&StatusError{Code: res.StatusCode, Body: snippet(body)})
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("vroom: decode: %w", err))
		}
		if out.Code != 0 {
			return backoff.Permanent(fmt.Errorf("vroom: solver code %d: %s", out.Code, out.Error))
		}
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.Retries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return &out, nil
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
