package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// Mode selects the day-simulation variant.
type Mode string

const (
	// ModeRounds dispatches crew by crew in rounds until capacity or
	// eligibility is exhausted.
	ModeRounds Mode = "rounds"
	// ModeGrouped solves one multi-vehicle problem per group of crews
	// sharing a shift start, falling back to rounds on solver failure.
	ModeGrouped Mode = "grouped"
)

// Config carries every tunable of the engine. Zero value is not usable;
// start from Default and overlay file/env/flags.
type Config struct {
	VroomURL string `yaml:"vroom_url"`
	OSRMURL  string `yaml:"osrm_url"`

	// Fallback depot for crews without their own base coordinate.
	BaseLon float64 `yaml:"base_lon"`
	BaseLat float64 `yaml:"base_lat"`

	CrewLimit       int     `yaml:"crew_limit"`       // K: max orders per crew per day
	OverrunFraction float64 `yaml:"overrun_fraction"` // shift tolerance for base return
	AvgSpeedKmh     float64 `yaml:"avg_speed_kmh"`    // great-circle fallback speed

	DaytimeCodes []int `yaml:"daytime_codes"` // commercial codes restricted to daylight
	DayStartHour int   `yaml:"day_start_hour"`
	DayEndHour   int   `yaml:"day_end_hour"`

	Mode           Mode   `yaml:"mode"`
	Parallel       bool   `yaml:"parallel"` // parallel crews within a round
	Seed           int64  `yaml:"seed"`
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`
	DataDir        string `yaml:"data_dir"`
	ResultsDir     string `yaml:"results_dir"`
}

// Default returns the engine defaults (Porto Velho depot, K=15, 1% overrun).
func Default() Config {
	return Config{
		VroomURL:        "http://localhost:3000",
		OSRMURL:         "http://localhost:5000",
		BaseLon:         -63.885464691387746,
		BaseLat:         -8.738508095069408,
		CrewLimit:       15,
		OverrunFraction: 0.01,
		AvgSpeedKmh:     30,
		DaytimeCodes:    []int{739, 741},
		DayStartHour:    8,
		DayEndHour:      18,
		Mode:            ModeRounds,
		Seed:            1,
		HTTPTimeoutSec:  30,
		DataDir:         "data",
		ResultsDir:      "results",
	}
}

// Base returns the global fallback depot as a Point.
func (c *Config) Base() model.Point { return model.Point{Lon: c.BaseLon, Lat: c.BaseLat} }

// DaytimeCodeSet returns the daytime-restricted codes as a lookup set.
func (c *Config) DaytimeCodeSet() map[int]bool {
	set := make(map[int]bool, len(c.DaytimeCodes))
	for _, code := range c.DaytimeCodes {
		set[code] = true
	}
	return set
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	if c.CrewLimit < 1 {
		return fmt.Errorf("crew_limit must be >= 1, got %d", c.CrewLimit)
	}
	if c.OverrunFraction < 0 {
		return fmt.Errorf("overrun_fraction must be >= 0, got %g", c.OverrunFraction)
	}
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("avg_speed_kmh must be > 0, got %g", c.AvgSpeedKmh)
	}
	if c.DayStartHour < 0 || c.DayEndHour > 24 || c.DayStartHour >= c.DayEndHour {
		return fmt.Errorf("invalid daytime window [%d, %d)", c.DayStartHour, c.DayEndHour)
	}
	switch c.Mode {
	case ModeRounds, ModeGrouped:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

// LoadFile overlays a YAML file onto c. A missing file is not an error when
// optional is true.
func (c *Config) LoadFile(path string, optional bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays the documented environment knobs onto c.
func (c *Config) FromEnv() {
	envStr(&c.VroomURL, "VROOM_URL")
	envStr(&c.OSRMURL, "OSRM_URL")
	envFloat(&c.BaseLon, "BASE_LON")
	envFloat(&c.BaseLat, "BASE_LAT")
	envInt(&c.CrewLimit, "K")
	envFloat(&c.OverrunFraction, "OVERRUN_FRACTION")
	envFloat(&c.AvgSpeedKmh, "AVG_SPEED_KMH")
	envInt(&c.DayStartHour, "DAY_START")
	envInt(&c.DayEndHour, "DAY_END")
	if v := os.Getenv("DAYTIME_CODES"); v != "" {
		var codes []int
		for _, part := range strings.Split(v, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				codes = append(codes, n)
			}
		}
		if len(codes) > 0 {
			c.DaytimeCodes = codes
		}
	}
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
