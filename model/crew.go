package model

import "time"

// Crew is one workforce unit scheduled for one shift on one day. Instances
// are immutable within the simulation of that day.
type Crew struct {
	ID         string    `json:"equipe"`
	Day        time.Time `json:"dt_ref"` // reference date, normalised to midnight
	ShiftStart time.Time `json:"inicio_turno"`
	ShiftEnd   time.Time `json:"fim_turno"`
	PauseStart time.Time `json:"dthpausa_ini,omitempty"` // zero when the crew has no pause
	PauseEnd   time.Time `json:"dthpausa_fim,omitempty"`
	Base       *Point    `json:"base,omitempty"` // nil: use the configured global base
}

// ShiftSeconds returns the nominal shift length in seconds.
func (c *Crew) ShiftSeconds() int {
	d := c.ShiftEnd.Sub(c.ShiftStart)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

// HasPause reports whether a usable lunch window is set.
func (c *Crew) HasPause() bool {
	return !c.PauseStart.IsZero() && !c.PauseEnd.IsZero() && c.PauseEnd.After(c.PauseStart)
}

// ReturnDeadline is the latest admissible base-return instant:
// shift start + shift length stretched by the overrun fraction.
func (c *Crew) ReturnDeadline(overrunFraction float64) time.Time {
	secs := float64(c.ShiftSeconds()) * (1 + overrunFraction)
	return c.ShiftStart.Add(time.Duration(secs) * time.Second)
}
