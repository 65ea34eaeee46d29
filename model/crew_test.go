package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCrewShiftAndPause(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	c := &Crew{
		ID:         "EQ-01",
		Day:        day,
		ShiftStart: day.Add(8 * time.Hour),
		ShiftEnd:   day.Add(17 * time.Hour),
	}
	assert.Equal(t, 9*3600, c.ShiftSeconds())
	assert.False(t, c.HasPause())

	c.PauseStart = day.Add(12 * time.Hour)
	c.PauseEnd = day.Add(13 * time.Hour)
	assert.True(t, c.HasPause())

	// 1% of a 9h shift is 324 seconds
	want := c.ShiftStart.Add(9*time.Hour + 324*time.Second)
	assert.Equal(t, want, c.ReturnDeadline(0.01))
}

func TestServiceOrderDurations(t *testing.T) {
	o := &ServiceOrder{ExecMinutes: 30, ExtraMinutes: 5}
	assert.Equal(t, 35*60, o.ServiceSeconds())
	o.ExecMinutes = -10
	o.ExtraMinutes = 0
	assert.Equal(t, 0, o.ServiceSeconds())

	assert.False(t, o.Usable(), "needs coordinates and request time")
	o.Location = Point{Lon: 1, Lat: 1}
	o.RequestedAt = time.Now()
	assert.True(t, o.Usable())
}
