package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Assignments.WithLabelValues("comercial", "GREAT_CIRCLE").Inc()
	m.Assignments.WithLabelValues("comercial", "GREAT_CIRCLE").Inc()
	m.SolverErrors.WithLabelValues("vroom").Inc()
	m.CrewsSkipped.Inc()
	m.DaysSimulated.Inc()
	m.BacklogSize.Set(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Assignments.WithLabelValues("comercial", "GREAT_CIRCLE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolverErrors.WithLabelValues("vroom")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.BacklogSize))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
