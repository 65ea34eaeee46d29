package sim

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

func TestWriteDayReport(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	asg := []model.Assignment{
		{Order: &model.ServiceOrder{NumOS: 1, Type: model.ServiceCommercial}, CrewID: "EQ-02", Source: model.SourceExternalOptimizer},
		{Order: &model.ServiceOrder{NumOS: 2, Type: model.ServiceTechnical}, CrewID: "EQ-01", Source: model.SourceGreatCircle},
		{Order: &model.ServiceOrder{NumOS: 3, Type: model.ServiceTechnical}, CrewID: "EQ-01", Source: model.SourceGreatCircle},
	}

	var sb strings.Builder
	WriteDayReport(&sb, day, asg, DayStats{NewPending: 2, Carried: 5})
	out := sb.String()
	assert.Contains(t, out, "=== 2024-05-10 ===")
	assert.Contains(t, out, "assigned: 3  remaining: 7 (new 2, backlog 5)")
	assert.NotContains(t, out, "solver errors")
	assert.Contains(t, out, "comercial=1 tecnico=2")
	assert.Contains(t, out, "optimizer=1")
	assert.Contains(t, out, "great-circle=2")
	assert.Contains(t, out, "crew EQ-01")
}

func TestWriteDayReportSolverErrors(t *testing.T) {
	var sb strings.Builder
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	WriteDayReport(&sb, day, nil, DayStats{Carried: 1, EmptyRoutes: 2, BadRequests: 1})
	assert.Contains(t, sb.String(), "solver errors: empty_route=2 bad_request=1")
}

func TestWriteDayReportEmpty(t *testing.T) {
	var sb strings.Builder
	WriteDayReport(&sb, time.Now(), nil, DayStats{Carried: 3})
	assert.Contains(t, sb.String(), "assigned: 0")
	assert.NotContains(t, sb.String(), "by type")
}

func TestPendingSplit(t *testing.T) {
	b := NewBacklog()
	b.Add([]*model.ServiceOrder{
		order(1, t0.AddDate(0, 0, -2)),
		order(2, t0.AddDate(0, 0, -1)),
		order(3, t0.Add(time.Hour)),
	})
	newOrders, carried := b.PendingSplit(t0)
	assert.Equal(t, 1, newOrders)
	assert.Equal(t, 2, carried)
}
