package sim

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// DayStats carries the day's remaining-order split and solver-error
// occurrences for the summary.
type DayStats struct {
	NewPending  int
	Carried     int
	EmptyRoutes int
	BadRequests int
}

// WriteDayReport prints a human-readable summary of one simulated day.
func WriteDayReport(w io.Writer, day time.Time, asg []model.Assignment, stats DayStats) {
	fmt.Fprintf(w, "=== %s ===\n", day.Format("2006-01-02"))
	fmt.Fprintf(w, "assigned: %d  remaining: %d (new %d, backlog %d)\n",
		len(asg), stats.NewPending+stats.Carried, stats.NewPending, stats.Carried)
	if stats.EmptyRoutes > 0 || stats.BadRequests > 0 {
		fmt.Fprintf(w, "solver errors: empty_route=%d bad_request=%d\n",
			stats.EmptyRoutes, stats.BadRequests)
	}
	if len(asg) == 0 {
		return
	}

	byType := map[model.ServiceType]int{}
	bySource := map[model.TravelSource]int{}
	byCrew := map[string]int{}
	for _, a := range asg {
		byType[a.Order.Type]++
		bySource[a.Source]++
		byCrew[a.CrewID]++
	}
	fmt.Fprintf(w, "by type: comercial=%d tecnico=%d other=%d\n",
		byType[model.ServiceCommercial], byType[model.ServiceTechnical],
		len(asg)-byType[model.ServiceCommercial]-byType[model.ServiceTechnical])
	fmt.Fprintf(w, "by source: optimizer=%d table=%d great-circle=%d\n",
		bySource[model.SourceExternalOptimizer], bySource[model.SourceRoadNetworkTable],
		bySource[model.SourceGreatCircle])

	crews := make([]string, 0, len(byCrew))
	for id := range byCrew {
		crews = append(crews, id)
	}
	sort.Strings(crews)
	for _, id := range crews {
		fmt.Fprintf(w, "  crew %-10s %3d os\n", id, byCrew[id])
	}
}
