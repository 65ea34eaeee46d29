// Package opt scores pending service orders and picks the best subset for a
// crew using a genetic, annealing and ant-colony cascade.
package opt

import (
	"math"
	"sort"
	"time"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

const secondsPerDay = 86400

// Scorer computes order priorities relative to a reference instant, normally
// the crew's shift start.
type Scorer struct {
	Ref time.Time
}

// Score returns the priority of one order. Higher means dispatch sooner.
func (s Scorer) Score(o *model.ServiceOrder) float64 {
	prio := o.Priority
	if prio == 0 {
		prio = 1
	}
	var eusd float64
	if o.EUSD > 0 {
		eusd = math.Log(1 + o.EUSD)
	}
	var pending float64
	if !o.RequestedAt.IsZero() {
		pending = s.Ref.Sub(o.RequestedAt).Seconds() / secondsPerDay
		if pending < 0 {
			pending = 0
		}
	}
	violation := 0.5 * o.Violation

	var score float64
	switch o.Type {
	case model.ServiceCommercial:
		var urg float64
		if o.HasDeadline() {
			urg = -o.Deadline.Sub(s.Ref).Seconds() / secondsPerDay
		}
		score = prio + 3*urg + 0.5*pending + eusd - violation
	case model.ServiceTechnical:
		score = prio + 2.5*pending + eusd - violation
	default:
		score = prio + pending + 0.8*eusd - violation
	}
	return score + 0.001*o.WaitingMinutes
}

// ScoreAll scores a pool in order.
func (s Scorer) ScoreAll(pool []*model.ServiceOrder) []float64 {
	scores := make([]float64, len(pool))
	for i, o := range pool {
		scores[i] = s.Score(o)
	}
	return scores
}

// Less is the canonical tie-break order: commercial first, then earliest
// deadline (orders without one last), then earliest request, then highest
// consumption. Used by the performance pre-filter.
func Less(a, b *model.ServiceOrder) bool {
	ac, bc := a.Type == model.ServiceCommercial, b.Type == model.ServiceCommercial
	if ac != bc {
		return ac
	}
	switch {
	case a.HasDeadline() && b.HasDeadline():
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
	case a.HasDeadline():
		return true
	case b.HasDeadline():
		return false
	}
	if !a.RequestedAt.Equal(b.RequestedAt) {
		return a.RequestedAt.Before(b.RequestedAt)
	}
	return a.EUSD > b.EUSD
}

// Prefilter caps an oversized pool at max entries by the tie-break order.
// The input slice is not modified.
func Prefilter(pool []*model.ServiceOrder, max int) []*model.ServiceOrder {
	if len(pool) <= max {
		return pool
	}
	out := make([]*model.ServiceOrder, len(pool))
	copy(out, pool)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out[:max]
}
