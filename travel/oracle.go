// Package travel answers point-to-point drive durations. The single entry
// point is the Oracle interface; implementations are the OSRM table service
// and a great-circle estimate, composed by Chain in fallback order.
package travel

import (
	"context"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// Matrix holds pairwise durations in seconds: Matrix[i][j] is the drive time
// from points[i] to points[j].
type Matrix [][]float64

// Legs extracts the consecutive-leg durations (0→1, 1→2, ...) in whole
// seconds. Missing entries count as zero.
func (m Matrix) Legs() []int {
	if len(m) < 2 {
		return nil
	}
	legs := make([]int, 0, len(m)-1)
	for i := 0; i+1 < len(m); i++ {
		var s float64
		if i < len(m) && i+1 < len(m[i]) {
			s = m[i][i+1]
		}
		if s < 0 {
			s = 0
		}
		legs = append(legs, int(s))
	}
	return legs
}

// Oracle produces a duration matrix for a list of points. Implementations
// must return non-negative durations and zero on the diagonal.
type Oracle interface {
	Durations(ctx context.Context, points []model.Point) (Matrix, error)
	Source() model.TravelSource
}
