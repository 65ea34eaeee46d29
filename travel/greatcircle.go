package travel

import (
	"context"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// GreatCircle estimates durations from the haversine distance at a fixed
// average speed. It is the last fallback tier and never fails.
type GreatCircle struct {
	SpeedKmh float64
}

// NewGreatCircle returns a great-circle oracle; speeds <= 0 fall back to
// 30 km/h.
func NewGreatCircle(speedKmh float64) *GreatCircle {
	if speedKmh <= 0 {
		speedKmh = 30
	}
	return &GreatCircle{SpeedKmh: speedKmh}
}

func (g *GreatCircle) Source() model.TravelSource { return model.SourceGreatCircle }

func (g *GreatCircle) Durations(_ context.Context, points []model.Point) (Matrix, error) {
	mps := g.SpeedKmh * 1000 / 3600
	m := make(Matrix, len(points))
	for i := range points {
		m[i] = make([]float64, len(points))
		for j := range points {
			if i == j || points[i] == points[j] {
				continue
			}
			m[i][j] = float64(int(model.HaversineMeters(points[i], points[j]) / mps))
		}
	}
	return m, nil
}
