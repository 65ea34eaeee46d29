package travel

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// Chain tries each oracle in order and returns the first matrix obtained,
// together with the source that produced it. When every tier fails the
// accumulated errors are returned as one.
type Chain struct {
	Oracles []Oracle
	Logger  hclog.Logger
}

// NewChain composes oracles in fallback order.
func NewChain(logger hclog.Logger, oracles ...Oracle) *Chain {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Chain{Oracles: oracles, Logger: logger}
}

// Durations walks the tiers until one answers.
func (c *Chain) Durations(ctx context.Context, points []model.Point) (Matrix, model.TravelSource, error) {
	var errs *multierror.Error
	for _, o := range c.Oracles {
		m, err := o.Durations(ctx, points)
		if err != nil {
			c.Logger.Warn("travel tier failed, falling back", "source", o.Source(), "error", err)
			errs = multierror.Append(errs, err)
			continue
		}
		return m, o.Source(), nil
	}
	return nil, "", errs.ErrorOrNil()
}
