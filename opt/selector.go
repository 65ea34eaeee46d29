package opt

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// prefilterFactor caps the pool at K times this before the metaheuristics.
const prefilterFactor = 4

// Selector picks at most K orders from an eligible pool. Deterministic for a
// fixed seed and input order; safe for concurrent crews.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector builds a selector with its own seeded source.
func NewSelector(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// Select returns up to k orders from pool, ranked by the cascade of genetic,
// annealing and ant-colony stages over scores relative to ref. Pools that
// already fit the cap are returned whole.
func (s *Selector) Select(pool []*model.ServiceOrder, k int, ref time.Time) []*model.ServiceOrder {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if len(pool) <= k {
		out := make([]*model.ServiceOrder, len(pool))
		copy(out, pool)
		return out
	}
	if len(pool) > k*prefilterFactor {
		pool = Prefilter(pool, k*prefilterFactor)
	}

	scores := Scorer{Ref: ref}.ScoreAll(pool)
	s.mu.Lock()
	subset := geneticSelect(s.rng, scores, k)
	subset = anneal(s.rng, scores, subset)
	subset = colonySelect(s.rng, scores, subset, k)
	s.mu.Unlock()

	out := make([]*model.ServiceOrder, 0, len(subset))
	for _, i := range subset {
		out = append(out, pool[i])
	}
	return out
}
