package opt

import (
	"math"
	"math/rand"
)

const (
	acoIterations  = 8
	acoAnts        = 8
	acoEvaporation = 0.5
	acoEpsilon     = 1e-6
)

// colonySelect runs the ant-colony stage seeded by the annealing winner and
// returns the best subset sampled across all iterations.
func colonySelect(rng *rand.Rand, scores []float64, seed []int, k int) []int {
	n := len(scores)
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	pher := make([]float64, n)
	for i := range pher {
		pher[i] = 1
	}
	seedFit := fitness(scores, seed)
	if seedFit > 0 {
		for _, i := range seed {
			pher[i] += seedFit / 10
		}
	}

	best := make([]int, len(seed))
	copy(best, seed)
	bestFit := seedFit

	for it := 0; it < acoIterations; it++ {
		for ant := 0; ant < acoAnts; ant++ {
			subset := samplePheromone(rng, pher, k)
			fit := fitness(scores, subset)
			if fit > bestFit {
				best = subset
				bestFit = fit
			}
			for _, i := range subset {
				pher[i] += fit / 10
			}
		}
		for i := range pher {
			pher[i] *= 1 - acoEvaporation
		}
		sanitize(pher)
	}
	return best
}

// samplePheromone draws k distinct indices with probability proportional to
// pheromone mass.
func samplePheromone(rng *rand.Rand, pher []float64, k int) []int {
	weights := make([]float64, len(pher))
	copy(weights, pher)
	out := make([]int, 0, k)
	for len(out) < k {
		var total float64
		for _, w := range weights {
			total += w
		}
		if total <= 0 || math.IsNaN(total) {
			for i, w := range weights {
				if w > 0 {
					out = append(out, i)
					weights[i] = 0
					if len(out) == k {
						return out
					}
				}
			}
			break
		}
		r := rng.Float64() * total
		for i, w := range weights {
			if w <= 0 {
				continue
			}
			r -= w
			if r <= 0 {
				out = append(out, i)
				weights[i] = 0
				break
			}
		}
	}
	return out
}

// sanitize keeps the pheromone vector a usable distribution: NaNs become the
// floor, non-positive mass is shifted up, and a degenerate sum resets to ones.
func sanitize(pher []float64) {
	min := math.Inf(1)
	for i, v := range pher {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			pher[i] = acoEpsilon
			v = acoEpsilon
		}
		if v < min {
			min = v
		}
	}
	if min <= 0 {
		shift := -min + acoEpsilon
		for i := range pher {
			pher[i] += shift
		}
	}
	var sum float64
	for _, v := range pher {
		sum += v
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range pher {
			pher[i] = 1
		}
	}
}
