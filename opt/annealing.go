package opt

import (
	"math"
	"math/rand"
)

const (
	saInitialTemp = 100.0
	saCooling     = 0.9
	saMinTemp     = 1.0
)

// anneal refines a subset by swapping members in and out, accepting worse
// neighbours with probability exp(delta/T). Returns the best subset seen.
func anneal(rng *rand.Rand, scores []float64, sol []int) []int {
	n := len(scores)
	if len(sol) == 0 || len(sol) >= n {
		return sol
	}
	cur := make([]int, len(sol))
	copy(cur, sol)
	best := make([]int, len(sol))
	copy(best, sol)
	curFit := fitness(scores, cur)
	bestFit := curFit

	for t := saInitialTemp; t >= saMinTemp; t *= saCooling {
		cand := neighbor(rng, cur, n)
		candFit := fitness(scores, cand)
		delta := candFit - curFit
		if delta > 0 || rng.Float64() < math.Exp(delta/t) {
			cur, curFit = cand, candFit
			if curFit > bestFit {
				copy(best, cur)
				bestFit = curFit
			}
		}
	}
	return best
}

func neighbor(rng *rand.Rand, sol []int, n int) []int {
	out := make([]int, len(sol))
	copy(out, sol)
	seen := make(map[int]bool, len(out))
	for _, v := range out {
		seen[v] = true
	}
	repl := rng.Intn(n)
	for seen[repl] {
		repl = rng.Intn(n)
	}
	out[rng.Intn(len(out))] = repl
	return out
}
