package opt

import "math/rand"

// Tunables of the genetic stage. Small on purpose: pools are already capped
// by the pre-filter and fitness is cheap.
const (
	gaPopulation  = 20
	gaGenerations = 10
	gaElite       = 10
	gaMutateProb  = 0.2
)

// fitness is the mean score over a subset of indices.
func fitness(scores []float64, subset []int) float64 {
	if len(subset) == 0 {
		return 0
	}
	var sum float64
	for _, i := range subset {
		sum += scores[i]
	}
	return sum / float64(len(subset))
}

// geneticSelect evolves subsets of k indices over scores and returns the
// fittest individual found.
func geneticSelect(rng *rand.Rand, scores []float64, k int) []int {
	n := len(scores)
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	if k == 1 {
		best := 0
		for i := 1; i < n; i++ {
			if scores[i] > scores[best] {
				best = i
			}
		}
		return []int{best}
	}

	pop := make([][]int, gaPopulation)
	for i := range pop {
		pop[i] = rng.Perm(n)[:k]
	}

	for gen := 0; gen < gaGenerations; gen++ {
		sortByFitness(scores, pop)
		next := make([][]int, 0, gaPopulation)
		elite := gaElite
		if elite > len(pop) {
			elite = len(pop)
		}
		for i := 0; i < elite; i++ {
			next = append(next, pop[i])
		}
		for len(next) < gaPopulation {
			a := pop[rng.Intn(elite)]
			b := pop[rng.Intn(elite)]
			child := crossover(rng, a, b, n)
			if rng.Float64() < gaMutateProb {
				mutate(rng, child, n)
			}
			next = append(next, child)
		}
		pop = next
	}
	sortByFitness(scores, pop)
	out := make([]int, k)
	copy(out, pop[0])
	return out
}

func sortByFitness(scores []float64, pop [][]int) {
	fit := make([]float64, len(pop))
	for i, ind := range pop {
		fit[i] = fitness(scores, ind)
	}
	for i := 1; i < len(pop); i++ {
		for j := i; j > 0 && fit[j] > fit[j-1]; j-- {
			fit[j], fit[j-1] = fit[j-1], fit[j]
			pop[j], pop[j-1] = pop[j-1], pop[j]
		}
	}
}

// crossover takes a single cut of a and fills the tail from b, repairing
// duplicates with indices missing from the child.
func crossover(rng *rand.Rand, a, b []int, n int) []int {
	k := len(a)
	cut := rng.Intn(k)
	child := make([]int, 0, k)
	seen := make(map[int]bool, k)
	for _, v := range a[:cut] {
		child = append(child, v)
		seen[v] = true
	}
	for _, v := range b {
		if len(child) == k {
			break
		}
		if !seen[v] {
			child = append(child, v)
			seen[v] = true
		}
	}
	for v := 0; len(child) < k && v < n; v++ {
		if !seen[v] {
			child = append(child, v)
			seen[v] = true
		}
	}
	return child
}

// mutate swaps one member for a random index outside the subset.
func mutate(rng *rand.Rand, ind []int, n int) {
	if len(ind) >= n {
		return
	}
	seen := make(map[int]bool, len(ind))
	for _, v := range ind {
		seen[v] = true
	}
	repl := rng.Intn(n)
	for seen[repl] {
		repl = rng.Intn(n)
	}
	ind[rng.Intn(len(ind))] = repl
}
