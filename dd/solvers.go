package dd

import (
	"cmp"
	"hash/maphash"
	"log"
	"slices"

	"golang.org/x/exp/constraints"
)

// Cost is any numeric objective a layered expansion can minimize.
type Cost interface {
	constraints.Integer | constraints.Float
}

// a decision diagram here is built layer by layer: layer j holds every distinct state reachable
// by assigning the first j variables. Equal states are merged, so a layer never holds two
// states with the same future.

type Context[TValue cmp.Ordered, TCost Cost] interface {
	GetStartingState() State[TValue, TCost]
	GetValues(variable int) []TValue
	GetVariables() int
	Compare(a, b TCost) int
	WorstCost() TCost
}

type State[TValue cmp.Ordered, TCost Cost] interface {
	// TransitionTo returns nil when value is not a feasible assignment from this state.
	TransitionTo(context Context[TValue, TCost], value TValue) State[TValue, TCost]
	Cost(context Context[TValue, TCost]) TCost
	// Heuristic estimates the cost of the best completion; restricted expansion keeps the
	// states with the smallest estimates.
	Heuristic(context Context[TValue, TCost]) TCost
	HashBytes() []byte
	Equals(state State[TValue, TCost]) bool
	Solution(context Context[TValue, TCost]) []TValue
}

// solver mechanisms: 1. full expansion (exact, exponential width), 2. restricted width

func solveByExpansion[TValue cmp.Ordered, TCost Cost](context Context[TValue, TCost],
	reducer func([]State[TValue, TCost]) []State[TValue, TCost], logger *log.Logger) (TCost, []TValue) {
	// we don't need to hold on to all states; only the distinct ones of the current layer.
	// when we get to the bottom, we take the best of those for our final solution,
	// walking up the chain to get the actual values.
	closed := map[uint64][]State[TValue, TCost]{}
	parents := []State[TValue, TCost]{context.GetStartingState()}
	variables := context.GetVariables()
	var bestSolution State[TValue, TCost]
	bestCost := context.WorstCost()
	hasher := maphash.Hash{}
	for j := 0; j < variables; j++ {
		var children []State[TValue, TCost]
		duplicates := 0
		for _, parent := range parents {
			for _, value := range context.GetValues(j) {
				child := parent.TransitionTo(context, value)
				if child == nil {
					continue
				}
				hasher.Reset()
				hasher.Write(child.HashBytes())
				hash := hasher.Sum64()
				duplicate := false
				for _, other := range closed[hash] {
					if child.Equals(other) {
						duplicate = true
						duplicates++
						break
					}
				}
				if duplicate {
					continue
				}
				closed[hash] = append(closed[hash], child)
				if j == variables-1 {
					childCost := child.Cost(context)
					if bestSolution == nil || context.Compare(childCost, bestCost) < 0 {
						bestSolution = child
						bestCost = childCost
					}
				} else {
					children = append(children, child)
				}
			}
		}
		clear(closed)
		if logger != nil && ((j+1)%100 == 0 || j == variables-1) {
			logger.Printf("Layer %d, %d nodes, %d duplicates\n", j+1, len(children), duplicates)
		}
		if j < variables-1 {
			parents = reducer(children)
			if len(parents) == 0 { // handle infeasibility
				return context.WorstCost(), nil
			}
		}
	}
	if bestSolution == nil {
		return context.WorstCost(), nil
	}
	return bestCost, bestSolution.Solution(context)
}

// SolveRestricted keeps at most maxWidth states per layer, ranked by their heuristic. With
// maxWidth <= 0 it degenerates to full expansion.
func SolveRestricted[TValue cmp.Ordered, TCost Cost](context Context[TValue, TCost], maxWidth int, logger *log.Logger) (TCost, []TValue) {
	reducer := func(children []State[TValue, TCost]) []State[TValue, TCost] {
		if maxWidth > 0 && len(children) > maxWidth {
			slices.SortStableFunc(children, func(a, b State[TValue, TCost]) int {
				return context.Compare(a.Heuristic(context), b.Heuristic(context))
			})
			return children[:maxWidth]
		}
		return children
	}
	return solveByExpansion[TValue, TCost](context, reducer, logger)
}

// SolveByFullExpansion enumerates every distinct state; exact but only viable for tiny inputs.
func SolveByFullExpansion[TValue cmp.Ordered, TCost Cost](context Context[TValue, TCost], logger *log.Logger) (TCost, []TValue) {
	reducer := func(children []State[TValue, TCost]) []State[TValue, TCost] {
		return children
	}
	return solveByExpansion[TValue, TCost](context, reducer, logger)
}
