package jsp

import (
	"cmp"
	"fmt"
	"slices"
)

// Verify checks a start-time table (indexed by op ID) against the problem: no negative starts,
// every operation starts after its job predecessor completes, and no two operations overlap on
// a machine.
func Verify(problem *Problem, starts []int) error {
	if len(starts) != len(problem.Ops) {
		return fmt.Errorf("expected %d start times, got %d", len(problem.Ops), len(starts))
	}
	for _, op := range problem.Ops {
		if starts[op.ID] < 0 {
			return fmt.Errorf("job %d operation %d starts at %d", op.Job, op.Index, starts[op.ID])
		}
		if prev := problem.Prev(op.ID); prev >= 0 {
			if end := starts[prev] + problem.Ops[prev].Duration; end > starts[op.ID] {
				return fmt.Errorf("precedence violation in job %d: operation %d ends at %d, operation %d starts at %d",
					op.Job, op.Index-1, end, op.Index, starts[op.ID])
			}
		}
	}
	for m, ops := range problem.MachineOps {
		sorted := slices.Clone(ops)
		slices.SortFunc(sorted, func(a, b int) int {
			return cmp.Or(cmp.Compare(starts[a], starts[b]), cmp.Compare(a, b))
		})
		for i := 1; i < len(sorted); i++ {
			prev, op := sorted[i-1], sorted[i]
			if end := starts[prev] + problem.Ops[prev].Duration; end > starts[op] {
				return fmt.Errorf("overlap on machine %d: operation %d runs [%d,%d), operation %d starts at %d",
					m, prev, starts[prev], end, op, starts[op])
			}
		}
	}
	return nil
}

// Makespan is the latest completion time in a start-time table.
func Makespan(problem *Problem, starts []int) int {
	cmax := 0
	for _, op := range problem.Ops {
		cmax = max(cmax, starts[op.ID]+op.Duration)
	}
	return cmax
}
