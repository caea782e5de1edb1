package jsp

import (
	"fmt"
	"iter"
	"slices"
)

// Move swaps two operations that are adjacent on a machine: First currently runs
// immediately before Second.
type Move struct {
	Machine int
	First   int
	Second  int
}

// MoveKey identifies a move regardless of direction, so that undoing a swap maps to the
// same key.
type MoveKey struct {
	Machine int
	A, B    int
}

func (m Move) Key() MoveKey {
	if m.First < m.Second {
		return MoveKey{m.Machine, m.First, m.Second}
	}
	return MoveKey{m.Machine, m.Second, m.First}
}

func (m Move) String() string {
	return fmt.Sprintf("m%d:%d<->%d", m.Machine, m.First, m.Second)
}

// Moves enumerates the block neighborhood of the schedule (van Laarhoven, Taillard): for every
// critical block of two or more operations, swap its first two operations and, for longer
// blocks, its last two. Swapping adjacent critical operations cannot create a cycle. An empty
// sequence means no block has two operations, so the critical path is one job and the
// schedule is optimal.
func Moves(s *Schedule) iter.Seq[Move] {
	return func(yield func(Move) bool) {
		for block := range s.CriticalBlocks() {
			k := len(block.Ops)
			if k < 2 {
				continue
			}
			if !yield(Move{Machine: block.Machine, First: block.Ops[0], Second: block.Ops[1]}) {
				return
			}
			if k > 2 {
				if !yield(Move{Machine: block.Machine, First: block.Ops[k-2], Second: block.Ops[k-1]}) {
					return
				}
			}
		}
	}
}

func CollectMoves(s *Schedule) []Move {
	return slices.Collect(Moves(s))
}

// Evaluator scores moves on a private scratch copy, so the schedule being searched is never
// modified while its neighbors are examined.
type Evaluator struct {
	scratch     *Schedule
	Evaluations int
}

func NewEvaluator(problem *Problem) *Evaluator {
	return &Evaluator{scratch: newSchedule(problem)}
}

// Makespan returns the makespan the schedule would have after the move.
func (e *Evaluator) Makespan(s *Schedule, m Move) (int, error) {
	e.scratch.CopyFrom(s)
	if err := e.scratch.Swap(m); err != nil {
		return 0, err
	}
	if err := e.scratch.Recompute(); err != nil {
		return 0, err
	}
	e.Evaluations++
	return e.scratch.makespan, nil
}
