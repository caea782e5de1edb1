package dispatch

import (
	"cmp"
	"encoding/binary"
	"log"
	"math"
	"slices"

	"jobshop_heuristics/dd"
	"jobshop_heuristics/jsp"
)

// jspContext exposes dispatching as a layered decision problem: variable i is the job whose
// next operation is dispatched i-th.
type jspContext struct {
	problem *jsp.Problem
	values  []int
}

func newJspContext(p *jsp.Problem) jspContext {
	values := make([]int, p.Jobs)
	for j := range values {
		values[j] = j
	}
	return jspContext{problem: p, values: values}
}

func (c jspContext) GetStartingState() dd.State[int, int] {
	p := c.problem
	left := make([]int, p.Machines)
	for m := range left {
		left[m] = p.MachineLoad(m)
	}
	return &jspState{
		job:                -1,
		next:               make([]int, p.Jobs),
		jobCompletions:     make([]int, p.Jobs),
		machineCompletions: make([]int, p.Machines),
		machineLeft:        left,
	}
}

func (c jspContext) GetValues(variable int) []int {
	return c.values
}

func (c jspContext) GetVariables() int {
	return c.problem.NumOps()
}

func (c jspContext) Compare(a, b int) int {
	return cmp.Compare(a, b)
}

func (c jspContext) WorstCost() int {
	return math.MaxInt
}

type jspState struct {
	parent *jspState
	job    int
	depth  int

	next               []int
	jobCompletions     []int
	machineCompletions []int
	machineLeft        []int
	cmax               int
}

func (j *jspState) TransitionTo(context dd.Context[int, int], value int) dd.State[int, int] {
	p := context.(jspContext).problem
	ops := p.JobOps[value]
	if j.next[value] >= len(ops) { // job already done
		return nil
	}
	op := p.Ops[ops[j.next[value]]]
	completion := max(j.jobCompletions[value], j.machineCompletions[op.Machine]) + op.Duration

	child := &jspState{
		parent:             j,
		job:                value,
		depth:              j.depth + 1,
		next:               slices.Clone(j.next),
		jobCompletions:     slices.Clone(j.jobCompletions),
		machineCompletions: slices.Clone(j.machineCompletions),
		machineLeft:        slices.Clone(j.machineLeft),
		cmax:               max(j.cmax, completion),
	}
	child.next[value]++
	child.jobCompletions[value] = completion
	child.machineCompletions[op.Machine] = completion
	child.machineLeft[op.Machine] -= op.Duration
	return child
}

func (j *jspState) Cost(context dd.Context[int, int]) int {
	return j.cmax
}

// Heuristic is a lower bound on the final makespan: no job can finish before its remaining
// work is done, no machine before its remaining load is processed.
func (j *jspState) Heuristic(context dd.Context[int, int]) int {
	p := context.(jspContext).problem
	bound := j.cmax
	for job, ops := range p.JobOps {
		if j.next[job] < len(ops) {
			bound = max(bound, j.jobCompletions[job]+p.RemainingWork(ops[j.next[job]]))
		}
	}
	for m, left := range j.machineLeft {
		bound = max(bound, j.machineCompletions[m]+left)
	}
	return bound
}

func (j *jspState) HashBytes() []byte {
	buf := make([]byte, 0, 4*(2*len(j.next)+len(j.machineCompletions)))
	for _, v := range j.next {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	for _, v := range j.jobCompletions {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	for _, v := range j.machineCompletions {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	return buf
}

func (j *jspState) Equals(state dd.State[int, int]) bool {
	j2 := state.(*jspState)
	return slices.Equal(j.next, j2.next) &&
		slices.Equal(j.jobCompletions, j2.jobCompletions) &&
		slices.Equal(j.machineCompletions, j2.machineCompletions)
}

// Solution walks back to the root and returns the dispatched jobs in order.
func (j *jspState) Solution(context dd.Context[int, int]) []int {
	jobs := make([]int, j.depth)
	for node := j; node.parent != nil; node = node.parent {
		jobs[node.depth-1] = node.job
	}
	return jobs
}

// Beam dispatches with a restricted-width decision diagram: every layer keeps the width
// partial schedules with the best lower bound.
func Beam(p *jsp.Problem, width int, logger *log.Logger) (*jsp.Schedule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		width = 1
	}
	_, jobs := dd.SolveRestricted[int, int](newJspContext(p), width, logger)
	return FromSequence(p, jobs)
}

// Exhaustive enumerates every distinct dispatch state. Every semi-active schedule, and so an
// optimal one, is reachable by some dispatch sequence, so the result is optimal. The state
// space grows exponentially: only use it on tiny instances.
func Exhaustive(p *jsp.Problem, logger *log.Logger) (*jsp.Schedule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	_, jobs := dd.SolveByFullExpansion[int, int](newJspContext(p), logger)
	return FromSequence(p, jobs)
}
