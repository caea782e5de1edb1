package dispatch

import (
	"fmt"
	"math/rand/v2"

	"github.com/oleiade/lane/v2"

	"jobshop_heuristics/jsp"
)

// simulator moves machine and job availability forward in time as operations are dispatched.
// The machine orders it records are exactly the dispatch order, so the schedule built from
// them starts every op at max(job ready, machine free).
type simulator struct {
	problem     *jsp.Problem
	next        []int // job -> index of its next unscheduled op
	jobReady    []int
	machineFree []int
	orders      [][]int
	width       int
}

func newSimulator(p *jsp.Problem) (*simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sim := &simulator{
		problem:     p,
		next:        make([]int, p.Jobs),
		jobReady:    make([]int, p.Jobs),
		machineFree: make([]int, p.Machines),
		orders:      make([][]int, p.Machines),
	}
	for m, ops := range p.MachineOps {
		sim.orders[m] = make([]int, 0, len(ops))
	}
	for _, ops := range p.JobOps {
		sim.width = max(sim.width, len(ops))
	}
	return sim, nil
}

// eligible returns the next unscheduled op of job, or -1 once the job is done.
func (sim *simulator) eligible(job int) int {
	ops := sim.problem.JobOps[job]
	if sim.next[job] < len(ops) {
		return ops[sim.next[job]]
	}
	return -1
}

func (sim *simulator) release(op int) int {
	o := sim.problem.Ops[op]
	return max(sim.jobReady[o.Job], sim.machineFree[o.Machine])
}

func (sim *simulator) dispatch(op int) {
	o := sim.problem.Ops[op]
	end := sim.release(op) + o.Duration
	sim.jobReady[o.Job] = end
	sim.machineFree[o.Machine] = end
	sim.orders[o.Machine] = append(sim.orders[o.Machine], op)
	sim.next[o.Job]++
}

func (sim *simulator) build() (*jsp.Schedule, error) {
	return jsp.Build(sim.problem, sim.orders)
}

// Construct dispatches, at every step, the eligible operation the rule ranks first.
func Construct(p *jsp.Problem, rule Rule) (*jsp.Schedule, error) {
	if _, err := ParseRule(string(rule)); err != nil {
		return nil, err
	}
	sim, err := newSimulator(p)
	if err != nil {
		return nil, err
	}
	opens := lane.NewMinPriorityQueue[int, int64]()
	for j := range p.JobOps {
		op := sim.eligible(j)
		opens.Push(op, rule.priority(p, op, sim.width))
	}
	for {
		op, _, ok := opens.Pop()
		if !ok {
			break
		}
		sim.dispatch(op)
		if next := sim.eligible(p.Ops[op].Job); next >= 0 {
			opens.Push(next, rule.priority(p, next, sim.width))
		}
	}
	return sim.build()
}

// ConstructActive is the Giffler-Thompson variant: only operations on the machine of the
// earliest completing eligible op, and released before that completion, compete under the rule.
// Every schedule it builds is active.
func ConstructActive(p *jsp.Problem, rule Rule) (*jsp.Schedule, error) {
	if _, err := ParseRule(string(rule)); err != nil {
		return nil, err
	}
	sim, err := newSimulator(p)
	if err != nil {
		return nil, err
	}
	for remaining := p.NumOps(); remaining > 0; remaining-- {
		earliest, completion := -1, 0
		for j := range p.JobOps {
			op := sim.eligible(j)
			if op < 0 {
				continue
			}
			if c := sim.release(op) + p.Ops[op].Duration; earliest < 0 || c < completion {
				earliest, completion = op, c
			}
		}
		machine := p.Ops[earliest].Machine
		chosen := -1
		var chosenPriority int64
		for j := range p.JobOps {
			op := sim.eligible(j)
			if op < 0 || p.Ops[op].Machine != machine || sim.jobReady[j] >= completion {
				continue
			}
			if priority := rule.priority(p, op, sim.width); chosen < 0 || priority < chosenPriority {
				chosen, chosenPriority = op, priority
			}
		}
		sim.dispatch(chosen)
	}
	return sim.build()
}

// FromSequence dispatches the next operation of each listed job in turn. Every job must
// appear exactly as many times as it has operations.
func FromSequence(p *jsp.Problem, jobs []int) (*jsp.Schedule, error) {
	sim, err := newSimulator(p)
	if err != nil {
		return nil, err
	}
	if len(jobs) != p.NumOps() {
		return nil, fmt.Errorf("sequence has %d entries, expected %d", len(jobs), p.NumOps())
	}
	for i, job := range jobs {
		if job < 0 || job >= p.Jobs {
			return nil, fmt.Errorf("sequence[%d]: job %d out of range", i, job)
		}
		op := sim.eligible(job)
		if op < 0 {
			return nil, fmt.Errorf("sequence[%d]: job %d has no operations left", i, job)
		}
		sim.dispatch(op)
	}
	return sim.build()
}

// Sequential dispatches operations in raw input order: all of job 0, then job 1, and so on.
func Sequential(p *jsp.Problem) (*jsp.Schedule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	jobs := make([]int, 0, p.NumOps())
	for j, ops := range p.JobOps {
		for range ops {
			jobs = append(jobs, j)
		}
	}
	return FromSequence(p, jobs)
}

// Random dispatches a uniformly chosen eligible operation at every step, which yields one
// random feasible machine ordering per call.
func Random(p *jsp.Problem, rng *rand.Rand) (*jsp.Schedule, error) {
	sim, err := newSimulator(p)
	if err != nil {
		return nil, err
	}
	ready := make([]int, p.Jobs)
	for j := range ready {
		ready[j] = j
	}
	for len(ready) > 0 {
		i := rng.IntN(len(ready))
		job := ready[i]
		sim.dispatch(sim.eligible(job))
		if sim.eligible(job) < 0 {
			ready = append(ready[:i], ready[i+1:]...)
		}
	}
	return sim.build()
}
