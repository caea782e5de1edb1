package jsp

import (
	mapset "github.com/deckarep/golang-set/v2"
)

type Operation struct {
	ID       int
	Job      int
	Index    int
	Machine  int
	Duration int
}

// Problem is the immutable, validated view of an instance. Operations live in one arena in
// job-major order and are referred to by their ID everywhere else.
type Problem struct {
	Name       string
	Jobs       int
	Machines   int
	Optimum    int
	Ops        []Operation
	JobOps     [][]int
	MachineOps [][]int

	remaining   []int
	machineLoad []int
}

// NewProblem validates the instance and derives the lookup tables. Machine ids may be
// 0-indexed or consistently 1-indexed.
func NewProblem(instance *Instance) (*Problem, error) {
	if instance == nil {
		return nil, invalidf("instance is nil")
	}
	if len(instance.Work) == 0 {
		return nil, invalidf("no jobs")
	}
	machines := instance.Machines
	shift := 0
	used := mapset.NewThreadUnsafeSet[int]()
	maxMachine := -1
	for _, job := range instance.Work {
		for _, pair := range job {
			used.Add(pair.Machine)
			maxMachine = max(maxMachine, pair.Machine)
		}
	}
	if machines <= 0 {
		machines = maxMachine + 1
	}
	if !used.Contains(0) && maxMachine == machines {
		shift = 1
	}

	problem := &Problem{
		Name:       instance.Name,
		Jobs:       len(instance.Work),
		Machines:   machines,
		Optimum:    instance.Optimum,
		JobOps:     make([][]int, len(instance.Work)),
		MachineOps: make([][]int, machines),
	}
	for j, job := range instance.Work {
		if len(job) == 0 {
			return nil, invalidf("job %d has no operations", j)
		}
		problem.JobOps[j] = make([]int, len(job))
		visited := mapset.NewThreadUnsafeSet[int]()
		for i, pair := range job {
			machine := pair.Machine - shift
			if machine < 0 || machine >= machines {
				return nil, invalidf("job %d operation %d: machine %d out of range [0,%d)", j, i, pair.Machine, machines)
			}
			if !visited.Add(machine) {
				return nil, invalidf("job %d operation %d: machine %d already visited by the job", j, i, pair.Machine)
			}
			if pair.Delay <= 0 {
				return nil, invalidf("job %d operation %d: duration must be > 0 (got %d)", j, i, pair.Delay)
			}
			id := len(problem.Ops)
			problem.Ops = append(problem.Ops, Operation{ID: id, Job: j, Index: i, Machine: machine, Duration: pair.Delay})
			problem.JobOps[j][i] = id
			problem.MachineOps[machine] = append(problem.MachineOps[machine], id)
		}
	}
	for m, ops := range problem.MachineOps {
		if len(ops) == 0 {
			return nil, invalidf("machine %d has no operations", m)
		}
	}

	problem.remaining = make([]int, len(problem.Ops))
	for _, ops := range problem.JobOps {
		sum := 0
		for k := len(ops) - 1; k >= 0; k-- {
			sum += problem.Ops[ops[k]].Duration
			problem.remaining[ops[k]] = sum
		}
	}
	problem.machineLoad = make([]int, machines)
	for _, op := range problem.Ops {
		problem.machineLoad[op.Machine] += op.Duration
	}
	return problem, nil
}

// Validate re-checks the invariants a solver relies on. It guards against hand-built values.
func (p *Problem) Validate() error {
	if p == nil {
		return invalidf("problem is nil")
	}
	if p.Jobs == 0 || len(p.JobOps) == 0 {
		return invalidf("no jobs")
	}
	if len(p.Ops) == 0 || len(p.remaining) != len(p.Ops) || len(p.machineLoad) != p.Machines {
		return invalidf("problem was not built by NewProblem")
	}
	for j, ops := range p.JobOps {
		for _, op := range ops {
			if op < 0 || op >= len(p.Ops) {
				return invalidf("job %d references operation %d out of range [0,%d)", j, op, len(p.Ops))
			}
		}
	}
	for m, ops := range p.MachineOps {
		if len(ops) == 0 {
			return invalidf("machine %d has no operations", m)
		}
	}
	return nil
}

func (p *Problem) NumOps() int {
	return len(p.Ops)
}

// RemainingWork is the processing time left in the op's job, the op itself included.
func (p *Problem) RemainingWork(op int) int {
	return p.remaining[op]
}

func (p *Problem) MachineLoad(machine int) int {
	return p.machineLoad[machine]
}

// Next returns the job successor of op, or -1 for the last operation of a job.
func (p *Problem) Next(op int) int {
	o := p.Ops[op]
	if o.Index+1 < len(p.JobOps[o.Job]) {
		return op + 1
	}
	return -1
}

// Prev returns the job predecessor of op, or -1 for the first operation of a job.
func (p *Problem) Prev(op int) int {
	if p.Ops[op].Index > 0 {
		return op - 1
	}
	return -1
}

// LowerBound is the larger of the longest job and the most loaded machine.
func (p *Problem) LowerBound() int {
	bound := 0
	for _, ops := range p.JobOps {
		bound = max(bound, p.remaining[ops[0]])
	}
	for _, load := range p.machineLoad {
		bound = max(bound, load)
	}
	return bound
}
