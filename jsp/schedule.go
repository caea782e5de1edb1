package jsp

import (
	"fmt"
	"iter"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Schedule is the disjunctive graph of one candidate solution. Job arcs are implicit in the
// problem's arena; the machine arcs are the per-machine processing orders, which are the only
// mutable part. Source and sink are implicit: every op without predecessors starts at 0 and the
// makespan is the longest path into the sink.
type Schedule struct {
	problem *Problem

	order [][]int // machine -> ops in processing order
	pos   []int   // op -> index in its machine order

	head     []int // start times (longest path from the source)
	tail     []int // duration plus longest path to the sink
	path     []int
	makespan int
	stale    bool

	topo     []int
	indegree []int
}

type Block struct {
	Machine int
	Ops     []int
}

// Build orients every machine by the given processing orders and computes the times.
func Build(problem *Problem, orders [][]int) (*Schedule, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if len(orders) != problem.Machines {
		return nil, invalidf("expected orders for %d machines, got %d", problem.Machines, len(orders))
	}
	s := newSchedule(problem)
	for m, ops := range orders {
		if len(ops) != len(problem.MachineOps[m]) {
			return nil, invalidf("machine %d: expected %d operations in order, got %d", m, len(problem.MachineOps[m]), len(ops))
		}
		seen := mapset.NewThreadUnsafeSet[int]()
		for i, op := range ops {
			if op < 0 || op >= len(problem.Ops) || problem.Ops[op].Machine != m {
				return nil, invalidf("machine %d: operation %d does not run on it", m, op)
			}
			if !seen.Add(op) {
				return nil, invalidf("machine %d: operation %d ordered twice", m, op)
			}
			s.order[m][i] = op
			s.pos[op] = i
		}
	}
	if err := s.Recompute(); err != nil {
		return nil, err
	}
	return s, nil
}

func newSchedule(problem *Problem) *Schedule {
	n := len(problem.Ops)
	s := &Schedule{
		problem:  problem,
		order:    make([][]int, problem.Machines),
		pos:      make([]int, n),
		head:     make([]int, n),
		tail:     make([]int, n),
		topo:     make([]int, 0, n),
		indegree: make([]int, n),
		stale:    true,
	}
	for m, ops := range problem.MachineOps {
		s.order[m] = make([]int, len(ops))
	}
	return s
}

func (s *Schedule) Problem() *Problem {
	return s.problem
}

// MachinePrev returns the op processed just before op on its machine, or -1.
func (s *Schedule) MachinePrev(op int) int {
	if i := s.pos[op]; i > 0 {
		return s.order[s.problem.Ops[op].Machine][i-1]
	}
	return -1
}

// MachineNext returns the op processed just after op on its machine, or -1.
func (s *Schedule) MachineNext(op int) int {
	order := s.order[s.problem.Ops[op].Machine]
	if i := s.pos[op]; i+1 < len(order) {
		return order[i+1]
	}
	return -1
}

// Recompute derives start times, tails, the makespan and one critical path with a
// topological sweep over the graph. It must run after any change to the machine orders.
func (s *Schedule) Recompute() error {
	p := s.problem
	n := len(p.Ops)
	s.topo = s.topo[:0]
	for op := 0; op < n; op++ {
		degree := 0
		if p.Prev(op) >= 0 {
			degree++
		}
		if s.pos[op] > 0 {
			degree++
		}
		s.indegree[op] = degree
		if degree == 0 {
			s.topo = append(s.topo, op)
		}
	}
	// the topological order doubles as the work queue
	for i := 0; i < len(s.topo); i++ {
		op := s.topo[i]
		for _, next := range [2]int{p.Next(op), s.MachineNext(op)} {
			if next < 0 {
				continue
			}
			s.indegree[next]--
			if s.indegree[next] == 0 {
				s.topo = append(s.topo, next)
			}
		}
	}
	if len(s.topo) != n {
		s.stale = true
		return &InfeasibleOrderingError{Labelled: len(s.topo), Total: n}
	}

	s.makespan = 0
	for _, op := range s.topo {
		release := 0
		if prev := p.Prev(op); prev >= 0 {
			release = s.head[prev] + p.Ops[prev].Duration
		}
		if prev := s.MachinePrev(op); prev >= 0 {
			release = max(release, s.head[prev]+p.Ops[prev].Duration)
		}
		s.head[op] = release
		s.makespan = max(s.makespan, release+p.Ops[op].Duration)
	}
	for i := n - 1; i >= 0; i-- {
		op := s.topo[i]
		after := 0
		if next := p.Next(op); next >= 0 {
			after = s.tail[next]
		}
		if next := s.MachineNext(op); next >= 0 {
			after = max(after, s.tail[next])
		}
		s.tail[op] = after + p.Ops[op].Duration
	}

	s.tracePath()
	s.stale = false
	return nil
}

// tracePath follows one longest path from the source. It starts at the lowest critical op
// with start time 0 and prefers the machine arc so that blocks come out as long as possible.
func (s *Schedule) tracePath() {
	p := s.problem
	s.path = s.path[:0]
	current := -1
	for op := range p.Ops {
		if s.head[op] == 0 && s.tail[op] == s.makespan {
			current = op
			break
		}
	}
	for current >= 0 {
		s.path = append(s.path, current)
		end := s.head[current] + p.Ops[current].Duration
		next := -1
		for _, candidate := range [2]int{s.MachineNext(current), p.Next(current)} {
			if candidate >= 0 && s.head[candidate] == end && s.IsCritical(candidate) {
				next = candidate
				break
			}
		}
		current = next
	}
}

// Makespan is the length of the critical path as of the last Recompute.
func (s *Schedule) Makespan() int {
	return s.makespan
}

// Stale reports whether the machine orders changed since the last successful Recompute.
func (s *Schedule) Stale() bool {
	return s.stale
}

func (s *Schedule) Start(op int) int {
	return s.head[op]
}

func (s *Schedule) Completion(op int) int {
	return s.head[op] + s.problem.Ops[op].Duration
}

func (s *Schedule) Tail(op int) int {
	return s.tail[op]
}

func (s *Schedule) IsCritical(op int) bool {
	return s.head[op]+s.tail[op] == s.makespan
}

// StartTimes lists, per job, the start times of its operations in job order.
func (s *Schedule) StartTimes() [][]int {
	starts := make([][]int, len(s.problem.JobOps))
	for j, ops := range s.problem.JobOps {
		starts[j] = make([]int, len(ops))
		for i, op := range ops {
			starts[j][i] = s.head[op]
		}
	}
	return starts
}

// Starts returns the start time of every op indexed by op ID.
func (s *Schedule) Starts() []int {
	return slices.Clone(s.head)
}

func (s *Schedule) MachineOrder(machine int) []int {
	return slices.Clone(s.order[machine])
}

func (s *Schedule) Orders() [][]int {
	orders := make([][]int, len(s.order))
	for m, ops := range s.order {
		orders[m] = slices.Clone(ops)
	}
	return orders
}

func (s *Schedule) CriticalPath() []int {
	return slices.Clone(s.path)
}

// CriticalBlocks yields the maximal runs of the critical path joined by machine arcs, in path
// order. Single operations form blocks of length one. The sequence reflects the last Recompute.
func (s *Schedule) CriticalBlocks() iter.Seq[Block] {
	path := slices.Clone(s.path)
	return func(yield func(Block) bool) {
		start := 0
		for i := 1; i <= len(path); i++ {
			if i < len(path) && s.MachineNext(path[i-1]) == path[i] {
				continue
			}
			block := Block{Machine: s.problem.Ops[path[start]].Machine, Ops: path[start:i]}
			if !yield(block) {
				return
			}
			start = i
		}
	}
}

// Swap exchanges the two adjacent operations of the move in place and marks the schedule stale.
func (s *Schedule) Swap(m Move) error {
	order := s.order[m.Machine]
	i := s.pos[m.First]
	if s.problem.Ops[m.First].Machine != m.Machine || i+1 >= len(order) || order[i+1] != m.Second {
		return fmt.Errorf("move %v: operations are not adjacent on machine %d", m, m.Machine)
	}
	order[i], order[i+1] = m.Second, m.First
	s.pos[m.Second] = i
	s.pos[m.First] = i + 1
	s.stale = true
	return nil
}

// Apply returns a recomputed copy with the move applied; the receiver is left untouched.
func (s *Schedule) Apply(m Move) (*Schedule, error) {
	next := s.Clone()
	if err := next.Swap(m); err != nil {
		return nil, err
	}
	if err := next.Recompute(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Schedule) Clone() *Schedule {
	c := newSchedule(s.problem)
	c.CopyFrom(s)
	return c
}

// CopyFrom overwrites the receiver with src, reusing its buffers. Both must share a problem.
func (s *Schedule) CopyFrom(src *Schedule) {
	if s.problem != src.problem {
		panic("jsp: CopyFrom across different problems")
	}
	for m := range src.order {
		copy(s.order[m], src.order[m])
	}
	copy(s.pos, src.pos)
	copy(s.head, src.head)
	copy(s.tail, src.tail)
	s.path = append(s.path[:0], src.path...)
	s.makespan = src.makespan
	s.stale = src.stale
}
