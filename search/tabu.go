package search

import (
	"context"
	"math"
	"time"

	"jobshop_heuristics/dispatch"
	"jobshop_heuristics/jsp"
)

// tabuList maps a swapped pair to the last iteration in which swapping it again is forbidden.
type tabuList struct {
	expiry map[jsp.MoveKey]int
}

func newTabuList() *tabuList {
	return &tabuList{expiry: make(map[jsp.MoveKey]int)}
}

func (t *tabuList) IsTabu(key jsp.MoveKey, iteration int) bool {
	expiry, ok := t.expiry[key]
	return ok && iteration <= expiry
}

func (t *tabuList) Add(key jsp.MoveKey, expiry int) {
	t.expiry[key] = expiry
}

// prune forgets entries that can no longer be tabu.
func (t *tabuList) prune(iteration int) {
	for key, expiry := range t.expiry {
		if expiry < iteration {
			delete(t.expiry, key)
		}
	}
}

// TaillardTenure is the tenure Taillard derives from the instance shape, at least 1.
func TaillardTenure(jobs, machines int) int {
	n, m := float64(jobs), float64(machines)
	tenure := (n+m/2)*math.Exp(-n/(5*m)) + (n*m)/2*math.Exp(-5*m/n)
	return max(int(tenure), 1)
}

type tabuSearch struct {
	evaluator *jsp.Evaluator
	tabu      *tabuList
	tenure    int
	iteration int
	best      *jsp.Schedule

	last      jsp.Move
	aspirated bool
	cfg       Config
}

// Step applies the admissible move with the lowest resulting makespan, even if it is worse
// than the current one. A tabu move is admissible only when it beats the best schedule seen.
func (t *tabuSearch) Step(current *jsp.Schedule) (Outcome, error) {
	t.iteration++
	var chosen jsp.Move
	chosenMakespan, found, aspirated := 0, false, false
	for m := range jsp.Moves(current) {
		makespan, err := t.evaluator.Makespan(current, m)
		if err != nil {
			return Terminated, err
		}
		tabu := t.tabu.IsTabu(m.Key(), t.iteration)
		if tabu && makespan >= t.best.Makespan() {
			continue
		}
		if !found || makespan < chosenMakespan {
			chosen, chosenMakespan, found, aspirated = m, makespan, true, tabu
		}
	}
	if !found {
		t.cfg.logf("tabu search: no admissible move at iteration %d", t.iteration)
		return Terminated, nil
	}
	if err := current.Swap(chosen); err != nil {
		return Terminated, err
	}
	if err := current.Recompute(); err != nil {
		return Terminated, err
	}
	t.last, t.aspirated = chosen, aspirated
	t.tabu.Add(chosen.Key(), t.iteration+t.tenure)
	if t.iteration%256 == 0 {
		t.tabu.prune(t.iteration)
	}
	if current.Makespan() < t.best.Makespan() {
		t.best.CopyFrom(current)
		t.cfg.logf("tabu search: improved best to %d (iteration %d)", current.Makespan(), t.iteration)
		return Improved, nil
	}
	return Unchanged, nil
}

type TabuSearch struct {
	Cfg Config
}

func NewTabuSearch(cfg Config) (*TabuSearch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TabuSearch{Cfg: cfg}, nil
}

// Solve searches from a random ordering until ctx ends, MaxIterations steps ran or every
// move is tabu.
func (ts *TabuSearch) Solve(ctx context.Context, p *jsp.Problem) (Result, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	current, err := dispatch.Random(p, NewRand(ts.Cfg.Seed))
	if err != nil {
		return Result{}, err
	}
	tenure := ts.Cfg.Tabu.Tenure
	if tenure == 0 {
		tenure = TaillardTenure(p.Jobs, p.Machines)
	}
	t := &tabuSearch{
		evaluator: jsp.NewEvaluator(p),
		tabu:      newTabuList(),
		tenure:    tenure,
		best:      current.Clone(),
		cfg:       ts.Cfg,
	}
	meta := map[string]any{"tenure": tenure}
	steps, err := Iterate(ctx, t, current, ts.Cfg.MaxIterations)
	if err != nil {
		if !interrupted(ctx, err) {
			return Result{}, err
		}
		meta["stopped"] = "context"
	}
	return finish(Result{Iterations: steps, Meta: meta}, t.best, t.evaluator, start), nil
}
