package search

import (
	"context"
	"time"

	"jobshop_heuristics/dispatch"
	"jobshop_heuristics/jsp"
)

// climber is best-improvement descent: every step scores the whole neighborhood and commits
// the best move only if it strictly lowers the makespan.
type climber struct {
	evaluator *jsp.Evaluator
}

func (c *climber) Step(current *jsp.Schedule) (Outcome, error) {
	var best jsp.Move
	bestMakespan := current.Makespan()
	found := false
	for m := range jsp.Moves(current) {
		makespan, err := c.evaluator.Makespan(current, m)
		if err != nil {
			return Terminated, err
		}
		if makespan < bestMakespan {
			best, bestMakespan, found = m, makespan, true
		}
	}
	if !found {
		return Terminated, nil
	}
	if err := current.Swap(best); err != nil {
		return Terminated, err
	}
	if err := current.Recompute(); err != nil {
		return Terminated, err
	}
	return Improved, nil
}

// climb descends to a local optimum. The descent always finishes: the makespan strictly drops
// on every step.
func (c *climber) climb(current *jsp.Schedule) (int, error) {
	return Iterate(context.Background(), c, current, 0)
}

type HillClimber struct {
	Cfg Config
}

func NewHillClimber(cfg Config) (*HillClimber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HillClimber{Cfg: cfg}, nil
}

// Solve climbs from the SPS dispatch schedule. It runs to the local optimum (or MaxIterations)
// and does not stop when ctx ends.
func (h *HillClimber) Solve(ctx context.Context, p *jsp.Problem) (Result, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	current, err := dispatch.Construct(p, dispatch.SPS)
	if err != nil {
		return Result{}, err
	}
	initial := current.Makespan()
	c := &climber{evaluator: jsp.NewEvaluator(p)}
	steps, err := Iterate(context.WithoutCancel(ctx), c, current, h.Cfg.MaxIterations)
	if err != nil {
		return Result{}, err
	}
	h.Cfg.logf("hill climber: %d -> %d after %d steps", initial, current.Makespan(), steps)
	return finish(Result{
		Iterations: steps,
		Meta: map[string]any{
			"initial_makespan": initial,
		},
	}, current, c.evaluator, start), nil
}
