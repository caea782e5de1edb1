package search

import (
	"context"
	"math/rand/v2"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"jobshop_heuristics/dispatch"
	"jobshop_heuristics/jsp"
)

// restarter draws a random ordering and climbs it to a local optimum on every step. The
// schedule handed to Step holds the best local optimum so far.
type restarter struct {
	problem  *jsp.Problem
	rng      *rand.Rand
	climber  *climber
	optima   mapset.Set[int]
	restarts int
	cfg      Config
}

func (r *restarter) descend() (*jsp.Schedule, error) {
	s, err := dispatch.Random(r.problem, r.rng)
	if err != nil {
		return nil, err
	}
	if _, err := r.climber.climb(s); err != nil {
		return nil, err
	}
	r.restarts++
	r.optima.Add(s.Makespan())
	return s, nil
}

func (r *restarter) Step(best *jsp.Schedule) (Outcome, error) {
	s, err := r.descend()
	if err != nil {
		return Terminated, err
	}
	if s.Makespan() < best.Makespan() {
		r.cfg.logf("restart %d: improved best to %d", r.restarts, s.Makespan())
		best.CopyFrom(s)
		return Improved, nil
	}
	return Unchanged, nil
}

type RandomRestart struct {
	Cfg Config
}

func NewRandomRestart(cfg Config) (*RandomRestart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RandomRestart{Cfg: cfg}, nil
}

// Solve restarts until ctx ends or MaxIterations restarts ran. The first restart always runs
// and a restart in progress is never interrupted.
func (rr *RandomRestart) Solve(ctx context.Context, p *jsp.Problem) (Result, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	r := &restarter{
		problem: p,
		rng:     NewRand(rr.Cfg.Seed),
		climber: &climber{evaluator: jsp.NewEvaluator(p)},
		optima:  mapset.NewThreadUnsafeSet[int](),
		cfg:     rr.Cfg,
	}
	best, err := r.descend()
	if err != nil {
		return Result{}, err
	}
	meta := map[string]any{}
	if rr.Cfg.MaxIterations != 1 {
		limit := max(rr.Cfg.MaxIterations-1, 0)
		if _, err := Iterate(ctx, r, best, limit); err != nil {
			if !interrupted(ctx, err) {
				return Result{}, err
			}
			meta["stopped"] = "context"
		}
	}
	meta["distinct_optima"] = r.optima.Cardinality()
	rr.Cfg.logf("random restart: best %d after %d restarts", best.Makespan(), r.restarts)
	return finish(Result{Iterations: r.restarts, Meta: meta}, best, r.climber.evaluator, start), nil
}
