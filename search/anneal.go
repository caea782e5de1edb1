package search

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"jobshop_heuristics/dispatch"
	"jobshop_heuristics/jsp"
)

// frozen is the temperature below which an annealing run counts as converged.
const frozen = 1e-6

// Acceptance is the Metropolis probability of accepting a move that changes the makespan by
// delta at temperature.
func Acceptance(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1
	}
	if temperature <= 0 {
		return 0
	}
	return math.Exp(-delta / temperature)
}

// annealer samples one random neighbor per step. Steps are grouped in epochs of fixed length;
// after each epoch the temperature follows the statistical cooling schedule. Once the accepted
// costs stop varying, or the temperature is frozen, the run restarts from a new random ordering
// while best keeps the best schedule across runs.
type annealer struct {
	problem   *jsp.Problem
	rng       *rand.Rand
	evaluator *jsp.Evaluator
	params    AnnealConfig
	best      *jsp.Schedule

	temperature float64
	initial     float64
	epochLength int
	epochSteps  int
	accepted    []int
	restarts    int
	cfg         Config
}

func newAnnealer(p *jsp.Problem, rng *rand.Rand, cfg Config) *annealer {
	return &annealer{
		problem:     p,
		rng:         rng,
		evaluator:   jsp.NewEvaluator(p),
		params:      cfg.Anneal,
		epochLength: max(p.NumOps()-p.Machines, 1),
		cfg:         cfg,
	}
}

// estimateTemperature samples random schedules, scores one random move on each and returns
// the temperature at which the mean move delta is accepted with the start acceptance ratio.
func (a *annealer) estimateTemperature() (float64, error) {
	var deltas []int
	for i := 0; i < a.params.TemperatureSamples; i++ {
		s, err := dispatch.Random(a.problem, a.rng)
		if err != nil {
			return 0, err
		}
		moves := jsp.CollectMoves(s)
		if len(moves) == 0 {
			continue
		}
		makespan, err := a.evaluator.Makespan(s, moves[a.rng.IntN(len(moves))])
		if err != nil {
			return 0, err
		}
		deltas = append(deltas, makespan-s.Makespan())
	}
	mean := meanAbs(deltas)
	if mean == 0 {
		// every sampled schedule was optimal or every move neutral
		return 1, nil
	}
	return mean / math.Log(1/a.params.StartAcceptanceRatio), nil
}

// start begins a run from a new random ordering at the initial temperature.
func (a *annealer) start() (*jsp.Schedule, error) {
	s, err := dispatch.Random(a.problem, a.rng)
	if err != nil {
		return nil, err
	}
	if a.initial, err = a.estimateTemperature(); err != nil {
		return nil, err
	}
	a.temperature = a.initial
	a.epochSteps = 0
	a.accepted = append(a.accepted[:0], s.Makespan())
	return s, nil
}

// cool ends an epoch; the next one starts at makespan. It reports false when the run froze.
func (a *annealer) cool(makespan int) bool {
	sigma := popStdDev(a.accepted)
	a.epochSteps = 0
	a.accepted = append(a.accepted[:0], makespan)
	if sigma == 0 {
		return false
	}
	a.temperature /= 1 + a.temperature*math.Log(1+a.params.Delta)/(3*sigma)
	return a.temperature >= frozen
}

func (a *annealer) Step(current *jsp.Schedule) (Outcome, error) {
	moves := jsp.CollectMoves(current)
	if len(moves) > 0 {
		m := moves[a.rng.IntN(len(moves))]
		makespan, err := a.evaluator.Makespan(current, m)
		if err != nil {
			return Terminated, err
		}
		delta := float64(makespan - current.Makespan())
		if delta <= 0 || a.rng.Float64() < Acceptance(delta, a.temperature) {
			if err := current.Swap(m); err != nil {
				return Terminated, err
			}
			if err := current.Recompute(); err != nil {
				return Terminated, err
			}
			a.accepted = append(a.accepted, current.Makespan())
		}
		a.epochSteps++
	}

	outcome := Unchanged
	if current.Makespan() < a.best.Makespan() {
		a.best.CopyFrom(current)
		outcome = Improved
		a.cfg.logf("simulated annealing: improved best to %d (temperature %.3f)", current.Makespan(), a.temperature)
	}

	// an empty neighborhood ends the epoch early
	if len(moves) == 0 || a.epochSteps >= a.epochLength {
		if !a.cool(current.Makespan()) {
			a.restarts++
			a.cfg.logf("simulated annealing: frozen at %.6f, restart %d", a.temperature, a.restarts)
			s, err := a.start()
			if err != nil {
				return Terminated, err
			}
			current.CopyFrom(s)
			if current.Makespan() < a.best.Makespan() {
				a.best.CopyFrom(current)
				outcome = Improved
			}
		}
	}
	return outcome, nil
}

type Annealing struct {
	Cfg Config
}

func NewAnnealing(cfg Config) (*Annealing, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Anneal.Validate(); err != nil {
		return nil, err
	}
	return &Annealing{Cfg: cfg}, nil
}

// Solve anneals until ctx ends or MaxIterations steps ran and returns the best schedule seen,
// which is not necessarily the last one.
func (sa *Annealing) Solve(ctx context.Context, p *jsp.Problem) (Result, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	a := newAnnealer(p, NewRand(sa.Cfg.Seed), sa.Cfg)
	current, err := a.start()
	if err != nil {
		return Result{}, err
	}
	a.best = current.Clone()
	sa.Cfg.logf("simulated annealing: start at %d, temperature %.3f, epoch %d", current.Makespan(), a.temperature, a.epochLength)

	meta := map[string]any{}
	steps, err := Iterate(ctx, a, current, sa.Cfg.MaxIterations)
	if err != nil {
		if !interrupted(ctx, err) {
			return Result{}, err
		}
		meta["stopped"] = "context"
	}
	meta["initial_temperature"] = a.initial
	meta["temperature"] = a.temperature
	meta["restarts"] = a.restarts
	return finish(Result{Iterations: steps, Meta: meta}, a.best, a.evaluator, started), nil
}
