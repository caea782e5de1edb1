// Package search improves job shop schedules by local search over the block neighborhood.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"jobshop_heuristics/jsp"
)

type Outcome int

const (
	Unchanged Outcome = iota
	Improved
	Terminated
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Improved:
		return "improved"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Strategy performs one iteration of a search on the schedule it owns for the run. Improved
// means the best schedule seen so far got better.
type Strategy interface {
	Step(current *jsp.Schedule) (Outcome, error)
}

// Iterate runs steps until the strategy terminates, the context ends or limit steps ran
// (limit <= 0 means no limit). The context is only checked between steps. It returns the
// number of completed steps; the step that reports Terminated is not counted. A context
// error is returned as is.
func Iterate(ctx context.Context, strategy Strategy, current *jsp.Schedule, limit int) (int, error) {
	steps := 0
	for limit <= 0 || steps < limit {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		outcome, err := strategy.Step(current)
		if err != nil {
			return steps, err
		}
		if outcome == Terminated {
			break
		}
		steps++
	}
	return steps, nil
}

// interrupted reports whether err only says that the run's context ended, which stops a search
// normally.
func interrupted(ctx context.Context, err error) bool {
	cerr := ctx.Err()
	return cerr != nil && errors.Is(err, cerr)
}

type Solver interface {
	Solve(ctx context.Context, p *jsp.Problem) (Result, error)
}

type Result struct {
	// Schedule is the best schedule found.
	Schedule *jsp.Schedule
	Makespan int
	// Iterations counts completed search steps: committed moves for the hill climber,
	// restarts for the random restart climber.
	Iterations  int
	Evaluations int
	Duration    time.Duration
	Meta        map[string]any
}

// UnknownSolverError is returned for a name that is not registered.
type UnknownSolverError struct {
	Name string
}

func (e *UnknownSolverError) Error() string {
	return fmt.Sprintf("unknown solver %q", e.Name)
}

var registry = map[string]func(Config) (Solver, error){
	"hill-climber": func(cfg Config) (Solver, error) {
		return NewHillClimber(cfg)
	},
	"random-restart-hill-climber": func(cfg Config) (Solver, error) {
		return NewRandomRestart(cfg)
	},
	"tabu-search": func(cfg Config) (Solver, error) {
		return NewTabuSearch(cfg)
	},
	"simulated-annealing": func(cfg Config) (Solver, error) {
		return NewAnnealing(cfg)
	},
	"sequential": func(cfg Config) (Solver, error) {
		return NewSequential(cfg)
	},
	"priority-beam": func(cfg Config) (Solver, error) {
		return NewBeam(cfg)
	},
}

func init() {
	for _, name := range priorityNames() {
		registry[name] = func(cfg Config) (Solver, error) {
			return NewPriority(name, cfg)
		}
	}
}

// Names lists the registered solvers in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds the named solver; unknown names yield an *UnknownSolverError.
func New(name string, cfg Config) (Solver, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, &UnknownSolverError{Name: name}
	}
	return factory(cfg)
}

func finish(result Result, best *jsp.Schedule, evaluator *jsp.Evaluator, start time.Time) Result {
	result.Schedule = best
	result.Makespan = best.Makespan()
	if evaluator != nil {
		result.Evaluations = evaluator.Evaluations
	}
	result.Duration = time.Since(start)
	if result.Meta == nil {
		result.Meta = map[string]any{}
	}
	return result
}
