package search

import (
	"context"
	"strings"
	"time"

	"jobshop_heuristics/dispatch"
	"jobshop_heuristics/jsp"
)

// Constructive wraps a one-shot dispatching heuristic as a Solver.
type Constructive struct {
	Name  string
	Build func(p *jsp.Problem) (*jsp.Schedule, error)
	Cfg   Config
}

func priorityNames() []string {
	names := make([]string, 0, len(dispatch.Rules()))
	for _, rule := range dispatch.Rules() {
		names = append(names, "priority-"+string(rule))
	}
	return names
}

// NewPriority builds the "priority-<rule>" solver. With Dispatch.Active set only
// Giffler-Thompson candidates compete.
func NewPriority(name string, cfg Config) (*Constructive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rule, err := dispatch.ParseRule(strings.TrimPrefix(name, "priority-"))
	if err != nil {
		return nil, err
	}
	build := func(p *jsp.Problem) (*jsp.Schedule, error) {
		return dispatch.Construct(p, rule)
	}
	if cfg.Dispatch.Active {
		build = func(p *jsp.Problem) (*jsp.Schedule, error) {
			return dispatch.ConstructActive(p, rule)
		}
	}
	return &Constructive{Name: name, Build: build, Cfg: cfg}, nil
}

func NewSequential(cfg Config) (*Constructive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Constructive{Name: "sequential", Build: dispatch.Sequential, Cfg: cfg}, nil
}

func NewBeam(cfg Config) (*Constructive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build := func(p *jsp.Problem) (*jsp.Schedule, error) {
		return dispatch.Beam(p, cfg.Beam.Width, cfg.Logger)
	}
	return &Constructive{Name: "priority-beam", Build: build, Cfg: cfg}, nil
}

func (c *Constructive) Solve(ctx context.Context, p *jsp.Problem) (Result, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	s, err := c.Build(p)
	if err != nil {
		return Result{}, err
	}
	c.Cfg.logf("%s: makespan %d", c.Name, s.Makespan())
	return finish(Result{
		Iterations: 1,
		Meta: map[string]any{
			"heuristic": c.Name,
		},
	}, s, nil, start), nil
}
