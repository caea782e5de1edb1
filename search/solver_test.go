package search

import (
	"context"
	"errors"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"jobshop_heuristics/dispatch"
	"jobshop_heuristics/jsp"
)

func randomProblem(t *testing.T, jobs, machines int, seed uint64) *jsp.Problem {
	t.Helper()
	p, err := jsp.NewProblem(jsp.LoadRandom(jobs, machines, rand.New(rand.NewPCG(seed, seed))))
	if err != nil {
		t.Fatalf("random problem: %v", err)
	}
	return p
}

func twoByTwo(t *testing.T) *jsp.Problem {
	t.Helper()
	p, err := jsp.NewProblem(&jsp.Instance{
		Name: "2x2", Jobs: 2, Machines: 2,
		Work: [][]jsp.WorkPair{
			{{Machine: 0, Delay: 3}, {Machine: 1, Delay: 2}},
			{{Machine: 1, Delay: 2}, {Machine: 0, Delay: 3}},
		},
	})
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.MaxIterations = 40
	cfg.Anneal.StartAcceptanceRatio = 0.8
	cfg.Anneal.Delta = 0.1
	cfg.Beam.Width = 4
	return cfg
}

func assertResult(t *testing.T, name string, p *jsp.Problem, result Result) {
	t.Helper()
	if result.Schedule == nil {
		t.Fatalf("%s: no schedule", name)
	}
	if err := jsp.Verify(p, result.Schedule.Starts()); err != nil {
		t.Fatalf("%s: infeasible result: %v", name, err)
	}
	if result.Makespan != result.Schedule.Makespan() {
		t.Fatalf("%s: reported makespan %d, schedule says %d", name, result.Makespan, result.Schedule.Makespan())
	}
	if result.Makespan < p.LowerBound() {
		t.Fatalf("%s: makespan %d below lower bound %d", name, result.Makespan, p.LowerBound())
	}
}

func TestHillClimberIsMonotone(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		p := randomProblem(t, 8, 5, seed)
		current, err := dispatch.Random(p, rand.New(rand.NewPCG(seed, 99)))
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		c := &climber{evaluator: jsp.NewEvaluator(p)}
		previous := current.Makespan()
		for step := 0; ; step++ {
			if step > 10000 {
				t.Fatalf("seed %d: no local optimum after %d steps", seed, step)
			}
			outcome, err := c.Step(current)
			if err != nil {
				t.Fatalf("step: %v", err)
			}
			if outcome == Terminated {
				break
			}
			if current.Makespan() >= previous {
				t.Fatalf("seed %d: makespan went from %d to %d", seed, previous, current.Makespan())
			}
			previous = current.Makespan()
		}
		if current.Makespan() != previous {
			t.Fatalf("seed %d: terminating step changed the schedule", seed)
		}
		evaluator := jsp.NewEvaluator(p)
		for m := range jsp.Moves(current) {
			makespan, err := evaluator.Makespan(current, m)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if makespan < current.Makespan() {
				t.Fatalf("seed %d: move %v still improves %d to %d", seed, m, current.Makespan(), makespan)
			}
		}
	}
}

func TestHillClimberOnTwoByTwo(t *testing.T) {
	p := twoByTwo(t)
	solver, err := NewHillClimber(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	result, err := solver.Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	assertResult(t, "hill-climber", p, result)
	if result.Makespan != 6 {
		t.Errorf("expected makespan 6, got %d", result.Makespan)
	}
}

func TestHillClimberCountsCommittedMoves(t *testing.T) {
	solver, _ := NewHillClimber(DefaultConfig())
	for seed := uint64(1); seed <= 10; seed++ {
		p := randomProblem(t, 6, 4, seed)
		result, err := solver.Solve(context.Background(), p)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		initial := result.Meta["initial_makespan"].(int)
		if (result.Iterations == 0) != (initial == result.Makespan) {
			t.Errorf("seed %d: %d iterations from %d to %d", seed, result.Iterations, initial, result.Makespan)
		}
		if result.Iterations > initial-result.Makespan {
			t.Errorf("seed %d: %d iterations but the makespan only dropped by %d", seed, result.Iterations, initial-result.Makespan)
		}
	}
	single, err := jsp.NewProblem(&jsp.Instance{Jobs: 1, Machines: 2, Work: [][]jsp.WorkPair{{{Machine: 0, Delay: 2}, {Machine: 1, Delay: 3}}}})
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	result, err := solver.Solve(context.Background(), single)
	if err != nil || result.Iterations != 0 {
		t.Errorf("expected no iterations on a job without moves, got %d (%v)", result.Iterations, err)
	}
}

func TestHillClimberIgnoresCancellation(t *testing.T) {
	p := randomProblem(t, 6, 4, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	solver, _ := NewHillClimber(DefaultConfig())
	cancelled, err := solver.Solve(ctx, p)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	full, _ := solver.Solve(context.Background(), p)
	if cancelled.Makespan != full.Makespan {
		t.Errorf("expected the same local optimum, got %d and %d", cancelled.Makespan, full.Makespan)
	}
}

func TestTabuRespectsTenure(t *testing.T) {
	p := randomProblem(t, 10, 5, 11)
	current, err := dispatch.Random(p, NewRand(3))
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	ts := &tabuSearch{
		evaluator: jsp.NewEvaluator(p),
		tabu:      newTabuList(),
		tenure:    TaillardTenure(p.Jobs, p.Machines),
		best:      current.Clone(),
	}
	for step := 0; step < 300; step++ {
		before := maps.Clone(ts.tabu.expiry)
		bestBefore := ts.best.Makespan()
		outcome, err := ts.Step(current)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if outcome == Terminated {
			break
		}
		key := ts.last.Key()
		if expiry, ok := before[key]; ok && ts.iteration <= expiry {
			if current.Makespan() >= bestBefore {
				t.Fatalf("iteration %d: tabu move %v applied without improving best %d", ts.iteration, ts.last, bestBefore)
			}
			if !ts.aspirated {
				t.Fatalf("iteration %d: tabu move %v not flagged as aspirated", ts.iteration, ts.last)
			}
		}
		if expiry := ts.tabu.expiry[key]; expiry != ts.iteration+ts.tenure {
			t.Fatalf("iteration %d: expected expiry %d, got %d", ts.iteration, ts.iteration+ts.tenure, expiry)
		}
		if ts.best.Makespan() > bestBefore {
			t.Fatalf("best got worse: %d -> %d", bestBefore, ts.best.Makespan())
		}
		if err := jsp.Verify(p, current.Starts()); err != nil {
			t.Fatalf("iteration %d: %v", ts.iteration, err)
		}
	}
}

func TestTabuStopsWithoutAdmissibleMoves(t *testing.T) {
	single, err := jsp.NewProblem(&jsp.Instance{Jobs: 1, Machines: 2, Work: [][]jsp.WorkPair{{{Machine: 0, Delay: 2}, {Machine: 1, Delay: 3}}}})
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	current, err := dispatch.Sequential(single)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	ts := &tabuSearch{evaluator: jsp.NewEvaluator(single), tabu: newTabuList(), tenure: 1, best: current.Clone()}
	if outcome, err := ts.Step(current); err != nil || outcome != Terminated {
		t.Errorf("expected termination on an empty neighborhood, got %v (%v)", outcome, err)
	}

	// two jobs on one machine: the only move keeps the makespan at 5
	p, err := jsp.NewProblem(&jsp.Instance{Jobs: 2, Machines: 1, Work: [][]jsp.WorkPair{
		{{Machine: 0, Delay: 2}},
		{{Machine: 0, Delay: 3}},
	}})
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	current, err = dispatch.Sequential(p)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	moves := jsp.CollectMoves(current)
	if len(moves) != 1 {
		t.Fatalf("expected a single move, got %v", moves)
	}
	ts = &tabuSearch{evaluator: jsp.NewEvaluator(p), tabu: newTabuList(), tenure: 1, best: current.Clone()}
	ts.tabu.Add(moves[0].Key(), 10)
	order := current.MachineOrder(0)
	if outcome, err := ts.Step(current); err != nil || outcome != Terminated {
		t.Fatalf("expected termination when the only move is tabu, got %v (%v)", outcome, err)
	}
	if !slices.Equal(order, current.MachineOrder(0)) {
		t.Errorf("expected the schedule untouched, got %v", current.MachineOrder(0))
	}

	solver, _ := NewTabuSearch(testConfig())
	result, err := solver.Solve(context.Background(), single)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if result.Iterations != 0 || result.Makespan != 5 {
		t.Errorf("expected an immediate stop at makespan 5, got %d iterations, makespan %d", result.Iterations, result.Makespan)
	}
}

func TestTabuList(t *testing.T) {
	list := newTabuList()
	key := jsp.Move{Machine: 1, First: 4, Second: 2}.Key()
	list.Add(key, 5)
	if !list.IsTabu(key, 5) {
		t.Error("expected key tabu at its expiry iteration")
	}
	if list.IsTabu(key, 6) {
		t.Error("expected key free after its expiry")
	}
	if list.IsTabu(jsp.MoveKey{Machine: 0, A: 2, B: 4}, 1) {
		t.Error("expected other machine to be free")
	}
	list.prune(6)
	if len(list.expiry) != 0 {
		t.Errorf("expected pruned list, got %v", list.expiry)
	}
}

func TestTaillardTenure(t *testing.T) {
	cases := []struct{ jobs, machines, tenure int }{
		{1, 1, 1},
		{2, 2, 2},
		{10, 10, 12},
	}
	for _, c := range cases {
		if got := TaillardTenure(c.jobs, c.machines); got != c.tenure {
			t.Errorf("%dx%d: expected tenure %d, got %d", c.jobs, c.machines, c.tenure, got)
		}
	}
}

func TestAcceptance(t *testing.T) {
	for _, c := range []struct{ delta, temperature float64 }{{1, 1}, {5, 2}, {30, 100}, {0.5, 1e-3}} {
		want := math.Exp(-c.delta / c.temperature)
		if got := Acceptance(c.delta, c.temperature); math.Abs(got-want) > 1e-12 {
			t.Errorf("Acceptance(%g, %g) = %g, expected %g", c.delta, c.temperature, got, want)
		}
	}
	if Acceptance(0, 1) != 1 || Acceptance(-3, 1) != 1 {
		t.Error("expected improving and neutral moves to be always accepted")
	}
	if Acceptance(2, 0) != 0 {
		t.Error("expected no worsening move accepted at zero temperature")
	}
}

func TestAnnealingBestIsMonotone(t *testing.T) {
	p := randomProblem(t, 6, 4, 21)
	cfg := testConfig()
	a := newAnnealer(p, NewRand(cfg.Seed), cfg)
	current, err := a.start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.temperature <= 0 {
		t.Fatalf("expected positive initial temperature, got %g", a.temperature)
	}
	a.best = current.Clone()
	best := a.best.Makespan()
	for step := 0; step < 2000; step++ {
		outcome, err := a.Step(current)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if a.best.Makespan() > best {
			t.Fatalf("step %d: best went from %d to %d", step, best, a.best.Makespan())
		}
		if (a.best.Makespan() < best) != (outcome == Improved) {
			t.Fatalf("step %d: outcome %v does not match best %d -> %d", step, outcome, best, a.best.Makespan())
		}
		if current.Makespan() < a.best.Makespan() {
			t.Fatalf("step %d: current %d beats best %d", step, current.Makespan(), a.best.Makespan())
		}
		best = a.best.Makespan()
	}
	if err := jsp.Verify(p, a.best.Starts()); err != nil {
		t.Fatalf("best is infeasible: %v", err)
	}
}

func TestCoolingLowersTemperature(t *testing.T) {
	a := &annealer{params: AnnealConfig{Delta: 0.5}, temperature: 100}
	a.accepted = []int{100, 110, 90, 105}
	if !a.cool(95) {
		t.Fatal("expected the run to keep going")
	}
	if a.temperature >= 100 || a.temperature <= 0 {
		t.Errorf("expected temperature in (0,100), got %g", a.temperature)
	}
	if !slices.Equal(a.accepted, []int{95}) || a.epochSteps != 0 {
		t.Errorf("expected a fresh epoch starting at 95, got %v", a.accepted)
	}
	a.accepted = []int{95, 95, 95}
	if a.cool(95) {
		t.Error("expected a frozen run when accepted costs do not vary")
	}
}

func TestDeterminism(t *testing.T) {
	p := randomProblem(t, 6, 4, 5)
	cfg := testConfig()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			solver, err := New(name, cfg)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			a, err := solver.Solve(context.Background(), p)
			if err != nil {
				t.Fatalf("solve: %v", err)
			}
			b, err := solver.Solve(context.Background(), p)
			if err != nil {
				t.Fatalf("solve: %v", err)
			}
			assertResult(t, name, p, a)
			if a.Makespan != b.Makespan || !slices.Equal(a.Schedule.Starts(), b.Schedule.Starts()) {
				t.Errorf("expected identical results, got %d and %d", a.Makespan, b.Makespan)
			}
			if a.Iterations != b.Iterations {
				t.Errorf("expected identical iteration counts, got %d and %d", a.Iterations, b.Iterations)
			}
		})
	}
}

func TestSolversNeverBeatTheOptimum(t *testing.T) {
	p := randomProblem(t, 3, 3, 8)
	exact, err := dispatch.Exhaustive(p, nil)
	if err != nil {
		t.Fatalf("exhaustive: %v", err)
	}
	cfg := testConfig()
	for _, name := range Names() {
		solver, err := New(name, cfg)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		result, err := solver.Solve(context.Background(), p)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		assertResult(t, name, p, result)
		if result.Makespan < exact.Makespan() {
			t.Errorf("%s: makespan %d below the optimum %d", name, result.Makespan, exact.Makespan())
		}
	}
}

func TestCancelledSearchStillReports(t *testing.T) {
	p := randomProblem(t, 5, 3, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := testConfig()
	cfg.MaxIterations = 0
	for _, name := range []string{"tabu-search", "simulated-annealing", "random-restart-hill-climber"} {
		solver, err := New(name, cfg)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		result, err := solver.Solve(ctx, p)
		if err != nil {
			t.Fatalf("%s: expected a result, got %v", name, err)
		}
		assertResult(t, name, p, result)
		if result.Meta["stopped"] != "context" {
			t.Errorf("%s: expected stop by context, got %v", name, result.Meta)
		}
	}
	rr, _ := NewRandomRestart(cfg)
	result, _ := rr.Solve(ctx, p)
	if result.Iterations != 1 {
		t.Errorf("expected exactly one restart, got %d", result.Iterations)
	}
}

func TestRandomRestartHonoursLimit(t *testing.T) {
	p := randomProblem(t, 5, 3, 4)
	for _, limit := range []int{1, 3} {
		cfg := testConfig()
		cfg.MaxIterations = limit
		solver, _ := NewRandomRestart(cfg)
		result, err := solver.Solve(context.Background(), p)
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		if result.Iterations != limit {
			t.Errorf("expected %d restarts, got %d", limit, result.Iterations)
		}
		if n := result.Meta["distinct_optima"].(int); n < 1 || n > limit {
			t.Errorf("expected between 1 and %d distinct optima, got %d", limit, n)
		}
	}
}

func TestUnknownSolver(t *testing.T) {
	_, err := New("genetic", DefaultConfig())
	var unknown *UnknownSolverError
	if !errors.As(err, &unknown) || unknown.Name != "genetic" {
		t.Fatalf("expected UnknownSolverError, got %v", err)
	}
}

func TestInvalidProblem(t *testing.T) {
	cfg := testConfig()
	for _, name := range Names() {
		solver, err := New(name, cfg)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for _, p := range []*jsp.Problem{nil, {Jobs: 1, JobOps: [][]int{{0}}}} {
			_, err = solver.Solve(context.Background(), p)
			var invalid *jsp.InvalidProblemError
			if !errors.As(err, &invalid) {
				t.Errorf("%s: expected InvalidProblemError, got %v", name, err)
			}
		}
	}
}

func TestConfigValidation(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if _, err := New("simulated-annealing", DefaultConfig()); err == nil {
		t.Error("expected annealing to require its parameters")
	}
	bad := []func(*Config){
		func(c *Config) { c.MaxIterations = -1 },
		func(c *Config) { c.Tabu.Tenure = -2 },
		func(c *Config) { c.Beam.Width = -1 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	anneal := []AnnealConfig{
		{StartAcceptanceRatio: 1, Delta: 0.1, TemperatureSamples: 30},
		{StartAcceptanceRatio: 0.5, Delta: 0, TemperatureSamples: 30},
		{StartAcceptanceRatio: 0.5, Delta: 0.1, TemperatureSamples: 0},
	}
	for _, c := range anneal {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", c)
		}
	}
}

type counter struct {
	steps, stopAt int
}

func (c *counter) Step(current *jsp.Schedule) (Outcome, error) {
	c.steps++
	if c.steps == c.stopAt {
		return Terminated, nil
	}
	return Unchanged, nil
}

func TestIterate(t *testing.T) {
	c := &counter{stopAt: 100}
	steps, err := Iterate(context.Background(), c, nil, 10)
	if err != nil || steps != 10 {
		t.Fatalf("expected 10 steps, got %d (%v)", steps, err)
	}
	c = &counter{stopAt: 3}
	if steps, _ := Iterate(context.Background(), c, nil, 0); steps != 2 || c.steps != 3 {
		t.Errorf("expected 2 counted steps before the terminating one, got %d of %d", steps, c.steps)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps, err = Iterate(ctx, &counter{}, nil, 0)
	if steps != 0 || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation before the first step, got %d (%v)", steps, err)
	}
}
