package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobshop_heuristics/jsp"
	"jobshop_heuristics/search"
)

type options struct {
	instance string
	catalog  string
	random   string
	solver   string
	config   string
	timeout  int
	verbose  bool

	seed          uint64
	maxIterations int
	tabuTenure    int
	beamWidth     int
	active        bool
	saRatio       float64
	saDelta       float64
}

func main() {
	if err := rootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "jobshop",
		Short: "Find short job shop schedules with dispatching rules and local search",
		Long: `jobshop reads an instance in the standard JSSP format (a "jobs machines" line, then
one line of machine/duration pairs per job), runs the selected solver and prints the
makespan followed by the start times of every job's operations.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	bindFlags(cmd, opts)
	cmd.AddCommand(solversCmd(stdout))
	return cmd
}

func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVar(&opts.instance, "instance", "", "Instance file, or instance name with --catalog")
	flags.StringVar(&opts.catalog, "catalog", "", "JSPLIB checkout holding instances.json")
	flags.StringVar(&opts.random, "random", "", "Generate a random JOBSxMACHINES instance instead of reading one")
	flags.StringVar(&opts.solver, "solver", "tabu-search", "Solver name (see the solvers command)")
	flags.StringVar(&opts.config, "config", "", "YAML parameter file")
	flags.IntVar(&opts.timeout, "timeout", 10, "Time budget in seconds, 0 for none")
	flags.BoolVar(&opts.verbose, "verbose", false, "Log the search trajectory to stderr")
	flags.Uint64Var(&opts.seed, "seed", 0, "Random seed")
	flags.IntVar(&opts.maxIterations, "max-iterations", 0, "Iteration cap, 0 for none")
	flags.IntVar(&opts.tabuTenure, "tabu-tenure", 0, "Tabu tenure, 0 derives it from the instance size")
	flags.IntVar(&opts.beamWidth, "beam-width", 0, "Width of the priority-beam solver")
	flags.BoolVar(&opts.active, "active", false, "Restrict dispatching rules to Giffler-Thompson candidates")
	flags.Float64Var(&opts.saRatio, "sa-start-acceptance-ratio", 0, "Share of worsening moves accepted at the start, in (0,1)")
	flags.Float64Var(&opts.saDelta, "sa-delta", 0, "Cooling rate of simulated annealing, > 0")
}

func solversCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "solvers",
		Short: "List the available solvers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range search.Names() {
				fmt.Fprintln(stdout, name)
			}
			return nil
		},
	}
}

func run(cmd *cobra.Command, opts *options, stdout, stderr io.Writer) error {
	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logger = log.New(stderr, "jobshop ", log.Lmicroseconds)
	}
	solver, err := search.New(opts.solver, cfg)
	if err != nil {
		return err
	}
	instance, err := loadInstance(opts, cfg.Seed)
	if err != nil {
		return err
	}
	problem, err := jsp.NewProblem(instance)
	if err != nil {
		return fmt.Errorf("%s: %w", instance.Name, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.timeout)*time.Second)
		defer cancel()
	}
	result, err := solver.Solve(ctx, problem)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.solver, err)
	}
	if err := jsp.Verify(problem, result.Schedule.Starts()); err != nil {
		return fmt.Errorf("%s produced an invalid schedule: %w", opts.solver, err)
	}
	if err := writeReport(stdout, result.Schedule); err != nil {
		return err
	}
	writeSummary(stderr, opts.solver, problem, result)
	return nil
}

// buildConfig layers defaults, the parameter file and explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command, opts *options) (search.Config, error) {
	cfg := search.DefaultConfig()
	if opts.config != "" {
		if err := loadParams(opts.config, &cfg); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("max-iterations") {
		cfg.MaxIterations = opts.maxIterations
	}
	if flags.Changed("tabu-tenure") {
		cfg.Tabu.Tenure = opts.tabuTenure
	}
	if flags.Changed("beam-width") {
		cfg.Beam.Width = opts.beamWidth
	}
	if flags.Changed("active") {
		cfg.Dispatch.Active = opts.active
	}
	if flags.Changed("sa-start-acceptance-ratio") {
		cfg.Anneal.StartAcceptanceRatio = opts.saRatio
	}
	if flags.Changed("sa-delta") {
		cfg.Anneal.Delta = opts.saDelta
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if opts.solver == "simulated-annealing" {
		if err := cfg.Anneal.Validate(); err != nil {
			return cfg, fmt.Errorf("simulated-annealing needs --sa-start-acceptance-ratio and --sa-delta: %w", err)
		}
	}
	return cfg, nil
}

func loadInstance(opts *options, seed uint64) (*jsp.Instance, error) {
	switch {
	case opts.random != "":
		jobs, machines, err := parseShape(opts.random)
		if err != nil {
			return nil, err
		}
		return jsp.LoadRandom(jobs, machines, search.NewRand(seed)), nil
	case opts.catalog != "":
		instances, err := jsp.LoadCatalog(opts.catalog)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		for _, instance := range instances {
			if instance.Name == opts.instance {
				return instance, nil
			}
		}
		return nil, fmt.Errorf("instance %q not in catalog %s", opts.instance, opts.catalog)
	case opts.instance != "":
		return jsp.LoadFile(opts.instance)
	default:
		return nil, fmt.Errorf("one of --instance or --random is required")
	}
}

func parseShape(shape string) (int, int, error) {
	jobs, machines, ok := strings.Cut(strings.ToLower(shape), "x")
	if !ok {
		return 0, 0, fmt.Errorf("random shape %q: expected JOBSxMACHINES", shape)
	}
	j, err := strconv.Atoi(jobs)
	if err != nil || j <= 0 {
		return 0, 0, fmt.Errorf("random shape %q: bad job count", shape)
	}
	m, err := strconv.Atoi(machines)
	if err != nil || m <= 0 {
		return 0, 0, fmt.Errorf("random shape %q: bad machine count", shape)
	}
	return j, m, nil
}
