package search

import (
	"fmt"
	"log"
)

type TabuConfig struct {
	// Tenure is the number of iterations a swapped pair stays forbidden. 0 derives it from the
	// instance size.
	Tenure int `yaml:"tenure"`
}

type AnnealConfig struct {
	// StartAcceptanceRatio is the share of worsening moves accepted at the initial temperature.
	StartAcceptanceRatio float64 `yaml:"start_acceptance_ratio"`
	// Delta controls the cooling speed; larger values cool faster.
	Delta              float64 `yaml:"delta"`
	TemperatureSamples int     `yaml:"temperature_samples"`
}

type BeamConfig struct {
	Width int `yaml:"width"`
}

type DispatchConfig struct {
	// Active restricts dispatching rules to Giffler-Thompson candidates.
	Active bool `yaml:"active"`
}

type Config struct {
	Seed uint64 `yaml:"seed"`
	// MaxIterations caps the steps of a search (restarts for the random restart climber).
	// 0 runs until the context ends or the search converges.
	MaxIterations int `yaml:"max_iterations"`

	Tabu     TabuConfig     `yaml:"tabu"`
	Anneal   AnnealConfig   `yaml:"anneal"`
	Beam     BeamConfig     `yaml:"beam"`
	Dispatch DispatchConfig `yaml:"dispatch"`

	Logger *log.Logger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Anneal: AnnealConfig{
			TemperatureSamples: 30,
		},
		Beam: BeamConfig{
			Width: 16,
		},
	}
}

func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be >= 0 (got %d)", c.MaxIterations)
	}
	if c.Tabu.Tenure < 0 {
		return fmt.Errorf("tabu.tenure must be >= 0 (got %d)", c.Tabu.Tenure)
	}
	if c.Beam.Width < 0 {
		return fmt.Errorf("beam.width must be >= 0 (got %d)", c.Beam.Width)
	}
	if c.Anneal.TemperatureSamples < 0 {
		return fmt.Errorf("anneal.temperature_samples must be >= 0 (got %d)", c.Anneal.TemperatureSamples)
	}
	return nil
}

// Validate checks the parameters simulated annealing cannot run without.
func (c AnnealConfig) Validate() error {
	if c.StartAcceptanceRatio <= 0 || c.StartAcceptanceRatio >= 1 {
		return fmt.Errorf("anneal.start_acceptance_ratio must lie in (0,1) (got %g)", c.StartAcceptanceRatio)
	}
	if c.Delta <= 0 {
		return fmt.Errorf("anneal.delta must be > 0 (got %g)", c.Delta)
	}
	if c.TemperatureSamples <= 0 {
		return fmt.Errorf("anneal.temperature_samples must be > 0 (got %d)", c.TemperatureSamples)
	}
	return nil
}

func (c Config) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
