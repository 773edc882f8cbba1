// Package engine defines the contract with the simulation engine that
// integrates the cell dynamics of an assembled network, plus a reference
// leaky integrate-and-fire engine.
package engine

import (
	"context"
	"fmt"

	"pacenet/internal/network"
)

// Config is the per-run global state of the engine. Every run owns its own
// Config so concurrent runs never share engine state.
type Config struct {
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	VariableStep bool    `json:"variable_step" yaml:"variable_step"`
	Dt           float64 `json:"dt" yaml:"dt" validate:"gt=0"`
	StopTime     float64 `json:"stop_time" yaml:"stop_time" validate:"gt=0"`
	InitVoltage  float64 `json:"init_voltage" yaml:"init_voltage"`
}

func DefaultConfig() Config {
	return Config{
		Temperature:  27,
		VariableStep: true,
		Dt:           0.025,
		StopTime:     100,
		InitVoltage:  -65,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be > 0")
	}
	if c.StopTime <= 0 {
		return fmt.Errorf("stop time must be > 0")
	}
	if c.Dt > c.StopTime {
		return fmt.Errorf("dt %g exceeds stop time %g", c.Dt, c.StopTime)
	}
	return nil
}

// Engine runs a network to completion and stores a spike record on every
// cell.
type Engine interface {
	Name() string
	Run(ctx context.Context, cfg Config, net *network.Network) error
}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case "", LIFName:
		return NewLIF(DefaultLIFParams()), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", name)
	}
}
