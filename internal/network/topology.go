package network

import (
	"fmt"

	"pacenet/internal/cell"
)

// Topology sizes the nucleus and its projection pattern.
type Topology struct {
	Pacemakers           int     `json:"pacemakers" yaml:"pacemakers" validate:"min=1"`
	Relays               int     `json:"relays" yaml:"relays" validate:"min=1"`
	PacemakerProjections int     `json:"pacemaker_projections" yaml:"pacemaker_projections" validate:"min=0"`
	RelayProjections     int     `json:"relay_projections" yaml:"relay_projections" validate:"min=0"`
	ConductanceMin       float64 `json:"conductance_min" yaml:"conductance_min" validate:"gt=0"`
	ConductanceMax       float64 `json:"conductance_max" yaml:"conductance_max" validate:"gtefield=ConductanceMin"`
}

func DefaultTopology() Topology {
	return Topology{
		Pacemakers:           87,
		Relays:               20,
		PacemakerProjections: 6,
		RelayProjections:     7,
		ConductanceMin:       0.5,
		ConductanceMax:       10,
	}
}

func (t Topology) Cells() int {
	return t.Pacemakers + t.Relays
}

// IsPacemaker reports whether vertex id belongs to the pacemaker population.
func (t Topology) IsPacemaker(id int) bool {
	return id >= 0 && id < t.Pacemakers
}

func (t Topology) Validate() error {
	if t.Pacemakers < 1 {
		return fmt.Errorf("pacemakers must be >= 1")
	}
	if t.Relays < 1 {
		return fmt.Errorf("relays must be >= 1")
	}
	if t.PacemakerProjections < 0 || t.PacemakerProjections > t.Pacemakers-1 {
		return fmt.Errorf("pacemaker projections must be in [0, %d]", t.Pacemakers-1)
	}
	if t.RelayProjections < 0 || t.RelayProjections > t.Relays {
		return fmt.Errorf("relay projections must be in [0, %d]", t.Relays)
	}
	if t.ConductanceMin <= 0 || t.ConductanceMax < t.ConductanceMin {
		return fmt.Errorf("conductance range must satisfy 0 < min <= max: got [%g, %g]", t.ConductanceMin, t.ConductanceMax)
	}
	return nil
}

// Biophysics holds the compartment constants for both cell variants.
type Biophysics struct {
	PacemakerSoma cell.Compartment `json:"pacemaker_soma"`
	PacemakerAxon cell.Compartment `json:"pacemaker_axon"`
	RelaySoma     cell.Compartment `json:"relay_soma"`
	RelayAxon     cell.Compartment `json:"relay_axon"`
}

// DefaultBiophysics returns the nucleus constants with the swept parameters
// (EK and both soma K conductances) applied.
func DefaultBiophysics(ek, pacemakerGK, relayGK float64) Biophysics {
	const (
		ena = 50.0
		el  = -70.0
	)
	return Biophysics{
		PacemakerSoma: cell.Compartment{EK: ek, ENa: ena, EL: el, GNa: 1.0, GK: pacemakerGK, GL: 0.0001, Length: 30},
		PacemakerAxon: cell.Compartment{EK: ek, ENa: ena, EL: el, GNa: 0.5, GK: 0.02, GL: 0.001, Length: 45},
		RelaySoma:     cell.Compartment{EK: ek, ENa: ena, EL: el, GNa: 0.75, GK: relayGK, GL: 0.0003, Length: 60},
		RelayAxon:     cell.Compartment{EK: ek, ENa: ena, EL: el, GNa: 0.5, GK: 0.05, GL: 0.001, Length: 40},
	}
}
