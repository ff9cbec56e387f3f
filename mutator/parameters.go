package mutator

import (
	"errors"
	"fmt"
)

// ProgramParameters drive random program creation and program mutation.
type ProgramParameters struct {
	MaxProgramSize    int     `json:"max_program_size" yaml:"max_program_size"`
	NbRegisters       int     `json:"nb_registers" yaml:"nb_registers"`
	NbConstants       int     `json:"nb_constants" yaml:"nb_constants"`
	MinConstValue     float64 `json:"min_const_value" yaml:"min_const_value"`
	MaxConstValue     float64 `json:"max_const_value" yaml:"max_const_value"`
	PDelete           float64 `json:"p_delete" yaml:"p_delete"`
	PAdd              float64 `json:"p_add" yaml:"p_add"`
	PMutate           float64 `json:"p_mutate" yaml:"p_mutate"`
	PSwap             float64 `json:"p_swap" yaml:"p_swap"`
	PConstantMutation float64 `json:"p_constant_mutation" yaml:"p_constant_mutation"`
}

// GraphParameters drive team-level mutations.
type GraphParameters struct {
	MaxInitOutgoingEdges     int     `json:"max_init_outgoing_edges" yaml:"max_init_outgoing_edges"`
	MaxOutgoingEdges         int     `json:"max_outgoing_edges" yaml:"max_outgoing_edges"`
	PEdgeDeletion            float64 `json:"p_edge_deletion" yaml:"p_edge_deletion"`
	PEdgeAddition            float64 `json:"p_edge_addition" yaml:"p_edge_addition"`
	PProgramMutation         float64 `json:"p_program_mutation" yaml:"p_program_mutation"`
	PEdgeDestinationChange   float64 `json:"p_edge_destination_change" yaml:"p_edge_destination_change"`
	PEdgeDestinationIsAction float64 `json:"p_edge_destination_is_action" yaml:"p_edge_destination_is_action"`
}

// Parameters groups every mutation knob.
type Parameters struct {
	Graph   GraphParameters   `json:"graph" yaml:"graph"`
	Program ProgramParameters `json:"program" yaml:"program"`
}

// DefaultParameters returns the values used by the stick-game example.
func DefaultParameters() Parameters {
	return Parameters{
		Graph: GraphParameters{
			MaxInitOutgoingEdges:     3,
			MaxOutgoingEdges:         5,
			PEdgeDeletion:            0.7,
			PEdgeAddition:            0.7,
			PProgramMutation:         0.2,
			PEdgeDestinationChange:   0.1,
			PEdgeDestinationIsAction: 0.5,
		},
		Program: ProgramParameters{
			MaxProgramSize:    20,
			NbRegisters:       8,
			NbConstants:       5,
			MinConstValue:     -10,
			MaxConstValue:     10,
			PDelete:           0.5,
			PAdd:              0.5,
			PMutate:           1.0,
			PSwap:             1.0,
			PConstantMutation: 0.5,
		},
	}
}

// ErrInvalidParameters is returned by Parameters.Validate.
var ErrInvalidParameters = errors.New("mutator: invalid parameters")

// Validate checks bounds and probabilities.
func (p Parameters) Validate() error {
	var errs []error
	if p.Graph.MaxInitOutgoingEdges < 1 {
		errs = append(errs, errors.New("max_init_outgoing_edges must be positive"))
	}
	if p.Graph.MaxOutgoingEdges < p.Graph.MaxInitOutgoingEdges {
		errs = append(errs, errors.New("max_outgoing_edges must be >= max_init_outgoing_edges"))
	}
	if p.Program.MaxProgramSize < 1 {
		errs = append(errs, errors.New("max_program_size must be positive"))
	}
	if p.Program.NbRegisters < 1 {
		errs = append(errs, errors.New("nb_registers must be positive"))
	}
	if p.Program.NbConstants < 0 {
		errs = append(errs, errors.New("nb_constants must not be negative"))
	}
	if p.Program.MaxConstValue < p.Program.MinConstValue {
		errs = append(errs, errors.New("max_const_value must be >= min_const_value"))
	}

	probabilities := []struct {
		name  string
		value float64
	}{
		{"p_edge_deletion", p.Graph.PEdgeDeletion},
		{"p_edge_addition", p.Graph.PEdgeAddition},
		{"p_program_mutation", p.Graph.PProgramMutation},
		{"p_edge_destination_change", p.Graph.PEdgeDestinationChange},
		{"p_edge_destination_is_action", p.Graph.PEdgeDestinationIsAction},
		{"p_delete", p.Program.PDelete},
		{"p_add", p.Program.PAdd},
		{"p_mutate", p.Program.PMutate},
		{"p_swap", p.Program.PSwap},
		{"p_constant_mutation", p.Program.PConstantMutation},
	}
	for _, prob := range probabilities {
		if prob.value < 0 || prob.value > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", prob.name, prob.value))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, errors.Join(errs...))
	}
	return nil
}
