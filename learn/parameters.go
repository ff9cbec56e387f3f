package learn

import (
	"errors"
	"fmt"

	"github.com/BaSui01/fedtpg/mutator"
)

// ErrInvalidParameters is returned by Parameters.Validate.
var ErrInvalidParameters = errors.New("learn: invalid parameters")

// Parameters configure one agent. The manager hands the same template to every agent.
type Parameters struct {
	NbGenerations uint64 `json:"nb_generations" yaml:"nb_generations"`
	// NbGenerationPerAggregation is the merge period. 0 disables merging.
	NbGenerationPerAggregation uint64 `json:"nb_generation_per_aggregation" yaml:"nb_generation_per_aggregation"`
	MaxNbOfConnections         int    `json:"max_nb_of_connections" yaml:"max_nb_of_connections"`

	NbRoots                         int     `json:"nb_roots" yaml:"nb_roots"`
	NbIterationsPerPolicyEvaluation int     `json:"nb_iterations_per_policy_evaluation" yaml:"nb_iterations_per_policy_evaluation"`
	MaxNbActionsPerEval             int     `json:"max_nb_actions_per_eval" yaml:"max_nb_actions_per_eval"`
	RatioDeletedRoots               float64 `json:"ratio_deleted_roots" yaml:"ratio_deleted_roots"`
	MaxParallelAgents               int     `json:"max_parallel_agents" yaml:"max_parallel_agents"`
	Seed                            int64   `json:"seed" yaml:"seed"`

	Mutation mutator.Parameters `json:"mutation" yaml:"mutation"`
}

// DefaultParameters returns a small configuration suitable for the stick game.
func DefaultParameters() Parameters {
	return Parameters{
		NbGenerations:                   20,
		NbGenerationPerAggregation:      5,
		MaxNbOfConnections:              2,
		NbRoots:                         50,
		NbIterationsPerPolicyEvaluation: 5,
		MaxNbActionsPerEval:             30,
		RatioDeletedRoots:               0.5,
		MaxParallelAgents:               4,
		Seed:                            0,
		Mutation:                        mutator.DefaultParameters(),
	}
}

// Validate checks ranges.
func (p Parameters) Validate() error {
	var errs []error
	if p.MaxNbOfConnections < 0 {
		errs = append(errs, errors.New("max_nb_of_connections must not be negative"))
	}
	if p.NbRoots < 1 {
		errs = append(errs, errors.New("nb_roots must be positive"))
	}
	if p.NbIterationsPerPolicyEvaluation < 1 {
		errs = append(errs, errors.New("nb_iterations_per_policy_evaluation must be positive"))
	}
	if p.MaxNbActionsPerEval < 1 {
		errs = append(errs, errors.New("max_nb_actions_per_eval must be positive"))
	}
	if p.RatioDeletedRoots < 0 || p.RatioDeletedRoots >= 1 {
		errs = append(errs, fmt.Errorf("ratio_deleted_roots must be in [0, 1), got %v", p.RatioDeletedRoots))
	}
	if p.MaxParallelAgents < 0 {
		errs = append(errs, errors.New("max_parallel_agents must not be negative"))
	}
	if err := p.Mutation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, errors.Join(errs...))
	}
	return nil
}

// isAggregationBoundary reports whether pending branches are merged before generation.
func (p Parameters) isAggregationBoundary(generation, aggregation uint64) bool {
	return p.NbGenerationPerAggregation > 0 &&
		generation == p.NbGenerationPerAggregation*(aggregation+1)
}
