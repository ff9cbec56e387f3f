package learn

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/fedtpg/mutator"
	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

// LearningAgent is the reference Learner. Each generation it tops the root
// population up to NbRoots, scores every root team over the environment,
// removes the worst RatioDeletedRoots of them and remembers the best one.
type LearningAgent struct {
	env     Environment
	params  Parameters
	graph   *tpg.Graph
	engine  *ExecutionEngine
	mutator *mutator.GraphMutator
	rng     *mutator.RNG
	logger  *zap.Logger

	bestRoot  *tpg.Vertex
	bestScore float64
}

// NewLearningAgent creates an agent and initializes its graph with one root
// team per action of env.
func NewLearningAgent(env Environment, set program.Set, params Parameters, rng *mutator.RNG, logger *zap.Logger) (*LearningAgent, error) {
	if env == nil {
		return nil, fmt.Errorf("learning agent: nil environment")
	}
	if rng == nil {
		rng = mutator.NewRNG(params.Seed)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &LearningAgent{
		env:       env,
		params:    params,
		graph:     tpg.NewGraph(),
		engine:    NewExecutionEngine(set),
		mutator:   mutator.NewGraphMutator(params.Mutation, set, env.DataSize(), rng),
		rng:       rng,
		logger:    logger.With(zap.String("component", "learning_agent")),
		bestScore: math.Inf(-1),
	}
	if err := a.mutator.InitRandomGraph(a.graph, env.NbActions()); err != nil {
		return nil, err
	}
	return a, nil
}

// Graph returns the graph owned by the agent.
func (a *LearningAgent) Graph() *tpg.Graph { return a.graph }

// BestRoot returns the best root of the last generation.
func (a *LearningAgent) BestRoot() *tpg.Vertex {
	if a.bestRoot != nil && a.bestRoot.Graph() != a.graph {
		return nil
	}
	return a.bestRoot
}

// BestScore returns the score of BestRoot.
func (a *LearningAgent) BestScore() float64 { return a.bestScore }

type rootScore struct {
	root  *tpg.Vertex
	score float64
}

// TrainOneGeneration runs populate, evaluate and decimate once. A generation
// always runs to completion; ctx is not consulted.
func (a *LearningAgent) TrainOneGeneration(_ context.Context, generation uint64) error {
	if err := a.mutator.PopulateRoots(a.graph, a.params.NbRoots); err != nil {
		return fmt.Errorf("generation %d: %w", generation, err)
	}

	roots := mutator.RootTeams(a.graph)
	scores := make([]rootScore, 0, len(roots))
	for _, root := range roots {
		score, err := a.EvaluateRoot(root, generation)
		if err != nil {
			return fmt.Errorf("generation %d: %w", generation, err)
		}
		scores = append(scores, rootScore{root: root, score: score})
	}
	if len(scores) == 0 {
		return fmt.Errorf("generation %d: %w", generation, mutator.ErrNoRootTeam)
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	a.bestRoot, a.bestScore = scores[0].root, scores[0].score

	nbDeleted := int(math.Floor(a.params.RatioDeletedRoots * float64(len(scores))))
	if nbDeleted > len(scores)-1 {
		nbDeleted = len(scores) - 1
	}
	for _, s := range scores[len(scores)-nbDeleted:] {
		if err := a.graph.RemoveVertex(s.root); err != nil {
			return fmt.Errorf("generation %d: decimate: %w", generation, err)
		}
	}

	a.logger.Debug("generation completed",
		zap.Uint64("generation", generation),
		zap.Int("roots", len(scores)),
		zap.Int("deleted", nbDeleted),
		zap.Float64("best_score", a.bestScore),
		zap.Int("vertices", a.graph.NbVertices()),
	)
	return nil
}

// EvaluateRoot returns the mean score of root over NbIterationsPerPolicyEvaluation episodes.
func (a *LearningAgent) EvaluateRoot(root *tpg.Vertex, generation uint64) (float64, error) {
	total := 0.0
	for i := 0; i < a.params.NbIterationsPerPolicyEvaluation; i++ {
		a.env.Reset(int64(generation)*int64(a.params.NbIterationsPerPolicyEvaluation) + int64(i))
		for step := 0; step < a.params.MaxNbActionsPerEval && !a.env.IsTerminal(); step++ {
			action, _, err := a.engine.ExecuteFromRoot(root, a.env.DataSources())
			if err != nil {
				return 0, err
			}
			if err := a.env.DoAction(action); err != nil {
				return 0, err
			}
		}
		total += a.env.Score()
	}
	return total / float64(a.params.NbIterationsPerPolicyEvaluation), nil
}
