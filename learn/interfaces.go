package learn

import (
	"context"

	"github.com/BaSui01/fedtpg/tpg"
)

// Environment is a learning environment with a fixed action space.
// Implementations are used by a single agent and need not be safe for concurrent use.
type Environment interface {
	// NbActions returns the size of the action space. Action IDs are 0..NbActions()-1.
	NbActions() int
	// DataSize returns the length of the observation returned by DataSources.
	DataSize() int
	// Reset starts a new episode.
	Reset(seed int64)
	// DataSources returns the current observation.
	DataSources() []float64
	// DoAction applies an action to the environment.
	DoAction(actionID uint64) error
	// Score returns the score of the current episode.
	Score() float64
	// IsTerminal reports whether the episode is over.
	IsTerminal() bool
}

// Learner evolves a single graph.
type Learner interface {
	Graph() *tpg.Graph
	TrainOneGeneration(ctx context.Context, generation uint64) error
	// BestRoot returns the best root found so far, or nil before the first generation.
	BestRoot() *tpg.Vertex
}

// LearnerFactory builds the learner of the agent with the given id.
type LearnerFactory func(id AgentID) (Learner, error)

// Recorder observes training progress. It never influences scheduling.
type Recorder interface {
	GenerationCompleted(agent AgentID, generation uint64, bestScore float64)
	BranchMerged(agent AgentID, vertices, edges int)
	BranchesExchanged(deliveries int)
	GraphSize(agent AgentID, vertices, edges int)
}

// Scorer is implemented by learners able to report the score of their best root.
type Scorer interface {
	BestScore() float64
}

// Delivery is one best-root reference handed from a sender to a receiver.
type Delivery struct {
	Generation uint64
	Sender     AgentID
	Receiver   AgentID
	Vertices   int
	Edges      int
}

// ExchangeJournal keeps a durable log of deliveries.
type ExchangeJournal interface {
	Record(ctx context.Context, deliveries []Delivery) error
}

// Snapshotter persists the graphs of the fleet after a merge phase.
type Snapshotter interface {
	Save(ctx context.Context, generation uint64, agent AgentID, g *tpg.Graph) error
}

type nopRecorder struct{}

func (nopRecorder) GenerationCompleted(AgentID, uint64, float64) {}
func (nopRecorder) BranchMerged(AgentID, int, int)               {}
func (nopRecorder) BranchesExchanged(int)                        {}
func (nopRecorder) GraphSize(AgentID, int, int)                  {}
