// Package stickgame implements the 21 sticks game against a random opponent.
//
// Players alternately remove one to three sticks. The player taking the last
// stick loses. The agent always plays first; removing more sticks than remain
// is a forbidden move that ends the game.
package stickgame

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// InitialSticks is the number of sticks on the table when a game starts.
	InitialSticks = 21
	// NbActions is the number of moves: action i removes i+1 sticks.
	NbActions = 3
	// historySize is the number of past moves exposed in the observation.
	historySize = 4
)

// Scores returned by Game.Score.
const (
	ScoreForbidden = -1.0
	ScoreLost      = 0.0
	ScoreWon       = 1.0
)

// ErrUnknownAction is returned by DoAction for an action outside [0, NbActions).
var ErrUnknownAction = errors.New("stickgame: unknown action")

// Game is one table. It is not safe for concurrent use; every agent owns its own.
type Game struct {
	remaining int
	history   [historySize]int
	won       bool
	forbidden bool
	rng       *rand.Rand
}

// New returns a game ready to play with an opponent seeded by seed.
func New(seed int64) *Game {
	g := &Game{}
	g.Reset(seed)
	return g
}

// NbActions returns the number of actions of the game.
func (g *Game) NbActions() int { return NbActions }

// DataSize returns the length of the slice returned by DataSources.
func (g *Game) DataSize() int { return 1 + historySize + NbActions }

// Reset puts every stick back and reseeds the opponent.
func (g *Game) Reset(seed int64) {
	g.remaining = InitialSticks
	g.history = [historySize]int{}
	g.won = false
	g.forbidden = false
	g.rng = rand.New(rand.NewSource(seed))
}

// DataSources returns the observation: remaining sticks, the last moves of
// both players (most recent first, 0 when not played yet) and the hints 1, 2, 3.
func (g *Game) DataSources() []float64 {
	data := make([]float64, 0, g.DataSize())
	data = append(data, float64(g.remaining))
	for _, m := range g.history {
		data = append(data, float64(m))
	}
	for i := 1; i <= NbActions; i++ {
		data = append(data, float64(i))
	}
	return data
}

// Remaining returns the number of sticks left.
func (g *Game) Remaining() int { return g.remaining }

// DoAction plays the agent move, then the opponent answer when the game goes on.
func (g *Game) DoAction(id uint64) error {
	if id >= NbActions {
		return fmt.Errorf("%w: %d", ErrUnknownAction, id)
	}
	if g.IsTerminal() {
		return nil
	}

	take := int(id) + 1
	if take > g.remaining {
		g.forbidden = true
		return nil
	}
	g.play(take)
	if g.remaining == 0 {
		return nil
	}

	// the opponent never plays a forbidden move
	maxTake := NbActions
	if g.remaining < maxTake {
		maxTake = g.remaining
	}
	g.play(1 + g.rng.Intn(maxTake))
	if g.remaining == 0 {
		g.won = true
	}
	return nil
}

func (g *Game) play(take int) {
	g.remaining -= take
	copy(g.history[1:], g.history[:historySize-1])
	g.history[0] = take
}

// IsTerminal reports whether the game is over.
func (g *Game) IsTerminal() bool { return g.forbidden || g.remaining == 0 }

// Score returns ScoreWon, ScoreLost or ScoreForbidden once the game is over, ScoreLost before.
func (g *Game) Score() float64 {
	switch {
	case g.forbidden:
		return ScoreForbidden
	case g.won:
		return ScoreWon
	default:
		return ScoreLost
	}
}
