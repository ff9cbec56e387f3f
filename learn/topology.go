package learn

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BaSui01/fedtpg/mutator"
)

// AgentID is the stable handle of an agent inside its manager.
type AgentID int

// ErrUnknownAgent is returned for a handle outside the fleet.
var ErrUnknownAgent = errors.New("learn: unknown agent")

// Topology is the directed send relation of the fleet: a connection
// from -> to lets from send its best root to to. Duplicate connections
// coalesce. It is built before training and read-only afterwards.
type Topology struct {
	successors []map[AgentID]struct{}
	guaranteed []int
}

// NewTopology creates a topology over n agents without any connection.
func NewTopology(n int) *Topology {
	t := &Topology{
		successors: make([]map[AgentID]struct{}, n),
		guaranteed: make([]int, n),
	}
	for i := range t.successors {
		t.successors[i] = make(map[AgentID]struct{})
	}
	return t
}

// NbAgents returns the size of the fleet.
func (t *Topology) NbAgents() int { return len(t.successors) }

func (t *Topology) valid(id AgentID) bool {
	return id >= 0 && int(id) < len(t.successors)
}

// Connect registers from -> to, and to -> from when bothDirections is set.
func (t *Topology) Connect(from, to AgentID, bothDirections bool) error {
	if !t.valid(from) {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, from)
	}
	if !t.valid(to) {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, to)
	}
	t.successors[from][to] = struct{}{}
	if bothDirections {
		t.successors[to][from] = struct{}{}
	}
	return nil
}

// Successors returns the agents id may send to, in ascending order.
func (t *Topology) Successors(id AgentID) []AgentID {
	if !t.valid(id) {
		return nil
	}
	out := make([]AgentID, 0, len(t.successors[id]))
	for s := range t.successors[id] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasConnection reports whether from may send to to.
func (t *Topology) HasConnection(from, to AgentID) bool {
	if !t.valid(from) {
		return false
	}
	_, ok := t.successors[from][to]
	return ok
}

// OutDegree returns the number of receivers of id.
func (t *Topology) OutDegree(id AgentID) int {
	if !t.valid(id) {
		return 0
	}
	return len(t.successors[id])
}

// InDegree returns the number of senders of id.
func (t *Topology) InDegree(id AgentID) int {
	n := 0
	for _, succ := range t.successors {
		if _, ok := succ[id]; ok {
			n++
		}
	}
	return n
}

// GuaranteedSends returns how many times id was drawn as the guaranteed
// sender of another agent by ConnectPseudoRandomly.
func (t *Topology) GuaranteedSends(id AgentID) int {
	if !t.valid(id) {
		return 0
	}
	return t.guaranteed[id]
}

// ConnectPseudoRandomly builds the connections of the fleet. For each agent A:
//   - a sender S != A is drawn and S -> A is registered, so A always receives;
//   - k is drawn in [0, maxConnections] and up to k targets T != A are drawn
//     while A has fewer than maxConnections receivers. T -> A is added
//     alongside A -> T unless T already has maxConnections receivers.
//
// Afterwards every agent has at least one sender, and no agent has more than
// maxConnections + GuaranteedSends receivers.
func (t *Topology) ConnectPseudoRandomly(rng *mutator.RNG, maxConnections int) error {
	n := len(t.successors)
	if n < 2 {
		return fmt.Errorf("connect pseudo randomly: need at least 2 agents, got %d", n)
	}
	if maxConnections < 0 {
		maxConnections = 0
	}

	other := func(a AgentID) AgentID {
		x := AgentID(rng.Int(0, n-2))
		if x >= a {
			x++
		}
		return x
	}

	for i := 0; i < n; i++ {
		a := AgentID(i)

		sender := other(a)
		t.successors[sender][a] = struct{}{}
		t.guaranteed[sender]++

		k := rng.Int(0, maxConnections)
		for slot := 0; slot < k && t.OutDegree(a) < maxConnections; slot++ {
			target := other(a)
			bothDirections := t.OutDegree(target) < maxConnections
			if err := t.Connect(a, target, bothDirections); err != nil {
				return err
			}
		}
	}
	return nil
}
