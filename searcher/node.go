package searcher

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"baduk/board"
	"baduk/txnstate"
)

// Node is one position in the search tree. Everything but the atomic counters
// and child slots is fixed once the node is published.
type Node struct {
	id     NodeID
	parent NodeID
	rank   int
	state  *txnstate.State
	turn   board.Stone
	hash   uint64

	arms   []txnstate.Action
	priors []float64

	trials     []atomic.Uint32
	succs      []atomic.Uint32
	raveTrials []atomic.Uint32
	raveSuccs  []atomic.Uint32
	children   []atomic.Uint32
	visits     atomic.Uint32
}

// newNode builds an unpublished node for state. Arms are the candidate
// points ordered by prior, or a lone pass when there are none.
func newNode(ctx context.Context, parent NodeID, rank int, state *txnstate.State, prior PriorPolicy) (*Node, error) {
	n := &Node{
		parent: parent,
		rank:   rank,
		state:  state,
		turn:   state.Turn(),
		hash:   state.Hash(),
	}
	if state.IsTerminal() {
		return n, nil
	}

	points := state.Candidates(nil)
	arms := make([]txnstate.Action, 0, max(len(points), 1))
	for _, p := range points {
		arms = append(arms, txnstate.Place(p))
	}
	if len(arms) == 0 {
		arms = append(arms, txnstate.Pass)
	}
	priors, err := prior.Priors(ctx, state, arms)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(arms))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return priors[order[a]] > priors[order[b]] })
	n.arms = make([]txnstate.Action, len(arms))
	n.priors = make([]float64, len(arms))
	for i, k := range order {
		n.arms[i] = arms[k]
		n.priors[i] = priors[k]
	}

	n.trials = make([]atomic.Uint32, len(arms))
	n.succs = make([]atomic.Uint32, len(arms))
	n.raveTrials = make([]atomic.Uint32, len(arms))
	n.raveSuccs = make([]atomic.Uint32, len(arms))
	n.children = make([]atomic.Uint32, len(arms))
	return n, nil
}

func (n *Node) ID() NodeID              { return n.id }
func (n *Node) Parent() NodeID          { return n.parent }
func (n *Node) Turn() board.Stone       { return n.turn }
func (n *Node) State() *txnstate.State  { return n.state }
func (n *Node) Arms() []txnstate.Action { return n.arms }
func (n *Node) Prior(j int) float64     { return n.priors[j] }
func (n *Node) Visits() int             { return int(n.visits.Load()) }
func (n *Node) Trials(j int) int        { return int(n.trials[j].Load()) }
func (n *Node) Succs(j int) int         { return int(n.succs[j].Load()) }
func (n *Node) RaveTrials(j int) int    { return int(n.raveTrials[j].Load()) }
func (n *Node) RaveSuccs(j int) int     { return int(n.raveSuccs[j].Load()) }
func (n *Node) Child(j int) NodeID      { return NodeID(n.children[j].Load()) }
func (n *Node) Terminal() bool          { return len(n.arms) == 0 }

// Horizon is the number of arms selection may choose from. With mu > 1 it
// widens with the visit count as ceil(1 + ln(1+visits)/ln(mu)).
func (n *Node) Horizon(mu float64, maxHorizon int) int {
	h := len(n.arms)
	if mu > 1 {
		w := int(math.Ceil(1 + math.Log1p(float64(n.visits.Load()))/math.Log(mu)))
		h = min(h, w)
	}
	if maxHorizon > 0 {
		h = min(h, maxHorizon)
	}
	return h
}

func (n *Node) armIndex(a txnstate.Action) int {
	for j, arm := range n.arms {
		if arm == a {
			return j
		}
	}
	return -1
}

// best returns the arm with the most trials, the earliest arm winning ties.
func (n *Node) best() int {
	best, most := -1, -1
	for j := range n.arms {
		if t := int(n.trials[j].Load()); t > most {
			best, most = j, t
		}
	}
	return best
}

func (n *Node) winRate(j int) float64 {
	t := n.trials[j].Load()
	if t == 0 {
		return 0
	}
	return float64(n.succs[j].Load()) / float64(t)
}

// record credits one trial of arm j to the node's mover.
func (n *Node) record(j int, win bool) {
	n.visits.Add(1)
	n.trials[j].Add(1)
	if win {
		n.succs[j].Add(1)
	}
}
