package searcher

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"baduk/board"
	"baduk/txnstate"
)

// bareNode builds a stateless node with one arm per prior, for exercising
// policies and the arena without a board.
func bareNode(priors ...float64) *Node {
	k := len(priors)
	n := &Node{
		turn:       board.Black,
		arms:       make([]txnstate.Action, k),
		priors:     priors,
		trials:     make([]atomic.Uint32, k),
		succs:      make([]atomic.Uint32, k),
		raveTrials: make([]atomic.Uint32, k),
		raveSuccs:  make([]atomic.Uint32, k),
		children:   make([]atomic.Uint32, k),
	}
	for j := range n.arms {
		n.arms[j] = txnstate.Place(board.Point(j))
	}
	return n
}

func uniformPriors(k int) []float64 {
	p := make([]float64, k)
	for j := range p {
		p[j] = 1 / float64(k)
	}
	return p
}

func setCounts(n *Node, j, trials, succs int) {
	n.trials[j].Store(uint32(trials))
	n.succs[j].Store(uint32(succs))
}

func stateAfter(t *testing.T, size int, komi float64, moves ...string) *txnstate.State {
	t.Helper()
	s := txnstate.NewState(size, komi, nil)
	for _, m := range moves {
		a, err := txnstate.ParseAction(size, m)
		require.NoError(t, err)
		require.NoError(t, s.Play(a))
	}
	return s
}
