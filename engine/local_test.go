package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"baduk/experiments/metrics"
	"baduk/searcher"
	"baduk/searcher/agent"
	"baduk/txnstate"
)

func newAgent(rollouts int) agent.Agent {
	return agent.NewEvaluationAgent(searcher.NewServer(2, searcher.WithMetrics()), searcher.Budget{Rollouts: rollouts})
}

func TestLocalGame(t *testing.T) {
	var out bytes.Buffer
	e := LocalEngine(5, txnstate.DefaultKomi, newAgent(50), newAgent(50), WithMaxMoves(12), WithOutput(&out))

	game, moves, err := e.Run(context.Background())
	require.NoError(t, err)
	require.LessOrEqual(t, game.TotalMoves, 12)
	require.Len(t, moves, game.TotalMoves)
	require.Equal(t, "B", game.StartingPlayer)
	require.True(t, game.EndTime.After(game.StartTime))
	require.Contains(t, out.String(), "1. B ")

	for i, m := range moves {
		require.Equal(t, i+1, m.Step)
		require.Equal(t, []string{"B", "W"}[i%2], m.Player)
		require.Equal(t, 50, m.Rollouts)
	}
	if game.TotalMoves < 12 {
		require.True(t, e.State.IsTerminal())
		require.Contains(t, []string{"B", "W"}, game.Winner)
	} else {
		require.Equal(t, ".", game.Winner)
	}
}

func TestSelfPlayThroughOneAgent(t *testing.T) {
	a := newAgent(40)
	e := LocalEngine(5, txnstate.DefaultKomi, a, a, WithMaxMoves(8))
	game, moves, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, moves, game.TotalMoves)
	for _, m := range moves[1:] {
		require.False(t, m.IsTreeReset, "step %d should reuse the tree", m.Step)
	}
}

type failingAgent struct{}

func (failingAgent) NewGame(string)         {}
func (failingAgent) Notify(txnstate.Action) {}

func (failingAgent) FindMove(context.Context, *txnstate.State) (txnstate.Action, metrics.SearchMetric, error) {
	return txnstate.Action{}, metrics.SearchMetric{}, errors.New("no idea")
}

func TestAgentFailureEndsGame(t *testing.T) {
	e := LocalEngine(5, txnstate.DefaultKomi, newAgent(20), failingAgent{})
	_, moves, err := e.Run(context.Background())
	require.ErrorContains(t, err, "move 2")
	require.Len(t, moves, 1)
}
