package agent

import (
	"context"

	"baduk/experiments/metrics"
	"baduk/txnstate"
)

type Agent interface {
	// NewGame forgets everything about the previous game.
	NewGame(id string)
	// FindMove returns a move for the side to move in state and performance
	// metrics (if collected) from the search.
	FindMove(ctx context.Context, state *txnstate.State) (txnstate.Action, metrics.SearchMetric, error)
	// Notify tells the agent about a move played by either side.
	Notify(action txnstate.Action)
}
