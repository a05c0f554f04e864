package engine

import (
	"context"

	"baduk/experiments/metrics"
)

// MaxMovesFactor caps a game at this many moves per board point.
const MaxMovesFactor = 3

type Engine interface {
	// Run plays a game till it is over or the move limit is reached
	Run(ctx context.Context) (metrics.GameMetric, []metrics.MoveMetric, error)
}
