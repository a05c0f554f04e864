package searcher

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"

	"baduk/board"
	"baduk/evaluator"
	"baduk/txnstate"
)

// Move is an action together with the side that played it.
type Move struct {
	Stone  board.Stone
	Action txnstate.Action
}

// RolloutPolicy finishes a game from state, which the policy may modify. It
// appends the moves it plays to moves and returns the final score from
// White's point of view.
type RolloutPolicy interface {
	Rollout(ctx context.Context, state *txnstate.State, rng *rand.Rand, moves []Move) ([]Move, float64, error)
}

// RandomRollout plays uniformly among legal points that do not fill the
// mover's own eyes, and passes when there are none.
type RandomRollout struct{}

func (RandomRollout) Rollout(_ context.Context, state *txnstate.State, rng *rand.Rand, moves []Move) ([]Move, float64, error) {
	pos := state.Position()
	limit := RolloutPlyFactor * pos.Area()

	empties := make([]board.Point, 0, pos.Area())
	for p := 0; p < pos.Area(); p++ {
		if pos.At(board.Point(p)) == board.Empty {
			empties = append(empties, board.Point(p))
		}
	}

	for ply := 0; ply < limit && !state.IsTerminal(); ply++ {
		turn := state.Turn()
		action := txnstate.Pass
		chosen := -1
		// Draw without replacement until a playable point turns up.
		for n := len(empties); n > 0; {
			i := rng.Intn(n)
			p := empties[i]
			if pos.Check(turn, p) == board.Legal && !pos.IsEyelike(turn, p) {
				chosen = i
				action = txnstate.Place(p)
				break
			}
			n--
			empties[i], empties[n] = empties[n], empties[i]
		}

		if err := state.TryAction(turn, action); err != nil {
			return moves, 0, fmt.Errorf("rollout: %w", err)
		}
		state.Commit()
		moves = append(moves, Move{Stone: turn, Action: action})

		if chosen >= 0 {
			last := len(empties) - 1
			empties[chosen] = empties[last]
			empties = append(empties[:last], pos.LastCaptured()...)
		}
	}
	return moves, state.Score(), nil
}

// ValueRollout scores the leaf with one evaluator call instead of playing on.
// The server batches these calls across workers when batching is enabled.
type ValueRollout struct {
	Evaluator evaluator.Evaluator
}

func (v ValueRollout) Rollout(ctx context.Context, state *txnstate.State, _ *rand.Rand, moves []Move) ([]Move, float64, error) {
	resps, err := v.Evaluator.Evaluate(ctx, []evaluator.Request{evaluator.NewRequest(state)})
	if err != nil {
		return moves, 0, fmt.Errorf("%w: rollout: %w", ErrEvaluatorUnavailable, err)
	}
	if len(resps) != 1 {
		return moves, 0, fmt.Errorf("%w: rollout: got %d responses for 1 request", ErrEvaluatorUnavailable, len(resps))
	}
	return moves, resps[0].Value, nil
}
