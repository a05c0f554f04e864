package agent

import (
	"context"
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"baduk/experiments/metrics"
	"baduk/searcher"
	"baduk/txnstate"
)

type trainingAgent struct {
	evaluationAgent
	temperature float64
	rng         *rand.Rand
}

// NewTrainingAgent returns an agent for self-play that samples its move from
// the root visit distribution sharpened by 1/temperature.
func NewTrainingAgent(server *searcher.Server, budget searcher.Budget, temperature float64, seed uint64) Agent {
	if temperature <= 0 {
		temperature = 1
	}
	return &trainingAgent{
		evaluationAgent: evaluationAgent{server: server, budget: budget},
		temperature:     temperature,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

func (a *trainingAgent) FindMove(ctx context.Context, state *txnstate.State) (txnstate.Action, metrics.SearchMetric, error) {
	best, metric, err := a.evaluationAgent.FindMove(ctx, state)
	if err != nil || best == txnstate.Resign {
		return best, metric, err
	}
	policy := adjustTemperature(a.server.Policy(), a.temperature)
	if len(policy) == 0 {
		return best, metric, nil
	}
	return sample(policy, a.rng), metric, nil
}

func adjustTemperature(policy map[txnstate.Action]float64, temperature float64) map[txnstate.Action]float64 {
	// Compute temperature-adjusted move probabilities
	exponent := 1.0 / temperature
	sum := 0.0
	adjusted := make(map[txnstate.Action]float64, len(policy))
	for move, share := range policy {
		prob := math.Pow(share, exponent)
		sum += prob
		adjusted[move] = prob
	}
	// Normalize
	for move := range adjusted {
		adjusted[move] /= sum
	}
	return adjusted
}

func sample(policy map[txnstate.Action]float64, rng *rand.Rand) txnstate.Action {
	// Map iteration order is random; sort for reproducible draws.
	moves := make([]txnstate.Action, 0, len(policy))
	for move := range policy {
		moves = append(moves, move)
	}
	sort.Slice(moves, func(i, j int) bool {
		if moves[i].Kind != moves[j].Kind {
			return moves[i].Kind < moves[j].Kind
		}
		return moves[i].Point < moves[j].Point
	})

	r := rng.Float64()
	for _, move := range moves {
		r -= policy[move]
		if r < 0 {
			return move
		}
	}
	return moves[len(moves)-1]
}
