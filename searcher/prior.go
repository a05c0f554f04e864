package searcher

import (
	"context"
	"fmt"

	"baduk/evaluator"
	"baduk/txnstate"
)

// PriorPolicy gives each arm of a new node a probability. It runs once per
// node, before the node is published.
type PriorPolicy interface {
	Priors(ctx context.Context, state *txnstate.State, arms []txnstate.Action) ([]float64, error)
}

type UniformPrior struct{}

func (UniformPrior) Priors(_ context.Context, _ *txnstate.State, arms []txnstate.Action) ([]float64, error) {
	out := make([]float64, len(arms))
	for j := range out {
		out[j] = 1 / float64(len(arms))
	}
	return out, nil
}

// EvaluatorPrior asks an evaluator for move probabilities, one request per
// new node.
type EvaluatorPrior struct {
	Evaluator evaluator.Evaluator
}

func (p EvaluatorPrior) Priors(ctx context.Context, state *txnstate.State, arms []txnstate.Action) ([]float64, error) {
	resps, err := p.Evaluator.Evaluate(ctx, []evaluator.Request{evaluator.NewRequest(state)})
	if err != nil {
		return nil, fmt.Errorf("%w: prior: %w", ErrEvaluatorUnavailable, err)
	}
	if len(resps) != 1 {
		return nil, fmt.Errorf("%w: prior: got %d responses for 1 request", ErrEvaluatorUnavailable, len(resps))
	}
	area := state.Position().Area()
	probs := resps[0].Priors

	out := make([]float64, len(arms))
	sum := 0.0
	for j, a := range arms {
		k := area
		if a.IsPlace() {
			k = int(a.Point)
		}
		if k < len(probs) && probs[k] > 0 {
			out[j] = probs[k]
			sum += probs[k]
		}
	}
	if sum == 0 {
		return UniformPrior{}.Priors(ctx, state, arms)
	}
	for j := range out {
		out[j] /= sum
	}
	return out, nil
}
