package agent

import (
	"context"

	"baduk/experiments/metrics"
	"baduk/searcher"
	"baduk/txnstate"
)

type evaluationAgent struct {
	server *searcher.Server
	budget searcher.Budget
}

// NewEvaluationAgent returns an agent that plays the most searched move. A
// zero budget uses the server's own rollout and duration settings.
func NewEvaluationAgent(server *searcher.Server, budget searcher.Budget) Agent {
	return &evaluationAgent{server: server, budget: budget}
}

func (a *evaluationAgent) NewGame(id string) {
	a.server.Reset()
	a.server.SetGameID(id)
}

func (a *evaluationAgent) FindMove(ctx context.Context, state *txnstate.State) (txnstate.Action, metrics.SearchMetric, error) {
	res, err := a.server.StartSearch(ctx, state, a.budget)
	if err != nil {
		return txnstate.Action{}, res.Metrics, err
	}
	return res.Action, res.Metrics, nil
}

func (a *evaluationAgent) Notify(action txnstate.Action) {
	a.server.Notify(action)
}
