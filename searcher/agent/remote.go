package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"baduk/experiments/metrics"
	"baduk/txnstate"
)

// remoteAgent asks an agent server for moves over HTTP. It sends the whole
// game on every request; the server keeps its tree while the game grows.
type remoteAgent struct {
	url   string
	http  *http.Client
	game  string
	moves []txnstate.Action
}

func NewRemoteAgent(baseURL string, timeout time.Duration) Agent {
	return &remoteAgent{
		url:  strings.TrimRight(baseURL, "/") + "/genmove",
		http: &http.Client{Timeout: timeout},
	}
}

func (a *remoteAgent) NewGame(id string) {
	a.game = id
	a.moves = a.moves[:0]
}

func (a *remoteAgent) Notify(action txnstate.Action) {
	a.moves = append(a.moves, action)
}

func (a *remoteAgent) FindMove(ctx context.Context, state *txnstate.State) (txnstate.Action, metrics.SearchMetric, error) {
	var metric metrics.SearchMetric
	start := time.Now()

	size := state.Size()
	req := GenmoveRequest{Game: a.game, Size: size, Komi: state.Komi(), Moves: make([]string, len(a.moves))}
	for i, m := range a.moves {
		req.Moves[i] = m.Format(size)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return txnstate.Action{}, metric, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return txnstate.Action{}, metric, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return txnstate.Action{}, metric, fmt.Errorf("genmove request failed: %w", err)
	}
	defer resp.Body.Close()

	var out GenmoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return txnstate.Action{}, metric, fmt.Errorf("failed to decode genmove response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return txnstate.Action{}, metric, fmt.Errorf("agent server returned %s: %s", resp.Status, out.Error)
	}

	action, err := txnstate.ParseAction(size, out.Action)
	if err != nil {
		return txnstate.Action{}, metric, fmt.Errorf("agent server sent a bad move: %w", err)
	}
	metric.Duration = time.Since(start)
	return action, metric, nil
}
