package agent

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"baduk/txnstate"
)

// GenmoveRequest carries a whole game so far. Moves are in text form, "D4",
// "pass" or "resign".
type GenmoveRequest struct {
	Game  string   `json:"game"`
	Size  int      `json:"size"`
	Komi  float64  `json:"komi"`
	Moves []string `json:"moves"`
}

type GenmoveResponse struct {
	Action string `json:"action,omitempty"`
	Turn   string `json:"turn,omitempty"`
	Error  string `json:"error,omitempty"`
}

// session remembers the moves the agent has already been told about, so
// that a request extending them keeps the agent's search tree.
type session struct {
	mu    sync.Mutex
	agent Agent
	game  string
	moves []string
}

// GenmoveHandler serves POST /genmove for a.
func GenmoveHandler(a Agent) http.HandlerFunc {
	s := &session{agent: a}
	return s.handle
}

func (s *session) handle(w http.ResponseWriter, r *http.Request) {
	var req GenmoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, GenmoveResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Size < 2 || req.Size > 19 {
		writeJSON(w, http.StatusBadRequest, GenmoveResponse{Error: "board size must be within 2..19"})
		return
	}

	state := txnstate.NewState(req.Size, req.Komi, nil)
	actions := make([]txnstate.Action, len(req.Moves))
	for i, m := range req.Moves {
		a, err := txnstate.ParseAction(req.Size, m)
		if err == nil {
			err = state.Play(a)
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, GenmoveResponse{Error: "move " + m + ": " + err.Error()})
			return
		}
		actions[i] = a
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync(req, actions)
	action, _, err := s.agent.FindMove(r.Context(), state)
	if err != nil {
		log.Error().Err(err).Str("request", middleware.GetReqID(r.Context())).Msg("genmove failed")
		writeJSON(w, http.StatusInternalServerError, GenmoveResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, GenmoveResponse{Action: action.Format(req.Size), Turn: state.Turn().String()})
}

// sync replays the moves the agent has not seen yet, or starts a new game
// when the request does not continue the current one.
func (s *session) sync(req GenmoveRequest, actions []txnstate.Action) {
	known := len(s.moves)
	if req.Game != s.game || known > len(req.Moves) || !slices.Equal(s.moves, req.Moves[:known]) {
		s.agent.NewGame(req.Game)
		s.game, s.moves, known = req.Game, nil, 0
	}
	for _, a := range actions[known:] {
		s.agent.Notify(a)
	}
	s.moves = append(s.moves, req.Moves[known:]...)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
