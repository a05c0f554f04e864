package evaluator

import (
	"context"
	"errors"
	"fmt"

	"baduk/board"
	"baduk/txnstate"
)

var ErrBadRequest = errors.New("bad evaluation request")

// Request is one encoded position to evaluate. Planes holds
// txnstate.FeatureSteps steps of own and opponent stone planes, newest first,
// when the position carries feature data.
type Request struct {
	Size   int     `json:"size"`
	Komi   float64 `json:"komi"`
	Turn   string  `json:"turn"`
	Board  string  `json:"board"`
	Ko     int     `json:"ko"`
	Planes []uint8 `json:"planes,omitempty"`
}

// Response holds a probability per point, with pass at index size*size, and
// the expected final score from White's point of view.
type Response struct {
	Priors []float64 `json:"priors"`
	Value  float64   `json:"value"`
}

// Evaluator scores a batch of positions in one call.
type Evaluator interface {
	Evaluate(ctx context.Context, batch []Request) ([]Response, error)
}

func NewRequest(s *txnstate.State) Request {
	pos := s.Position()
	ko, koStone := pos.Ko()
	if koStone != s.Turn() {
		ko = board.NoPoint
	}
	req := Request{
		Size:  pos.Size(),
		Komi:  s.Komi(),
		Turn:  s.Turn().String(),
		Board: pos.Encode(),
		Ko:    int(ko),
	}
	if f, ok := txnstate.FindAux[*txnstate.Features](s); ok {
		req.Planes = f.Relative(s.Turn(), nil)
	}
	return req
}

// Position decodes the board and side to move of r.
func (r Request) Position() (*board.Position, board.Stone, error) {
	turn, err := board.ParseStone(r.Turn)
	if err != nil {
		return nil, board.Empty, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	pos, err := board.Decode(r.Size, r.Board)
	if err != nil {
		return nil, board.Empty, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if len(r.Planes) > 0 && len(r.Planes) != txnstate.FeatureLen(r.Size) {
		return nil, board.Empty, fmt.Errorf("%w: %d feature bytes for size %d", ErrBadRequest, len(r.Planes), r.Size)
	}
	if r.Ko >= 0 && r.Ko < pos.Area() {
		pos.SetKo(board.Point(r.Ko), turn)
	}
	return pos, turn, nil
}
