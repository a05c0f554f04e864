package txnstate

import (
	"errors"
	"fmt"

	"baduk/board"
)

var ErrIllegalMove = errors.New("illegal move")

type Reason uint8

const (
	NotEmpty Reason = iota + 1
	Ko
	Suicide
	OffBoard
	NotYourTurn
	GameOver
	PendingTxn
)

func (r Reason) String() string {
	switch r {
	case NotEmpty:
		return "point is occupied"
	case Ko:
		return "ko"
	case Suicide:
		return "suicide"
	case OffBoard:
		return "point is off the board"
	case NotYourTurn:
		return "not this side's turn"
	case GameOver:
		return "game is over"
	case PendingTxn:
		return "a transaction is already pending"
	}
	return fmt.Sprintf("reason(%d)", r)
}

// IllegalMove is returned by TryAction when an action breaks the rules. The
// state is left untouched.
type IllegalMove struct {
	Reason Reason
	Turn   board.Stone
	Action Action
}

func (e *IllegalMove) Error() string {
	return fmt.Sprintf("illegal move: %s by %s: %s", actionString(e.Action), e.Turn, e.Reason)
}

func (e *IllegalMove) Is(target error) bool {
	return target == ErrIllegalMove
}

func actionString(a Action) string {
	switch a.Kind {
	case PassKind:
		return "pass"
	case ResignKind:
		return "resign"
	}
	return fmt.Sprintf("point %d", a.Point)
}

func reasonFor(r board.Rule) Reason {
	switch r {
	case board.Occupied:
		return NotEmpty
	case board.KoBan:
		return Ko
	case board.SelfCapture:
		return Suicide
	}
	return OffBoard
}
