package txnstate

import (
	"math"

	"baduk/board"
)

const DefaultKomi = 6.5

type snapshot struct {
	turn     board.Stone
	passes   int
	resigned board.Stone
	moves    int
	last     Action
}

type pending struct {
	active bool
	action Action
	turn   board.Stone
	delta  board.Delta
	before snapshot
}

// State is a game in progress. Moves are applied as transactions: TryAction
// applies a move speculatively, then Commit keeps it or Undo reverts it.
// A State is not safe for concurrent use.
type State struct {
	pos  *board.Position
	komi float64
	snapshot
	aux     AuxData
	pending pending
}

func NewState(size int, komi float64, aux AuxData) *State {
	if aux == nil {
		aux = NoAux{}
	}
	s := &State{
		pos:      board.NewPosition(size),
		komi:     komi,
		snapshot: snapshot{turn: board.Black, last: Action{Kind: PassKind, Point: board.NoPoint}},
		aux:      aux,
	}
	s.aux.Reset(s.pos)
	return s
}

func (s *State) Turn() board.Stone         { return s.turn }
func (s *State) Aux() AuxData              { return s.aux }
func (s *State) Komi() float64             { return s.komi }
func (s *State) Size() int                 { return s.pos.Size() }
func (s *State) Passes() int               { return s.passes }
func (s *State) MoveNumber() int           { return s.moves }
func (s *State) Resigned() board.Stone     { return s.resigned }
func (s *State) Pending() bool             { return s.pending.active }
func (s *State) Hash() uint64              { return s.pos.Hash(s.turn) }
func (s *State) Position() *board.Position { return s.pos }

// LastAction returns the most recently committed action.
func (s *State) LastAction() Action { return s.last }

func (s *State) IsTerminal() bool {
	return s.passes >= 2 || s.resigned != board.Empty
}

// Score is the Tromp-Taylor score from White's point of view. A resignation
// scores as an infinite win for the other side.
func (s *State) Score() float64 {
	switch s.resigned {
	case board.Black:
		return math.Inf(1)
	case board.White:
		return math.Inf(-1)
	}
	return s.pos.Score(s.komi)
}

func (s *State) Winner() board.Stone {
	if s.Score() >= 0 {
		return board.White
	}
	return board.Black
}

// TryAction applies action for turn without committing it. An illegal action
// returns an *IllegalMove and leaves the state untouched.
func (s *State) TryAction(turn board.Stone, action Action) error {
	if s.pending.active {
		return &IllegalMove{Reason: PendingTxn, Turn: turn, Action: action}
	}
	if s.IsTerminal() {
		return &IllegalMove{Reason: GameOver, Turn: turn, Action: action}
	}
	if turn != s.turn {
		return &IllegalMove{Reason: NotYourTurn, Turn: turn, Action: action}
	}

	var delta board.Delta
	switch action.Kind {
	case PlaceKind:
		if r := s.pos.Check(turn, action.Point); r != board.Legal {
			return &IllegalMove{Reason: reasonFor(r), Turn: turn, Action: action}
		}
		s.pos.Checkpoint()
		delta = s.pos.Place(turn, action.Point)
	case PassKind, ResignKind:
		s.pos.Checkpoint()
		s.pos.ClearKo()
		delta = board.Delta{Stone: turn, Placed: board.NoPoint}
	default:
		return &IllegalMove{Reason: OffBoard, Turn: turn, Action: action}
	}

	s.pending = pending{active: true, action: action, turn: turn, delta: delta, before: s.snapshot}
	s.turn = turn.Opponent()
	s.moves++
	s.last = action
	switch action.Kind {
	case PlaceKind:
		s.passes = 0
	case PassKind:
		s.passes++
	case ResignKind:
		s.resigned = turn
	}
	return nil
}

// Commit makes the pending action permanent and brings the aux data up to date.
func (s *State) Commit() {
	if !s.pending.active {
		panic("txnstate: commit without a pending action")
	}
	s.pos.Discard()
	p := s.pending
	s.pending = pending{}
	s.aux.Update(s.pos, p.turn, p.action, p.delta)
}

// Undo reverts the pending action exactly.
func (s *State) Undo() {
	if !s.pending.active {
		panic("txnstate: undo without a pending action")
	}
	s.pos.Rollback()
	s.snapshot = s.pending.before
	s.pending = pending{}
}

// Play tries and commits an action in one step.
func (s *State) Play(action Action) error {
	if err := s.TryAction(s.turn, action); err != nil {
		return err
	}
	s.Commit()
	return nil
}

func (s *State) Clone() *State {
	s.mustBeSettled()
	return &State{
		pos:      s.pos.Clone(),
		komi:     s.komi,
		snapshot: s.snapshot,
		aux:      s.aux.Clone(),
	}
}

// CloneWith copies s with a fresh aux data slot built from the position.
func (s *State) CloneWith(aux AuxData) *State {
	s.mustBeSettled()
	if aux == nil {
		aux = NoAux{}
	}
	c := &State{
		pos:      s.pos.Clone(),
		komi:     s.komi,
		snapshot: s.snapshot,
		aux:      aux,
	}
	aux.Reset(c.pos)
	return c
}

// CloneFrom overwrites s with other, reusing the receiver's buffers. A NoAux
// receiver stays NoAux; otherwise the aux data is copied from other.
func (s *State) CloneFrom(other *State) {
	other.mustBeSettled()
	if s.pending.active {
		panic("txnstate: clone into a state with a pending action")
	}
	if s.pos == nil {
		s.pos = other.pos.Clone()
	} else {
		s.pos.CopyFrom(other.pos)
	}
	s.komi = other.komi
	s.snapshot = other.snapshot
	switch aux := s.aux.(type) {
	case NoAux:
	case interface{ CopyFrom(AuxData) bool }:
		if !aux.CopyFrom(other.aux) {
			s.aux = other.aux.Clone()
		}
	default:
		s.aux = other.aux.Clone()
	}
}

func (s *State) mustBeSettled() {
	if s.pending.active {
		panic("txnstate: clone with a pending action")
	}
}

// LegalPoints appends every point where stone may play to buf.
func (s *State) LegalPoints(stone board.Stone, buf []board.Point) []board.Point {
	if l, ok := FindAux[*Legality](s); ok {
		return l.Points(stone, buf)
	}
	for p := 0; p < s.pos.Area(); p++ {
		if s.pos.Check(stone, board.Point(p)) == board.Legal {
			buf = append(buf, board.Point(p))
		}
	}
	return buf
}

// Candidates appends the legal points of the side to move that do not fill
// one of its own eyes.
func (s *State) Candidates(buf []board.Point) []board.Point {
	start := len(buf)
	buf = s.LegalPoints(s.turn, buf)
	out := buf[:start]
	for _, p := range buf[start:] {
		if !s.pos.IsEyelike(s.turn, p) {
			out = append(out, p)
		}
	}
	return out
}
