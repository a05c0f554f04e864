package txnstate

import (
	"math/bits"

	"baduk/board"
)

// AuxData is derived data kept in step with a State's position. Update is
// called once per committed action with the delta of that action.
type AuxData interface {
	Reset(pos *board.Position)
	Update(pos *board.Position, turn board.Stone, action Action, delta board.Delta)
	Clone() AuxData
}

// NoAux keeps nothing.
type NoAux struct{}

func (NoAux) Reset(*board.Position)                                    {}
func (NoAux) Update(*board.Position, board.Stone, Action, board.Delta) {}
func (NoAux) Clone() AuxData                                           { return NoAux{} }

// AuxSet keeps several aux data in step with one state.
type AuxSet []AuxData

func (a AuxSet) Reset(pos *board.Position) {
	for _, x := range a {
		x.Reset(pos)
	}
}

func (a AuxSet) Update(pos *board.Position, turn board.Stone, action Action, delta board.Delta) {
	for _, x := range a {
		x.Update(pos, turn, action, delta)
	}
}

func (a AuxSet) Clone() AuxData {
	c := make(AuxSet, len(a))
	for i, x := range a {
		c[i] = x.Clone()
	}
	return c
}

// CopyFrom overwrites a member by member when src is a set of the same length.
func (a AuxSet) CopyFrom(src AuxData) bool {
	o, ok := src.(AuxSet)
	if !ok || len(o) != len(a) {
		return false
	}
	for i := range a {
		if c, ok := a[i].(interface{ CopyFrom(AuxData) bool }); ok && c.CopyFrom(o[i]) {
			continue
		}
		a[i] = o[i].Clone()
	}
	return true
}

// FindAux returns the aux data of type T carried by s, directly or inside an
// AuxSet.
func FindAux[T AuxData](s *State) (T, bool) {
	if x, ok := s.aux.(T); ok {
		return x, true
	}
	if set, ok := s.aux.(AuxSet); ok {
		for _, a := range set {
			if x, ok := a.(T); ok {
				return x, true
			}
		}
	}
	var zero T
	return zero, false
}

type pointSet []uint64

func newPointSet(area int) pointSet { return make(pointSet, (area+63)/64) }

func (s pointSet) has(p board.Point) bool { return s[p>>6]&(1<<(uint(p)&63)) != 0 }

func (s pointSet) put(p board.Point, v bool) {
	if v {
		s[p>>6] |= 1 << (uint(p) & 63)
	} else {
		s[p>>6] &^= 1 << (uint(p) & 63)
	}
}

// Legality caches, for each colour, the set of points it may legally play.
type Legality struct {
	legal [2]pointSet
	ko    board.Point
	// Updates counts incremental updates, for tests and metrics.
	Updates int
}

func NewLegality() *Legality {
	return &Legality{ko: board.NoPoint}
}

func (l *Legality) IsLegal(s board.Stone, p board.Point) bool {
	if p < 0 || l.legal[0] == nil || int(p) >= len(l.legal[0])*64 {
		return false
	}
	return l.legal[s.Offset()].has(p)
}

func (l *Legality) Count(s board.Stone) int {
	n := 0
	for _, w := range l.legal[s.Offset()] {
		n += bits.OnesCount64(w)
	}
	return n
}

// Points appends the legal points of s to buf in ascending order.
func (l *Legality) Points(s board.Stone, buf []board.Point) []board.Point {
	for i, w := range l.legal[s.Offset()] {
		for w != 0 {
			buf = append(buf, board.Point(i*64+bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
	return buf
}

func (l *Legality) Reset(pos *board.Position) {
	for i := range l.legal {
		l.legal[i] = newPointSet(pos.Area())
	}
	for p := 0; p < pos.Area(); p++ {
		l.refresh(pos, board.Point(p))
	}
	l.ko, _ = pos.Ko()
}

// Update refreshes only the points whose legality the delta can have changed:
// the placed and captured points with their neighbours, the liberties of every
// chain whose liberty count moved, and the old and new ko points.
func (l *Legality) Update(pos *board.Position, _ board.Stone, action Action, delta board.Delta) {
	l.Updates++
	if action.IsPlace() {
		l.refreshAround(pos, delta.Placed)
		for _, q := range delta.Captured {
			l.refreshAround(pos, q)
		}
		for _, h := range delta.Touched {
			pos.ChainLiberties(h, func(q board.Point) { l.refresh(pos, q) })
		}
	}
	if l.ko != board.NoPoint {
		l.refresh(pos, l.ko)
	}
	l.ko, _ = pos.Ko()
	if l.ko != board.NoPoint {
		l.refresh(pos, l.ko)
	}
}

func (l *Legality) refreshAround(pos *board.Position, p board.Point) {
	l.refresh(pos, p)
	for _, n := range pos.Neighbours(p) {
		l.refresh(pos, n)
	}
}

func (l *Legality) refresh(pos *board.Position, p board.Point) {
	l.legal[0].put(p, pos.Check(board.Black, p) == board.Legal)
	l.legal[1].put(p, pos.Check(board.White, p) == board.Legal)
}

func (l *Legality) Clone() AuxData {
	c := &Legality{ko: l.ko, Updates: l.Updates}
	for i := range l.legal {
		c.legal[i] = append(pointSet(nil), l.legal[i]...)
	}
	return c
}

// CopyFrom overwrites l with src when src is also a legality cache.
func (l *Legality) CopyFrom(src AuxData) bool {
	o, ok := src.(*Legality)
	if !ok {
		return false
	}
	for i := range l.legal {
		l.legal[i] = append(l.legal[i][:0], o.legal[i]...)
	}
	l.ko = o.ko
	l.Updates = o.Updates
	return true
}
