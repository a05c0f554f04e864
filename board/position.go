package board

import "fmt"

// Rule is the outcome of a placement legality check.
type Rule uint8

const (
	Legal Rule = iota
	Occupied
	KoBan
	SelfCapture
	OffBoard
)

func (r Rule) String() string {
	switch r {
	case Legal:
		return "legal"
	case Occupied:
		return "occupied"
	case KoBan:
		return "ko"
	case SelfCapture:
		return "suicide"
	case OffBoard:
		return "off board"
	}
	return fmt.Sprintf("rule(%d)", r)
}

// Position is a Go board with chain and liberty tracking.
//
// Every stone belongs to exactly one chain, identified by its head point. The
// chain record at the head holds the exact liberty set of the group. All writes
// go through the journal, so a placement made after Checkpoint can be rolled
// back exactly.
type Position struct {
	geo      *geometry
	stones   []Stone
	head     []Point
	next     []Point
	chains   []chain
	ko       Point
	koStone  Stone
	captures [2]int

	lastCaptured []Point
	journal      journal
	touched      []Point
}

func NewPosition(size int) *Position {
	if size < 2 || size > MaxSize {
		panic(fmt.Sprintf("board: unsupported size %d", size))
	}
	g := geometries[size]
	pos := &Position{
		geo:     g,
		stones:  make([]Stone, g.area),
		head:    make([]Point, g.area),
		next:    make([]Point, g.area),
		chains:  make([]chain, g.area),
		ko:      NoPoint,
		koStone: Empty,
	}
	for p := range pos.head {
		pos.head[p] = NoPoint
		pos.next[p] = NoPoint
	}
	return pos
}

func (pos *Position) Size() int { return pos.geo.size }
func (pos *Position) Area() int { return pos.geo.area }

func (pos *Position) At(p Point) Stone { return pos.stones[p] }

// Ko returns the point the given side may not play on this turn, if any.
func (pos *Position) Ko() (Point, Stone) { return pos.ko, pos.koStone }

// Captures returns how many stones each side has taken, indexed by Offset.
func (pos *Position) Captures() [2]int { return pos.captures }

// LastCaptured lists the points emptied by the most recent placement.
func (pos *Position) LastCaptured() []Point { return pos.lastCaptured }

func (pos *Position) Neighbours(p Point) []Point { return pos.geo.adj[p] }

// Liberties returns the liberty count of the chain through p, or 0 for an
// empty point.
func (pos *Position) Liberties(p Point) int {
	if pos.stones[p] == Empty {
		return 0
	}
	return pos.chains[pos.head[p]].libs.count()
}

// ChainSize returns the number of stones in the chain through p.
func (pos *Position) ChainSize(p Point) int {
	if pos.stones[p] == Empty {
		return 0
	}
	return int(pos.chains[pos.head[p]].size)
}

// ChainLiberties calls f for each liberty of the chain through p.
func (pos *Position) ChainLiberties(p Point, f func(Point)) {
	if pos.stones[p] == Empty {
		return
	}
	pos.chains[pos.head[p]].libs.forEach(f)
}

// Check reports whether s may be placed at p under simple ko and no-suicide
// rules without modifying the position.
func (pos *Position) Check(s Stone, p Point) Rule {
	if p < 0 || int(p) >= pos.geo.area {
		return OffBoard
	}
	if pos.stones[p] != Empty {
		return Occupied
	}
	if p == pos.ko && s == pos.koStone {
		return KoBan
	}
	for _, n := range pos.geo.adj[p] {
		ns := pos.stones[n]
		if ns == Empty {
			return Legal
		}
		libs := &pos.chains[pos.head[n]].libs
		if ns == s {
			if libs.atLeast(2) {
				return Legal
			}
		} else if !libs.atLeast(2) {
			return Legal
		}
	}
	return SelfCapture
}

// Delta describes the effect of one placement. Its slices alias position
// buffers and are valid until the next placement.
type Delta struct {
	Stone    Stone
	Placed   Point
	Captured []Point
	// Touched holds the heads of chains whose liberties changed.
	Touched []Point
}

// Place puts s at p, merging and capturing as needed. The caller must have
// checked the move with Check.
func (pos *Position) Place(s Stone, p Point) Delta {
	g := pos.geo
	opp := s.Opponent()
	pos.lastCaptured = pos.lastCaptured[:0]
	pos.touched = pos.touched[:0]

	pos.setStone(p, s)
	pos.setHead(p, p)
	pos.setNext(p, p)
	ch := pos.touchChain(p)
	*ch = chain{size: 1}
	for _, n := range g.adj[p] {
		if pos.stones[n] == Empty {
			ch.libs.set(n)
		}
	}

	for _, n := range g.adj[p] {
		if pos.stones[n] != s {
			continue
		}
		h := pos.head[n]
		if h == pos.head[p] {
			continue
		}
		pos.touchChain(h).libs.clear(p)
		pos.merge(pos.head[p], h)
	}
	pos.markTouched(pos.head[p])

	for _, n := range g.adj[p] {
		if pos.stones[n] != opp {
			continue
		}
		h := pos.head[n]
		c := &pos.chains[h]
		if !c.libs.has(p) {
			continue
		}
		c = pos.touchChain(h)
		c.libs.clear(p)
		pos.markTouched(h)
		if c.libs.count() == 0 {
			pos.capture(h)
		}
	}

	captured := len(pos.lastCaptured)
	pos.addCaptures(s, captured)
	if captured == 1 && pos.isKo(s, p, pos.lastCaptured[0]) {
		pos.setKo(pos.lastCaptured[0], opp)
	} else {
		pos.setKo(NoPoint, Empty)
	}

	return Delta{Stone: s, Placed: p, Captured: pos.lastCaptured, Touched: pos.touched}
}

// ClearKo lifts the ko restriction, as happens after a pass.
func (pos *Position) ClearKo() {
	pos.setKo(NoPoint, Empty)
}

func (pos *Position) markTouched(h Point) {
	for _, t := range pos.touched {
		if t == h {
			return
		}
	}
	pos.touched = append(pos.touched, h)
}

// merge joins the chains headed at a and b, keeping the larger head.
func (pos *Position) merge(a, b Point) Point {
	big, small := a, b
	if pos.chains[small].size > pos.chains[big].size {
		big, small = small, big
	}
	q := small
	for {
		pos.setHead(q, big)
		q = pos.next[q]
		if q == small {
			break
		}
	}
	nb, ns := pos.next[big], pos.next[small]
	pos.setNext(big, ns)
	pos.setNext(small, nb)

	src := pos.chains[small]
	dst := pos.touchChain(big)
	dst.size += src.size
	dst.libs.or(&src.libs)
	return big
}

// capture removes the chain headed at h and returns its liberties to the
// surrounding chains.
func (pos *Position) capture(h Point) {
	victim := pos.stones[h]
	start := len(pos.lastCaptured)
	q := h
	for {
		nq := pos.next[q]
		pos.setStone(q, Empty)
		pos.setHead(q, NoPoint)
		pos.lastCaptured = append(pos.lastCaptured, q)
		q = nq
		if q == h {
			break
		}
	}
	for _, q := range pos.lastCaptured[start:] {
		for _, n := range pos.geo.adj[q] {
			ns := pos.stones[n]
			if ns == Empty || ns == victim {
				continue
			}
			nh := pos.head[n]
			if pos.chains[nh].libs.has(q) {
				continue
			}
			pos.touchChain(nh).libs.set(q)
			pos.markTouched(nh)
		}
	}
}

// isKo reports whether the single-stone capture at q by the stone placed at p
// leaves a position where an immediate recapture would repeat the board.
func (pos *Position) isKo(s Stone, p, q Point) bool {
	for _, n := range pos.geo.adj[q] {
		if pos.stones[n] != s {
			return false
		}
		c := &pos.chains[pos.head[n]]
		if n == p {
			if c.size != 1 || c.libs.atLeast(2) {
				return false
			}
		} else if !c.libs.atLeast(2) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy without journal state.
func (pos *Position) Clone() *Position {
	c := &Position{}
	c.CopyFrom(pos)
	return c
}

// CopyFrom overwrites pos with src, reusing allocated buffers.
func (pos *Position) CopyFrom(src *Position) {
	pos.geo = src.geo
	pos.stones = append(pos.stones[:0], src.stones...)
	pos.head = append(pos.head[:0], src.head...)
	pos.next = append(pos.next[:0], src.next...)
	pos.chains = append(pos.chains[:0], src.chains...)
	pos.ko = src.ko
	pos.koStone = src.koStone
	pos.captures = src.captures
	if len(src.lastCaptured) == 0 {
		pos.lastCaptured = nil
	} else {
		pos.lastCaptured = append(pos.lastCaptured[:0], src.lastCaptured...)
	}
	pos.journal = journal{}
	pos.touched = nil
}

// Count returns the number of stones of colour s on the board.
func (pos *Position) Count(s Stone) int {
	n := 0
	for _, st := range pos.stones {
		if st == s {
			n++
		}
	}
	return n
}
