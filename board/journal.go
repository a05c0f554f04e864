package board

type editKind uint8

const (
	editStone editKind = iota
	editHead
	editNext
	editChain
	editKo
	editCaptures
)

// edit is one undoable write, holding the value before the write.
type edit struct {
	kind    editKind
	p       Point
	stone   Stone
	ptr     Point
	ch      chain
	koStone Stone
	caps    [2]int
}

type journal struct {
	active   bool
	edits    []edit
	captured []Point
}

// Checkpoint starts recording writes so they can be rolled back.
func (pos *Position) Checkpoint() {
	if pos.journal.active {
		panic("board: checkpoint while a checkpoint is open")
	}
	pos.journal.active = true
	pos.journal.edits = pos.journal.edits[:0]
	pos.journal.captured = append(pos.journal.captured[:0], pos.lastCaptured...)
}

// Rollback restores the position to the last checkpoint.
func (pos *Position) Rollback() {
	if !pos.journal.active {
		panic("board: rollback without a checkpoint")
	}
	edits := pos.journal.edits
	for i := len(edits) - 1; i >= 0; i-- {
		e := &edits[i]
		switch e.kind {
		case editStone:
			pos.stones[e.p] = e.stone
		case editHead:
			pos.head[e.p] = e.ptr
		case editNext:
			pos.next[e.p] = e.ptr
		case editChain:
			pos.chains[e.p] = e.ch
		case editKo:
			pos.ko = e.ptr
			pos.koStone = e.koStone
		case editCaptures:
			pos.captures = e.caps
		}
	}
	if len(pos.journal.captured) == 0 {
		pos.lastCaptured = pos.lastCaptured[:0]
	} else {
		pos.lastCaptured = append(pos.lastCaptured[:0], pos.journal.captured...)
	}
	pos.journal.active = false
	pos.journal.edits = edits[:0]
}

// Discard drops the recorded writes, making them permanent.
func (pos *Position) Discard() {
	if !pos.journal.active {
		panic("board: discard without a checkpoint")
	}
	pos.journal.active = false
	pos.journal.edits = pos.journal.edits[:0]
}

func (pos *Position) InCheckpoint() bool {
	return pos.journal.active
}

func (pos *Position) setStone(p Point, s Stone) {
	if pos.journal.active {
		pos.journal.edits = append(pos.journal.edits, edit{kind: editStone, p: p, stone: pos.stones[p]})
	}
	pos.stones[p] = s
}

func (pos *Position) setHead(p, h Point) {
	if pos.journal.active {
		pos.journal.edits = append(pos.journal.edits, edit{kind: editHead, p: p, ptr: pos.head[p]})
	}
	pos.head[p] = h
}

func (pos *Position) setNext(p, n Point) {
	if pos.journal.active {
		pos.journal.edits = append(pos.journal.edits, edit{kind: editNext, p: p, ptr: pos.next[p]})
	}
	pos.next[p] = n
}

// touchChain records the chain at h before it is modified in place.
func (pos *Position) touchChain(h Point) *chain {
	if pos.journal.active {
		pos.journal.edits = append(pos.journal.edits, edit{kind: editChain, p: h, ch: pos.chains[h]})
	}
	return &pos.chains[h]
}

func (pos *Position) setKo(p Point, s Stone) {
	if pos.ko == p && pos.koStone == s {
		return
	}
	if pos.journal.active {
		pos.journal.edits = append(pos.journal.edits, edit{kind: editKo, ptr: pos.ko, koStone: pos.koStone})
	}
	pos.ko = p
	pos.koStone = s
}

func (pos *Position) addCaptures(s Stone, n int) {
	if n == 0 {
		return
	}
	if pos.journal.active {
		pos.journal.edits = append(pos.journal.edits, edit{kind: editCaptures, caps: pos.captures})
	}
	pos.captures[s.Offset()] += n
}
