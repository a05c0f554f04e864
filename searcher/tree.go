package searcher

import (
	"errors"
	"math"
	"runtime"
	"sync/atomic"
	"time"
)

type NodeID uint32

const (
	noNode       NodeID = 0
	reservedNode NodeID = math.MaxUint32
)

// A loser of an expansion race yields raceSpins times, then sleeps with
// doubling waits up to maxRaceBackoff while the winner builds.
const (
	raceSpins      = 16
	minRaceBackoff = 10 * time.Microsecond
	maxRaceBackoff = time.Millisecond
)

const (
	chunkBits = 10
	chunkSize = 1 << chunkBits
	maxChunks = 1 << 12
)

// Capacity is the number of nodes a tree can hold.
const Capacity = chunkSize * maxChunks

type chunk [chunkSize]atomic.Pointer[Node]

// Tree is an arena of nodes addressed by id. Nodes are allocated lock-free
// and live until the tree is reset.
type Tree struct {
	chunks [maxChunks]atomic.Pointer[chunk]
	next   atomic.Uint32
	root   NodeID
}

func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) alloc(n *Node) (NodeID, error) {
	idx := t.next.Add(1) - 1
	ci := idx >> chunkBits
	if ci >= maxChunks {
		return noNode, ErrTreeFull
	}
	c := t.chunks[ci].Load()
	if c == nil {
		fresh := new(chunk)
		if t.chunks[ci].CompareAndSwap(nil, fresh) {
			c = fresh
		} else {
			c = t.chunks[ci].Load()
		}
	}
	id := NodeID(idx + 1)
	n.id = id
	c[idx&(chunkSize-1)].Store(n)
	return id, nil
}

// Node returns the node with the given id, or nil if there is none.
func (t *Tree) Node(id NodeID) *Node {
	if id == noNode || id == reservedNode {
		return nil
	}
	idx := uint32(id - 1)
	ci := idx >> chunkBits
	if ci >= maxChunks {
		return nil
	}
	c := t.chunks[ci].Load()
	if c == nil {
		return nil
	}
	return c[idx&(chunkSize-1)].Load()
}

func (t *Tree) Len() int {
	return min(int(t.next.Load()), Capacity)
}

func (t *Tree) Root() *Node {
	return t.Node(t.root)
}

func (t *Tree) setRoot(n *Node) {
	t.root = n.id
	n.parent = noNode
}

// Reset drops every node. It must not run concurrently with a search.
func (t *Tree) Reset() {
	for i := range t.chunks {
		t.chunks[i].Store(nil)
	}
	t.next.Store(0)
	t.root = noNode
}

// tryExpand realises arm j of n. Exactly one caller wins the child slot and
// runs build; a caller that finds the slot reserved gets errExpansionRace.
func (t *Tree) tryExpand(n *Node, j int, build func() (*Node, error)) (*Node, bool, error) {
	slot := &n.children[j]
	switch id := NodeID(slot.Load()); id {
	case noNode:
		if !slot.CompareAndSwap(uint32(noNode), uint32(reservedNode)) {
			return nil, false, errExpansionRace
		}
		child, err := build()
		if err == nil {
			_, err = t.alloc(child)
		}
		if err != nil {
			slot.Store(uint32(noNode))
			return nil, false, err
		}
		slot.Store(uint32(child.id))
		return child, true, nil
	case reservedNode:
		return nil, false, errExpansionRace
	default:
		return t.Node(id), false, nil
	}
}

// expand returns the child behind arm j, building it if nobody has. Losers of
// an expansion race wait for the winner to publish and then share its child,
// unless stopped reports true first, in which case they get errStopped.
func (t *Tree) expand(n *Node, j int, build func() (*Node, error), onRace func(), stopped func() bool) (*Node, bool, error) {
	var wait time.Duration
	for attempt := 0; ; attempt++ {
		child, created, err := t.tryExpand(n, j, build)
		if !errors.Is(err, errExpansionRace) {
			return child, created, err
		}
		if attempt == 0 && onRace != nil {
			onRace()
		}
		if stopped != nil && stopped() {
			return nil, false, errStopped
		}
		if attempt < raceSpins {
			runtime.Gosched()
			continue
		}
		wait = min(max(2*wait, minRaceBackoff), maxRaceBackoff)
		time.Sleep(wait)
	}
}
