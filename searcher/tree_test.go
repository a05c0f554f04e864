package searcher

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeAlloc(t *testing.T) {
	tree := NewTree()
	require.Nil(t, tree.Root())
	require.Nil(t, tree.Node(noNode))
	require.Nil(t, tree.Node(reservedNode))

	a, b := bareNode(1), bareNode(1)
	ida, err := tree.alloc(a)
	require.NoError(t, err)
	idb, err := tree.alloc(b)
	require.NoError(t, err)

	require.Equal(t, NodeID(1), ida, "ids start at one")
	require.Equal(t, NodeID(2), idb)
	require.Same(t, b, tree.Node(idb))
	require.Equal(t, 2, tree.Len())

	tree.setRoot(b)
	require.Same(t, b, tree.Root())

	tree.Reset()
	require.Zero(t, tree.Len())
	require.Nil(t, tree.Node(ida))
	require.Nil(t, tree.Root())
}

func TestTreeAllocAcrossChunks(t *testing.T) {
	tree := NewTree()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < chunkSize/2; i++ {
				tree.alloc(bareNode(1))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 4*chunkSize, tree.Len())
	for id := 1; id <= tree.Len(); id++ {
		n := tree.Node(NodeID(id))
		require.NotNil(t, n)
		require.Equal(t, NodeID(id), n.ID())
	}
}

func TestExpansionRace(t *testing.T) {
	tree := NewTree()
	parent := bareNode(1)

	started := make(chan struct{})
	release := make(chan struct{})
	var builds atomic.Int32
	build := func() (*Node, error) {
		builds.Add(1)
		close(started)
		<-release
		return bareNode(1), nil
	}

	type outcome struct {
		child   *Node
		created bool
		err     error
	}
	results := make(chan outcome, 2)
	raced := make(chan struct{})
	var races atomic.Int32

	go func() {
		child, created, err := tree.expand(parent, 0, build, nil, nil)
		results <- outcome{child, created, err}
	}()
	<-started

	_, _, err := tree.tryExpand(parent, 0, build)
	require.ErrorIs(t, err, errExpansionRace, "the slot is reserved while the winner builds")

	go func() {
		onRace := func() {
			races.Add(1)
			close(raced)
		}
		child, created, err := tree.expand(parent, 0, build, onRace, nil)
		results <- outcome{child, created, err}
	}()
	<-raced
	close(release)

	first, second := <-results, <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	require.Equal(t, int32(1), builds.Load(), "only the winner builds")
	require.NotEqual(t, first.created, second.created, "exactly one caller creates the child")
	require.Same(t, first.child, second.child)
	require.Equal(t, first.child.ID(), parent.Child(0))
	require.Equal(t, int32(1), races.Load())
	require.Equal(t, 1, tree.Len())
}

func TestFailedBuildReleasesSlot(t *testing.T) {
	tree := NewTree()
	parent := bareNode(1, 1)
	boom := errors.New("boom")

	_, created, err := tree.expand(parent, 1, func() (*Node, error) { return nil, boom }, nil, nil)
	require.ErrorIs(t, err, boom)
	require.False(t, created)
	require.Equal(t, noNode, parent.Child(1))

	child, created, err := tree.expand(parent, 1, func() (*Node, error) { return bareNode(1), nil }, nil, nil)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, child.ID(), parent.Child(1))
}

func TestExpansionLoserStopsWaiting(t *testing.T) {
	tree := NewTree()
	parent := bareNode(1)

	started := make(chan struct{})
	release := make(chan struct{})
	winner := make(chan error, 1)
	go func() {
		_, _, err := tree.expand(parent, 0, func() (*Node, error) {
			close(started)
			<-release
			return bareNode(1), nil
		}, nil, nil)
		winner <- err
	}()
	<-started

	var stop atomic.Bool
	raced := make(chan struct{})
	loser := make(chan error, 1)
	go func() {
		_, _, err := tree.expand(parent, 0, func() (*Node, error) {
			return nil, errors.New("the loser must not build")
		}, func() { close(raced) }, stop.Load)
		loser <- err
	}()
	<-raced
	stop.Store(true)

	require.ErrorIs(t, <-loser, errStopped, "a stopped search does not wait for the winner")
	close(release)
	require.NoError(t, <-winner)
	require.NotEqual(t, noNode, parent.Child(0))
}

func TestHorizon(t *testing.T) {
	n := bareNode(uniformPriors(50)...)
	require.Equal(t, 50, n.Horizon(0, 0), "no widening")
	require.Equal(t, 10, n.Horizon(0, 10))

	require.Equal(t, 1, n.Horizon(2, 0), "ceil(1 + ln 1/ln 2)")
	n.visits.Store(5)
	require.Equal(t, 4, n.Horizon(2, 0), "ceil(1 + ln 6/ln 2)")
	n.visits.Store(1 << 20)
	require.Equal(t, 22, n.Horizon(2, 0))
	require.Equal(t, 5, n.Horizon(2, 5))
}

func TestBestPrefersEarliestOnTies(t *testing.T) {
	n := bareNode(uniformPriors(4)...)
	require.Equal(t, 0, n.best())

	setCounts(n, 1, 5, 1)
	setCounts(n, 3, 5, 4)
	require.Equal(t, 1, n.best())
	require.InDelta(t, 0.2, n.winRate(1), 1e-12)
	require.Zero(t, n.winRate(0))
}
