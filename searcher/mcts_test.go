package searcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"baduk/board"
	"baduk/evaluator"
	"baduk/store"
	"baduk/txnstate"
)

// checkTree asserts the counter invariants of every node in the tree.
func checkTree(t *testing.T, tree *Tree) {
	t.Helper()
	for id := 1; id <= tree.Len(); id++ {
		n := tree.Node(NodeID(id))
		require.NotNil(t, n)
		if n.Terminal() {
			continue
		}
		sum := 0
		for j := range n.Arms() {
			sum += n.Trials(j)
			if child := tree.Node(n.Child(j)); child != nil {
				require.GreaterOrEqual(t, n.Trials(j), child.Visits(), "node %d arm %d", id, j)
				require.Equal(t, n.Turn().Opponent(), child.Turn())
			}
			require.LessOrEqual(t, n.Succs(j), n.Trials(j))
		}
		require.Equal(t, n.Visits(), sum, "node %d", id)
	}
}

func TestSearchKeepsTrialInvariants(t *testing.T) {
	for _, rave := range []bool{false, true} {
		t.Run(map[bool]string{false: "thompson", true: "rave"}[rave], func(t *testing.T) {
			policy := ThompsonPolicy{PriorEquiv: DefaultPriorEquiv, UseRave: rave, RaveEquiv: DefaultRaveEquiv}
			s := NewServer(4, WithTreePolicy(policy), WithMetrics())
			root := stateAfter(t, 5, txnstate.DefaultKomi, "C3", "D3")

			res, err := s.StartSearch(context.Background(), root, Budget{Rollouts: 2000})
			require.NoError(t, err)
			require.Equal(t, 2000, res.Rollouts)
			require.Equal(t, StopRollouts, res.StopReason)
			require.Equal(t, board.Black, res.Turn)
			require.NotEmpty(t, res.ID)
			require.Equal(t, 2000, res.Metrics.Rollouts)
			require.Equal(t, s.tree.Len(), res.Metrics.Expansions+1)

			require.True(t, res.Action.IsPlace())
			require.Equal(t, board.Legal, root.Position().Check(board.Black, res.Action.Point))
			require.Equal(t, 2000, s.tree.Root().Visits())
			checkTree(t, s.tree)

			if rave {
				amaf := 0
				for j := range s.tree.Root().Arms() {
					amaf += s.tree.Root().RaveTrials(j)
				}
				require.Greater(t, amaf, 2000, "rollout moves feed the root's amaf counters")
			}
		})
	}
}

func TestSearchIsReproducibleWithSeed(t *testing.T) {
	run := func() (*Server, SearchResult) {
		s := NewServer(1, WithSeed(7))
		res, err := s.StartSearch(context.Background(), stateAfter(t, 5, txnstate.DefaultKomi, "C3"), Budget{Rollouts: 300})
		require.NoError(t, err)
		return s, res
	}
	s1, r1 := run()
	s2, r2 := run()

	require.Equal(t, r1.Action, r2.Action)
	require.Equal(t, r1.ExpectedScore, r2.ExpectedScore)
	require.Equal(t, s1.tree.Len(), s2.tree.Len())
	root1, root2 := s1.tree.Root(), s2.tree.Root()
	for j := range root1.Arms() {
		require.Equal(t, root1.Trials(j), root2.Trials(j))
		require.Equal(t, root1.Succs(j), root2.Succs(j))
	}
}

type recordingEvaluator struct {
	mu    sync.Mutex
	sizes []int
	inner evaluator.Evaluator
}

func (r *recordingEvaluator) Evaluate(ctx context.Context, batch []evaluator.Request) ([]evaluator.Response, error) {
	r.mu.Lock()
	r.sizes = append(r.sizes, len(batch))
	r.mu.Unlock()
	return r.inner.Evaluate(ctx, batch)
}

func TestBatchedSearch(t *testing.T) {
	ev := &recordingEvaluator{inner: evaluator.Heuristic{}}
	s := NewServer(4, WithEvaluator(ev), WithMetrics())
	root := stateAfter(t, 7, txnstate.DefaultKomi, "D4")

	res, err := s.StartSearch(context.Background(), root, Budget{Rollouts: 400})
	require.NoError(t, err)
	require.Equal(t, 400, res.Rollouts)
	require.Equal(t, 400, s.tree.Root().Visits())
	checkTree(t, s.tree)

	leaves := 0
	for _, n := range ev.sizes {
		require.True(t, n >= 1 && n <= 4, "batch of %d", n)
		leaves += n
	}
	require.Equal(t, len(ev.sizes), res.Metrics.Batches)
	require.Equal(t, leaves, res.Metrics.BatchedLeafs)
	require.Equal(t, 400, leaves+res.Metrics.FullPlayouts)
}

// planeEvaluator checks that the newest feature step of every request
// matches its board, seen from the side to move.
type planeEvaluator struct {
	mu      sync.Mutex
	checked int
	bad     []string
}

func (e *planeEvaluator) Evaluate(ctx context.Context, batch []evaluator.Request) ([]evaluator.Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, req := range batch {
		pos, turn, err := req.Position()
		if err != nil {
			return nil, err
		}
		if len(req.Planes) != txnstate.FeatureLen(req.Size) {
			e.bad = append(e.bad, fmt.Sprintf("%d plane bytes", len(req.Planes)))
			continue
		}
		area := pos.Area()
		for p := 0; p < area; p++ {
			s := pos.At(board.Point(p))
			own, opp := req.Planes[p] == 1, req.Planes[area+p] == 1
			if own != (s == turn) || opp != (s == turn.Opponent()) {
				e.bad = append(e.bad, fmt.Sprintf("point %d of %s", p, req.Board))
			}
		}
		e.checked++
	}
	return evaluator.Uniform{}.Evaluate(ctx, batch)
}

func TestBatchedSearchSendsFeaturePlanes(t *testing.T) {
	ev := &planeEvaluator{}
	s := NewServer(3, WithEvaluator(ev), WithFeaturePlanes())
	root := stateAfter(t, 5, txnstate.DefaultKomi, "C3", "C4", "D4")

	_, err := s.StartSearch(context.Background(), root, Budget{Rollouts: 120})
	require.NoError(t, err)
	require.Empty(t, ev.bad)
	require.Greater(t, ev.checked, 0)
	checkTree(t, s.tree)

	_, ok := txnstate.FindAux[*txnstate.Features](s.tree.Root().State())
	require.True(t, ok)
	_, ok = txnstate.FindAux[*txnstate.Legality](s.tree.Root().State())
	require.True(t, ok, "nodes keep their legality cache")
}

type brokenEvaluator struct{}

func (brokenEvaluator) Evaluate(context.Context, []evaluator.Request) ([]evaluator.Response, error) {
	return nil, errors.New("connection refused")
}

// flakyEvaluator serves ok calls and then fails.
type flakyEvaluator struct {
	ok    int32
	calls atomic.Int32
}

func (f *flakyEvaluator) Evaluate(ctx context.Context, batch []evaluator.Request) ([]evaluator.Response, error) {
	if f.calls.Add(1) > f.ok {
		return nil, errors.New("evaluator crashed")
	}
	return evaluator.Uniform{}.Evaluate(ctx, batch)
}

func TestEvaluatorFailureAbortsSearch(t *testing.T) {
	ctx := context.Background()
	root := stateAfter(t, 5, txnstate.DefaultKomi)

	t.Run("batched leaves", func(t *testing.T) {
		s := NewServer(3, WithEvaluator(brokenEvaluator{}))
		res, err := s.StartSearch(ctx, root, Budget{Rollouts: 100})
		require.ErrorIs(t, err, ErrEvaluatorUnavailable)
		require.NotZero(t, res.StopReason&StopError)
		require.Zero(t, res.Rollouts)
	})

	t.Run("root prior", func(t *testing.T) {
		s := NewServer(2, WithPriorPolicy(EvaluatorPrior{Evaluator: brokenEvaluator{}}))
		_, err := s.StartSearch(ctx, root, Budget{Rollouts: 100})
		require.ErrorIs(t, err, ErrEvaluatorUnavailable)
		require.Nil(t, s.tree.Root())
	})

	t.Run("prior during expansion", func(t *testing.T) {
		s := NewServer(2, WithPriorPolicy(EvaluatorPrior{Evaluator: &flakyEvaluator{ok: 3}}))
		res, err := s.StartSearch(ctx, root, Budget{Rollouts: 100})
		require.ErrorIs(t, err, ErrEvaluatorUnavailable)
		require.NotZero(t, res.StopReason&StopError)
		require.Less(t, res.Rollouts, 100)
	})
}

func TestSearchStops(t *testing.T) {
	root := stateAfter(t, 5, txnstate.DefaultKomi)

	t.Run("deadline", func(t *testing.T) {
		s := NewServer(2)
		res, err := s.StartSearch(context.Background(), root, Budget{Deadline: time.Now().Add(50 * time.Millisecond)})
		require.NoError(t, err)
		require.Equal(t, StopDeadline, res.StopReason)
		require.Positive(t, res.Rollouts)
		require.Less(t, res.Duration, 5*time.Second)
	})

	t.Run("default duration", func(t *testing.T) {
		s := NewServer(2, WithDuration(30*time.Millisecond))
		res, err := s.StartSearch(context.Background(), root, Budget{})
		require.NoError(t, err)
		require.Equal(t, StopDeadline, res.StopReason)
	})

	t.Run("interrupt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(30*time.Millisecond, cancel)
		s := NewServer(2)
		res, err := s.StartSearch(ctx, root, Budget{Deadline: time.Now().Add(time.Minute)})
		require.NoError(t, err)
		require.NotZero(t, res.StopReason&StopInterrupt)
		require.Less(t, res.Duration, 30*time.Second)
	})

	t.Run("interrupt while batching", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(30*time.Millisecond, cancel)
		s := NewServer(3, WithEvaluator(evaluator.Uniform{}))
		res, err := s.StartSearch(ctx, root, Budget{Deadline: time.Now().Add(time.Minute)})
		require.NoError(t, err)
		require.NotZero(t, res.StopReason&StopInterrupt)
	})

	t.Run("no budget", func(t *testing.T) {
		_, err := NewServer(1).StartSearch(context.Background(), root, Budget{})
		require.ErrorIs(t, err, ErrNoBudget)
	})

	t.Run("finished game", func(t *testing.T) {
		over := stateAfter(t, 5, txnstate.DefaultKomi, "pass", "pass")
		_, err := NewServer(1).StartSearch(context.Background(), over, Budget{Rollouts: 10})
		require.ErrorIs(t, err, ErrGameOver)
	})
}

func TestNotifyReusesSubtree(t *testing.T) {
	ctx := context.Background()
	s := NewServer(2, WithSeed(3), WithMetrics())
	root := stateAfter(t, 5, txnstate.DefaultKomi)

	res, err := s.StartSearch(ctx, root, Budget{Rollouts: 500})
	require.NoError(t, err)
	require.True(t, res.Metrics.IsTreeReset)

	old := s.tree.Root()
	childID := old.Child(old.armIndex(res.Action))
	require.NotEqual(t, noNode, childID)

	s.Notify(res.Action)
	require.Equal(t, childID, s.tree.Root().ID())
	require.Equal(t, noNode, s.tree.Root().Parent())
	visits := s.tree.Root().Visits()

	next := root.Clone()
	require.NoError(t, next.Play(res.Action))
	res, err = s.StartSearch(ctx, next, Budget{Rollouts: 100})
	require.NoError(t, err)
	require.False(t, res.Metrics.IsTreeReset)
	require.Equal(t, childID, s.tree.Root().ID())
	require.Equal(t, visits+100, s.tree.Root().Visits())
	checkTree(t, s.tree)

	s.Notify(txnstate.Resign)
	require.Nil(t, s.tree.Root(), "unknown moves drop the tree")

	_, err = s.StartSearch(ctx, root, Budget{Rollouts: 50})
	require.NoError(t, err)
	s.Reset()
	require.Zero(t, s.tree.Len())
}

func TestSearchStartsOverOnAnotherPosition(t *testing.T) {
	ctx := context.Background()
	s := NewServer(1, WithMetrics())
	_, err := s.StartSearch(ctx, stateAfter(t, 5, txnstate.DefaultKomi, "C3"), Budget{Rollouts: 50})
	require.NoError(t, err)

	other := stateAfter(t, 5, txnstate.DefaultKomi, "B2")
	res, err := s.StartSearch(ctx, other, Budget{Rollouts: 50})
	require.NoError(t, err)
	require.True(t, res.Metrics.IsTreeReset)
	require.Equal(t, other.Hash(), s.tree.Root().hash)
	require.Equal(t, 50, s.tree.Root().Visits())
}

func TestSearchStartsOverOnSameStonesWithOtherHistory(t *testing.T) {
	ctx := context.Background()
	s := NewServer(1, WithMetrics())

	// Same stones, same side to move, but one pass pending.
	passed := stateAfter(t, 5, txnstate.DefaultKomi, "C3", "D3", "pass")
	fresh := stateAfter(t, 5, txnstate.DefaultKomi, "pass", "D3", "C3")
	require.Equal(t, passed.Hash(), fresh.Hash())
	require.NotEqual(t, passed.Passes(), fresh.Passes())

	_, err := s.StartSearch(ctx, passed, Budget{Rollouts: 30})
	require.NoError(t, err)
	res, err := s.StartSearch(ctx, fresh, Budget{Rollouts: 30})
	require.NoError(t, err)
	require.True(t, res.Metrics.IsTreeReset)
	require.Zero(t, s.tree.Root().State().Passes())

	otherKomi := stateAfter(t, 5, 0.5, "pass", "D3", "C3")
	require.Equal(t, fresh.Hash(), otherKomi.Hash())
	res, err = s.StartSearch(ctx, otherKomi, Budget{Rollouts: 30})
	require.NoError(t, err)
	require.True(t, res.Metrics.IsTreeReset)
	require.Equal(t, 0.5, s.tree.Root().State().Komi())

	res, err = s.StartSearch(ctx, otherKomi, Budget{Rollouts: 30})
	require.NoError(t, err)
	require.False(t, res.Metrics.IsTreeReset, "an identical position keeps the tree")
}

func TestResignWhenHopeless(t *testing.T) {
	// No Black result can overcome this komi.
	root := txnstate.NewState(5, 100, nil)
	s := NewServer(2, WithResignThreshold(0.1))
	res, err := s.StartSearch(context.Background(), root, Budget{Rollouts: 200})
	require.NoError(t, err)
	require.Equal(t, txnstate.Resign, res.Action)
	require.Zero(t, res.WinRate)
	require.Greater(t, res.ExpectedScore, 0.0)
}

func TestSearchRecordsAreStored(t *testing.T) {
	st, err := store.OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	s := NewServer(2, WithStore(st))
	s.SetGameID("game-1")
	root := stateAfter(t, 5, txnstate.DefaultKomi, "C3")

	res, err := s.StartSearch(ctx, root, Budget{Rollouts: 100})
	require.NoError(t, err)

	recs, err := st.ByHash(ctx, store.FormatHash(root.Hash()))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, res.ID, recs[0].ID)
	require.Equal(t, "game-1", recs[0].GameID)
	require.Equal(t, res.Action.Format(5), recs[0].Action)
	require.Equal(t, "W", recs[0].Turn)
	require.Equal(t, 1, recs[0].MoveNumber)
	require.Equal(t, 100, recs[0].Rollouts)
}

func TestListenerReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []Progress
	s := NewServer(2, WithListener(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p)
	}))

	total := 2*ProgressInterval + 10
	_, err := s.StartSearch(context.Background(), stateAfter(t, 5, txnstate.DefaultKomi), Budget{Rollouts: total})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	last := seen[len(seen)-1]
	require.True(t, last.Done)
	require.Equal(t, total, last.Rollouts)
	require.True(t, last.Best.IsPlace())
	for _, p := range seen[:2] {
		require.False(t, p.Done)
	}
}

func TestStoppedWaitIsNotAFailure(t *testing.T) {
	s := NewServer(1)
	require.NoError(t, s.fail(context.Background(), errStopped))
	require.Equal(t, StopNone, StopReason(s.reason.Load()))
	require.False(t, s.stop.Load())

	require.ErrorIs(t, s.fail(context.Background(), ErrEvaluatorUnavailable), ErrEvaluatorUnavailable)
	require.Equal(t, StopError, StopReason(s.reason.Load()))
}
