package searcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"baduk/board"
	"baduk/evaluator"
	"baduk/txnstate"
)

type step struct {
	node *Node
	arm  int
}

// worker owns everything one search goroutine mutates: its random source,
// the scratch state rollouts run on and the buffers of the current playout.
type worker struct {
	s       *Server
	idx     int
	rng     *rand.Rand
	scratch *txnstate.State
	path    []step
	moves   []Move
	seen    [2][]bool
	touched []int

	scoreSum float64
	scored   int
}

func newWorker(s *Server, idx int, root *txnstate.State) *worker {
	seed := s.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	area := root.Position().Area()
	return &worker{
		s:       s,
		idx:     idx,
		rng:     rand.New(rand.NewSource(seed + uint64(idx))),
		scratch: root.CloneWith(txnstate.NoAux{}),
		seen:    [2][]bool{make([]bool, area), make([]bool, area)},
	}
}

func (w *worker) run(ctx context.Context) error {
	for !w.s.stop.Load() {
		if !w.s.claim() {
			return nil
		}
		if err := w.playout(ctx); err != nil {
			return w.s.fail(ctx, err)
		}
	}
	return nil
}

func (w *worker) playout(ctx context.Context) error {
	leaf, err := w.descend(ctx)
	if err != nil {
		return err
	}
	if leaf.Terminal() {
		w.moves = w.moves[:0]
		w.backup(leaf, leaf.state.Score())
		return nil
	}

	w.scratch.CloneFrom(leaf.state)
	moves, score, err := w.s.rollout.Rollout(ctx, w.scratch, w.rng, w.moves[:0])
	w.moves = moves
	if err != nil {
		return err
	}
	if w.scratch.IsTerminal() {
		w.s.metrics.AddFullPlayout()
	}
	w.backup(leaf, score)
	return nil
}

// descend follows the tree policy from the root and stops at the first node
// it creates, or at a terminal node.
func (w *worker) descend(ctx context.Context) (*Node, error) {
	s := w.s
	w.path = w.path[:0]
	n := s.tree.Root()
	for !n.Terminal() {
		j := s.policy.Select(n, n.Horizon(s.wideningMu, s.maxHorizon), w.rng)
		w.path = append(w.path, step{node: n, arm: j})

		child, created, err := s.tree.expand(n, j, w.build(ctx, n, j), s.metrics.AddRace, s.stop.Load)
		if err != nil {
			return nil, err
		}
		if created {
			s.metrics.AddExpansion()
			return child, nil
		}
		n = child
	}
	return n, nil
}

func (w *worker) build(ctx context.Context, parent *Node, j int) func() (*Node, error) {
	return func() (*Node, error) {
		state := parent.state.Clone()
		if err := state.Play(parent.arms[j]); err != nil {
			return nil, fmt.Errorf("arm %d of node %d: %w", j, parent.id, err)
		}
		return newNode(ctx, parent.id, j, state, w.s.prior)
	}
}

// backup credits every edge of the path with one trial, and the leaf with
// the first move of the rollout when that move is one of its arms.
func (w *worker) backup(leaf *Node, score float64) {
	rest := w.moves
	if len(rest) > 0 && !leaf.Terminal() {
		if j := leaf.armIndex(rest[0].Action); j >= 0 {
			w.path = append(w.path, step{node: leaf, arm: j})
			rest = rest[1:]
		}
	}

	for _, st := range w.path {
		st.node.record(st.arm, succeeds(st.node.turn, score))
	}
	if w.s.policy.Rave() {
		w.updateRave(score, rest)
	}

	w.scoreSum += score
	w.scored++
	w.s.completed()
}

// updateRave walks the playout backwards so that, at each node of the path,
// seen marks the points each colour played first from that node on.
func (w *worker) updateRave(score float64, rollout []Move) {
	for i := len(rollout) - 1; i >= 0; i-- {
		w.mark(rollout[i])
	}
	for i := len(w.path) - 1; i >= 0; i-- {
		n, j := w.path[i].node, w.path[i].arm
		w.mark(Move{Stone: n.turn, Action: n.arms[j]})

		win := succeeds(n.turn, score)
		seen := w.seen[n.turn.Offset()]
		for k, a := range n.arms {
			if a.IsPlace() && seen[a.Point] {
				n.raveTrials[k].Add(1)
				if win {
					n.raveSuccs[k].Add(1)
				}
			}
		}
	}

	for _, p := range w.touched {
		w.seen[0][p] = false
		w.seen[1][p] = false
	}
	w.touched = w.touched[:0]
}

func (w *worker) mark(m Move) {
	if !m.Action.IsPlace() {
		return
	}
	p := int(m.Action.Point)
	w.seen[m.Stone.Offset()][p] = true
	w.seen[m.Stone.Opponent().Offset()][p] = false
	w.touched = append(w.touched, p)
}

// succeeds reports whether a final score, White minus Black, is a win for
// the side that moved.
func succeeds(mover board.Stone, score float64) bool {
	if mover == board.White {
		return score >= 0
	}
	return score < 0
}

type slotKind int

const (
	slotIdle slotKind = iota
	slotTerminal
	slotRequest
)

type slot struct {
	kind  slotKind
	leaf  *Node
	req   evaluator.Request
	value float64
	err   error
}

// round is shared by the workers of a batched search. Each worker writes its
// own slot before the first barrier; the leader writes the rest between the
// barriers.
type round struct {
	barrier *Barrier
	slots   []slot
	batch   []evaluator.Request
	owners  []int
	stop    bool
	drop    bool
	err     error
}

func newRound(parties int) *round {
	return &round{
		barrier: NewBarrier(parties),
		slots:   make([]slot, parties),
	}
}

func (w *worker) runBatched(ctx context.Context, r *round) error {
	for {
		w.fill(ctx, &r.slots[w.idx])
		if r.barrier.Wait() {
			w.s.evaluateRound(ctx, r)
		}
		r.barrier.Wait()

		if r.err != nil {
			return r.err
		}
		sl := &r.slots[w.idx]
		if !r.drop && sl.kind != slotIdle {
			w.moves = w.moves[:0]
			w.backup(sl.leaf, sl.value)
		}
		if r.stop {
			return nil
		}
	}
}

// fill descends once and leaves either a terminal score or an evaluation
// request in sl.
func (w *worker) fill(ctx context.Context, sl *slot) {
	*sl = slot{}
	if w.s.stop.Load() || !w.s.claim() {
		return
	}
	leaf, err := w.descend(ctx)
	if err != nil {
		sl.err = err
		return
	}
	sl.leaf = leaf
	if leaf.Terminal() {
		sl.kind = slotTerminal
		sl.value = leaf.state.Score()
		w.s.metrics.AddFullPlayout()
		return
	}
	sl.kind = slotRequest
	sl.req = evaluator.NewRequest(leaf.state)
}

// evaluateRound runs on the last worker to reach the barrier. It sends every
// pending leaf to the evaluator in one call and decides for all workers
// whether the search goes on.
func (s *Server) evaluateRound(ctx context.Context, r *round) {
	r.err, r.drop = nil, false
	r.batch, r.owners = r.batch[:0], r.owners[:0]
	for i := range r.slots {
		sl := &r.slots[i]
		if sl.err != nil {
			if err := s.fail(ctx, sl.err); err != nil && r.err == nil {
				r.err = err
			}
			continue
		}
		if sl.kind == slotRequest {
			r.batch = append(r.batch, sl.req)
			r.owners = append(r.owners, i)
		}
	}

	if len(r.batch) > 0 && r.err == nil {
		resps, err := s.evaluator.Evaluate(ctx, r.batch)
		if err == nil && len(resps) != len(r.batch) {
			err = fmt.Errorf("got %d responses for %d requests", len(resps), len(r.batch))
		}
		switch {
		case err != nil && ctx.Err() != nil:
			s.halt(StopInterrupt)
			r.drop = true
		case err != nil:
			r.err = s.fail(ctx, fmt.Errorf("%w: batch: %w", ErrEvaluatorUnavailable, err))
		default:
			for k, i := range r.owners {
				r.slots[i].value = resps[k].Value
			}
			s.metrics.AddBatch(len(r.batch))
		}
	}
	r.stop = s.stop.Load() || r.err != nil
}
