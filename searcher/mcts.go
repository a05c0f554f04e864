package searcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"baduk/board"
	"baduk/evaluator"
	"baduk/experiments/metrics"
	"baduk/store"
	"baduk/txnstate"
)

const storeTimeout = 5 * time.Second

type Option func(s *Server)

// SearchResult is the outcome of one search. ExpectedScore is the mean final
// score of the search's playouts from White's point of view.
type SearchResult struct {
	ID            string
	Turn          board.Stone
	Action        txnstate.Action
	ExpectedScore float64
	WinRate       float64
	Rollouts      int
	Duration      time.Duration
	StopReason    StopReason
	Metrics       metrics.SearchMetric
}

// Progress is a snapshot of a running search handed to the listener.
type Progress struct {
	ID       string
	Rollouts int
	Nodes    int
	Elapsed  time.Duration
	Best     txnstate.Action
	WinRate  float64
	Done     bool
}

// Listener receives progress every ProgressInterval rollouts and once when
// the search stops. It is called from worker goroutines.
type Listener func(Progress)

// Server runs searches over a tree it keeps between moves.
type Server struct {
	goroutines int
	rollouts   int
	duration   time.Duration
	seed       uint64
	wideningMu float64
	maxHorizon int
	resign     float64
	features   bool

	policy    TreePolicy
	prior     PriorPolicy
	rollout   RolloutPolicy
	evaluator evaluator.Evaluator
	metrics   metrics.Collector
	store     store.Store
	listener  Listener

	mu     sync.Mutex
	tree   *Tree
	gameID string

	// Per-search state.
	id      string
	start   time.Time
	stop    atomic.Bool
	reason  atomic.Uint32
	claimed atomic.Int64
	done    atomic.Int64
	budget  Budget
}

func WithRollouts(rollouts int) Option {
	return func(s *Server) {
		if rollouts > 0 {
			s.rollouts = rollouts
		}
	}
}

func WithDuration(duration time.Duration) Option {
	return func(s *Server) {
		if duration > 0 {
			s.duration = duration
		}
	}
}

// WithSeed makes searches reproducible for a fixed goroutine count. Worker i
// draws from seed+i.
func WithSeed(seed uint64) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

func WithTreePolicy(policy TreePolicy) Option {
	return func(s *Server) {
		if policy != nil {
			s.policy = policy
		}
	}
}

func WithPriorPolicy(prior PriorPolicy) Option {
	return func(s *Server) {
		if prior != nil {
			s.prior = prior
		}
	}
}

func WithRolloutPolicy(rollout RolloutPolicy) Option {
	return func(s *Server) {
		if rollout != nil {
			s.rollout = rollout
		}
	}
}

// WithEvaluator scores leaves with ev instead of playing them out. Workers
// gather their leaves into one batch per round.
func WithEvaluator(ev evaluator.Evaluator) Option {
	return func(s *Server) {
		if ev != nil {
			s.evaluator = ev
			s.rollout = ValueRollout{Evaluator: ev}
		}
	}
}

// WithFeaturePlanes keeps stone feature planes in every node's state, so that
// evaluator requests carry them.
func WithFeaturePlanes() Option {
	return func(s *Server) {
		s.features = true
	}
}

func WithMetrics() Option {
	return func(s *Server) {
		s.metrics = metrics.NewCollector()
	}
}

func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithWidening limits selection to the first ceil(1 + ln(1+visits)/ln(mu))
// arms of a node, and to at most maxHorizon arms when maxHorizon > 0.
func WithWidening(mu float64, maxHorizon int) Option {
	return func(s *Server) {
		if mu > 0 && mu <= 1 {
			mu = DefaultWideningMu
		}
		s.wideningMu = mu
		s.maxHorizon = maxHorizon
	}
}

func WithResignThreshold(threshold float64) Option {
	return func(s *Server) {
		s.resign = threshold
	}
}

func WithListener(l Listener) Option {
	return func(s *Server) {
		s.listener = l
	}
}

func NewServer(goroutines int, options ...Option) *Server {
	s := &Server{ // Default values
		goroutines: max(goroutines, 1),
		resign:     DefaultResignThreshold,
		policy:     ThompsonPolicy{PriorEquiv: DefaultPriorEquiv, RaveEquiv: DefaultRaveEquiv},
		prior:      UniformPrior{},
		rollout:    RandomRollout{},
		metrics:    metrics.NewDummyCollector(),
		listener:   logProgress,
		tree:       NewTree(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Server) Goroutines() int { return s.goroutines }

// SetGameID tags the records saved by later searches.
func (s *Server) SetGameID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameID = id
}

// Reset discards the search tree.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Reset()
	s.metrics.SetTreeReset(true)
}

// Notify moves the root to the child reached by action, keeping its subtree
// for the next search. The tree is dropped when that child was never built.
func (s *Server) Notify(action txnstate.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.tree.Root()
	if root == nil {
		return
	}
	var child *Node
	if j := root.armIndex(action); j >= 0 {
		child = s.tree.Node(root.Child(j))
	}
	if child == nil {
		s.tree.Reset()
		s.metrics.SetTreeReset(true)
		return
	}
	s.tree.setRoot(child)
	s.metrics.SetTreeReset(false)
}

// Policy returns each root arm's share of the root's trials.
func (s *Server) Policy() map[txnstate.Action]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.tree.Root()
	if root == nil || root.Visits() == 0 {
		return nil
	}
	policy := make(map[txnstate.Action]float64, len(root.arms))
	total := float64(root.Visits())
	for j, a := range root.arms {
		if t := root.Trials(j); t > 0 {
			policy[a] = float64(t) / total
		}
	}
	return policy
}

// StartSearch searches from root until the budget runs out or ctx is done.
// A zero budget falls back to the server's rollout and duration options.
func (s *Server) StartSearch(ctx context.Context, root *txnstate.State, budget Budget) (SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if root.IsTerminal() {
		return SearchResult{}, ErrGameOver
	}
	if budget.IsZero() {
		budget.Rollouts = s.rollouts
		if s.duration > 0 {
			budget.Deadline = time.Now().Add(s.duration)
		}
	}
	if budget.IsZero() {
		return SearchResult{}, ErrNoBudget
	}

	rootNode, err := s.prepareRoot(ctx, root)
	if err != nil {
		return SearchResult{}, err
	}

	s.id = uuid.NewString()
	s.start = time.Now()
	s.budget = budget
	s.stop.Store(false)
	s.reason.Store(uint32(StopNone))
	s.claimed.Store(0)
	s.done.Store(0)
	s.metrics.Start(s.goroutines)

	watchDone := make(chan struct{})
	go s.watch(ctx, budget.Deadline, watchDone)

	workers := make([]*worker, s.goroutines)
	for i := range workers {
		workers[i] = newWorker(s, i, root)
	}

	var g errgroup.Group
	if s.evaluator != nil {
		r := newRound(s.goroutines)
		for _, w := range workers {
			w := w
			g.Go(func() error { return w.runBatched(ctx, r) })
		}
	} else {
		for _, w := range workers {
			w := w
			g.Go(func() error { return w.run(ctx) })
		}
	}
	err = g.Wait()
	close(watchDone)

	result := s.result(rootNode, workers)
	if s.listener != nil {
		s.listener(s.progress(true))
	}
	if err != nil {
		log.Error().Err(err).Str("search", s.id).Str("stop", result.StopReason.String()).Msg("search aborted")
		return result, err
	}

	log.Info().
		Str("search", s.id).
		Str("turn", result.Turn.String()).
		Str("action", result.Action.Format(root.Size())).
		Int("rollouts", result.Rollouts).
		Float64("score", result.ExpectedScore).
		Float64("winRate", result.WinRate).
		Str("stop", result.StopReason.String()).
		Dur("duration", result.Duration).
		Msg("search complete")
	s.save(ctx, root, result)
	return result, nil
}

// prepareRoot reuses the current root when it holds the same position and
// starts a fresh tree otherwise.
func (s *Server) prepareRoot(ctx context.Context, root *txnstate.State) (*Node, error) {
	if s.tree.Len() > 3*Capacity/4 {
		log.Warn().Int("nodes", s.tree.Len()).Msg("search tree nearly full, starting over")
		s.tree.Reset()
	}

	if n := s.tree.Root(); n != nil {
		if n.hash == root.Hash() && n.state.Passes() == root.Passes() && n.state.Komi() == root.Komi() {
			s.metrics.SetTreeReset(false)
			return n, nil
		}
		log.Warn().Msgf("root %016x does not match position %016x (passes %d/%d, komi %.1f/%.1f)",
			n.hash, root.Hash(), n.state.Passes(), root.Passes(), n.state.Komi(), root.Komi())
		s.tree.Reset()
	}

	n, err := newNode(ctx, noNode, 0, root.CloneWith(s.nodeAux()), s.prior)
	if err != nil {
		return nil, err
	}
	if _, err := s.tree.alloc(n); err != nil {
		return nil, err
	}
	s.tree.setRoot(n)
	s.metrics.SetTreeReset(true)
	return n, nil
}

func (s *Server) nodeAux() txnstate.AuxData {
	if s.features {
		return txnstate.AuxSet{txnstate.NewLegality(), txnstate.NewFeatures()}
	}
	return txnstate.NewLegality()
}

func (s *Server) watch(ctx context.Context, deadline time.Time, done <-chan struct{}) {
	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ctx.Done():
		s.halt(StopInterrupt)
	case <-expired:
		s.halt(StopDeadline)
	case <-done:
	}
}

func (s *Server) halt(reason StopReason) {
	for {
		old := s.reason.Load()
		if s.reason.CompareAndSwap(old, old|uint32(reason)) {
			break
		}
	}
	s.stop.Store(true)
}

// claim reserves one rollout of the budget.
func (s *Server) claim() bool {
	if s.budget.Rollouts <= 0 {
		return true
	}
	if s.claimed.Add(1) > int64(s.budget.Rollouts) {
		s.halt(StopRollouts)
		return false
	}
	return true
}

// fail classifies a worker error. A full tree or a cancelled context ends the
// search normally; anything else aborts it.
func (s *Server) fail(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, errStopped):
		return nil
	case errors.Is(err, ErrTreeFull):
		s.halt(StopMemory)
		return nil
	case ctx.Err() != nil:
		s.halt(StopInterrupt)
		return nil
	default:
		s.halt(StopError)
		return err
	}
}

func (s *Server) completed() {
	if d := s.done.Add(1); d%ProgressInterval == 0 && s.listener != nil {
		s.listener(s.progress(false))
	}
	s.metrics.AddRollout()
}

func (s *Server) progress(done bool) Progress {
	p := Progress{
		ID:       s.id,
		Rollouts: int(s.done.Load()),
		Nodes:    s.tree.Len(),
		Elapsed:  time.Since(s.start),
		Done:     done,
	}
	if root := s.tree.Root(); root != nil && !root.Terminal() {
		j := root.best()
		p.Best = root.arms[j]
		p.WinRate = root.winRate(j)
	}
	return p
}

func (s *Server) result(root *Node, workers []*worker) SearchResult {
	res := SearchResult{
		ID:         s.id,
		Turn:       root.turn,
		Action:     txnstate.Pass,
		Rollouts:   int(s.done.Load()),
		Duration:   time.Since(s.start),
		StopReason: StopReason(s.reason.Load()),
	}
	sum, n := 0.0, 0
	for _, w := range workers {
		sum += w.scoreSum
		n += w.scored
	}
	if n > 0 {
		res.ExpectedScore = sum / float64(n)
	}
	if !root.Terminal() {
		j := root.best()
		res.Action = root.arms[j]
		res.WinRate = root.winRate(j)
		if s.resign > 0 && res.Rollouts > 0 && res.WinRate < s.resign {
			res.Action = txnstate.Resign
		}
	}
	res.Metrics = s.metrics.Complete(s.tree.Len())
	return res
}

func (s *Server) save(ctx context.Context, root *txnstate.State, res SearchResult) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	rec := store.Record{
		ID:            res.ID,
		GameID:        s.gameID,
		Hash:          store.FormatHash(root.Hash()),
		MoveNumber:    root.MoveNumber(),
		Turn:          res.Turn.String(),
		Action:        res.Action.Format(root.Size()),
		ExpectedScore: res.ExpectedScore,
		WinRate:       res.WinRate,
		Rollouts:      res.Rollouts,
		DurationMs:    res.Duration.Milliseconds(),
		StopReason:    res.StopReason.String(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Str("search", res.ID).Msg("failed to save search record")
	}
}

func logProgress(p Progress) {
	log.Debug().
		Str("search", p.ID).
		Int("rollouts", p.Rollouts).
		Int("nodes", p.Nodes).
		Dur("elapsed", p.Elapsed).
		Float64("winRate", p.WinRate).
		Bool("done", p.Done).
		Msg("search progress")
}
