package searcher

import "errors"

var (
	// ErrEvaluatorUnavailable aborts a search when the evaluator behind the
	// prior or rollout policy fails.
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
	ErrNoBudget             = errors.New("search budget has neither rollouts nor a deadline")
	ErrTreeFull             = errors.New("search tree is full")
	ErrGameOver             = errors.New("cannot search a finished game")

	errExpansionRace = errors.New("expansion race lost")
	errStopped       = errors.New("search stopped while waiting for an expansion")
)
