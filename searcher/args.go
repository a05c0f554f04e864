package searcher

// Hyperparameters for MCTS

const DefaultPriorEquiv = 16.0 // Pseudo-trials granted to the prior
const DefaultRaveEquiv = 3000.0

const DefaultWideningMu = 2.0 // Used when widening is switched on without a base

// Hard ceiling on rollout length, in multiples of the board area
const RolloutPlyFactor = 3

const DefaultResignThreshold = 0.0 // Never resign

const ProgressInterval = 1000 // Rollouts between listener callbacks

// TODO: tune DefaultPriorEquiv against the heuristic evaluator's prior sharpness
