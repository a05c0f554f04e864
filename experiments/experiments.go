// Package experiments pits search configurations against each other in
// self-play and records every game and move as CSV.
package experiments

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"baduk/engine"
	"baduk/evaluator"
	"baduk/experiments/metrics"
	"baduk/searcher"
	"baduk/searcher/agent"
)

// Settings are shared by every game of a run.
type Settings struct {
	Size       int
	Komi       float64
	Games      int // per match up
	MaxMoves   int
	Goroutines []int
	Duration   time.Duration // per move
	Rollouts   int           // per move, used when Duration is zero
	Rave       bool
	Seed       uint64
	OutDir     string
}

func (st Settings) configs(firstID int) []metrics.AgentConfig {
	configs := make([]metrics.AgentConfig, 0, len(st.Goroutines))
	for i, g := range st.Goroutines {
		configs = append(configs, metrics.AgentConfig{
			ID:         firstID + i,
			Goroutines: g,
			Duration:   st.Duration,
			Rollouts:   st.Rollouts,
			Rave:       st.Rave,
		})
	}
	return configs
}

// RunSpeedup plays each configuration against itself, so both sides search
// equally hard and games have comparable length. Returns the output directory.
func RunSpeedup(ctx context.Context, st Settings) (string, error) {
	configs := st.configs(1)
	matchUps := make([][2]metrics.AgentConfig, 0, len(configs))
	for _, config := range configs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{config, config})
	}
	return runExperiment(ctx, "speedup", st, configs, matchUps)
}

// RunStrength pairs each configuration with a sequential baseline under the
// same budget. Colours alternate from game to game.
func RunStrength(ctx context.Context, st Settings) (string, error) {
	baseline := metrics.AgentConfig{ID: 0, Goroutines: 1, Duration: st.Duration, Rollouts: st.Rollouts, Rave: st.Rave}
	configs := st.configs(1)
	matchUps := make([][2]metrics.AgentConfig, 0, len(configs))
	for _, config := range configs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{baseline, config})
	}
	return runExperiment(ctx, "strength", st, append(configs, baseline), matchUps)
}

func runExperiment(ctx context.Context, name string, st Settings, configs []metrics.AgentConfig, matchUps [][2]metrics.AgentConfig) (string, error) {
	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}

	log.Info().Msgf("starting %s experiment...", name)

	for mi, matchUp := range matchUps {
		log.Info().Msgf("starting matchup %d of %d between agent%d and agent%d...", mi+1, len(matchUps), matchUp[0].ID, matchUp[1].ID)

		for i := 0; i < st.Games; i++ {
			black, white := matchUp[0], matchUp[1]
			if i%2 == 1 {
				black, white = white, black
			}
			count++
			seed := st.Seed
			if seed != 0 {
				seed += uint64(count) * 1000
			}

			game, moves, err := runGame(ctx, st, black, white, seed)
			if err != nil {
				return "", fmt.Errorf("matchup %d game %d: %w", mi+1, i+1, err)
			}
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Black:      black.ID,
				White:      white.ID,
				GameMetric: game,
			})
			for _, mm := range moves {
				id := black.ID
				if mm.Player == "W" {
					id = white.ID
				}
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					Agent:      id,
					MoveMetric: mm,
				})
			}

			log.Info().Msgf("completed matchup %d of %d game %d with winner: %s", mi+1, len(matchUps), i+1, game.Winner)
		}
	}

	log.Info().Msgf("completed %s experiment", name)

	writer, err := metrics.NewWriter(st.OutDir, name)
	if err != nil {
		return "", err
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return "", err
	}
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return "", err
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return "", err
	}
	if err := writer.WriteThroughput(Throughput(configs, moveRecords)); err != nil {
		return "", err
	}
	log.Info().Str("dir", writer.Dir()).Msg("stored experiment records")
	return writer.Dir(), nil
}

func runGame(ctx context.Context, st Settings, black, white metrics.AgentConfig, seed uint64) (metrics.GameMetric, []metrics.MoveMetric, error) {
	b := agent.NewEvaluationAgent(createServer(black, seed), searcher.Budget{})
	w := agent.NewEvaluationAgent(createServer(white, seed+1), searcher.Budget{})
	e := engine.LocalEngine(st.Size, st.Komi, b, w, engine.WithMaxMoves(st.MaxMoves))
	return e.Run(ctx)
}

func createServer(config metrics.AgentConfig, seed uint64) *searcher.Server {
	options := []searcher.Option{
		searcher.WithMetrics(),
		searcher.WithSeed(seed),
		searcher.WithTreePolicy(searcher.ThompsonPolicy{
			PriorEquiv: searcher.DefaultPriorEquiv,
			UseRave:    config.Rave,
			RaveEquiv:  searcher.DefaultRaveEquiv,
		}),
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	} else {
		options = append(options, searcher.WithRollouts(config.Rollouts))
	}
	if config.Batch {
		options = append(options, searcher.WithEvaluator(evaluator.Heuristic{}))
	}
	return searcher.NewServer(config.Goroutines, options...)
}
