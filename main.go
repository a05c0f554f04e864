package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"baduk/config"
	"baduk/engine"
	"baduk/evaluator"
	"baduk/experiments"
	"baduk/searcher"
	"baduk/searcher/agent"
	"baduk/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to a config file (yaml, json or toml)")
	envPath := flag.String("env", ".env", "Path to a .env file")
	mode := flag.String("mode", "selfplay", "One of selfplay, serve, experiment")
	opponent := flag.String("opponent", "", "Base URL of a remote agent playing White in selfplay")
	temperature := flag.Float64("temperature", 0, "Sample moves by visit share at this temperature instead of playing the best")
	show := flag.Bool("show", false, "Print the board after every selfplay move")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envPath, err)
		os.Exit(1)
	}
	cfg, err := config.Setup(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "selfplay":
		err = runSelfPlay(ctx, cfg, *opponent, *temperature, *show)
	case "serve":
		err = serve(ctx, cfg)
	case "experiment":
		err = runExperiments(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Str("mode", *mode).Msg("exiting")
	}
}

func setupLogger(c config.LogConfig) {
	level, _ := zerolog.ParseLevel(c.Level)
	zerolog.SetGlobalLevel(level)
	if c.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func newEvaluator(c config.EvaluatorConfig) evaluator.Evaluator {
	switch c.Kind {
	case "heuristic":
		return evaluator.Heuristic{}
	case "http":
		return evaluator.NewClient(c.URL, c.Timeout)
	default:
		return evaluator.Uniform{}
	}
}

// newServer builds a search server from the config. The returned function
// releases the store, if any.
func newServer(ctx context.Context, cfg *config.Config) (*searcher.Server, func(), error) {
	sc := cfg.Search
	options := []searcher.Option{
		searcher.WithRollouts(sc.Rollouts),
		searcher.WithDuration(sc.Duration),
		searcher.WithSeed(sc.Seed),
		searcher.WithTreePolicy(searcher.ThompsonPolicy{PriorEquiv: sc.PriorEquiv, UseRave: sc.Rave, RaveEquiv: sc.RaveEquiv}),
		searcher.WithResignThreshold(sc.ResignThreshold),
		searcher.WithMetrics(),
	}
	if sc.WideningMu > 0 || sc.MaxHorizon > 0 {
		options = append(options, searcher.WithWidening(sc.WideningMu, sc.MaxHorizon))
	}

	if cfg.Evaluator.Kind != "uniform" {
		ev := newEvaluator(cfg.Evaluator)
		options = append(options, searcher.WithPriorPolicy(searcher.EvaluatorPrior{Evaluator: ev}))
		if sc.Batch {
			options = append(options, searcher.WithEvaluator(ev))
		}
	} else if sc.Batch {
		options = append(options, searcher.WithEvaluator(evaluator.Uniform{}))
	}

	release := func() {}
	if opts, ok := cfg.StoreOptions(); ok {
		st, err := store.Open(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		options = append(options, searcher.WithStore(st))
		release = func() {
			if err := st.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close store")
			}
		}
	}
	return searcher.NewServer(sc.Goroutines, options...), release, nil
}

func newAgent(server *searcher.Server, temperature float64, seed uint64) agent.Agent {
	if temperature > 0 {
		return agent.NewTrainingAgent(server, searcher.Budget{}, temperature, seed)
	}
	return agent.NewEvaluationAgent(server, searcher.Budget{})
}

func runSelfPlay(ctx context.Context, cfg *config.Config, opponent string, temperature float64, show bool) error {
	server, release, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	black := newAgent(server, temperature, cfg.Search.Seed)
	white := black
	if opponent != "" {
		white = agent.NewRemoteAgent(opponent, time.Minute)
	}

	options := []engine.Option{engine.WithMaxMoves(cfg.SelfPlay.MaxMoves)}
	if show {
		options = append(options, engine.WithOutput(os.Stdout))
	}
	for i := 0; i < cfg.SelfPlay.Games; i++ {
		e := engine.LocalEngine(cfg.Board.Size, cfg.Board.Komi, black, white, options...)
		game, _, err := e.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("game", i+1).Str("winner", game.Winner).Float64("score", game.Score).Int("moves", game.TotalMoves).Dur("took", game.Duration).Msg("selfplay game finished")
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	server, release, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/genmove", agent.GenmoveHandler(agent.NewEvaluationAgent(server, searcher.Budget{})))
	r.Mount("/", evaluator.NewRouter(newEvaluator(cfg.Evaluator)))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info().Str("addr", cfg.Server.Addr).Msg("serving genmove and evaluate")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func runExperiments(ctx context.Context, cfg *config.Config) error {
	st := experiments.Settings{
		Size:       cfg.Board.Size,
		Komi:       cfg.Board.Komi,
		Games:      cfg.Experiment.Games,
		MaxMoves:   cfg.SelfPlay.MaxMoves,
		Goroutines: cfg.Experiment.Goroutines,
		Duration:   cfg.Experiment.Duration,
		Rollouts:   cfg.Search.Rollouts,
		Rave:       cfg.Search.Rave,
		Seed:       cfg.Search.Seed,
		OutDir:     cfg.Experiment.OutDir,
	}
	dir, err := experiments.RunSpeedup(ctx, st)
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("speedup experiment stored")

	dir, err = experiments.RunStrength(ctx, st)
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("strength experiment stored")
	return nil
}
