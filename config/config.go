// Package config loads the engine settings from a config file, a .env file
// and BADUK_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"baduk/store"
)

const EnvPrefix = "BADUK"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Board      BoardConfig      `mapstructure:"board"`
	Search     SearchConfig     `mapstructure:"search"`
	Evaluator  EvaluatorConfig  `mapstructure:"evaluator"`
	Store      StoreConfig      `mapstructure:"store"`
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	SelfPlay   SelfPlayConfig   `mapstructure:"selfplay"`
	Experiment ExperimentConfig `mapstructure:"experiment"`
}

type BoardConfig struct {
	Size int     `mapstructure:"size"`
	Komi float64 `mapstructure:"komi"`
}

type SearchConfig struct {
	Goroutines      int           `mapstructure:"goroutines"`
	Rollouts        int           `mapstructure:"rollouts"`
	Duration        time.Duration `mapstructure:"duration"`
	Seed            uint64        `mapstructure:"seed"`
	PriorEquiv      float64       `mapstructure:"prior_equiv"`
	Rave            bool          `mapstructure:"rave"`
	RaveEquiv       float64       `mapstructure:"rave_equiv"`
	WideningMu      float64       `mapstructure:"widening_mu"`
	MaxHorizon      int           `mapstructure:"max_horizon"`
	ResignThreshold float64       `mapstructure:"resign_threshold"`
	Batch           bool          `mapstructure:"batch"`
}

// EvaluatorConfig picks the evaluator behind priors and batched leaves:
// uniform, heuristic or http.
type EvaluatorConfig struct {
	Kind    string        `mapstructure:"kind"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type SelfPlayConfig struct {
	Games    int `mapstructure:"games"`
	MaxMoves int `mapstructure:"max_moves"`
}

type ExperimentConfig struct {
	Goroutines []int         `mapstructure:"goroutines"`
	Games      int           `mapstructure:"games"`
	Duration   time.Duration `mapstructure:"duration"`
	OutDir     string        `mapstructure:"out_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("board.size", 9)
	v.SetDefault("board.komi", 6.5)

	v.SetDefault("search.goroutines", 4)
	v.SetDefault("search.rollouts", 10000)
	v.SetDefault("search.duration", time.Duration(0))
	v.SetDefault("search.seed", 0)
	v.SetDefault("search.prior_equiv", 16.0)
	v.SetDefault("search.rave", false)
	v.SetDefault("search.rave_equiv", 3000.0)
	v.SetDefault("search.widening_mu", 0.0)
	v.SetDefault("search.max_horizon", 0)
	v.SetDefault("search.resign_threshold", 0.0)
	v.SetDefault("search.batch", false)

	v.SetDefault("evaluator.kind", "uniform")
	v.SetDefault("evaluator.url", "http://localhost:8080")
	v.SetDefault("evaluator.timeout", 5*time.Second)

	v.SetDefault("store.driver", "none")
	v.SetDefault("store.path", "data/searches")
	v.SetDefault("store.url", "")
	v.SetDefault("store.database", "baduk")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("selfplay.games", 1)
	v.SetDefault("selfplay.max_moves", 0)

	v.SetDefault("experiment.goroutines", []int{1, 2, 4, 8})
	v.SetDefault("experiment.games", 4)
	v.SetDefault("experiment.duration", time.Second)
	v.SetDefault("experiment.out_dir", "results")
}

// Setup reads cfgPath, which may be empty, and applies the environment on
// top of it.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv exports the variables of a .env file. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) Validate() error {
	switch {
	case c.Board.Size < 2 || c.Board.Size > 19:
		return fmt.Errorf("%w: board size %d outside 2..19", ErrInvalid, c.Board.Size)
	case c.Search.Goroutines < 1:
		return fmt.Errorf("%w: need at least one search goroutine", ErrInvalid)
	case c.Search.Rollouts <= 0 && c.Search.Duration <= 0:
		return fmt.Errorf("%w: search needs rollouts or a duration", ErrInvalid)
	case c.Search.PriorEquiv < 0 || c.Search.RaveEquiv <= 0:
		return fmt.Errorf("%w: equivalence parameters must be positive", ErrInvalid)
	}

	switch c.Evaluator.Kind {
	case "uniform", "heuristic", "http":
	default:
		return fmt.Errorf("%w: unknown evaluator %q", ErrInvalid, c.Evaluator.Kind)
	}
	switch c.Store.Driver {
	case "none", "badger", "redis", "mongo":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// StoreOptions returns the store settings, or false when storing is off.
func (c *Config) StoreOptions() (store.Options, bool) {
	if c.Store.Driver == "none" {
		return store.Options{}, false
	}
	return store.Options{
		Driver:   c.Store.Driver,
		Path:     c.Store.Path,
		URL:      c.Store.URL,
		Database: c.Store.Database,
	}, true
}
