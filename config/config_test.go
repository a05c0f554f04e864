package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Setup("")
	require.NoError(t, err)

	require.Equal(t, 9, cfg.Board.Size)
	require.Equal(t, 6.5, cfg.Board.Komi)
	require.Equal(t, 4, cfg.Search.Goroutines)
	require.Equal(t, 10000, cfg.Search.Rollouts)
	require.Equal(t, 16.0, cfg.Search.PriorEquiv)
	require.Equal(t, "uniform", cfg.Evaluator.Kind)
	require.Equal(t, 5*time.Second, cfg.Evaluator.Timeout)
	require.Equal(t, []int{1, 2, 4, 8}, cfg.Experiment.Goroutines)

	_, ok := cfg.StoreOptions()
	require.False(t, ok)
}

func TestFileAndEnvironment(t *testing.T) {
	path := writeFile(t, "baduk.yaml", `
board:
  size: 13
search:
  goroutines: 8
  duration: 250ms
  rave: true
store:
  driver: badger
  path: /tmp/records
`)
	t.Setenv("BADUK_SEARCH_GOROUTINES", "2")
	t.Setenv("BADUK_EVALUATOR_KIND", "heuristic")

	cfg, err := Setup(path)
	require.NoError(t, err)
	require.Equal(t, 13, cfg.Board.Size)
	require.Equal(t, 2, cfg.Search.Goroutines, "environment beats the file")
	require.Equal(t, 250*time.Millisecond, cfg.Search.Duration)
	require.True(t, cfg.Search.Rave)
	require.Equal(t, "heuristic", cfg.Evaluator.Kind)

	opts, ok := cfg.StoreOptions()
	require.True(t, ok)
	require.Equal(t, "badger", opts.Driver)
	require.Equal(t, "/tmp/records", opts.Path)
}

func TestInvalid(t *testing.T) {
	for name, yaml := range map[string]string{
		"board too large": "board:\n  size: 25\n",
		"no goroutines":   "search:\n  goroutines: 0\n",
		"no budget":       "search:\n  rollouts: 0\n",
		"bad evaluator":   "evaluator:\n  kind: oracle\n",
		"bad store":       "store:\n  driver: sqlite\n",
		"bad log level":   "log:\n  level: loud\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Setup(writeFile(t, "baduk.yaml", yaml))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Setup(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")), "a missing file is fine")

	path := writeFile(t, ".env", "BADUK_BOARD_SIZE=7\n")
	t.Setenv("BADUK_BOARD_SIZE", "")
	os.Unsetenv("BADUK_BOARD_SIZE")
	require.NoError(t, LoadDotEnv(path))

	cfg, err := Setup("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Board.Size)
}
