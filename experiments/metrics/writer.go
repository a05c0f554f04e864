package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AgentConfig describes one contestant of an experiment.
type AgentConfig struct {
	ID         int
	Goroutines int
	Duration   time.Duration
	Rollouts   int
	Rave       bool
	Batch      bool // leaves scored by the heuristic evaluator in batches
}

type GameRecord struct {
	ID    int
	Black int // AgentConfig.ID
	White int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game  int // GameRecord.ID
	Agent int // AgentConfig.ID
	MoveMetric
}

// ThroughputRecord summarises the rollout rate of one agent over all its moves.
type ThroughputRecord struct {
	Agent      int
	Goroutines int
	Moves      int
	Mean       float64 // rollouts per second
	StdDev     float64
	Speedup    float64 // relative to the single goroutine agent, 0 when there is none
}

type Writer struct {
	baseDir string
}

// NewWriter creates outDir/name/<timestamp> for the files of one run.
func NewWriter(outDir, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405.000Z")
	baseDir := filepath.Join(outDir, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string { return w.baseDir }

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "goroutines", "duration", "rollouts", "rave", "batch"}
	return w.write("agent_configs.csv", header, len(configs), func(i int) []string {
		config := configs[i]
		return []string{
			strconv.Itoa(config.ID),
			strconv.Itoa(config.Goroutines),
			config.Duration.String(),
			strconv.Itoa(config.Rollouts),
			strconv.FormatBool(config.Rave),
			strconv.FormatBool(config.Batch),
		}
	})
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "black", "white", "starting_player", "winner", "score", "moves", "start_time", "end_time", "duration"}
	return w.write("game_records.csv", header, len(records), func(i int) []string {
		record := records[i]
		return []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Black),
			strconv.Itoa(record.White),
			record.StartingPlayer,
			record.Winner,
			strconv.FormatFloat(record.Score, 'f', 1, 64),
			strconv.Itoa(record.TotalMoves),
			record.StartTime.Format(time.RFC3339Nano),
			record.EndTime.Format(time.RFC3339Nano),
			record.Duration.String(),
		}
	})
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{
		"game", "agent", "step", "player", "goroutines", "duration", "rollouts", "full_playouts",
		"expansions", "races", "batches", "batched_leafs", "nodes", "is_tree_reset",
	}
	return w.write("move_records.csv", header, len(records), func(i int) []string {
		record := records[i]
		return []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Agent),
			strconv.Itoa(record.Step),
			record.Player,
			strconv.Itoa(record.Goroutines),
			record.Duration.String(),
			strconv.Itoa(record.Rollouts),
			strconv.Itoa(record.FullPlayouts),
			strconv.Itoa(record.Expansions),
			strconv.Itoa(record.Races),
			strconv.Itoa(record.Batches),
			strconv.Itoa(record.BatchedLeafs),
			strconv.Itoa(record.Nodes),
			strconv.FormatBool(record.IsTreeReset),
		}
	})
}

func (w *Writer) WriteThroughput(records []ThroughputRecord) error {
	header := []string{"agent", "goroutines", "moves", "rollouts_per_sec", "stddev", "speedup"}
	return w.write("throughput.csv", header, len(records), func(i int) []string {
		record := records[i]
		return []string{
			strconv.Itoa(record.Agent),
			strconv.Itoa(record.Goroutines),
			strconv.Itoa(record.Moves),
			strconv.FormatFloat(record.Mean, 'f', 2, 64),
			strconv.FormatFloat(record.StdDev, 'f', 2, 64),
			strconv.FormatFloat(record.Speedup, 'f', 3, 64),
		}
	})
}

func (w *Writer) write(name string, header []string, n int, row func(i int) []string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for i := 0; i < n; i++ {
		if err := writer.Write(row(i)); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", name, i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
