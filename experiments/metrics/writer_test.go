package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriterLayout(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root, "speedup")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(w.Dir(), filepath.Join(root, "speedup")))

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteGameRecords([]GameRecord{{
		ID: 1, Black: 2, White: 3,
		GameMetric: GameMetric{
			StartingPlayer: "B",
			Winner:         "W",
			Score:          4.5,
			StartTime:      start,
			EndTime:        start.Add(time.Minute),
			Duration:       time.Minute,
			TotalMoves:     61,
		},
	}}))

	mm := MoveRecord{Game: 1, Agent: 2, MoveMetric: MoveMetric{Step: 1, Player: "B"}}
	mm.Rollouts = 500
	mm.IsTreeReset = true
	require.NoError(t, w.WriteMoveRecords([]MoveRecord{mm}))

	f, err := os.Open(filepath.Join(w.Dir(), "game_records.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3", "B", "W", "4.5", "61", "2024-03-01T12:00:00Z", "2024-03-01T12:01:00Z", "1m0s"}, rows[1])

	g, err := os.Open(filepath.Join(w.Dir(), "move_records.csv"))
	require.NoError(t, err)
	defer g.Close()
	rows, err = csv.NewReader(g).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[1], len(rows[0]))
	require.Equal(t, "500", rows[1][6])
	require.Equal(t, "true", rows[1][13])
}
