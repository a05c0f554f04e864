package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Start(4)
	c.SetTreeReset(true)
	for i := 0; i < 3; i++ {
		c.AddRollout()
	}
	c.AddExpansion()
	c.AddBatch(5)
	c.AddBatch(3)

	m := c.Complete(42)
	require.Equal(t, 4, m.Goroutines)
	require.Equal(t, 3, m.Rollouts)
	require.Equal(t, 1, m.Expansions)
	require.Equal(t, 2, m.Batches)
	require.Equal(t, 8, m.BatchedLeafs)
	require.Equal(t, 42, m.Nodes)
	require.True(t, m.IsTreeReset)

	c.Start(1)
	require.Zero(t, c.Complete(0).Rollouts)
}
