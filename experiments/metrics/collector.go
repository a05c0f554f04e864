package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Goroutines   int
	Duration     time.Duration
	Rollouts     int
	FullPlayouts int
	Expansions   int
	Races        int
	Batches      int
	BatchedLeafs int
	Nodes        int
	IsTreeReset  bool
}

type MoveMetric struct {
	Step   int
	Player string // "B" or "W"
	SearchMetric
}

type GameMetric struct {
	StartingPlayer string
	Winner         string
	Score          float64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(goroutines int)
	SetTreeReset(value bool)
	AddRollout()
	AddFullPlayout()
	AddExpansion()
	AddRace()
	AddBatch(size int)
	Complete(nodes int) SearchMetric
}

type collector struct {
	goroutines   int
	startTime    time.Time
	rollouts     atomic.Int32
	fullPlayouts atomic.Int32
	expansions   atomic.Int32
	races        atomic.Int32
	batches      atomic.Int32
	batchedLeafs atomic.Int32
	isTreeReset  atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

// Start clears the counters of the previous search.
func (m *collector) Start(goroutines int) {
	m.startTime = time.Now()
	m.goroutines = goroutines
	m.rollouts.Store(0)
	m.fullPlayouts.Store(0)
	m.expansions.Store(0)
	m.races.Store(0)
	m.batches.Store(0)
	m.batchedLeafs.Store(0)
}

func (m *collector) AddRollout() {
	m.rollouts.Add(1)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) AddRace() {
	m.races.Add(1)
}

func (m *collector) AddBatch(size int) {
	m.batches.Add(1)
	m.batchedLeafs.Add(int32(size))
}

func (m *collector) Complete(nodes int) SearchMetric {
	return SearchMetric{
		Goroutines:   m.goroutines,
		Duration:     time.Since(m.startTime),
		Rollouts:     int(m.rollouts.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Expansions:   int(m.expansions.Load()),
		Races:        int(m.races.Load()),
		Batches:      int(m.batches.Load()),
		BatchedLeafs: int(m.batchedLeafs.Load()),
		Nodes:        nodes,
		IsTreeReset:  m.isTreeReset.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines int)            {}
func (m *dummyCollector) SetTreeReset(value bool)         {}
func (m *dummyCollector) AddRollout()                     {}
func (m *dummyCollector) AddFullPlayout()                 {}
func (m *dummyCollector) AddExpansion()                   {}
func (m *dummyCollector) AddRace()                        {}
func (m *dummyCollector) AddBatch(size int)               {}
func (m *dummyCollector) Complete(nodes int) SearchMetric { return SearchMetric{} }
