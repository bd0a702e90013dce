package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Strategy     string
	Goroutines   int
	Duration     time.Duration
	Episodes     int
	Cutoff       int
	FullPlayouts int
	Nodes        int
	MaxDepth     int
	IsTreeReset  bool
	StopReason   string
}

type MoveMetric struct {
	Step   int
	Player int // Seat of the mover
	Move   string
	SearchMetric
}

type GameMetric struct {
	Game           string
	StartingPlayer int // Agent index in the match-up
	Winner         int // Seat of the winner, -1 for a draw
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(strategy string, goroutines, cutoff int)
	SetTreeReset(value bool)
	AddFullPlayout()
	AddEpisode()
	ObserveDepth(depth int)
	SetNodes(nodes int64)
	Complete(stopReason string) SearchMetric
}

type collector struct {
	strategy     string
	goroutines   int
	cutoff       int
	startTime    time.Time
	episodes     atomic.Int32
	fullPlayouts atomic.Int32
	maxDepth     atomic.Int32
	nodes        atomic.Int64
	isTreeReset  atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

// Start resets the counters for a new search.
func (m *collector) Start(strategy string, goroutines, cutoff int) {
	m.startTime = time.Now()
	m.strategy = strategy
	m.goroutines = goroutines
	m.cutoff = cutoff
	m.episodes.Store(0)
	m.fullPlayouts.Store(0)
	m.maxDepth.Store(0)
	m.nodes.Store(0)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) ObserveDepth(depth int) {
	for {
		current := m.maxDepth.Load()
		if int32(depth) <= current || m.maxDepth.CompareAndSwap(current, int32(depth)) {
			return
		}
	}
}

func (m *collector) SetNodes(nodes int64) {
	m.nodes.Store(nodes)
}

func (m *collector) Complete(stopReason string) SearchMetric {
	return SearchMetric{
		Strategy:     m.strategy,
		Goroutines:   m.goroutines,
		Duration:     time.Since(m.startTime),
		Episodes:     int(m.episodes.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Cutoff:       m.cutoff,
		Nodes:        int(m.nodes.Load()),
		MaxDepth:     int(m.maxDepth.Load()),
		IsTreeReset:  m.isTreeReset.Load(),
		StopReason:   stopReason,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(strategy string, goroutines, cutoff int) {}
func (m *dummyCollector) SetTreeReset(value bool)                       {}
func (m *dummyCollector) AddFullPlayout()                               {}
func (m *dummyCollector) AddEpisode()                                   {}
func (m *dummyCollector) ObserveDepth(depth int)                        {}
func (m *dummyCollector) SetNodes(nodes int64)                          {}
func (m *dummyCollector) Complete(stopReason string) SearchMetric {
	return SearchMetric{StopReason: stopReason}
}
