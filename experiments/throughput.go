package experiments

import (
	"gonum.org/v1/gonum/stat"

	"baduk/experiments/metrics"
)

// Throughput reports the rollouts per second each agent achieved per move,
// and its speedup over the single goroutine agent if there is one.
func Throughput(configs []metrics.AgentConfig, moves []metrics.MoveRecord) []metrics.ThroughputRecord {
	rates := make(map[int][]float64, len(configs))
	for _, m := range moves {
		if m.Duration <= 0 {
			continue
		}
		rates[m.Agent] = append(rates[m.Agent], float64(m.Rollouts)/m.Duration.Seconds())
	}

	baseline := 0.0
	records := make([]metrics.ThroughputRecord, 0, len(configs))
	for _, config := range configs {
		r := metrics.ThroughputRecord{
			Agent:      config.ID,
			Goroutines: config.Goroutines,
			Moves:      len(rates[config.ID]),
		}
		switch {
		case r.Moves > 1:
			r.Mean, r.StdDev = stat.MeanStdDev(rates[config.ID], nil)
		case r.Moves == 1:
			r.Mean = rates[config.ID][0]
		}
		if config.Goroutines == 1 && baseline == 0 {
			baseline = r.Mean
		}
		records = append(records, r)
	}

	if baseline > 0 {
		for i := range records {
			records[i].Speedup = records[i].Mean / baseline
		}
	}
	return records
}
