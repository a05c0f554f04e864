package searcher

import (
	"strings"
	"time"
)

// Budget bounds one search. A zero field means no bound of that kind.
type Budget struct {
	Rollouts int
	Deadline time.Time
}

func (b Budget) IsZero() bool {
	return b.Rollouts <= 0 && b.Deadline.IsZero()
}

type StopReason uint32

const StopNone StopReason = 0

const (
	StopRollouts StopReason = 1 << iota
	StopDeadline
	StopInterrupt
	StopMemory
	StopError
)

func (r StopReason) String() string {
	if r == StopNone {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag StopReason
		name string
	}{
		{StopRollouts, "rollouts"},
		{StopDeadline, "deadline"},
		{StopInterrupt, "interrupt"},
		{StopMemory, "memory"},
		{StopError, "error"},
	} {
		if r&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}
