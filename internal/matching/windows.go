package matching

import (
	"time"

	"tradeledger/internal/domain"
)

// groupIntoWindows partitions a timestamp-sorted option group into execution
// windows. Consecutive executions share a window when they carry the same
// order ID or arrive within the gap of the previous execution; a larger gap
// starts a new window. This clusters the legs of spread orders submitted
// together.
func groupIntoWindows(execs []*domain.Execution, gap time.Duration) [][]*domain.Execution {
	var windows [][]*domain.Execution
	var current []*domain.Execution

	for _, exec := range execs {
		if len(current) == 0 {
			current = []*domain.Execution{exec}
			continue
		}

		prev := current[len(current)-1]
		sameOrder := exec.OrderID != "" && exec.OrderID == prev.OrderID
		within := exec.Timestamp.Sub(prev.Timestamp) <= gap

		if sameOrder || within {
			current = append(current, exec)
		} else {
			windows = append(windows, current)
			current = []*domain.Execution{exec}
		}
	}

	if len(current) > 0 {
		windows = append(windows, current)
	}
	return windows
}
