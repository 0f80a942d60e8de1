package domain

// PriorityMap maps vendor status codes to an integer severity rank.
// Higher ranks are healthier; the minimum rank observed in a window is the
// "worst observed state" for a service. The map is immutable after
// construction. Unknown status codes resolve to the fallback rank so that
// vendor enumeration growth never fails a report.
type PriorityMap struct {
	ranks       map[string]int
	fallback    int
	okThreshold int
}

// NewPriorityMap builds an immutable priority map. The ranks map is copied,
// so later mutation of the argument has no effect. okThreshold is the lowest
// rank still considered healthy when computing availability.
func NewPriorityMap(ranks map[string]int, fallback, okThreshold int) PriorityMap {
	copied := make(map[string]int, len(ranks))
	for status, rank := range ranks {
		copied[status] = rank
	}
	return PriorityMap{ranks: copied, fallback: fallback, okThreshold: okThreshold}
}

// Rank returns the severity rank for a status code, or the fallback rank for
// codes the map does not know.
func (m PriorityMap) Rank(status string) int {
	if rank, ok := m.ranks[status]; ok {
		return rank
	}
	return m.fallback
}

// Known reports whether the status code has an explicit rank.
func (m PriorityMap) Known(status string) bool {
	_, ok := m.ranks[status]
	return ok
}

// IsHealthy reports whether a status counts toward availability.
func (m PriorityMap) IsHealthy(status string) bool {
	return m.Rank(status) >= m.okThreshold
}

// Len returns the number of explicitly ranked statuses.
func (m PriorityMap) Len() int {
	return len(m.ranks)
}

// Statuses returns all explicitly ranked status codes in unspecified order.
func (m PriorityMap) Statuses() []string {
	statuses := make([]string, 0, len(m.ranks))
	for status := range m.ranks {
		statuses = append(statuses, status)
	}
	return statuses
}
