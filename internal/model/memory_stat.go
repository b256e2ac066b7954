package model

// MemoryStat is a total/available byte pair used for host RAM and swap.
// Invariant: 0 <= Available <= Total.
type MemoryStat struct {
	Total     uint64
	Available uint64
}

func (m MemoryStat) Used() uint64 {
	if m.Available > m.Total {
		return 0
	}
	return m.Total - m.Available
}

func (m MemoryStat) PercentUsed() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Used()) / float64(m.Total) * 100
}
