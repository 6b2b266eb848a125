package replacement

// HighContentionThreshold is the number of victim requests a set must exceed
// before it switches from LRU to RRPV eviction.
const HighContentionThreshold = 500

// Contention classifies how heavily a set is evicting.
type Contention int

// A set starts with ContentionLow and may move to ContentionHigh, never back.
const (
	ContentionLow Contention = iota
	ContentionHigh
)

func (c Contention) String() string {
	if c == ContentionHigh {
		return "high"
	}

	return "low"
}

// contentionTracker counts the victim requests of each set.
type contentionTracker struct {
	evictions []uint64
}

func newContentionTracker(numSets int) *contentionTracker {
	return &contentionTracker{
		evictions: make([]uint64, numSets),
	}
}

// recordEvictionAttempt counts one victim request and returns the new count.
func (t *contentionTracker) recordEvictionAttempt(setID int) uint64 {
	t.evictions[setID]++
	return t.evictions[setID]
}

func (t *contentionTracker) count(setID int) uint64 {
	return t.evictions[setID]
}

func (t *contentionTracker) classify(setID int) Contention {
	if t.evictions[setID] > HighContentionThreshold {
		return ContentionHigh
	}

	return ContentionLow
}

func (t *contentionTracker) numHighSets() int {
	n := 0

	for setID := range t.evictions {
		if t.classify(setID) == ContentionHigh {
			n++
		}
	}

	return n
}
