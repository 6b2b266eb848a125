package replacement

// lruRanks keeps a recency rank in [0, numWays-1] for every way. The most
// recently used way of a set holds numWays-1.
type lruRanks struct {
	numWays int
	ranks   []uint32
}

func newLRURanks(numSets, numWays int) *lruRanks {
	return &lruRanks{
		numWays: numWays,
		ranks:   make([]uint32, numSets*numWays),
	}
}

func (l *lruRanks) set(setID int) []uint32 {
	base := setID * l.numWays
	return l.ranks[base : base+l.numWays]
}

// findVictim returns the way with the lowest rank. Ties go to the lowest way.
func (l *lruRanks) findVictim(setID int) int {
	ranks := l.set(setID)
	victim := 0

	for wayID := 1; wayID < len(ranks); wayID++ {
		if ranks[wayID] < ranks[victim] {
			victim = wayID
		}
	}

	return victim
}

// visit moves the way to the most recently used position.
func (l *lruRanks) visit(setID, wayID int) {
	ranks := l.set(setID)
	current := ranks[wayID]

	for i := range ranks {
		if ranks[i] > current {
			ranks[i]--
		}
	}

	ranks[wayID] = uint32(l.numWays - 1)
}
