package replacement

// RRPV values used by the high contention sets.
const (
	MaxRRPV    = 3
	InsertRRPV = 2
	HitRRPV    = 0
)

// rrpvTable keeps a re-reference prediction value for every way. MaxRRPV
// marks the best eviction candidate.
type rrpvTable struct {
	numWays int
	values  []uint8
}

func newRRPVTable(numSets, numWays int) *rrpvTable {
	return &rrpvTable{
		numWays: numWays,
		values:  make([]uint8, numSets*numWays),
	}
}

func (r *rrpvTable) set(setID int) []uint8 {
	base := setID * r.numWays
	return r.values[base : base+r.numWays]
}

// rrpvSearch records how a victim was found.
type rrpvSearch struct {
	wayID    int
	aged     bool
	fellBack bool
}

// findVictim returns the first way at MaxRRPV. If there is none, all the ways
// age by one and the scan runs once more. If that also fails, way 0 is
// returned. Aging only runs when every value is below MaxRRPV, so a single
// round cannot push a value past MaxRRPV.
func (r *rrpvTable) findVictim(setID int) rrpvSearch {
	values := r.set(setID)

	if wayID, ok := firstAtMax(values); ok {
		return rrpvSearch{wayID: wayID}
	}

	for i := range values {
		values[i]++
	}

	if wayID, ok := firstAtMax(values); ok {
		return rrpvSearch{wayID: wayID, aged: true}
	}

	return rrpvSearch{wayID: 0, aged: true, fellBack: true}
}

func firstAtMax(values []uint8) (int, bool) {
	for wayID, v := range values {
		if v == MaxRRPV {
			return wayID, true
		}
	}

	return 0, false
}

// touch promotes a hit line and inserts a filled line.
func (r *rrpvTable) touch(setID, wayID int, hit bool) {
	values := r.set(setID)

	if hit {
		values[wayID] = HitRRPV
		return
	}

	values[wayID] = InsertRRPV
}
