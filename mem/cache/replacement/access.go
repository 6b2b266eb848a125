// Package replacement provides a per-set hybrid cache line replacement policy.
//
// Each set starts out evicting by recency (LRU). Once the number of victim
// requests that a set has served exceeds HighContentionThreshold, the set is
// classified as highly contended and from then on evicts by re-reference
// prediction values (RRPV). The classification never reverts. LRU ranks are
// maintained for every set on every update, while RRPVs are only maintained
// for highly contended sets.
//
// A Policy is not safe for concurrent use. The host cache must serialize
// FindVictim and Update calls on the same policy.
package replacement

// AccessType is the kind of memory access that reaches the cache.
type AccessType int

// The access types that a host cache may report.
const (
	AccessLoad AccessType = iota
	AccessRFO
	AccessPrefetch
	AccessWriteback
	AccessTranslation
)

var accessTypeNames = [...]string{
	AccessLoad:        "load",
	AccessRFO:         "rfo",
	AccessPrefetch:    "prefetch",
	AccessWriteback:   "writeback",
	AccessTranslation: "translation",
}

func (t AccessType) String() string {
	if t < 0 || int(t) >= len(accessTypeNames) {
		return "unknown"
	}

	return accessTypeNames[t]
}

// IsWrite returns true if the access leaves the line dirty.
func (t AccessType) IsWrite() bool {
	return t == AccessRFO || t == AccessWriteback
}

// Access carries the information about a hit or a fill that the host reports
// to the policy after the access completes. Only SetID, WayID, and Hit affect
// the replacement state. The rest is forwarded to hooks.
type Access struct {
	SetID int
	WayID int
	Hit   bool

	TriggeringCPU uint32
	InstrID       uint64
	Address       uint64
	PC            uint64
	VictimAddress uint64
	Type          AccessType
}
