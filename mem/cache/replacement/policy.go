package replacement

import (
	"github.com/sarchlab/hybridpolicy/sim/hooking"
)

// Hook positions of a Policy.
var (
	// HookPosVictimSelected is triggered after FindVictim picks a way. The
	// item is a Decision.
	HookPosVictimSelected = &hooking.HookPos{Name: "VictimSelected"}

	// HookPosModeSwitch is triggered the first time a set is classified as
	// highly contended. The item is a Decision for the request that caused
	// the switch.
	HookPosModeSwitch = &hooking.HookPos{Name: "ModeSwitch"}

	// HookPosUpdated is triggered after Update. The item is the Access and
	// the detail is the Contention of the set at update time.
	HookPosUpdated = &hooking.HookPos{Name: "Updated"}

	// HookPosFinalized is triggered by Finalize. The item is a RunReport.
	HookPosFinalized = &hooking.HookPos{Name: "Finalized"}
)

// Decision describes one victim selection.
type Decision struct {
	SetID         int
	WayID         int
	Contention    Contention
	EvictionCount uint64
	Aged          bool
	FellBack      bool
}

// RunReport summarizes what a Policy did over a run.
type RunReport struct {
	LRUVictims         uint64
	RRPVVictims        uint64
	AgingRounds        uint64
	Fallbacks          uint64
	Hits               uint64
	Fills              uint64
	HighContentionSets int
}

// Policy is the hybrid replacement policy of one cache. It owns all the
// replacement state of the cache and is created by a Builder.
type Policy struct {
	hooking.HookableBase

	numSets int
	numWays int

	contention *contentionTracker
	lru        *lruRanks
	rrpv       *rrpvTable

	report RunReport
}

// NumSets returns the number of sets the policy manages.
func (p *Policy) NumSets() int {
	return p.numSets
}

// NumWays returns the associativity the policy manages.
func (p *Policy) NumWays() int {
	return p.numWays
}

// FindVictim returns the way of the set to evict. Every call counts as one
// victim request for the set, and the count is taken before the set is
// classified.
func (p *Policy) FindVictim(setID int) int {
	count := p.contention.recordEvictionAttempt(setID)
	contention := p.contention.classify(setID)

	decision := Decision{
		SetID:         setID,
		Contention:    contention,
		EvictionCount: count,
	}

	switch contention {
	case ContentionHigh:
		search := p.rrpv.findVictim(setID)
		decision.WayID = search.wayID
		decision.Aged = search.aged
		decision.FellBack = search.fellBack

		p.report.RRPVVictims++
		if search.aged {
			p.report.AgingRounds++
		}
		if search.fellBack {
			p.report.Fallbacks++
		}
	default:
		decision.WayID = p.lru.findVictim(setID)
		p.report.LRUVictims++
	}

	if count == HighContentionThreshold+1 {
		p.invoke(HookPosModeSwitch, decision, nil)
	}

	p.invoke(HookPosVictimSelected, decision, nil)

	return decision.WayID
}

// Update records a hit or a fill on a way. The LRU ranks are always updated.
// The RRPVs are only updated while the set is highly contended.
func (p *Policy) Update(access Access) {
	p.lru.visit(access.SetID, access.WayID)

	contention := p.contention.classify(access.SetID)
	if contention == ContentionHigh {
		p.rrpv.touch(access.SetID, access.WayID, access.Hit)
	}

	if access.Hit {
		p.report.Hits++
	} else {
		p.report.Fills++
	}

	p.invoke(HookPosUpdated, access, contention)
}

// Finalize returns the report of the run so far. It does not change the
// replacement state.
func (p *Policy) Finalize() RunReport {
	report := p.report
	report.HighContentionSets = p.contention.numHighSets()

	p.invoke(HookPosFinalized, report, nil)

	return report
}

// Reset returns every set to its initial state: no victim requests, low
// contention, and zeroed ranks and RRPVs. Hooks stay registered.
func (p *Policy) Reset() {
	clear(p.contention.evictions)
	clear(p.lru.ranks)
	clear(p.rrpv.values)
	p.report = RunReport{}
}

// EvictionCount returns the number of victim requests the set has served.
func (p *Policy) EvictionCount(setID int) uint64 {
	return p.contention.count(setID)
}

// Classify returns the current contention class of the set.
func (p *Policy) Classify(setID int) Contention {
	return p.contention.classify(setID)
}

// RecencyRank returns the LRU rank of a way. Higher is more recent.
func (p *Policy) RecencyRank(setID, wayID int) uint32 {
	return p.lru.set(setID)[wayID]
}

// RRPV returns the re-reference prediction value of a way.
func (p *Policy) RRPV(setID, wayID int) uint8 {
	return p.rrpv.set(setID)[wayID]
}

func (p *Policy) invoke(pos *hooking.HookPos, item, detail any) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
