// Package trace provides hooks that trace the decisions of a replacement
// policy.
package trace

import (
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/hybridpolicy/datarecording"
	"github.com/sarchlab/hybridpolicy/mem/cache/replacement"
	"github.com/sarchlab/hybridpolicy/sim/hooking"
)

const (
	decisionTable = "replacement_decisions"
	updateTable   = "replacement_updates"
	reportTable   = "replacement_reports"
)

// decisionEntry represents a victim selection in the database
type decisionEntry struct {
	ID            string
	Seq           uint64
	SetID         int
	WayID         int
	Contention    string
	EvictionCount uint64
	Aged          bool
	FellBack      bool
	ModeSwitch    bool
}

// updateEntry represents a hit or a fill in the database
type updateEntry struct {
	ID            string
	Seq           uint64
	SetID         int
	WayID         int
	Hit           bool
	Contention    string
	CPU           uint32
	InstrID       uint64
	Address       uint64
	PC            uint64
	VictimAddress uint64
	Type          string
}

// reportEntry represents the end-of-run report in the database
type reportEntry struct {
	ID                 string
	LRUVictims         uint64
	RRPVVictims        uint64
	AgingRounds        uint64
	Fallbacks          uint64
	Hits               uint64
	Fills              uint64
	HighContentionSets int
}

// A tracer is a hook that prints the decisions of a policy to a logger.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that logs one line per policy event.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

func (t *tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case replacement.HookPosVictimSelected:
		d := ctx.Item.(replacement.Decision)
		t.logger.Printf("victim, %d, %d, %s, %d, %t, %t\n",
			d.SetID, d.WayID, d.Contention, d.EvictionCount, d.Aged, d.FellBack)
	case replacement.HookPosModeSwitch:
		d := ctx.Item.(replacement.Decision)
		t.logger.Printf("switch, %d, %d\n", d.SetID, d.EvictionCount)
	case replacement.HookPosUpdated:
		a := ctx.Item.(replacement.Access)
		t.logger.Printf("update, %d, %d, %t, %s, 0x%x, 0x%x, %s\n",
			a.SetID, a.WayID, a.Hit, ctx.Detail.(replacement.Contention),
			a.Address, a.PC, a.Type)
	case replacement.HookPosFinalized:
		r := ctx.Item.(replacement.RunReport)
		t.logger.Printf("report, %d, %d, %d, %d, %d, %d, %d\n",
			r.LRUVictims, r.RRPVVictims, r.AgingRounds, r.Fallbacks,
			r.Hits, r.Fills, r.HighContentionSets)
	}
}

// A dbTracer is a hook that records the decisions of a policy into a
// database using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
	switched     map[int]bool
}

// NewDBTracer creates a database-based tracer. It creates the tables it
// writes to.
func NewDBTracer(dataRecorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
		switched:     make(map[int]bool),
	}

	t.dataRecorder.CreateTable(decisionTable, decisionEntry{})
	t.dataRecorder.CreateTable(updateTable, updateEntry{})
	t.dataRecorder.CreateTable(reportTable, reportEntry{})

	return t
}

func (t *dbTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case replacement.HookPosModeSwitch:
		d := ctx.Item.(replacement.Decision)
		t.switched[d.SetID] = true
	case replacement.HookPosVictimSelected:
		t.recordDecision(ctx.Item.(replacement.Decision))
	case replacement.HookPosUpdated:
		t.recordUpdate(
			ctx.Item.(replacement.Access),
			ctx.Detail.(replacement.Contention),
		)
	case replacement.HookPosFinalized:
		t.recordReport(ctx.Item.(replacement.RunReport))
	}
}

func (t *dbTracer) recordDecision(d replacement.Decision) {
	t.seq++

	entry := decisionEntry{
		ID:            xid.New().String(),
		Seq:           t.seq,
		SetID:         d.SetID,
		WayID:         d.WayID,
		Contention:    d.Contention.String(),
		EvictionCount: d.EvictionCount,
		Aged:          d.Aged,
		FellBack:      d.FellBack,
		ModeSwitch:    t.switched[d.SetID],
	}
	delete(t.switched, d.SetID)

	t.dataRecorder.InsertData(decisionTable, entry)
}

func (t *dbTracer) recordUpdate(
	a replacement.Access,
	contention replacement.Contention,
) {
	t.seq++

	entry := updateEntry{
		ID:            xid.New().String(),
		Seq:           t.seq,
		SetID:         a.SetID,
		WayID:         a.WayID,
		Hit:           a.Hit,
		Contention:    contention.String(),
		CPU:           a.TriggeringCPU,
		InstrID:       a.InstrID,
		Address:       a.Address,
		PC:            a.PC,
		VictimAddress: a.VictimAddress,
		Type:          a.Type.String(),
	}

	t.dataRecorder.InsertData(updateTable, entry)
}

func (t *dbTracer) recordReport(r replacement.RunReport) {
	entry := reportEntry{
		ID:                 xid.New().String(),
		LRUVictims:         r.LRUVictims,
		RRPVVictims:        r.RRPVVictims,
		AgingRounds:        r.AgingRounds,
		Fallbacks:          r.Fallbacks,
		Hits:               r.Hits,
		Fills:              r.Fills,
		HighContentionSets: r.HighContentionSets,
	}

	t.dataRecorder.InsertData(reportTable, entry)
	t.dataRecorder.Flush()
}
