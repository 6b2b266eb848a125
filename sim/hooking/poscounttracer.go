package hooking

import (
	"sync"
)

// PosFilter decides whether a hook invocation should be counted.
type PosFilter func(ctx HookCtx) bool

// PosCountTracer counts how many times each hook position is triggered.
type PosCountTracer struct {
	filter PosFilter
	lock   sync.Mutex

	posNames []string
	posCount map[string]uint64
}

// NewPosCountTracer creates a new PosCountTracer. A nil filter counts every
// invocation.
func NewPosCountTracer(filter PosFilter) *PosCountTracer {
	t := &PosCountTracer{
		filter:   filter,
		posCount: make(map[string]uint64),
	}

	return t
}

// Func counts the position of the invocation.
func (t *PosCountTracer) Func(ctx HookCtx) {
	if ctx.Pos == nil {
		return
	}

	if t.filter != nil && !t.filter(ctx) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	_, ok := t.posCount[ctx.Pos.Name]
	if !ok {
		t.posNames = append(t.posNames, ctx.Pos.Name)
	}

	t.posCount[ctx.Pos.Name]++
}

// GetPosNames returns the names of all the positions seen, in the order they
// were first seen.
func (t *PosCountTracer) GetPosNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.posNames))
	copy(names, t.posNames)

	return names
}

// GetPosCount returns the number of times the named position is triggered.
func (t *PosCountTracer) GetPosCount(posName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.posCount[posName]
}
