package replacement

import (
	"fmt"

	"github.com/sarchlab/hybridpolicy/sim/hooking"
)

// Builder can build replacement policies.
type Builder struct {
	numSets int
	numWays int
	hooks   []hooking.Hook
}

// MakeBuilder creates a new builder with a 1024-set, 4-way geometry.
func MakeBuilder() Builder {
	return Builder{
		numSets: 1024,
		numWays: 4,
	}
}

// WithNumSets sets the number of sets of the cache.
func (b Builder) WithNumSets(numSets int) Builder {
	b.numSets = numSets
	return b
}

// WithNumWays sets the way associativity of the cache.
func (b Builder) WithNumWays(numWays int) Builder {
	b.numWays = numWays
	return b
}

// WithHook registers a hook on the policy being built.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, hook)

	return b
}

// Build creates a policy with all the state zeroed.
func (b Builder) Build() *Policy {
	b.mustHaveValidGeometry()

	p := &Policy{
		numSets:    b.numSets,
		numWays:    b.numWays,
		contention: newContentionTracker(b.numSets),
		lru:        newLRURanks(b.numSets, b.numWays),
		rrpv:       newRRPVTable(b.numSets, b.numWays),
	}

	for _, hook := range b.hooks {
		p.AcceptHook(hook)
	}

	return p
}

func (b Builder) mustHaveValidGeometry() {
	if b.numSets <= 0 {
		panic(fmt.Sprintf("number of sets must be positive, got %d", b.numSets))
	}

	if b.numWays <= 0 {
		panic(fmt.Sprintf("number of ways must be positive, got %d", b.numWays))
	}
}
