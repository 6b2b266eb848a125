// Package tagging models the tag directory of a set-associative cache. It is
// the host side of a replacement policy: it looks up lines, asks the policy
// for victims on misses, and reports every hit and fill back to the policy.
package tagging

import (
	"fmt"

	"github.com/sarchlab/hybridpolicy/mem/cache/replacement"
)

// PID is the process ID that a line belongs to.
type PID uint32

// ReplacementPolicy decides which way of a set to evict.
type ReplacementPolicy interface {
	FindVictim(setID int) int
	Update(access replacement.Access)
	Reset()
}

// TagArray is the tag directory of a cache.
type TagArray interface {
	Lookup(pid PID, reqAddr uint64) (Block, bool)
	Access(req Request) Result
	GetSet(reqAddr uint64) (set *Set, setID int)
	TotalSize() uint64
	Reset()
}

// NewTagArray creates a tag array. The block size must be a power of two.
func NewTagArray(
	numSets int,
	numWays int,
	blockSize int,
	policy ReplacementPolicy,
) TagArray {
	if blockSize <= 0 || blockSize&(blockSize-1) != 0 {
		panic(fmt.Sprintf("block size %d is not a power of two", blockSize))
	}

	t := &tagArrayImpl{
		NumSets:   numSets,
		NumWays:   numWays,
		BlockSize: blockSize,
		policy:    policy,
	}

	t.Reset()

	return t
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	PID       PID
	Tag       uint64
	WayID     int
	SetID     int
	IsValid   bool
	IsDirty   bool
	ReadCount int
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []Block
}

// Request is one access from the core side.
type Request struct {
	PID     PID
	Address uint64
	PC      uint64
	InstrID uint64
	CPU     uint32
	Type    replacement.AccessType
}

// Result tells what an access did to the tag array.
type Result struct {
	Hit            bool
	SetID          int
	WayID          int
	Evicted        bool
	EvictedAddress uint64
	EvictedDirty   bool
}

type tagArrayImpl struct {
	NumSets   int
	NumWays   int
	BlockSize int
	Sets      []Set

	policy ReplacementPolicy
}

// TotalSize returns the maximum number of bytes can be stored in the cache
func (d *tagArrayImpl) TotalSize() uint64 {
	return uint64(d.NumSets) * uint64(d.NumWays) * uint64(d.BlockSize)
}

func (d *tagArrayImpl) lineAddr(reqAddr uint64) uint64 {
	return reqAddr &^ uint64(d.BlockSize-1)
}

// Get the set that a certain address should store at
func (d *tagArrayImpl) GetSet(reqAddr uint64) (set *Set, setID int) {
	setID = int(reqAddr / uint64(d.BlockSize) % uint64(d.NumSets))
	set = &d.Sets[setID]

	return
}

// Lookup finds the block that holds reqAddr.
func (d *tagArrayImpl) Lookup(pid PID, reqAddr uint64) (Block, bool) {
	block, ok := d.lookup(pid, reqAddr)
	if !ok {
		return Block{}, false
	}

	return *block, true
}

func (d *tagArrayImpl) lookup(pid PID, reqAddr uint64) (*Block, bool) {
	set, _ := d.GetSet(reqAddr)
	tag := d.lineAddr(reqAddr)

	for i := range set.Blocks {
		block := &set.Blocks[i]
		if block.IsValid && block.Tag == tag && block.PID == pid {
			return block, true
		}
	}

	return nil, false
}

// Access looks up the request and fills the line on a miss. Empty ways are
// filled first. The policy is only asked for a victim when the set is full.
func (d *tagArrayImpl) Access(req Request) Result {
	if block, hit := d.lookup(req.PID, req.Address); hit {
		return d.hit(block, req)
	}

	return d.fill(req)
}

func (d *tagArrayImpl) hit(block *Block, req Request) Result {
	block.ReadCount++
	if req.Type.IsWrite() {
		block.IsDirty = true
	}

	d.policy.Update(d.access(req, block, true, 0))

	return Result{
		Hit:   true,
		SetID: block.SetID,
		WayID: block.WayID,
	}
}

func (d *tagArrayImpl) fill(req Request) Result {
	set, setID := d.GetSet(req.Address)
	result := Result{SetID: setID}

	wayID, found := d.emptyWay(set)
	if !found {
		wayID = d.policy.FindVictim(setID)
	}

	block := &set.Blocks[wayID]
	if block.IsValid {
		result.Evicted = true
		result.EvictedAddress = block.Tag
		result.EvictedDirty = block.IsDirty
	}

	*block = Block{
		PID:     req.PID,
		Tag:     d.lineAddr(req.Address),
		SetID:   setID,
		WayID:   wayID,
		IsValid: true,
		IsDirty: req.Type.IsWrite(),
	}
	result.WayID = wayID

	d.policy.Update(d.access(req, block, false, result.EvictedAddress))

	return result
}

func (d *tagArrayImpl) emptyWay(set *Set) (int, bool) {
	for i, block := range set.Blocks {
		if !block.IsValid {
			return i, true
		}
	}

	return 0, false
}

func (d *tagArrayImpl) access(
	req Request,
	block *Block,
	hit bool,
	victimAddr uint64,
) replacement.Access {
	return replacement.Access{
		SetID:         block.SetID,
		WayID:         block.WayID,
		Hit:           hit,
		TriggeringCPU: req.CPU,
		InstrID:       req.InstrID,
		Address:       req.Address,
		PC:            req.PC,
		VictimAddress: victimAddr,
		Type:          req.Type,
	}
}

// Reset will mark all the blocks in the directory invalid. The replacement
// policy is reset with it so that both start from empty sets.
func (d *tagArrayImpl) Reset() {
	if d.Sets != nil {
		d.policy.Reset()
	}

	d.Sets = make([]Set, d.NumSets)
	for i := 0; i < d.NumSets; i++ {
		d.Sets[i].Blocks = make([]Block, d.NumWays)
		for j := 0; j < d.NumWays; j++ {
			d.Sets[i].Blocks[j] = Block{
				IsValid: false,
				SetID:   i,
				WayID:   j,
			}
		}
	}
}
