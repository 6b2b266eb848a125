package replacement

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/hybridpolicy/sim/hooking"
)

func makeHighContention(p *Policy, setID int) {
	p.contention.evictions[setID] = HighContentionThreshold + 1
}

var _ = Describe("Policy", func() {
	var (
		mockCtrl *gomock.Controller
		p        *Policy
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		p = MakeBuilder().WithNumSets(8).WithNumWays(4).Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should build with zeroed state", func() {
		Expect(p.NumSets()).To(Equal(8))
		Expect(p.NumWays()).To(Equal(4))

		for setID := 0; setID < 8; setID++ {
			Expect(p.EvictionCount(setID)).To(BeZero())
			Expect(p.Classify(setID)).To(Equal(ContentionLow))
			for wayID := 0; wayID < 4; wayID++ {
				Expect(p.RecencyRank(setID, wayID)).To(BeZero())
				Expect(p.RRPV(setID, wayID)).To(BeZero())
			}
		}
	})

	It("should panic on invalid geometry", func() {
		Expect(func() { MakeBuilder().WithNumSets(0).Build() }).To(Panic())
		Expect(func() { MakeBuilder().WithNumWays(-1).Build() }).To(Panic())
	})

	It("should pick way 0 on an untouched set", func() {
		Expect(p.FindVictim(0)).To(Equal(0))
	})

	It("should count every victim request", func() {
		for i := uint64(1); i <= 20; i++ {
			p.FindVictim(5)
			Expect(p.EvictionCount(5)).To(Equal(i))
		}

		Expect(p.EvictionCount(4)).To(BeZero())
	})

	It("should switch to RRPV after the threshold", func() {
		hook := NewMockHook(mockCtrl)
		p.AcceptHook(hook)

		decisions := []Decision{}
		switches := 0
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				switch ctx.Pos {
				case HookPosVictimSelected:
					decisions = append(decisions, ctx.Item.(Decision))
				case HookPosModeSwitch:
					switches++
				}
			}).
			AnyTimes()

		for i := 0; i < HighContentionThreshold+1; i++ {
			p.FindVictim(3)
		}

		Expect(decisions).To(HaveLen(HighContentionThreshold + 1))
		for _, d := range decisions[:HighContentionThreshold] {
			Expect(d.Contention).To(Equal(ContentionLow))
		}

		last := decisions[HighContentionThreshold]
		Expect(last.Contention).To(Equal(ContentionHigh))
		Expect(last.EvictionCount).To(Equal(uint64(HighContentionThreshold + 1)))
		Expect(last.Aged).To(BeTrue())
		Expect(last.FellBack).To(BeTrue())
		Expect(last.WayID).To(Equal(0))
		Expect(switches).To(Equal(1))

		report := p.Finalize()
		Expect(report.LRUVictims).To(Equal(uint64(HighContentionThreshold)))
		Expect(report.RRPVVictims).To(Equal(uint64(1)))
		Expect(report.HighContentionSets).To(Equal(1))
	})

	It("should invoke the mode switch hook only once", func() {
		counter := hooking.NewPosCountTracer(nil)
		p.AcceptHook(counter)

		for i := 0; i < 3*HighContentionThreshold; i++ {
			p.FindVictim(1)
		}

		Expect(counter.GetPosCount(HookPosModeSwitch.Name)).To(Equal(uint64(1)))
		Expect(counter.GetPosCount(HookPosVictimSelected.Name)).
			To(Equal(uint64(3 * HighContentionThreshold)))
	})

	It("should evict the first way at the maximum RRPV", func() {
		makeHighContention(p, 2)
		copy(p.rrpv.set(2), []uint8{1, 3, 2, 0})

		Expect(p.FindVictim(2)).To(Equal(1))
	})

	It("should age a two-way set before evicting", func() {
		p = MakeBuilder().WithNumSets(1).WithNumWays(2).Build()
		makeHighContention(p, 0)
		copy(p.rrpv.set(0), []uint8{1, 2})

		Expect(p.FindVictim(0)).To(Equal(1))
		Expect(p.RRPV(0, 0)).To(Equal(uint8(2)))
		Expect(p.RRPV(0, 1)).To(Equal(uint8(3)))
		Expect(p.Finalize().AgingRounds).To(Equal(uint64(1)))
	})

	It("should promote hits and insert fills on high contention sets", func() {
		makeHighContention(p, 6)
		copy(p.rrpv.set(6), []uint8{3, 1, 3, 1})

		p.Update(Access{SetID: 6, WayID: 0, Hit: true})
		Expect(p.rrpv.set(6)).To(Equal([]uint8{0, 1, 3, 1}))

		p.Update(Access{SetID: 6, WayID: 3, Hit: false})
		Expect(p.rrpv.set(6)).To(Equal([]uint8{0, 1, 3, 2}))
	})

	It("should only update LRU ranks on low contention sets", func() {
		copy(p.lru.set(0), []uint32{0, 1, 2, 3})

		p.Update(Access{SetID: 0, WayID: 0, Hit: false})
		p.Update(Access{SetID: 0, WayID: 2, Hit: true})

		Expect(p.lru.set(0)).To(Equal([]uint32{2, 0, 3, 1}))
		Expect(p.rrpv.set(0)).To(Equal([]uint8{0, 0, 0, 0}))
		Expect(p.FindVictim(0)).To(Equal(1))
	})

	It("should keep updating LRU ranks on high contention sets", func() {
		makeHighContention(p, 7)
		copy(p.lru.set(7), []uint32{0, 1, 2, 3})

		p.Update(Access{SetID: 7, WayID: 1, Hit: true})

		Expect(p.lru.set(7)).To(Equal([]uint32{0, 3, 1, 2}))
	})

	It("should report the update with its contention", func() {
		hook := NewMockHook(mockCtrl)
		p.AcceptHook(hook)

		access := Access{SetID: 4, WayID: 2, Hit: true, PC: 0x400, Type: AccessLoad}
		hook.EXPECT().Func(hooking.HookCtx{
			Domain: p,
			Pos:    HookPosUpdated,
			Item:   access,
			Detail: ContentionLow,
		})

		p.Update(access)
	})

	It("should keep RRPVs in range on a busy set", func() {
		r := rand.New(rand.NewSource(7))
		makeHighContention(p, 0)

		for i := 0; i < 5000; i++ {
			wayID := p.FindVictim(0)
			Expect(wayID).To(BeNumerically("<", 4))

			for wayID := 0; wayID < 4; wayID++ {
				Expect(p.RRPV(0, wayID)).To(BeNumerically("<=", MaxRRPV))
			}

			p.Update(Access{SetID: 0, WayID: wayID})

			if r.Intn(2) == 0 {
				p.Update(Access{SetID: 0, WayID: r.Intn(4), Hit: true})
			}

			for wayID := 0; wayID < 4; wayID++ {
				Expect(p.RRPV(0, wayID)).To(BeNumerically("<=", MaxRRPV))
			}
		}
	})

	It("should count hits and fills in the report", func() {
		hook := NewMockHook(mockCtrl)
		hook.EXPECT().Func(gomock.Any()).AnyTimes()
		p.AcceptHook(hook)

		p.Update(Access{SetID: 0, WayID: 0})
		p.Update(Access{SetID: 0, WayID: 0, Hit: true})
		p.Update(Access{SetID: 0, WayID: 1, Hit: true})

		report := p.Finalize()
		Expect(report.Fills).To(Equal(uint64(1)))
		Expect(report.Hits).To(Equal(uint64(2)))
		Expect(report.LRUVictims).To(BeZero())
	})

	It("should reset all sets and keep the hooks", func() {
		counter := hooking.NewPosCountTracer(nil)
		p.AcceptHook(counter)
		makeHighContention(p, 1)
		p.FindVictim(1)
		p.Update(Access{SetID: 1, WayID: 0})

		p.Reset()

		Expect(p.EvictionCount(1)).To(BeZero())
		Expect(p.Classify(1)).To(Equal(ContentionLow))
		Expect(p.RecencyRank(1, 0)).To(BeZero())
		Expect(p.RRPV(1, 0)).To(BeZero())
		Expect(p.Finalize()).To(Equal(RunReport{}))
		Expect(p.NumHooks()).To(Equal(1))
	})

	It("should register hooks from the builder", func() {
		counter := hooking.NewPosCountTracer(nil)
		p = MakeBuilder().WithNumSets(1).WithNumWays(2).WithHook(counter).Build()

		p.FindVictim(0)
		p.Finalize()

		Expect(p.NumHooks()).To(Equal(1))
		Expect(counter.GetPosNames()).To(Equal([]string{
			HookPosVictimSelected.Name,
			HookPosFinalized.Name,
		}))
	})
})

var _ = Describe("AccessType", func() {
	It("should name the access types", func() {
		Expect(AccessLoad.String()).To(Equal("load"))
		Expect(AccessTranslation.String()).To(Equal("translation"))
		Expect(AccessType(42).String()).To(Equal("unknown"))
	})

	It("should tell writes", func() {
		Expect(AccessRFO.IsWrite()).To(BeTrue())
		Expect(AccessWriteback.IsWrite()).To(BeTrue())
		Expect(AccessLoad.IsWrite()).To(BeFalse())
		Expect(AccessPrefetch.IsWrite()).To(BeFalse())
	})
})
