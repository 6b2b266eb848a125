package replacement

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Contention Tracker", func() {
	var t *contentionTracker

	BeforeEach(func() {
		t = newContentionTracker(4)
	})

	It("should start every set at low contention", func() {
		for setID := 0; setID < 4; setID++ {
			Expect(t.count(setID)).To(BeZero())
			Expect(t.classify(setID)).To(Equal(ContentionLow))
		}
	})

	It("should count one per eviction attempt", func() {
		for i := uint64(1); i <= 10; i++ {
			Expect(t.recordEvictionAttempt(2)).To(Equal(i))
		}

		Expect(t.count(2)).To(Equal(uint64(10)))
		Expect(t.count(1)).To(BeZero())
	})

	It("should switch only after exceeding the threshold", func() {
		for i := 0; i < HighContentionThreshold; i++ {
			t.recordEvictionAttempt(0)
		}
		Expect(t.classify(0)).To(Equal(ContentionLow))

		t.recordEvictionAttempt(0)
		Expect(t.classify(0)).To(Equal(ContentionHigh))
		Expect(t.numHighSets()).To(Equal(1))
	})

	It("should never go back to low contention", func() {
		for i := 0; i < 2*HighContentionThreshold; i++ {
			t.recordEvictionAttempt(3)
			if i >= HighContentionThreshold {
				Expect(t.classify(3)).To(Equal(ContentionHigh))
			}
		}
	})

	It("should name the classes", func() {
		Expect(ContentionLow.String()).To(Equal("low"))
		Expect(ContentionHigh.String()).To(Equal("high"))
	})
})
