package util_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/backupqa/qa-agent/internal/util"
)

var _ = Describe("util", func() {
	Context("PtrOrNil", func() {
		It("returns nil for zero values", func() {
			Expect(util.PtrOrNil("")).To(BeNil())
			Expect(util.PtrOrNil(0)).To(BeNil())
		})

		It("returns a pointer for other values", func() {
			p := util.PtrOrNil("phase")
			Expect(p).NotTo(BeNil())
			Expect(*p).To(Equal("phase"))
		})
	})

	Context("Seconds", func() {
		It("rounds to two decimals", func() {
			Expect(util.Seconds(1234567 * time.Microsecond)).To(Equal(1.23))
			Expect(util.Seconds(0)).To(Equal(0.0))
		})
	})

	Context("Percent", func() {
		// Given a share of a total
		// When computing the percentage
		// Then it is rounded and safe on a zero total
		It("computes the percentage", func() {
			Expect(util.Percent(1, 2)).To(Equal(50.0))
			Expect(util.Percent(2, 3)).To(Equal(66.67))
			Expect(util.Percent(3, 0)).To(Equal(0.0))
		})
	})
})
