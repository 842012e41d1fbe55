package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvfetch/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read zero from unwritten locations", func() {
		Expect(memory.Read32(0x8000)).To(Equal(uint32(0)))
	})

	It("should store words little-endian", func() {
		memory.Write32(0x1000, 0xDEADBEEF)

		Expect(memory.Read8(0x1000)).To(Equal(byte(0xEF)))
		Expect(memory.Read8(0x1003)).To(Equal(byte(0xDE)))
		Expect(memory.Read16(0x1002)).To(Equal(uint16(0xDEAD)))
	})

	It("should read words across a page boundary", func() {
		memory.Write32(0x0FFE, 0x12345678)
		Expect(memory.Read32(0x0FFE)).To(Equal(uint32(0x12345678)))
		Expect(memory.Read16(0x1000)).To(Equal(uint16(0x1234)))
	})

	It("should zero-fill a segment beyond its file data", func() {
		memory.Write32(0x2004, 0xFFFFFFFF)
		memory.LoadSegment(0x2000, []byte{0x13, 0x00, 0x00, 0x00}, 8)

		Expect(memory.Read32(0x2000)).To(Equal(uint32(0x13)))
		Expect(memory.Read32(0x2004)).To(Equal(uint32(0)))
	})

	It("should discard contents on reset", func() {
		memory.Write32(0x1000, 1)
		memory.Reset()
		Expect(memory.Read32(0x1000)).To(Equal(uint32(0)))
	})
})

var _ = Describe("FetchPort", func() {
	var (
		memory *emu.Memory
		port   *emu.FetchPort
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		port = emu.NewFetchPort(memory)
		memory.Write32(0x1000, 0x00010013)
		memory.Write32(0x1004, 0x0080006F)
	})

	It("should fetch the aligned word containing the address", func() {
		r := port.Fetch(0x1006)

		Expect(r.Addr).To(Equal(uint32(0x1004)))
		Expect(r.Data).To(Equal(uint32(0x0080006F)))
		Expect(r.Err).To(BeFalse())
		Expect(r.Code).To(Equal(emu.ExcNone))
	})

	It("should fetch whole instructions at halfword addresses", func() {
		r := port.FetchInstruction(0x1002)

		Expect(r.Addr).To(Equal(uint32(0x1002)))
		Expect(r.Data).To(Equal(uint32(0x006F0001)))
	})

	It("should raise an access fault inside a fault region", func() {
		port.AddFaultRegion(0x1004, 0x1008, emu.ExcAccessFault)

		Expect(port.Fetch(0x1000).Err).To(BeFalse())

		r := port.Fetch(0x1004)
		Expect(r.Err).To(BeTrue())
		Expect(r.Data).To(Equal(uint32(0)))
		Expect(r.Code).To(Equal(emu.ExcAccessFault))
	})

	Context("with execute bounds", func() {
		BeforeEach(func() {
			port.SetBounds(0x1002, 0x1006, emu.ExcBoundsViolation)
		})

		It("should flag the lower halfword below the base", func() {
			r := port.Fetch(0x1000)
			Expect(r.LowerErr).To(BeTrue())
			Expect(r.UpperErr).To(BeFalse())
			Expect(r.Code).To(Equal(emu.ExcBoundsViolation))
		})

		It("should flag the upper halfword at the top", func() {
			r := port.Fetch(0x1004)
			Expect(r.LowerErr).To(BeFalse())
			Expect(r.UpperErr).To(BeTrue())
		})

		It("should check the halfword after the requested address", func() {
			r := port.FetchInstruction(0x1002)
			Expect(r.LowerErr).To(BeFalse())
			Expect(r.UpperErr2).To(BeFalse())

			r = port.FetchInstruction(0x1004)
			Expect(r.UpperErr2).To(BeTrue())
		})

		It("should drop all checks on ClearFaults", func() {
			port.ClearFaults()
			r := port.Fetch(0x1000)
			Expect(r.LowerErr || r.UpperErr || r.Err).To(BeFalse())
		})
	})

	It("should name exception codes", func() {
		Expect(emu.ExcBoundsViolation.String()).To(Equal("bounds-violation"))
	})
})
