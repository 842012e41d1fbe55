package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvfetch/insts"
)

var _ = Describe("Length", func() {
	DescribeTable("instruction length from the first halfword",
		func(half uint16, compressed bool, size uint32) {
			Expect(insts.IsCompressed(half)).To(Equal(compressed))
			Expect(insts.Length(half)).To(Equal(size))
		},
		Entry("quadrant 0", uint16(0x4000), true, uint32(2)),
		Entry("quadrant 1", uint16(0x0001), true, uint32(2)),
		Entry("quadrant 2", uint16(0x8082), true, uint32(2)),
		Entry("32-bit", uint16(0x0013), false, uint32(4)),
	)
})

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("32-bit instructions", func() {
		// JAL x0, 8 -> 0x0080006F
		It("should decode a forward JAL", func() {
			inst := decoder.Decode(0x0080006F)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatStandard))
			Expect(inst.Size).To(Equal(uint32(4)))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Offset).To(Equal(int32(8)))
			Expect(inst.IsDirectJump()).To(BeTrue())
			Expect(inst.Target(0x1000)).To(Equal(uint32(0x1008)))
		})

		// JAL x1, -4 -> 0xFFDFF0EF
		It("should decode a backward JAL with link", func() {
			inst := decoder.Decode(0xFFDFF0EF)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Offset).To(Equal(int32(-4)))
			Expect(inst.Target(0x1000)).To(Equal(uint32(0x0FFC)))
		})

		// BEQ x0, x0, 16 -> 0x00000863
		It("should decode a conditional branch", func() {
			inst := decoder.Decode(0x00000863)

			Expect(inst.Op).To(Equal(insts.OpBranch))
			Expect(inst.Offset).To(Equal(int32(16)))
			Expect(inst.IsDirectJump()).To(BeFalse())
		})

		// JALR x0, 0(x1) -> 0x00008067
		It("should decode an indirect jump", func() {
			inst := decoder.Decode(0x00008067)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.IsDirectJump()).To(BeFalse())
		})

		It("should decode ECALL and EBREAK", func() {
			Expect(decoder.Decode(0x00000073).Op).To(Equal(insts.OpECALL))
			Expect(decoder.Decode(0x00100073).Op).To(Equal(insts.OpEBREAK))
			Expect(decoder.Decode(0x00100073).IsHalt()).To(BeTrue())
		})

		It("should classify everything else as other", func() {
			inst := decoder.Decode(0x00000013) // ADDI x0, x0, 0

			Expect(inst.Op).To(Equal(insts.OpOther))
			Expect(inst.IsHalt()).To(BeFalse())
		})
	})

	Describe("compressed instructions", func() {
		// C.J 8 -> 0xA021
		It("should decode a forward C.J", func() {
			inst := decoder.Decode(0xFFFFA021)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatCompressed))
			Expect(inst.Size).To(Equal(uint32(2)))
			Expect(inst.Offset).To(Equal(int32(8)))
		})

		// C.J -2 -> 0xBFFD
		It("should decode a backward C.J", func() {
			inst := decoder.Decode(0xBFFD)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Offset).To(Equal(int32(-2)))
			Expect(inst.Target(0x200)).To(Equal(uint32(0x1FE)))
		})

		// C.JAL 8 -> 0x2021
		It("should decode C.JAL with link to x1", func() {
			inst := decoder.Decode(0x2021)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Offset).To(Equal(int32(8)))
		})

		// C.BEQZ a0, 8 -> 0xC501
		It("should decode C.BEQZ", func() {
			inst := decoder.Decode(0xC501)

			Expect(inst.Op).To(Equal(insts.OpBranch))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Offset).To(Equal(int32(8)))
		})

		It("should decode C.JR and C.EBREAK", func() {
			ret := decoder.Decode(0x8082)
			Expect(ret.Op).To(Equal(insts.OpJALR))
			Expect(ret.Rs1).To(Equal(uint8(1)))

			Expect(decoder.Decode(0x9002).Op).To(Equal(insts.OpEBREAK))
		})

		It("should flag the all-zero halfword as illegal", func() {
			Expect(decoder.Decode(0x0000).Op).To(Equal(insts.OpIllegal))
		})
	})

	It("should name operations", func() {
		Expect(insts.OpJAL.String()).To(Equal("jal"))
	})
})
