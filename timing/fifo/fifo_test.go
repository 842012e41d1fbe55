package fifo_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvfetch/timing/fifo"
)

func fetch(data uint32) fifo.FetchResp {
	return fifo.FetchResp{Valid: true, Data: data}
}

func redirect(addr uint32) fifo.Inputs {
	return fifo.Inputs{Clear: true, Fetch: fifo.FetchResp{Addr: addr}}
}

var _ = Describe("Queue", func() {
	It("should start empty and packed", func() {
		q := fifo.NewQueue(3)
		Expect(q.Depth()).To(Equal(3))
		Expect(q.Count()).To(Equal(0))
		Expect(q.Empty()).To(BeTrue())
		Expect(q.Full()).To(BeFalse())
		Expect(q.Packed()).To(BeTrue())
	})

	It("should reject a depth below two", func() {
		Expect(func() { fifo.NewQueue(1) }).To(Panic())
	})
})

var _ = Describe("FIFO", func() {
	var f *fifo.FIFO

	BeforeEach(func() {
		f = fifo.New(fifo.DefaultConfig())
	})

	It("should report depth and busy width from the config", func() {
		Expect(f.Queue().Depth()).To(Equal(3))
		Expect(f.Busy()).To(HaveLen(2))
	})

	Describe("bypass", func() {
		It("should deliver an incoming fetch with zero latency", func() {
			out := f.Tick(fifo.Inputs{Fetch: fetch(0x00000013), Ready: true})

			Expect(out.Valid).To(BeTrue())
			Expect(out.Bypassed).To(BeTrue())
			Expect(out.Data).To(Equal(uint32(0x00000013)))
			Expect(out.Addr).To(Equal(uint32(0)))
			Expect(f.Queue().Empty()).To(BeTrue())
			Expect(f.Addr()).To(Equal(uint32(4)))
			Expect(f.Stats().Pushes).To(Equal(uint64(0)))
			Expect(f.Stats().Bypassed).To(Equal(uint64(1)))
		})

		It("should keep the word when only its lower half is consumed", func() {
			out := f.Tick(fifo.Inputs{Fetch: fetch(0x00050001), Ready: true})

			Expect(out.Bypassed).To(BeTrue())
			Expect(out.Compressed).To(BeTrue())
			Expect(out.NextAddr).To(Equal(uint32(2)))
			Expect(f.Queue().Count()).To(Equal(1))
			Expect(f.Addr()).To(Equal(uint32(2)))

			out = f.Tick(fifo.Inputs{Ready: true})
			Expect(out.Valid).To(BeTrue())
			Expect(out.Bypassed).To(BeFalse())
			Expect(out.Addr).To(Equal(uint32(2)))
			Expect(out.Compressed).To(BeTrue())
			Expect(out.Data & 0xFFFF).To(Equal(uint32(0x0005)))
			Expect(f.Queue().Empty()).To(BeTrue())
			Expect(f.Addr()).To(Equal(uint32(4)))
		})
	})

	Describe("Eval", func() {
		It("should not change state", func() {
			out := f.Eval(fifo.Inputs{Fetch: fetch(0x00000013), Ready: true})
			Expect(out.Valid).To(BeTrue())
			Expect(f.Queue().Empty()).To(BeTrue())
			Expect(f.Addr()).To(Equal(uint32(0)))
			Expect(f.Stats().Cycles).To(Equal(uint64(0)))
		})
	})

	Describe("straddling instructions", func() {
		const first uint32 = 0x00130001
		const second uint32 = 0xABCD0000

		It("should join the queued word with the incoming word", func() {
			f.Tick(fifo.Inputs{Fetch: fetch(first), Ready: true})
			Expect(f.Addr()).To(Equal(uint32(2)))

			out := f.Tick(fifo.Inputs{Ready: true})
			Expect(out.Valid).To(BeFalse())
			Expect(f.Addr()).To(Equal(uint32(2)))

			out = f.Tick(fifo.Inputs{Fetch: fetch(second), Ready: true})
			Expect(out.Valid).To(BeTrue())
			Expect(out.Selection).To(Equal(fifo.SelectSlot0Incoming))
			Expect(out.Data).To(Equal(uint32(0x00000013)))
			Expect(out.Addr).To(Equal(uint32(2)))
			Expect(f.Addr()).To(Equal(uint32(6)))
			Expect(f.Queue().Count()).To(Equal(1))
			Expect(f.Queue().Slot(0).Data).To(Equal(second))

			out = f.Tick(fifo.Inputs{Ready: true})
			Expect(out.Valid).To(BeTrue())
			Expect(out.Compressed).To(BeTrue())
			Expect(out.Data & 0xFFFF).To(Equal(uint32(0xABCD)))
			Expect(f.Queue().Empty()).To(BeTrue())
			Expect(f.Addr()).To(Equal(uint32(8)))
			Expect(f.Stats().Straddled).To(Equal(uint64(1)))
		})

		It("should join slot 0 with slot 1", func() {
			f.Tick(redirect(2))
			f.Tick(fifo.Inputs{Fetch: fetch(first)})
			f.Tick(fifo.Inputs{Fetch: fetch(second)})
			Expect(f.Queue().Count()).To(Equal(2))

			out := f.Tick(fifo.Inputs{Ready: true})
			Expect(out.Selection).To(Equal(fifo.SelectSlot0Slot1))
			Expect(out.Data).To(Equal(uint32(0x00000013)))
			Expect(f.Addr()).To(Equal(uint32(6)))
			Expect(f.Queue().Count()).To(Equal(1))
		})

		It("should attribute a fault in the second word to the +2 half", func() {
			f.Tick(redirect(2))
			f.Tick(fifo.Inputs{Fetch: fetch(first)})
			bad := fetch(second)
			bad.Err = true
			f.Tick(fifo.Inputs{Fetch: bad})

			out := f.Tick(fifo.Inputs{Ready: true})
			Expect(out.Err).To(BeTrue())
			Expect(out.ErrPlus2).To(BeTrue())
		})

		It("should attribute a fault in the first word to the instruction", func() {
			f.Tick(redirect(2))
			bad := fetch(first)
			bad.Err = true
			f.Tick(fifo.Inputs{Fetch: bad})
			f.Tick(fifo.Inputs{Fetch: fetch(second)})

			out := f.Tick(fifo.Inputs{Ready: true})
			Expect(out.Err).To(BeTrue())
			Expect(out.ErrPlus2).To(BeFalse())
			Expect(out.Compressed).To(BeFalse())
		})
	})

	Describe("address tracking", func() {
		It("should advance by 2 and 4", func() {
			f.Tick(redirect(0x100))
			f.Tick(fifo.Inputs{Fetch: fetch(0x00000013), Ready: true})
			Expect(f.Addr()).To(Equal(uint32(0x104)))

			f.Tick(fifo.Inputs{Fetch: fetch(0x00010001), Ready: true})
			Expect(f.Addr()).To(Equal(uint32(0x106)))
		})

		It("should hold the address while the decode stage stalls", func() {
			f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			Expect(f.Addr()).To(Equal(uint32(0)))
			Expect(f.Queue().Count()).To(Equal(1))
		})

		It("should reload on clear regardless of the previous value", func() {
			f.Tick(fifo.Inputs{Fetch: fetch(0x00000013), Ready: true})
			f.Tick(redirect(0x2001))
			Expect(f.Addr()).To(Equal(uint32(0x2000)))
		})
	})

	Describe("clear", func() {
		It("should flush every slot and discard a concurrent fetch", func() {
			f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			Expect(f.Queue().Count()).To(Equal(2))

			in := redirect(0x400)
			in.Fetch.Valid = true
			in.Fetch.Data = 0x00000013
			in.Ready = true
			f.Tick(in)

			Expect(f.Queue().Empty()).To(BeTrue())
			Expect(f.Addr()).To(Equal(uint32(0x400)))
			Expect(f.Stats().Discarded).To(Equal(uint64(1)))
			Expect(f.Stats().Retired).To(Equal(uint64(0)))
		})

		It("should win over a push into a full queue", func() {
			for i := 0; i < 3; i++ {
				f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			}
			Expect(f.Queue().Full()).To(BeTrue())

			in := redirect(0)
			in.Fetch.Valid = true
			Expect(func() { f.Tick(in) }).NotTo(Panic())
			Expect(f.Queue().Empty()).To(BeTrue())
		})
	})

	Describe("overflow", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			}
			Expect(f.Queue().Full()).To(BeTrue())
			Expect(f.Busy()).To(Equal([]bool{true, true}))
		})

		It("should panic on a push into a full queue", func() {
			Expect(func() {
				f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			}).To(Panic())
		})

		It("should accept a push when the queue pops in the same cycle", func() {
			Expect(func() {
				f.Tick(fifo.Inputs{Fetch: fetch(0x0000AAAB), Ready: true})
			}).NotTo(Panic())
			Expect(f.Queue().Full()).To(BeTrue())
			Expect(f.Queue().Slot(2).Data).To(Equal(uint32(0x0000AAAB)))
		})
	})

	Describe("busy", func() {
		It("should track the top slots only", func() {
			f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			Expect(f.Busy()).To(Equal([]bool{false, false}))
			Expect(f.BusyCount()).To(Equal(0))

			out := f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
			Expect(out.Busy).To(Equal([]bool{false, false}))
			Expect(f.Busy()).To(Equal([]bool{true, false}))
			Expect(f.BusyCount()).To(Equal(1))
		})
	})

	Describe("unaligned injection", func() {
		BeforeEach(func() {
			f = fifo.New(fifo.Config{NumReqs: 2, UnalignedInjection: true})
		})

		It("should pop one instruction per entry", func() {
			f.Tick(redirect(2))
			out := f.Tick(fifo.Inputs{Fetch: fetch(0x00000001), Ready: true})

			Expect(out.Valid).To(BeTrue())
			Expect(out.Compressed).To(BeTrue())
			Expect(f.Queue().Empty()).To(BeTrue())
			Expect(f.Addr()).To(Equal(uint32(4)))
		})
	})

	It("should reset to power-on state", func() {
		f.Tick(fifo.Inputs{Fetch: fetch(0x00000013)})
		f.Tick(redirect(0x80))
		f.Reset()

		Expect(f.Queue().Empty()).To(BeTrue())
		Expect(f.Addr()).To(Equal(uint32(0)))
		Expect(f.Stats()).To(Equal(fifo.Statistics{}))
	})

	DescribeTable("instruction stream reassembly",
		func(numReqs int, seed int64) {
			rng := rand.New(rand.NewSource(seed))
			f = fifo.New(fifo.Config{NumReqs: numReqs})

			type inst struct {
				addr uint32
				word uint32
				size uint32
			}

			var stream []inst
			var halves []uint16
			var addr uint32
			for len(stream) < 200 {
				if rng.Intn(2) == 0 {
					h := uint16(rng.Intn(0x10000))
					if h&3 == 3 {
						h &^= 1
					}
					stream = append(stream, inst{addr, uint32(h), 2})
					halves = append(halves, h)
					addr += 2
				} else {
					w := rng.Uint32() | 3
					stream = append(stream, inst{addr, w, 4})
					halves = append(halves, uint16(w), uint16(w>>16))
					addr += 4
				}
			}
			if len(halves)%2 == 1 {
				stream = append(stream, inst{addr, 1, 2})
				halves = append(halves, 1)
			}

			var words []uint32
			for i := 0; i < len(halves); i += 2 {
				words = append(words, uint32(halves[i])|uint32(halves[i+1])<<16)
			}

			var retired []inst
			next := 0
			for cycle := 0; cycle < 10000 && len(retired) < len(stream); cycle++ {
				in := fifo.Inputs{Ready: rng.Intn(3) != 0}
				if next < len(words) && !f.Queue().Full() && rng.Intn(4) != 0 {
					in.Fetch = fetch(words[next])
					next++
				}

				out := f.Tick(in)
				Expect(f.Queue().Packed()).To(BeTrue())

				if out.Valid && in.Ready {
					word := out.Data
					size := uint32(4)
					if out.Compressed {
						word &= 0xFFFF
						size = 2
					}
					retired = append(retired, inst{out.Addr, word, size})
				}
			}

			Expect(retired).To(Equal(stream))
			Expect(f.Queue().Empty()).To(BeTrue())
		},
		Entry("single request", 1, int64(1)),
		Entry("two requests", 2, int64(2)),
		Entry("four requests", 4, int64(3)),
	)
})
