package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing = cache.NewMemoryBacking(memory)
		// Small cache for testing: 4KB, 4-way, 64B lines
		config := cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}
		c = cache.New(config, backing)
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			memory.Write32(0x1000, 0xDEADBEEF)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint32(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			memory.Write32(0x1000, 0xCAFEBABE)

			c.Read(0x1000, 4)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint32(0xCAFEBABE)))
			Expect(c.Stats().HitRate()).To(BeNumerically("==", 0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			memory.Write32(0x1000, 0x11111111)
			memory.Write32(0x1004, 0x22222222)

			c.Read(0x1000, 4)

			result := c.Read(0x1004, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x22222222)))
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used line when a set is full", func() {
			// 4KB / (4 * 64B) = 16 sets, so 0x400 apart maps to the same set.
			c.Read(0x0000, 4)
			c.Read(0x0400, 4)
			c.Read(0x0800, 4)
			c.Read(0x0C00, 4)

			Expect(c.Read(0x1000, 4).Hit).To(BeFalse())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))

			Expect(c.Read(0x0400, 4).Hit).To(BeTrue())
			Expect(c.Read(0x0000, 4).Hit).To(BeFalse())
		})
	})

	Describe("Coherence", func() {
		It("should serve stale data until the line is invalidated", func() {
			memory.Write32(0x2000, 0x00000013)
			c.Read(0x2000, 4)

			memory.Write32(0x2000, 0x0000006F)
			Expect(c.Read(0x2000, 4).Data).To(Equal(uint32(0x00000013)))

			c.Invalidate(0x2000)
			result := c.Read(0x2000, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Data).To(Equal(uint32(0x0000006F)))
		})

		It("should drop every line on flush", func() {
			c.Read(0x0000, 4)
			c.Read(0x1000, 4)

			c.Flush()

			Expect(c.Read(0x0000, 4).Hit).To(BeFalse())
			Expect(c.Read(0x1000, 4).Hit).To(BeFalse())
			Expect(c.Stats().Invalidate).To(Equal(uint64(2)))
		})
	})

	It("should clear statistics on reset", func() {
		c.Read(0x0000, 4)
		c.Reset()

		Expect(c.Stats()).To(Equal(cache.Statistics{}))
		Expect(c.Read(0x0000, 4).Hit).To(BeFalse())
	})

	Describe("Default configuration", func() {
		It("should create L1I config", func() {
			config := cache.DefaultL1IConfig()
			Expect(config.Size).To(Equal(4 * 1024))
			Expect(config.Associativity).To(Equal(2))
			Expect(config.BlockSize).To(Equal(16))
		})
	})
})
