// Package prefetch models the fetch requester that feeds the realignment
// buffer with word-aligned fetch responses.
package prefetch

import (
	"fmt"

	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/insts"
	"github.com/sarchlab/rvfetch/timing/cache"
	"github.com/sarchlab/rvfetch/timing/fifo"
)

// Config holds prefetcher configuration parameters.
type Config struct {
	// NumReqs is the maximum number of outstanding requests. It must match
	// the buffer's NumReqs.
	NumReqs int

	// BusLatency is the number of cycles from request to response when no
	// instruction cache is attached. Must be >= 1.
	BusLatency uint64

	// Injection makes every request fetch one whole instruction at its
	// exact address, for harnesses driving the buffer in injection mode.
	Injection bool
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NumReqs < 1 {
		return fmt.Errorf("num_reqs must be >= 1, got %d", c.NumReqs)
	}
	if c.BusLatency == 0 {
		return fmt.Errorf("bus_latency must be > 0")
	}
	return nil
}

// Statistics holds prefetcher counters.
type Statistics struct {
	// Requests is the number of requests issued.
	Requests uint64
	// Responses is the number of responses delivered to the buffer.
	Responses uint64
	// Discarded is the number of responses dropped after a redirect.
	Discarded uint64
	// BusyStalls is the number of cycles a request was held back because
	// the buffer had no room for it.
	BusyStalls uint64
}

// request is an outstanding bus request.
type request struct {
	result    emu.FetchResult
	remaining uint64
	discard   bool
}

// Option configures a Prefetcher.
type Option func(*Prefetcher)

// WithICache fetches through the given instruction cache. The cache
// latency replaces the bus latency for requests that do not fault.
func WithICache(c *cache.Cache) Option {
	return func(p *Prefetcher) {
		p.icache = c
	}
}

// Prefetcher issues sequential fetch requests and returns their responses
// in order, one per cycle.
type Prefetcher struct {
	config Config
	port   *emu.FetchPort
	icache *cache.Cache

	enabled     bool
	fetchAddr   uint32
	outstanding []request

	stats Statistics
}

// New creates a prefetcher reading through port. It stays idle until the
// first redirect.
func New(config Config, port *emu.FetchPort, opts ...Option) *Prefetcher {
	p := &Prefetcher{
		config: config,
		port:   port,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ICache returns the attached instruction cache, or nil.
func (p *Prefetcher) ICache() *cache.Cache {
	return p.icache
}

// FetchAddr returns the address of the next request.
func (p *Prefetcher) FetchAddr() uint32 {
	return p.fetchAddr
}

// Outstanding returns the number of requests on the bus, discarded ones
// included.
func (p *Prefetcher) Outstanding() int {
	return len(p.outstanding)
}

// Stats returns the prefetcher statistics.
func (p *Prefetcher) Stats() Statistics {
	return p.stats
}

// Stop stops issuing new requests. Outstanding requests still complete.
func (p *Prefetcher) Stop() {
	p.enabled = false
}

// Reset drops all requests and statistics and stops fetching.
func (p *Prefetcher) Reset() {
	p.enabled = false
	p.fetchAddr = 0
	p.outstanding = nil
	p.stats = Statistics{}
}

// Tick advances the bus by one cycle and returns the response delivered in
// this cycle.
//
// busyCount is the number of busy top slots the buffer reported at the
// start of the cycle. When redirect is set, every outstanding request is
// discarded, fetching restarts at target and the returned response carries
// target as its address so the buffer can reload from it.
func (p *Prefetcher) Tick(busyCount int, redirect bool, target uint32) fifo.FetchResp {
	inflight := p.inflight()
	resp := p.deliver()

	if redirect {
		for i := range p.outstanding {
			p.outstanding[i].discard = true
		}
		p.fetchAddr = p.align(target)
		p.enabled = true
		// The buffer is cleared in this cycle.
		busyCount, inflight = 0, 0
		resp.Addr = target
	}

	p.issue(busyCount, inflight)

	return resp
}

// inflight counts outstanding requests whose data will reach the buffer.
func (p *Prefetcher) inflight() int {
	n := 0
	for _, r := range p.outstanding {
		if !r.discard {
			n++
		}
	}
	return n
}

// deliver counts down every request and pops the head once it completes.
func (p *Prefetcher) deliver() fifo.FetchResp {
	for i := range p.outstanding {
		if p.outstanding[i].remaining > 0 {
			p.outstanding[i].remaining--
		}
	}

	if len(p.outstanding) == 0 || p.outstanding[0].remaining > 0 {
		return fifo.FetchResp{}
	}

	head := p.outstanding[0]
	p.outstanding = p.outstanding[1:]

	if head.discard {
		p.stats.Discarded++
		return fifo.FetchResp{}
	}

	p.stats.Responses++
	r := head.result
	return fifo.FetchResp{
		Valid:     true,
		Addr:      r.Addr,
		Data:      r.Data,
		Err:       r.Err,
		ExcTag:    fifo.ExceptionTag(r.Code),
		LowerErr:  r.LowerErr,
		UpperErr:  r.UpperErr,
		UpperErr2: r.UpperErr2,
	}
}

// issue sends a new request if the bus and the buffer have room for it.
func (p *Prefetcher) issue(busyCount, inflight int) {
	if !p.enabled || len(p.outstanding) >= p.config.NumReqs {
		return
	}

	if busyCount+inflight >= p.config.NumReqs {
		p.stats.BusyStalls++
		return
	}

	req := request{remaining: p.config.BusLatency}

	if p.config.Injection {
		req.result = p.port.FetchInstruction(p.fetchAddr)
		p.fetchAddr += insts.Length(uint16(req.result.Data))
	} else {
		req.result = p.port.Fetch(p.fetchAddr)
		if p.icache != nil && !req.result.Err {
			access := p.icache.Read(req.result.Addr, 4)
			req.result.Data = access.Data
			req.remaining = access.Latency
		}
		p.fetchAddr += 4
	}

	if req.remaining == 0 {
		req.remaining = 1
	}

	p.outstanding = append(p.outstanding, req)
	p.stats.Requests++
}

func (p *Prefetcher) align(addr uint32) uint32 {
	if p.config.Injection {
		return addr &^ 1
	}
	return addr &^ 3
}
