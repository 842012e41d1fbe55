// Package core provides the cycle-accurate fetch front-end model.
// It connects the prefetcher, the realignment buffer and a decode stage that
// consumes instructions and redirects the stream on jumps and faults.
package core

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvfetch/emu"
	"github.com/sarchlab/rvfetch/insts"
	"github.com/sarchlab/rvfetch/timing/cache"
	"github.com/sarchlab/rvfetch/timing/config"
	"github.com/sarchlab/rvfetch/timing/fifo"
	"github.com/sarchlab/rvfetch/timing/prefetch"
)

// HaltReason tells why the core stopped.
type HaltReason uint8

// Halt reasons.
const (
	HaltNone HaltReason = iota
	HaltEnvironmentCall
	HaltIllegal
	HaltFault
	HaltInstructionLimit
	HaltCycleLimit
)

// String returns the halt reason name.
func (r HaltReason) String() string {
	switch r {
	case HaltNone:
		return "running"
	case HaltEnvironmentCall:
		return "environment call"
	case HaltIllegal:
		return "illegal instruction"
	case HaltFault:
		return "fetch fault"
	case HaltInstructionLimit:
		return "instruction limit"
	case HaltCycleLimit:
		return "cycle limit"
	default:
		return "unknown"
	}
}

// Retired is an instruction accepted by the decode stage.
type Retired struct {
	Addr      uint32
	Word      uint32
	Length    uint32
	Err       bool
	ErrPlus2  bool
	LengthErr bool
	ExcTag    fifo.ExceptionTag
}

// Faulted reports whether the instruction carries any fetch exception.
func (r Retired) Faulted() bool {
	return r.Err || r.LengthErr
}

// FaultAddr returns the address of the halfword that faulted.
func (r Retired) FaultAddr() uint32 {
	if r.ErrPlus2 {
		return r.Addr + 2
	}
	return r.Addr
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Compressed is the number of retired 2-byte instructions.
	Compressed uint64
	// Straddled is the number of retired instructions joined from two
	// fetches.
	Straddled uint64
	// Bypassed is the number of retired instructions taken from the bypass.
	Bypassed uint64
	// Stalls is the number of cycles without an instruction to decode.
	Stalls uint64
	// Redirects is the number of times the fetch stream was restarted.
	Redirects uint64
	// Faults is the number of retired instructions with a fetch exception.
	Faults uint64

	FIFO     fifo.Statistics
	Prefetch prefetch.Statistics
	ICache   cache.Statistics
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// CompressedRatio returns the share of retired instructions that were
// compressed.
func (s Stats) CompressedRatio() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Compressed) / float64(s.Instructions)
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger used for tracing.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Core) {
		c.log = logger
	}
}

// WithICache fetches through an instruction cache with the given
// configuration, regardless of the ICacheEnabled setting.
func WithICache(cfg cache.Config) Option {
	return func(c *Core) {
		c.icache = cache.New(cfg, cache.NewMemoryBacking(c.port.Memory()))
	}
}

// WithRetireHook calls fn for every retired instruction.
func WithRetireHook(fn func(Retired)) Option {
	return func(c *Core) {
		c.onRetire = fn
	}
}

// Core represents the fetch front end together with its decode-stage
// consumer.
type Core struct {
	config     *config.FrontendConfig
	port       *emu.FetchPort
	fifo       *fifo.FIFO
	prefetcher *prefetch.Prefetcher
	icache     *cache.Cache
	decoder    *insts.Decoder
	log        logrus.FieldLogger
	onRetire   func(Retired)

	redirect bool
	target   uint32

	halted  bool
	reason  HaltReason
	retired []Retired
	stats   Stats
}

// NewCore creates a core fetching through port. The configuration must be
// valid. The core stays idle until SetPC is called.
func NewCore(cfg *config.FrontendConfig, port *emu.FetchPort, opts ...Option) *Core {
	c := &Core{
		config:  cfg.Clone(),
		port:    port,
		fifo:    fifo.New(cfg.FIFOConfig()),
		decoder: insts.NewDecoder(),
		log:     logrus.StandardLogger(),
	}

	if cfg.ICacheEnabled {
		c.icache = cache.New(cfg.ICache, cache.NewMemoryBacking(port.Memory()))
	}

	for _, opt := range opts {
		opt(c)
	}

	var prefetchOpts []prefetch.Option
	if c.icache != nil {
		prefetchOpts = append(prefetchOpts, prefetch.WithICache(c.icache))
	}
	c.prefetcher = prefetch.New(cfg.PrefetchConfig(), port, prefetchOpts...)

	return c
}

// Config returns the core configuration.
func (c *Core) Config() *config.FrontendConfig {
	return c.config
}

// FIFO returns the realignment buffer.
func (c *Core) FIFO() *fifo.FIFO {
	return c.fifo
}

// Prefetcher returns the fetch requester.
func (c *Core) Prefetcher() *prefetch.Prefetcher {
	return c.prefetcher
}

// ICache returns the instruction cache, or nil.
func (c *Core) ICache() *cache.Cache {
	return c.icache
}

// SetPC restarts fetching at pc on the next tick.
func (c *Core) SetPC(pc uint32) {
	c.redirect = true
	c.target = pc
}

// Halted returns true if the core has stopped.
func (c *Core) Halted() bool {
	return c.halted
}

// HaltReason returns why the core stopped.
func (c *Core) HaltReason() HaltReason {
	return c.reason
}

// Retired returns the instructions retired so far, oldest first.
func (c *Core) Retired() []Retired {
	return c.retired
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.stats
	s.FIFO = c.fifo.Stats()
	s.Prefetch = c.prefetcher.Stats()
	if c.icache != nil {
		s.ICache = c.icache.Stats()
	}
	return s
}

// Run executes the core until it halts and returns the reason.
func (c *Core) Run() HaltReason {
	for !c.halted {
		c.Tick()
	}
	return c.reason
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.halted; i++ {
		c.Tick()
	}
	return !c.halted
}

// Reset clears all core state. Memory contents are kept.
func (c *Core) Reset() {
	c.fifo.Reset()
	c.prefetcher.Reset()
	if c.icache != nil {
		c.icache.Reset()
	}
	c.redirect = false
	c.target = 0
	c.halted = false
	c.reason = HaltNone
	c.retired = nil
	c.stats = Stats{}
}

// Tick simulates one cycle.
//
// A redirect requested in the previous cycle is applied first: the
// prefetcher drops its outstanding requests and the buffer is cleared with
// the target address. The decode stage does not accept during that cycle.
func (c *Core) Tick() {
	if c.halted {
		return
	}

	c.stats.Cycles++

	redirect, target := c.redirect, c.target
	c.redirect = false
	if redirect {
		c.stats.Redirects++
	}

	resp := c.prefetcher.Tick(c.fifo.BusyCount(), redirect, target)
	ready := !redirect && c.ready()

	out := c.fifo.Tick(fifo.Inputs{
		Fetch: resp,
		Clear: redirect,
		Ready: ready,
	})

	c.trace(resp, out, redirect, ready)

	if !redirect && !out.Valid {
		c.stats.Stalls++
	}

	if ready && out.Valid {
		c.retire(out)
	}

	if !c.halted && c.stats.Cycles >= c.config.MaxCycles {
		c.halt(HaltCycleLimit)
	}
}

// ready models a decode stage that refuses one cycle out of every
// StallEvery.
func (c *Core) ready() bool {
	n := uint64(c.config.StallEvery)
	return n == 0 || c.stats.Cycles%n != 0
}

func (c *Core) retire(out fifo.Outputs) {
	r := Retired{
		Addr:      out.Addr,
		Word:      out.Data,
		Length:    4,
		Err:       out.Err,
		ErrPlus2:  out.ErrPlus2,
		LengthErr: out.LengthErr,
		ExcTag:    out.ExcTag,
	}
	if out.Compressed {
		r.Word &= 0xFFFF
		r.Length = 2
	}

	c.retired = append(c.retired, r)
	c.stats.Instructions++
	if out.Compressed {
		c.stats.Compressed++
	}
	if out.Bypassed {
		c.stats.Bypassed++
	}
	if out.Selection == fifo.SelectSlot0Slot1 || out.Selection == fifo.SelectSlot0Incoming {
		c.stats.Straddled++
	}

	if c.onRetire != nil {
		c.onRetire(r)
	}

	c.execute(r)

	if !c.halted && c.config.MaxInstructions > 0 &&
		c.stats.Instructions >= c.config.MaxInstructions {
		c.halt(HaltInstructionLimit)
	}
}

// execute applies the control-flow effect of a retired instruction.
func (c *Core) execute(r Retired) {
	if r.Faulted() {
		c.stats.Faults++
		c.log.WithFields(logrus.Fields{
			"addr":       fmt.Sprintf("0x%08x", r.Addr),
			"fault_addr": fmt.Sprintf("0x%08x", r.FaultAddr()),
			"tag":        r.ExcTag,
			"length_err": r.LengthErr,
		}).Info("fetch fault")

		if c.config.HaltOnFault {
			c.halt(HaltFault)
			return
		}
		c.requestRedirect(c.config.TrapVector)
		return
	}

	inst := c.decoder.Decode(r.Word)
	switch {
	case inst.IsHalt():
		c.halt(HaltEnvironmentCall)
	case inst.Op == insts.OpIllegal:
		c.halt(HaltIllegal)
	case inst.IsDirectJump():
		c.requestRedirect(inst.Target(r.Addr))
	}
}

func (c *Core) requestRedirect(target uint32) {
	c.redirect = true
	c.target = target
	c.log.WithFields(logrus.Fields{
		"cycle":  c.stats.Cycles,
		"target": fmt.Sprintf("0x%08x", target),
	}).Info("redirect")
}

func (c *Core) halt(reason HaltReason) {
	c.halted = true
	c.reason = reason
	c.prefetcher.Stop()
	c.log.WithFields(logrus.Fields{
		"cycle":        c.stats.Cycles,
		"instructions": c.stats.Instructions,
		"reason":       reason.String(),
	}).Info("halt")
}

func (c *Core) trace(resp fifo.FetchResp, out fifo.Outputs, redirect, ready bool) {
	c.log.WithFields(logrus.Fields{
		"cycle":     c.stats.Cycles,
		"fetch":     resp.Valid,
		"clear":     redirect,
		"ready":     ready,
		"valid":     out.Valid,
		"addr":      fmt.Sprintf("0x%08x", out.Addr),
		"selection": out.Selection.String(),
		"busy":      c.fifo.BusyCount(),
	}).Debug("fetch tick")
}
