package fifo

// Inputs are the signals sampled by the buffer in one cycle.
type Inputs struct {
	// Fetch is the response arriving from the bus.
	Fetch FetchResp

	// Clear flushes the buffer and reloads the address from Fetch.Addr.
	// A response arriving in the same cycle is discarded.
	Clear bool

	// Ready indicates the decode stage accepts the output this cycle.
	Ready bool
}

// Outputs are the signals driven by the buffer in one cycle.
type Outputs struct {
	// Valid indicates Data holds a complete instruction.
	Valid bool

	// Bypassed indicates the instruction comes straight from the incoming
	// fetch.
	Bypassed bool

	// Selection tells which entries the instruction is assembled from.
	Selection Selection

	// Addr is the address of the instruction.
	Addr uint32

	// NextAddr is the address of the instruction that follows.
	NextAddr uint32

	// Data is the realigned instruction. Only the low halfword is
	// meaningful when Compressed is set.
	Data uint32

	// Compressed indicates a 2-byte instruction.
	Compressed bool

	// Err indicates the instruction faulted on fetch.
	Err bool

	// ErrPlus2 indicates the fault lies in the second halfword only, so
	// the faulting address is Addr+2.
	ErrPlus2 bool

	// ExcTag classifies the exception.
	ExcTag ExceptionTag

	// LengthErr indicates an exception on a halfword the instruction
	// covers.
	LengthErr bool

	// Busy reports, for each of the top NumReqs slots, whether it holds
	// data.
	Busy []bool
}

// Statistics holds buffer event counters.
type Statistics struct {
	// Cycles is the number of ticks.
	Cycles uint64
	// Pushes is the number of fetch responses stored.
	Pushes uint64
	// Pops is the number of entries retired.
	Pops uint64
	// Retired is the number of instructions accepted by the decode stage.
	Retired uint64
	// Compressed is the number of retired 2-byte instructions.
	Compressed uint64
	// Straddled is the number of retired instructions joined from two
	// fetches.
	Straddled uint64
	// Bypassed is the number of retired instructions taken from the bypass.
	Bypassed uint64
	// Clears is the number of clear cycles.
	Clears uint64
	// Discarded is the number of responses dropped by a clear.
	Discarded uint64
	// EmptyCycles is the number of cycles without a valid output.
	EmptyCycles uint64
}

// FIFO is the fetch realignment buffer.
type FIFO struct {
	config Config
	queue  *Queue
	addr   AddressTracker
	stats  Statistics
}

// New creates an empty buffer. The address register starts at zero.
func New(config Config) *FIFO {
	return &FIFO{
		config: config,
		queue:  NewQueue(config.Depth()),
	}
}

// Config returns the buffer configuration.
func (f *FIFO) Config() Config {
	return f.config
}

// Queue exposes the entry queue for inspection.
func (f *FIFO) Queue() *Queue {
	return f.queue
}

// Addr returns the address of the instruction at the output.
func (f *FIFO) Addr() uint32 {
	return f.addr.Addr()
}

// Busy returns the fill level of the top NumReqs slots.
func (f *FIFO) Busy() []bool {
	busy := make([]bool, f.config.NumReqs)
	for i := range busy {
		busy[i] = f.queue.slots[i+1].Valid
	}
	return busy
}

// BusyCount returns the number of valid slots among the top NumReqs.
func (f *FIFO) BusyCount() int {
	n := 0
	for _, b := range f.Busy() {
		if b {
			n++
		}
	}
	return n
}

// Stats returns the buffer statistics.
func (f *FIFO) Stats() Statistics {
	return f.stats
}

// Reset empties the buffer, zeroes the address and clears statistics.
func (f *FIFO) Reset() {
	f.queue.Clear()
	f.addr = AddressTracker{}
	f.stats = Statistics{}
}

// Eval computes the outputs for the given inputs from the current state
// without advancing it.
func (f *FIFO) Eval(in Inputs) Outputs {
	out, _ := f.evaluate(in)
	return out
}

// Tick computes the outputs for one cycle and latches the next state. All
// next-state values derive from the state at the start of the cycle.
func (f *FIFO) Tick(in Inputs) Outputs {
	out, asm := f.evaluate(in)

	accept := in.Ready && out.Valid && !in.Clear
	pop := accept
	if !f.config.UnalignedInjection {
		pop = accept && (!asm.AlignedCompressed || f.addr.Unaligned())
	}

	push := in.Fetch.Valid && !in.Clear
	nextSlots := f.queue.next(queueUpdate{
		push:  push,
		entry: entryFrom(in.Fetch),
		pop:   pop,
		clear: in.Clear,
	})
	nextAddr := f.addr.next(in.Clear, in.Fetch.Addr, accept, asm.Compressed)

	f.count(in, out, accept, push, pop)

	f.queue.commit(nextSlots)
	f.addr.commit(nextAddr)

	return out
}

func (f *FIFO) evaluate(in Inputs) (Outputs, Assembly) {
	incoming := entryFrom(in.Fetch)

	asm := Assemble(AssemblerInput{
		Slot0:     f.queue.slots[0],
		Slot1:     f.queue.slots[1],
		Incoming:  incoming,
		Unaligned: f.addr.Unaligned(),
		Injection: f.config.UnalignedInjection,
	})

	out := Outputs{
		Valid:      asm.Valid,
		Bypassed:   asm.Valid && asm.Selection == SelectBypass,
		Selection:  asm.Selection,
		Addr:       f.addr.Addr(),
		NextAddr:   f.addr.Next(asm.Compressed),
		Data:       asm.Data,
		Compressed: asm.Compressed,
		Err:        asm.Err,
		ErrPlus2:   asm.ErrPlus2,
		ExcTag:     asm.ExcTag,
		LengthErr:  asm.LengthErr,
		Busy:       f.Busy(),
	}

	return out, asm
}

func (f *FIFO) count(in Inputs, out Outputs, accept, push, pop bool) {
	f.stats.Cycles++

	if !out.Valid {
		f.stats.EmptyCycles++
	}

	if in.Clear {
		f.stats.Clears++
		if in.Fetch.Valid {
			f.stats.Discarded++
		}
		return
	}

	// A bypassed response that is consumed whole is never stored.
	if push && !(pop && f.queue.Empty()) {
		f.stats.Pushes++
	}
	if pop && !f.queue.Empty() {
		f.stats.Pops++
	}

	if !accept {
		return
	}

	f.stats.Retired++
	if out.Compressed {
		f.stats.Compressed++
	}
	if out.Bypassed {
		f.stats.Bypassed++
	}
	if out.Selection == SelectSlot0Slot1 || out.Selection == SelectSlot0Incoming {
		f.stats.Straddled++
	}
}
