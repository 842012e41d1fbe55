package emu

// ExceptionCode classifies a fetch exception.
type ExceptionCode uint8

// Exception codes raised by the fetch port.
const (
	ExcNone ExceptionCode = iota
	ExcAccessFault
	ExcBoundsViolation
	ExcPermitExecute
)

// String returns the exception name.
func (c ExceptionCode) String() string {
	switch c {
	case ExcNone:
		return "none"
	case ExcAccessFault:
		return "access-fault"
	case ExcBoundsViolation:
		return "bounds-violation"
	case ExcPermitExecute:
		return "permit-execute"
	default:
		return "unknown"
	}
}

// FaultRegion is an address range [Start, End) where fetches fault.
type FaultRegion struct {
	Start uint32
	End   uint32
	Code  ExceptionCode
}

// Bounds is the halfword-granular executable window [Base, Top).
type Bounds struct {
	Base uint32
	Top  uint32
	Code ExceptionCode
}

// FetchResult is the outcome of a fetch.
type FetchResult struct {
	// Addr is the word-aligned address that was read.
	Addr uint32
	// Data is the word read. Zero when Err is set.
	Data uint32
	// Err indicates an access fault.
	Err bool
	// Code classifies the exception, ExcNone if nothing faulted.
	Code ExceptionCode
	// LowerErr flags the halfword at Addr outside the bounds.
	LowerErr bool
	// UpperErr flags the halfword at Addr+2 outside the bounds.
	UpperErr bool
	// UpperErr2 flags the halfword following the requested address
	// outside the bounds.
	UpperErr2 bool
}

// FetchPort serves instruction fetches from a Memory, applying fault
// regions and execute bounds.
type FetchPort struct {
	memory *Memory
	faults []FaultRegion
	bounds *Bounds
}

// NewFetchPort creates a fetch port over memory with no faults and
// unlimited bounds.
func NewFetchPort(memory *Memory) *FetchPort {
	return &FetchPort{memory: memory}
}

// Memory returns the backing memory.
func (p *FetchPort) Memory() *Memory {
	return p.memory
}

// AddFaultRegion makes fetches touching [start, end) raise an access fault.
func (p *FetchPort) AddFaultRegion(start, end uint32, code ExceptionCode) {
	p.faults = append(p.faults, FaultRegion{Start: start, End: end, Code: code})
}

// SetBounds restricts execution to [base, top).
func (p *FetchPort) SetBounds(base, top uint32, code ExceptionCode) {
	p.bounds = &Bounds{Base: base, Top: top, Code: code}
}

// ClearFaults removes all fault regions and bounds.
func (p *FetchPort) ClearFaults() {
	p.faults = nil
	p.bounds = nil
}

// Fetch reads the word containing addr.
func (p *FetchPort) Fetch(addr uint32) FetchResult {
	word := addr &^ 3
	r := p.check(word, addr)
	if !r.Err {
		r.Data = p.memory.Read32(word)
	}
	return r
}

// FetchInstruction reads the 32 bits starting at the halfword-aligned addr.
// It serves harnesses that deliver whole instructions instead of words.
func (p *FetchPort) FetchInstruction(addr uint32) FetchResult {
	half := addr &^ 1
	r := p.check(half, addr)
	if !r.Err {
		r.Data = p.memory.Read32(half)
	}
	return r
}

func (p *FetchPort) check(base, req uint32) FetchResult {
	r := FetchResult{Addr: base}

	for _, f := range p.faults {
		if base < f.End && uint64(base)+4 > uint64(f.Start) {
			r.Err = true
			r.Code = f.Code
			return r
		}
	}

	if p.bounds == nil {
		return r
	}

	r.LowerErr = p.outOfBounds(base)
	r.UpperErr = p.outOfBounds(base + 2)
	r.UpperErr2 = p.outOfBounds((req &^ 1) + 2)
	if r.LowerErr || r.UpperErr || r.UpperErr2 {
		r.Code = p.bounds.Code
	}

	return r
}

func (p *FetchPort) outOfBounds(half uint32) bool {
	return half < p.bounds.Base || uint64(half)+2 > uint64(p.bounds.Top)
}
