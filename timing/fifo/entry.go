// Package fifo provides the instruction fetch realignment buffer.
//
// The buffer accepts word-aligned fetch responses from the bus and presents
// the decode stage with one realigned instruction per cycle. Instructions are
// 2 or 4 bytes long, so a 4-byte instruction that starts in the upper half of
// a word straddles two queue entries:
//
//	             | 31          16 | 15           0 |
//	entry 0      | instr 1 [15:0] | instr 0 [15:0] |
//	entry 1      | instr 2 [15:0] | instr 1 [31:16]|
//
// When the queue is empty an incoming response is bypassed straight to the
// output, so a hit on an empty buffer costs no extra cycle.
package fifo

// ExceptionTag is the opaque exception classification attached to a fetch.
// The buffer only selects between tags, it never interprets them.
type ExceptionTag uint8

// FetchResp is a fetch response arriving from the bus in one cycle.
type FetchResp struct {
	// Valid indicates a response is present this cycle.
	Valid bool

	// Addr is the address of the fetch. On a clear it is the address the
	// instruction stream restarts from, which may be halfword aligned.
	Addr uint32

	// Data is the fetched 32-bit word.
	Data uint32

	// Err indicates an access fault on the whole word.
	Err bool

	// ExcTag classifies the exception carried by this fetch.
	ExcTag ExceptionTag

	// LowerErr flags an exception on the lower halfword.
	LowerErr bool

	// UpperErr flags an exception on the upper halfword.
	UpperErr bool

	// UpperErr2 is the upper halfword flag computed for injected
	// instructions. Only used in unaligned injection mode.
	UpperErr2 bool
}

// Entry is one slot of the queue.
type Entry struct {
	Valid     bool
	Data      uint32
	Err       bool
	ExcTag    ExceptionTag
	LowerErr  bool
	UpperErr  bool
	UpperErr2 bool
}

// entryFrom latches a fetch response into a queue entry.
func entryFrom(resp FetchResp) Entry {
	return Entry{
		Valid:     resp.Valid,
		Data:      resp.Data,
		Err:       resp.Err,
		ExcTag:    resp.ExcTag,
		LowerErr:  resp.LowerErr,
		UpperErr:  resp.UpperErr,
		UpperErr2: resp.UpperErr2,
	}
}

// Clear resets the entry to empty state.
func (e *Entry) Clear() {
	*e = Entry{}
}

// lowHalf returns the lower halfword of the entry.
func (e Entry) lowHalf() uint16 {
	return uint16(e.Data)
}

// highHalf returns the upper halfword of the entry.
func (e Entry) highHalf() uint16 {
	return uint16(e.Data >> 16)
}
