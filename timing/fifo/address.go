package fifo

// AddressTracker holds the address of the instruction at the output.
// Addresses are halfword aligned; bit 0 is never stored.
type AddressTracker struct {
	addr uint32
}

// Addr returns the current instruction address.
func (t *AddressTracker) Addr() uint32 {
	return t.addr
}

// Unaligned reports whether the current instruction starts in the upper
// half of a word.
func (t *AddressTracker) Unaligned() bool {
	return t.addr&2 != 0
}

// Next returns the address following an instruction of the given length.
func (t *AddressTracker) Next(compressed bool) uint32 {
	if compressed {
		return t.addr + 2
	}
	return t.addr + 4
}

// next computes the address register value after one cycle. Clear has
// priority over an advance.
func (t *AddressTracker) next(clear bool, clearAddr uint32, advance, compressed bool) uint32 {
	switch {
	case clear:
		return clearAddr &^ 1
	case advance:
		return t.Next(compressed)
	default:
		return t.addr
	}
}

// commit latches the next address.
func (t *AddressTracker) commit(addr uint32) {
	t.addr = addr
}
