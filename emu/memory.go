// Package emu provides the functional instruction memory model.
package emu

const pageSize = 4096

// Memory is a sparse little-endian byte-addressable memory. Unwritten
// locations read as zero.
type Memory struct {
	pages map[uint32][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32][]byte)}
}

func (m *Memory) page(addr uint32, create bool) []byte {
	base := addr &^ (pageSize - 1)
	p, ok := m.pages[base]
	if !ok && create {
		p = make([]byte, pageSize)
		m.pages[base] = p
	}
	return p
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(pageSize-1)]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value byte) {
	m.page(addr, true)[addr&(pageSize-1)] = value
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, byte(value))
	m.Write8(addr+1, byte(value>>8))
}

// Read32 reads a little-endian word. The address need not be aligned.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// LoadSegment copies data to addr and zero-fills up to memSize bytes.
func (m *Memory) LoadSegment(addr uint32, data []byte, memSize uint32) {
	for i, b := range data {
		m.Write8(addr+uint32(i), b)
	}
	for i := uint32(len(data)); i < memSize; i++ {
		m.Write8(addr+i, 0)
	}
}

// Reset discards all contents.
func (m *Memory) Reset() {
	m.pages = make(map[uint32][]byte)
}
