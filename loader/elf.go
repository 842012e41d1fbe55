// Package loader provides ELF binary loading for RISC-V executables.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/sarchlab/rvfetch/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Executable reports whether instructions may be fetched from the segment.
func (s Segment) Executable() bool {
	return s.Flags&SegmentFlagExecute != 0
}

// Program represents a loaded ELF program ready for fetching.
type Program struct {
	// EntryPoint is the address where fetching should begin.
	EntryPoint uint32
	// Is64 is set for ELFCLASS64 binaries.
	Is64 bool
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
}

// Load parses a RISC-V ELF binary. Both 32- and 64-bit classes are accepted
// as long as the image fits in a 32-bit address space.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	if f.Entry > 0xFFFFFFFF {
		return nil, fmt.Errorf("entry point 0x%x outside the 32-bit address space", f.Entry)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
		Is64:       f.Class == elf.ELFCLASS64,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		if phdr.Vaddr+phdr.Memsz > 0xFFFFFFFF {
			return nil, fmt.Errorf("segment at 0x%x outside the 32-bit address space", phdr.Vaddr)
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}

// ExecRange returns the smallest range [base, top) covering every executable
// segment. ok is false when there is none.
func (p *Program) ExecRange() (base, top uint32, ok bool) {
	for _, seg := range p.Segments {
		if !seg.Executable() || seg.MemSize == 0 {
			continue
		}
		end := seg.VirtAddr + seg.MemSize
		if !ok || seg.VirtAddr < base {
			base = seg.VirtAddr
		}
		if !ok || end > top {
			top = end
		}
		ok = true
	}
	return base, top, ok
}

// LoadInto copies every segment into the port's memory and restricts
// instruction fetches to the executable range.
func (p *Program) LoadInto(port *emu.FetchPort) {
	for _, seg := range p.Segments {
		port.Memory().LoadSegment(seg.VirtAddr, seg.Data, seg.MemSize)
	}

	if base, top, ok := p.ExecRange(); ok {
		port.SetBounds(base, top, emu.ExcBoundsViolation)
	}
}
