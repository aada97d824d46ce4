// Package loader populates a Memory image from an ELF32 executable,
// resolves symbols for the disassembler, and marshals
// simulated-program arguments onto fixed memory addresses the way
// original_source/src/main.c's pass_args_to_program does.
package loader

import (
	"debug/elf"
	"fmt"

	"github.com/Lavezza99/risc32sim/pkg/memory"
)

// ProgramInfo supplies the entry pc and, for disassembly-only mode,
// the text segment's half-open byte range.
type ProgramInfo struct {
	Entry     uint32
	TextStart uint32
	TextEnd   uint32
}

// Load reads the ELF32 executable at path, copies its loadable
// segments into mem, and returns the program's entry point and text
// bounds alongside a SymbolResolver built from its symbol table.
func Load(mem memory.Memory, path string) (ProgramInfo, *Symbols, error) {
	f, err := elf.Open(path)
	if err != nil {
		return ProgramInfo{}, nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return ProgramInfo{}, nil, fmt.Errorf("loader: only ELF32 executables are supported")
	}

	info := ProgramInfo{Entry: uint32(f.Entry)}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return ProgramInfo{}, nil, fmt.Errorf("loader: reading segment: %w", err)
		}
		base := uint32(prog.Vaddr)
		for i, b := range data {
			mem.WriteByte(base+uint32(i), b)
		}
	}

	if text := f.Section(".text"); text != nil {
		info.TextStart = uint32(text.Addr)
		info.TextEnd = uint32(text.Addr + text.Size)
	}

	symbols, err := newSymbols(f)
	if err != nil {
		return ProgramInfo{}, nil, fmt.Errorf("loader: reading symbols: %w", err)
	}

	return info, symbols, nil
}

// Symbols resolves an address to the name of the symbol it belongs
// to, for the disassembler's optional annotation; it never influences
// interpreter semantics.
type Symbols struct {
	byAddr map[uint32]string
}

func newSymbols(f *elf.File) (*Symbols, error) {
	syms, err := f.Symbols()
	if err != nil {
		// A stripped binary has no symbol table; that's not fatal,
		// disassembly just won't annotate targets with names.
		return &Symbols{byAddr: map[uint32]string{}}, nil
	}
	byAddr := make(map[uint32]string, len(syms))
	for _, s := range syms {
		if s.Name == "" || elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		byAddr[uint32(s.Value)] = s.Name
	}
	return &Symbols{byAddr: byAddr}, nil
}

// Resolve implements disasm.SymbolResolver.
func (s *Symbols) Resolve(addr uint32) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.byAddr[addr]
	return name, ok
}

// Fixed addresses where simulated-program arguments are marshalled,
// matching original_source/src/main.c's pass_args_to_program layout.
const (
	ArgcAddr = 0x01000000
	ArgvAddr = 0x01000004
)

// WriteArgs writes argc at ArgcAddr, an argv pointer table starting
// at ArgvAddr, and the NUL-terminated argument strings immediately
// after the pointer table, mirroring the original's layout exactly.
func WriteArgs(mem memory.Memory, args []string) {
	mem.WriteWord(ArgcAddr, uint32(len(args)))
	strAddr := ArgvAddr + uint32(4*len(args))
	for i, arg := range args {
		mem.WriteWord(ArgvAddr+uint32(4*i), strAddr)
		for _, c := range []byte(arg) {
			mem.WriteByte(strAddr, c)
			strAddr++
		}
		mem.WriteByte(strAddr, 0)
		strAddr++
	}
}
