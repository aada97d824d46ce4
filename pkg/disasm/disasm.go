// Package disasm implements the disassembler. It shares
// the bitfield and immediate decoders in pkg/decode with pkg/interp so
// the two can never disagree on a field extraction.
package disasm

import (
	"fmt"

	"github.com/Lavezza99/risc32sim/pkg/decode"
)

// SymbolResolver maps an address to a symbolic name, when one exists.
// It is consulted only for cosmetic output and never influences
// semantics.
type SymbolResolver interface {
	Resolve(addr uint32) (name string, ok bool)
}

// regNames holds the conventional ABI aliases, index 0..31.
var regNames = [32]string{
	"x0", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func regName(r uint32) string {
	if r < 32 {
		return regNames[r]
	}
	return "x?"
}

// formatAddr renders addr as "0x%08x", annotated with "<name>" when
// resolver knows a name for it.
func formatAddr(addr uint32, resolver SymbolResolver) string {
	if resolver != nil {
		if name, ok := resolver.Resolve(addr); ok {
			return fmt.Sprintf("0x%08x <%s>", addr, name)
		}
	}
	return fmt.Sprintf("0x%08x", addr)
}

// pad7 pads a mnemonic to the 7-character column width. Callers add
// the separating space themselves, matching
// original_source/src/disassemble.c's "%-7s " format strings.
func pad7(mnem string) string {
	return fmt.Sprintf("%-7s", mnem)
}

var branchMnem = map[uint32]string{
	0x0: "beq", 0x1: "bne", 0x4: "blt", 0x5: "bge", 0x6: "bltu", 0x7: "bgeu",
}

var loadMnem = map[uint32]string{
	0x0: "lb", 0x1: "lh", 0x2: "lw", 0x4: "lbu", 0x5: "lhu",
}

var storeMnem = map[uint32]string{
	0x0: "sb", 0x1: "sh", 0x2: "sw",
}

var opImmMnem = map[uint32]string{
	0x0: "addi", 0x2: "slti", 0x3: "sltiu", 0x4: "xori", 0x6: "ori", 0x7: "andi",
}

var opMnem = map[[2]uint32]string{
	{0x0, 0x00}: "add", {0x0, 0x20}: "sub",
	{0x1, 0x00}: "sll",
	{0x2, 0x00}: "slt",
	{0x3, 0x00}: "sltu",
	{0x4, 0x00}: "xor",
	{0x5, 0x00}: "srl", {0x5, 0x20}: "sra",
	{0x6, 0x00}: "or",
	{0x7, 0x00}: "and",
	{0x0, 0x01}: "mul", {0x4, 0x01}: "div", {0x5, 0x01}: "divu",
	{0x6, 0x01}: "rem", {0x7, 0x01}: "remu",
}

// Disassemble renders the instruction inst, located at addr, to a
// single line of text with no trailing newline. It never fails: an
// unrecognized encoding yields a fallback string beginning with
// "unknown" followed by the raw word in hex.
func Disassemble(addr, inst uint32, resolver SymbolResolver) string {
	f := decode.Decode(inst)
	rd, rs1, rs2 := regName(f.Rd), regName(f.Rs1), regName(f.Rs2)

	switch f.Opcode {
	case 0x37: // LUI
		return fmt.Sprintf("%s %s, 0x%x", pad7("lui"), rd, uint32(f.ImmU)>>12)
	case 0x17: // AUIPC
		return fmt.Sprintf("%s %s, 0x%x", pad7("auipc"), rd, uint32(f.ImmU)>>12)
	case 0x6f: // JAL
		target := addr + uint32(f.ImmJ)
		return fmt.Sprintf("%s %s, %s", pad7("jal"), rd, formatAddr(target, resolver))
	case 0x67: // JALR
		return fmt.Sprintf("%s %s, %d(%s)", pad7("jalr"), rd, f.ImmI, rs1)
	case 0x63: // Branches
		mnem, ok := branchMnem[f.Funct3]
		if !ok {
			return unknown(inst)
		}
		target := addr + uint32(f.ImmB)
		return fmt.Sprintf("%s %s, %s, %s", pad7(mnem), rs1, rs2, formatAddr(target, resolver))
	case 0x03: // Loads
		mnem, ok := loadMnem[f.Funct3]
		if !ok {
			return unknown(inst)
		}
		return fmt.Sprintf("%s %s, %d(%s)", pad7(mnem), rd, f.ImmI, rs1)
	case 0x23: // Stores
		mnem, ok := storeMnem[f.Funct3]
		if !ok {
			return unknown(inst)
		}
		return fmt.Sprintf("%s %s, %d(%s)", pad7(mnem), rs2, f.ImmS, rs1)
	case 0x13: // OP-IMM
		switch f.Funct3 {
		case 0x1: // SLLI
			return fmt.Sprintf("%s %s, %s, %d", pad7("slli"), rd, rs1, decode.Shamt(inst))
		case 0x5: // SRLI / SRAI
			switch f.Funct7 {
			case 0x00:
				return fmt.Sprintf("%s %s, %s, %d", pad7("srli"), rd, rs1, decode.Shamt(inst))
			case 0x20:
				return fmt.Sprintf("%s %s, %s, %d", pad7("srai"), rd, rs1, decode.Shamt(inst))
			default:
				return unknown(inst)
			}
		default:
			mnem, ok := opImmMnem[f.Funct3]
			if !ok {
				return unknown(inst)
			}
			return fmt.Sprintf("%s %s, %s, %d", pad7(mnem), rd, rs1, f.ImmI)
		}
	case 0x33: // OP / RV32M
		mnem, ok := opMnem[[2]uint32{f.Funct3, f.Funct7}]
		if !ok {
			return unknown(inst)
		}
		return fmt.Sprintf("%s %s, %s, %s", pad7(mnem), rd, rs1, rs2)
	case 0x73: // SYSTEM
		if f.Funct3 == 0 && inst>>20 == 0 {
			return "ecall"
		}
		return unknown(inst)
	default:
		return unknown(inst)
	}
}

func unknown(inst uint32) string {
	return fmt.Sprintf("unknown 0x%08x", inst)
}
