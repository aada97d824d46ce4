// Package decode contains the pure bitfield and immediate extraction
// primitives shared by the interpreter and the disassembler.
//
// Instruction format
//
// Each instruction is a 32-bit word decoded into the following fields:
//
//     <Funct7:7><Rs2:5><Rs1:5><Funct3:3><Rd:5><Opcode:7>
//
// Five immediate encodings are extracted from the same word, each
// sign-extended to 32 bits from its native width:
//
//   - I (12 bits): bits 31..20.
//   - S (12 bits): bits 31..25 concatenated with bits 11..7.
//   - B (13 bits, low bit fixed at 0): branch offsets.
//   - U (32 bits, low 12 bits fixed at 0): upper-immediate.
//   - J (21 bits, low bit fixed at 0): jump offsets.
package decode

// Opcode extracts bits 0..6.
func Opcode(ci uint32) uint32 {
	return ci & 0x7f
}

// Rd extracts bits 7..11, the destination register index.
func Rd(ci uint32) uint32 {
	return (ci >> 7) & 0x1f
}

// Funct3 extracts bits 12..14.
func Funct3(ci uint32) uint32 {
	return (ci >> 12) & 0x7
}

// Rs1 extracts bits 15..19, the first source register index.
func Rs1(ci uint32) uint32 {
	return (ci >> 15) & 0x1f
}

// Rs2 extracts bits 20..24, the second source register index.
func Rs2(ci uint32) uint32 {
	return (ci >> 20) & 0x1f
}

// Funct7 extracts bits 25..31.
func Funct7(ci uint32) uint32 {
	return (ci >> 25) & 0x7f
}

// SignExtend sign-extends the low w bits of x to a full 32-bit value.
func SignExtend(x uint32, w uint) int32 {
	m := uint32(1) << (w - 1)
	return int32((x ^ m) - m)
}

// ImmI extracts and sign-extends the I-type (12-bit) immediate.
func ImmI(ci uint32) int32 {
	return SignExtend(ci>>20, 12)
}

// ImmS extracts and sign-extends the S-type (12-bit) immediate.
func ImmS(ci uint32) int32 {
	imm := ((ci >> 25) & 0x7f << 5) | ((ci >> 7) & 0x1f)
	return SignExtend(imm, 12)
}

// ImmB extracts and sign-extends the B-type (13-bit, low bit zero) immediate.
func ImmB(ci uint32) int32 {
	var imm uint32
	imm |= (ci >> 8) & 0xf << 1    // imm[4:1]
	imm |= (ci >> 25) & 0x3f << 5  // imm[10:5]
	imm |= (ci >> 7) & 0x1 << 11   // imm[11]
	imm |= (ci >> 31) & 0x1 << 12  // imm[12]
	return SignExtend(imm, 13)
}

// ImmU extracts the U-type (32-bit, low 12 bits zero) immediate. It is
// already aligned and needs no further sign-extension.
func ImmU(ci uint32) int32 {
	return int32(ci & 0xfffff000)
}

// ImmJ extracts and sign-extends the J-type (21-bit, low bit zero) immediate.
func ImmJ(ci uint32) int32 {
	var imm uint32
	imm |= (ci >> 21) & 0x3ff << 1  // imm[10:1]
	imm |= (ci >> 20) & 0x1 << 11   // imm[11]
	imm |= (ci >> 12) & 0xff << 12  // imm[19:12]
	imm |= (ci >> 31) & 0x1 << 20   // imm[20]
	return SignExtend(imm, 21)
}

// Shamt extracts the 5-bit shift amount carried in the I-immediate's
// low bits, used by the shift sub-class of OP-IMM.
func Shamt(ci uint32) uint32 {
	return (ci >> 20) & 0x1f
}

// Fields is the full set of bitfields and immediates for an
// instruction word, decoded once and shared across dispatch paths.
type Fields struct {
	Opcode uint32
	Rd     uint32
	Funct3 uint32
	Rs1    uint32
	Rs2    uint32
	Funct7 uint32
	ImmI   int32
	ImmS   int32
	ImmB   int32
	ImmU   int32
	ImmJ   int32
}

// Decode extracts every field and immediate encoding from ci. Callers
// that only need a subset may call the individual accessors instead.
func Decode(ci uint32) Fields {
	return Fields{
		Opcode: Opcode(ci),
		Rd:     Rd(ci),
		Funct3: Funct3(ci),
		Rs1:    Rs1(ci),
		Rs2:    Rs2(ci),
		Funct7: Funct7(ci),
		ImmI:   ImmI(ci),
		ImmS:   ImmS(ci),
		ImmB:   ImmB(ci),
		ImmU:   ImmU(ci),
		ImmJ:   ImmJ(ci),
	}
}
