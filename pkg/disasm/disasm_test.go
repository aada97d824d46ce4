package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lavezza99/risc32sim/pkg/asm"
)

type fakeResolver map[uint32]string

func (f fakeResolver) Resolve(addr uint32) (string, bool) {
	name, ok := f[addr]
	return name, ok
}

func TestDisassembleArithmetic(t *testing.T) {
	inst := asm.R(0x33, 3, 0x0, 1, 2, 0x00) // add x3, x1, x2 -> gp, ra, sp
	assert.Equal(t, "add     gp, ra, sp", Disassemble(0, inst, nil))

	inst = asm.R(0x33, 3, 0x0, 1, 2, 0x20) // sub
	assert.Equal(t, "sub     gp, ra, sp", Disassemble(0, inst, nil))

	inst = asm.R(0x33, 3, 0x0, 1, 2, 0x01) // mul (RV32M)
	assert.Equal(t, "mul     gp, ra, sp", Disassemble(0, inst, nil))
}

func TestDisassembleOpImm(t *testing.T) {
	inst := asm.I(0x13, 1, 0x0, 0, -1) // addi x1, x0, -1 -> ra, x0, -1
	assert.Equal(t, "addi    ra, x0, -1", Disassemble(0, inst, nil))
}

func TestDisassembleShift(t *testing.T) {
	inst := asm.Shift(0x1, 1, 1, 5, 0x00) // slli x1, x1, 5 -> ra, ra, 5
	assert.Equal(t, "slli    ra, ra, 5", Disassemble(0, inst, nil))

	inst = asm.Shift(0x5, 1, 1, 5, 0x20) // srai x1, x1, 5
	assert.Equal(t, "srai    ra, ra, 5", Disassemble(0, inst, nil))
}

func TestDisassembleLoadStore(t *testing.T) {
	inst := asm.I(0x03, 5, 0x2, 1, -4) // lw x5, -4(x1) -> t0, -4(ra)
	assert.Equal(t, "lw      t0, -4(ra)", Disassemble(0, inst, nil))

	inst = asm.S(0x2, 1, 5, -4) // sw x5, -4(x1) -> t0, -4(ra)
	assert.Equal(t, "sw      t0, -4(ra)", Disassemble(0, inst, nil))
}

func TestDisassembleBranchWithResolver(t *testing.T) {
	inst := asm.B(0x0, 1, 2, 8) // beq x1, x2, +8 -> ra, sp
	got := Disassemble(0x1000, inst, nil)
	assert.Equal(t, "beq     ra, sp, 0x00001008", got)

	resolver := fakeResolver{0x1008: "loop_top"}
	got = Disassemble(0x1000, inst, resolver)
	assert.Equal(t, "beq     ra, sp, 0x00001008 <loop_top>", got)
}

func TestDisassembleJAL(t *testing.T) {
	inst := asm.J(1, 16) // jal x1, +16 -> ra
	got := Disassemble(0x2000, inst, nil)
	assert.Equal(t, "jal     ra, 0x00002010", got)
}

func TestDisassembleLUIAndAUIPC(t *testing.T) {
	inst := asm.U(0x37, 1, 0x12345) // lui x1, 0x12345 -> ra
	assert.Equal(t, "lui     ra, 0x12345", Disassemble(0, inst, nil))

	inst = asm.U(0x17, 1, 0x12345) // auipc x1, 0x12345 -> ra
	assert.Equal(t, "auipc   ra, 0x12345", Disassemble(0, inst, nil))
}

func TestDisassembleECall(t *testing.T) {
	assert.Equal(t, "ecall", Disassemble(0, asm.ECall(), nil))
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	got := Disassemble(0, 0x0000000f, nil)
	assert.Equal(t, "unknown 0x0000000f", got)
}

func TestDisassembleNeverFails(t *testing.T) {
	// An arbitrary bit pattern should still produce a string, never panic.
	for _, word := range []uint32{0x00000000, 0xffffffff, 0xdeadbeef} {
		word := word
		assert.NotPanics(t, func() {
			_ = Disassemble(0, word, nil)
		})
	}
}
