package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUninitializedReadsAreZero(t *testing.T) {
	m := New()
	assert.EqualValues(t, 0, m.ReadByte(0x12345678))
	assert.EqualValues(t, 0, m.ReadHalf(0x12345678))
	assert.EqualValues(t, 0, m.ReadWord(0x12345678))
}

func TestByteRoundTrip(t *testing.T) {
	m := New()
	m.WriteByte(0x100, 0xab)
	assert.EqualValues(t, 0xab, m.ReadByte(0x100))
}

func TestLittleEndianHalfAndWord(t *testing.T) {
	m := New()
	m.WriteHalf(0x200, 0x1234)
	assert.EqualValues(t, 0x34, m.ReadByte(0x200))
	assert.EqualValues(t, 0x12, m.ReadByte(0x201))
	assert.EqualValues(t, 0x1234, m.ReadHalf(0x200))

	m.WriteWord(0x300, 0xdeadbeef)
	assert.EqualValues(t, 0xef, m.ReadByte(0x300))
	assert.EqualValues(t, 0xbe, m.ReadByte(0x301))
	assert.EqualValues(t, 0xad, m.ReadByte(0x302))
	assert.EqualValues(t, 0xde, m.ReadByte(0x303))
	assert.EqualValues(t, 0xdeadbeef, m.ReadWord(0x300))
}

func TestUnalignedAccessCrossesPageBoundary(t *testing.T) {
	m := New()
	// pageSize is 64KiB; write a word straddling the boundary.
	addr := uint32(pageSize - 2)
	m.WriteWord(addr, 0x11223344)
	assert.EqualValues(t, 0x11223344, m.ReadWord(addr))
}

func TestSparseAllocationDoesNotTouchOtherPages(t *testing.T) {
	m := New()
	m.WriteByte(0, 1)
	assert.Len(t, m.pages, 1)
	m.WriteByte(pageSize*1000, 1)
	assert.Len(t, m.pages, 2)
}
