// Package memory implements the flat, byte-addressed memory the
// interpreter and loader operate on: byte/halfword/word reads and
// writes indexed by a 32-bit address, with unrestricted alignment and
// uninitialized reads returning zero.
package memory

// Flat is a sparse flat memory image backed by fixed-size pages, so a
// simulated address space of 2^32 bytes doesn't require allocating it
// up front the way a fixed-size array would.
type Flat struct {
	pages map[uint32][]byte
}

const pageSize = 1 << 16 // 64 KiB pages
const pageMask = pageSize - 1

// New returns an empty memory image. Every address reads as zero
// until written.
func New() *Flat {
	return &Flat{pages: make(map[uint32][]byte)}
}

func (m *Flat) page(addr uint32, write bool) []byte {
	base := addr &^ pageMask
	p, ok := m.pages[base]
	if !ok {
		if !write {
			return nil
		}
		p = make([]byte, pageSize)
		m.pages[base] = p
	}
	return p
}

// ReadByte reads one byte at addr.
func (m *Flat) ReadByte(addr uint32) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// WriteByte writes one byte at addr.
func (m *Flat) WriteByte(addr uint32, v byte) {
	p := m.page(addr, true)
	p[addr&pageMask] = v
}

// ReadHalf reads a little-endian 16-bit value at addr.
func (m *Flat) ReadHalf(addr uint32) uint16 {
	lo := uint16(m.ReadByte(addr))
	hi := uint16(m.ReadByte(addr + 1))
	return lo | hi<<8
}

// WriteHalf writes a little-endian 16-bit value at addr.
func (m *Flat) WriteHalf(addr uint32, v uint16) {
	m.WriteByte(addr, byte(v))
	m.WriteByte(addr+1, byte(v>>8))
}

// ReadWord reads a little-endian 32-bit value at addr.
func (m *Flat) ReadWord(addr uint32) uint32 {
	lo := uint32(m.ReadHalf(addr))
	hi := uint32(m.ReadHalf(addr + 2))
	return lo | hi<<16
}

// WriteWord writes a little-endian 32-bit value at addr.
func (m *Flat) WriteWord(addr uint32, v uint32) {
	m.WriteHalf(addr, uint16(v))
	m.WriteHalf(addr+2, uint16(v>>16))
}

// Memory is the collaborator contract consumed by the interpreter,
// the disassembler's caller, and the loader. pkg/interp and pkg/loader
// depend on this interface, not on *Flat, so tests can substitute a
// smaller fake.
type Memory interface {
	ReadByte(addr uint32) byte
	WriteByte(addr uint32, v byte)
	ReadHalf(addr uint32) uint16
	WriteHalf(addr uint32, v uint16)
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, v uint32)
}

var _ Memory = (*Flat)(nil)
