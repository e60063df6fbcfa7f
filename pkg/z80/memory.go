package z80

// Memory is the 8-bit read/write surface over the Z80's 16-bit address
// space. It is owned by the host, not the core: the core only ever reads
// and writes through this interface.
type Memory interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, v uint8)
}

// Read16 and Write16 are little-endian 16-bit helpers built on top of any
// Memory: the low byte lives at addr, the high byte at addr+1, wrapping
// modulo 2^16 the same way the 8-bit accessors do (uint16 arithmetic wraps
// natively).
func Read16(m Memory, addr uint16) uint16 {
	lo := m.Read8(addr)
	hi := m.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func Write16(m Memory, addr uint16, v uint16) {
	m.Write8(addr, uint8(v))
	m.Write8(addr+1, uint8(v>>8))
}

// FlatMemory is a flat 64 KiB array-backed Memory: externally owned, never
// resized, addresses wrap modulo 2^16 by construction (uint16 indices
// can't exceed the array bounds).
type FlatMemory struct {
	Data [65536]byte
}

// NewFlatMemory returns a zeroed 64 KiB memory image.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

func (m *FlatMemory) Read8(addr uint16) uint8     { return m.Data[addr] }
func (m *FlatMemory) Write8(addr uint16, v uint8) { m.Data[addr] = v }

// LoadAt copies program bytes into the image starting at addr, wrapping
// at the 64 KiB boundary the same way a real load into the address space
// would.
func (m *FlatMemory) LoadAt(addr uint16, program []byte) {
	for i, b := range program {
		m.Data[addr+uint16(i)] = b
	}
}
