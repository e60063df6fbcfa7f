package z80

// Bit-field decomposition of an opcode byte, ported from
// original_source/opcodes.c's extract_opcode: every Z80 opcode byte
// factors into x (bits 7-6), y (bits 5-3) and z (bits 2-0); y further
// splits into p (bits 2-1) and q (bit 0) wherever the manual groups
// instructions by register pair instead of by single register.
type decoded struct {
	x, y, z, p, q uint8
}

func decode(b uint8) decoded {
	return decoded{
		x: (b >> 6) & 3,
		y: (b >> 3) & 7,
		z: b & 7,
		p: (b >> 4) & 3,
		q: (b >> 3) & 1,
	}
}

// condition indexes the cc[8] condition table: NZ, Z, NC, C, PO, PE, P, M.
func (c *CPU) condition(cc uint8) bool {
	f := c.r.F()
	switch cc {
	case 0:
		return f&FlagZ == 0
	case 1:
		return f&FlagZ != 0
	case 2:
		return f&FlagC == 0
	case 3:
		return f&FlagC != 0
	case 4:
		return f&FlagP == 0
	case 5:
		return f&FlagP != 0
	case 6:
		return f&FlagS == 0
	case 7:
		return f&FlagS != 0
	}
	panic("unreachable condition code")
}

// regRead/regWrite select one of the r[8] operands for the unprefixed table:
// B, C, D, E, H, L, (HL), A. Index 6 reads/writes through memory at HL;
// every other index is a direct register and has no address cost.
func (c *CPU) regRead(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.r.B()
	case 1:
		return c.r.C()
	case 2:
		return c.r.D()
	case 3:
		return c.r.E()
	case 4:
		return c.r.H()
	case 5:
		return c.r.L()
	case 6:
		return c.mem.Read8(c.r.HL)
	case 7:
		return c.r.A()
	}
	panic("unreachable register index")
}

func (c *CPU) regWrite(idx uint8, v uint8) {
	switch idx {
	case 0:
		c.r.SetB(v)
	case 1:
		c.r.SetC(v)
	case 2:
		c.r.SetD(v)
	case 3:
		c.r.SetE(v)
	case 4:
		c.r.SetH(v)
	case 5:
		c.r.SetL(v)
	case 6:
		c.mem.Write8(c.r.HL, v)
	case 7:
		c.r.SetA(v)
	}
}

// idxMode selects which of HL, IX or IY a table 0-2 opcode's H/L/(HL)
// operands actually address — the substitution a DD or FD prefix applies
// uniformly to every such opcode.
type idxMode int

const (
	idxHL idxMode = iota
	idxIX
	idxIY
)

func (c *CPU) idxBase(mode idxMode) uint16 {
	if mode == idxIY {
		return c.r.IY
	}
	return c.r.IX
}

// r8Read/r8Write resolve an r[8] operand under idxMode, fetching a
// displacement byte via getDisp only when idx selects (HL)/(IX+d)/(IY+d)
// — getDisp must cache its result so a read-modify-write opcode (INC
// (IX+d)) doesn't consume two displacement bytes for one instruction.
func (c *CPU) r8Read(idx uint8, mode idxMode, getDisp func() int8) uint8 {
	if mode == idxHL {
		return c.regRead(idx)
	}
	base := c.idxBase(mode)
	switch idx {
	case 4:
		return uint8(base >> 8)
	case 5:
		return uint8(base)
	case 6:
		return c.mem.Read8(uint16(int32(base) + int32(getDisp())))
	default:
		return c.regRead(idx)
	}
}

func (c *CPU) r8Write(idx uint8, mode idxMode, v uint8, getDisp func() int8) {
	if mode == idxHL {
		c.regWrite(idx, v)
		return
	}
	switch idx {
	case 4:
		if mode == idxIX {
			c.r.IX = uint16(v)<<8 | c.r.IX&0xFF
		} else {
			c.r.IY = uint16(v)<<8 | c.r.IY&0xFF
		}
	case 5:
		if mode == idxIX {
			c.r.IX = c.r.IX&0xFF00 | uint16(v)
		} else {
			c.r.IY = c.r.IY&0xFF00 | uint16(v)
		}
	case 6:
		base := c.idxBase(mode)
		c.mem.Write8(uint16(int32(base)+int32(getDisp())), v)
	default:
		c.regWrite(idx, v)
	}
}

// rp16Read/rp16Write resolve an rp[4] pair under idxMode: only p==2 (HL)
// is substituted, since DD/FD only ever retargets HL-shaped operands.
func (c *CPU) rp16Read(p uint8, mode idxMode) uint16 {
	if p == 2 && mode != idxHL {
		return c.idxBase(mode)
	}
	return c.rpRead(p)
}

func (c *CPU) rp16Write(p uint8, mode idxMode, v uint16) {
	if p == 2 && mode != idxHL {
		c.setIdxBase(mode, v)
		return
	}
	c.rpWrite(p, v)
}

func (c *CPU) setIdxBase(mode idxMode, v uint16) {
	if mode == idxIY {
		c.r.IY = v
	} else {
		c.r.IX = v
	}
}

// rp2ReadIndexed/rp2WriteIndexed are rp16's PUSH/POP counterpart: p==2
// means HL under rp2 too (AF takes p==3, unaffected by indexing).
func (c *CPU) rp2ReadIndexed(p uint8, mode idxMode) uint16 {
	if p == 2 && mode != idxHL {
		return c.idxBase(mode)
	}
	return c.rp2Read(p)
}

func (c *CPU) rp2WriteIndexed(p uint8, mode idxMode, v uint16) {
	if p == 2 && mode != idxHL {
		c.setIdxBase(mode, v)
		return
	}
	c.rp2Write(p, v)
}

// rpRead/rpWrite select one of the rp[4] pairs BC, DE, HL, SP — the
// grouping table 0's 16-bit loads, INC ss/DEC ss, ADD HL,ss and PUSH/POP
// (via rp2, which substitutes AF for SP) all index into.
func (c *CPU) rpRead(p uint8) uint16 {
	switch p {
	case 0:
		return c.r.BC
	case 1:
		return c.r.DE
	case 2:
		return c.r.HL
	case 3:
		return c.r.SP
	}
	panic("unreachable register pair index")
}

func (c *CPU) rpWrite(p uint8, v uint16) {
	switch p {
	case 0:
		c.r.BC = v
	case 1:
		c.r.DE = v
	case 2:
		c.r.HL = v
	case 3:
		c.r.SP = v
	}
}

func (c *CPU) rp2Read(p uint8) uint16 {
	if p == 3 {
		return c.r.AF
	}
	return c.rpRead(p)
}

func (c *CPU) rp2Write(p uint8, v uint16) {
	if p == 3 {
		c.r.AF = v
		return
	}
	c.rpWrite(p, v)
}

// fetch8 reads the byte at PC and advances PC — every opcode, prefix,
// immediate and displacement byte goes through this.
func (c *CPU) fetch8() uint8 {
	v := c.mem.Read8(c.r.PC)
	c.r.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

// fetchDisp reads a signed 8-bit displacement, used by JR/DJNZ and by
// (IX+d)/(IY+d) addressing.
func (c *CPU) fetchDisp() int8 {
	return int8(c.fetch8())
}
