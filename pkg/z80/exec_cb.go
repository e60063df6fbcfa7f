package z80

// execCB handles the CB-prefixed table (rotate/shift/BIT/RES/SET) and,
// when mode is idxIX/idxIY, the DD CB d op / FD CB d op four-byte indexed
// form. Unlike every other opcode, the indexed form's displacement byte
// comes before its trailing opcode byte rather than being resolved
// lazily — the byte layout is prefix, CB, displacement, opcode.
//
// Returns the full T-state cost from the CB byte onward — the caller
// (execOne) separately adds 4 for a preceding DD/FD prefix byte, if any.
func (c *CPU) execCB(mode idxMode) int {
	if mode == idxHL {
		b := c.fetch8()
		c.r.bumpR()
		d := decode(b)
		isMem := d.z == 6
		c.execCBOp(d, idxHL, 0)
		if d.x == 1 {
			return bsel8(isMem, 12, 8)
		}
		return bsel8(isMem, 15, 8)
	}

	disp := c.fetchDisp()
	b := c.fetch8()
	d := decode(b)
	c.execCBOp(d, mode, disp)
	if d.x == 1 {
		return 16 // published total is 20; execOne adds the other 4 for the DD/FD byte
	}
	return 19 // published total is 23; execOne adds the other 4 for the DD/FD byte
}

// execCBOp applies one CB-table operation to its operand (a register, or
// (HL)/(IX+d)/(IY+d) for z==6 / any indexed form) and writes the result
// back unless the operation is BIT, which only sets flags.
func (c *CPU) execCBOp(d decoded, mode idxMode, disp int8) {
	var addr uint16
	var v uint8
	indexed := mode != idxHL
	if indexed {
		addr = uint16(int32(c.idxBase(mode)) + int32(disp))
		v = c.mem.Read8(addr)
	} else {
		v = c.regRead(d.z)
	}

	var result uint8
	switch d.x {
	case 0:
		result = cbShift(&c.r, d.y, v)
	case 1:
		aluBit(&c.r, v, d.y)
		return
	case 2:
		result = v &^ (1 << d.y)
	default:
		result = v | (1 << d.y)
	}

	if indexed {
		c.mem.Write8(addr, result)
		return
	}
	c.regWrite(d.z, result)
}

// cbShift dispatches the eight x==0 rotate/shift operations by y: RLC,
// RRC, RL, RR, SLA, SRA, SLL (undocumented), SRL.
func cbShift(r *Registers, y uint8, v uint8) uint8 {
	switch y {
	case 0:
		return aluRlc(r, v)
	case 1:
		return aluRrc(r, v)
	case 2:
		return aluRl(r, v)
	case 3:
		return aluRr(r, v)
	case 4:
		return aluSla(r, v)
	case 5:
		return aluSra(r, v)
	case 6:
		return aluSll(r, v)
	default:
		return aluSrl(r, v)
	}
}
