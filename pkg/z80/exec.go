package z80

// execOne fetches and executes exactly one (possibly DD/FD/ED/CB-prefixed)
// instruction starting at PC, and returns its T-state cost. deferEI is set
// to true when the instruction executed was EI, telling Step to enable
// interrupts only after the *next* Step call completes.
//
// Every execTable*/execCB/execED call below returns the FULL T-state cost
// of the instruction from its own leading byte onward (matching the
// standard published per-opcode cycle counts), so execOne only has to add
// the cost of whichever DD/FD prefix bytes it consumed before reaching
// that leading byte.
func (c *CPU) execOne(deferEI *bool) int {
	mode := idxHL
	prefixCost := 0

	opcode := c.fetch8()
	c.r.bumpR()
	for opcode == 0xDD || opcode == 0xFD {
		if opcode == 0xDD {
			mode = idxIX
		} else {
			mode = idxIY
		}
		prefixCost += 4
		opcode = c.fetch8()
		c.r.bumpR()
	}

	if opcode == 0xCB {
		return prefixCost + c.execCB(mode)
	}
	if opcode == 0xED {
		sub := c.fetch8()
		c.r.bumpR()
		return prefixCost + c.execED(sub, deferEI)
	}

	d := decode(opcode)
	switch d.x {
	case 0:
		return prefixCost + c.execTable0(d, mode)
	case 1:
		return prefixCost + c.execTable1(d, mode)
	case 2:
		return prefixCost + c.execTable2(d, mode)
	default:
		return prefixCost + c.execTable3(d, mode, deferEI)
	}
}

// dispCache fetches an (IX+d)/(IY+d) displacement byte at most once per
// instruction, so read-modify-write opcodes like INC (IX+d) consume a
// single displacement byte instead of one per access. used reports
// afterward whether the returned accessor was ever actually invoked with
// a memory operand (idx==6) — callers use it to add the 8 extra T-states
// real hardware spends on (IX+d)/(IY+d) address calculation that a plain
// (HL) form doesn't pay.
func (c *CPU) dispCache() (get func() int8, used func() bool) {
	var (
		got    bool
		disp   int8
		called bool
	)
	return func() int8 {
			called = true
			if !got {
				disp = c.fetchDisp()
				got = true
			}
			return disp
		}, func() bool {
			return called
		}
}

func indexedExtra(used func() bool) int {
	if used() {
		return 8
	}
	return 0
}

func (c *CPU) execTable0(d decoded, mode idxMode) int {
	switch d.z {
	case 0:
		switch {
		case d.y == 0:
			return 4 // NOP
		case d.y == 1:
			c.r.ExAFAF()
			return 4
		case d.y == 2: // DJNZ d
			disp := c.fetchDisp()
			b := c.r.B() - 1
			c.r.SetB(b)
			if b != 0 {
				c.r.PC = uint16(int32(c.r.PC) + int32(disp))
				return 13
			}
			return 8
		case d.y == 3: // JR d
			disp := c.fetchDisp()
			c.r.PC = uint16(int32(c.r.PC) + int32(disp))
			return 12
		default: // JR cc,d  y = 4..7 -> cc 0..3
			disp := c.fetchDisp()
			if c.condition(d.y - 4) {
				c.r.PC = uint16(int32(c.r.PC) + int32(disp))
				return 12
			}
			return 7
		}
	case 1:
		if d.q == 0 {
			nn := c.fetch16()
			c.rp16Write(d.p, mode, nn)
			return 10
		}
		hl := c.rp16Read(2, mode)
		rp := c.rp16Read(d.p, mode)
		c.rp16Write(2, mode, aluAddHL16(&c.r, hl, rp))
		return 11
	case 2:
		return c.execTable0IndirectLoad(d, mode)
	case 3:
		rp := c.rp16Read(d.p, mode)
		if d.q == 0 {
			c.rp16Write(d.p, mode, rp+1)
		} else {
			c.rp16Write(d.p, mode, rp-1)
		}
		return 6
	case 4:
		getDisp, used := c.dispCache()
		v := c.r8Read(d.y, mode, getDisp)
		aluInc(&c.r, &v)
		c.r8Write(d.y, mode, v, getDisp)
		return bsel8(d.y == 6, 11, 4) + indexedExtra(used)
	case 5:
		getDisp, used := c.dispCache()
		v := c.r8Read(d.y, mode, getDisp)
		aluDec(&c.r, &v)
		c.r8Write(d.y, mode, v, getDisp)
		return bsel8(d.y == 6, 11, 4) + indexedExtra(used)
	case 6:
		getDisp, used := c.dispCache()
		if d.y == 6 && mode != idxHL {
			getDisp() // DD/FD 36 d n: the displacement byte precedes the immediate
		}
		n := c.fetch8()
		c.r8Write(d.y, mode, n, getDisp)
		if d.y != 6 {
			return 7
		}
		if used() {
			return 15 // LD (IX+d),n / LD (IY+d),n: published total is 19; execOne adds the other 4 for the DD/FD byte
		}
		return 10
	default: // z==7: accumulator/flag opcodes
		switch d.y {
		case 0:
			accumulatorRlca(&c.r)
		case 1:
			accumulatorRrca(&c.r)
		case 2:
			accumulatorRla(&c.r)
		case 3:
			accumulatorRra(&c.r)
		case 4:
			aluDaa(&c.r)
		case 5:
			a := ^c.r.A()
			c.r.SetA(a)
			c.r.SetF(c.r.F()&(FlagS|FlagZ|FlagP|FlagC) | FlagH | FlagN | (a & (Flag3 | Flag5)))
		case 6:
			c.r.SetF(c.r.F()&(FlagS|FlagZ|FlagP) | FlagC | (c.r.A() & (Flag3 | Flag5)))
		case 7:
			f := c.r.F()
			newC := bsel(f&FlagC != 0, 0, FlagC)
			c.r.SetF(f&(FlagS|FlagZ|FlagP) | bsel(f&FlagC != 0, FlagH, 0) | newC | (c.r.A() & (Flag3 | Flag5)))
		}
		return 4
	}
}

// accumulatorRlca/Rrca/Rla/Rra implement RLCA/RRCA/RLA/RRA: unlike the
// CB-table RLC/RRC/RL/RR on a general register, these never touch S, Z or
// P/V — only C, H(cleared), N(cleared) and the undocumented 3/5 bits.
func accumulatorRlca(r *Registers) {
	a := r.A()
	carry := a >> 7
	a = a<<1 | carry
	r.SetA(a)
	r.SetF(r.F()&(FlagS|FlagZ|FlagP) | carry | (a & (Flag3 | Flag5)))
}

func accumulatorRrca(r *Registers) {
	a := r.A()
	carry := a & 0x01
	a = a>>1 | carry<<7
	r.SetA(a)
	r.SetF(r.F()&(FlagS|FlagZ|FlagP) | carry | (a & (Flag3 | Flag5)))
}

func accumulatorRla(r *Registers) {
	a := r.A()
	carryIn := r.F() & FlagC
	carryOut := a >> 7
	a = a<<1 | carryIn
	r.SetA(a)
	r.SetF(r.F()&(FlagS|FlagZ|FlagP) | carryOut | (a & (Flag3 | Flag5)))
}

func accumulatorRra(r *Registers) {
	a := r.A()
	carryIn := r.F() & FlagC
	carryOut := a & 0x01
	a = a>>1 | carryIn<<7
	r.SetA(a)
	r.SetF(r.F()&(FlagS|FlagZ|FlagP) | carryOut | (a & (Flag3 | Flag5)))
}

func (c *CPU) execTable0IndirectLoad(d decoded, mode idxMode) int {
	if d.q == 0 {
		switch d.p {
		case 0:
			c.mem.Write8(c.r.BC, c.r.A())
			return 7
		case 1:
			c.mem.Write8(c.r.DE, c.r.A())
			return 7
		case 2:
			nn := c.fetch16()
			Write16(c.mem, nn, c.rp16Read(2, mode))
			return 16
		default:
			nn := c.fetch16()
			c.mem.Write8(nn, c.r.A())
			return 13
		}
	}
	switch d.p {
	case 0:
		c.r.SetA(c.mem.Read8(c.r.BC))
		return 7
	case 1:
		c.r.SetA(c.mem.Read8(c.r.DE))
		return 7
	case 2:
		nn := c.fetch16()
		c.rp16Write(2, mode, Read16(c.mem, nn))
		return 16
	default:
		nn := c.fetch16()
		c.r.SetA(c.mem.Read8(nn))
		return 13
	}
}

func (c *CPU) execTable1(d decoded, mode idxMode) int {
	if d.y == 6 && d.z == 6 {
		c.r.halted = true
		return 4
	}
	getDisp, used := c.dispCache()
	v := c.r8Read(d.z, mode, getDisp)
	c.r8Write(d.y, mode, v, getDisp)
	if d.y == 6 || d.z == 6 {
		return 7 + indexedExtra(used)
	}
	return 4
}

func (c *CPU) execTable2(d decoded, mode idxMode) int {
	getDisp, used := c.dispCache()
	v := c.r8Read(d.z, mode, getDisp)
	aluOp(&c.r, d.y, v)
	if d.z == 6 {
		return 7 + indexedExtra(used)
	}
	return 4
}

// aluOp dispatches the shared ADD/ADC/SUB/SBC/AND/XOR/OR/CP selector
// table used by both register-operand (table 2) and immediate-operand
// (table 3, z==6) ALU opcodes.
func aluOp(r *Registers, y uint8, v uint8) {
	switch y {
	case 0:
		aluAdd(r, v)
	case 1:
		aluAdc(r, v)
	case 2:
		aluSub(r, v)
	case 3:
		aluSbc(r, v)
	case 4:
		aluAnd(r, v)
	case 5:
		aluXor(r, v)
	case 6:
		aluOr(r, v)
	case 7:
		aluCp(r, v)
	}
}

func (c *CPU) execTable3(d decoded, mode idxMode, deferEI *bool) int {
	switch d.z {
	case 0:
		if c.condition(d.y) {
			c.r.PC = c.pop16()
			return 11
		}
		return 5
	case 1:
		if d.q == 0 {
			c.rp2WriteIndexed(d.p, mode, c.pop16())
			return 10
		}
		switch d.p {
		case 0:
			c.r.PC = c.pop16()
			return 10
		case 1:
			c.r.Exx()
			return 4
		case 2:
			c.r.PC = c.rp16Read(2, mode)
			return 4
		default:
			c.r.SP = c.rp16Read(2, mode)
			return 6
		}
	case 2:
		nn := c.fetch16()
		if c.condition(d.y) {
			c.r.PC = nn
		}
		return 10
	case 3:
		switch d.y {
		case 0:
			c.r.PC = c.fetch16()
			return 10
		case 1:
			panic("CB prefix handled in execOne")
		case 2:
			n := c.fetch8()
			c.out(uint16(c.r.A())<<8|uint16(n), c.r.A())
			return 11
		case 3:
			n := c.fetch8()
			c.r.SetA(c.in(uint16(c.r.A())<<8 | uint16(n)))
			return 11
		case 4:
			hl := c.rp16Read(2, mode)
			sp := Read16(c.mem, c.r.SP)
			Write16(c.mem, c.r.SP, hl)
			c.rp16Write(2, mode, sp)
			return 19
		case 5:
			de, hl := c.r.DE, c.r.HL
			c.r.DE, c.r.HL = hl, de
			return 4
		case 6:
			c.r.IFF1 = false
			c.r.IFF2 = false
			return 4
		default:
			*deferEI = true
			return 4
		}
	case 4:
		nn := c.fetch16()
		if c.condition(d.y) {
			c.push16(c.r.PC)
			c.r.PC = nn
			return 17
		}
		return 10
	case 5:
		if d.q == 0 {
			c.push16(c.rp2ReadIndexed(d.p, mode))
			return 11
		}
		switch d.y {
		case 1: // CALL nn (0xCD); the other three q==1,z==5 slots are DD/ED/FD
			nn := c.fetch16()
			c.push16(c.r.PC)
			c.r.PC = nn
			return 17
		default:
			panic("DD/ED/FD prefix handled in execOne")
		}
	case 6:
		n := c.fetch8()
		aluOp(&c.r, d.y, n)
		return 7
	default:
		c.push16(c.r.PC)
		c.r.PC = uint16(d.y) * 8
		return 11
	}
}

func bsel8(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
