package z80

import "testing"

// stubIO is a minimal IOBus recording the last OUT and returning a fixed
// value from IN, for exercising the port-addressed opcode groups.
type stubIO struct {
	inValue  uint8
	lastPort uint16
	lastOut  uint8
}

func (s *stubIO) In(port uint16) uint8 {
	s.lastPort = port
	return s.inValue
}

func (s *stubIO) Out(port uint16, v uint8) {
	s.lastPort = port
	s.lastOut = v
}

// --- table 1: LD r,r' ---

func TestLDRegisterToRegister(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0x47}) // LD B,A
	c.Regs().SetA(0x99)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 4 {
		t.Errorf("tstates = %d, want 4", tstates)
	}
	if c.Regs().B() != 0x99 {
		t.Errorf("B = %#x, want 0x99", c.Regs().B())
	}
}

func TestLDThroughMemory(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0x77}) // LD (HL),A
	c.Regs().SetA(0x42)
	c.Regs().HL = 0x9000

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 7 {
		t.Errorf("tstates = %d, want 7", tstates)
	}
	if mem.Read8(0x9000) != 0x42 {
		t.Errorf("(HL) = %#x, want 0x42", mem.Read8(0x9000))
	}
}

func TestHaltIsTheOneTable1SlotThatIsNotALoad(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0x76}) // LD (HL),(HL) encoding is reused for HALT
	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if !c.Regs().Halted() {
		t.Error("0x76 should HALT, not LD (HL),(HL)")
	}
}

// --- table 3: control flow ---

func TestCallAndRet(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xCD, 0x00, 0x90}) // CALL 0x9000
	mem.LoadAt(0x9000, []byte{0xC9})        // RET
	c.Regs().SP = 0xFFF0

	tstates, err := c.Step() // CALL
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 17 {
		t.Errorf("CALL tstates = %d, want 17", tstates)
	}
	if c.Regs().PC != 0x9000 {
		t.Fatalf("PC = %#x, want 0x9000", c.Regs().PC)
	}
	if c.Regs().SP != 0xFFEE {
		t.Errorf("SP = %#x, want 0xFFEE", c.Regs().SP)
	}
	if Read16(mem, 0xFFEE) != 0x0003 {
		t.Errorf("return address on stack = %#x, want 0x0003", Read16(mem, 0xFFEE))
	}

	tstates, err = c.Step() // RET
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 10 {
		t.Errorf("RET tstates = %d, want 10", tstates)
	}
	if c.Regs().PC != 0x0003 {
		t.Errorf("PC = %#x, want 0x0003 after RET", c.Regs().PC)
	}
	if c.Regs().SP != 0xFFF0 {
		t.Errorf("SP = %#x, want 0xFFF0 after RET", c.Regs().SP)
	}
}

func TestCallConditionNotTaken(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xC4, 0x00, 0x90}) // CALL NZ,0x9000
	c.Regs().SP = 0xFFF0
	c.Regs().SetF(FlagZ)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 10 {
		t.Errorf("tstates = %d, want 10 (not taken)", tstates)
	}
	if c.Regs().PC != 3 {
		t.Errorf("PC = %#x, want 3 (fell through)", c.Regs().PC)
	}
	if c.Regs().SP != 0xFFF0 {
		t.Error("SP must not move when the call isn't taken")
	}
}

func TestPushPop(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xC5, 0xD1}) // PUSH BC; POP DE
	c.Regs().BC = 0x1234
	c.Regs().SP = 0xFFF0

	tstates, err := c.Step() // PUSH BC
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 11 {
		t.Errorf("PUSH tstates = %d, want 11", tstates)
	}
	if c.Regs().SP != 0xFFEE {
		t.Errorf("SP = %#x, want 0xFFEE", c.Regs().SP)
	}

	tstates, err = c.Step() // POP DE
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 10 {
		t.Errorf("POP tstates = %d, want 10", tstates)
	}
	if c.Regs().DE != 0x1234 {
		t.Errorf("DE = %#x, want 0x1234", c.Regs().DE)
	}
	if c.Regs().SP != 0xFFF0 {
		t.Errorf("SP = %#x, want 0xFFF0", c.Regs().SP)
	}
}

func TestJpNNAndConditional(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xC3, 0x00, 0x80}) // JP 0x8000
	mem.LoadAt(0x8000, []byte{0xCA, 0x00, 0x90})
	c.Regs().SetF(FlagZ)

	if _, err := c.Step(); err != nil { // JP 0x8000
		t.Fatal(err)
	}
	if c.Regs().PC != 0x8000 {
		t.Fatalf("PC = %#x, want 0x8000", c.Regs().PC)
	}

	if _, err := c.Step(); err != nil { // JP Z,0x9000 (taken)
		t.Fatal(err)
	}
	if c.Regs().PC != 0x9000 {
		t.Errorf("PC = %#x, want 0x9000 (JP Z taken)", c.Regs().PC)
	}
}

func TestRst(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xEF}) // RST 0x28
	c.Regs().SP = 0xFFF0

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 11 {
		t.Errorf("tstates = %d, want 11", tstates)
	}
	if c.Regs().PC != 0x28 {
		t.Errorf("PC = %#x, want 0x28", c.Regs().PC)
	}
	if Read16(mem, c.Regs().SP) != 1 {
		t.Errorf("return address on stack = %#x, want 1", Read16(mem, c.Regs().SP))
	}
}

func TestExSPHL(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xE3}) // EX (SP),HL
	c.Regs().SP = 0x8000
	c.Regs().HL = 0x1234
	Write16(mem, 0x8000, 0x5678)

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.Regs().HL != 0x5678 {
		t.Errorf("HL = %#x, want 0x5678", c.Regs().HL)
	}
	if Read16(mem, 0x8000) != 0x1234 {
		t.Errorf("(SP) = %#x, want 0x1234", Read16(mem, 0x8000))
	}
}

func TestExDEHL(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xEB}) // EX DE,HL
	c.Regs().DE = 0x1111
	c.Regs().HL = 0x2222

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.Regs().DE != 0x2222 || c.Regs().HL != 0x1111 {
		t.Errorf("DE=%#x HL=%#x, want swapped", c.Regs().DE, c.Regs().HL)
	}
}

func TestDIEI(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xF3, 0x00, 0xFB, 0x00}) // DI; NOP; EI; NOP
	c.Regs().IFF1 = true
	c.Regs().IFF2 = true

	if _, err := c.Step(); err != nil { // DI
		t.Fatal(err)
	}
	if c.Regs().IFF1 || c.Regs().IFF2 {
		t.Error("DI should clear both IFF1 and IFF2 immediately")
	}
	if _, err := c.Step(); err != nil { // NOP
		t.Fatal(err)
	}
	if _, err := c.Step(); err != nil { // EI
		t.Fatal(err)
	}
	if c.Regs().IFF1 {
		t.Error("EI must not take effect until after the next instruction")
	}
	if _, err := c.Step(); err != nil { // NOP after EI
		t.Fatal(err)
	}
	if !c.Regs().IFF1 || !c.Regs().IFF2 {
		t.Error("EI should have taken effect after the instruction following it")
	}
}

func TestInOutImmediate(t *testing.T) {
	io := &stubIO{inValue: 0x55}
	mem := NewFlatMemory()
	c := New(mem, io)
	mem.LoadAt(0, []byte{0xD3, 0x10, 0xDB, 0x20}) // OUT (0x10),A; IN A,(0x20)
	c.Regs().SetA(0xAB)

	if _, err := c.Step(); err != nil { // OUT
		t.Fatal(err)
	}
	if io.lastOut != 0xAB {
		t.Errorf("OUT wrote %#x, want 0xAB", io.lastOut)
	}
	if io.lastPort != uint16(0xAB)<<8|0x10 {
		t.Errorf("OUT port = %#x", io.lastPort)
	}

	if _, err := c.Step(); err != nil { // IN
		t.Fatal(err)
	}
	if c.Regs().A() != 0x55 {
		t.Errorf("A = %#x, want 0x55", c.Regs().A())
	}
}

// --- CB table ---

func TestCBRotateRegister(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xCB, 0x00}) // RLC B
	c.Regs().SetB(0x80)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 8 {
		t.Errorf("tstates = %d, want 8", tstates)
	}
	if c.Regs().B() != 0x01 {
		t.Errorf("B = %#x, want 0x01", c.Regs().B())
	}
	if c.Regs().F()&FlagC == 0 {
		t.Error("carry should be set")
	}
}

func TestCBBitOnMemory(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xCB, 0x46}) // BIT 0,(HL)
	c.Regs().HL = 0x9000
	mem.Write8(0x9000, 0x00)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 12 {
		t.Errorf("tstates = %d, want 12", tstates)
	}
	if c.Regs().F()&FlagZ == 0 {
		t.Error("Z should be set, bit 0 of 0x00 is clear")
	}
}

func TestCBResSetOnMemory(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xCB, 0x86, 0xCB, 0xC6}) // RES 0,(HL); SET 0,(HL)
	c.Regs().HL = 0x9000
	mem.Write8(0x9000, 0xFF)

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if mem.Read8(0x9000) != 0xFE {
		t.Errorf("(HL) = %#x, want 0xFE after RES 0", mem.Read8(0x9000))
	}

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if mem.Read8(0x9000) != 0xFF {
		t.Errorf("(HL) = %#x, want 0xFF after SET 0", mem.Read8(0x9000))
	}
}

func TestCBIndexedUsesDisplacementBeforeOpcode(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xDD, 0xCB, 0x05, 0x06}) // RLC (IX+5)
	c.Regs().IX = 0x9000
	mem.Write8(0x9005, 0x80)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 23 {
		t.Errorf("tstates = %d, want 23", tstates)
	}
	if mem.Read8(0x9005) != 0x01 {
		t.Errorf("(IX+5) = %#x, want 0x01", mem.Read8(0x9005))
	}
}

// --- ED table ---

func TestEDAdcHL(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0x4A}) // ADC HL,BC
	c.Regs().HL = 0x0001
	c.Regs().BC = 0x0001
	c.Regs().SetF(FlagC)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 15 {
		t.Errorf("tstates = %d, want 15", tstates)
	}
	if c.Regs().HL != 0x0003 {
		t.Errorf("HL = %#x, want 0x0003", c.Regs().HL)
	}
}

func TestEDLoadNNIndirectRP(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0x43, 0x00, 0x90}) // LD (0x9000),BC
	c.Regs().BC = 0xBEEF

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 20 {
		t.Errorf("tstates = %d, want 20", tstates)
	}
	if Read16(mem, 0x9000) != 0xBEEF {
		t.Errorf("(0x9000) = %#x, want 0xBEEF", Read16(mem, 0x9000))
	}
}

func TestEDNeg(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0x44}) // NEG
	c.Regs().SetA(0x01)

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.Regs().A() != 0xFF {
		t.Errorf("A = %#x, want 0xFF", c.Regs().A())
	}
	if c.Regs().F()&FlagC == 0 {
		t.Error("C should be set (A was nonzero)")
	}
}

func TestEDInterruptMode(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0x5E}) // IM 2

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.Regs().IM != 2 {
		t.Errorf("IM = %d, want 2", c.Regs().IM)
	}
}

func TestEDBlockLDI(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0xA0}) // LDI
	c.Regs().HL = 0x8000
	c.Regs().DE = 0x9000
	c.Regs().BC = 2
	mem.Write8(0x8000, 0x77)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 16 {
		t.Errorf("tstates = %d, want 16", tstates)
	}
	if mem.Read8(0x9000) != 0x77 {
		t.Errorf("(DE) = %#x, want 0x77", mem.Read8(0x9000))
	}
	if c.Regs().HL != 0x8001 || c.Regs().DE != 0x9001 || c.Regs().BC != 1 {
		t.Errorf("HL=%#x DE=%#x BC=%#x after LDI", c.Regs().HL, c.Regs().DE, c.Regs().BC)
	}
	if c.Regs().F()&FlagP == 0 {
		t.Error("P/V should be set, BC is still nonzero")
	}
}

func TestEDBlockLDIRRepeats(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0xB0}) // LDIR
	c.Regs().HL = 0x8000
	c.Regs().DE = 0x9000
	c.Regs().BC = 3
	mem.LoadAt(0x8000, []byte{1, 2, 3})

	for c.Regs().BC != 0 {
		if _, err := c.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if mem.Read8(0x9000) != 1 || mem.Read8(0x9001) != 2 || mem.Read8(0x9002) != 3 {
		t.Fatal("LDIR did not copy all three bytes")
	}
	if c.Regs().PC != 2 {
		t.Errorf("PC = %#x, want 2 (loop exited once BC hit 0)", c.Regs().PC)
	}
}

func TestEDBlockCPI(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0xA1}) // CPI
	c.Regs().HL = 0x8000
	c.Regs().BC = 1
	c.Regs().SetA(0x42)
	mem.Write8(0x8000, 0x42)

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.Regs().F()&FlagZ == 0 {
		t.Error("Z should be set, A matched (HL)")
	}
	if c.Regs().HL != 0x8001 {
		t.Errorf("HL = %#x, want 0x8001", c.Regs().HL)
	}
}

func TestEDBlockINIAndOUTI(t *testing.T) {
	io := &stubIO{inValue: 0x99}
	mem := NewFlatMemory()
	c := New(mem, io)
	mem.LoadAt(0, []byte{0xED, 0xA2, 0xED, 0xA3}) // INI; OUTI
	c.Regs().HL = 0x8000
	c.Regs().SetB(1)
	c.Regs().SetC(0x10)

	if _, err := c.Step(); err != nil { // INI
		t.Fatal(err)
	}
	if mem.Read8(0x8000) != 0x99 {
		t.Errorf("(HL) = %#x after INI, want 0x99", mem.Read8(0x8000))
	}
	if c.Regs().B() != 0 {
		t.Errorf("B = %#x, want 0 after INI", c.Regs().B())
	}
	if c.Regs().HL != 0x8001 {
		t.Errorf("HL = %#x, want 0x8001", c.Regs().HL)
	}

	c.Regs().SetB(1)
	mem.Write8(c.Regs().HL, 0x77) // OUTI reads from (HL), now 0x8001
	if _, err := c.Step(); err != nil { // OUTI
		t.Fatal(err)
	}
	if io.lastOut != 0x77 {
		t.Errorf("OUTI wrote %#x, want 0x77", io.lastOut)
	}
}

func TestEDRRDRLD(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0x67}) // RRD
	c.Regs().HL = 0x8000
	c.Regs().SetA(0x12)
	mem.Write8(0x8000, 0x34)

	tstates, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if tstates != 18 {
		t.Errorf("tstates = %d, want 18", tstates)
	}
	if c.Regs().A() != 0x14 {
		t.Errorf("A = %#x, want 0x14", c.Regs().A())
	}
	if mem.Read8(0x8000) != 0x23 {
		t.Errorf("(HL) = %#x, want 0x23", mem.Read8(0x8000))
	}
}

func TestEDLoadAFromIWithIFF2(t *testing.T) {
	c, mem := newTestCPU()
	mem.LoadAt(0, []byte{0xED, 0x57}) // LD A,I
	c.Regs().I = 0x80
	c.Regs().IFF2 = true

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.Regs().A() != 0x80 {
		t.Errorf("A = %#x, want 0x80", c.Regs().A())
	}
	if c.Regs().F()&FlagP == 0 {
		t.Error("P/V should mirror IFF2 (set)")
	}
	if c.Regs().F()&FlagS == 0 {
		t.Error("S should mirror bit 7 of I")
	}
}
