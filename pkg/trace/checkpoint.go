package trace

import (
	"encoding/gob"
	"os"

	"github.com/oisee/z80core/pkg/z80"
)

// Snapshot is a point-in-time save of a core's registers and RAM. The
// memory model is host-owned, so a Snapshot carries a copy of whatever
// byte slice the host backs its z80.FlatMemory with rather than reaching
// into the core for it.
//
// Registers.halted is unexported and gob drops it silently; a restored
// core never resumes mid-HALT. That matches how every checkpoint in
// practice is taken (on a poll boundary, never inside a HALT spin).
type Snapshot struct {
	Regs z80.Registers
	RAM  []byte
}

func init() {
	gob.Register(z80.Registers{})
}

// Save writes a core's registers and the given RAM image to path.
func Save(path string, cpu *z80.CPU, ram []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	snap := Snapshot{
		Regs: *cpu.Regs(),
		RAM:  append([]byte(nil), ram...),
	}
	return gob.NewEncoder(f).Encode(&snap)
}

// Load restores a core's registers from path and copies the saved RAM
// image into ram. ram must already be sized to hold it; Load copies only
// min(len(ram), len(snapshot.RAM)) bytes.
func Load(path string, cpu *z80.CPU, ram []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return err
	}
	*cpu.Regs() = snap.Regs
	copy(ram, snap.RAM)
	return nil
}
