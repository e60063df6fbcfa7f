package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oisee/z80core/pkg/conformance"
	"github.com/oisee/z80core/pkg/trace"
	"github.com/oisee/z80core/pkg/z80"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "z80core",
		Short: "Z80 CPU core — run, trace, disassemble, and conformance-check a binary image",
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDisasmCmd())
	rootCmd.AddCommand(newConformanceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var org uint16
	var maxSteps int
	var traceFlag bool
	var checkpointOut string

	cmd := &cobra.Command{
		Use:   "run [binary]",
		Short: "Load a raw binary at --org and execute it until HALT or --max-steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			mem := z80.NewFlatMemory()
			mem.LoadAt(org, program)
			c := z80.New(mem, nil)
			c.Regs().PC = org

			tbl := trace.NewTable()
			steps := 0
			for ; maxSteps <= 0 || steps < maxSteps; steps++ {
				if c.Regs().Halted() {
					break
				}
				pc := c.Regs().PC
				opcode := mem.Read8(pc)
				t, err := c.Step()
				if err != nil {
					return fmt.Errorf("step %d at PC=%#04x: %w", steps, pc, err)
				}
				if traceFlag {
					mnem, _ := z80.Disassemble(mem, pc)
					tbl.Add(trace.Entry{PC: pc, Opcode: opcode, Mnemonic: mnem, Tstates: t})
				}
			}

			fmt.Printf("stopped after %d instructions (%d T-states)\n", steps, c.Regs().Tstates)
			printRegs(c.Regs())

			if traceFlag {
				fmt.Printf("\ntrace (%d entries):\n", tbl.Len())
				for _, e := range tbl.Entries() {
					fmt.Printf("  %04X  %-16s %d T\n", e.PC, e.Mnemonic, e.Tstates)
				}
			}

			if checkpointOut != "" {
				if err := trace.Save(checkpointOut, c, mem.Data[:]); err != nil {
					return fmt.Errorf("saving checkpoint: %w", err)
				}
				fmt.Printf("checkpoint written to %s\n", checkpointOut)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&org, "org", 0, "load address")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "stop after this many instructions (0 = until HALT)")
	cmd.Flags().BoolVarP(&traceFlag, "trace", "t", false, "record and print every executed instruction")
	cmd.Flags().StringVar(&checkpointOut, "checkpoint", "", "write a gob checkpoint of the final state to this path")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	var org uint16
	var count int

	cmd := &cobra.Command{
		Use:   "disasm [binary]",
		Short: "Disassemble a raw binary starting at --org",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			mem := z80.NewFlatMemory()
			mem.LoadAt(org, program)

			addr := org
			for i := 0; count <= 0 || i < count; i++ {
				if int(addr-org) >= len(program) {
					break
				}
				text, length := z80.Disassemble(mem, addr)
				fmt.Printf("%04X  %-16s\n", addr, text)
				addr += uint16(length)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&org, "org", 0, "base address")
	cmd.Flags().IntVar(&count, "count", 0, "number of instructions to print (0 = until end of file)")
	return cmd
}

func newConformanceCmd() *cobra.Command {
	var numWorkers int
	var verbose bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "conformance",
		Short: "Run the scenario and invariant sweep and report any failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			wp := conformance.NewWorkerPool(numWorkers)
			reports := wp.RunAll(verbose)

			failures := 0
			for _, r := range reports {
				if r.Err != nil {
					failures++
				}
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}

			for _, r := range reports {
				if r.Err != nil {
					fmt.Printf("FAIL %s: %v\n", r.Name, r.Err)
				}
			}
			fmt.Printf("%d/%d checks passed\n", len(reports)-failures, len(reports))
			if failures > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "number of workers (0 = NumCPU)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print progress while the exhaustive sweeps run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit results as JSON instead of text")
	return cmd
}

func printRegs(r *z80.Registers) {
	fmt.Printf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X\n",
		r.AF, r.BC, r.DE, r.HL, r.IX, r.IY)
	fmt.Printf("SP=%04X PC=%04X I=%02X R=%02X IFF1=%v IFF2=%v IM=%d\n",
		r.SP, r.PC, r.I, r.R, r.IFF1, r.IFF2, r.IM)
}
