/*
 * NVDiag - Configured diagnostic tests.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package diag

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bios"
	"github.com/rcornwell/nvdiag/bringup"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
)

var ErrUnknownTest = errors.New("unknown test")

// Test is one named diagnostic operation.
type Test struct {
	Name string
	Help string
	Run  func(r *Runner) error
}

var tests = []Test{
	{"DUMPREGS", "dump the register aperture", dumpRegs},
	{"DUMPVRAM", "dump installed memory", dumpVRAM},
	{"DUMPROM", "save the video BIOS image", dumpROM},
	{"DUMPFIFO", "dump PFIFO registers", resource(hal.OpDumpFIFO)},
	{"DUMPRAMHT", "dump the object hash table", resource(hal.OpDumpRAMHT)},
	{"DUMPRAMFC", "dump channel contexts", resource(hal.OpDumpRAMFC)},
	{"DUMPRAMRO", "dump the runout area", resource(hal.OpDumpRAMRO)},
	{"DUMPCACHE", "dump PFIFO caches", resource(hal.OpDumpCache)},
	{"INTERRUPT", "service pending interrupts", interrupt},
	{"RENDER", "enter Render state", setState(hal.StateRender)},
	{"MODESWITCH", "enter ModeSwitch state", setState(hal.StateModeSwitch)},
	{"RESET", "enter Reset state", setState(hal.StateReset)},
}

// Tests returns every known test in order.
func Tests() []Test {
	return tests
}

// Lookup finds a test by name, ignoring case.
func Lookup(name string) (Test, error) {
	for _, t := range tests {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return Test{}, fmt.Errorf("%w: %s", ErrUnknownTest, name)
}

// Result counts test outcomes.
type Result struct {
	Passed  int
	Skipped int
	Failed  int
}

func (r Result) String() string {
	return fmt.Sprintf("%d passed, %d skipped, %d failed", r.Passed, r.Skipped, r.Failed)
}

// Runner executes tests against one brought up device.
type Runner struct {
	Machine *bringup.Machine
	Writer  *dump.Writer
	BIOS    bios.Service
	SkipROM bool
}

// Fatal reports whether err must stop the run.
func Fatal(err error) bool {
	var crash *bringup.CrashError
	return errors.As(err, &crash) || errors.Is(err, bringup.ErrTerminal)
}

// Run executes names in order. Unsupported operations and output
// failures are logged and skipped, a crash stops the run and is
// returned.
func (r *Runner) Run(names []string) (Result, error) {
	var res Result
	for _, name := range names {
		err := r.RunTest(name)
		var outErr *dump.OutputError
		switch {
		case err == nil:
			res.Passed++
		case Fatal(err):
			res.Failed++
			return res, err
		case errors.Is(err, hal.ErrUnsupported):
			res.Skipped++
			slog.Warn("Test skipped", "test", name, "reason", err.Error())
		case errors.As(err, &outErr):
			res.Failed++
			slog.Error("Test output failed", "test", name, "error", err.Error())
		default:
			res.Failed++
			slog.Error("Test failed", "test", name, "error", err.Error())
		}
	}
	slog.Info("Tests complete", "result", res.String())
	return res, nil
}

// RunTest executes one test by name.
func (r *Runner) RunTest(name string) error {
	t, err := Lookup(name)
	if err != nil {
		return err
	}
	slog.Info("Running test", "test", t.Name)
	return t.Run(r)
}

func (r *Runner) logDump(kind, path string) {
	slog.Info("Dump written", "kind", kind, "path", path)
}

func dumpRegs(r *Runner) error {
	dev := r.Machine.Device()
	if dev.Regs == nil {
		return aperture.ErrUnmapped
	}
	excl := r.Machine.Table().RegExclusions()
	path, err := r.Writer.Region("regs", dev.Regs, dev.Regs.Size(), excl)
	if err != nil {
		return err
	}
	r.logDump("regs", path)
	return nil
}

func dumpVRAM(r *Runner) error {
	dev := r.Machine.Device()
	if dev.VRAM == nil {
		return aperture.ErrUnmapped
	}
	size := min(dev.VRAMSize, dev.VRAM.Size())
	path, err := r.Writer.Region("vram", dev.VRAM, size, r.Machine.Table().VRAMExclusions())
	if err != nil {
		return err
	}
	r.logDump("vram", path)
	return nil
}

func dumpROM(r *Runner) error {
	if r.SkipROM || r.BIOS == nil {
		return fmt.Errorf("rom: %w", hal.ErrUnsupported)
	}
	rom, err := r.BIOS.ReadROM()
	if errors.Is(err, bios.ErrUnsupported) {
		return fmt.Errorf("rom: %w", hal.ErrUnsupported)
	}
	if err != nil {
		return err
	}
	path, err := r.Writer.Bytes("rom", rom)
	if err != nil {
		return err
	}
	r.logDump("rom", path)
	return nil
}

func resource(op hal.Op) func(r *Runner) error {
	return func(r *Runner) error {
		path, err := r.Machine.Dump(op, r.Writer)
		if err != nil {
			return err
		}
		r.logDump(op.String(), path)
		return nil
	}
}

func interrupt(r *Runner) error {
	status, err := r.Machine.Interrupt()
	if err != nil {
		return err
	}
	slog.Info("Interrupts serviced", "status", fmt.Sprintf("%08x", status))
	return nil
}

func setState(state hal.State) func(r *Runner) error {
	return func(r *Runner) error {
		return r.Machine.SetState(state)
	}
}
