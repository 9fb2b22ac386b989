/*
 * NVDiag - Generic bring-up sequence.
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

package chip

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bios"
	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/hal"
	"github.com/rcornwell/nvdiag/util/debug"
)

// Layout describes where a generation keeps its apertures and straps.
type Layout struct {
	RegsSize    uint32                                                // Bytes of BAR0 mapped as registers.
	VRAMBar     uint16                                                // Memory BAR, zero when memory sits in BAR0.
	VRAMOffset  uint32                                                // Offset of memory within BAR0 when VRAMBar is zero.
	VRAMMap     uint32                                                // Bytes of memory aperture to map, memory size when zero.
	Straps      uint32                                                // Board strap register.
	MemSize     func(r *Regs) uint32                                  // Installed memory in bytes.
	AllSoftware uint32                                                // Select value for software clocks, zero without PLLs.
	RAMIN       func(dev *device.Context) (*aperture.Aperture, error) // Instance memory view.
}

// Bringup runs the sequence shared by every generation: enable and map
// the apertures, read identity, memory size and straps, enable every
// subsystem, then interrupts, then set the clocks to software control.
func Bringup(dev *device.Context, env hal.Env, l *Layout) error {
	regsBase, err := dev.EnableRegisterAperture(env.Bus, env.Fallback)
	if err != nil {
		return fmt.Errorf("register BAR: %w", err)
	}
	vramBase := regsBase + l.VRAMOffset
	if l.VRAMBar != 0 {
		vramBase, err = device.EnableBAR(env.Bus, dev.Location, l.VRAMBar, env.Fallback.VRAM)
		if err != nil {
			return fmt.Errorf("memory BAR: %w", err)
		}
	}
	debug.Debugf("CHIP", debugMsk, debugBar, "regs %08x vram %08x", regsBase, vramBase)

	dev.Regs, err = aperture.Map(env.Mapper, "regs", uint64(regsBase), l.RegsSize)
	if err != nil {
		return err
	}
	r := NewRegs(dev.Regs)
	dev.Boot0 = r.Read(PMCBoot0)
	dev.VRAMSize = l.MemSize(r)
	dev.CrystalHz = Crystal(r.Read(l.Straps))
	if err := r.Err(); err != nil {
		return err
	}

	mapSize := l.VRAMMap
	if mapSize == 0 {
		mapSize = dev.VRAMSize
	}
	dev.VRAM, err = aperture.Map(env.Mapper, "vram", uint64(vramBase), mapSize)
	if err != nil {
		return err
	}

	r.Write(PMCEnable, 0xffffffff)
	r.Write(PMCIntrEn0, IntrEnHardware|IntrEnSoftware)
	if l.AllSoftware != 0 {
		if err := ClockRoundTrip(r, &dev.PLL, l.AllSoftware); err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return err
	}

	dev.Revision = Revision(dev, env)
	if l.RAMIN != nil {
		dev.RAMIN, err = l.RAMIN(dev)
		if err != nil {
			return fmt.Errorf("instance memory: %w", err)
		}
	}
	slog.Info("Chip enabled", "generation", dev.Generation.String(), "memory", dev.VRAMSize>>20,
		"crystal", dev.CrystalHz, "revision", dev.Revision)
	return nil
}

// Shutdown disables interrupt delivery and returns clock control to the
// source selected before bring-up.
func Shutdown(dev *device.Context, l *Layout) error {
	r := NewRegs(dev.Regs)
	r.Write(PMCIntrEn0, 0)
	if l.AllSoftware != 0 {
		RestoreClock(r, &dev.PLL)
	}
	return r.Err()
}

// Crystal decodes the reference clock from the board straps.
func Crystal(straps uint32) uint32 {
	if straps&StrapCrystal != 0 {
		return Crystal14318
	}
	return Crystal13500
}

// Revision asks the video BIOS for the silicon revision, falling back to
// the PCI revision id.
func Revision(dev *device.Context, env hal.Env) uint8 {
	if env.BIOS != nil {
		if v, err := env.BIOS.Inquire(bios.InquireRevision); err == nil {
			return uint8(v)
		}
	}
	if rev, err := env.Bus.ReadConfig8(dev.Location, bus.ConfigRevision); err == nil {
		return rev
	}
	return dev.Revision
}

// PRAMINWindow returns the instance memory view in BAR0 used by NV4 and
// later.
func PRAMINWindow(dev *device.Context) (*aperture.Aperture, error) {
	return dev.Regs.Slice("ramin", PRAMIN, 0x100000)
}
