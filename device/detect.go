/*
 * NVDiag - Device detection and identification.
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

package device

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bus"
)

const (
	barMask   uint32 = 0xff000000 // Only the high byte of a BAR is decoded.
	probeSize uint32 = 0x1000
	regBoot0  uint32 = 0x000000 // PMC_BOOT_0
)

// Fallback holds the candidate base addresses used when firmware left
// the BARs unprogrammed.
type Fallback struct {
	Regs uint32
	VRAM uint32
}

// DefaultFallback matches the addresses a PC BIOS usually assigns.
var DefaultFallback = Fallback{Regs: 0xfd000000, VRAM: 0xf8000000}

// DetectDevice finds the first catalog entry present on the bus. Every
// id of an entry's range is tried before moving to the next entry.
func DetectDevice(b bus.Bus, catalog []CatalogEntry) (*Context, error) {
	for i := range catalog {
		entry := &catalog[i]
		for id := uint32(entry.DeviceLow); id <= uint32(entry.DeviceHigh); id++ {
			loc, ok := b.FindDevice(entry.Vendor, uint16(id))
			if !ok {
				continue
			}
			slog.Info("Device found", "name", entry.Name, "id", fmt.Sprintf("%04x:%04x", entry.Vendor, id),
				"location", loc.String())
			return &Context{Entry: entry, DeviceID: uint16(id), Location: loc, Generation: entry.Generation}, nil
		}
	}
	return nil, ErrNotFound
}

// ReadBAR returns a base address register masked to its decoded bits.
func ReadBAR(b bus.Bus, loc bus.Location, offset uint16) (uint32, error) {
	v, err := b.ReadConfig32(loc, offset)
	if err != nil {
		return 0, err
	}
	return v & barMask, nil
}

// EnableBAR reads a BAR and, when it reads as unprogrammed, enables I/O,
// memory and bus mastering then programs it with candidate. It returns
// the base to map.
func EnableBAR(b bus.Bus, loc bus.Location, offset uint16, candidate uint32) (uint32, error) {
	base, err := ReadBAR(b, loc, offset)
	if err != nil {
		return 0, err
	}
	if base != 0 {
		return base, nil
	}
	slog.Warn("BAR not programmed", "bar", fmt.Sprintf("%02x", offset), "candidate", fmt.Sprintf("%08x", candidate))
	if err := bus.SetCommand(b, loc, bus.CommandIO|bus.CommandMemory|bus.CommandBusMaster); err != nil {
		return 0, err
	}
	if err := b.WriteConfig32(loc, offset, candidate&barMask); err != nil {
		return 0, err
	}
	return ReadBAR(b, loc, offset)
}

// EnableRegisterAperture makes sure BAR0 decodes before it is mapped.
func (c *Context) EnableRegisterAperture(b bus.Bus, fb Fallback) (uint32, error) {
	return EnableBAR(b, c.Location, bus.ConfigBAR0, fb.Regs)
}

// Identify reads PMC_BOOT_0 through a small probe mapping and classifies
// the silicon. The probe mapping is released before returning.
func (c *Context) Identify(b bus.Bus, m aperture.Mapper, fb Fallback) error {
	base, err := c.EnableRegisterAperture(b, fb)
	if err != nil {
		return err
	}
	probe, err := aperture.Map(m, "probe", uint64(base), probeSize)
	if err != nil {
		return err
	}
	boot0, rerr := probe.Read32(regBoot0)
	if err := probe.Unmap(); err != nil && rerr == nil {
		rerr = err
	}
	if rerr != nil {
		return rerr
	}
	if rev, err := b.ReadConfig8(c.Location, bus.ConfigRevision); err == nil {
		c.Revision = rev
	}
	c.Boot0 = boot0
	c.Generation = ClassifyGeneration(boot0)
	if c.Entry != nil && c.Entry.Generation != c.Generation {
		slog.Warn("Boot register disagrees with catalog", "catalog", c.Entry.Generation.String(),
			"boot0", fmt.Sprintf("%08x", boot0), "generation", c.Generation.String())
	}
	slog.Info("Chip identified", "generation", c.Generation.String(), "boot0", fmt.Sprintf("%08x", boot0),
		"stepping", Stepping(boot0))
	return nil
}
