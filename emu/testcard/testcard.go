/*
 * NVDiag - Simulated graphics card for tests.
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

package testcard

import (
	"errors"
	"fmt"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bios"
	"github.com/rcornwell/nvdiag/bus"
)

// Kinds of recorded events.
const (
	EvConfigWrite = iota // Configuration space write.
	EvMap                // Aperture mapped.
	EvUnmap              // Aperture unmapped.
	EvRegRead            // Register read.
	EvRegWrite           // Register write.
	EvVRAMRead           // Memory aperture read.
	EvVRAMWrite          // Memory aperture write.
)

const (
	RegsSize = 0x1000000 // BAR0 decode size.
	VRAMSize = 0x2000000 // BAR1 decode size.

	regCoeffSelect = 0x68050c
	regNVPLL       = 0x680500
	regMPLL        = 0x680504
	regVPLL        = 0x680508
)

// Event is one recorded access.
type Event struct {
	Kind   int
	Offset uint32 // Config offset, register offset or physical base.
	Value  uint32
}

func (e Event) String() string {
	names := []string{"config", "map", "unmap", "rd", "wr", "vrd", "vwr"}
	return fmt.Sprintf("%s %08x %08x", names[e.Kind], e.Offset, e.Value)
}

// Card simulates one PCI graphics function with a sparse register file
// and memory aperture. Unset words read as zero.
type Card struct {
	Loc    bus.Location
	Config [bus.ConfigSize]byte
	Regs   map[uint32]uint32
	VRAM   map[uint32]uint32
	ROM    []byte
	Events []Event

	Revision    uint32 // Returned by Inquire when HaveBIOS is set.
	HaveBIOS    bool
	MapFail     error                               // Returned by every Map.
	ReadHook    func(off uint32) (uint32, bool)     // Overrides a register read.
	WriteHook   func(off uint32, value uint32) bool // Consumes a register write.
	ScramblePLL bool                                // Clock switch disturbs coefficients.
	Trace       bool                                // Record register and memory reads.
	Bar0Size    uint32                              // BAR0 decode size, RegsSize when zero.
}

// New creates a card with vendor and device ids. Both BARs start
// unprogrammed.
func New(vendor, device uint16, boot0 uint32) *Card {
	c := &Card{
		Loc:  bus.Location{Bus: 1},
		Regs: map[uint32]uint32{0: boot0},
		VRAM: map[uint32]uint32{},
	}
	c.Config[0] = byte(vendor)
	c.Config[1] = byte(vendor >> 8)
	c.Config[2] = byte(device)
	c.Config[3] = byte(device >> 8)
	return c
}

// SetBAR programs a base address register directly.
func (c *Card) SetBAR(offset uint16, value uint32) {
	for i := range 4 {
		c.Config[int(offset)+i] = byte(value >> (8 * i))
	}
}

// BAR returns a base address register.
func (c *Card) BAR(offset uint16) uint32 {
	v, _ := c.ReadConfig32(c.Loc, offset)
	return v
}

// Count returns the number of events of kind.
func (c *Card) Count(kind int) int {
	n := 0
	for _, e := range c.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Index returns the position of the first event matching kind and
// offset, or -1.
func (c *Card) Index(kind int, offset uint32) int {
	for i, e := range c.Events {
		if e.Kind == kind && e.Offset == offset {
			return i
		}
	}
	return -1
}

// Reset clears the event log.
func (c *Card) Reset() {
	c.Events = c.Events[:0]
}

func (c *Card) record(kind int, offset, value uint32) {
	c.Events = append(c.Events, Event{Kind: kind, Offset: offset, Value: value})
}

func (c *Card) ids() (uint16, uint16) {
	return uint16(c.Config[0]) | uint16(c.Config[1])<<8, uint16(c.Config[2]) | uint16(c.Config[3])<<8
}

// FindDevice implements bus.Bus.
func (c *Card) FindDevice(vendor, device uint16) (bus.Location, bool) {
	v, d := c.ids()
	if v == vendor && d == device {
		return c.Loc, true
	}
	return bus.Location{}, false
}

func (c *Card) check(loc bus.Location, offset uint16, width int) error {
	if loc != c.Loc {
		return fmt.Errorf("no device at %s", loc)
	}
	return bus.CheckAccess(offset, width)
}

func (c *Card) ReadConfig8(loc bus.Location, offset uint16) (uint8, error) {
	if err := c.check(loc, offset, 1); err != nil {
		return 0, err
	}
	return c.Config[offset], nil
}

func (c *Card) ReadConfig16(loc bus.Location, offset uint16) (uint16, error) {
	if err := c.check(loc, offset, 2); err != nil {
		return 0, err
	}
	return uint16(c.Config[offset]) | uint16(c.Config[offset+1])<<8, nil
}

func (c *Card) ReadConfig32(loc bus.Location, offset uint16) (uint32, error) {
	if err := c.check(loc, offset, 4); err != nil {
		return 0, err
	}
	var v uint32
	for i := range 4 {
		v |= uint32(c.Config[int(offset)+i]) << (8 * i)
	}
	return v, nil
}

func (c *Card) WriteConfig8(loc bus.Location, offset uint16, value uint8) error {
	if err := c.check(loc, offset, 1); err != nil {
		return err
	}
	c.record(EvConfigWrite, uint32(offset), uint32(value))
	c.Config[offset] = value
	return nil
}

func (c *Card) WriteConfig16(loc bus.Location, offset uint16, value uint16) error {
	if err := c.check(loc, offset, 2); err != nil {
		return err
	}
	c.record(EvConfigWrite, uint32(offset), uint32(value))
	c.Config[offset] = byte(value)
	c.Config[offset+1] = byte(value >> 8)
	return nil
}

func (c *Card) WriteConfig32(loc bus.Location, offset uint16, value uint32) error {
	if err := c.check(loc, offset, 4); err != nil {
		return err
	}
	c.record(EvConfigWrite, uint32(offset), value)
	c.SetBAR(offset, value)
	return nil
}

// Map implements aperture.Mapper. The physical address must fall inside
// one of the programmed BARs.
func (c *Card) Map(phys uint64, size uint32) (aperture.Backing, error) {
	if c.MapFail != nil {
		return nil, c.MapFail
	}
	bar0 := uint64(c.BAR(bus.ConfigBAR0) & 0xff000000)
	bar1 := uint64(c.BAR(bus.ConfigBAR1) & 0xff000000)
	end := phys + uint64(size)
	bar0Size := uint64(RegsSize)
	if c.Bar0Size != 0 {
		bar0Size = uint64(c.Bar0Size)
	}
	switch {
	case bar0 != 0 && phys >= bar0 && end <= bar0+bar0Size:
		c.record(EvMap, uint32(phys), size)
		return &window{card: c, vram: false, base: uint32(phys - bar0), phys: uint32(phys)}, nil
	case bar1 != 0 && phys >= bar1 && end <= bar1+VRAMSize:
		c.record(EvMap, uint32(phys), size)
		return &window{card: c, vram: true, base: uint32(phys - bar1), phys: uint32(phys)}, nil
	}
	return nil, fmt.Errorf("no BAR decodes 0x%08x", phys)
}

// Inquire implements bios.Service.
func (c *Card) Inquire(function uint16) (uint32, error) {
	if !c.HaveBIOS || function != bios.InquireRevision {
		return 0, bios.ErrUnsupported
	}
	return c.Revision, nil
}

// ReadROM implements bios.Service.
func (c *Card) ReadROM() ([]byte, error) {
	if c.ROM == nil {
		return nil, errors.New("no option ROM")
	}
	return bios.ValidateROM(c.ROM)
}

func (c *Card) readReg(off uint32) uint32 {
	if c.ReadHook != nil {
		if v, ok := c.ReadHook(off); ok {
			return v
		}
	}
	return c.Regs[off&^3]
}

func (c *Card) writeReg(off, value uint32) {
	c.record(EvRegWrite, off, value)
	if c.WriteHook != nil && c.WriteHook(off, value) {
		return
	}
	off &^= 3
	if off == 0 {
		return // Boot register is read only.
	}
	if off == regCoeffSelect && c.ScramblePLL && c.Regs[off] != value {
		for _, r := range []uint32{regNVPLL, regMPLL, regVPLL} {
			c.Regs[r] ^= 0x00010101
		}
	}
	c.Regs[off] = value
}

// Window into one of the card's spaces.
type window struct {
	card *Card
	vram bool
	base uint32
	phys uint32
}

func (w *window) load(offset uint32) uint32 {
	off := w.base + offset
	if w.vram {
		if w.card.Trace {
			w.card.record(EvVRAMRead, off, 0)
		}
		return w.card.VRAM[off&^3]
	}
	if w.card.Trace {
		w.card.record(EvRegRead, off, 0)
	}
	return w.card.readReg(off)
}

func (w *window) store(offset, value uint32) {
	off := w.base + offset
	if w.vram {
		w.card.record(EvVRAMWrite, off, value)
		w.card.VRAM[off&^3] = value
		return
	}
	w.card.writeReg(off, value)
}

func (w *window) Load8(offset uint32) uint8 {
	return uint8(w.load(offset&^3) >> (8 * (offset & 3)))
}

func (w *window) Load16(offset uint32) uint16 {
	return uint16(w.load(offset&^3) >> (8 * (offset & 2)))
}

func (w *window) Load32(offset uint32) uint32 {
	return w.load(offset)
}

func (w *window) Store8(offset uint32, value uint8) {
	shift := 8 * (offset & 3)
	old := w.load(offset &^ 3)
	w.store(offset&^3, old&^(0xff<<shift)|uint32(value)<<shift)
}

func (w *window) Store16(offset uint32, value uint16) {
	shift := 8 * (offset & 2)
	old := w.load(offset &^ 3)
	w.store(offset&^3, old&^(0xffff<<shift)|uint32(value)<<shift)
}

func (w *window) Store32(offset uint32, value uint32) {
	w.store(offset, value)
}

func (w *window) Unmap() error {
	w.card.record(EvUnmap, w.phys, 0)
	return nil
}
