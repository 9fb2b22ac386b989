/*
 * NVDiag - Live device context.
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
	"errors"
	"fmt"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bus"
)

var (
	ErrNotFound           = errors.New("no supported device found")
	ErrAlreadyInitialized = errors.New("device already initialized")
)

// Clock coefficient snapshot taken during bring-up.
type PLL struct {
	Select uint32 // Coefficient source select at bring-up.
	NVPLL  uint32 // Core clock.
	MPLL   uint32 // Memory clock.
	VPLL   uint32 // Pixel clock.
	Valid  bool   // Snapshot taken, Select may be restored.
}

// Object is a graphics object bound into the instance hash table.
type Object struct {
	Handle     uint32
	Class      uint32
	Subchannel uint8
}

// Runtime is the live instance record allocated when the device enters
// Init and released at Shutdown.
type Runtime struct {
	Started    bool
	Objects    map[uint32]Object // Bound objects by handle.
	Submitted  uint64            // Methods submitted.
	Interrupts uint64            // Interrupt services run.
}

// NewRuntime returns an empty runtime record.
func NewRuntime() *Runtime {
	return &Runtime{Objects: make(map[uint32]Object)}
}

// Context describes the one device a run operates on. It is created by
// DetectDevice and filled in during bring-up.
type Context struct {
	Entry    *CatalogEntry
	DeviceID uint16
	Location bus.Location

	Regs  *aperture.Aperture // Control register aperture.
	VRAM  *aperture.Aperture // Memory aperture.
	RAMIN *aperture.Aperture // Instance memory, a view of Regs or VRAM.

	Boot0      uint32
	Generation Generation
	VRAMSize   uint32
	CrystalHz  uint32
	Revision   uint8
	PLL        PLL

	Runtime *Runtime

	initialized bool
}

func (c *Context) String() string {
	name := "unknown"
	if c.Entry != nil {
		name = c.Entry.Name
	}
	return fmt.Sprintf("%s %04x at %s gen %s boot0 %08x", name, c.DeviceID, c.Location, c.Generation, c.Boot0)
}

// MarkInitialized records that bring-up has started on this context.
// A second call fails, bring-up is not re-entrant.
func (c *Context) MarkInitialized() error {
	if c.initialized {
		return ErrAlreadyInitialized
	}
	c.initialized = true
	return nil
}

// Initialized reports whether bring-up has been started.
func (c *Context) Initialized() bool {
	return c.initialized
}

// Release unmaps every aperture. It may be called more than once.
func (c *Context) Release() error {
	var errs []error
	for _, a := range []*aperture.Aperture{c.RAMIN, c.VRAM, c.Regs} {
		if a == nil {
			continue
		}
		if err := a.Unmap(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
