/*
 * NVDiag - Resource area dumps.
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
	"errors"
	"fmt"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
)

var ErrNoInstance = errors.New("instance memory not mapped")

// Window is a byte range within an aperture.
type Window struct {
	Base uint32
	Size uint32
}

func (w Window) String() string {
	return fmt.Sprintf("%06x+%x", w.Base, w.Size)
}

// DumpWindow dumps win of src as kind, applying the exclusions that fall
// inside it.
func DumpWindow(w *dump.Writer, kind string, src *aperture.Aperture, win Window, excl dump.ExclusionList) (string, error) {
	view, err := src.Slice(kind, win.Base, win.Size)
	if err != nil {
		return "", fmt.Errorf("%s window %s: %w", kind, win, err)
	}
	defer view.Unmap()
	return w.Region(kind, view, win.Size, excl.Window(win.Base, win.Size))
}

// RegisterDump returns a dump slot for a fixed window of the register
// aperture.
func RegisterDump(kind string, win Window, excl dump.ExclusionList) hal.DumpFunc {
	return func(dev *device.Context, w *dump.Writer) (string, error) {
		if dev.Regs == nil {
			return "", aperture.ErrUnmapped
		}
		return DumpWindow(w, kind, dev.Regs, win, excl)
	}
}

// InstanceDump returns a dump slot for the instance memory window named
// by a PFIFO configuration register.
func InstanceDump(kind string, reg uint32, decode func(uint32) Window) hal.DumpFunc {
	return func(dev *device.Context, w *dump.Writer) (string, error) {
		if dev.RAMIN == nil {
			return "", ErrNoInstance
		}
		r := NewRegs(dev.Regs)
		win := decode(r.Read(reg))
		if err := r.Err(); err != nil {
			return "", err
		}
		return DumpWindow(w, kind, dev.RAMIN, win, nil)
	}
}

// Decoders for the PFIFO instance layout used from NV4 on, where the
// register holds the byte address shifted right by 8.

// RAMHTWindow decodes PFIFO_RAMHT.
func RAMHTWindow(v uint32) Window {
	return Window{Base: (v & 0xffff) << 8, Size: 0x1000 << ((v >> 16) & 3)}
}

// RAMFCWindow decodes PFIFO_RAMFC.
func RAMFCWindow(v uint32) Window {
	return Window{Base: (v & 0xffff) << 8, Size: 0x200}
}

// RAMROWindow decodes PFIFO_RAMRO.
func RAMROWindow(v uint32) Window {
	return Window{Base: (v & 0xffff) << 8, Size: 0x200}
}
