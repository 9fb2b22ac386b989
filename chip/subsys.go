/*
 * NVDiag - FIFO and graph subsystem hooks.
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
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/hal"
)

// FIFOConfig holds the instance memory layout programmed at reset.
type FIFOConfig struct {
	RAMHT uint32
	RAMFC uint32
	RAMRO uint32
}

// FIFOHook returns the PFIFO state hook for a generation.
func FIFOHook(cfg FIFOConfig) func(*device.Context, hal.State) error {
	return func(dev *device.Context, state hal.State) error {
		r := NewRegs(dev.Regs)
		switch state {
		case hal.StateInit:
			r.Write(PFIFOIntrEn0, 0)
			r.Write(PFIFOIntr0, 0xffffffff)
		case hal.StateReset:
			r.Write(PFIFOCaches, 0)
			r.Write(PFIFOCache1, 0)
			r.Write(PFIFORAMHT, cfg.RAMHT)
			r.Write(PFIFORAMFC, cfg.RAMFC)
			r.Write(PFIFORAMRO, cfg.RAMRO)
			r.Write(PFIFOIntr0, 0xffffffff)
			r.Write(PFIFOIntrEn0, 0xffffffff)
			r.Write(PFIFOCache1, 1)
			r.Write(PFIFOCache1Pull, 1)
			r.Write(PFIFOCaches, 1)
		case hal.StateRender:
			r.Write(PFIFOCaches, 1)
		case hal.StateModeSwitch:
			r.Write(PFIFOCaches, 0)
		case hal.StateShutdown:
			r.Write(PFIFOIntrEn0, 0)
			r.Write(PFIFOCaches, 0)
		}
		return r.Err()
	}
}

// GraphState is the PGRAPH state hook shared by every generation.
func GraphState(dev *device.Context, state hal.State) error {
	r := NewRegs(dev.Regs)
	switch state {
	case hal.StateInit:
		r.Write(PGRAPHIntrEn0, 0)
		r.Write(PGRAPHIntr0, 0xffffffff)
	case hal.StateReset:
		r.Write(PGRAPHIntr0, 0xffffffff)
		r.Write(PGRAPHIntrEn0, 0xffffffff)
		r.Write(PGRAPHFIFO, 1)
	case hal.StateRender:
		r.Write(PGRAPHFIFO, 1)
	case hal.StateModeSwitch:
		r.Write(PGRAPHFIFO, 0)
	case hal.StateShutdown:
		r.Write(PGRAPHIntrEn0, 0)
		r.Write(PGRAPHFIFO, 0)
	}
	return r.Err()
}

// Interrupt acknowledges pending PFIFO and PGRAPH interrupts and returns
// the PMC status that was serviced.
func Interrupt(dev *device.Context) (uint32, error) {
	r := NewRegs(dev.Regs)
	pending := r.Read(PMCIntr0)
	if pending&IntrPFIFO != 0 {
		r.Write(PFIFOIntr0, r.Read(PFIFOIntr0))
	}
	if pending&IntrPGRAPH != 0 {
		r.Write(PGRAPHIntr0, r.Read(PGRAPHIntr0))
	}
	if err := r.Err(); err != nil {
		return 0, err
	}
	if dev.Runtime != nil {
		dev.Runtime.Interrupts++
	}
	return pending, nil
}
