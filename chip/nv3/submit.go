/*
 * NVDiag - NV3 object and method submission.
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

package nv3

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rcornwell/nvdiag/chip"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/hal"
)

const (
	channel      = 0 // Only channel 0 is used.
	subchannels  = 8
	subchanSize  = 0x2000 // USER space per subchannel.
	channelSize  = 0x10000
	instanceSize = 0x10
	entryValid   = 0x00800000
)

var (
	ErrNotBound  = errors.New("subchannel has no object bound")
	ErrHashFull  = errors.New("object hash table full")
	ErrNoRuntime = errors.New("device not initialized")
)

// Hash a handle into a RAMHT entry index.
func hashHandle(handle uint32, bits uint) uint32 {
	mask := uint32(1)<<bits - 1
	hash := uint32(0)
	for h := handle; h != 0; h >>= bits {
		hash ^= h & mask
	}
	hash ^= uint32(channel) << (bits - 4)
	return hash & mask
}

// Insert the object into the hash table and bind it to its subchannel.
func submitObject(dev *device.Context, obj device.Object) error {
	if dev.Runtime == nil {
		return ErrNoRuntime
	}
	if obj.Subchannel >= subchannels {
		return fmt.Errorf("subchannel %d out of range", obj.Subchannel)
	}
	if dev.RAMIN == nil {
		return chip.ErrNoInstance
	}
	r := chip.NewRegs(dev.Regs)
	win := ramhtWindow(r.Read(chip.PFIFORAMHT))
	if err := r.Err(); err != nil {
		return err
	}

	// Instance holds the class.
	instance := objectBase + uint32(len(dev.Runtime.Objects))*instanceSize
	if err := dev.RAMIN.Write32(instance, obj.Class); err != nil {
		return err
	}

	entries := win.Size / 8
	bits := uint(0)
	for (uint32(1) << bits) < entries {
		bits++
	}
	context := entryValid | uint32(channel)<<24 | (obj.Class&0x7f)<<16 | (instance >> 4)
	index := hashHandle(obj.Handle, bits)
	for probe := uint32(0); probe < entries; probe++ {
		slot := win.Base + ((index+probe)%entries)*8
		ctx, err := dev.RAMIN.Read32(slot + 4)
		if err != nil {
			return err
		}
		if ctx&entryValid != 0 {
			h, err := dev.RAMIN.Read32(slot)
			if err != nil {
				return err
			}
			if h != obj.Handle {
				continue
			}
		}
		if err := dev.RAMIN.Write32(slot, obj.Handle); err != nil {
			return err
		}
		if err := dev.RAMIN.Write32(slot+4, context); err != nil {
			return err
		}
		r.Write(userOffset(obj.Subchannel, 0), obj.Handle)
		if err := r.Err(); err != nil {
			return err
		}
		dev.Runtime.Objects[obj.Handle] = obj
		slog.Debug("Object bound", "handle", fmt.Sprintf("%08x", obj.Handle),
			"class", fmt.Sprintf("%02x", obj.Class), "subchannel", obj.Subchannel)
		return nil
	}
	return ErrHashFull
}

func userOffset(subchannel uint8, method uint32) uint32 {
	return chip.USER + channel*channelSize + uint32(subchannel)*subchanSize + method
}

// Write one method to a bound subchannel.
func submitMethod(dev *device.Context, m hal.Method) error {
	if dev.Runtime == nil {
		return ErrNoRuntime
	}
	if m.Method%4 != 0 || m.Method == 0 || m.Method >= subchanSize {
		return fmt.Errorf("invalid method 0x%x", m.Method)
	}
	bound := false
	for _, obj := range dev.Runtime.Objects {
		if obj.Subchannel == m.Subchannel {
			bound = true
			break
		}
	}
	if !bound {
		return fmt.Errorf("subchannel %d: %w", m.Subchannel, ErrNotBound)
	}
	r := chip.NewRegs(dev.Regs)
	r.Write(userOffset(m.Subchannel, m.Method), m.Data)
	if err := r.Err(); err != nil {
		return err
	}
	dev.Runtime.Submitted++
	return nil
}
