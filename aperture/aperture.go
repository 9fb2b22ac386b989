/*
 * NVDiag - Bounds checked aperture mappings.
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

package aperture

import (
	"errors"
	"fmt"
)

// Backing is a raw mapping of physical address space. Offsets are
// relative to the start of the mapping and are never checked.
type Backing interface {
	Load8(offset uint32) uint8
	Load16(offset uint32) uint16
	Load32(offset uint32) uint32
	Store8(offset uint32, value uint8)
	Store16(offset uint32, value uint16)
	Store32(offset uint32, value uint32)
	Unmap() error
}

// Mapper establishes mappings of physical address space.
type Mapper interface {
	Map(phys uint64, size uint32) (Backing, error)
}

var (
	ErrUnmapped = errors.New("aperture not mapped")
	ErrSize     = errors.New("invalid aperture size")
)

// MapError reports a failed mapping.
type MapError struct {
	Name string
	Phys uint64
	Size uint32
	Err  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("map %s at 0x%08x size 0x%x: %v", e.Name, e.Phys, e.Size, e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

// BoundsError reports an access outside an aperture or a misaligned one.
type BoundsError struct {
	Name   string
	Offset uint32
	Width  uint32
	Size   uint32
}

func (e *BoundsError) Error() string {
	if e.Offset%e.Width != 0 {
		return fmt.Sprintf("%s: misaligned %d bit access at 0x%x", e.Name, e.Width*8, e.Offset)
	}
	return fmt.Sprintf("%s: %d bit access at 0x%x outside 0x%x bytes", e.Name, e.Width*8, e.Offset, e.Size)
}

// Aperture is a mapped window of device address space. All accesses are
// checked against the size declared when it was mapped.
type Aperture struct {
	name   string
	phys   uint64
	size   uint32
	base   uint32 // Offset of this view within the backing.
	mem    Backing
	parent *Aperture
	closed bool
}

// Map maps size bytes at phys. It never returns a nil aperture
// without an error.
func Map(m Mapper, name string, phys uint64, size uint32) (*Aperture, error) {
	if size == 0 {
		return nil, &MapError{Name: name, Phys: phys, Size: size, Err: ErrSize}
	}
	if phys == 0 {
		return nil, &MapError{Name: name, Phys: phys, Size: size, Err: errors.New("base address not programmed")}
	}
	mem, err := m.Map(phys, size)
	if err != nil {
		return nil, &MapError{Name: name, Phys: phys, Size: size, Err: err}
	}
	if mem == nil {
		return nil, &MapError{Name: name, Phys: phys, Size: size, Err: errors.New("mapper returned no mapping")}
	}
	return &Aperture{name: name, phys: phys, size: size, mem: mem}, nil
}

// New wraps an existing backing, mainly for buffers and tests.
func New(name string, phys uint64, size uint32, mem Backing) *Aperture {
	return &Aperture{name: name, phys: phys, size: size, mem: mem}
}

func (a *Aperture) Name() string { return a.name }
func (a *Aperture) Phys() uint64 { return a.phys }
func (a *Aperture) Size() uint32 { return a.size }

// Mapped reports whether accesses can still be made.
func (a *Aperture) Mapped() bool {
	for v := a; v != nil; v = v.parent {
		if v.closed {
			return false
		}
	}
	return true
}

// Slice returns a view of size bytes at offset sharing this mapping.
func (a *Aperture) Slice(name string, offset, size uint32) (*Aperture, error) {
	if size == 0 || uint64(offset)+uint64(size) > uint64(a.size) {
		return nil, &BoundsError{Name: a.name, Offset: offset, Width: 1, Size: a.size}
	}
	return &Aperture{
		name:   name,
		phys:   a.phys + uint64(offset),
		size:   size,
		base:   a.base + offset,
		mem:    a.mem,
		parent: a,
	}, nil
}

// Unmap releases the mapping. Views only detach themselves.
func (a *Aperture) Unmap() error {
	if a == nil || a.closed {
		return nil
	}
	a.closed = true
	if a.parent != nil {
		return nil
	}
	return a.mem.Unmap()
}

func (a *Aperture) check(offset, width uint32) error {
	if !a.Mapped() {
		return fmt.Errorf("%s: %w", a.name, ErrUnmapped)
	}
	if offset%width != 0 || uint64(offset)+uint64(width) > uint64(a.size) {
		return &BoundsError{Name: a.name, Offset: offset, Width: width, Size: a.size}
	}
	return nil
}

func (a *Aperture) Read8(offset uint32) (uint8, error) {
	if err := a.check(offset, 1); err != nil {
		return 0, err
	}
	return a.mem.Load8(a.base + offset), nil
}

func (a *Aperture) Read16(offset uint32) (uint16, error) {
	if err := a.check(offset, 2); err != nil {
		return 0, err
	}
	return a.mem.Load16(a.base + offset), nil
}

func (a *Aperture) Read32(offset uint32) (uint32, error) {
	if err := a.check(offset, 4); err != nil {
		return 0, err
	}
	return a.mem.Load32(a.base + offset), nil
}

func (a *Aperture) Write8(offset uint32, value uint8) error {
	if err := a.check(offset, 1); err != nil {
		return err
	}
	a.mem.Store8(a.base+offset, value)
	return nil
}

func (a *Aperture) Write16(offset uint32, value uint16) error {
	if err := a.check(offset, 2); err != nil {
		return err
	}
	a.mem.Store16(a.base+offset, value)
	return nil
}

func (a *Aperture) Write32(offset uint32, value uint32) error {
	if err := a.check(offset, 4); err != nil {
		return err
	}
	a.mem.Store32(a.base+offset, value)
	return nil
}
