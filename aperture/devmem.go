/*
 * NVDiag - Physical memory mapping through /dev/mem.
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
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultMemDevice is the physical memory device.
const DefaultMemDevice = "/dev/mem"

// DevMem maps physical address space with mmap on a memory device.
type DevMem struct {
	Path string
}

// NewDevMem returns a mapper over DefaultMemDevice.
func NewDevMem() *DevMem {
	return &DevMem{Path: DefaultMemDevice}
}

// Map maps size bytes of physical memory at phys. The base need not be
// page aligned.
func (d *DevMem) Map(phys uint64, size uint32) (Backing, error) {
	path := d.Path
	if path == "" {
		path = DefaultMemDevice
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer unix.Close(fd)

	page := uint64(os.Getpagesize())
	start := phys &^ (page - 1)
	lead := phys - start
	length := (lead + uint64(size) + page - 1) &^ (page - 1)

	data, err := unix.Mmap(fd, int64(start), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap 0x%x: %w", phys, err)
	}
	return &mmapBacking{data: data, lead: uint32(lead)}, nil
}

type mmapBacking struct {
	data []byte
	lead uint32
}

func (m *mmapBacking) ptr(offset uint32) unsafe.Pointer {
	return unsafe.Pointer(&m.data[m.lead+offset])
}

func (m *mmapBacking) Load8(offset uint32) uint8 {
	return *(*uint8)(m.ptr(offset))
}

func (m *mmapBacking) Load16(offset uint32) uint16 {
	return *(*uint16)(m.ptr(offset))
}

func (m *mmapBacking) Load32(offset uint32) uint32 {
	return atomic.LoadUint32((*uint32)(m.ptr(offset)))
}

func (m *mmapBacking) Store8(offset uint32, value uint8) {
	*(*uint8)(m.ptr(offset)) = value
}

func (m *mmapBacking) Store16(offset uint32, value uint16) {
	*(*uint16)(m.ptr(offset)) = value
}

func (m *mmapBacking) Store32(offset uint32, value uint32) {
	atomic.StoreUint32((*uint32)(m.ptr(offset)), value)
}

func (m *mmapBacking) Unmap() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
