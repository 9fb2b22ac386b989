/*
 * NVDiag - Safe bulk region dump.
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

package dump

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	config "github.com/rcornwell/nvdiag/config/configparser"
	"github.com/rcornwell/nvdiag/util/debug"
)

// Sentinel replaces every word inside an exclusion range.
const Sentinel uint32 = 0xdeaddead

const (
	DefaultChunk   uint32 = 0x10000   // Bytes written between syncs.
	DefaultMaxSize uint32 = 0x4000000 // Largest region a single dump may buffer.
)

// Reader is a word addressable region, normally an aperture.
type Reader interface {
	Read32(offset uint32) (uint32, error)
	Size() uint32
}

// Options controls chunking and buffer limits.
type Options struct {
	ChunkSize uint32
	MaxSize   uint32
}

// DefaultOptions is changed by the CHUNK and MAXDUMP directives.
var DefaultOptions = Options{ChunkSize: DefaultChunk, MaxSize: DefaultMaxSize}

var ErrSize = errors.New("invalid dump size")

// OutputError reports that the output could not be prepared or written.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("dump output %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// ReadError reports a failed read, Offset is the word that failed.
type ReadError struct {
	Offset uint32
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("dump read at 0x%06x: %v", e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Debug options.
const (
	debugChunk = 1 << iota
	debugExclude
)

var debugOption = map[string]int{
	"CHUNK":   debugChunk,
	"EXCLUDE": debugExclude,
}

var debugMsk int

// Debug enables a debug option for the dump engine.
func Debug(opt string) error {
	return debug.SetMask(&debugMsk, debugOption, opt)
}

// DumpRegion dumps totalSize bytes of src to path with DefaultOptions.
func DumpRegion(src Reader, totalSize uint32, excl ExclusionList, path string) error {
	return DefaultOptions.DumpRegion(src, totalSize, excl, path)
}

func (o Options) validate(src Reader, totalSize uint32) error {
	switch {
	case o.ChunkSize == 0 || o.ChunkSize%4 != 0:
		return fmt.Errorf("%w: chunk size 0x%x", ErrSize, o.ChunkSize)
	case totalSize == 0 || totalSize%4 != 0:
		return fmt.Errorf("%w: region size 0x%x", ErrSize, totalSize)
	case totalSize > src.Size():
		return fmt.Errorf("%w: region 0x%x exceeds aperture 0x%x", ErrSize, totalSize, src.Size())
	case o.MaxSize != 0 && totalSize > o.MaxSize:
		return fmt.Errorf("%w: region 0x%x exceeds limit 0x%x", ErrSize, totalSize, o.MaxSize)
	}
	return nil
}

// DumpRegion reads totalSize bytes of src from offset 0 into path as
// little endian words. Words inside excl are never read, Sentinel is
// stored in their place. Each completed chunk is written and synced
// before the next is read, so a failure part way leaves every earlier
// chunk on disk. The file and buffer are set up before the first read.
func (o Options) DumpRegion(src Reader, totalSize uint32, excl ExclusionList, path string) error {
	if err := o.validate(src, totalSize); err != nil {
		return &OutputError{Path: path, Err: err}
	}

	buffer := make([]byte, totalSize)
	file, err := os.Create(path)
	if err != nil {
		return &OutputError{Path: path, Err: err}
	}

	excluded := 0
	start := uint32(0)
	for offset := uint32(0); offset < totalSize; offset += 4 {
		word := Sentinel
		if excl.Contains(offset) {
			excluded++
			debug.Debugf("DUMP", debugMsk, debugExclude, "skip %06x", offset)
		} else {
			word, err = src.Read32(offset)
			if err != nil {
				file.Close()
				return &ReadError{Offset: offset, Err: err}
			}
		}
		binary.LittleEndian.PutUint32(buffer[offset:], word)

		end := offset + 4
		if end-start == o.ChunkSize || end == totalSize {
			if err := flush(file, buffer[start:end]); err != nil {
				file.Close()
				return &OutputError{Path: path, Err: err}
			}
			debug.Debugf("DUMP", debugMsk, debugChunk, "chunk %06x-%06x", start, end-1)
			start = end
		}
	}

	if err := file.Close(); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	slog.Debug("Region dumped", "path", path, "size", totalSize, "excluded", excluded)
	return nil
}

// Write one chunk and force it to stable storage.
func flush(file *os.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Sync()
}

// Dump configuration directives.
func init() {
	config.RegisterValue("CHUNK", func(value string, _ []config.Option) error {
		n, err := config.ParseNumber(value)
		if err != nil {
			return err
		}
		if n == 0 || n%4 != 0 {
			return fmt.Errorf("chunk size must be a non zero multiple of 4: %s", value)
		}
		DefaultOptions.ChunkSize = n
		return nil
	})
	config.RegisterValue("MAXDUMP", func(value string, _ []config.Option) error {
		n, err := config.ParseNumber(value)
		if err != nil {
			return err
		}
		DefaultOptions.MaxSize = n
		return nil
	})
}
