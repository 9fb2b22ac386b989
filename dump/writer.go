/*
 * NVDiag - Dump file naming.
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
	"os"
	"path/filepath"
	"strings"
)

// Writer places dumps of one device in a directory. Files are named
// <dir>/<prefix>_<kind>.bin and replaced on every run.
type Writer struct {
	Dir     string
	Prefix  string
	Options Options
}

// NewWriter returns a writer using DefaultOptions.
func NewWriter(dir, prefix string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{Dir: dir, Prefix: strings.ToLower(prefix), Options: DefaultOptions}
}

// Path returns the file used for kind.
func (w *Writer) Path(kind string) string {
	return filepath.Join(w.Dir, w.Prefix+"_"+strings.ToLower(kind)+".bin")
}

func (w *Writer) prepare(path string) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	return nil
}

// Region dumps size bytes of src as kind.
func (w *Writer) Region(kind string, src Reader, size uint32, excl ExclusionList) (string, error) {
	path := w.Path(kind)
	if err := w.prepare(path); err != nil {
		return path, err
	}
	return path, w.Options.DumpRegion(src, size, excl, path)
}

// Bytes stores an image already in memory as kind.
func (w *Writer) Bytes(kind string, data []byte) (string, error) {
	path := w.Path(kind)
	if err := w.prepare(path); err != nil {
		return path, err
	}
	file, err := os.Create(path)
	if err != nil {
		return path, &OutputError{Path: path, Err: err}
	}
	if err := flush(file, data); err != nil {
		file.Close()
		return path, &OutputError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return path, &OutputError{Path: path, Err: err}
	}
	return path, nil
}
