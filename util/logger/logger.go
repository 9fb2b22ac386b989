/*
 * NVDiag - Log handler writing to file and console.
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

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogHandler writes every record to the log file and echoes records
// above debug, or all records in debug mode, to the console.
type LogHandler struct {
	out     io.Writer
	console io.Writer
	level   slog.Leveler
	attrs   []slog.Attr
	group   string
	mu      *sync.Mutex
	debug   bool
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	lvl := slog.LevelInfo
	if h.level != nil {
		lvl = h.level.Level()
	}
	return level >= lvl
}

func (h *LogHandler) clone() *LogHandler {
	n := *h
	n.attrs = append([]slog.Attr{}, h.attrs...)
	return &n
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := h.clone()
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		n.attrs = append(n.attrs, a)
	}
	return n
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	n := h.clone()
	if n.group != "" {
		name = n.group + "." + name
	}
	n.group = name
	return n
}

func formatAttr(strs []string, group string, a slog.Attr) []string {
	if a.Equal(slog.Attr{}) {
		return strs
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	return append(strs, key+"="+a.Value.String())
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	strs := []string{formattedTime, level, r.Message}
	for _, a := range h.attrs {
		strs = formatAttr(strs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		strs = formatAttr(strs, h.group, a)
		return true
	})
	b := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}

	if h.console != nil && (h.debug || r.Level > slog.LevelDebug) {
		if _, cerr := h.console.Write(b); err == nil {
			err = cerr
		}
	}
	return err
}

// SetDebug selects whether debug records are echoed to the console.
func (h *LogHandler) SetDebug(debug bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = debug
}

// SetConsole replaces the console writer, nil disables echo.
func (h *LogHandler) SetConsole(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.console = w
}

// NewHandler returns a handler logging to file, which may be nil, and
// to standard error.
func NewHandler(file io.Writer, opts *slog.HandlerOptions, debug bool) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &LogHandler{
		out:     file,
		console: os.Stderr,
		level:   opts.Level,
		mu:      &sync.Mutex{},
		debug:   debug,
	}
}
