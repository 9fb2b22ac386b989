/*
 * NVDiag - Capability table tests.
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

package hal

import (
	"errors"
	"testing"

	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
)

// Absent slots report unsupported, they are never a no-op.
func TestAbsentTable(t *testing.T) {
	tbl := Resolve(device.GenUnknown)
	for _, op := range AllOps() {
		if tbl.Supports(op) {
			t.Errorf("Empty table supports %s", op)
		}
	}
	dev := &device.Context{}
	var ue *UnsupportedError
	if err := tbl.Init(dev, Env{}); !errors.As(err, &ue) || ue.Op != OpInit {
		t.Errorf("Init on empty table got: %v", err)
	}
	if err := tbl.GraphState(dev, StateRender); !errors.Is(err, ErrUnsupported) {
		t.Errorf("GraphState on empty table got: %v expected: %v", err, ErrUnsupported)
	}
	if _, err := tbl.Dump(OpDumpRAMHT, dev, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Dump on empty table got: %v expected: %v", err, ErrUnsupported)
	}
	if _, err := tbl.Interrupt(dev); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Interrupt on empty table got: %v", err)
	}
	if len(tbl.Supported()) != 0 {
		t.Errorf("Supported got: %v expected none", tbl.Supported())
	}
}

func TestRegisterResolve(t *testing.T) {
	called := 0
	Register(device.GenNV40, Ops{
		GraphState: func(_ *device.Context, state State) error {
			if state != StateReset {
				t.Errorf("GraphState got: %s expected: Reset", state)
			}
			called++
			return nil
		},
		DumpCache:     func(*device.Context, *dump.Writer) (string, error) { return "cache", nil },
		RegExclusions: dump.ExclusionList{{Start: 0x1800, End: 0x18ff}},
	})
	defer delete(tables, device.GenNV40)

	tbl := Resolve(device.GenNV40)
	if tbl.Generation() != device.GenNV40 {
		t.Errorf("Resolve generation got: %s", tbl.Generation())
	}
	if !tbl.Supports(OpGraphState) || !tbl.Supports(OpDumpCache) || tbl.Supports(OpFIFOState) {
		t.Errorf("Supports got: %v", tbl.Supported())
	}
	if err := tbl.GraphState(&device.Context{}, StateReset); err != nil || called != 1 {
		t.Errorf("GraphState got: %v called %d", err, called)
	}
	if path, err := tbl.Dump(OpDumpCache, nil, nil); err != nil || path != "cache" {
		t.Errorf("Dump got: %s %v", path, err)
	}
	if _, err := tbl.Dump(OpInit, nil, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Dump with non dump op got: %v", err)
	}
	if len(tbl.RegExclusions()) != 1 {
		t.Errorf("Exclusions got: %v", tbl.RegExclusions())
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []State{StateInit, StateReset, StateRender, StateShutdown, StateModeSwitch, StateCrashed} {
		p, err := ParseState(s.String())
		if err != nil || p != s {
			t.Errorf("ParseState %s got: %s %v", s, p, err)
		}
	}
	if _, err := ParseState("warp"); err == nil {
		t.Errorf("ParseState accepted warp")
	}
	if s, _ := ParseState("modeswitch"); s != StateModeSwitch {
		t.Errorf("ParseState case got: %s", s)
	}
}

func TestExclusionsCopied(t *testing.T) {
	ops := Ops{RegExclusions: dump.ExclusionList{{Start: 0x1800, End: 0x18ff}}}
	table := NewTable(device.GenNV40, ops)
	excl := table.RegExclusions()
	excl[0].Start = 0
	if got := table.RegExclusions()[0].Start; got != 0x1800 {
		t.Errorf("Exclusion start got: %x expected: %x", got, 0x1800)
	}
}
