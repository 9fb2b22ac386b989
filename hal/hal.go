/*
 * NVDiag - Hardware abstraction capability table.
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
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bios"
	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/dump"
)

// State is a bring-up state passed to every subsystem hook.
type State int

const (
	StateInit State = iota
	StateReset
	StateRender
	StateShutdown
	StateModeSwitch
	StateCrashed
)

var stateNames = []string{"Init", "Reset", "Render", "Shutdown", "ModeSwitch", "Crashed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState converts a state name, ignoring case.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state: %s", name)
}

// Op names one capability slot.
type Op int

const (
	OpInit Op = iota
	OpShutdown
	OpInterrupt
	OpFIFOState
	OpGraphState
	OpDumpFIFO
	OpDumpRAMHT
	OpDumpRAMFC
	OpDumpRAMRO
	OpDumpCache
	OpSubmitObject
	OpSubmitMethod
	opCount
)

var opNames = [opCount]string{
	"init", "shutdown", "interrupt", "fifo", "graph",
	"dumpfifo", "dumpramht", "dumpramfc", "dumpramro", "dumpcache",
	"object", "method",
}

func (o Op) String() string {
	if o < 0 || o >= opCount {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

// AllOps returns every slot in table order.
func AllOps() []Op {
	ops := make([]Op, opCount)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

var ErrUnsupported = errors.New("operation not supported")

// UnsupportedError reports an absent slot.
type UnsupportedError struct {
	Gen device.Generation
	Op  Op
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s not supported", e.Gen, e.Op)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// Env holds the services bring-up needs beyond the device itself.
type Env struct {
	Bus      bus.Bus
	Mapper   aperture.Mapper
	BIOS     bios.Service
	Fallback device.Fallback
}

// Method is one method call to a bound subchannel.
type Method struct {
	Subchannel uint8
	Method     uint32
	Data       uint32
}

// DumpFunc captures one resource area.
type DumpFunc func(dev *device.Context, w *dump.Writer) (string, error)

// Ops is filled in by a generation package, nil slots are unsupported.
type Ops struct {
	Init         func(dev *device.Context, env Env) error
	Shutdown     func(dev *device.Context) error
	Interrupt    func(dev *device.Context) (uint32, error)
	FIFOState    func(dev *device.Context, state State) error
	GraphState   func(dev *device.Context, state State) error
	DumpFIFO     DumpFunc
	DumpRAMHT    DumpFunc
	DumpRAMFC    DumpFunc
	DumpRAMRO    DumpFunc
	DumpCache    DumpFunc
	SubmitObject func(dev *device.Context, obj device.Object) error
	SubmitMethod func(dev *device.Context, m Method) error

	RegExclusions  dump.ExclusionList // Register aperture windows never read.
	VRAMExclusions dump.ExclusionList // Memory aperture windows never read.
}

// Table is the bound capability set of one generation. Slots are only
// reachable through its methods.
type Table struct {
	gen device.Generation
	ops Ops
}

var tables = map[device.Generation]*Table{}

// NewTable binds ops without registering them.
func NewTable(gen device.Generation, ops Ops) *Table {
	return &Table{gen: gen, ops: ops}
}

// Register binds ops to gen. Called from generation package init.
func Register(gen device.Generation, ops Ops) {
	if _, ok := tables[gen]; ok {
		panic("hal: generation registered twice: " + gen.String())
	}
	tables[gen] = NewTable(gen, ops)
}

// Resolve returns the table for gen. A generation without an
// implementation yields a table with every slot absent.
func Resolve(gen device.Generation) *Table {
	if t, ok := tables[gen]; ok {
		return t
	}
	return &Table{gen: gen}
}

// Registered lists the generations with a bound table.
func Registered() []device.Generation {
	gens := make([]device.Generation, 0, len(tables))
	for gen := range tables {
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens
}

func (t *Table) Generation() device.Generation { return t.gen }

func (t *Table) unsupported(op Op) error {
	return &UnsupportedError{Gen: t.gen, Op: op}
}

// Supports reports whether op has an implementation.
func (t *Table) Supports(op Op) bool {
	o := &t.ops
	switch op {
	case OpInit:
		return o.Init != nil
	case OpShutdown:
		return o.Shutdown != nil
	case OpInterrupt:
		return o.Interrupt != nil
	case OpFIFOState:
		return o.FIFOState != nil
	case OpGraphState:
		return o.GraphState != nil
	case OpDumpFIFO, OpDumpRAMHT, OpDumpRAMFC, OpDumpRAMRO, OpDumpCache:
		return t.dumpFunc(op) != nil
	case OpSubmitObject:
		return o.SubmitObject != nil
	case OpSubmitMethod:
		return o.SubmitMethod != nil
	}
	return false
}

// Supported lists the implemented slots.
func (t *Table) Supported() []Op {
	var ops []Op
	for _, op := range AllOps() {
		if t.Supports(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

func (t *Table) Init(dev *device.Context, env Env) error {
	if t.ops.Init == nil {
		return t.unsupported(OpInit)
	}
	return t.ops.Init(dev, env)
}

func (t *Table) Shutdown(dev *device.Context) error {
	if t.ops.Shutdown == nil {
		return t.unsupported(OpShutdown)
	}
	return t.ops.Shutdown(dev)
}

// Interrupt services pending interrupts and returns the status handled.
func (t *Table) Interrupt(dev *device.Context) (uint32, error) {
	if t.ops.Interrupt == nil {
		return 0, t.unsupported(OpInterrupt)
	}
	return t.ops.Interrupt(dev)
}

func (t *Table) FIFOState(dev *device.Context, state State) error {
	if t.ops.FIFOState == nil {
		return t.unsupported(OpFIFOState)
	}
	return t.ops.FIFOState(dev, state)
}

func (t *Table) GraphState(dev *device.Context, state State) error {
	if t.ops.GraphState == nil {
		return t.unsupported(OpGraphState)
	}
	return t.ops.GraphState(dev, state)
}

func (t *Table) dumpFunc(op Op) DumpFunc {
	switch op {
	case OpDumpFIFO:
		return t.ops.DumpFIFO
	case OpDumpRAMHT:
		return t.ops.DumpRAMHT
	case OpDumpRAMFC:
		return t.ops.DumpRAMFC
	case OpDumpRAMRO:
		return t.ops.DumpRAMRO
	case OpDumpCache:
		return t.ops.DumpCache
	}
	return nil
}

// Dump runs one of the resource dump slots.
func (t *Table) Dump(op Op, dev *device.Context, w *dump.Writer) (string, error) {
	fn := t.dumpFunc(op)
	if fn == nil {
		return "", t.unsupported(op)
	}
	return fn(dev, w)
}

func (t *Table) SubmitObject(dev *device.Context, obj device.Object) error {
	if t.ops.SubmitObject == nil {
		return t.unsupported(OpSubmitObject)
	}
	return t.ops.SubmitObject(dev, obj)
}

func (t *Table) SubmitMethod(dev *device.Context, m Method) error {
	if t.ops.SubmitMethod == nil {
		return t.unsupported(OpSubmitMethod)
	}
	return t.ops.SubmitMethod(dev, m)
}

// RegExclusions returns the register windows never read.
func (t *Table) RegExclusions() dump.ExclusionList { return slices.Clone(t.ops.RegExclusions) }

// VRAMExclusions returns the memory windows never read.
func (t *Table) VRAMExclusions() dump.ExclusionList { return slices.Clone(t.ops.VRAMExclusions) }
