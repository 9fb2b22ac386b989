/*
 * NVDiag - Debug trace output.
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

package debug

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	config "github.com/rcornwell/nvdiag/config/configparser"
)

var (
	mu      sync.Mutex
	logFile io.Writer
	closer  io.Closer
)

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		fmt.Fprintf(logFile, module+": "+format+"\n", a...)
	}
}

// Register debug message, value shown as offset and data.
func DebugRegf(module string, mask int, level int, op string, offset, value uint32) {
	Debugf(module, mask, level, "%s %06x %08x", op, offset, value)
}

// SetMask sets the bit named by option in mask.
func SetMask(mask *int, names map[string]int, option string) error {
	bit, ok := names[strings.ToUpper(option)]
	if !ok {
		valid := make([]string, 0, len(names))
		for name := range names {
			valid = append(valid, name)
		}
		sort.Strings(valid)
		return fmt.Errorf("invalid debug option: %s, valid: %s", option, strings.Join(valid, " "))
	}
	*mask |= bit
	return nil
}

// SetOutput directs debug output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logFile = w
	closer = nil
}

// Close closes the debug file if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logFile = nil
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// register the debug file directive on initialize.
func init() {
	config.RegisterValue("DEBUGFILE", create)
}

// Create the debug file.
func create(fileName string, _ []config.Option) error {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		return errors.New("can't have more then one debug file")
	}

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s", fileName)
	}

	logFile = file
	closer = file
	return nil
}
