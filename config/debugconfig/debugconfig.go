/*
 * NVDiag - Debug configuration directive.
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

package debugconfig

import (
	"errors"
	"strings"

	"github.com/rcornwell/nvdiag/bringup"
	"github.com/rcornwell/nvdiag/chip"
	config "github.com/rcornwell/nvdiag/config/configparser"
	"github.com/rcornwell/nvdiag/dump"
)

// Subsystems that accept debug options, keyed by the name used in
// the configuration file.
var subsystems = map[string]func(string) error{
	"CHIP":    chip.Debug,
	"DUMP":    dump.Debug,
	"BRINGUP": bringup.Debug,
}

// register debug directive on initialize.
func init() {
	config.RegisterOptions("DEBUG", setDebug)
}

// Enable debug options for one subsystem.
//
//	DEBUG CHIP REG,CLOCK
//	DEBUG DUMP CHUNK EXCLUDE
func setDebug(name string, options []config.Option) error {
	set, ok := subsystems[strings.ToUpper(name)]
	if !ok {
		return errors.New("debug option invalid: " + name)
	}
	if len(options) == 0 {
		return errors.New("debug requires options: " + name)
	}

	for _, opt := range options {
		if opt.EqualOpt != "" {
			return errors.New("debug options can't have equals: " + opt.Name)
		}
		if err := set(strings.ToUpper(opt.Name)); err != nil {
			return err
		}
		for _, value := range opt.Value {
			if err := set(strings.ToUpper(value)); err != nil {
				return err
			}
		}
	}
	return nil
}
