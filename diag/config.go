/*
 * NVDiag - Diagnostic configuration directives.
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

package diag

import (
	config "github.com/rcornwell/nvdiag/config/configparser"
)

// Settings collected from the configuration file.
type Settings struct {
	Tests   []string // Enabled tests in file order.
	DumpDir string
	SkipROM bool
}

// Config holds the settings read by LoadConfigFile.
var Config = Settings{DumpDir: "."}

// register diagnostic directives on initialize.
func init() {
	config.RegisterValue("TEST", func(value string, _ []config.Option) error {
		t, err := Lookup(value)
		if err != nil {
			return err
		}
		Config.Tests = append(Config.Tests, t.Name)
		return nil
	})
	config.RegisterValue("DUMPDIR", func(value string, _ []config.Option) error {
		Config.DumpDir = value
		return nil
	})
	config.RegisterSwitch("SKIPROM", func(string, []config.Option) error {
		Config.SkipROM = true
		return nil
	})
}
