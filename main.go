/*
 * NVDiag - Main process.
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

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/rcornwell/nvdiag/aperture"
	"github.com/rcornwell/nvdiag/bios"
	"github.com/rcornwell/nvdiag/bringup"
	"github.com/rcornwell/nvdiag/bus"
	"github.com/rcornwell/nvdiag/chip/models"
	"github.com/rcornwell/nvdiag/command/parser"
	reader "github.com/rcornwell/nvdiag/command/reader"
	config "github.com/rcornwell/nvdiag/config/configparser"
	"github.com/rcornwell/nvdiag/device"
	"github.com/rcornwell/nvdiag/diag"
	"github.com/rcornwell/nvdiag/dump"
	"github.com/rcornwell/nvdiag/hal"
	"github.com/rcornwell/nvdiag/util/debug"
	logger "github.com/rcornwell/nvdiag/util/logger"
	"golang.org/x/term"

	_ "github.com/rcornwell/nvdiag/config/debugconfig"
)

func main() {
	os.Exit(run())
}

func run() int {
	optConfig := getopt.StringLong("config", 'c', "nvdiag.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optOutput := getopt.StringLong("output", 'o', "", "Dump directory")
	optInteractive := getopt.BoolLong("interactive", 'i', "Start console after tests")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return bringup.ExitOK
	}

	var logFile io.Writer
	if *optLogFile != "" {
		file, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to create log file: "+err.Error())
			return bringup.ExitError
		}
		defer file.Close()
		logFile = file
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	handler := logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, *optDebug)
	if logFile != nil && !*optDebug && !term.IsTerminal(int(os.Stderr.Fd())) {
		handler.SetConsole(nil)
	}
	slog.SetDefault(slog.New(handler))
	defer debug.Close()

	slog.Info("NVDiag started")
	err := config.LoadConfigFile(*optConfig)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("Configuration file not found, using defaults", "file", *optConfig)
	case err != nil:
		slog.Error("Configuration failed", "file", *optConfig, "error", err.Error())
		return bringup.ExitError
	}
	if *optOutput != "" {
		diag.Config.DumpDir = *optOutput
	}

	pci := bus.NewSysfs("")
	dev, err := device.DetectDevice(pci, device.Catalog)
	if err != nil {
		return bringup.Terminate(nil, err)
	}
	mapper := aperture.NewDevMem()
	if err := dev.Identify(pci, mapper, device.Configured); err != nil {
		return bringup.Terminate(nil, err)
	}
	slog.Info("Device found", "device", dev.String())
	slog.Info("Capabilities", "hal", models.Describe(dev.Generation))
	if !models.Operable(dev.Generation) {
		slog.Warn("Generation detected but not operable", "generation", dev.Generation.String())
	}

	rom := &bios.Sysfs{Dir: pci.Path(dev.Location)}
	env := hal.Env{Bus: pci, Mapper: mapper, BIOS: rom, Fallback: device.Configured}
	m := bringup.New(dev, hal.Resolve(dev.Generation), env)
	for _, state := range []hal.State{hal.StateInit, hal.StateReset} {
		if err := m.SetState(state); err != nil {
			return bringup.Terminate(m, err)
		}
	}

	runner := &diag.Runner{
		Machine: m,
		Writer:  dump.NewWriter(diag.Config.DumpDir, dev.Generation.String()),
		BIOS:    rom,
		SkipROM: diag.Config.SkipROM,
	}
	res, err := runner.Run(diag.Config.Tests)
	if err != nil {
		return bringup.Terminate(m, err)
	}

	if *optInteractive {
		if reader.Interactive() {
			session := &parser.Session{Runner: runner, Tests: diag.Config.Tests, Out: os.Stdout}
			if err := reader.ConsoleReader(session); err != nil {
				return bringup.Terminate(m, err)
			}
		} else {
			slog.Warn("Console requires a terminal")
		}
	}

	state, _ := m.State()
	switch state {
	case hal.StateCrashed:
		bringup.Terminate(m, nil)
		return bringup.ExitCrashed
	case hal.StateShutdown:
	default:
		if err := m.SetState(hal.StateShutdown); err != nil {
			return bringup.Terminate(m, err)
		}
	}

	slog.Info("NVDiag finished", "result", res.String())
	if res.Failed != 0 {
		return bringup.ExitError
	}
	return bringup.ExitOK
}
