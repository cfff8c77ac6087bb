// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command trailerctl is a host-side operator tool for inspecting and
// reasoning about image trailer layouts: it is not part of the
// boot-time core, it exists to let a developer compute a layout,
// inspect a staged update archive, or replay the status locator
// against flat files captured from a device, the way
// cmd/armory-drive-install exists alongside the teacher's on-device
// firmware.
package main

import (
	"fmt"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"
)

type options struct {
	Layout  layoutCmd  `command:"layout" description:"print the computed trailer layout for a given configuration"`
	Inspect inspectCmd `command:"inspect" description:"inspect a staged update archive"`
	Locate  locateCmd  `command:"locate" description:"run the status locator against flat area files"`
}

func init() {
	log.SetFlags(0)
}

func main() {
	var opts options

	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}

		if err := command.Execute(args); err != nil {
			log.Fatal(err)
		}

		return nil
	}

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
