// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-fs"
	"github.com/mitchellh/go-fs/fat"
)

type inspectCmd struct {
	Image string `long:"image" description:"FAT-formatted update container to inspect" required:"true"`
}

// Execute opens a FAT-formatted update archive the same way the
// teacher's internal/ota.Check does (via go-fs/fat over a raw file
// disk) and lists its root directory entries, so an operator can
// confirm what trailerctl locate/layout is about to be pointed at.
func (c *inspectCmd) Execute(args []string) error {
	img, err := os.OpenFile(c.Image, os.O_RDONLY, 0)

	if err != nil {
		return err
	}
	defer img.Close()

	dev, err := fs.NewFileDisk(img)

	if err != nil {
		return err
	}

	f, err := fat.New(dev)

	if err != nil {
		return err
	}

	root, err := f.RootDir()

	if err != nil {
		return err
	}

	for _, entry := range root.Entries() {
		fmt.Println(entry.Name())
	}

	return nil
}
