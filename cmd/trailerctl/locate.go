// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/usbarmory/armory-trailer/enckey"
	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
	"github.com/usbarmory/armory-trailer/status"
)

const (
	locateScratchID = 0
	locatePrimaryID = 1
)

type fileDriver map[int]*flash.File

func (d fileDriver) Open(id int) (flash.Area, error) {
	a, ok := d[id]
	if !ok {
		return nil, flash.ErrNotFound
	}

	return a, nil
}

type locateCmd struct {
	Scratch      string `long:"scratch" description:"flat file backing the scratch area, if any"`
	Primary      string `long:"primary" description:"flat file backing the primary slot" required:"true"`
	SectorSize   uint32 `long:"sector-size" description:"uniform sector size to assume for both files" default:"4096"`
	MinWriteSize uint32 `long:"min-write-size" description:"flash write alignment" default:"8"`
	Entries      int    `long:"status-max-entries" description:"STATUS_MAX_ENTRIES" default:"128"`
	Erased       uint8  `long:"erased-value" description:"flash erased byte value" default:"255"`

	// Passphrase, if set, exercises the TLV encryption key slot path:
	// after locating the status area, EncSlot's TLV is read and
	// unwrapped with a PBKDF2-derived stand-in key, for recovery when
	// no secure element is available to perform the real unwrap.
	Passphrase string `long:"passphrase" description:"recover an encryption key slot via a PBKDF2-derived passphrase key"`
	EncSlot    int    `long:"enc-slot" description:"encryption key slot to recover (0 or 1)" default:"0"`
}

func sectorsFor(size, sectorSize uint32) []flash.Sector {
	var sectors []flash.Sector

	for off := uint32(0); off < size; off += sectorSize {
		sectors = append(sectors, flash.Sector{Offset: off, Size: sectorSize})
	}

	return sectors
}

func fileSize(path string) (uint32, error) {
	info, err := os.Stat(path)

	if err != nil {
		return 0, err
	}

	return uint32(info.Size()), nil
}

func (c *locateCmd) Execute(args []string) error {
	cfg := geometry.Config{
		MinWriteSize:     c.MinWriteSize,
		StatusMaxEntries: c.Entries,
		UsingScratch:     c.Scratch != "",
		ErasedValue:      byte(c.Erased),
	}

	driver := fileDriver{}
	var candidates []status.Candidate

	if c.Scratch != "" {
		size, err := fileSize(c.Scratch)

		if err != nil {
			return err
		}

		scratch, err := flash.OpenFile(locateScratchID, c.Scratch, cfg.MinWriteSize, cfg.ErasedValue, sectorsFor(size, c.SectorSize))

		if err != nil {
			return err
		}

		driver[locateScratchID] = scratch
		candidates = append(candidates, status.Candidate{ID: locateScratchID, Scratch: true})
	}

	primarySize, err := fileSize(c.Primary)

	if err != nil {
		return err
	}

	primary, err := flash.OpenFile(locatePrimaryID, c.Primary, cfg.MinWriteSize, cfg.ErasedValue, sectorsFor(primarySize, c.SectorSize))

	if err != nil {
		return err
	}

	driver[locatePrimaryID] = primary
	candidates = append(candidates, status.Candidate{ID: locatePrimaryID, Scratch: false})

	handle, err := status.Locate(driver, candidates, cfg)

	if err != nil {
		return err
	}
	defer handle.Close()

	fmt.Printf("swap-in-progress record found on area id %d\n", handle.ID())

	if c.Passphrase != "" {
		cfg.EncImages = true
		cfg.SaveEncTLV = true

		slots, err := enckey.New(handle, cfg.Layout(handle), cfg)

		if err != nil {
			return err
		}

		key, _, err := slots.ReadTLV(c.EncSlot, passphraseUnwrapper{Passphrase: c.Passphrase})

		if err != nil {
			return err
		}

		if key == nil {
			fmt.Printf("enc slot %d: erased, no key stored\n", c.EncSlot)
		} else {
			fmt.Printf("enc slot %d key: %s\n", c.EncSlot, hex.EncodeToString(key))
		}
	}

	return nil
}
