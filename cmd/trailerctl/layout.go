// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/usbarmory/armory-trailer/geometry"
)

type layoutCmd struct {
	SlotSize     uint32 `long:"slot-size" description:"size of the slot in bytes" required:"true"`
	MinWriteSize uint32 `long:"min-write-size" description:"flash write alignment" default:"8"`
	Entries      int    `long:"status-max-entries" description:"STATUS_MAX_ENTRIES" default:"128"`
	Enc          bool   `long:"enc" description:"reserve encryption key slots"`
	EncTLV       bool   `long:"enc-tlv" description:"use TLV storage mode for encryption key slots"`
	Erased       uint8  `long:"erased-value" description:"flash erased byte value" default:"255"`
	Scratch      bool   `long:"scratch" description:"compute the scratch layout instead of a slot layout"`
	JSON         bool   `long:"json" description:"emit the layout as JSON instead of plain text"`
}

func (c *layoutCmd) config() geometry.Config {
	return geometry.Config{
		MinWriteSize:     c.MinWriteSize,
		StatusMaxEntries: c.Entries,
		EncImages:        c.Enc,
		SaveEncTLV:       c.EncTLV,
		ErasedValue:      byte(c.Erased),
	}
}

func (c *layoutCmd) Execute(args []string) error {
	cfg := c.config()
	layout := cfg.LayoutFor(c.SlotSize, c.Scratch)

	if c.JSON {
		buf, err := json.MarshalIndent(layout, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(buf))
		return nil
	}

	fmt.Printf("status_off:    %#x\n", layout.StatusOff)
	fmt.Printf("swap_type_off: %#x\n", layout.SwapTypeOff)
	fmt.Printf("copy_done_off: %#x\n", layout.CopyDoneOff)
	fmt.Printf("image_ok_off:  %#x\n", layout.ImageOkOff)
	fmt.Printf("swap_size_off: %#x\n", layout.SwapSizeOff)

	if cfg.EncImages {
		fmt.Printf("enc_off[0]:    %#x\n", layout.EncOff[0])
		fmt.Printf("enc_off[1]:    %#x\n", layout.EncOff[1])
	}

	fmt.Printf("magic_off:     %#x\n", layout.MagicOff)
	fmt.Printf("trailer_sz:    %#x\n", cfg.TrailerSize())

	return nil
}
