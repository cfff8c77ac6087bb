// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package status implements the post-reset status locator (§4.E):
// after an unexpected reset, find which partition currently owns the
// valid swap-in-progress record.
package status

import (
	"errors"

	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
	"github.com/usbarmory/armory-trailer/magic"
)

// ErrNotFound is returned when no probed area carries a Good magic.
var ErrNotFound = errors.New("status: swap-in-progress record not found")

// Candidate names one area to probe, and the id the driver should
// open it under.
type Candidate struct {
	ID      int
	Scratch bool
}

// Locate opens each candidate in order -- conventionally {scratch (if
// present), primary} -- reads its magic, and closes it again unless
// the magic is Good. Secondary is never probed: the swap-in-progress
// trailer, if any, is never on the secondary slot, since magic
// migrates to primary or scratch as the swap advances (§4.E).
//
// On success the returned handle is left open; closing it is the
// caller's responsibility. On failure no handle is left open and the
// returned flash.Area is nil -- Go's multi-value return makes the
// ambiguous out-parameter state spec §9 Open Question 1 flags for the
// original implementation moot here.
func Locate(driver flash.Driver, candidates []Candidate, cfg geometry.Config) (flash.Area, error) {
	for _, c := range candidates {
		area, err := driver.Open(c.ID)

		if err != nil {
			return nil, err
		}

		l := cfg.LayoutFor(area.Size(), c.Scratch)

		buf := make([]byte, cfg.MagicAlign())
		err = area.Read(l.MagicOff, buf)

		if err != nil {
			area.Close()
			return nil, err
		}

		if magic.Decode(buf[:magic.Size], cfg.ErasedValue) == magic.Good {
			return area, nil
		}

		if err := area.Close(); err != nil {
			return nil, err
		}
	}

	return nil, ErrNotFound
}
