// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bootutil exposes the outer-boot-engine-facing API of §6:
// find_status, read/write_swap_size, read/write_enc_key, status_off,
// status_entries, max_image_size, trailer_sz and status_sz. It is the
// single entry point gluing together geometry, magic, trailer,
// status, enckey and sizeoracle for a caller that does not want to
// wire each component by hand.
//
// Grounded on the original C implementation's bootutil_misc.c (see
// original_source/boot/bootutil/src/bootutil_misc.c), re-expressed in
// idiomatic Go: explicit error returns instead of status codes, and a
// package-level Context instead of file-scope statics.
package bootutil

import (
	"io"
	"log"

	"github.com/usbarmory/armory-trailer/enckey"
	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
	"github.com/usbarmory/armory-trailer/sizeoracle"
	"github.com/usbarmory/armory-trailer/status"
	"github.com/usbarmory/armory-trailer/trailer"
)

// Context bundles the feature configuration and the set of flash
// areas the outer driver exposes, and is the receiver for every
// outer-boot-engine operation in this package.
type Context struct {
	Config    geometry.Config
	Driver    flash.Driver
	ScratchID int
	PrimaryID int
	SecondID  int

	// HasScratch controls whether the scratch candidate is probed by
	// FindStatus; it should mirror Config.UsingScratch.
	HasScratch bool
}

// Logger receives SetCurrentSlot's notifications. The default logger
// discards them, so a Context built without touching this package's
// logging hook stays silent, the way the teacher's own library code
// never reaches for the global log package directly.
var Logger = log.New(io.Discard, "", 0)

// currentSlot is the single process-wide integer used for logging
// context, set once per boot by the outer driver (§5, §9). It is an
// explicit package-level cell, not hidden module state: the outer
// driver is responsible for its entire lifecycle.
var currentSlot int = -1

// SetCurrentSlot records which slot is executing, for log messages
// only. It has no effect on any core computation.
func SetCurrentSlot(slot int) {
	currentSlot = slot
	Logger.Printf("bootutil: current slot set to %d", slot)
}

// CurrentSlot returns the value last set by SetCurrentSlot, or -1 if
// it has not been set this boot.
func CurrentSlot() int {
	return currentSlot
}

// FindStatus implements §4.E/§6's find_status(image_index): it probes
// {scratch (if enabled), primary} in that order and returns the first
// area whose magic is Good, still open. Closing it is the caller's
// responsibility.
func (c *Context) FindStatus() (flash.Area, error) {
	var candidates []status.Candidate

	if c.HasScratch {
		candidates = append(candidates, status.Candidate{ID: c.ScratchID, Scratch: true})
	}

	candidates = append(candidates, status.Candidate{ID: c.PrimaryID, Scratch: false})

	return status.Locate(c.Driver, candidates, c.Config)
}

// ReadSwapSize reads the swap_size field of an already-open handle.
func (c *Context) ReadSwapSize(handle flash.Area) (uint32, error) {
	return trailer.New(handle, c.Config).ReadSwapSize()
}

// WriteSwapSize writes the swap_size field of an already-open handle.
func (c *Context) WriteSwapSize(handle flash.Area, v uint32) error {
	return trailer.New(handle, c.Config).WriteSwapSize(v)
}

// ReadEncKey reads the per-slot encryption key material (raw or TLV,
// per Config.SaveEncTLV) of an already-open handle's enc slot index.
// In TLV mode, u performs the unwrap; it is ignored in raw-key mode
// and may be nil there. Returns ErrEncDisabled if Config does not
// enable ENC_IMAGES.
func (c *Context) ReadEncKey(handle flash.Area, slot int, u enckey.Unwrapper) ([]byte, error) {
	slots, err := enckey.New(handle, c.Config.Layout(handle), c.Config)

	if err != nil {
		return nil, err
	}

	if c.Config.SaveEncTLV {
		key, _, err := slots.ReadTLV(slot, u)
		return key, err
	}

	return slots.ReadRaw(slot)
}

// WriteEncKey writes the per-slot encryption key material (raw or
// TLV, per Config.SaveEncTLV) of an already-open handle's enc slot
// index. Returns ErrEncDisabled if Config does not enable ENC_IMAGES.
func (c *Context) WriteEncKey(handle flash.Area, slot int, data []byte) error {
	slots, err := enckey.New(handle, c.Config.Layout(handle), c.Config)

	if err != nil {
		return err
	}

	if c.Config.SaveEncTLV {
		return slots.WriteTLV(slot, data)
	}

	return slots.WriteRaw(slot, data)
}

// StatusOff returns the offset of the first status entry byte for
// handle, treating it as a primary/secondary trailer.
func (c *Context) StatusOff(handle flash.Area) uint32 {
	return c.Config.Layout(handle).StatusOff
}

// StatusEntries returns the number of status state-slots available on
// handle: StatusMaxEntries * STATUS_STATE_COUNT for primary/secondary,
// STATUS_STATE_COUNT for scratch, or -1 if handle's id matches
// neither.
func (c *Context) StatusEntries(handle flash.Area) int {
	switch handle.ID() {
	case c.PrimaryID, c.SecondID:
		return c.Config.StatusMaxEntries * geometry.STATUS_STATE_COUNT
	case c.ScratchID:
		return geometry.STATUS_STATE_COUNT
	default:
		return -1
	}
}

// MaxImageSize reports the largest image byte count that can coexist
// with the trailer in slot, per the configured strategy. secondary is
// only consulted under the scratch strategy.
func (c *Context) MaxImageSize(slot, secondary flash.Area) (uint32, error) {
	return sizeoracle.MaxImageSize(c.Config, slot, secondary)
}

// TrailerSize returns trailer_sz(write_align) for the context's
// configuration.
func (c *Context) TrailerSize() uint32 {
	return c.Config.TrailerSize()
}

// StatusSize returns status_sz(write_align) for the context's
// configuration.
func (c *Context) StatusSize() uint32 {
	return c.Config.StatusSize()
}
