// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trailer implements typed read/write of the individual
// trailer fields (magic, swap type, copy done, image ok, swap size)
// through the flash area abstraction, with the per-field alignment
// padding and write ordering required by §4.D.
//
// Write ordering within one swap-resumption milestone is: status
// bytes, then the auxiliary fields (swap type, copy done, image ok,
// swap size), then the magic, written last. Readers must tolerate any
// prefix of this sequence -- a partial write left by a reset -- and
// derive swap state from which fields are still Unset.
package trailer

import (
	"encoding/binary"

	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
	"github.com/usbarmory/armory-trailer/magic"
)

// SwapType enumerates the intent tag written pre-swap.
type SwapType byte

const (
	SwapTypeNone SwapType = iota
	SwapTypeTest
	SwapTypePermanent
	SwapTypeRevert
	SwapTypeFail
)

// Trailer binds a flash area to the layout computed for it, and
// exposes the field-level read/write operations of §4.D.
type Trailer struct {
	Area   flash.Area
	Layout geometry.Layout
	Config geometry.Config
}

// New computes the layout for area (as a primary/secondary slot
// trailer, not scratch) and returns a bound Trailer.
func New(area flash.Area, cfg geometry.Config) *Trailer {
	return &Trailer{
		Area:   area,
		Layout: cfg.Layout(area),
		Config: cfg,
	}
}

// NewScratch computes the layout for area as the scratch trailer.
func NewScratch(area flash.Area, cfg geometry.Config) *Trailer {
	return &Trailer{
		Area:   area,
		Layout: cfg.ScratchLayout(area),
		Config: cfg,
	}
}

func (t *Trailer) padded(value byte) []byte {
	buf := make([]byte, t.Config.MaxAlign())
	buf[0] = value

	for i := 1; i < len(buf); i++ {
		buf[i] = t.Config.ErasedValue
	}

	return buf
}

func (t *Trailer) readByteField(off uint32) (byte, error) {
	buf := make([]byte, t.Config.MaxAlign())

	if err := t.Area.Read(off, buf); err != nil {
		return 0, err
	}

	return buf[0], nil
}

// ReadSwapSize reads the 4-byte little-endian swap_size field.
func (t *Trailer) ReadSwapSize() (uint32, error) {
	buf := make([]byte, t.Config.MaxAlign())

	if err := t.Area.Read(t.Layout.SwapSizeOff, buf); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[:4]), nil
}

// WriteSwapSize writes v as the 4-byte little-endian swap_size field,
// padded to MAX_ALIGN with the erased value.
func (t *Trailer) WriteSwapSize(v uint32) error {
	buf := make([]byte, t.Config.MaxAlign())

	for i := 4; i < len(buf); i++ {
		buf[i] = t.Config.ErasedValue
	}

	binary.LittleEndian.PutUint32(buf[:4], v)

	return t.Area.Write(t.Layout.SwapSizeOff, buf)
}

// ReadSwapType reads the single significant byte of swap_type.
func (t *Trailer) ReadSwapType() (SwapType, error) {
	b, err := t.readByteField(t.Layout.SwapTypeOff)
	return SwapType(b), err
}

// WriteSwapType writes v as the swap_type field, padded to MAX_ALIGN.
func (t *Trailer) WriteSwapType(v SwapType) error {
	return t.Area.Write(t.Layout.SwapTypeOff, t.padded(byte(v)))
}

// ReadCopyDone reads the single significant byte of copy_done.
func (t *Trailer) ReadCopyDone() (byte, error) {
	return t.readByteField(t.Layout.CopyDoneOff)
}

// WriteCopyDone writes v as the copy_done field, padded to MAX_ALIGN.
func (t *Trailer) WriteCopyDone(v byte) error {
	return t.Area.Write(t.Layout.CopyDoneOff, t.padded(v))
}

// ReadImageOk reads the single significant byte of image_ok.
func (t *Trailer) ReadImageOk() (byte, error) {
	return t.readByteField(t.Layout.ImageOkOff)
}

// WriteImageOk writes v as the image_ok field, padded to MAX_ALIGN.
func (t *Trailer) WriteImageOk(v byte) error {
	return t.Area.Write(t.Layout.ImageOkOff, t.padded(v))
}

// ReadMagic reads and classifies the trailer magic.
func (t *Trailer) ReadMagic() (magic.Classification, error) {
	buf := make([]byte, t.Config.MagicAlign())

	if err := t.Area.Read(t.Layout.MagicOff, buf); err != nil {
		return magic.Bad, err
	}

	return magic.Decode(buf[:magic.Size], t.Config.ErasedValue), nil
}

// WriteMagic writes the trailer magic, zero-padded to MAGIC_ALIGN.
// This must be the last field written in any durable state transition
// (§3 invariant 2): its validity implies the validity of every
// preceding field written in that transition.
func (t *Trailer) WriteMagic() error {
	buf := make([]byte, t.Config.MagicAlign())
	m := magic.Encode()
	copy(buf, m[:])

	return t.Area.Write(t.Layout.MagicOff, buf)
}

// StatusOff returns the offset of the first status entry byte.
func (t *Trailer) StatusOff() uint32 {
	return t.Layout.StatusOff
}
