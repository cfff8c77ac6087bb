// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package geometry computes the byte layout of an image trailer --
// sizes and offsets of every trailer field in a slot or in scratch --
// as a pure function of the flash write alignment, the enabled
// features, and the sector table. Nothing here touches flash.
package geometry

import "github.com/usbarmory/armory-trailer/flash"

// STATUS_STATE_COUNT is the number of status markers recorded per
// sector-pair operation during a swap: pre-swap, post-move, post-copy.
const STATUS_STATE_COUNT = 3

// Strategy names the upgrade strategy in effect, which only changes
// the max-image-size oracle (see package sizeoracle); every other
// computation in this package is strategy-agnostic.
type Strategy int

const (
	StrategyScratch Strategy = iota
	StrategyMove
	StrategyOverwrite
	StrategyDirectExecute
	StrategyRAMLoad
	StrategySingleSlot
)

// Config holds the compile-time feature flags from spec §6 plus the
// parameters every computation in this package is a pure function of.
type Config struct {
	// MinWriteSize is the flash write-unit alignment, a power of two.
	MinWriteSize uint32
	// StatusMaxEntries bounds the number of sector-pair operations a
	// single swap can record.
	StatusMaxEntries int
	// EncImages reserves trailer space for two encryption key slots.
	EncImages bool
	// SaveEncTLV selects the 48-byte encrypted-TLV key slot instead of
	// the 16-byte raw-key slot. Only meaningful when EncImages is set.
	SaveEncTLV bool
	// UsingScratch records that a scratch partition is in use. No
	// computation in this module reads it: the size oracle's scratch
	// padding follows Strategy, and bootutil.Context.HasScratch
	// controls whether the locator probes scratch.
	UsingScratch bool
	// Strategy selects the max-image-size oracle's dispatch arm.
	Strategy Strategy
	// ErasedValue is the byte the underlying flash reads back as after
	// a sector erase, typically 0xff (resolves spec Open Question 3).
	ErasedValue byte
}

func alignUp(n, align uint32) uint32 {
	if align == 0 {
		return n
	}

	if r := n % align; r != 0 {
		n += align - r
	}

	return n
}

func max(a, b uint32) uint32 {
	if a > b {
		return a
	}

	return b
}

// MagicAlign returns MAGIC_ALIGN = align_up(16, w).
func (c Config) MagicAlign() uint32 {
	return alignUp(16, c.MinWriteSize)
}

// MaxAlign returns MAX_ALIGN = max(8, w).
func (c Config) MaxAlign() uint32 {
	return max(8, c.MinWriteSize)
}

// EncAlign returns ENC_ALIGN, sized for a raw 16-byte key or a 48-byte
// TLV depending on SaveEncTLV. Zero when EncImages is disabled.
func (c Config) EncAlign() uint32 {
	if !c.EncImages {
		return 0
	}

	if c.SaveEncTLV {
		return alignUp(48, c.MinWriteSize)
	}

	return alignUp(16, c.MinWriteSize)
}

// StatusEntrySize returns STATUS_STATE_COUNT * w.
func (c Config) StatusEntrySize() uint32 {
	return STATUS_STATE_COUNT * c.MinWriteSize
}

// StatusSize returns STATUS_MAX_ENTRIES * StatusEntrySize.
func (c Config) StatusSize() uint32 {
	return uint32(c.StatusMaxEntries) * c.StatusEntrySize()
}

// TrailerInfoSize returns the fixed-field portion of the trailer:
// optional enc slots, the four aux fields, and the magic.
func (c Config) TrailerInfoSize() uint32 {
	sz := 4*c.MaxAlign() + c.MagicAlign()

	if c.EncImages {
		sz += 2 * c.EncAlign()
	}

	return sz
}

// TrailerSize returns the full trailer size for a primary/secondary
// slot: status entries for every sector-pair plus the fixed fields.
func (c Config) TrailerSize() uint32 {
	return c.StatusSize() + c.TrailerInfoSize()
}

// ScratchTrailerSize returns the trailer size as it exists in
// scratch, which only ever holds one sector's worth of status.
func (c Config) ScratchTrailerSize() uint32 {
	return c.StatusEntrySize() + c.TrailerInfoSize()
}

// Layout is the fully-resolved set of field offsets for one area,
// relative to the area's own base (offset 0 = start of the area).
type Layout struct {
	StatusOff   uint32
	SwapTypeOff uint32
	CopyDoneOff uint32
	ImageOkOff  uint32
	SwapSizeOff uint32
	EncOff      [2]uint32 // EncOff[0], EncOff[1]; zero value unused when !EncImages
	MagicOff    uint32
	Size        uint32
}

// trailerSizeFor returns the trailer size applicable to area, which is
// the scratch size when scratch is true, else the full slot size.
func (c Config) trailerSizeFor(scratch bool) uint32 {
	if scratch {
		return c.ScratchTrailerSize()
	}

	return c.TrailerSize()
}

// LayoutFor computes the field layout for an area of the given total
// size, treating it as scratch (one sector's worth of status) or as a
// full primary/secondary slot.
func (c Config) LayoutFor(areaSize uint32, scratch bool) Layout {
	t := c.trailerSizeFor(scratch)

	l := Layout{Size: areaSize}
	l.StatusOff = areaSize - t
	l.MagicOff = areaSize - c.MagicAlign()
	l.SwapSizeOff = l.MagicOff - c.MaxAlign()
	l.ImageOkOff = l.SwapSizeOff - c.MaxAlign()
	l.CopyDoneOff = l.ImageOkOff - c.MaxAlign()
	l.SwapTypeOff = l.CopyDoneOff - c.MaxAlign()

	if c.EncImages {
		enc := c.EncAlign()
		l.EncOff[1] = l.SwapTypeOff - enc
		l.EncOff[0] = l.EncOff[1] - enc
	}

	return l
}

// Layout computes the field layout of area as a primary/secondary
// slot trailer.
func (c Config) Layout(area flash.Area) Layout {
	return c.LayoutFor(area.Size(), false)
}

// ScratchLayout computes the field layout of area as the scratch
// trailer (one sector's worth of status).
func (c Config) ScratchLayout(area flash.Area) Layout {
	return c.LayoutFor(area.Size(), true)
}

// EncSlotOffset returns the offset of enc key slot s (0 or 1) within
// an area laid out by Layout/ScratchLayout.
func EncSlotOffset(l Layout, s int) uint32 {
	return l.EncOff[s]
}

// FirstTrailerSector walks area's sector table from the last sector
// toward lower addresses, accumulating sizes until the cumulative
// size covers the trailer, and returns that sector.
//
// Handles heterogeneous sector sizes: slots are not required to use a
// uniform sector size throughout.
func (c Config) FirstTrailerSector(area flash.Area, scratch bool) (flash.Sector, error) {
	trailerSz := c.trailerSizeFor(scratch)

	var cum uint32

	for idx := area.SectorCount() - 1; idx >= 0; idx-- {
		s, err := area.SectorAt(idx)

		if err != nil {
			return flash.Sector{}, err
		}

		cum += s.Size

		if cum >= trailerSz {
			return s, nil
		}
	}

	return flash.Sector{}, flash.ErrNoSector
}

// ScratchPadding computes the padding (§4.B, the scratch-using-swap
// case) that must be reserved below the trailer in a primary or
// secondary slot so that, when the scratch copy of the last sector's
// swap runs, it can hold a full ScratchTrailerSize within the first
// sector that contains any trailer byte of either slot.
//
// primaryEnd and secondaryEnd are the offsets of the end of the
// first-trailer sector (FirstTrailerSector's sector, Offset+Size) in
// the primary and secondary slots respectively; slotSize is the size
// of the slot ScratchPadding is being computed for.
func (c Config) ScratchPadding(primaryEnd, secondaryEnd, slotSize uint32) uint32 {
	return ScratchPaddingRaw(c.TrailerSize(), c.ScratchTrailerSize(), primaryEnd, secondaryEnd, slotSize)
}

// ScratchPaddingRaw is the raw arithmetic behind ScratchPadding,
// parameterized directly by the trailer size T and scratch trailer
// size S rather than derived from a Config -- this is what §4.B and
// the S6 worked example describe and is exercised directly by tests.
func ScratchPaddingRaw(trailerSz, scratchTrailerSz, primaryEnd, secondaryEnd, slotSize uint32) uint32 {
	slotTrailerOff := slotSize - trailerSz

	trailerInFirstSector := max(primaryEnd, secondaryEnd) - slotTrailerOff

	if trailerInFirstSector >= scratchTrailerSz {
		return 0
	}

	return scratchTrailerSz - trailerInFirstSector
}
