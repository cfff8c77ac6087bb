// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sizeoracle implements the max-image-size oracle (§4.G): for
// the configured upgrade strategy, report the largest firmware
// payload that can coexist with the trailer in a given slot.
//
// Strategies are modeled as a tagged variant (geometry.Strategy)
// dispatched by a plain switch, per spec §9's explicit guidance to
// avoid runtime polymorphism here -- every other core operation is
// strategy-agnostic, so this is the one place strategy selection
// matters.
package sizeoracle

import (
	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
)

// MaxImageSize returns an exclusive upper bound on image bytes placed
// at the start of slot, given the configured strategy. When the
// strategy is StrategyScratch, secondary must be the slot's opposite
// number (primary's secondary, or vice versa) so the padding
// computation can consider both first-trailer sectors; it may be nil
// for every other strategy.
//
// A strategy-specific failure to read a sector descriptor (move and
// scratch strategies) is reported as (0, nil), not an error: spec §4.G
// deliberately cascades this into an image-too-large rejection later,
// rather than silently admitting an oversize image (§9 Open Question
// 2 flags this contract for review but does not change it here).
func MaxImageSize(cfg geometry.Config, slot, secondary flash.Area) (uint32, error) {
	switch cfg.Strategy {
	case geometry.StrategyScratch:
		return maxImageSizeScratch(cfg, slot, secondary)
	case geometry.StrategyMove:
		return maxImageSizeMove(cfg, slot)
	case geometry.StrategyOverwrite, geometry.StrategyDirectExecute, geometry.StrategyRAMLoad:
		return swapInfoOffset(cfg, slot), nil
	case geometry.StrategySingleSlot:
		return statusOffset(cfg, slot), nil
	default:
		return 0, nil
	}
}

func statusOffset(cfg geometry.Config, slot flash.Area) uint32 {
	return cfg.Layout(slot).StatusOff
}

// swapInfoOffset is the offset of the swap_type field, the first of
// the four fixed aux fields, used as the "swap-info" boundary by the
// overwrite/direct-execute/ram-load strategies.
func swapInfoOffset(cfg geometry.Config, slot flash.Area) uint32 {
	return cfg.Layout(slot).SwapTypeOff
}

func maxImageSizeMove(cfg geometry.Config, slot flash.Area) (uint32, error) {
	sector, err := cfg.FirstTrailerSector(slot, false)

	if err != nil {
		return 0, nil
	}

	return sector.Offset, nil
}

func maxImageSizeScratch(cfg geometry.Config, slot, secondary flash.Area) (uint32, error) {
	primarySector, err := cfg.FirstTrailerSector(slot, false)

	if err != nil {
		return 0, nil
	}

	primaryEnd := primarySector.Offset + primarySector.Size

	secondaryEnd := primaryEnd

	if secondary != nil {
		secondarySector, err := cfg.FirstTrailerSector(secondary, false)

		if err != nil {
			return 0, nil
		}

		secondaryEnd = secondarySector.Offset + secondarySector.Size
	}

	slotSize := slot.Size()
	slotTrailerOff := slotSize - cfg.TrailerSize()

	pad := cfg.ScratchPadding(primaryEnd, secondaryEnd, slotSize)

	return slotTrailerOff - pad, nil
}
