// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package status

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
	"github.com/usbarmory/armory-trailer/magic"
)

const (
	scratchID = 0
	primaryID = 1
	secondID  = 2
)

func testConfig() geometry.Config {
	return geometry.Config{
		MinWriteSize:     8,
		StatusMaxEntries: 4,
		ErasedValue:      0xff,
	}
}

func makeArea(id int, cfg geometry.Config, scratch bool) *flash.Fake {
	size := uint32(0x4000)
	area := flash.NewFake(id, 0, cfg.MinWriteSize, cfg.ErasedValue, []flash.Sector{{Offset: 0, Size: size}})
	return area
}

func writeMagic(t *testing.T, area *flash.Fake, cfg geometry.Config, scratch bool, good bool) {
	t.Helper()

	l := cfg.LayoutFor(area.Size(), scratch)

	if !good {
		return // area is already erased (all 0xff) by construction
	}

	buf := make([]byte, cfg.MagicAlign())
	m := magic.Encode()
	copy(buf, m[:])

	require.NoError(t, area.Write(l.MagicOff, buf))
}

// S3: scratch unset, primary good -> locator returns primary.
func TestLocateS3(t *testing.T) {
	cfg := testConfig()

	scratch := makeArea(scratchID, cfg, true)
	primary := makeArea(primaryID, cfg, false)
	writeMagic(t, primary, cfg, false, true)

	driver := flash.NewRegistry(scratch, primary)

	area, err := Locate(driver, []Candidate{
		{ID: scratchID, Scratch: true},
		{ID: primaryID, Scratch: false},
	}, cfg)

	require.NoError(t, err)
	require.Equal(t, primaryID, area.ID())
}

// S4: neither good -> error, no handle left open (Close callable twice
// is harmless, but we check no handle was returned at all).
func TestLocateS4(t *testing.T) {
	cfg := testConfig()

	scratch := makeArea(scratchID, cfg, true)
	primary := makeArea(primaryID, cfg, false)

	driver := flash.NewRegistry(scratch, primary)

	area, err := Locate(driver, []Candidate{
		{ID: scratchID, Scratch: true},
		{ID: primaryID, Scratch: false},
	}, cfg)

	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, area)
}

// When both are good, the earlier-listed area (scratch) wins.
func TestLocateBothGoodPrefersFirstListed(t *testing.T) {
	cfg := testConfig()

	scratch := makeArea(scratchID, cfg, true)
	primary := makeArea(primaryID, cfg, false)
	writeMagic(t, scratch, cfg, true, true)
	writeMagic(t, primary, cfg, false, true)

	driver := flash.NewRegistry(scratch, primary)

	area, err := Locate(driver, []Candidate{
		{ID: scratchID, Scratch: true},
		{ID: primaryID, Scratch: false},
	}, cfg)

	require.NoError(t, err)
	require.Equal(t, scratchID, area.ID())
}

func TestLocateSecondaryNeverProbed(t *testing.T) {
	cfg := testConfig()

	primary := makeArea(primaryID, cfg, false)
	second := makeArea(secondID, cfg, false)
	writeMagic(t, second, cfg, false, true)

	driver := flash.NewRegistry(primary, second)

	// Candidate list intentionally omits secondary.
	_, err := Locate(driver, []Candidate{
		{ID: primaryID, Scratch: false},
	}, cfg)

	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocateClosesAreasThatAreNotGood(t *testing.T) {
	cfg := testConfig()

	scratch := makeArea(scratchID, cfg, true)
	primary := makeArea(primaryID, cfg, false)
	writeMagic(t, primary, cfg, false, true)

	driver := flash.NewRegistry(scratch, primary)

	_, err := Locate(driver, []Candidate{
		{ID: scratchID, Scratch: true},
		{ID: primaryID, Scratch: false},
	}, cfg)
	require.NoError(t, err)

	// scratch was not good, so it must already be closed.
	require.ErrorIs(t, scratch.Read(0, make([]byte, 8)), flash.ErrClosed)
}
