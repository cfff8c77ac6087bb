// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trailer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
	"github.com/usbarmory/armory-trailer/magic"
)

func testArea() flash.Area {
	return flash.NewFake(1, 0, 8, 0xff, []flash.Sector{
		{Offset: 0, Size: 0x4000},
	})
}

func testConfig() geometry.Config {
	return geometry.Config{
		MinWriteSize:     8,
		StatusMaxEntries: 4,
		ErasedValue:      0xff,
	}
}

func TestSwapSizeRoundTrip(t *testing.T) {
	tr := New(testArea(), testConfig())

	for _, v := range []uint32{0, 1, 0xdeadbeef, 0xffffffff} {
		require.NoError(t, tr.WriteSwapSize(v))

		got, err := tr.ReadSwapSize()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestSwapTypeRoundTrip(t *testing.T) {
	tr := New(testArea(), testConfig())

	require.NoError(t, tr.WriteSwapType(SwapTypeTest))

	got, err := tr.ReadSwapType()
	require.NoError(t, err)
	require.Equal(t, SwapTypeTest, got)
}

func TestCopyDoneImageOkRoundTrip(t *testing.T) {
	tr := New(testArea(), testConfig())

	require.NoError(t, tr.WriteCopyDone(1))
	require.NoError(t, tr.WriteImageOk(1))

	cd, err := tr.ReadCopyDone()
	require.NoError(t, err)
	require.Equal(t, byte(1), cd)

	ok, err := tr.ReadImageOk()
	require.NoError(t, err)
	require.Equal(t, byte(1), ok)
}

func TestMagicUnsetUntilWritten(t *testing.T) {
	tr := New(testArea(), testConfig())

	cls, err := tr.ReadMagic()
	require.NoError(t, err)
	require.Equal(t, magic.Unset, cls)

	require.NoError(t, tr.WriteMagic())

	cls, err = tr.ReadMagic()
	require.NoError(t, err)
	require.Equal(t, magic.Good, cls)
}

// TestWriteOrderingTolerance ensures any prefix of the write sequence
// (status -> aux fields -> magic) leaves the trailer in a well-defined,
// not-yet-trusted state.
func TestWriteOrderingTolerance(t *testing.T) {
	tr := New(testArea(), testConfig())

	require.NoError(t, tr.WriteSwapType(SwapTypeTest))
	require.NoError(t, tr.WriteSwapSize(1234))

	// magic not yet written: trailer must not be trusted.
	cls, err := tr.ReadMagic()
	require.NoError(t, err)
	require.Equal(t, magic.Unset, cls)

	st, err := tr.ReadSwapType()
	require.NoError(t, err)
	require.Equal(t, SwapTypeTest, st)

	require.NoError(t, tr.WriteMagic())

	cls, err = tr.ReadMagic()
	require.NoError(t, err)
	require.Equal(t, magic.Good, cls)
}

// TestNewResolvesSameLayoutAsGeometry guards against New/NewScratch
// drifting from a direct geometry.Config computation over the same
// area -- the two must describe the identical field layout.
func TestNewResolvesSameLayoutAsGeometry(t *testing.T) {
	area := testArea()
	cfg := testConfig()

	tr := New(area, cfg)
	want := cfg.Layout(area)

	if diff := cmp.Diff(want, tr.Layout); diff != "" {
		t.Errorf("Trailer.Layout mismatch (-want +got):\n%s", diff)
	}

	scratchTr := NewScratch(area, cfg)
	wantScratch := cfg.ScratchLayout(area)

	if diff := cmp.Diff(wantScratch, scratchTr.Layout); diff != "" {
		t.Errorf("scratch Trailer.Layout mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsAlignedToMaxAlign(t *testing.T) {
	cfg := testConfig()
	tr := New(testArea(), cfg)

	require.Zero(t, tr.Layout.SwapSizeOff%cfg.MaxAlign())
	require.Zero(t, tr.Layout.ImageOkOff%cfg.MaxAlign())
	require.Zero(t, tr.Layout.CopyDoneOff%cfg.MaxAlign())
	require.Zero(t, tr.Layout.SwapTypeOff%cfg.MaxAlign())
}
