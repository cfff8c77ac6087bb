// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package enckey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
)

type fakeUnwrapper struct {
	key []byte
	err error
}

func (f *fakeUnwrapper) Unwrap(tlv []byte) ([]byte, error) {
	return f.key, f.err
}

func rawConfig() geometry.Config {
	return geometry.Config{
		MinWriteSize:     8,
		StatusMaxEntries: 4,
		EncImages:        true,
		SaveEncTLV:       false,
		ErasedValue:      0xff,
	}
}

func tlvConfig() geometry.Config {
	c := rawConfig()
	c.SaveEncTLV = true
	return c
}

func testArea(cfg geometry.Config) flash.Area {
	return flash.NewFake(1, 0, cfg.MinWriteSize, cfg.ErasedValue, []flash.Sector{
		{Offset: 0, Size: 0x4000},
	})
}

func TestRawKeyRoundTrip(t *testing.T) {
	cfg := rawConfig()
	area := testArea(cfg)
	layout := cfg.Layout(area)

	s, err := New(area, layout, cfg)
	require.NoError(t, err)

	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}

	require.NoError(t, s.WriteRaw(0, key))
	require.NoError(t, s.WriteRaw(1, key))

	got, err := s.ReadRaw(0)
	require.NoError(t, err)
	require.Equal(t, key, got)

	got, err = s.ReadRaw(1)
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestRawKeySlotsDoNotOverlap(t *testing.T) {
	cfg := rawConfig()
	area := testArea(cfg)
	layout := cfg.Layout(area)

	off0 := geometry.EncSlotOffset(layout, 0)
	off1 := geometry.EncSlotOffset(layout, 1)

	require.NotEqual(t, off0, off1)
	require.Less(t, off0+cfg.EncAlign(), layout.SwapSizeOff+1)
	require.Less(t, off1+cfg.EncAlign(), layout.SwapSizeOff+1)
}

func TestTLVErasedSlotTreatedAsAbsent(t *testing.T) {
	cfg := tlvConfig()
	area := testArea(cfg)
	layout := cfg.Layout(area)

	s, err := New(area, layout, cfg)
	require.NoError(t, err)

	u := &fakeUnwrapper{err: errors.New("should not be called")}

	key, tlv, err := s.ReadTLV(0, u)
	require.NoError(t, err)
	require.Nil(t, key)
	require.Len(t, tlv, TLVSize)
}

func TestTLVErasedValueParameterized(t *testing.T) {
	cfg := tlvConfig()
	cfg.ErasedValue = 0x00

	area := flash.NewFake(1, 0, cfg.MinWriteSize, 0x00, []flash.Sector{{Offset: 0, Size: 0x4000}})
	layout := cfg.Layout(area)

	s, err := New(area, layout, cfg)
	require.NoError(t, err)

	u := &fakeUnwrapper{err: errors.New("should not be called")}

	key, _, err := s.ReadTLV(0, u)
	require.NoError(t, err)
	require.Nil(t, key)
}

func TestTLVNonErasedInvokesUnwrap(t *testing.T) {
	cfg := tlvConfig()
	area := testArea(cfg)
	layout := cfg.Layout(area)

	s, err := New(area, layout, cfg)
	require.NoError(t, err)

	tlv := make([]byte, TLVSize)
	tlv[0] = 0x01 // not all-erased

	require.NoError(t, s.WriteTLV(0, tlv))

	wantKey := []byte("0123456789abcdef")
	u := &fakeUnwrapper{key: wantKey}

	key, gotTLV, err := s.ReadTLV(0, u)
	require.NoError(t, err)
	require.Equal(t, wantKey, key)
	require.Equal(t, tlv, gotTLV)
}

func TestEncDisabled(t *testing.T) {
	cfg := geometry.Config{MinWriteSize: 8, StatusMaxEntries: 4, ErasedValue: 0xff}
	area := testArea(cfg)
	layout := cfg.Layout(area)

	_, err := New(area, layout, cfg)
	require.ErrorIs(t, err, ErrEncDisabled)
}

func TestDeriveSlotKeyDistinctPerSlot(t *testing.T) {
	secret := []byte("super secret root key material!")

	k0, err := DeriveSlotKey(secret, 0)
	require.NoError(t, err)

	k1, err := DeriveSlotKey(secret, 1)
	require.NoError(t, err)

	require.Len(t, k0, KeySize)
	require.NotEqual(t, k0, k1)

	_, err = DeriveSlotKey(secret, 2)
	require.ErrorIs(t, err, ErrInvalidSlot)
}
