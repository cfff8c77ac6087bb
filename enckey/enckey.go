// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package enckey implements the optional per-slot encryption key
// slots co-resident with the trailer (§4.F, feature flag ENC_IMAGES).
//
// Two storage modes are supported, selected at build time via
// geometry.Config.SaveEncTLV: a raw 16-byte key, or a 48-byte
// encrypted TLV that is unwrapped on read through an injected
// Unwrapper (the external key-derivation/key-unwrap collaborator from
// §6). The "is this slot erased" check is parameterized by the
// flash's erased-value constant rather than hardcoded to 0xff,
// resolving spec §9 Open Question 3.
package enckey

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/usbarmory/armory-trailer/flash"
	"github.com/usbarmory/armory-trailer/geometry"
)

// KeySize is the length in bytes of an unwrapped AES key.
const KeySize = 16

// TLVSize is the length in bytes of an encrypted key TLV blob.
const TLVSize = 48

// ErrEncDisabled is returned when enc key operations are attempted on
// a Config with EncImages unset.
var ErrEncDisabled = errors.New("enckey: encryption not enabled")

// ErrInvalidSlot is returned for a slot index outside {0, 1}.
var ErrInvalidSlot = errors.New("enckey: invalid slot index")

// Unwrapper is the external key-unwrap collaborator (§6): given a TLV,
// it returns the plaintext key it contains, or an error.
type Unwrapper interface {
	Unwrap(tlv []byte) (key []byte, err error)
}

// Slots binds a flash area and its layout to the enc key slot
// operations.
type Slots struct {
	Area   flash.Area
	Layout geometry.Layout
	Config geometry.Config
}

// New returns a bound Slots, or ErrEncDisabled if cfg does not enable
// ENC_IMAGES.
func New(area flash.Area, layout geometry.Layout, cfg geometry.Config) (*Slots, error) {
	if !cfg.EncImages {
		return nil, ErrEncDisabled
	}

	return &Slots{Area: area, Layout: layout, Config: cfg}, nil
}

func (s *Slots) offset(slot int) (uint32, error) {
	if slot != 0 && slot != 1 {
		return 0, ErrInvalidSlot
	}

	return geometry.EncSlotOffset(s.Layout, slot), nil
}

// WriteRaw writes a raw 16-byte key to the given slot. Valid only when
// the Config selects raw-key mode (SaveEncTLV unset).
func (s *Slots) WriteRaw(slot int, key []byte) error {
	if s.Config.SaveEncTLV {
		return errors.New("enckey: TLV mode configured, use WriteTLV")
	}

	if len(key) != KeySize {
		return errors.New("enckey: invalid key length")
	}

	off, err := s.offset(slot)

	if err != nil {
		return err
	}

	buf := make([]byte, s.Config.EncAlign())
	copy(buf, key)

	for i := len(key); i < len(buf); i++ {
		buf[i] = s.Config.ErasedValue
	}

	return s.Area.Write(off, buf)
}

// ReadRaw reads a raw key from the given slot. Valid only in raw-key
// mode.
func (s *Slots) ReadRaw(slot int) ([]byte, error) {
	if s.Config.SaveEncTLV {
		return nil, errors.New("enckey: TLV mode configured, use ReadTLV")
	}

	off, err := s.offset(slot)

	if err != nil {
		return nil, err
	}

	buf := make([]byte, s.Config.EncAlign())

	if err := s.Area.Read(off, buf); err != nil {
		return nil, err
	}

	key := make([]byte, KeySize)
	copy(key, buf[:KeySize])

	return key, nil
}

// WriteTLV writes a full encrypted key TLV to the given slot. Valid
// only in TLV mode.
func (s *Slots) WriteTLV(slot int, tlv []byte) error {
	if !s.Config.SaveEncTLV {
		return errors.New("enckey: raw-key mode configured, use WriteRaw")
	}

	if len(tlv) != TLVSize {
		return errors.New("enckey: invalid TLV length")
	}

	off, err := s.offset(slot)

	if err != nil {
		return err
	}

	buf := make([]byte, s.Config.EncAlign())
	copy(buf, tlv)

	for i := len(tlv); i < len(buf); i++ {
		buf[i] = s.Config.ErasedValue
	}

	return s.Area.Write(off, buf)
}

// ReadTLV reads the TLV at slot and, if it is not entirely erased,
// unwraps it through u to recover the plaintext key. An entirely
// erased TLV is treated as an absent slot: a nil key is returned
// together with the raw TLV bytes and a nil error, and u is not
// invoked.
func (s *Slots) ReadTLV(slot int, u Unwrapper) ([]byte, []byte, error) {
	if !s.Config.SaveEncTLV {
		return nil, nil, errors.New("enckey: raw-key mode configured, use ReadRaw")
	}

	off, err := s.offset(slot)

	if err != nil {
		return nil, nil, err
	}

	buf := make([]byte, s.Config.EncAlign())

	if err := s.Area.Read(off, buf); err != nil {
		return nil, nil, err
	}

	tlv := buf[:TLVSize]

	if isErased(tlv, s.Config.ErasedValue) {
		return nil, tlv, nil
	}

	key, err := u.Unwrap(tlv)

	return key, tlv, err
}

// DeriveSlotKey derives a KeySize raw key for the given slot from a
// master secret, the same HKDF-SHA256 construction the teacher uses
// to derive its DCP RAM key slots from a single root secret
// (internal/crypto/keyring.go's deriveKey). info distinguishes slot 0
// from slot 1 so the two never collide.
func DeriveSlotKey(secret []byte, slot int) ([]byte, error) {
	if slot != 0 && slot != 1 {
		return nil, ErrInvalidSlot
	}

	info := []byte{'e', 'n', 'c', byte(slot)}

	r := hkdf.New(sha256.New, secret, nil, info)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	return key, nil
}

func isErased(buf []byte, erased byte) bool {
	for _, b := range buf {
		if b != erased {
			return false
		}
	}

	return true
}
