// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package magic encodes and decodes the 16-byte trailer magic that is
// the sole authority for trailer validity: a trailer is trusted iff
// its magic decodes to Good.
package magic

import "github.com/usbarmory/armory-trailer/fih"

// Size is the length in bytes of the trailer magic pattern.
const Size = 16

// Classification is the result of decoding a magic value.
type Classification int

const (
	// Bad means the bytes are present but do not match the pattern.
	Bad Classification = iota
	// Unset means every byte equals the flash erased value.
	Unset
	// Good means the bytes match the pattern exactly.
	Good
	// Any is a wildcard used by lookup predicates, never returned by
	// Decode.
	Any
)

// pattern is the fixed 16-byte trailer magic. Its value is
// domain-defined and shared by every image in a given deployment.
var pattern = [Size]byte{
	0x77, 0xc2, 0x95, 0xf3,
	0x60, 0xd2, 0xef, 0x7f,
	0x35, 0x52, 0x50, 0x0f,
	0x2c, 0xb6, 0x79, 0x80,
}

// Encode returns the fixed trailer magic pattern.
func Encode() [Size]byte {
	return pattern
}

// Decode classifies buf, which must be exactly Size bytes, as Good,
// Unset or Bad. erased is the flash's erased-value byte (typically
// 0xff).
//
// The Good comparison is fault-hardened: it always visits every byte
// (see package fih), so a single fault cannot make a bad magic
// classify as Good. The comparator's result sentinel is itself
// verified before use: a corrupted sentinel is fault injection
// detected (§7), a distinct condition from an ordinary non-matching
// magic, and halts rather than falling through to Bad.
func Decode(buf []byte, erased byte) Classification {
	if len(buf) != Size {
		return Bad
	}

	if fih.Verify(fih.Equal(buf, pattern[:])).Ok() {
		return Good
	}

	if isErased(buf, erased) {
		return Unset
	}

	return Bad
}

func isErased(buf []byte, erased byte) bool {
	for _, b := range buf {
		if b != erased {
			return false
		}
	}

	return true
}

// Matches reports whether got satisfies want, where want may be Any
// (always true) or a concrete classification (exact match required).
func Matches(want, got Classification) bool {
	return want == Any || want == got
}
