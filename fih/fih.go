// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fih implements the fault-hardened equality primitive used by
// every security-critical comparison in the trailer core (magic
// classification, key material checks). A single glitched instruction
// on the return path must not be able to turn a mismatch into a match.
package fih

// Result is a multi-bit success/failure sentinel. The values are
// chosen so that a single-bit fault cannot flip one into the other.
type Result uint32

const (
	// Success is returned only when every byte of both buffers matched.
	Success Result = 0xa5a5a5a5
	// Failure is returned on any mismatch, or on a length mismatch.
	Failure Result = 0x55aaaa55
)

// Ok reports whether r is the success sentinel.
func (r Result) Ok() bool {
	return r == Success
}

// Corrupted reports whether r is neither Success nor Failure. Equal
// never returns such a value; seeing one means the sentinel itself
// was altered after the comparison completed (memory corruption, or a
// fault that landed on the return path rather than the comparison
// loop), a condition distinct from an ordinary mismatch.
func (r Result) Corrupted() bool {
	return r != Success && r != Failure
}

// Verify halts the program if r is Corrupted -- fault injection
// detected, per the distinct "fault-injection detected" error kind
// callers must not fold into an ordinary Bad/Failure classification.
// It returns r unchanged so it can be composed into the caller's
// existing control flow.
func Verify(r Result) Result {
	if r.Corrupted() {
		panic("fih: fault injection detected, sentinel corrupted")
	}

	return r
}

// Equal performs a byte-by-byte comparison of a and b.
//
// The loop accumulates the XOR of every byte pair and never branches
// on a partial result, so it always touches every byte regardless of
// where the buffers first differ: Success is reported only after the
// last byte pair has been folded into the accumulator. Early exit on
// *length* mismatch is permitted since that
// outcome is always Failure regardless of contents.
func Equal(a, b []byte) Result {
	if len(a) != len(b) {
		return Failure
	}

	diff := byte(0)

	for i := range a {
		diff |= a[i] ^ b[i]
	}

	if diff != 0 {
		return Failure
	}

	return Success
}
