// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package flash

import (
	"fmt"
)

// Fake is an in-RAM Area, used by tests in place of a real flash
// driver (the host-side trailerctl tool uses File). It is not part of
// the production core; the core only ever depends on the Area
// interface.
type Fake struct {
	id      int
	off     uint32
	align   uint32
	erased  byte
	sectors []Sector
	buf     []byte
	closed  bool
}

// NewFake allocates a Fake area of the given id, absolute device
// offset, write alignment and sector table. The backing buffer is
// pre-filled with the erased value.
func NewFake(id int, offset, align uint32, erased byte, sectors []Sector) *Fake {
	var size uint32

	for _, s := range sectors {
		size += s.Size
	}

	buf := make([]byte, size)

	for i := range buf {
		buf[i] = erased
	}

	return &Fake{
		id:      id,
		off:     offset,
		align:   align,
		erased:  erased,
		sectors: sectors,
		buf:     buf,
	}
}

// Close marks the handle closed. Reuse of a closed Fake fails loudly
// rather than silently operating on stale state, which would mask a
// missing-Close bug in a caller.
func (f *Fake) Close() error {
	f.closed = true
	return nil
}

func (f *Fake) Read(offset uint32, out []byte) error {
	if f.closed {
		return ErrClosed
	}

	if err := checkAlign(offset, uint32(len(out)), f.align); err != nil {
		return err
	}

	end := offset + uint32(len(out))

	if end > uint32(len(f.buf)) {
		return ErrOutOfRange
	}

	copy(out, f.buf[offset:end])

	return nil
}

func (f *Fake) Write(offset uint32, in []byte) error {
	if f.closed {
		return ErrClosed
	}

	if err := checkAlign(offset, uint32(len(in)), f.align); err != nil {
		return err
	}

	end := offset + uint32(len(in))

	if end > uint32(len(f.buf)) {
		return ErrOutOfRange
	}

	copy(f.buf[offset:end], in)

	return nil
}

func (f *Fake) Erase(offset, length uint32) error {
	if f.closed {
		return ErrClosed
	}

	if err := checkAlign(offset, length, f.align); err != nil {
		return err
	}

	end := offset + length

	if end > uint32(len(f.buf)) {
		return ErrOutOfRange
	}

	for i := offset; i < end; i++ {
		f.buf[i] = f.erased
	}

	return nil
}

func (f *Fake) Size() uint32   { return uint32(len(f.buf)) }
func (f *Fake) Offset() uint32 { return f.off }
func (f *Fake) Align() uint32  { return f.align }
func (f *Fake) ID() int        { return f.id }

func (f *Fake) SectorCount() int {
	return len(f.sectors)
}

func (f *Fake) SectorAt(idx int) (Sector, error) {
	if idx < 0 || idx >= len(f.sectors) {
		return Sector{}, fmt.Errorf("%w: index %d", ErrNoSector, idx)
	}

	return f.sectors[idx], nil
}

func (f *Fake) SectorContaining(offset uint32) (Sector, error) {
	for _, s := range f.sectors {
		if offset >= s.Offset && offset < s.Offset+s.Size {
			return s, nil
		}
	}

	return Sector{}, fmt.Errorf("%w: offset %#x", ErrNoSector, offset)
}
