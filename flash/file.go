// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package flash

import (
	"os"
)

// File is an Area backed by a flat file on disk, used by trailerctl
// to replay the status locator and layout tooling against files
// captured from a real device (e.g. via JTAG or a block-device dump),
// the way the teacher's ota.Check opens a staged update file directly
// rather than going through a live MMC handle.
type File struct {
	id      int
	align   uint32
	erased  byte
	sectors []Sector
	f       *os.File
	closed  bool
}

// OpenFile opens path read/write as Area id, with the given alignment,
// erased-byte value and sector table. The file must already be at
// least as large as the sum of the sector table.
func OpenFile(id int, path string, align uint32, erased byte, sectors []Sector) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)

	if err != nil {
		return nil, err
	}

	return &File{id: id, align: align, erased: erased, sectors: sectors, f: f}, nil
}

func (a *File) Close() error {
	a.closed = true
	return a.f.Close()
}

func (a *File) Read(offset uint32, out []byte) error {
	if a.closed {
		return ErrClosed
	}

	if err := checkAlign(offset, uint32(len(out)), a.align); err != nil {
		return err
	}

	_, err := a.f.ReadAt(out, int64(offset))

	return err
}

func (a *File) Write(offset uint32, in []byte) error {
	if a.closed {
		return ErrClosed
	}

	if err := checkAlign(offset, uint32(len(in)), a.align); err != nil {
		return err
	}

	_, err := a.f.WriteAt(in, int64(offset))

	return err
}

func (a *File) Erase(offset, length uint32) error {
	if a.closed {
		return ErrClosed
	}

	if err := checkAlign(offset, length, a.align); err != nil {
		return err
	}

	blank := make([]byte, length)

	for i := range blank {
		blank[i] = a.erased
	}

	_, err := a.f.WriteAt(blank, int64(offset))

	return err
}

func (a *File) Size() uint32 {
	var size uint32

	for _, s := range a.sectors {
		size += s.Size
	}

	return size
}

func (a *File) Offset() uint32 { return 0 }
func (a *File) Align() uint32  { return a.align }
func (a *File) ID() int        { return a.id }

func (a *File) SectorCount() int {
	return len(a.sectors)
}

func (a *File) SectorAt(idx int) (Sector, error) {
	if idx < 0 || idx >= len(a.sectors) {
		return Sector{}, ErrNoSector
	}

	return a.sectors[idx], nil
}

func (a *File) SectorContaining(offset uint32) (Sector, error) {
	for _, s := range a.sectors {
		if offset >= s.Offset && offset < s.Offset+s.Size {
			return s, nil
		}
	}

	return Sector{}, ErrNoSector
}
