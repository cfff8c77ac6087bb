// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package flash

// Registry is a Driver backed by a fixed set of Fake areas, indexed by
// id. It is the in-memory stand-in for a real flash driver's open
// table, used by tests.
type Registry struct {
	areas map[int]*Fake
}

// NewRegistry builds a Registry from the given areas, keyed by their
// own ID().
func NewRegistry(areas ...*Fake) *Registry {
	r := &Registry{areas: make(map[int]*Fake, len(areas))}

	for _, a := range areas {
		r.areas[a.ID()] = a
	}

	return r
}

// Open returns the area registered under id. Each call resets the
// area's closed state, mirroring a real driver's fresh handle per
// open() call over the same underlying partition.
func (r *Registry) Open(id int) (Area, error) {
	a, ok := r.areas[id]

	if !ok {
		return nil, ErrNotFound
	}

	a.closed = false

	return a, nil
}
