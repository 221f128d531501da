/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package stm

import (
	"sync"
	"weak"

	"github.com/launix-de/NonLockingReadMap"
)

// meronymy is the process-wide weak part→whole side index (§4.7). It is
// shared across every Memory and goroutine without its own lock: the
// weakLog it's built on already serializes its own internal state, and
// registration is expected to happen while a part is still private to
// its constructing goroutine, before it escapes (§5 shared-resource
// policy).
var meronymy = newWeakLog()

// partsOf is the reverse of meronymy: whole cursor id -> its registered
// parts, weakly held so a part being garbage collected doesn't need its
// whole's entry explicitly cleaned up (§4.7, §8 S6's cascade needs to
// enumerate a whole's parts, which a part→whole-only index can't do).
var (
	partsMu sync.Mutex
	partsOf = map[uint64][]weak.Pointer[Cursor]{}
)

// PartOf registers part as belonging to whole. Re-registering the same
// part under the same (possibly already-collapsed) whole is a no-op;
// registering it under a different whole fails with ErrMeronymicError.
func PartOf(whole, part *Cursor) error {
	resolved := resolveWhole(whole)

	if existing, ok := meronymy.Get(part); ok {
		existingWhole := existing.Value.(*cursorCell).c
		if existingWhole == resolved {
			return nil
		}
		return &ErrMeronymicError{Part: part, Whole: resolved, Existing: existingWhole}
	}

	meronymy.Set(part, Live(&cursorCell{c: resolved}))
	registerPart(resolved, part)
	return nil
}

func registerPart(whole, part *Cursor) {
	partsMu.Lock()
	defer partsMu.Unlock()
	partsOf[whole.ID()] = append(partsOf[whole.ID()], weak.Make(part))
}

// Parts returns the cursors directly registered as parts of whole (the
// reverse of Whole), pruning any that have since been garbage collected.
func Parts(whole *Cursor) []*Cursor {
	partsMu.Lock()
	defer partsMu.Unlock()
	ptrs := partsOf[whole.ID()]
	out := make([]*Cursor, 0, len(ptrs))
	alive := ptrs[:0]
	for _, p := range ptrs {
		if c := p.Value(); c != nil {
			out = append(out, c)
			alive = append(alive, p)
		}
	}
	partsOf[whole.ID()] = alive
	return out
}

// Whole returns the cursor registered as part's whole, transitively
// collapsing chains (a whole may itself be a part), and false if part
// has no registered whole.
func Whole(part *Cursor) (*Cursor, bool) {
	s, ok := meronymy.Get(part)
	if !ok {
		return nil, false
	}
	return resolveWhole(s.Value.(*cursorCell).c), true
}

// Wholes looks up the whole of every cursor in parts, in order; an entry
// is nil where the corresponding part has none registered.
func Wholes(parts []*Cursor) []*Cursor {
	out := make([]*Cursor, len(parts))
	for i, p := range parts {
		if w, ok := Whole(p); ok {
			out[i] = w
		}
	}
	return out
}

// resolveWhole walks the part→whole chain to its fixed point, guarding
// against a cycle with a bitmap of the cursor ids visited so far rather
// than looping forever on a malformed registration.
func resolveWhole(start *Cursor) *Cursor {
	cur := start
	var guard NonLockingReadMap.NonBlockingBitMap
	for {
		id := uint32(cur.ID())
		if guard.Get(id) {
			return cur
		}
		guard.Set(id, true)

		next, ok := meronymy.Get(cur)
		if !ok {
			return cur
		}
		nc := next.Value.(*cursorCell).c
		if nc == cur {
			return cur
		}
		cur = nc
	}
}

// cursorCell wraps a *Cursor so it can be stored as a CellState.Value:
// the meronymy index is itself built on the same weakLog machinery as
// every other log, which stores Cells, not raw cursors.
type cursorCell struct{ c *Cursor }

func (c *cursorCell) Clone() Cell { return c }
