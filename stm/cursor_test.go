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

import "testing"

// TestNewCursorIdentityIsUnique checks that distinct cursors never
// collide on id, even when created back to back.
func TestNewCursorIdentityIsUnique(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		c := NewCursor()
		if seen[c.ID()] {
			t.Fatalf("duplicate cursor id %d", c.ID())
		}
		seen[c.ID()] = true
	}
}

// TestStaticCursorFlag checks IsStatic distinguishes the two
// constructors.
func TestStaticCursorFlag(t *testing.T) {
	if NewCursor().IsStatic() {
		t.Fatal("NewCursor() must not be static")
	}
	if !NewStaticCursor().IsStatic() {
		t.Fatal("NewStaticCursor() must be static")
	}
}

// TestCloneCursorReturnsSameIdentity checks that a Cursor nested inside
// a Cell is never forked by Clone (§4.2): it is explicitly not
// deep-copyable.
func TestCloneCursorReturnsSameIdentity(t *testing.T) {
	c := NewCursor()
	if CloneCursor(c) != c {
		t.Fatal("CloneCursor must return the identical cursor")
	}
}
