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

// TestPartOfRegistersAndResolves checks the basic part→whole index
// register/resolve pair the S6 cascade (TestSaveCascadesToPartsWithPendingWrite,
// in transaction_test.go) is built on.
func TestPartOfRegistersAndResolves(t *testing.T) {
	whole, part := NewCursor(), NewCursor()
	if err := PartOf(whole, part); err != nil {
		t.Fatal(err)
	}
	got, ok := Whole(part)
	if !ok {
		t.Fatal("expected part to have a registered whole")
	}
	if got != whole {
		t.Fatal("Whole(part) did not resolve to the registered whole")
	}
}

// TestPartOfReregisteringSameWholeIsNoOp checks that registering a part
// under the whole it already transitively resolves to does not error.
func TestPartOfReregisteringSameWholeIsNoOp(t *testing.T) {
	whole, part := NewCursor(), NewCursor()
	if err := PartOf(whole, part); err != nil {
		t.Fatal(err)
	}
	if err := PartOf(whole, part); err != nil {
		t.Fatalf("re-registering under the same whole should be a no-op, got %v", err)
	}
}

// TestPartOfConflictingWholeErrors checks that registering a part under
// a second, different whole fails with ErrMeronymicError.
func TestPartOfConflictingWholeErrors(t *testing.T) {
	wholeA, wholeB, part := NewCursor(), NewCursor(), NewCursor()
	if err := PartOf(wholeA, part); err != nil {
		t.Fatal(err)
	}
	err := PartOf(wholeB, part)
	if err == nil {
		t.Fatal("expected conflicting PartOf registration to fail")
	}
	if _, ok := err.(*ErrMeronymicError); !ok {
		t.Fatalf("got %T, want *ErrMeronymicError", err)
	}
}

// TestWholeTransitiveChainCollapses checks that a part registered under
// a whole that is itself a part resolves all the way to the top.
func TestWholeTransitiveChainCollapses(t *testing.T) {
	grandparent, parent, child := NewCursor(), NewCursor(), NewCursor()
	if err := PartOf(grandparent, parent); err != nil {
		t.Fatal(err)
	}
	if err := PartOf(parent, child); err != nil {
		t.Fatal(err)
	}
	got, ok := Whole(child)
	if !ok || got != grandparent {
		t.Fatalf("expected child to resolve transitively to grandparent, got %v, ok=%v", got, ok)
	}
}

// TestWholeUnregisteredReturnsFalse checks that a cursor with no
// registered whole reports false.
func TestWholeUnregisteredReturnsFalse(t *testing.T) {
	if _, ok := Whole(NewCursor()); ok {
		t.Fatal("expected an unregistered cursor to have no whole")
	}
}

// TestWholesLooksUpEachInOrder checks the batch helper preserves input
// order and leaves unregistered entries nil.
func TestWholesLooksUpEachInOrder(t *testing.T) {
	whole, registered, unregistered := NewCursor(), NewCursor(), NewCursor()
	if err := PartOf(whole, registered); err != nil {
		t.Fatal(err)
	}
	got := Wholes([]*Cursor{registered, unregistered})
	if got[0] != whole {
		t.Fatalf("got[0] = %v, want %v", got[0], whole)
	}
	if got[1] != nil {
		t.Fatalf("got[1] = %v, want nil", got[1])
	}
}

// TestPartsEnumeratesRegisteredParts checks the whole→parts reverse
// lookup Save's cascade relies on.
func TestPartsEnumeratesRegisteredParts(t *testing.T) {
	whole, p1, p2 := NewCursor(), NewCursor(), NewCursor()
	if err := PartOf(whole, p1); err != nil {
		t.Fatal(err)
	}
	if err := PartOf(whole, p2); err != nil {
		t.Fatal(err)
	}
	got := Parts(whole)
	if len(got) != 2 {
		t.Fatalf("got %d parts, want 2", len(got))
	}
	seen := map[*Cursor]bool{got[0]: true, got[1]: true}
	if !seen[p1] || !seen[p2] {
		t.Fatalf("got parts %v, want both %v and %v", got, p1, p2)
	}
}
