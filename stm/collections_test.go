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

// withMemory runs body inside a fresh Memory and transaction, failing
// the test on any error body or the transaction machinery returns.
func withMemory(t *testing.T, body func() error) {
	t.Helper()
	mem := NewMemory("", true, true)
	err := Initialize(mem, func() {
		if err := Transaction(body); err != nil {
			t.Fatalf("transaction failed: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
}

// TestAttributeCursorSetOnFirstWriteAllocatesContainer checks that
// setting an attribute on a cursor with no prior state allocates a
// fresh AttributeCell, rather than silently dropping the write (the
// lost-write bug a by-value CellState mutation would cause).
func TestAttributeCursorSetOnFirstWriteAllocatesContainer(t *testing.T) {
	withMemory(t, func() error {
		a := NewAttributeCursor()
		if err := Allocate(a.Cursor, Inserted); err != nil {
			return err
		}
		if err := a.Set("name", NewStringCell("alice")); err != nil {
			return err
		}
		v, ok, err := a.Get("name")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected attribute to be set")
		}
		if got := v.(*StringCell).Value; got != "alice" {
			t.Fatalf("got %q, want %q", got, "alice")
		}
		return nil
	})
}

// TestAttributeCursorDeleteAttrRemovesKey checks deletion and that Keys
// reflects it.
func TestAttributeCursorDeleteAttrRemovesKey(t *testing.T) {
	withMemory(t, func() error {
		a := NewAttributeCursor()
		Allocate(a.Cursor, Inserted)
		a.Set("x", NewIntCell(1))
		a.Set("y", NewIntCell(2))
		if err := a.DeleteAttr("x"); err != nil {
			return err
		}
		keys, err := a.Keys()
		if err != nil {
			return err
		}
		if len(keys) != 1 || keys[0] != "y" {
			t.Fatalf("got keys %v, want [y]", keys)
		}
		return nil
	})
}

// TestListCursorAppendOnFirstWriteAllocatesContainer mirrors the
// AttributeCursor case for lists.
func TestListCursorAppendOnFirstWriteAllocatesContainer(t *testing.T) {
	withMemory(t, func() error {
		l := NewListCursor()
		Allocate(l.Cursor, Inserted)
		if err := l.Append(NewIntCell(1)); err != nil {
			return err
		}
		if err := l.Append(NewIntCell(2)); err != nil {
			return err
		}
		n, err := l.Len()
		if err != nil {
			return err
		}
		if n != 2 {
			t.Fatalf("got Len()=%d, want 2", n)
		}
		v, err := l.At(1)
		if err != nil {
			return err
		}
		if got := v.(*IntCell).Value; got != 2 {
			t.Fatalf("got %d, want 2", got)
		}
		return nil
	})
}

// TestListCursorSetAtAndSlice checks in-place replacement and slicing.
func TestListCursorSetAtAndSlice(t *testing.T) {
	withMemory(t, func() error {
		l := NewListCursor()
		Allocate(l.Cursor, Inserted)
		for i := 0; i < 5; i++ {
			l.Append(NewIntCell(int64(i)))
		}
		if err := l.SetAt(2, NewIntCell(99)); err != nil {
			return err
		}
		got, err := l.Slice(1, 4)
		if err != nil {
			return err
		}
		want := []int64{1, 99, 3}
		for i, v := range got {
			if v.(*IntCell).Value != want[i] {
				t.Fatalf("slice[%d] = %d, want %d", i, v.(*IntCell).Value, want[i])
			}
		}
		return nil
	})
}

// TestDictCursorSetGetDelete checks the dict wrapper's basic operations
// with a non-string key.
func TestDictCursorSetGetDelete(t *testing.T) {
	withMemory(t, func() error {
		d := NewDictCursor()
		Allocate(d.Cursor, Inserted)
		if err := d.Set(42, NewStringCell("answer")); err != nil {
			return err
		}
		v, ok, err := d.Get(42)
		if err != nil {
			return err
		}
		if !ok || v.(*StringCell).Value != "answer" {
			t.Fatalf("got %v, %v, want (answer, true)", v, ok)
		}
		if err := d.DeleteKey(42); err != nil {
			return err
		}
		_, ok, err = d.Get(42)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected key to be gone after DeleteKey")
		}
		return nil
	})
}

// TestSetCursorAddContainsRemove checks the set wrapper's basic
// operations.
func TestSetCursorAddContainsRemove(t *testing.T) {
	withMemory(t, func() error {
		s := NewSetCursor()
		Allocate(s.Cursor, Inserted)
		if err := s.Add("a"); err != nil {
			return err
		}
		if err := s.Add("b"); err != nil {
			return err
		}
		ok, err := s.Contains("a")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected set to contain 'a'")
		}
		if err := s.Remove("a"); err != nil {
			return err
		}
		ok, err = s.Contains("a")
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected 'a' to be removed")
		}
		members, err := s.Members()
		if err != nil {
			return err
		}
		if len(members) != 1 || members[0] != "b" {
			t.Fatalf("got members %v, want [b]", members)
		}
		return nil
	})
}

// TestAttributeCursorDeepCopyIsIndependent checks that DeepCopy produces
// a cursor whose subsequent mutation doesn't affect the original.
func TestAttributeCursorDeepCopyIsIndependent(t *testing.T) {
	withMemory(t, func() error {
		a := NewAttributeCursor()
		Allocate(a.Cursor, Inserted)
		a.Set("k", NewStringCell("orig"))

		clone, err := a.DeepCopy()
		if err != nil {
			return err
		}
		if err := clone.Set("k", NewStringCell("changed")); err != nil {
			return err
		}

		v, _, err := a.Get("k")
		if err != nil {
			return err
		}
		if got := v.(*StringCell).Value; got != "orig" {
			t.Fatalf("original mutated via its deep copy: got %q, want %q", got, "orig")
		}
		return nil
	})
}

// TestCollectionCursorsEqualStructurally checks that Equal compares
// contents rather than cursor identity.
func TestCollectionCursorsEqualStructurally(t *testing.T) {
	withMemory(t, func() error {
		a1 := NewAttributeCursor()
		Allocate(a1.Cursor, Inserted)
		a1.Set("k", NewStringCell("v"))

		a2 := NewAttributeCursor()
		Allocate(a2.Cursor, Inserted)
		a2.Set("k", NewStringCell("v"))

		if !a1.Equal(a2) {
			t.Fatal("expected structurally identical attribute cursors to be Equal")
		}

		a2.Set("k", NewStringCell("different"))
		if a1.Equal(a2) {
			t.Fatal("expected cursors with different contents to not be Equal")
		}
		return nil
	})
}
