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
	"fmt"
	"testing"
)

// stringSerializer is a minimal Serializer for StringCell, enough to
// exercise PersistentMemory's store round-trip without pulling in a
// general-purpose encoding for every test.
type stringSerializer struct{}

func (stringSerializer) Kind(Cell) string { return "str" }

func (stringSerializer) Encode(c Cell) ([]byte, error) {
	return []byte(c.(*StringCell).Value), nil
}

func (stringSerializer) Decode(kind string, data []byte) (Cell, error) {
	if kind != "str" {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return NewStringCell(string(data)), nil
}

func newTestPersistentMemory(t *testing.T) *PersistentMemory {
	t.Helper()
	store, err := NewFileStorage(t.TempDir(), LZ4Codec{})
	if err != nil {
		t.Fatal(err)
	}
	return NewPersistentMemory("", true, true, store, stringSerializer{})
}

// TestPersistentMemoryRoundTripsThroughStore is scenario S8: a value
// written to a persistent cursor survives being forgotten in-process and
// reloaded by id from the backing store.
func TestPersistentMemoryRoundTripsThroughStore(t *testing.T) {
	pm := newTestPersistentMemory(t)

	c, err := pm.NewPersistentCursor(NewStringCell("hello"))
	if err != nil {
		t.Fatal(err)
	}
	id, ok := pm.PersistentID(c)
	if !ok {
		t.Fatal("expected a freshly created persistent cursor to have an id")
	}

	// Simulate forgetting the in-process cache: Expire drops c's state,
	// so the cursor Fetch returns for the id (c itself while it is still
	// alive, otherwise a new one) must load its state from the store.
	pm.Expire(c)

	fetched, err := pm.Fetch(id)
	if err != nil {
		t.Fatal(err)
	}
	s := pm.ReadSaved(fetched)
	if s.IsMissing() {
		t.Fatal("expected fetched cursor to have state loaded from the store")
	}
	if got := s.Value.(*StringCell).Value; got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

// TestPersistentMemoryCommitMirrorsToStore checks that a committed write
// through the ambient transaction API against a PersistentMemory root is
// mirrored into the backing store, not just the in-process log.
func TestPersistentMemoryCommitMirrorsToStore(t *testing.T) {
	pm := newTestPersistentMemory(t)

	c, err := pm.NewPersistentCursor(NewStringCell("v1"))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := pm.PersistentID(c)

	err = Initialize(pm, func() {
		if err := Transaction(func() error {
			return WriteValue(c, NewStringCell("v2"))
		}); err != nil {
			t.Fatal(err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	r, found, err := pm.store.Read(id)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected the store to have an entry for the committed cursor")
	}
	r.Close()
}

// TestPersistentMemoryDelayedDoesNotLoad checks that Delayed returns a
// usable cursor identity without touching the store, for cycle-safe
// decoding of values that reference each other by id.
func TestPersistentMemoryDelayedDoesNotLoad(t *testing.T) {
	pm := newTestPersistentMemory(t)

	c1 := pm.Delayed("some-id-never-written")
	c2 := pm.Delayed("some-id-never-written")
	if c1 != c2 {
		t.Fatal("expected Delayed to return the same cursor for the same id across calls")
	}
}
