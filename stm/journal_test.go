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

// TestJournalAllocateVisibleOnlyBeforeCommit checks that an allocated
// cursor is readable through the allocating journal but not through its
// source until CommitChanges runs.
func TestJournalAllocateVisibleOnlyBeforeCommit(t *testing.T) {
	mem := NewMemory("", true, true)
	j := mem.MakeJournal("j")
	c := NewCursor()

	if err := j.Allocate(c, Live(NewStringCell("hi"))); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if s := j.ReadUnsaved(c); s.IsMissing() {
		t.Fatal("expected cursor visible through its own journal")
	}
	if s := mem.ReadSaved(c); !s.IsMissing() {
		t.Fatal("expected cursor invisible through Memory before commit")
	}

	if err := mem.CommitChanges(j); err != nil {
		t.Fatalf("CommitChanges: %v", err)
	}
	s := mem.ReadSaved(c)
	if s.IsMissing() {
		t.Fatal("expected cursor visible through Memory after commit")
	}
	if got := s.Value.(*StringCell).Value; got != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}

// TestJournalWriteCopiesNotAliases checks that Write returns an
// independent clone, not the same pointer ReadSaved would return.
func TestJournalWriteCopiesNotAliases(t *testing.T) {
	mem := NewMemory("", true, true)
	c := NewCursor()
	root := mem.MakeJournal("root")
	if err := root.Allocate(c, Live(NewStringCell("orig"))); err != nil {
		t.Fatal(err)
	}
	if err := mem.CommitChanges(root); err != nil {
		t.Fatal(err)
	}

	j := mem.MakeJournal("j")
	saved := j.ReadSaved(c)
	written, err := j.Write(c)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Value == written.Value {
		t.Fatal("Write must return a clone, not alias the saved state")
	}
}

// TestJournalStaticCursorRejectsWrite checks that a static cursor cannot
// be written or deleted through a journal.
func TestJournalStaticCursorRejectsWrite(t *testing.T) {
	mem := NewMemory("", true, true)
	j := mem.MakeJournal("j")
	c := NewStaticCursor()

	if _, err := j.Write(c); err != ErrStaticCursor {
		t.Fatalf("Write on static cursor: got %v, want ErrStaticCursor", err)
	}
	if err := j.Delete(c); err != ErrStaticCursor {
		t.Fatalf("Delete on static cursor: got %v, want ErrStaticCursor", err)
	}
}

// TestJournalSaveStateMovesWriteToCommit checks the write-log -> commit-log
// handoff and that Unsaved reflects only genuinely pending writes.
func TestJournalSaveStateMovesWriteToCommit(t *testing.T) {
	mem := NewMemory("", true, true)
	root := mem.MakeJournal("root")
	c := NewCursor()
	if err := root.Allocate(c, Live(NewIntCell(1))); err != nil {
		t.Fatal(err)
	}
	if err := mem.CommitChanges(root); err != nil {
		t.Fatal(err)
	}

	j := mem.MakeJournal("j")
	if _, err := j.Write(c); err != nil {
		t.Fatal(err)
	}
	if unsaved := j.Unsaved(); len(unsaved) != 1 {
		t.Fatalf("expected 1 unsaved cursor, got %d", len(unsaved))
	}
	if !j.SaveState(c, false) {
		t.Fatal("expected SaveState to report it moved something")
	}
	if unsaved := j.Unsaved(); len(unsaved) != 0 {
		t.Fatalf("expected 0 unsaved cursors after SaveState, got %d", len(unsaved))
	}
	if changed := j.Changed(); len(changed) != 1 {
		t.Fatalf("expected 1 changed cursor, got %d", len(changed))
	}
}

// TestJournalRootWalksNestedChain checks that Root skips through any
// number of nested journals to the owning Memory.
func TestJournalRootWalksNestedChain(t *testing.T) {
	mem := NewMemory("", true, true)
	j1 := mem.MakeJournal("j1")
	j2 := j1.MakeJournal("j2")
	j3 := j2.MakeJournal("j3")

	if j3.Root() != CurrentJournal(mem) {
		t.Fatal("expected Root() of a nested journal chain to be the owning Memory")
	}
}

// TestJournalSetWrittenOverwritesWithoutAliasingExisting checks that
// SetWritten replaces the write-log value outright even if a prior Write
// already populated an entry.
func TestJournalSetWrittenOverwritesWithoutAliasingExisting(t *testing.T) {
	mem := NewMemory("", true, true)
	root := mem.MakeJournal("root")
	c := NewCursor()
	if err := root.Allocate(c, Live(NewStringCell("a"))); err != nil {
		t.Fatal(err)
	}
	if err := mem.CommitChanges(root); err != nil {
		t.Fatal(err)
	}

	j := mem.MakeJournal("j")
	if _, err := j.Write(c); err != nil {
		t.Fatal(err)
	}
	if err := j.SetWritten(c, Live(NewStringCell("b"))); err != nil {
		t.Fatal(err)
	}
	s := j.ReadUnsaved(c)
	if got := s.Value.(*StringCell).Value; got != "b" {
		t.Fatalf("got %q, want %q", got, "b")
	}
}
