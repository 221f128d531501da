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
	"errors"

	"github.com/jtolds/gls"
)

// CurrentJournal is whatever sits in the ambient "current journal" slot:
// either the root Memory itself (no transaction open) or an active
// *Journal. Both satisfy it.
type CurrentJournal interface {
	Source
	ReadUnsaved(c *Cursor) CellState
	Allocate(c *Cursor, state CellState) error
	Write(c *Cursor) (CellState, error)
	SetWritten(c *Cursor, s CellState) error
	Delete(c *Cursor) error
	SaveState(c *Cursor, force bool) bool
	RevertState(c *Cursor)
	Unsaved() []*Cursor
	Changed() []Change
	Read() []ReadEntry
	MakeJournal(name string) *Journal
	// Root returns the ultimate source this journal commits into — for a
	// root itself (Memory, PersistentMemory, ...), itself.
	Root() CurrentJournal
}

var (
	journalMgr = gls.NewContextManager()
	journalKey = journalKeyType{}
)

type journalKeyType struct{}

func currentJournal() CurrentJournal {
	v, ok := journalMgr.GetValue(journalKey)
	if !ok {
		return nil
	}
	j, ok := v.(CurrentJournal)
	if !ok {
		return nil
	}
	return j
}

// Initialize binds root (a *Memory or *PersistentMemory) as the current
// journal for the dynamic extent of fn (§4.5). It is the usual top-level
// entry point: a program, request handler or worker goroutine wraps its
// whole body in Initialize. It fails with ErrFluidRedefined if the
// calling goroutine already has an active (non-root) transaction bound —
// initializing over a live transaction is a programmer error, not a
// valid re-entry.
func Initialize(root CurrentJournal, fn func()) error {
	if cur := currentJournal(); cur != nil {
		if cur.Root() != cur {
			return ErrFluidRedefined
		}
	}
	journalMgr.SetValues(gls.Values{journalKey: root}, fn)
	return nil
}

// Transaction opens a nested transaction named "*nested*" under the
// current journal, with autocommit, and runs fn in its scope. It is
// shorthand for NamedTransaction("*nested*", true, fn).
func Transaction(fn func() error) error {
	return NamedTransaction("*nested*", true, fn)
}

// NamedTransaction makes a child journal of the current journal, installs
// it as current for the duration of fn, then on normal return saves every
// still-unsaved cursor and, if autocommit, commits the child into its
// parent (§4.5). Abort is swallowed (it signals a deliberate rollback,
// not a failure); any other error aborts the transaction and propagates.
//
// Saving on every exit rather than requiring an explicit Save() call
// mirrors the original's default autosave behavior, needed for plain
// "write, then let the block end" usage to actually commit anything.
func NamedTransaction(name string, autocommit bool, fn func() error) (err error) {
	parent := currentJournal()
	if parent == nil {
		return ErrFluidUnbound
	}
	if name == "" {
		name = "*nested*"
	}
	child := parent.MakeJournal(name)

	journalMgr.SetValues(gls.Values{journalKey: CurrentJournal(child)}, func() {
		err = fn()
	})

	if err != nil {
		if errors.Is(err, ErrAbort) {
			return nil
		}
		return err
	}

	for _, c := range child.Unsaved() {
		child.SaveState(c, false)
	}

	if autocommit {
		return parent.CommitChanges(child)
	}
	return nil
}

// Transactionally retries fn in a fresh transaction up to attempts times
// (default 3) as long as it fails with ErrCannotCommit, returning the
// last such error if every attempt conflicts. Any other error, or a nil
// result, returns immediately.
func Transactionally(attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 3
	}
	var last error
	for i := 0; i < attempts; i++ {
		err := Transaction(fn)
		if err == nil {
			return nil
		}
		var cc *ErrCannotCommit
		if !errors.As(err, &cc) {
			return err
		}
		last = err
	}
	return last
}

// Abort returns the sentinel that NamedTransaction recognizes as a
// deliberate, silent rollback rather than a failure.
func Abort() error { return ErrAbort }

// Allocate places a freshly created cursor's state in the current
// journal, reachable only from within that journal until it commits.
func Allocate(c *Cursor, state CellState) error {
	j := currentJournal()
	if j == nil {
		return ErrFluidUnbound
	}
	return j.Allocate(c, state)
}

// Readable returns the current journal's view of a cursor, honoring any
// of its own unsaved writes (§4.5 readable).
func Readable(c *Cursor) (CellState, error) {
	j := currentJournal()
	if j == nil {
		return CellState{}, ErrFluidUnbound
	}
	return j.ReadUnsaved(c), nil
}

// Writable returns a mutable state for c in the current journal,
// allocating a write-log entry for it if there isn't one already.
func Writable(c *Cursor) (CellState, error) {
	j := currentJournal()
	if j == nil {
		return CellState{}, ErrFluidUnbound
	}
	return j.Write(c)
}

// WriteValue replaces c's entire value in the current journal, as
// opposed to mutating the Cell a prior Writable(c) returned in place.
func WriteValue(c *Cursor, v Cell) error {
	j := currentJournal()
	if j == nil {
		return ErrFluidUnbound
	}
	return j.SetWritten(c, Live(v))
}

// Delete marks c for removal when the current journal commits.
func Delete(c *Cursor) error {
	j := currentJournal()
	if j == nil {
		return ErrFluidUnbound
	}
	return j.Delete(c)
}

// Save moves the given cursors' (or, if none given, every unsaved
// cursor's) pending write into the current journal's commit log.
// Saving a cursor cascades through the meronymy index: any of its
// registered parts (and their parts, transitively) are saved along with
// it, so a save of a whole also saves a pending write sitting on one of
// its parts (§4.7, §8 S6).
func Save(cursors ...*Cursor) error {
	j := currentJournal()
	if j == nil {
		return ErrFluidUnbound
	}
	if len(cursors) == 0 {
		cursors = j.Unsaved()
	}
	seen := make(map[uint64]bool, len(cursors))
	for _, c := range cursors {
		saveCascade(j, c, seen)
	}
	return nil
}

func saveCascade(j CurrentJournal, c *Cursor, seen map[uint64]bool) {
	if seen[c.ID()] {
		return
	}
	seen[c.ID()] = true
	j.SaveState(c, false)
	for _, part := range Parts(c) {
		saveCascade(j, part, seen)
	}
}

// Rollback discards the given cursors' (or, if none given, every unsaved
// cursor's) pending write without saving it.
func Rollback(cursors ...*Cursor) error {
	j := currentJournal()
	if j == nil {
		return ErrFluidUnbound
	}
	if len(cursors) == 0 {
		cursors = j.Unsaved()
	}
	for _, c := range cursors {
		j.RevertState(c)
	}
	return nil
}

// Commit saves every unsaved cursor and commits the current journal into
// its source directly, without waiting for its enclosing NamedTransaction
// call to return. It fails with ErrNeedsTransaction if the current
// journal is the root memory itself (there is nothing to commit).
func Commit() error {
	j := currentJournal()
	if j == nil {
		return ErrFluidUnbound
	}
	active, ok := j.(*Journal)
	if !ok {
		return ErrNeedsTransaction
	}
	for _, c := range active.Unsaved() {
		active.SaveState(c, false)
	}
	return active.Source().CommitChanges(active)
}

// Saved returns the cursors in the current journal's commit log.
func Saved() ([]*Cursor, error) {
	j := currentJournal()
	if j == nil {
		return nil, ErrFluidUnbound
	}
	changed := j.Changed()
	out := make([]*Cursor, len(changed))
	for i, ch := range changed {
		out[i] = ch.Cursor
	}
	return out, nil
}

// Unsaved returns the cursors in the current journal's write log that
// haven't yet been saved to its commit log.
func Unsaved() ([]*Cursor, error) {
	j := currentJournal()
	if j == nil {
		return nil, ErrFluidUnbound
	}
	return j.Unsaved(), nil
}

// CurrentMemory returns the root the current journal ultimately commits
// into — a *Memory, or a *PersistentMemory if the transaction stack was
// built on one.
func CurrentMemory() (CurrentJournal, error) {
	j := currentJournal()
	if j == nil {
		return nil, ErrFluidUnbound
	}
	return j.Root(), nil
}

// Fork runs fn in a new goroutine, inheriting the calling goroutine's
// current-journal binding redirected to its root memory: a journal may
// not be shared across goroutines, so a fork out of an active (non-root)
// transaction starts the child goroutine fresh against that transaction's
// memory rather than handing it the in-progress journal (§5, Design
// Notes §9; ported from the original's Thread-start monkeypatch in
// fluid.py, which localizes every fluid cell to the new thread via
// acquire_memory instead of copying its bound value verbatim).
func Fork(fn func()) error {
	cur := currentJournal()
	if cur == nil {
		return ErrFluidUnbound
	}
	root := cur.Root()
	if root == nil {
		return ErrFluidUnbound
	}
	gls.Go(func() {
		journalMgr.SetValues(gls.Values{journalKey: root}, fn)
	})
	return nil
}
