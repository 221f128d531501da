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

// Source is what a Journal reads through to and commits into: either a
// parent Journal, or the root Memory. Both implement it.
type Source interface {
	// Begin is called (at most once per activation) by a child journal
	// the first time it needs to read or write through this source.
	Begin(child *Journal)
	// ReadSaved returns the current committed-as-far-as-source state for
	// a cursor, or the StateInserted sentinel if this source has never
	// seen it.
	ReadSaved(c *Cursor) CellState
	// CommitChanges propagates a child journal's commit log into this
	// source. Called only by Commit (§4.5); never call it directly on a
	// journal that isn't actually a child of this source.
	CommitChanges(child *Journal) error
	// Name is a diagnostic label, not an identity.
	Name() string
}

// ReadEntry is one (cursor, state-as-observed-at-source) pair from a
// journal's read log.
type ReadEntry struct {
	Cursor *Cursor
	State  CellState
}

// Change is one (cursor, orig, state) triple from a journal's commit log:
// orig is the state recorded in the read log when this cursor was first
// read through this journal (or Inserted if it never was), state is what
// ended up in the commit log.
type Change struct {
	Cursor *Cursor
	Orig   CellState
	State  CellState
}

// Journal is a per-transaction working set: a read log, write log and
// commit log, plus the link to the source it reads through and commits
// into (§3, §4.4). It is not safe for concurrent use — a journal belongs
// to exactly one goroutine for the lifetime of its transaction (§5).
type Journal struct {
	name   string
	source Source

	readLog   *strongLog
	writeLog  *strongLog
	commitLog *strongLog

	begun bool
}

// NewJournal creates a new journal sourced from parent. It aggressively
// notifies its source right away (rather than on first read/write) so
// insert-only or delete-only transactions still register as active.
func NewJournal(name string, source Source) *Journal {
	j := &Journal{
		name:      name,
		source:    source,
		readLog:   newStrongLog(),
		writeLog:  newStrongLog(),
		commitLog: newStrongLog(),
	}
	j.ensureActive()
	return j
}

func (j *Journal) Name() string   { return j.name }
func (j *Journal) Source() Source { return j.source }

func (j *Journal) String() string { return j.name }

// Begin implements Source for journals nested under this one: being
// asked to begin just means this journal itself must be active too.
func (j *Journal) Begin(child *Journal) {
	j.ensureActive()
}

// Committed marks this journal inactive; the next read or write
// re-notifies its source. Re-entry into active state after Committed is
// expected when a transaction is retried (§4.4).
func (j *Journal) Committed() {
	j.begun = false
}

func (j *Journal) ensureActive() {
	if !j.begun {
		j.source.Begin(j)
		j.begun = true
	}
}

// MakeJournal returns a new child journal sourced from this one.
func (j *Journal) MakeJournal(name string) *Journal {
	return NewJournal(name, j)
}

// Allocate places a freshly created cursor's state directly in the
// commit log: the cursor exists from this journal's own point of view
// immediately, but is invisible to the source until this journal commits.
func (j *Journal) Allocate(c *Cursor, state CellState) error {
	return j.commitLog.Allocate(c, state)
}

// ReadUnsaved returns the write log's pending value for c if any,
// otherwise falls back to ReadSaved.
func (j *Journal) ReadUnsaved(c *Cursor) CellState {
	if s, ok := j.writeLog.Get(c); ok {
		return s
	}
	return j.ReadSaved(c)
}

// ReadSaved returns the commit log's value for c if any, otherwise reads
// through source (caching the result in the read log so later reads, and
// commit-time verification, see a consistent witness).
func (j *Journal) ReadSaved(c *Cursor) CellState {
	if s, ok := j.commitLog.Get(c); ok {
		return s
	}
	return j.readThroughSource(c)
}

func (j *Journal) readThroughSource(c *Cursor) CellState {
	if s, ok := j.readLog.Get(c); ok {
		return s
	}
	j.ensureActive()
	s := j.source.ReadSaved(c)
	j.readLog.Set(c, s)
	return s
}

// Write returns a mutable state for c: the existing write-log entry if
// there is one, otherwise a deep copy of ReadSaved(c) that is recorded in
// the write log and returned. Static cursors always fail.
func (j *Journal) Write(c *Cursor) (CellState, error) {
	if s, ok := j.writeLog.Get(c); ok {
		return s, nil
	}
	if c.IsStatic() {
		return CellState{}, ErrStaticCursor
	}
	s := j.ReadSaved(c).Clone()
	j.writeLog.Set(c, s)
	return s, nil
}

// SetWritten replaces c's entire write-log entry with s, after first
// ensuring one exists (so a later Unsaved()/SaveState() sees it).
// Mutating the Cell a prior Write(c) returned in place is the normal,
// zero-allocation way to change a cursor's value (§4.4); SetWritten is
// for the less common case of swapping in an entirely different value
// or kind (e.g. turning a live cursor into Deleted is Delete, but
// swapping one live Cell for an unrelated one goes through here).
func (j *Journal) SetWritten(c *Cursor, s CellState) error {
	if c.IsStatic() {
		return ErrStaticCursor
	}
	if _, err := j.Write(c); err != nil {
		return err
	}
	j.writeLog.Set(c, s)
	return nil
}

// Delete records the Deleted sentinel in the write log. Static cursors
// always fail.
func (j *Journal) Delete(c *Cursor) error {
	if c.IsStatic() {
		return ErrStaticCursor
	}
	j.writeLog.Set(c, Deleted)
	return nil
}

// SaveState moves c's pending write into the commit log (deep-copying it
// again so the commit log never aliases the write log), returning
// whether anything moved. With force=true and no pending write, the
// current saved state is copied into the commit log anyway — unless that
// state is itself Deleted, in which case there is nothing meaningful to
// carry forward and SaveState is a no-op (§9 Open Questions).
func (j *Journal) SaveState(c *Cursor, force bool) bool {
	if s, ok := j.writeLog.Pop(c); ok {
		j.commitLog.Set(c, s.Clone())
		return true
	}
	if !force {
		return false
	}
	current := j.ReadSaved(c)
	if current.Kind == StateDeleted {
		return false
	}
	j.commitLog.Set(c, current.Clone())
	return true
}

// RevertState drops any pending write for c without saving it.
func (j *Journal) RevertState(c *Cursor) {
	j.writeLog.Delete(c)
}

// CommitChanges absorbs a child journal's commit log into this journal's
// own commit log. Conflict detection is skipped: a journal-to-journal
// commit is single-threaded by construction, unlike a commit into Memory.
func (j *Journal) CommitChanges(child *Journal) error {
	for _, ch := range child.Changed() {
		j.commitLog.Set(ch.Cursor, ch.State.Clone())
	}
	child.Committed()
	return nil
}

// Unsaved iterates the cursors with a write-log entry whose state differs
// (by identity, not value) from what is currently saved for that cursor.
func (j *Journal) Unsaved() []*Cursor {
	var out []*Cursor
	j.writeLog.Each(func(c *Cursor, s CellState) bool {
		current := j.ReadSaved(c)
		if !sameState(current, s) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Changed iterates the commit log as (cursor, orig, state) triples, where
// orig is whatever this journal's read log recorded for the cursor (or
// Inserted if it was never read through this journal).
func (j *Journal) Changed() []Change {
	out := make([]Change, 0, j.commitLog.Len())
	j.commitLog.Each(func(c *Cursor, s CellState) bool {
		orig, ok := j.readLog.Get(c)
		if !ok {
			orig = Inserted
		}
		out = append(out, Change{Cursor: c, Orig: orig, State: s})
		return true
	})
	return out
}

// Read iterates the read log's (cursor, state-observed-at-source) pairs.
func (j *Journal) Read() []ReadEntry {
	out := make([]ReadEntry, 0, j.readLog.Len())
	j.readLog.Each(func(c *Cursor, s CellState) bool {
		out = append(out, ReadEntry{Cursor: c, State: s})
		return true
	})
	return out
}

// Root walks source pointers up to the owning root (§4.5
// current_memory): the first source in the chain that is not itself a
// *Journal — ordinarily a *Memory, but a *PersistentMemory is just as
// valid a root.
func (j *Journal) Root() CurrentJournal {
	var s Source = j.source
	for {
		parent, ok := s.(*Journal)
		if !ok {
			root, _ := s.(CurrentJournal)
			return root
		}
		s = parent.source
	}
}
