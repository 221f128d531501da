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

import "sync"

// Memory is the root of a transaction stack: the shared, committed state
// plus the single mutex that orders commits against each other (§4.3,
// §5). It has no source of its own.
type Memory struct {
	name string

	writeLock sync.Mutex
	mem       *weakLog

	// CheckRead/CheckWrite gate the optimistic verification passes.
	// Disabling CheckWrite alone does not give "last writer wins": every
	// Write records the state it copied in the journal's read log, so the
	// read-set pass still rejects a stale writer. Only disabling both lets
	// a stale writer overwrite, trading all safety for throughput.
	CheckRead  bool
	CheckWrite bool

	// onCommit, if set by Attach, is notified with the number of applied
	// changes after every successful commit.
	onCommit func(n int)
}

// NewMemory creates a root memory. checkRead and checkWrite enable the
// read-set and write-set verification passes on commit; there is no
// default, pass true for both to get full verification.
func NewMemory(name string, checkRead, checkWrite bool) *Memory {
	if name == "" {
		name = "*memory*"
	}
	return &Memory{
		name:       name,
		mem:        newWeakLog(),
		CheckRead:  checkRead,
		CheckWrite: checkWrite,
	}
}

func (m *Memory) Name() string   { return m.name }
func (m *Memory) String() string { return m.name }

// Root returns m itself: a Memory is always its own root (§4.5 current_memory).
func (m *Memory) Root() CurrentJournal { return m }

// Begin is a no-op: the root memory has nothing to lazily activate.
func (m *Memory) Begin(child *Journal) {}

// MakeJournal returns a fresh top-level journal sourced from this memory.
func (m *Memory) MakeJournal(name string) *Journal {
	return NewJournal(name, m)
}

// ReadUnsaved on the root memory is just ReadSaved: there is no write log
// to shadow it with at this level.
func (m *Memory) ReadUnsaved(c *Cursor) CellState { return m.ReadSaved(c) }

// Write, Delete, SaveState, RevertState, Unsaved, Changed and Read all
// require an open transaction (§7 NeedsTransaction): the root memory has
// no write log of its own to operate on. Allocate is the one exception —
// it is a real, working operation used for bootstrapping state outside of
// any transaction.
func (m *Memory) Write(c *Cursor) (CellState, error)      { return CellState{}, ErrNeedsTransaction }
func (m *Memory) SetWritten(c *Cursor, s CellState) error { return ErrNeedsTransaction }
func (m *Memory) Delete(c *Cursor) error                  { return ErrNeedsTransaction }

func (m *Memory) SaveState(c *Cursor, force bool) bool { panic(ErrNeedsTransaction) }
func (m *Memory) RevertState(c *Cursor)                { panic(ErrNeedsTransaction) }
func (m *Memory) Unsaved() []*Cursor                   { panic(ErrNeedsTransaction) }
func (m *Memory) Changed() []Change                    { panic(ErrNeedsTransaction) }
func (m *Memory) Read() []ReadEntry                    { panic(ErrNeedsTransaction) }

// Contains reports whether cursor currently has committed state.
func (m *Memory) Contains(c *Cursor) bool {
	return m.mem.Contains(c)
}

// Allocate inserts cursor directly into the root's committed state. It is
// a programmer error to allocate into Memory outside of bootstrapping —
// ordinary code allocates through a transaction's journal instead.
func (m *Memory) Allocate(c *Cursor, state CellState) error {
	return m.mem.Allocate(c, state)
}

// ReadSaved returns cursor's committed state, or the Inserted sentinel if
// it has never been allocated (or has been deleted).
func (m *Memory) ReadSaved(c *Cursor) CellState {
	if s, ok := m.mem.Get(c); ok {
		return s
	}
	return Inserted
}

// CommitChanges verifies and applies a child journal's commit log. The
// write lock is held for the entire verify-then-apply sequence so no
// other transaction can observe a partially applied commit (§4.3, §5).
func (m *Memory) CommitChanges(child *Journal) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	if m.CheckRead {
		if conflicts := m.verifyRead(child.Read()); len(conflicts) > 0 {
			return &ErrCannotCommit{Conflicts: conflicts}
		}
	}

	changed := child.Changed()
	var good []Change
	if m.CheckWrite {
		var conflicts []Conflict
		good, conflicts = m.verifyWrite(changed)
		if len(conflicts) > 0 {
			return &ErrCannotCommit{Conflicts: conflicts}
		}
	} else {
		good = changed
	}

	for _, ch := range good {
		if ch.State.Kind == StateDeleted {
			m.mem.Delete(ch.Cursor)
		} else {
			m.mem.Set(ch.Cursor, ch.State)
		}
	}

	child.Committed()
	if m.onCommit != nil {
		m.onCommit(len(good))
	}
	return nil
}

// verifyRead requires that every cursor the child read still carries
// exactly the state it was read as (by identity). Any disagreement is a
// conflict; all are collected before failing.
func (m *Memory) verifyRead(read []ReadEntry) []Conflict {
	var conflicts []Conflict
	for _, r := range read {
		current, ok := m.mem.Get(r.Cursor)
		if !ok {
			current = Inserted
		}
		if !sameState(current, r.State) {
			conflicts = append(conflicts, Conflict{Cursor: r.Cursor, Phase: "read"})
		}
	}
	return conflicts
}

// verifyWrite partitions the child's changes into those whose original
// observed state still matches what's currently committed (good) and
// those that have since been superseded by another commit (bad).
func (m *Memory) verifyWrite(changed []Change) (good []Change, conflicts []Conflict) {
	for _, ch := range changed {
		current, ok := m.mem.Get(ch.Cursor)
		if !ok {
			current = Inserted
		}
		if sameState(current, ch.Orig) {
			good = append(good, ch)
		} else {
			conflicts = append(conflicts, Conflict{Cursor: ch.Cursor, Phase: "write"})
		}
	}
	return good, conflicts
}

// Expire removes cursor from the committed state outright, bypassing the
// journal/commit protocol. Intended for test teardown and administrative
// cleanup, not transactional code.
func (m *Memory) Expire(c *Cursor) {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	m.mem.Delete(c)
}

// Clear empties the committed state entirely (§4 Supplemented features,
// ported from the original's memory.expire_all()).
func (m *Memory) Clear() {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	m.mem.Clear()
}

// Len reports how many cursors currently have committed state.
func (m *Memory) Len() int { return m.mem.Len() }
