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
	"bytes"
	"io"
	"runtime"
	"sync"
	"weak"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Serializer turns a Cell into bytes and back for storage through a
// PersistenceEngine. stm ships no default: a PersistentMemory's caller
// knows its own Cell types and registers how to (de)serialize them.
type Serializer interface {
	Encode(Cell) ([]byte, error)
	Decode(kind string, data []byte) (Cell, error)
	// Kind names the wire type tag to store alongside an encoded value,
	// so Decode knows which concrete Cell to reconstruct.
	Kind(Cell) string
}

// PersistentMemory is a Memory backed by an external key-value store
// (§4.8): reads that miss the in-process log fall through to the store,
// and every commit that touches a cursor with a persistent id is mirrored
// there too.
type PersistentMemory struct {
	*Memory

	store      PersistenceEngine
	serializer Serializer

	mu          sync.Mutex
	pcursors    map[string]weak.Pointer[Cursor]
	idByCursor  map[uint64]string
	watchCancel func()
}

// NewPersistentMemory wraps store behind a root memory. checkRead and
// checkWrite behave as in NewMemory.
func NewPersistentMemory(name string, checkRead, checkWrite bool, store PersistenceEngine, ser Serializer) *PersistentMemory {
	return &PersistentMemory{
		Memory:     NewMemory(name, checkRead, checkWrite),
		store:      store,
		serializer: ser,
		pcursors:   make(map[string]weak.Pointer[Cursor]),
		idByCursor: make(map[uint64]string),
	}
}

// Root and MakeJournal must be overridden rather than inherited: the
// promoted Memory methods would install the embedded *Memory as a
// journal's source, silently bypassing every override below (Go method
// promotion does not dispatch dynamically through the outer type).
func (pm *PersistentMemory) Root() CurrentJournal             { return pm }
func (pm *PersistentMemory) MakeJournal(name string) *Journal { return NewJournal(name, pm) }
func (pm *PersistentMemory) Begin(child *Journal)              {}

// ReadUnsaved must also be overridden: the promoted Memory.ReadUnsaved
// would call the embedded Memory's ReadSaved directly, bypassing the
// lazy-load override below for the same reason as Root/MakeJournal.
func (pm *PersistentMemory) ReadUnsaved(c *Cursor) CellState { return pm.ReadSaved(c) }

// PersistentID returns the stable external id for c, and whether it has
// one at all (ordinary, non-persistent cursors don't).
func (pm *PersistentMemory) PersistentID(c *Cursor) (string, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	id, ok := pm.idByCursor[c.ID()]
	return id, ok
}

// Delayed returns a cursor for persistent id without loading its state
// from the store — for cycle-safe deserialization, where a value being
// decoded may reference another value (by id) that's still mid-decode.
func (pm *PersistentMemory) Delayed(id string) *Cursor {
	id = norm.NFC.String(id)

	pm.mu.Lock()
	defer pm.mu.Unlock()
	if ptr, ok := pm.pcursors[id]; ok {
		if c := ptr.Value(); c != nil {
			return c
		}
	}
	c := NewCursor()
	pm.registerLocked(id, c)
	return c
}

// Fetch returns the cursor for persistent id, loading its state from the
// store on first access. Held under the write lock so two goroutines
// racing to fetch the same id can't both load it (§4.8).
func (pm *PersistentMemory) Fetch(id string) (*Cursor, error) {
	id = norm.NFC.String(id)

	pm.writeLock.Lock()
	defer pm.writeLock.Unlock()

	pm.mu.Lock()
	if ptr, ok := pm.pcursors[id]; ok {
		if c := ptr.Value(); c != nil {
			pm.mu.Unlock()
			return c, nil
		}
	}
	pm.mu.Unlock()

	c := NewCursor()
	if err := pm.load(c, id); err != nil {
		return nil, err
	}
	pm.mu.Lock()
	pm.registerLocked(id, c)
	pm.mu.Unlock()
	return c, nil
}

func (pm *PersistentMemory) registerLocked(id string, c *Cursor) {
	pm.pcursors[id] = weak.Make(c)
	pm.idByCursor[c.ID()] = id
	runtime.AddCleanup(c, pm.forget, id)
}

func (pm *PersistentMemory) forget(id string) {
	pm.mu.Lock()
	delete(pm.pcursors, id)
	pm.mu.Unlock()
}

// NewPersistentCursor allocates a fresh cursor, assigns it a random UUID
// persistent id, and stores initial as its live state.
func (pm *PersistentMemory) NewPersistentCursor(initial Cell) (*Cursor, error) {
	id := uuid.NewString()
	c := NewCursor()
	pm.mu.Lock()
	pm.registerLocked(id, c)
	pm.mu.Unlock()
	if err := pm.mem.Allocate(c, Live(initial)); err != nil {
		return nil, err
	}
	return c, pm.writeOne(c, id, Live(initial))
}

// ReadSaved overrides Memory.ReadSaved: a miss in the in-process log is
// lazily loaded from the store (if the cursor has a persistent id)
// before falling back to Inserted.
func (pm *PersistentMemory) ReadSaved(c *Cursor) CellState {
	if s, ok := pm.mem.Get(c); ok {
		return s
	}
	id, hasID := pm.PersistentID(c)
	if !hasID {
		return Inserted
	}
	if err := pm.load(c, id); err != nil {
		return Inserted
	}
	if s, ok := pm.mem.Get(c); ok {
		return s
	}
	return Inserted
}

func (pm *PersistentMemory) load(c *Cursor, id string) error {
	r, found, err := pm.store.Read(id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	defer r.Close()

	kindAndData, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	kind, data, ok := splitKind(kindAndData)
	if !ok {
		return nil
	}
	cell, err := pm.serializer.Decode(kind, data)
	if err != nil {
		return err
	}
	return pm.mem.Allocate(c, Live(cell))
}

// CommitChanges verifies and applies exactly as Memory.CommitChanges,
// then mirrors every change that touched a persistent cursor to the
// store (§4.8 write_changes): delete on StateDeleted, otherwise encode
// and write. The store writes happen after the in-process apply, still
// under the write lock, so commits reach the store in the order they were
// applied. ReadSaved does not take the write lock, so a reader can see
// the in-process state before the store has it; a store error is
// returned after the in-process state has already been applied.
func (pm *PersistentMemory) CommitChanges(child *Journal) error {
	pm.writeLock.Lock()
	defer pm.writeLock.Unlock()

	if pm.CheckRead {
		if conflicts := pm.verifyRead(child.Read()); len(conflicts) > 0 {
			return &ErrCannotCommit{Conflicts: conflicts}
		}
	}

	changed := child.Changed()
	var good []Change
	if pm.CheckWrite {
		var conflicts []Conflict
		good, conflicts = pm.verifyWrite(changed)
		if len(conflicts) > 0 {
			return &ErrCannotCommit{Conflicts: conflicts}
		}
	} else {
		good = changed
	}

	for _, ch := range good {
		if ch.State.Kind == StateDeleted {
			pm.mem.Delete(ch.Cursor)
		} else {
			pm.mem.Set(ch.Cursor, ch.State)
		}
	}
	child.Committed()
	if pm.onCommit != nil {
		pm.onCommit(len(good))
	}

	for _, ch := range good {
		id, ok := pm.PersistentID(ch.Cursor)
		if !ok {
			continue
		}
		if ch.State.Kind == StateDeleted {
			if err := pm.store.Remove(id); err != nil {
				return err
			}
			continue
		}
		if err := pm.writeOne(ch.Cursor, id, ch.State); err != nil {
			return err
		}
	}
	return nil
}

func (pm *PersistentMemory) writeOne(c *Cursor, id string, s CellState) error {
	data, err := pm.serializer.Encode(s.Value)
	if err != nil {
		return err
	}
	kind := pm.serializer.Kind(s.Value)
	return pm.store.Write(id, bytes.NewReader(joinKind(kind, data)))
}

// WatchExternal starts reacting to store-side changes made by another
// process: the next ReadSaved for a touched id re-loads from the store
// instead of trusting the in-process cache. Call the returned stop
// function to end it.
func (pm *PersistentMemory) WatchExternal() (func(), error) {
	changed, stop, err := pm.store.Watch()
	if err != nil {
		return nil, err
	}
	if changed == nil {
		return stop, nil
	}
	go func() {
		for id := range changed {
			pm.mu.Lock()
			ptr, ok := pm.pcursors[id]
			pm.mu.Unlock()
			if !ok {
				continue
			}
			if c := ptr.Value(); c != nil {
				pm.mem.Delete(c)
			}
		}
	}()
	pm.watchCancel = stop
	return stop, nil
}

// kind/data are joined with a single newline: kinds are short ASCII
// type tags, never containing one.
func joinKind(kind string, data []byte) []byte {
	out := make([]byte, 0, len(kind)+1+len(data))
	out = append(out, kind...)
	out = append(out, '\n')
	out = append(out, data...)
	return out
}

func splitKind(buf []byte) (kind string, data []byte, ok bool) {
	for i, b := range buf {
		if b == '\n' {
			return string(buf[:i]), buf[i+1:], true
		}
	}
	return "", nil, false
}
