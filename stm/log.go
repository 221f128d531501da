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
	"runtime"
	"sync"
	"weak"
)

// Log is a mapping from cursor identity to state, keyed by Cursor.ID().
// strongLog is not safe for concurrent use. weakLog guards its map with a
// mutex, since the garbage collector's cleanup callbacks remove its
// entries out from under its owner (§4.1).
type Log interface {
	Get(c *Cursor) (CellState, bool)
	Set(c *Cursor, s CellState)
	Delete(c *Cursor)
	Contains(c *Cursor) bool
	Allocate(c *Cursor, s CellState) error
	Pop(c *Cursor) (CellState, bool)
	Clear()
	Each(fn func(*Cursor, CellState) bool)
	Len() int
}

// strongLog keeps its cursors alive for as long as the log exists. Used
// for a Journal's read/write/commit logs, which live no longer than the
// transaction itself.
type strongLog struct {
	entries map[uint64]strongEntry
}

type strongEntry struct {
	cursor *Cursor
	state  CellState
}

func newStrongLog() *strongLog {
	return &strongLog{entries: make(map[uint64]strongEntry)}
}

func (l *strongLog) Get(c *Cursor) (CellState, bool) {
	e, ok := l.entries[c.ID()]
	return e.state, ok
}

func (l *strongLog) Set(c *Cursor, s CellState) {
	l.entries[c.ID()] = strongEntry{cursor: c, state: s}
}

func (l *strongLog) Delete(c *Cursor) {
	delete(l.entries, c.ID())
}

func (l *strongLog) Contains(c *Cursor) bool {
	_, ok := l.entries[c.ID()]
	return ok
}

func (l *strongLog) Allocate(c *Cursor, s CellState) error {
	if l.Contains(c) {
		return fmt.Errorf("stm: %v is already allocated in this log", c)
	}
	l.Set(c, s)
	return nil
}

func (l *strongLog) Pop(c *Cursor) (CellState, bool) {
	e, ok := l.entries[c.ID()]
	if ok {
		delete(l.entries, c.ID())
	}
	return e.state, ok
}

func (l *strongLog) Clear() {
	l.entries = make(map[uint64]strongEntry)
}

func (l *strongLog) Len() int { return len(l.entries) }

func (l *strongLog) Each(fn func(*Cursor, CellState) bool) {
	for _, e := range l.entries {
		if !fn(e.cursor, e.state) {
			return
		}
	}
}

// weakLog does not keep its cursors alive. It is used by the root Memory
// and the meronymy index, both of which must let cursors be garbage
// collected once no transaction holds a strong reference to them. It is
// built on weak.Pointer and runtime.AddCleanup: once a cursor is
// collected, its entry is dropped from the map by the cleanup callback
// without the log needing to be touched by its owner.
type weakLog struct {
	mu      sync.Mutex
	entries map[uint64]weakEntry
}

type weakEntry struct {
	ptr   weak.Pointer[Cursor]
	state CellState
}

func newWeakLog() *weakLog {
	return &weakLog{entries: make(map[uint64]weakEntry)}
}

func (l *weakLog) Get(c *Cursor) (CellState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[c.ID()]
	if !ok {
		return CellState{}, false
	}
	return e.state, true
}

func (l *weakLog) Set(c *Cursor, s CellState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := c.ID()
	if _, exists := l.entries[id]; !exists {
		runtime.AddCleanup(c, l.evict, id)
	}
	l.entries[id] = weakEntry{ptr: weak.Make(c), state: s}
}

// evict runs after the cursor with the given id has been collected. It
// must not retain the cursor itself.
func (l *weakLog) evict(id uint64) {
	l.mu.Lock()
	delete(l.entries, id)
	l.mu.Unlock()
}

func (l *weakLog) Delete(c *Cursor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, c.ID())
}

func (l *weakLog) Contains(c *Cursor) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[c.ID()]
	return ok
}

func (l *weakLog) Allocate(c *Cursor, s CellState) error {
	if l.Contains(c) {
		return fmt.Errorf("stm: %v is already allocated in this log", c)
	}
	l.Set(c, s)
	return nil
}

func (l *weakLog) Pop(c *Cursor) (CellState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[c.ID()]
	if ok {
		delete(l.entries, c.ID())
	}
	return e.state, ok
}

func (l *weakLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[uint64]weakEntry)
}

func (l *weakLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Each iterates a snapshot of the entries, skipping any cursor collected
// either before the snapshot or between the snapshot and the callback.
func (l *weakLog) Each(fn func(*Cursor, CellState) bool) {
	l.mu.Lock()
	snapshot := make([]weakEntry, 0, len(l.entries))
	for _, e := range l.entries {
		snapshot = append(snapshot, e)
	}
	l.mu.Unlock()

	for _, e := range snapshot {
		if cur := e.ptr.Value(); cur != nil {
			if !fn(cur, e.state) {
				return
			}
		}
	}
}
