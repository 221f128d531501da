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
	"sync/atomic"
)

// cursorIDCounter hands out the stable integer identities logs key on.
// Arena-index style identity (Design Notes §9): it sidesteps needing
// pointer-equality tricks across weak/strong logs while still letting
// cursors be collected once nothing strong references them.
var cursorIDCounter uint64

// Cursor is an opaque transactional identity. It owns no state of its
// own — state is looked up by identity in whichever Journal resolves it.
// Cursors compare and hash by identity, never by the state they carry.
type Cursor struct {
	id     uint64
	static bool
}

// NewCursor returns a fresh cursor with a stable identity. It carries no
// state until Allocate places one for it in a journal.
func NewCursor() *Cursor {
	return &Cursor{id: atomic.AddUint64(&cursorIDCounter, 1)}
}

// NewStaticCursor returns a cursor for which Write and Delete always fail
// with ErrStaticCursor. Reads behave exactly like an ordinary cursor.
func NewStaticCursor() *Cursor {
	return &Cursor{id: atomic.AddUint64(&cursorIDCounter, 1), static: true}
}

// ID is the stable key logs use to index this cursor's state.
func (c *Cursor) ID() uint64 { return c.id }

// IsStatic reports whether writes/deletes to this cursor must fail.
func (c *Cursor) IsStatic() bool { return c.static }

func (c *Cursor) String() string {
	return fmt.Sprintf("<cursor %d>", c.id)
}

// CloneCursor is the deep-copy operation for a Cursor used as, or nested
// inside, a Cell. Per §4.2 a cursor is explicitly not deep-copyable:
// cloning returns the same cursor so that nested states referencing
// cursors never accidentally fork their identity.
func CloneCursor(c *Cursor) *Cursor { return c }
