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

// Package stm implements an in-memory software transactional memory with
// nested transactions, optimistic concurrency control, weak-reference
// object tracking and an optional persistent backing store.
//
// A Cursor is an opaque transactional identity; its state lives in a
// Journal's logs, not on the cursor itself. Operations on a cursor are
// resolved against the goroutine's current Journal, which reads through to
// its source (a parent Journal, or the root Memory) and buffers writes
// locally until Commit propagates them.
package stm
