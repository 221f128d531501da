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
	"strings"

	"github.com/docker/go-units"
	"github.com/google/btree"
)

// Diagnostics reports a human-readable snapshot of process memory and
// this root's committed cursor count, in the teacher's "stat" style.
func (m *Memory) Diagnostics() string {
	runtime.GC()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d cursors, Alloc = %s, Sys = %s, NumGC = %d",
		m.name, m.Len(), units.BytesSize(float64(ms.Alloc)), units.BytesSize(float64(ms.Sys)), ms.NumGC)
	return b.String()
}

// cursorItem orders cursors by id for the btree.BTree used by
// SortedCursors below.
type cursorItem struct{ c *Cursor }

func (a cursorItem) Less(than btree.Item) bool {
	return a.c.ID() < than.(cursorItem).c.ID()
}

// SortedCursors returns every cursor currently committed in m, ordered
// by id — useful for deterministic dumps and diffing two snapshots,
// neither of which the map-backed weakLog can give you directly.
func (m *Memory) SortedCursors() []*Cursor {
	tree := btree.New(32)
	m.mem.Each(func(c *Cursor, _ CellState) bool {
		tree.ReplaceOrInsert(cursorItem{c})
		return true
	})

	out := make([]*Cursor, 0, tree.Len())
	tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(cursorItem).c)
		return true
	})
	return out
}
