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

//go:generate go tool stringer -type=StateKind

// Cell is the value a cursor's state is made of: an arbitrary mutable
// value with a well-defined deep copy (Design Notes §9). Implementations
// must be backed by a pointer (e.g. *AttributeCell, not AttributeCell) — conflict
// detection compares CellState values with ==, which for an interface
// holding a pointer dynamic type compares addresses, giving exactly the
// reference-identity semantics the optimistic read-witness needs.
type Cell interface {
	Clone() Cell
}

// StateKind distinguishes a live value from the two sentinel markers.
type StateKind uint8

const (
	// StateLive means Value holds the cursor's real state.
	StateLive StateKind = iota
	// StateInserted means the cursor is newly allocated with no parent state.
	StateInserted
	// StateDeleted means the cursor is marked for removal on commit.
	StateDeleted
)

// CellState is the tagged variant stored in every log: Present(value) |
// Inserted | Deleted (Design Notes §9), replacing sentinel objects
// compared by pointer identity with an explicit sum type.
type CellState struct {
	Kind  StateKind
	Value Cell
}

// Live wraps a value as a present, readable state.
func Live(v Cell) CellState { return CellState{Kind: StateLive, Value: v} }

// Inserted is the state of a cursor freshly allocated in a journal, with
// no state yet observable at its source.
var Inserted = CellState{Kind: StateInserted}

// Deleted marks a cursor for removal when its journal commits.
var Deleted = CellState{Kind: StateDeleted}

// IsMissing reports whether this state represents "no value here" from a
// reader's point of view — true for both Inserted and Deleted.
func (s CellState) IsMissing() bool { return s.Kind != StateLive }

// Clone deep-copies a live state; Inserted/Deleted are already immutable
// sentinels and clone to themselves.
func (s CellState) Clone() CellState {
	if s.Kind == StateLive {
		return CellState{Kind: StateLive, Value: s.Value.Clone()}
	}
	return s
}

// sameState is the identity comparison §4.3's conflict detection and
// §4.4's unsaved() rely on: two states are "the same" iff they carry the
// same sentinel kind, or both are Live and reference the identical Cell
// pointer. It never compares live values structurally.
func sameState(a, b CellState) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind != StateLive {
		return true
	}
	return a.Value == b.Value
}
