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
	"fmt"
)

// Conflict names one cursor that failed read or write verification during
// commit, along with the phase that rejected it.
type Conflict struct {
	Cursor *Cursor
	Phase  string // "read" or "write"
}

// ErrCannotCommit is returned by Memory.CommitChanges when the verifying
// transaction's read set or write set no longer matches the committed
// state. It is the only recoverable commit failure; Transactionally
// retries on it.
type ErrCannotCommit struct {
	Conflicts []Conflict
}

func (e *ErrCannotCommit) Error() string {
	return fmt.Sprintf("stm: cannot commit, %d conflicting cursor(s)", len(e.Conflicts))
}

// Sentinel errors, checked with errors.Is.
var (
	// ErrAbort is raised by Abort and swallowed only by Transaction.
	ErrAbort = errors.New("stm: transaction aborted")

	// ErrNeedsTransaction marks a transactional operation attempted with
	// no open transaction (the current journal is the root Memory).
	ErrNeedsTransaction = errors.New("stm: operation needs an open transaction")

	// ErrStaticCursor marks a write or delete attempted on a static cursor.
	ErrStaticCursor = errors.New("stm: cursor is static, read-only")

	// ErrFluidUnbound marks a read of the current-journal slot before it
	// was ever initialized.
	ErrFluidUnbound = errors.New("stm: current journal is unbound, call Initialize first")

	// ErrFluidRedefined marks a double Initialize of a non-root journal.
	ErrFluidRedefined = errors.New("stm: cannot reinitialize an active transaction")
)

// ErrMeronymicError marks that a part was registered with a different
// whole than previously recorded.
type ErrMeronymicError struct {
	Part, Whole, Existing *Cursor
}

func (e *ErrMeronymicError) Error() string {
	return fmt.Sprintf("stm: %v is already part of %v, not %v", e.Part, e.Existing, e.Whole)
}
