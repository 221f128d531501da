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

// StringCell is the simplest possible leaf Cell: a string value. Clone
// returns a new StringCell holding the same string, so the new state has
// its own identity and can be changed in place through its Value field
// without affecting the original; Go strings are immutable, so the string
// data itself is shared.
type StringCell struct{ Value string }

func NewStringCell(s string) *StringCell { return &StringCell{Value: s} }

func (c *StringCell) Clone() Cell { return &StringCell{Value: c.Value} }

func (c *StringCell) String() string { return c.Value }

// IntCell is the integer counterpart to StringCell.
type IntCell struct{ Value int64 }

func NewIntCell(v int64) *IntCell { return &IntCell{Value: v} }

func (c *IntCell) Clone() Cell { return &IntCell{Value: c.Value} }
