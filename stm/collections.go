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

import "fmt"

// cellEqual compares two Cells structurally rather than by identity,
// recursing into the container kinds this package defines, comparing
// StringCell and IntCell by value, and falling back to pointer equality
// for other opaque leaf cells. It backs the equality comparisons §4.6
// requires of the collection wrappers.
func cellEqual(a, b Cell) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case *StringCell:
		bv, ok := b.(*StringCell)
		if !ok || av == nil || bv == nil {
			return ok && av == bv
		}
		return av.Value == bv.Value
	case *IntCell:
		bv, ok := b.(*IntCell)
		if !ok || av == nil || bv == nil {
			return ok && av == bv
		}
		return av.Value == bv.Value
	case *AttributeCell:
		bv, ok := b.(*AttributeCell)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		if len(av.fields) != len(bv.fields) {
			return false
		}
		for k, v := range av.fields {
			bvv, ok := bv.fields[k]
			if !ok || !cellEqual(v, bvv) {
				return false
			}
		}
		return true
	case *ListCell:
		bv, ok := b.(*ListCell)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		if len(*av) != len(*bv) {
			return false
		}
		for i := range *av {
			if !cellEqual((*av)[i], (*bv)[i]) {
				return false
			}
		}
		return true
	case *DictCell:
		bv, ok := b.(*DictCell)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		if len(av.entries) != len(bv.entries) {
			return false
		}
		for k, v := range av.entries {
			bvv, ok := bv.entries[k]
			if !ok || !cellEqual(v, bvv) {
				return false
			}
		}
		return true
	case *SetCell:
		bv, ok := b.(*SetCell)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		if len(av.members) != len(bv.members) {
			return false
		}
		for k := range av.members {
			if _, ok := bv.members[k]; !ok {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// AttributeCell is a mapping from attribute name to value — the
// container an AttributeCursor reads and writes through.
type AttributeCell struct {
	fields map[string]Cell
}

func NewAttributeCell() *AttributeCell { return &AttributeCell{fields: make(map[string]Cell)} }

func (c *AttributeCell) Clone() Cell {
	out := make(map[string]Cell, len(c.fields))
	for k, v := range c.fields {
		out[k] = v.Clone()
	}
	return &AttributeCell{fields: out}
}

// AttributeCursor interprets its state as a mapping from attribute name
// to value, so property-style access is equivalent to keyed access
// (§4.6). Every read goes through Readable, every write through
// Writable; the raw state is never exposed.
type AttributeCursor struct{ *Cursor }

func NewAttributeCursor() *AttributeCursor { return &AttributeCursor{NewCursor()} }

func (a *AttributeCursor) cell() (*AttributeCell, error) {
	s, err := Readable(a.Cursor)
	if err != nil {
		return nil, err
	}
	if s.IsMissing() {
		return nil, nil
	}
	m, ok := s.Value.(*AttributeCell)
	if !ok {
		return nil, fmt.Errorf("stm: %v does not hold an AttributeCell", a.Cursor)
	}
	return m, nil
}

// Get returns the value of attribute name, or false if unset.
func (a *AttributeCursor) Get(name string) (Cell, bool, error) {
	m, err := a.cell()
	if err != nil || m == nil {
		return nil, false, err
	}
	v, ok := m.fields[name]
	return v, ok, nil
}

// Set writes attribute name, allocating a fresh AttributeCell on first
// write if the cursor has no state yet.
func (a *AttributeCursor) Set(name string, v Cell) error {
	s, err := Writable(a.Cursor)
	if err != nil {
		return err
	}
	m, ok := s.Value.(*AttributeCell)
	if !ok {
		m = NewAttributeCell()
		if err := WriteValue(a.Cursor, m); err != nil {
			return err
		}
	}
	m.fields[name] = v
	return nil
}

// DeleteAttr removes attribute name.
func (a *AttributeCursor) DeleteAttr(name string) error {
	s, err := Writable(a.Cursor)
	if err != nil {
		return err
	}
	if m, ok := s.Value.(*AttributeCell); ok {
		delete(m.fields, name)
	}
	return nil
}

// Keys returns the currently-set attribute names.
func (a *AttributeCursor) Keys() ([]string, error) {
	m, err := a.cell()
	if err != nil || m == nil {
		return nil, err
	}
	out := make([]string, 0, len(m.fields))
	for k := range m.fields {
		out = append(out, k)
	}
	return out, nil
}

// Equal compares two attribute cursors' readable states structurally.
func (a *AttributeCursor) Equal(other *AttributeCursor) bool {
	ma, _ := a.cell()
	mb, _ := other.cell()
	return cellEqual(ma, mb)
}

// DeepCopy allocates a fresh cursor holding a deep copy of this one's
// current readable state (§4.6).
func (a *AttributeCursor) DeepCopy() (*AttributeCursor, error) {
	m, err := a.cell()
	if err != nil {
		return nil, err
	}
	clone := NewAttributeCell()
	if m != nil {
		clone = m.Clone().(*AttributeCell)
	}
	nc := NewAttributeCursor()
	if err := Allocate(nc.Cursor, Live(clone)); err != nil {
		return nil, err
	}
	return nc, nil
}

// ListCell is the container a ListCursor reads and writes through.
type ListCell []Cell

func (c *ListCell) Clone() Cell {
	out := make(ListCell, len(*c))
	for i, v := range *c {
		out[i] = v.Clone()
	}
	return &out
}

// ListCursor wraps a list-valued cursor (§4.6).
type ListCursor struct{ *Cursor }

func NewListCursor() *ListCursor { return &ListCursor{NewCursor()} }

func (l *ListCursor) cell() (*ListCell, error) {
	s, err := Readable(l.Cursor)
	if err != nil {
		return nil, err
	}
	if s.IsMissing() {
		return nil, nil
	}
	c, ok := s.Value.(*ListCell)
	if !ok {
		return nil, fmt.Errorf("stm: %v does not hold a ListCell", l.Cursor)
	}
	return c, nil
}

func (l *ListCursor) writableCell() (*ListCell, error) {
	s, err := Writable(l.Cursor)
	if err != nil {
		return nil, err
	}
	c, ok := s.Value.(*ListCell)
	if !ok {
		fresh := make(ListCell, 0)
		c = &fresh
		if err := WriteValue(l.Cursor, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Len returns the list's current length.
func (l *ListCursor) Len() (int, error) {
	c, err := l.cell()
	if err != nil || c == nil {
		return 0, err
	}
	return len(*c), nil
}

// At returns the element at index i.
func (l *ListCursor) At(i int) (Cell, error) {
	c, err := l.cell()
	if err != nil {
		return nil, err
	}
	if c == nil || i < 0 || i >= len(*c) {
		return nil, fmt.Errorf("stm: list index %d out of range", i)
	}
	return (*c)[i], nil
}

// SetAt replaces the element at index i.
func (l *ListCursor) SetAt(i int, v Cell) error {
	c, err := l.writableCell()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(*c) {
		return fmt.Errorf("stm: list index %d out of range", i)
	}
	(*c)[i] = v
	return nil
}

// Append adds v to the end of the list.
func (l *ListCursor) Append(v Cell) error {
	c, err := l.writableCell()
	if err != nil {
		return err
	}
	*c = append(*c, v)
	return nil
}

// Slice returns a copy of the elements in [start, end).
func (l *ListCursor) Slice(start, end int) ([]Cell, error) {
	c, err := l.cell()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if start < 0 {
		start = 0
	}
	if end > len(*c) {
		end = len(*c)
	}
	if start >= end {
		return nil, nil
	}
	out := make([]Cell, end-start)
	copy(out, (*c)[start:end])
	return out, nil
}

// Equal compares two list cursors' readable states element-wise.
func (l *ListCursor) Equal(other *ListCursor) bool {
	ca, _ := l.cell()
	cb, _ := other.cell()
	return cellEqual(ca, cb)
}

// DictCell is the container a DictCursor reads and writes through, keyed
// by any comparable value.
type DictCell struct {
	entries map[any]Cell
}

func NewDictCell() *DictCell { return &DictCell{entries: make(map[any]Cell)} }

func (c *DictCell) Clone() Cell {
	out := make(map[any]Cell, len(c.entries))
	for k, v := range c.entries {
		out[k] = v.Clone()
	}
	return &DictCell{entries: out}
}

// DictCursor wraps a dict-valued cursor (§4.6).
type DictCursor struct{ *Cursor }

func NewDictCursor() *DictCursor { return &DictCursor{NewCursor()} }

func (d *DictCursor) cell() (*DictCell, error) {
	s, err := Readable(d.Cursor)
	if err != nil {
		return nil, err
	}
	if s.IsMissing() {
		return nil, nil
	}
	c, ok := s.Value.(*DictCell)
	if !ok {
		return nil, fmt.Errorf("stm: %v does not hold a DictCell", d.Cursor)
	}
	return c, nil
}

// Get returns the value stored at key, or false if unset.
func (d *DictCursor) Get(key any) (Cell, bool, error) {
	c, err := d.cell()
	if err != nil || c == nil {
		return nil, false, err
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

// Set writes key, allocating a fresh DictCell on first write.
func (d *DictCursor) Set(key any, v Cell) error {
	s, err := Writable(d.Cursor)
	if err != nil {
		return err
	}
	c, ok := s.Value.(*DictCell)
	if !ok {
		c = NewDictCell()
		if err := WriteValue(d.Cursor, c); err != nil {
			return err
		}
	}
	c.entries[key] = v
	return nil
}

// DeleteKey removes key.
func (d *DictCursor) DeleteKey(key any) error {
	s, err := Writable(d.Cursor)
	if err != nil {
		return err
	}
	if c, ok := s.Value.(*DictCell); ok {
		delete(c.entries, key)
	}
	return nil
}

// Keys returns the currently-set keys.
func (d *DictCursor) Keys() ([]any, error) {
	c, err := d.cell()
	if err != nil || c == nil {
		return nil, err
	}
	out := make([]any, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out, nil
}

// Equal compares two dict cursors' readable states structurally.
func (d *DictCursor) Equal(other *DictCursor) bool {
	ca, _ := d.cell()
	cb, _ := other.cell()
	return cellEqual(ca, cb)
}

// SetCell is the container a SetCursor reads and writes through.
type SetCell struct {
	members map[any]struct{}
}

func NewSetCell() *SetCell { return &SetCell{members: make(map[any]struct{})} }

func (c *SetCell) Clone() Cell {
	out := make(map[any]struct{}, len(c.members))
	for k := range c.members {
		out[k] = struct{}{}
	}
	return &SetCell{members: out}
}

// SetCursor wraps a set-valued cursor (§4.6).
type SetCursor struct{ *Cursor }

func NewSetCursor() *SetCursor { return &SetCursor{NewCursor()} }

func (s *SetCursor) cell() (*SetCell, error) {
	state, err := Readable(s.Cursor)
	if err != nil {
		return nil, err
	}
	if state.IsMissing() {
		return nil, nil
	}
	c, ok := state.Value.(*SetCell)
	if !ok {
		return nil, fmt.Errorf("stm: %v does not hold a SetCell", s.Cursor)
	}
	return c, nil
}

// Contains reports whether v is a member.
func (s *SetCursor) Contains(v any) (bool, error) {
	c, err := s.cell()
	if err != nil || c == nil {
		return false, err
	}
	_, ok := c.members[v]
	return ok, nil
}

// Add inserts v, allocating a fresh SetCell on first write.
func (s *SetCursor) Add(v any) error {
	state, err := Writable(s.Cursor)
	if err != nil {
		return err
	}
	c, ok := state.Value.(*SetCell)
	if !ok {
		c = NewSetCell()
		if err := WriteValue(s.Cursor, c); err != nil {
			return err
		}
	}
	c.members[v] = struct{}{}
	return nil
}

// Remove deletes v.
func (s *SetCursor) Remove(v any) error {
	state, err := Writable(s.Cursor)
	if err != nil {
		return err
	}
	if c, ok := state.Value.(*SetCell); ok {
		delete(c.members, v)
	}
	return nil
}

// Members returns the current set contents.
func (s *SetCursor) Members() ([]any, error) {
	c, err := s.cell()
	if err != nil || c == nil {
		return nil, err
	}
	out := make([]any, 0, len(c.members))
	for k := range c.members {
		out = append(out, k)
	}
	return out, nil
}

// Equal compares two set cursors' readable states structurally.
func (s *SetCursor) Equal(other *SetCursor) bool {
	ca, _ := s.cell()
	cb, _ := other.cell()
	return cellEqual(ca, cb)
}
