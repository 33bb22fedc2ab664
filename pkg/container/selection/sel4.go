// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package selection

import (
	"bytes"
	"fmt"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

const sel4EntrySize = 4

// Pack encodes a (slot, row) pair, slot in the upper 16 bits.
func Pack(slot, row uint16) uint32 {
	return uint32(slot)<<16 | uint32(row)
}

func Unpack(v uint32) (slot, row uint16) {
	return uint16(v >> 16), uint16(v)
}

// Sel4 is an ordered list of packed (slot, row) pairs addressing a working
// set of retained batches.  Only the window [start, start+length) is
// visible to readers; Next pages the window through the entries.
//
// The slots are not owned by the selection.  Whoever reads a Sel4 must keep
// the referenced working set batches alive for as long as it is used.
type Sel4 struct {
	mp       *mpool.MPool
	data     []byte
	entries  []uint32
	start    int
	length   int
	windowed bool
	owned    bool
}

// NewSel4View wraps entries without taking ownership, the window covers
// every entry.
func NewSel4View(entries []uint32) *Sel4 {
	return &Sel4{entries: entries, length: len(entries)}
}

func NewSel4(mp *mpool.MPool, capacity int) (*Sel4, error) {
	s := &Sel4{mp: mp, owned: true}
	if capacity > 0 {
		data, err := mp.Alloc(capacity * sel4EntrySize)
		if err != nil {
			return nil, err
		}
		s.data = data
		s.entries = types.DecodeSlice[uint32](data)[:0]
	}
	return s, nil
}

// Len returns the number of entries in the current window.
func (s *Sel4) Len() int {
	return s.length
}

// Total returns the number of entries, visible or not.
func (s *Sel4) Total() int {
	return len(s.entries)
}

func (s *Sel4) Owned() bool {
	return s.owned
}

func (s *Sel4) grow(n int) error {
	if n <= cap(s.entries) {
		return nil
	}
	data, err := s.mp.Realloc(s.data, mpool.Grow(cap(s.entries), n)*sel4EntrySize)
	if err != nil {
		return err
	}
	length := len(s.entries)
	s.data = data[:cap(data)]
	s.entries = types.DecodeSlice[uint32](s.data)[:length]
	return nil
}

// Append adds an entry to an owned selection.  Until a window is set the
// window covers every entry.
func (s *Sel4) Append(slot, row uint16) error {
	if !s.owned {
		return moerr.NewInvalidStateNoCtx("append to a selection view")
	}
	if err := s.grow(len(s.entries) + 1); err != nil {
		return err
	}
	s.entries = append(s.entries, Pack(slot, row))
	if !s.windowed {
		s.length = len(s.entries)
	}
	return nil
}

// Set overwrites the entry at pos of the current window.
func (s *Sel4) Set(pos int, slot, row uint16) error {
	if pos < 0 || pos >= s.length {
		return moerr.NewIndexOutOfBoundsNoCtx(pos, s.length)
	}
	s.entries[s.start+pos] = Pack(slot, row)
	return nil
}

// SetWindow makes [start, start+length) the visible window.
func (s *Sel4) SetWindow(start, length int) error {
	if start < 0 || length < 0 || start+length > len(s.entries) {
		return moerr.NewIndexOutOfBoundsNoCtx(start+length, len(s.entries))
	}
	s.start, s.length, s.windowed = start, length, true
	return nil
}

// Next moves the window to the following batchSize entries.  It returns
// false, leaving the window untouched, once every entry was visited or
// when batchSize is not positive.
func (s *Sel4) Next(batchSize int) bool {
	if batchSize <= 0 {
		return false
	}
	newStart := s.start + s.length
	if newStart >= len(s.entries) {
		return false
	}
	s.start = newStart
	s.length = batchSize
	if rest := len(s.entries) - newStart; rest < batchSize {
		s.length = rest
	}
	s.windowed = true
	return true
}

// SlotRowAt returns the (slot, row) pair at position pos of the window.
func (s *Sel4) SlotRowAt(pos int) (slot, row uint16, err error) {
	if pos < 0 || pos >= s.length {
		return 0, 0, moerr.NewIndexOutOfBoundsNoCtx(pos, s.length)
	}
	slot, row = Unpack(s.entries[s.start+pos])
	return slot, row, nil
}

// SnapshotCurrent copies the current window into a new selection that owns
// its index storage.  The referenced working set batches are not retained,
// the caller must keep them alive while the snapshot is used.
func (s *Sel4) SnapshotCurrent(mp *mpool.MPool) (*Sel4, error) {
	c, err := NewSel4(mp, s.length)
	if err != nil {
		return nil, err
	}
	c.entries = append(c.entries, s.entries[s.start:s.start+s.length]...)
	c.length = s.length
	return c, nil
}

// Release frees the index storage, never the referenced batches.  It is
// idempotent.
func (s *Sel4) Release() {
	if s.owned && s.data != nil {
		s.mp.Free(s.data)
	}
	s.data = nil
	s.entries = nil
	s.start, s.length = 0, 0
}

func (s *Sel4) String() string {
	var buf bytes.Buffer
	buf.WriteString("sel4[")
	for i := 0; i < s.length; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		slot, row := Unpack(s.entries[s.start+i])
		buf.WriteString(fmt.Sprintf("%d:%d", slot, row))
	}
	buf.WriteByte(']')
	return buf.String()
}
