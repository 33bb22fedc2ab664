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

// Package selection holds the two row indirection structures that travel
// with a batch: Sel2 selects rows of a single batch with 16 bit indices,
// Sel4 selects (slot, row) pairs out of a working set of retained batches.
package selection

import (
	"fmt"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

const sel2EntrySize = 2

// Sel2 is an ordered list of row indices into one batch.  Duplicates are
// allowed.  A Sel2 either owns its index buffer (allocated from an mpool)
// or is a view over memory owned by somebody else.
type Sel2 struct {
	mp    *mpool.MPool
	data  []byte
	idx   []uint16
	owned bool
}

// NewSel2View wraps idx without taking ownership.
func NewSel2View(idx []uint16) *Sel2 {
	return &Sel2{idx: idx}
}

// NewSel2 allocates an empty, owned selection with room for capacity rows.
func NewSel2(mp *mpool.MPool, capacity int) (*Sel2, error) {
	s := &Sel2{mp: mp, owned: true}
	if capacity > 0 {
		data, err := mp.Alloc(capacity * sel2EntrySize)
		if err != nil {
			return nil, err
		}
		s.data = data
		s.idx = types.DecodeSlice[uint16](data)[:0]
	}
	return s, nil
}

func (s *Sel2) Len() int {
	return len(s.idx)
}

func (s *Sel2) Owned() bool {
	return s.owned
}

// IndexAt returns the physical row selected at position pos.
func (s *Sel2) IndexAt(pos int) (uint16, error) {
	if pos < 0 || pos >= len(s.idx) {
		return 0, moerr.NewIndexOutOfBoundsNoCtx(pos, len(s.idx))
	}
	return s.idx[pos], nil
}

// Indices returns the selected rows.  The slice aliases the selection and
// is only valid until the selection is modified or released.
func (s *Sel2) Indices() []uint16 {
	return s.idx
}

func (s *Sel2) grow(n int) error {
	if n <= cap(s.idx) {
		return nil
	}
	data, err := s.mp.Realloc(s.data, mpool.Grow(cap(s.idx), n)*sel2EntrySize)
	if err != nil {
		return err
	}
	length := len(s.idx)
	s.data = data[:cap(data)]
	s.idx = types.DecodeSlice[uint16](s.data)[:length]
	return nil
}

// Append adds a row to an owned selection.
func (s *Sel2) Append(row uint16) error {
	if !s.owned {
		return moerr.NewInvalidStateNoCtx("append to a selection view")
	}
	if err := s.grow(len(s.idx) + 1); err != nil {
		return err
	}
	s.idx = append(s.idx, row)
	return nil
}

func (s *Sel2) Set(pos int, row uint16) error {
	if pos < 0 || pos >= len(s.idx) {
		return moerr.NewIndexOutOfBoundsNoCtx(pos, len(s.idx))
	}
	s.idx[pos] = row
	return nil
}

// Reset empties the selection, keeping its buffer for reuse.
func (s *Sel2) Reset() {
	s.idx = s.idx[:0]
}

// Clone deep copies the index buffer into storage owned by the result.  The
// clone is unaffected by later mutation, reuse or release of s.
func (s *Sel2) Clone(mp *mpool.MPool) (*Sel2, error) {
	c, err := NewSel2(mp, len(s.idx))
	if err != nil {
		return nil, err
	}
	c.idx = append(c.idx, s.idx...)
	return c, nil
}

// Release frees the owned buffer.  It is a no-op on views and on a
// selection that was already released.
func (s *Sel2) Release() {
	if s.owned && s.data != nil {
		s.mp.Free(s.data)
	}
	s.data = nil
	s.idx = nil
}

func (s *Sel2) String() string {
	return fmt.Sprintf("sel2%v", s.idx)
}
