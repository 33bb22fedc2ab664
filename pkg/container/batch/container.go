// Copyright 2021 Matrix Origin
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

package batch

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
)

type entry struct {
	id  FieldID
	vec *vector.Vector
}

// reserveEntries allocates the bookkeeping of a transfer destination.  It
// runs before any vector moves so that a failure leaves the source intact.
var reserveEntries = func(n int) ([]entry, map[FieldID]int, error) {
	return make([]entry, 0, n), make(map[FieldID]int, n), nil
}

// Container owns the column vectors of a batch, keyed by field id in
// insertion order.  Every vector must be allocated from the container's
// pool, Release returns them there.
//
// A container is live until its vectors are moved out by TransferFrom.  It
// is then moved-from: it holds zero fields and every read fails with
// ErrInvalidState until Reset makes it live again.
type Container struct {
	mp      *mpool.MPool
	entries []entry
	index   map[FieldID]int
	rows    int
	moved   bool
}

func NewContainer(mp *mpool.MPool) *Container {
	return &Container{
		mp:    mp,
		index: make(map[FieldID]int),
	}
}

func (c *Container) Mpool() *mpool.MPool {
	return c.mp
}

// Moved reports whether the vectors of the container were transferred away.
func (c *Container) Moved() bool {
	return c.moved
}

func (c *Container) Len() int {
	return len(c.entries)
}

// RowCount is the physical row count shared by every vector.
func (c *Container) RowCount() int {
	return c.rows
}

// Size is the approximate number of bytes of column data held.
func (c *Container) Size() int {
	sz := 0
	for _, e := range c.entries {
		sz += e.vec.Size()
	}
	return sz
}

// Append takes ownership of vec under id.
func (c *Container) Append(id FieldID, vec *vector.Vector) error {
	if c.moved {
		return moerr.NewInvalidStateNoCtx("append to a moved-from container")
	}
	if vec == nil {
		return moerr.NewInvalidInputNoCtx("nil vector for field %d", id)
	}
	if _, ok := c.index[id]; ok {
		return moerr.NewDuplicateFieldNoCtx(uint32(id))
	}
	if len(c.entries) > 0 && vec.Length() != c.rows {
		return moerr.NewInvalidInputNoCtx("field %d has %d rows, container has %d", id, vec.Length(), c.rows)
	}
	if c.index == nil {
		c.index = make(map[FieldID]int)
	}
	c.index[id] = len(c.entries)
	c.entries = append(c.entries, entry{id: id, vec: vec})
	c.rows = vec.Length()
	return nil
}

// Get returns the vector under id if it holds values of typ.  It never
// modifies the container.
func (c *Container) Get(id FieldID, typ types.Type) (*vector.Vector, error) {
	if c.moved {
		return nil, moerr.NewInvalidStateNoCtx("read of a moved-from container")
	}
	i, ok := c.index[id]
	if !ok {
		return nil, moerr.NewUnknownFieldNoCtx(uint32(id))
	}
	vec := c.entries[i].vec
	if vt := vec.GetType(); vt.Oid != typ.Oid {
		return nil, moerr.NewTypeMismatchNoCtx(uint32(id), typ.String(), vt.String())
	}
	return vec, nil
}

// GetFixed is Get for fixed size element types, the result exposes the
// values as T.
func GetFixed[T types.FixedSizeT](c *Container, id FieldID) (vector.FixedView[T], error) {
	vec, err := c.Get(id, types.OidOf[T]().ToType())
	if err != nil {
		return vector.FixedView[T]{}, err
	}
	view, ok := vector.ToFixedView[T](vec)
	if !ok {
		return vector.FixedView[T]{}, moerr.NewTypeMismatchNoCtx(uint32(id), types.OidOf[T]().String(), vec.GetType().String())
	}
	return view, nil
}

// TransferFrom returns a new container owning every vector of src, no
// column data is copied.  src is left with zero fields and marked
// moved-from.  Either every vector moves or none does: when the new
// container cannot be set up the call fails with ErrTransferFailed and src
// is untouched.
func TransferFrom(src *Container) (*Container, error) {
	if src.moved {
		return nil, moerr.NewInvalidStateNoCtx("transfer from a moved-from container")
	}
	entries, index, err := reserveEntries(len(src.entries))
	if err != nil {
		return nil, moerr.NewTransferFailedNoCtx(err)
	}
	dst := &Container{
		mp:      src.mp,
		entries: append(entries, src.entries...),
		index:   index,
		rows:    src.rows,
	}
	for i, e := range dst.entries {
		dst.index[e.id] = i
	}

	for i := range src.entries {
		src.entries[i] = entry{}
	}
	src.entries = nil
	src.index = nil
	src.rows = 0
	src.moved = true
	return dst, nil
}

// All yields (field id, vector) pairs in insertion order.  Each call walks
// the container afresh, so the sequence can be ranged over any number of
// times.  A moved-from container yields nothing.
func (c *Container) All() iter.Seq2[FieldID, *vector.Vector] {
	return func(yield func(FieldID, *vector.Vector) bool) {
		for _, e := range c.entries {
			if !yield(e.id, e.vec) {
				return
			}
		}
	}
}

// Release frees every vector.  Releasing an empty or moved-from container
// is a no-op.
func (c *Container) Release() {
	for i := range c.entries {
		c.entries[i].vec.Free(c.mp)
		c.entries[i] = entry{}
	}
	c.entries = c.entries[:0]
	clear(c.index)
	c.rows = 0
}

// Reset releases the vectors still held and makes the container live and
// empty again, producers call it before refilling a reused container.
func (c *Container) Reset() {
	c.Release()
	if c.index == nil {
		c.index = make(map[FieldID]int)
	}
	c.moved = false
}

func (c *Container) String() string {
	var buf bytes.Buffer
	if c.moved {
		return "container(moved)"
	}
	buf.WriteString(fmt.Sprintf("container(%d rows", c.rows))
	for _, e := range c.entries {
		buf.WriteString(fmt.Sprintf(", %d: %s", e.id, e.vec.String()))
	}
	buf.WriteByte(')')
	return buf.String()
}
