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
	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
)

// Retained is a batch frozen at the instant it was retained.  It owns the
// vectors of its source (moved, not copied) and a private copy of the
// source selection, so the producer may reuse or release everything it
// handed out without affecting it.
//
// A ByRow32 snapshot only copies the (slot, row) entries.  The working set
// batches they point at must stay alive while the snapshot is read.
//
// Reading a released snapshot is a programming error and panics with an
// ErrInvalidState error.
type Retained struct {
	schema   *Schema
	ctr      *Container
	sel      Selection
	released bool
}

var _ View = (*Retained)(nil)

// NewRetained snapshots src, taking its vectors: src's container is left
// moved-from.  Selection copies are allocated from mp.  On failure nothing
// is retained, src is intact and no selection copy is leaked.
func NewRetained(mp *mpool.MPool, src View) (*Retained, error) {
	schema := src.Schema()
	sel, err := copySelection(mp, schema.Mode(), src.Selection())
	if err != nil {
		return nil, err
	}
	ctr, err := TransferFrom(src.Container())
	if err != nil {
		if sel != nil {
			sel.release()
		}
		return nil, err
	}
	return &Retained{
		schema: schema,
		ctr:    ctr,
		sel:    sel,
	}, nil
}

func copySelection(mp *mpool.MPool, mode SelectionMode, sel Selection) (Selection, error) {
	if ModeOf(sel) != mode {
		return nil, moerr.NewSelectionMismatchNoCtx(ModeOf(sel).String(), mode.String())
	}
	switch s := sel.(type) {
	case ByRow32:
		sv, err := s.SV.SnapshotCurrent(mp)
		if err != nil {
			return nil, err
		}
		return ByRow32{SV: sv}, nil
	case ByRow16:
		sv, err := s.SV.Clone(mp)
		if err != nil {
			return nil, err
		}
		return ByRow16{SV: sv}, nil
	}
	return nil, nil
}

func (r *Retained) checkLive() {
	if r.released {
		panic(moerr.NewInvalidStateNoCtx("read of a released retained batch"))
	}
}

func (r *Retained) Released() bool {
	return r.released
}

func (r *Retained) Schema() *Schema {
	r.checkLive()
	return r.schema
}

func (r *Retained) Container() *Container {
	r.checkLive()
	return r.ctr
}

func (r *Retained) Selection() Selection {
	r.checkLive()
	return r.sel
}

func (r *Retained) RowCount() int {
	r.checkLive()
	return rowCount(r.ctr, r.sel)
}

func (r *Retained) Row(i int) (int, error) {
	r.checkLive()
	return physicalRow(r.ctr, r.sel, i)
}

func (r *Retained) Get(id FieldID, typ types.Type) (*vector.Vector, error) {
	r.checkLive()
	return r.ctr.Get(id, typ)
}

func (r *Retained) GetByName(name string, typ types.Type) (*vector.Vector, error) {
	r.checkLive()
	return getByName(r.schema, r.ctr, name, typ)
}

// Release frees the vectors and the selection copy.  Later calls do
// nothing.
func (r *Retained) Release() {
	if r.released {
		return
	}
	r.ctr.Release()
	if r.sel != nil {
		r.sel.release()
	}
	r.released = true
}

func (r *Retained) String() string {
	if r.released {
		return "retained(released)"
	}
	return viewString("retained", r.schema, r.ctr, r.sel)
}
