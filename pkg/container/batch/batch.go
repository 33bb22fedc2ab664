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

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
)

// Selection is the row indirection of a batch.  Its only implementations
// are ByRow16 and ByRow32, a nil Selection means every physical row in
// order.
type Selection interface {
	Mode() SelectionMode
	Len() int
	String() string
	release()
}

// ByRow16 selects rows of the batch's own container.
type ByRow16 struct {
	SV *selection.Sel2
}

func (ByRow16) Mode() SelectionMode { return SelectionRow16 }
func (s ByRow16) Len() int          { return s.SV.Len() }
func (s ByRow16) String() string    { return s.SV.String() }
func (s ByRow16) release()          { s.SV.Release() }

// ByRow32 selects (slot, row) pairs of a working set, the batch's own
// container is not addressed.
type ByRow32 struct {
	SV *selection.Sel4
}

func (ByRow32) Mode() SelectionMode { return SelectionRow32Packed }
func (s ByRow32) Len() int          { return s.SV.Len() }
func (s ByRow32) String() string    { return s.SV.String() }
func (s ByRow32) release()          { s.SV.Release() }

// ModeOf maps a selection to the schema mode it requires.
func ModeOf(sel Selection) SelectionMode {
	if sel == nil {
		return SelectionNone
	}
	return sel.Mode()
}

func selectionString(sel Selection) string {
	if sel == nil {
		return "none"
	}
	return sel.String()
}

// View is the read side shared by a live Batch and a Retained snapshot.
type View interface {
	Schema() *Schema
	Container() *Container
	Selection() Selection
	RowCount() int
}

// Batch is what an operator hands downstream on each call: a schema, the
// container with the column data and the selection in force.  The producer
// keeps the right to reuse the container and the selection buffer on its
// next call, a consumer that needs the rows longer must retain them.
type Batch struct {
	schema *Schema
	ctr    *Container
	sel    Selection
}

var _ View = (*Batch)(nil)

// New checks that the selection kind agrees with the schema mode.
func New(schema *Schema, ctr *Container, sel Selection) (*Batch, error) {
	if ModeOf(sel) != schema.Mode() {
		return nil, moerr.NewSelectionMismatchNoCtx(ModeOf(sel).String(), schema.Mode().String())
	}
	return &Batch{schema: schema, ctr: ctr, sel: sel}, nil
}

func (bat *Batch) Schema() *Schema {
	return bat.schema
}

func (bat *Batch) Container() *Container {
	return bat.ctr
}

func (bat *Batch) Selection() Selection {
	return bat.sel
}

// RowCount is the logical row count, the selection length if any.
func (bat *Batch) RowCount() int {
	return rowCount(bat.ctr, bat.sel)
}

// Row maps logical position i to a physical row of the container.  It is
// not defined for ByRow32 batches whose rows live in a working set.
func (bat *Batch) Row(i int) (int, error) {
	return physicalRow(bat.ctr, bat.sel, i)
}

func (bat *Batch) Get(id FieldID, typ types.Type) (*vector.Vector, error) {
	return bat.ctr.Get(id, typ)
}

// GetByName resolves name through the schema.
func (bat *Batch) GetByName(name string, typ types.Type) (*vector.Vector, error) {
	return getByName(bat.schema, bat.ctr, name, typ)
}

// Release frees the container and an owned selection.  Only the producer
// of a batch calls it.
func (bat *Batch) Release() {
	bat.ctr.Release()
	if bat.sel != nil {
		bat.sel.release()
	}
}

func (bat *Batch) String() string {
	return viewString("batch", bat.schema, bat.ctr, bat.sel)
}

func rowCount(ctr *Container, sel Selection) int {
	if sel == nil {
		return ctr.RowCount()
	}
	return sel.Len()
}

func physicalRow(ctr *Container, sel Selection, i int) (int, error) {
	switch s := sel.(type) {
	case nil:
		if i < 0 || i >= ctr.RowCount() {
			return 0, moerr.NewIndexOutOfBoundsNoCtx(i, ctr.RowCount())
		}
		return i, nil
	case ByRow16:
		row, err := s.SV.IndexAt(i)
		if err != nil {
			return 0, err
		}
		if int(row) >= ctr.RowCount() {
			return 0, moerr.NewIndexOutOfBoundsNoCtx(int(row), ctr.RowCount())
		}
		return int(row), nil
	default:
		return 0, moerr.NewNotSupportedNoCtx("physical row of a %s selection", sel.Mode())
	}
}

func getByName(schema *Schema, ctr *Container, name string, typ types.Type) (*vector.Vector, error) {
	f, ok := schema.FieldByName(name)
	if !ok {
		return nil, moerr.NewUnknownFieldNameNoCtx(name)
	}
	return ctr.Get(f.ID, typ)
}

func viewString(kind string, schema *Schema, ctr *Container, sel Selection) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s(%s, ", kind, schema.String()))
	buf.WriteString(ctr.String())
	buf.WriteString(", ")
	buf.WriteString(selectionString(sel))
	buf.WriteByte(')')
	return buf.String()
}
