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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
)

const (
	fieldA FieldID = 1
	fieldB FieldID = 2
)

func testSchema(mode SelectionMode) *Schema {
	return MustSchema(mode,
		Field{ID: fieldA, Name: "a", Type: types.T_int64.ToType()},
		Field{ID: fieldB, Name: "b", Type: types.T_varchar.ToType(), Nullable: true},
	)
}

// newTestContainer holds a = 0..rows-1 and b = "s<i>".
func newTestContainer(t *testing.T, mp *mpool.MPool, rows int) *Container {
	a := vector.NewVec(types.T_int64.ToType())
	b := vector.NewVec(types.T_varchar.ToType())
	for i := 0; i < rows; i++ {
		require.NoError(t, vector.AppendFixed(a, int64(i), false, mp))
		require.NoError(t, vector.AppendBytes(b, []byte("s"+string(rune('a'+i%26))), i%7 == 6, mp))
	}
	c := NewContainer(mp)
	require.NoError(t, c.Append(fieldA, a))
	require.NoError(t, c.Append(fieldB, b))
	return c
}

func TestNewBatchChecksMode(t *testing.T) {
	mp := mpool.MustNewZero()
	ctr := newTestContainer(t, mp, 4)
	defer ctr.Release()

	_, err := New(testSchema(SelectionRow16), ctr, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSelectionMismatch))

	sel := ByRow32{SV: selection.NewSel4View([]uint32{selection.Pack(0, 1)})}
	_, err = New(testSchema(SelectionRow16), ctr, sel)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSelectionMismatch))

	_, err = New(testSchema(SelectionNone), ctr, ByRow16{SV: selection.NewSel2View([]uint16{0})})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSelectionMismatch))

	bat, err := New(testSchema(SelectionRow32Packed), ctr, sel)
	require.NoError(t, err)
	require.Equal(t, 1, bat.RowCount())
	_, err = bat.Row(0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
}

func TestBatchRows(t *testing.T) {
	mp := mpool.MustNewZero()
	ctr := newTestContainer(t, mp, 10)
	defer ctr.Release()

	bat, err := New(testSchema(SelectionNone), ctr, nil)
	require.NoError(t, err)
	require.Equal(t, 10, bat.RowCount())
	row, err := bat.Row(9)
	require.NoError(t, err)
	require.Equal(t, 9, row)
	_, err = bat.Row(10)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrIndexOutOfBounds))

	sel := ByRow16{SV: selection.NewSel2View([]uint16{7, 7, 2, 12})}
	bat, err = New(testSchema(SelectionRow16), ctr, sel)
	require.NoError(t, err)
	require.Equal(t, 4, bat.RowCount())
	row, err = bat.Row(1)
	require.NoError(t, err)
	require.Equal(t, 7, row)
	// index past the physical row count
	_, err = bat.Row(3)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrIndexOutOfBounds))

	vec, err := bat.GetByName("b", types.T_varchar.ToType())
	require.NoError(t, err)
	require.Equal(t, "sc", vec.GetStringAt(2))
	_, err = bat.GetByName("c", types.T_varchar.ToType())
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrUnknownField))
	require.Contains(t, bat.String(), "sel2[7 7 2 12]")
}
