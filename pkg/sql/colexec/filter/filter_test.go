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

package filter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/sql/colexec"
	"github.com/matrixorigin/mobatch/pkg/testutil"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

type filterTestCase struct {
	arg   *Filter
	proc  *process.Process
	input [][]int64
	want  [][]uint16
}

func newTestCases() []filterTestCase {
	return []filterTestCase{
		{
			proc:  testutil.NewProcessWithMPool("", mpool.MustNewZero()),
			arg:   NewArgument().WithField(colexec.MockValue).WithBelow(50),
			input: [][]int64{{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, {1, 7, 2}, {8, 9}},
			want:  [][]uint16{{1, 2, 3, 4}, {0, 2}},
		},
		{
			proc:  testutil.NewProcessWithMPool("", mpool.MustNewZero()),
			arg:   NewArgument().WithField(colexec.MockKey).WithBelow(0),
			input: [][]int64{{0, 1}, {2}},
		},
	}
}

func resetChildren(arg *Filter, proc *process.Process, input [][]int64) {
	op := colexec.NewMockOperator().WithBatchs(colexec.MakeMockBatchs(proc.Mp(), input...))
	arg.Children = nil
	arg.AppendChild(op)
}

func TestString(t *testing.T) {
	buf := new(bytes.Buffer)
	NewArgument().WithField(2).WithBelow(500).String(buf)
	require.Equal(t, "filter: filter(#2 < 500)", buf.String())
}

func TestFilter(t *testing.T) {
	for _, tc := range newTestCases() {
		resetChildren(tc.arg, tc.proc, tc.input)
		require.NoError(t, tc.arg.Prepare(tc.proc))
		for _, want := range tc.want {
			res, err := tc.arg.Call(tc.proc)
			require.NoError(t, err)
			require.Equal(t, batch.SelectionRow16, res.Batch.Schema().Mode())
			sel := res.Batch.Selection().(batch.ByRow16)
			require.False(t, sel.SV.Owned())
			require.Equal(t, want, sel.SV.Indices())
		}
		res, err := tc.arg.Call(tc.proc)
		require.NoError(t, err)
		require.Nil(t, res.Batch)
		require.Equal(t, vm.ExecStop, res.Status)

		vm.Free(tc.arg, tc.proc, false, nil)
		tc.proc.Free()
		require.Equal(t, int64(0), tc.proc.Mp().CurrNB())
	}
}

func TestFilterOutputIsReused(t *testing.T) {
	proc := testutil.NewProcessWithMPool("", mpool.MustNewZero())
	arg := NewArgument().WithField(colexec.MockKey).WithBelow(100)
	resetChildren(arg, proc, [][]int64{{1, 2, 3}, {4, 500, 5}})
	require.NoError(t, arg.Prepare(proc))

	res, err := arg.Call(proc)
	require.NoError(t, err)
	retained, err := batch.NewRetained(proc.Mp(), res.Batch)
	require.NoError(t, err)
	first := res.Batch.Selection().(batch.ByRow16).SV

	_, err = arg.Call(proc)
	require.NoError(t, err)
	// the buffer behind the first output now holds the second selection
	require.Equal(t, []uint16{0, 2, 2}, first.Indices())
	require.Equal(t, 3, retained.RowCount())
	row, err := retained.Row(2)
	require.NoError(t, err)
	require.Equal(t, 2, row)
	retained.Release()

	vm.Free(arg, proc, false, nil)
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

func TestFilterChain(t *testing.T) {
	proc := testutil.NewProcessWithMPool("", mpool.MustNewZero())
	inner := NewArgument().WithField(colexec.MockValue).WithBelow(50)
	resetChildren(inner, proc, [][]int64{{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}})
	outer := NewArgument().WithField(colexec.MockKey).WithBelow(3)
	outer.AppendChild(inner)
	require.NoError(t, vm.Prepare(outer, proc))

	res, err := outer.Call(proc)
	require.NoError(t, err)
	require.Equal(t, []uint16{1, 2}, res.Batch.Selection().(batch.ByRow16).SV.Indices())

	vm.Free(outer, proc, false, nil)
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

func TestFilterTypeMismatch(t *testing.T) {
	proc := testutil.NewProcessWithMPool("", mpool.MustNewZero())
	arg := NewArgument().WithField(colexec.MockName).WithBelow(3)
	resetChildren(arg, proc, [][]int64{{1}})
	require.NoError(t, arg.Prepare(proc))
	_, err := arg.Call(proc)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTypeMismatch))
	vm.Free(arg, proc, true, err)
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

func TestFilterOversizedInput(t *testing.T) {
	proc := testutil.NewProcessWithMPool("", mpool.MustNewZero())
	keys := make([]int64, batch.MaxSlots+4464)
	for i := range keys {
		keys[i] = 1
	}
	keys[batch.MaxSlots] = 0
	arg := NewArgument().WithField(colexec.MockKey).WithBelow(1)
	resetChildren(arg, proc, [][]int64{keys})
	require.NoError(t, arg.Prepare(proc))
	_, err := arg.Call(proc)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	vm.Free(arg, proc, true, err)
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}
