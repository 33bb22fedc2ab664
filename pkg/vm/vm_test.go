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

package vm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/mock_vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

func newProc() *process.Process {
	return process.New(context.Background(), mpool.MustNewZero(), nil, nil)
}

func emptyBatch(t *testing.T, proc *process.Process) *batch.Batch {
	schema := batch.MustSchema(batch.SelectionNone,
		batch.Field{ID: 1, Name: "a", Type: types.T_int64.ToType()})
	bat, err := batch.New(schema, batch.NewContainer(proc.Mp()), nil)
	require.NoError(t, err)
	return bat
}

func newMock(ctrl *gomock.Controller) *mock_vm.MockOperator {
	op := mock_vm.NewMockOperator(ctrl)
	op.EXPECT().GetOperatorBase().Return(&vm.OperatorBase{}).AnyTimes()
	return op
}

func TestRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	proc := newProc()
	bat := emptyBatch(t, proc)

	op := newMock(ctrl)
	gomock.InOrder(
		op.EXPECT().Prepare(proc).Return(nil),
		op.EXPECT().Call(proc).Return(vm.CallResult{Status: vm.ExecNext, Batch: bat}, nil).Times(3),
		op.EXPECT().Call(proc).Return(vm.CallResult{Status: vm.ExecStop}, nil),
		op.EXPECT().Free(proc, false, nil),
	)

	n := 0
	err := vm.Run(op, proc, func(b *batch.Batch) error {
		require.True(t, b == bat)
		n++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestRunErrors(t *testing.T) {
	t.Run("prepare", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		proc := newProc()
		op := newMock(ctrl)
		failed := moerr.NewInternalErrorNoCtx("prepare failed")
		op.EXPECT().Prepare(proc).Return(failed)
		op.EXPECT().Free(proc, true, failed)
		require.Equal(t, failed, vm.Run(op, proc, nil))
	})

	t.Run("panic", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		proc := newProc()
		op := newMock(ctrl)
		op.EXPECT().Prepare(proc).Return(nil)
		op.EXPECT().Call(proc).DoAndReturn(func(*process.Process) (vm.CallResult, error) {
			panic("boom")
		})
		op.EXPECT().Free(proc, true, gomock.Any())
		err := vm.Run(op, proc, nil)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
	})

	t.Run("sink", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		proc := newProc()
		op := newMock(ctrl)
		op.EXPECT().Prepare(proc).Return(nil)
		op.EXPECT().Call(proc).Return(vm.CallResult{Status: vm.ExecNext, Batch: emptyBatch(t, proc)}, nil)
		op.EXPECT().Free(proc, true, gomock.Any())
		err := vm.Run(op, proc, func(*batch.Batch) error {
			return moerr.NewInvalidStateNoCtx("sink full")
		})
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))
	})

	t.Run("canceled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		proc := newProc()
		op := newMock(ctrl)
		op.EXPECT().Prepare(proc).Return(nil)
		op.EXPECT().Free(proc, true, context.Canceled)
		proc.Cancel()
		require.ErrorIs(t, vm.Run(op, proc, nil), context.Canceled)
	})
}

func TestTreeWalk(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	proc := newProc()

	leaf := mock_vm.NewMockOperator(ctrl)
	leafBase := &vm.OperatorBase{}
	leaf.EXPECT().GetOperatorBase().Return(leafBase).AnyTimes()
	root := mock_vm.NewMockOperator(ctrl)
	base := &vm.OperatorBase{}
	base.AppendChild(leaf)
	root.EXPECT().GetOperatorBase().Return(base).AnyTimes()
	require.Equal(t, 1, base.NumChildren())
	require.True(t, base.GetChildren(0) == leaf)

	gomock.InOrder(
		leaf.EXPECT().Prepare(proc).Return(nil),
		root.EXPECT().Prepare(proc).Return(nil),
	)
	require.NoError(t, vm.Prepare(root, proc))
	require.Equal(t, vm.OperatorInfo{Idx: 0, IsFirst: true, IsLast: false}, leafBase.OperatorInfo)
	require.Equal(t, vm.OperatorInfo{Idx: 1, IsFirst: false, IsLast: true}, base.OperatorInfo)

	gomock.InOrder(
		leaf.EXPECT().String(gomock.Any()).Do(func(buf *bytes.Buffer) { buf.WriteString("leaf") }),
		root.EXPECT().String(gomock.Any()).Do(func(buf *bytes.Buffer) { buf.WriteString("root") }),
	)
	buf := new(bytes.Buffer)
	vm.String(root, buf)
	require.Equal(t, "leaf -> root", buf.String())

	gomock.InOrder(
		leaf.EXPECT().Reset(proc, false, nil),
		root.EXPECT().Reset(proc, false, nil),
	)
	vm.Reset(root, proc, false, nil)

	ok, err := vm.CancelCheck(proc)
	require.False(t, ok)
	require.NoError(t, err)
	require.Equal(t, vm.ExecNext, vm.NewCallResult().Status)
	require.Equal(t, vm.ExecStop, vm.CancelResult.Status)
}
