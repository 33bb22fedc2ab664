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

package vm

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

// String walks the operator tree leaves first and writes each operator.
func String(root Operator, buf *bytes.Buffer) {
	for i, child := range root.GetOperatorBase().Children {
		if i > 0 {
			buf.WriteString(", ")
		}
		String(child, buf)
		buf.WriteString(" -> ")
	}
	root.String(buf)
}

// Prepare sets the OperatorInfo of every operator and prepares the
// children of root, then root.
func Prepare(root Operator, proc *process.Process) error {
	idx := 0
	return HandleAllOp(root, func(_ Operator, op Operator) error {
		base := op.GetOperatorBase()
		base.SetInfo(&OperatorInfo{
			Idx:     idx,
			IsFirst: base.NumChildren() == 0,
			IsLast:  op == root,
		})
		idx++
		if err := op.Prepare(proc); err != nil {
			proc.Logger().Error("operator prepare failed",
				zap.Int("idx", base.Idx),
				zap.Bool("first", base.IsFirst),
				zap.Bool("last", base.IsLast),
				zap.Error(err))
			return err
		}
		return nil
	})
}

// HandleAllOp calls fn on every operator of the tree, children before
// their parent.
func HandleAllOp(root Operator, fn func(parent Operator, op Operator) error) error {
	return handleAllOp(nil, root, fn)
}

func handleAllOp(parent, op Operator, fn func(parent Operator, op Operator) error) error {
	for _, child := range op.GetOperatorBase().Children {
		if err := handleAllOp(op, child, fn); err != nil {
			return err
		}
	}
	return fn(parent, op)
}

// Reset resets every operator so that the tree can run again.
func Reset(root Operator, proc *process.Process, pipelineFailed bool, err error) {
	_ = HandleAllOp(root, func(_ Operator, op Operator) error {
		op.Reset(proc, pipelineFailed, err)
		return nil
	})
}

// Free frees every operator of the tree.
func Free(root Operator, proc *process.Process, pipelineFailed bool, err error) {
	_ = HandleAllOp(root, func(_ Operator, op Operator) error {
		op.Free(proc, pipelineFailed, err)
		return nil
	})
}

// Run prepares the tree and drains root, handing every batch to sink.  The
// batch passed to sink is only valid during the call.  sink may be nil.  A
// panic in an operator is returned as an error.
func Run(root Operator, proc *process.Process, sink func(bat *batch.Batch) error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = moerr.ConvertPanicError(proc.Ctx, e)
			proc.Logger().Error("pipeline panic", zap.Error(err))
		}
		Free(root, proc, err != nil, err)
	}()

	if err = Prepare(root, proc); err != nil {
		return err
	}
	for {
		if canceled, cerr := CancelCheck(proc); canceled {
			return cerr
		}
		result, err := root.Call(proc)
		if err != nil {
			return err
		}
		if result.Batch != nil && sink != nil {
			if err := sink(result.Batch); err != nil {
				return err
			}
		}
		if result.Batch == nil || result.Status == ExecStop {
			return nil
		}
	}
}
