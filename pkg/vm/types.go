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

	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

type Operator interface {
	// Free release all the memory allocated from mPool in an operator.
	// pipelineFailed marks the process status of the pipeline when the method is called.
	Free(proc *process.Process, pipelineFailed bool, err error)

	// Reset clean all the memory that can be reused.
	Reset(proc *process.Process, pipelineFailed bool, err error)

	// String returns the string representation of an operator.
	String(buf *bytes.Buffer)

	//Prepare prepares an operator for execution.
	Prepare(proc *process.Process) error

	//Call calls an operator.
	Call(proc *process.Process) (CallResult, error)

	// OperatorBase methods
	AppendChild(child Operator)
	GetOperatorBase() *OperatorBase
}

// OperatorInfo places an operator in its tree.  Idx counts operators
// children first, IsFirst marks a leaf and IsLast the root.
type OperatorInfo struct {
	Idx     int
	IsFirst bool
	IsLast  bool
}

type OperatorBase struct {
	OperatorInfo
	Children []Operator
}

func (o *OperatorBase) SetInfo(info *OperatorInfo) {
	o.OperatorInfo = *info
}

func (o *OperatorBase) NumChildren() int {
	return len(o.Children)
}

func (o *OperatorBase) AppendChild(child Operator) {
	o.Children = append(o.Children, child)
}

func (o *OperatorBase) GetChildren(idx int) Operator {
	return o.Children[idx]
}

func (o *OperatorBase) GetOperatorBase() *OperatorBase {
	return o
}

var CancelResult = CallResult{
	Status: ExecStop,
}

// CancelCheck reports whether the pipeline was canceled.
func CancelCheck(proc *process.Process) (bool, error) {
	select {
	case <-proc.Ctx.Done():
		return true, proc.Ctx.Err()
	default:
		return false, nil
	}
}

type ExecStatus int

const (
	ExecStop ExecStatus = iota
	ExecNext
)

type CtrState int

const (
	Build CtrState = iota
	Eval
	End
)

// CallResult is what Call hands to the parent operator.  The batch stays
// owned by the callee: it is valid until the next Call, Reset or Free of
// the callee.  A parent that needs it longer retains it.
type CallResult struct {
	Status ExecStatus
	Batch  *batch.Batch
}

func NewCallResult() CallResult {
	return CallResult{
		Status: ExecNext,
	}
}

// ChildrenCall is how an operator pulls the next batch from its child.
func ChildrenCall(o Operator, proc *process.Process) (CallResult, error) {
	return o.Call(proc)
}
