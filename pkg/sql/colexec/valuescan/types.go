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

package valuescan

import (
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

var _ vm.Operator = new(ValueScan)

type container struct {
	idx  int
	buf  *batch.Container
	sels *selection.Sel2
}

// ValueScan replays Batchs.  Each call copies the next source into a
// container and a selection buffer the operator reuses, so the batch of one
// call is overwritten by the next.  Consumers that keep rows across calls
// have to retain them.
type ValueScan struct {
	ctr container
	// Batchs are owned by the operator and released on Free.
	Batchs []*batch.Batch

	vm.OperatorBase
}

func NewArgument() *ValueScan {
	return &ValueScan{}
}

func (valueScan *ValueScan) Reset(proc *process.Process, pipelineFailed bool, err error) {
	valueScan.ctr.idx = 0
	if valueScan.ctr.buf != nil {
		valueScan.ctr.buf.Reset()
	}
	if valueScan.ctr.sels != nil {
		valueScan.ctr.sels.Reset()
	}
}

func (valueScan *ValueScan) Free(proc *process.Process, pipelineFailed bool, err error) {
	if valueScan.ctr.buf != nil {
		valueScan.ctr.buf.Release()
		valueScan.ctr.buf = nil
	}
	if valueScan.ctr.sels != nil {
		valueScan.ctr.sels.Release()
		valueScan.ctr.sels = nil
	}
	for _, bat := range valueScan.Batchs {
		bat.Release()
	}
	valueScan.Batchs = nil
	valueScan.ctr.idx = 0
}
