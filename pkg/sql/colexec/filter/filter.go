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
	"fmt"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

const opName = "filter"

func (filter *Filter) String(buf *bytes.Buffer) {
	buf.WriteString(opName)
	buf.WriteString(fmt.Sprintf(": filter(#%d < %d)", filter.Field, filter.Below))
}

func (filter *Filter) Prepare(proc *process.Process) (err error) {
	if filter.ctr.sels == nil {
		filter.ctr.sels, err = selection.NewSel2(proc.Mp(), proc.BatchRows())
	}
	return err
}

func (filter *Filter) Call(proc *process.Process) (vm.CallResult, error) {
	for {
		result, err := vm.ChildrenCall(filter.GetChildren(0), proc)
		if err != nil {
			return result, err
		}
		if result.Batch == nil {
			result.Status = vm.ExecStop
			return result, nil
		}
		bat, err := filter.eval(proc, result.Batch)
		if err != nil {
			return result, err
		}
		if bat == nil {
			continue
		}
		result.Batch = bat
		return result, nil
	}
}

// eval returns nil when no row of bat passes.
func (filter *Filter) eval(proc *process.Process, bat *batch.Batch) (*batch.Batch, error) {
	if bat.Container().RowCount() > batch.MaxSlots {
		return nil, moerr.NewInvalidInput(proc.Ctx, "filter input batch of %d rows", bat.Container().RowCount())
	}
	keys, err := batch.GetFixed[int64](bat.Container(), filter.Field)
	if err != nil {
		return nil, err
	}
	sels := filter.ctr.sels
	sels.Reset()
	for i := 0; i < bat.RowCount(); i++ {
		row, err := bat.Row(i)
		if err != nil {
			return nil, err
		}
		if keys.IsNull(row) || keys.At(row) >= filter.Below {
			continue
		}
		if err := sels.Append(uint16(row)); err != nil {
			return nil, err
		}
	}
	if sels.Len() == 0 {
		return nil, nil
	}
	if filter.ctr.in != bat.Schema() {
		filter.ctr.in = bat.Schema()
		filter.ctr.out = bat.Schema().WithMode(batch.SelectionRow16)
	}
	return batch.New(filter.ctr.out, bat.Container(), batch.ByRow16{SV: selection.NewSel2View(sels.Indices())})
}
