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
	"bytes"
	"fmt"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

const opName = "value_scan"

func (valueScan *ValueScan) String(buf *bytes.Buffer) {
	buf.WriteString(opName)
	buf.WriteString(fmt.Sprintf(": value_scan(%d batches)", len(valueScan.Batchs)))
}

func (valueScan *ValueScan) Prepare(proc *process.Process) (err error) {
	if valueScan.ctr.buf == nil {
		valueScan.ctr.buf = batch.NewContainer(proc.Mp())
	}
	if valueScan.ctr.sels == nil {
		valueScan.ctr.sels, err = selection.NewSel2(proc.Mp(), 0)
	}
	return err
}

func (valueScan *ValueScan) Call(proc *process.Process) (vm.CallResult, error) {
	result := vm.NewCallResult()
	if valueScan.ctr.idx >= len(valueScan.Batchs) {
		result.Status = vm.ExecStop
		return result, nil
	}
	src := valueScan.Batchs[valueScan.ctr.idx]
	valueScan.ctr.idx++

	bat, err := valueScan.fill(proc, src)
	if err != nil {
		return result, err
	}
	result.Batch = bat
	return result, nil
}

// fill copies src into the reused buffers.  A consumer may have moved the
// previous contents of the container away, Reset makes it live again.
func (valueScan *ValueScan) fill(proc *process.Process, src *batch.Batch) (*batch.Batch, error) {
	buf := valueScan.ctr.buf
	buf.Reset()
	for id, vec := range src.Container().All() {
		dup, err := vec.Dup(proc.Mp())
		if err != nil {
			return nil, err
		}
		if err := buf.Append(id, dup); err != nil {
			dup.Free(proc.Mp())
			return nil, err
		}
	}

	switch sel := src.Selection().(type) {
	case nil:
		return batch.New(src.Schema(), buf, nil)
	case batch.ByRow16:
		sels := valueScan.ctr.sels
		sels.Reset()
		for _, row := range sel.SV.Indices() {
			if err := sels.Append(row); err != nil {
				return nil, err
			}
		}
		return batch.New(src.Schema(), buf, batch.ByRow16{SV: selection.NewSel2View(sels.Indices())})
	default:
		return nil, moerr.NewNotSupported(proc.Ctx, "value scan over a %s batch", sel.Mode())
	}
}
