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

package streamagg

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

const opName = "stream_agg"

func (streamAgg *StreamAgg) String(buf *bytes.Buffer) {
	buf.WriteString(opName)
	buf.WriteString(fmt.Sprintf(": group by #%d count(*), sum(#%d)", streamAgg.Key, streamAgg.Value))
}

func (streamAgg *StreamAgg) Prepare(proc *process.Process) error {
	if streamAgg.ctr.out == nil {
		streamAgg.ctr.out = batch.NewContainer(proc.Mp())
	}
	return nil
}

func (streamAgg *StreamAgg) Call(proc *process.Process) (vm.CallResult, error) {
	ctr := &streamAgg.ctr
	result := vm.NewCallResult()
	for ctr.state != vm.End && len(ctr.keys) == 0 {
		input, err := vm.ChildrenCall(streamAgg.GetChildren(0), proc)
		if err != nil {
			return result, err
		}
		if input.Batch == nil {
			if err := streamAgg.closeGroup(); err != nil {
				return result, err
			}
			ctr.state = vm.End
			proc.Logger().Debug("stream agg input done", zap.Int("pending", len(ctr.keys)))
			break
		}
		if err := streamAgg.consume(proc, input.Batch); err != nil {
			return result, err
		}
	}
	if len(ctr.keys) == 0 {
		result.Status = vm.ExecStop
		return result, nil
	}
	bat, err := streamAgg.flush(proc)
	if err != nil {
		return result, err
	}
	result.Batch = bat
	return result, nil
}

func (streamAgg *StreamAgg) consume(proc *process.Process, bat *batch.Batch) error {
	ctr := &streamAgg.ctr
	keys, err := batch.GetFixed[int64](bat.Container(), streamAgg.Key)
	if err != nil {
		return err
	}
	vals, err := batch.GetFixed[int64](bat.Container(), streamAgg.Value)
	if err != nil {
		return err
	}

	last, lastPos := int64(0), -1
	for i := 0; i < bat.RowCount(); i++ {
		row, err := bat.Row(i)
		if err != nil {
			return err
		}
		if keys.IsNull(row) {
			continue
		}
		k := keys.At(row)
		if ctr.open {
			openKey := last
			if lastPos < 0 {
				if openKey, err = streamAgg.retainedKey(); err != nil {
					return err
				}
			}
			if k < openKey {
				return moerr.NewInvalidInput(proc.Ctx, "stream agg input not sorted, %d after %d", k, openKey)
			}
			if k != openKey {
				ctr.emit(openKey)
			}
		}
		ctr.open = true
		ctr.count++
		if !vals.IsNull(row) {
			ctr.sum += vals.At(row)
		}
		last, lastPos = k, i
	}
	if lastPos < 0 {
		return nil
	}

	// the open group continues in the next batch, keep this one to read
	// its key from
	ctr.cleanPrev()
	ctr.prev, err = batch.NewRetained(proc.Mp(), bat)
	if err != nil {
		return err
	}
	ctr.prevPos = lastPos
	return nil
}

func (streamAgg *StreamAgg) retainedKey() (int64, error) {
	ctr := &streamAgg.ctr
	row, err := ctr.prev.Row(ctr.prevPos)
	if err != nil {
		return 0, err
	}
	keys, err := batch.GetFixed[int64](ctr.prev.Container(), streamAgg.Key)
	if err != nil {
		return 0, err
	}
	return keys.At(row), nil
}

func (streamAgg *StreamAgg) closeGroup() error {
	if !streamAgg.ctr.open {
		return nil
	}
	key, err := streamAgg.retainedKey()
	if err != nil {
		return err
	}
	streamAgg.ctr.emit(key)
	streamAgg.ctr.cleanPrev()
	return nil
}

func (ctr *container) emit(key int64) {
	ctr.keys = append(ctr.keys, key)
	ctr.counts = append(ctr.counts, ctr.count)
	ctr.sums = append(ctr.sums, ctr.sum)
	ctr.open = false
	ctr.count, ctr.sum = 0, 0
}

// flush moves the closed groups into the reused output container.
func (streamAgg *StreamAgg) flush(proc *process.Process) (*batch.Batch, error) {
	ctr := &streamAgg.ctr
	ctr.out.Reset()
	for _, col := range []struct {
		id   batch.FieldID
		vals []int64
	}{{KeyField, ctr.keys}, {CountField, ctr.counts}, {SumField, ctr.sums}} {
		vec := vector.NewVec(types.T_int64.ToType())
		if err := vector.AppendFixedList(vec, col.vals, nil, proc.Mp()); err != nil {
			vec.Free(proc.Mp())
			return nil, err
		}
		if err := ctr.out.Append(col.id, vec); err != nil {
			vec.Free(proc.Mp())
			return nil, err
		}
	}
	ctr.keys, ctr.counts, ctr.sums = ctr.keys[:0], ctr.counts[:0], ctr.sums[:0]
	return batch.New(Schema, ctr.out, nil)
}
