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
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

var _ vm.Operator = new(StreamAgg)

const (
	KeyField   batch.FieldID = 1
	CountField batch.FieldID = 2
	SumField   batch.FieldID = 3
)

// Schema of the batches a StreamAgg returns.
var Schema = batch.MustSchema(batch.SelectionNone,
	batch.Field{ID: KeyField, Name: "key", Type: types.T_int64.ToType()},
	batch.Field{ID: CountField, Name: "count", Type: types.T_int64.ToType()},
	batch.Field{ID: SumField, Name: "sum", Type: types.T_int64.ToType()},
)

type container struct {
	state vm.CtrState

	// prev is the last input batch with a non NULL key, row prevPos of it
	// holds the key of the open group.
	prev    *batch.Retained
	prevPos int

	open  bool
	count int64
	sum   int64

	// groups closed but not yet returned
	keys   []int64
	counts []int64
	sums   []int64

	out *batch.Container
}

// StreamAgg computes count(*) and sum(Value) per Key over input sorted on
// Key.  Rows with a NULL key are skipped, NULL values are counted but not
// summed.
type StreamAgg struct {
	ctr   container
	Key   batch.FieldID
	Value batch.FieldID

	vm.OperatorBase
}

func NewArgument() *StreamAgg {
	return &StreamAgg{}
}

func (streamAgg *StreamAgg) WithKey(id batch.FieldID) *StreamAgg {
	streamAgg.Key = id
	return streamAgg
}

func (streamAgg *StreamAgg) WithValue(id batch.FieldID) *StreamAgg {
	streamAgg.Value = id
	return streamAgg
}

func (streamAgg *StreamAgg) Reset(proc *process.Process, pipelineFailed bool, err error) {
	ctr := &streamAgg.ctr
	ctr.cleanPrev()
	ctr.state = vm.Build
	ctr.open = false
	ctr.count, ctr.sum = 0, 0
	ctr.keys, ctr.counts, ctr.sums = ctr.keys[:0], ctr.counts[:0], ctr.sums[:0]
	if ctr.out != nil {
		ctr.out.Reset()
	}
}

func (streamAgg *StreamAgg) Free(proc *process.Process, pipelineFailed bool, err error) {
	ctr := &streamAgg.ctr
	ctr.cleanPrev()
	if ctr.out != nil {
		ctr.out.Release()
		ctr.out = nil
	}
	ctr.keys, ctr.counts, ctr.sums = nil, nil, nil
}

func (ctr *container) cleanPrev() {
	if ctr.prev != nil {
		ctr.prev.Release()
		ctr.prev = nil
	}
	ctr.prevPos = 0
}
