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

package colexec

import (
	"bytes"

	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

const (
	MockKey   batch.FieldID = 1
	MockValue batch.FieldID = 2
	MockName  batch.FieldID = 3
)

// MockSchema is the schema of the batches built by MakeMockBatch.
var MockSchema = batch.MustSchema(batch.SelectionNone,
	batch.Field{ID: MockKey, Name: "k", Type: types.T_int64.ToType()},
	batch.Field{ID: MockValue, Name: "v", Type: types.T_int64.ToType(), Nullable: true},
	batch.Field{ID: MockName, Name: "s", Type: types.T_varchar.ToType()},
)

// MakeMockBatch builds a batch of MockSchema, v is ten times k and NULL
// when k is a multiple of 7.
func MakeMockBatch(mp *mpool.MPool, keys []int64) *batch.Batch {
	k := vector.NewVec(types.T_int64.ToType())
	v := vector.NewVec(types.T_int64.ToType())
	s := vector.NewVec(types.T_varchar.ToType())
	for _, key := range keys {
		if err := vector.AppendFixed(k, key, false, mp); err != nil {
			panic(err)
		}
		if err := vector.AppendFixed(v, key*10, key%7 == 0, mp); err != nil {
			panic(err)
		}
		if err := vector.AppendBytes(s, []byte{byte('a' + key%26)}, false, mp); err != nil {
			panic(err)
		}
	}
	ctr := batch.NewContainer(mp)
	for _, e := range []struct {
		id  batch.FieldID
		vec *vector.Vector
	}{{MockKey, k}, {MockValue, v}, {MockName, s}} {
		if err := ctr.Append(e.id, e.vec); err != nil {
			panic(err)
		}
	}
	bat, err := batch.New(MockSchema, ctr, nil)
	if err != nil {
		panic(err)
	}
	return bat
}

// MakeMockBatchs builds one mock batch per key list.
func MakeMockBatchs(mp *mpool.MPool, keys ...[]int64) []*batch.Batch {
	bats := make([]*batch.Batch, len(keys))
	for i := range keys {
		bats[i] = MakeMockBatch(mp, keys[i])
	}
	return bats
}

var _ vm.Operator = new(MockOperator)

// MockOperator hands out a fixed list of batches, one per call.  It owns
// them and releases them on Free.
type MockOperator struct {
	vm.OperatorBase
	batchs  []*batch.Batch
	current int
}

func NewMockOperator() *MockOperator {
	return &MockOperator{}
}

func (op *MockOperator) WithBatchs(batchs []*batch.Batch) *MockOperator {
	op.batchs = batchs
	return op
}

func (op *MockOperator) String(buf *bytes.Buffer) {
	buf.WriteString("mock_operator")
}

func (op *MockOperator) Prepare(_ *process.Process) error {
	return nil
}

func (op *MockOperator) Call(_ *process.Process) (vm.CallResult, error) {
	result := vm.NewCallResult()
	if op.current >= len(op.batchs) {
		result.Status = vm.ExecStop
		return result, nil
	}
	result.Batch = op.batchs[op.current]
	op.current++
	return result, nil
}

func (op *MockOperator) Reset(_ *process.Process, _ bool, _ error) {
	op.current = 0
}

func (op *MockOperator) Free(_ *process.Process, _ bool, _ error) {
	for _, bat := range op.batchs {
		bat.Release()
	}
	op.batchs = nil
	op.current = 0
}
