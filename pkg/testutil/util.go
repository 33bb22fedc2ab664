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

package testutil

import (
	"context"

	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

func NewProcess() *process.Process {
	return NewProcessWithMPool("", mpool.MustNewZero())
}

// NewProcessWithMPool returns a process without logger or spill store.
func NewProcessWithMPool(_ string, mp *mpool.MPool) *process.Process {
	proc := process.New(context.Background(), mp, nil, nil)
	proc.Lim.BatchRows = 1 << 10
	return proc
}

var NewProc = NewProcess

// NewInt64Vector builds an int64 vector, rows listed in nulls are NULL.
func NewInt64Vector(mp *mpool.MPool, vals []int64, nulls ...int) *vector.Vector {
	vec := vector.NewVec(types.T_int64.ToType())
	isNulls := make([]bool, len(vals))
	for _, i := range nulls {
		isNulls[i] = true
	}
	if err := vector.AppendFixedList(vec, vals, isNulls, mp); err != nil {
		panic(err)
	}
	return vec
}

func NewFloat64Vector(mp *mpool.MPool, vals []float64) *vector.Vector {
	vec := vector.NewVec(types.T_float64.ToType())
	if err := vector.AppendFixedList(vec, vals, nil, mp); err != nil {
		panic(err)
	}
	return vec
}

func NewStringVector(mp *mpool.MPool, vals []string) *vector.Vector {
	vec := vector.NewVec(types.T_varchar.ToType())
	if err := vector.AppendStringList(vec, vals, nil, mp); err != nil {
		panic(err)
	}
	return vec
}

// NewContainer appends vecs under field ids 1, 2, ...
func NewContainer(mp *mpool.MPool, vecs ...*vector.Vector) *batch.Container {
	c := batch.NewContainer(mp)
	for i, vec := range vecs {
		if err := c.Append(batch.FieldID(i+1), vec); err != nil {
			panic(err)
		}
	}
	return c
}

// NewBatch is NewContainer wrapped in a batch without selection.
func NewBatch(schema *batch.Schema, mp *mpool.MPool, vecs ...*vector.Vector) *batch.Batch {
	bat, err := batch.New(schema, NewContainer(mp, vecs...), nil)
	if err != nil {
		panic(err)
	}
	return bat
}
