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
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

var _ vm.Operator = new(Filter)

type container struct {
	sels *selection.Sel2
	// output schema cached per input schema
	in, out *batch.Schema
}

// Filter keeps the rows whose int64 field Field is not NULL and below
// Below.  Its output selects rows of the input container through a
// selection buffer owned by the filter, downstream gets a view of it.
type Filter struct {
	ctr   container
	Field batch.FieldID
	Below int64

	vm.OperatorBase
}

func NewArgument() *Filter {
	return &Filter{}
}

func (filter *Filter) WithField(id batch.FieldID) *Filter {
	filter.Field = id
	return filter
}

func (filter *Filter) WithBelow(below int64) *Filter {
	filter.Below = below
	return filter
}

func (filter *Filter) Reset(proc *process.Process, pipelineFailed bool, err error) {
	if filter.ctr.sels != nil {
		filter.ctr.sels.Reset()
	}
}

func (filter *Filter) Free(proc *process.Process, pipelineFailed bool, err error) {
	if filter.ctr.sels != nil {
		filter.ctr.sels.Release()
		filter.ctr.sels = nil
	}
	filter.ctr.in, filter.ctr.out = nil, nil
}
