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

package order

import (
	"github.com/google/btree"

	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

var _ vm.Operator = new(Order)

const btreeDegree = 32

// sortItem is one input row.  NULL keys sort first ascending and last
// descending, equal keys keep input order.
type sortItem struct {
	key  int64
	null bool
	desc bool
	slot uint16
	row  uint16
}

func (a sortItem) Less(than btree.Item) bool {
	b := than.(sortItem)
	if a.null != b.null {
		return a.null != a.desc
	}
	if !a.null && a.key != b.key {
		return (a.key < b.key) != a.desc
	}
	if a.slot != b.slot {
		return a.slot < b.slot
	}
	return a.row < b.row
}

type container struct {
	state vm.CtrState
	// schema of the output, the input schema in ROW32_PACKED mode
	schema *batch.Schema
	ws     *batch.WorkingSet
	tree   *btree.BTree
	sels   *selection.Sel4
	// out carries no columns, the rows of an output batch are in ws
	out     *batch.Container
	started bool
	spilled int
}

// Order sorts its whole input on the int64 field Key.  The input batches
// are retained in a working set and never copied, each output batch is a
// ByRow32 window of at most proc.BatchRows() (slot, row) pairs into it.
// The slots addressed by the window are resident when the batch is
// returned, read them through WorkingSet.
type Order struct {
	ctr  container
	Key  batch.FieldID
	Desc bool

	vm.OperatorBase
}

func NewArgument() *Order {
	return &Order{}
}

func (order *Order) WithKey(id batch.FieldID) *Order {
	order.Key = id
	return order
}

func (order *Order) WithDesc(desc bool) *Order {
	order.Desc = desc
	return order
}

// WorkingSet holds the rows the output selections point into.  It is nil
// before the first call.
func (order *Order) WorkingSet() *batch.WorkingSet {
	return order.ctr.ws
}

func (order *Order) Reset(proc *process.Process, pipelineFailed bool, err error) {
	order.ctr.cleanState()
	order.ctr.state = vm.Build
}

func (order *Order) Free(proc *process.Process, pipelineFailed bool, err error) {
	order.ctr.cleanState()
	if order.ctr.out != nil {
		order.ctr.out.Release()
		order.ctr.out = nil
	}
}

func (ctr *container) cleanState() {
	if ctr.ws != nil {
		ctr.ws.Release()
		ctr.ws = nil
	}
	if ctr.tree != nil {
		ctr.tree.Clear(false)
		ctr.tree = nil
	}
	if ctr.sels != nil {
		ctr.sels.Release()
		ctr.sels = nil
	}
	ctr.schema = nil
	ctr.started = false
	ctr.spilled = 0
}
