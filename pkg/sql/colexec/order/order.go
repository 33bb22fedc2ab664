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
	"bytes"
	"fmt"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
)

const opName = "order"

var newSel4 = selection.NewSel4

func (order *Order) String(buf *bytes.Buffer) {
	buf.WriteString(opName)
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	buf.WriteString(fmt.Sprintf(": order by #%d %s", order.Key, dir))
}

func (order *Order) Prepare(proc *process.Process) error {
	ctr := &order.ctr
	if ctr.out == nil {
		ctr.out = batch.NewContainer(proc.Mp())
	}
	if ctr.ws == nil {
		ctr.ws = batch.NewWorkingSet(proc.Mp(), proc.SpillStore())
		ctr.tree = btree.New(btreeDegree)
	}
	return nil
}

func (order *Order) Call(proc *process.Process) (vm.CallResult, error) {
	ctr := &order.ctr
	result := vm.NewCallResult()
	for {
		switch ctr.state {
		case vm.Build:
			end, err := order.build(proc)
			if err != nil {
				return result, err
			}
			if end {
				if err := order.sort(proc); err != nil {
					return result, err
				}
				ctr.state = vm.Eval
			}

		case vm.Eval:
			if !ctr.nextWindow(proc.BatchRows()) {
				ctr.state = vm.End
				continue
			}
			if err := ctr.makeResident(proc); err != nil {
				return result, err
			}
			ctr.out.Reset()
			bat, err := batch.New(ctr.schema, ctr.out, batch.ByRow32{SV: ctr.sels})
			if err != nil {
				return result, err
			}
			result.Batch = bat
			return result, nil

		default:
			result.Status = vm.ExecStop
			return result, nil
		}
	}
}

// build retains one input batch, end is true once the input is exhausted.
func (order *Order) build(proc *process.Process) (end bool, err error) {
	ctr := &order.ctr
	input, err := vm.ChildrenCall(order.GetChildren(0), proc)
	if err != nil {
		return false, err
	}
	bat := input.Batch
	if bat == nil {
		return true, nil
	}
	if bat.RowCount() == 0 {
		return false, nil
	}
	if bat.Container().RowCount() > batch.MaxSlots {
		return false, moerr.NewInvalidInput(proc.Ctx, "order input batch of %d rows", bat.Container().RowCount())
	}

	schema := bat.Schema().WithMode(batch.SelectionRow32Packed)
	if ctr.schema == nil {
		ctr.schema = schema
	} else if !ctr.schema.Equal(schema) {
		return false, moerr.NewInvalidInput(proc.Ctx, "order input schema changed from %s to %s", ctr.schema, schema)
	}

	keys, err := batch.GetFixed[int64](bat.Container(), order.Key)
	if err != nil {
		return false, err
	}
	items := make([]sortItem, bat.RowCount())
	for i := range items {
		row, err := bat.Row(i)
		if err != nil {
			return false, err
		}
		items[i] = sortItem{
			key:  keys.At(row),
			null: keys.IsNull(row),
			desc: order.Desc,
			row:  uint16(row),
		}
	}

	slot, err := ctr.ws.Add(bat.Container())
	if err != nil {
		return false, err
	}
	for i := range items {
		items[i].slot = slot
		ctr.tree.ReplaceOrInsert(items[i])
	}

	if proc.OverLimit(ctr.ws.Size()) && proc.SpillStore() != nil {
		if err := ctr.spillResident(proc, nil); err != nil {
			return false, err
		}
	}
	return false, nil
}

// sort drains the tree into the output selection.
func (order *Order) sort(proc *process.Process) error {
	ctr := &order.ctr
	sels, err := newSel4(proc.Mp(), ctr.tree.Len())
	if err != nil && moerr.IsMoErrCode(err, moerr.ErrOOM) && proc.SpillStore() != nil {
		if err = ctr.spillResident(proc, nil); err != nil {
			return err
		}
		sels, err = newSel4(proc.Mp(), ctr.tree.Len())
	}
	if err != nil {
		return err
	}
	ctr.tree.Ascend(func(i btree.Item) bool {
		it := i.(sortItem)
		err = sels.Append(it.slot, it.row)
		return err == nil
	})
	if err != nil {
		sels.Release()
		return err
	}
	ctr.tree.Clear(false)
	ctr.sels = sels
	proc.Logger().Debug("order sorted",
		zap.Int("rows", sels.Total()),
		zap.Int("slots", ctr.ws.Len()),
		zap.Int("spilled", ctr.spilled))
	return nil
}

func (ctr *container) nextWindow(batchRows int) bool {
	if ctr.sels == nil || ctr.sels.Total() == 0 {
		return false
	}
	if !ctr.started {
		ctr.started = true
		return ctr.sels.SetWindow(0, min(batchRows, ctr.sels.Total())) == nil
	}
	return ctr.sels.Next(batchRows)
}

// makeResident restores every slot the current window addresses.  When
// memory runs out the resident slots outside the window are spilled first.
func (ctr *container) makeResident(proc *process.Process) error {
	inWindow := make(map[uint16]struct{})
	for pos := 0; pos < ctr.sels.Len(); pos++ {
		slot, _, err := ctr.sels.SlotRowAt(pos)
		if err != nil {
			return err
		}
		inWindow[slot] = struct{}{}
	}
	for slot := range inWindow {
		err := ctr.ws.Restore(proc.Ctx, slot)
		if err != nil && moerr.IsMoErrCode(err, moerr.ErrOOM) {
			if err = ctr.spillResident(proc, inWindow); err != nil {
				return err
			}
			err = ctr.ws.Restore(proc.Ctx, slot)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// spillResident spills every resident slot not in keep.
func (ctr *container) spillResident(proc *process.Process, keep map[uint16]struct{}) error {
	n, before := 0, ctr.ws.Size()
	for i := 0; i < ctr.ws.Len(); i++ {
		slot := uint16(i)
		if _, ok := keep[slot]; ok || !ctr.ws.Resident(slot) {
			continue
		}
		if err := ctr.ws.Spill(proc.Ctx, slot); err != nil {
			return err
		}
		n++
	}
	ctr.spilled += n
	proc.Logger().Info("order spilled",
		zap.Int("slots", n),
		zap.Int("before", before),
		zap.Int("after", ctr.ws.Size()))
	return nil
}
