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

package batch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/selection"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
)

// MaxSlots is the number of batches a 16 bit slot can address.
const MaxSlots = 1 << 16

// SpillStore keeps spilled containers out of the memory pool.
type SpillStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var nextWorkingSetID atomic.Uint64

type wsSlot struct {
	ctr     *Container
	alive   bool
	spilled bool
}

// WorkingSet is a pool of retained containers addressed by slot, the
// batches a ByRow32 selection points into.  A slot stays alive from Add
// until Drop or Release.  While alive it may be spilled to the store and
// restored, its slot number never changes.
type WorkingSet struct {
	id    uint64
	mp    *mpool.MPool
	store SpillStore
	slots []wsSlot
}

// NewWorkingSet creates an empty working set.  store may be nil, Spill
// then fails with ErrNotSupported.
func NewWorkingSet(mp *mpool.MPool, store SpillStore) *WorkingSet {
	return &WorkingSet{
		id:    nextWorkingSetID.Add(1),
		mp:    mp,
		store: store,
	}
}

// Add moves the vectors of src into a new slot.
func (ws *WorkingSet) Add(src *Container) (uint16, error) {
	if len(ws.slots) >= MaxSlots {
		return 0, moerr.NewInvalidInputNoCtx("working set is full, %d slots", MaxSlots)
	}
	ctr, err := TransferFrom(src)
	if err != nil {
		return 0, err
	}
	ws.slots = append(ws.slots, wsSlot{ctr: ctr, alive: true})
	return uint16(len(ws.slots) - 1), nil
}

// Len is the number of slots handed out so far, dropped ones included.
func (ws *WorkingSet) Len() int {
	return len(ws.slots)
}

func (ws *WorkingSet) Alive(slot uint16) bool {
	return int(slot) < len(ws.slots) && ws.slots[slot].alive
}

// Resident reports whether the slot is alive and in memory.
func (ws *WorkingSet) Resident(slot uint16) bool {
	return ws.Alive(slot) && !ws.slots[slot].spilled
}

// Get returns the container of a resident slot.
func (ws *WorkingSet) Get(slot uint16) (*Container, error) {
	if !ws.Alive(slot) {
		return nil, moerr.NewInvalidStateNoCtx("working set slot %d is not alive", slot)
	}
	if ws.slots[slot].spilled {
		return nil, moerr.NewInvalidStateNoCtx("working set slot %d is spilled", slot)
	}
	return ws.slots[slot].ctr, nil
}

// Size is the number of bytes of column data held in memory.
func (ws *WorkingSet) Size() int {
	sz := 0
	for i := range ws.slots {
		if ws.slots[i].alive && !ws.slots[i].spilled {
			sz += ws.slots[i].ctr.Size()
		}
	}
	return sz
}

func (ws *WorkingSet) key(slot uint16) string {
	return fmt.Sprintf("ws/%d/%05d", ws.id, slot)
}

// Spill writes a resident slot to the store and frees its vectors.
func (ws *WorkingSet) Spill(ctx context.Context, slot uint16) error {
	if ws.store == nil {
		return moerr.NewNotSupported(ctx, "spill without a spill store")
	}
	ctr, err := ws.Get(slot)
	if err != nil {
		return err
	}
	data, err := EncodeContainer(ctr)
	if err != nil {
		return err
	}
	if err := ws.store.Put(ctx, ws.key(slot), data); err != nil {
		return err
	}
	ctr.Release()
	ws.slots[slot].spilled = true
	return nil
}

// Restore reads a spilled slot back into memory.
func (ws *WorkingSet) Restore(ctx context.Context, slot uint16) error {
	if !ws.Alive(slot) {
		return moerr.NewInvalidState(ctx, "working set slot %d is not alive", slot)
	}
	if !ws.slots[slot].spilled {
		return nil
	}
	data, err := ws.store.Get(ctx, ws.key(slot))
	if err != nil {
		return err
	}
	ctr, err := DecodeContainer(data, ws.mp)
	if err != nil {
		return err
	}
	if err := ws.store.Delete(ctx, ws.key(slot)); err != nil {
		ctr.Release()
		return err
	}
	ws.slots[slot] = wsSlot{ctr: ctr, alive: true}
	return nil
}

// Drop releases one slot.  Its number is not reused.
func (ws *WorkingSet) Drop(slot uint16) {
	if !ws.Alive(slot) {
		return
	}
	s := &ws.slots[slot]
	if s.spilled {
		_ = ws.store.Delete(context.Background(), ws.key(slot))
	}
	s.ctr.Release()
	*s = wsSlot{}
}

// Release drops every slot.  It is idempotent.
func (ws *WorkingSet) Release() {
	for i := range ws.slots {
		ws.Drop(uint16(i))
	}
	ws.slots = nil
}

// Gather copies the rows of the current window of sel out of the working
// set into a new container with the given fields.  Every slot the window
// addresses must be resident.
func (ws *WorkingSet) Gather(sel *selection.Sel4, fields []Field) (*Container, error) {
	vecs := make([]*vector.Vector, len(fields))
	for i, f := range fields {
		vecs[i] = vector.NewVec(f.Type)
	}
	free := func() {
		for _, vec := range vecs {
			vec.Free(ws.mp)
		}
	}
	for pos := 0; pos < sel.Len(); pos++ {
		slot, row, err := sel.SlotRowAt(pos)
		if err != nil {
			free()
			return nil, err
		}
		ctr, err := ws.Get(slot)
		if err != nil {
			free()
			return nil, err
		}
		for i, f := range fields {
			src, err := ctr.Get(f.ID, f.Type)
			if err != nil {
				free()
				return nil, err
			}
			if err := vecs[i].UnionOne(src, int64(row), ws.mp); err != nil {
				free()
				return nil, err
			}
		}
	}
	out := NewContainer(ws.mp)
	for i, f := range fields {
		if err := out.Append(f.ID, vecs[i]); err != nil {
			out.Release()
			for _, vec := range vecs[i:] {
				vec.Free(ws.mp)
			}
			return nil, err
		}
	}
	return out, nil
}
