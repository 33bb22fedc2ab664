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

package process

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
)

// Limitation specifies the resource limitation of a pipeline
type Limitation struct {
	// Size, memory threshold in bytes before an operator spills, 0 means
	// no threshold.
	Size int64
	// BatchRows, max rows for batch.
	BatchRows int64
}

var nextProcessID atomic.Uint64

// Process carries what the operators of one pipeline share.  A pipeline
// runs on a single goroutine, so nothing in it is synchronized.
type Process struct {
	ID     uint64
	Ctx    context.Context
	Cancel context.CancelFunc
	Lim    Limitation

	mp     *mpool.MPool
	logger *zap.Logger
	spill  batch.SpillStore
}

// New creates a process.  logger may be nil for a no-op logger and store
// may be nil if spilling is disabled.
func New(ctx context.Context, mp *mpool.MPool, logger *zap.Logger, store batch.SpillStore) *Process {
	ctx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = zap.NewNop()
	}
	id := nextProcessID.Add(1)
	return &Process{
		ID:     id,
		Ctx:    ctx,
		Cancel: cancel,
		Lim: Limitation{
			BatchRows: 8192,
		},
		mp:     mp,
		logger: logger.With(zap.Uint64("proc", id)),
		spill:  store,
	}
}

func (proc *Process) Mp() *mpool.MPool {
	return proc.mp
}

func (proc *Process) Logger() *zap.Logger {
	return proc.logger
}

// SpillStore returns nil when spilling is disabled.
func (proc *Process) SpillStore() batch.SpillStore {
	return proc.spill
}

// BatchRows is the row limit of emitted batches, clamped to what a row
// selection can address.
func (proc *Process) BatchRows() int {
	rows := int(proc.Lim.BatchRows)
	if rows <= 0 || rows > batch.MaxSlots {
		return batch.MaxSlots
	}
	return rows
}

// OverLimit reports whether size bytes of operator state passed Lim.Size.
func (proc *Process) OverLimit(size int) bool {
	return proc.Lim.Size > 0 && int64(size) > proc.Lim.Size
}

// Free cancels the context of the process.
func (proc *Process) Free() {
	if proc.Cancel != nil {
		proc.Cancel()
	}
}
