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

package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/config"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
	"github.com/matrixorigin/mobatch/pkg/sql/colexec/filter"
	"github.com/matrixorigin/mobatch/pkg/sql/colexec/order"
	"github.com/matrixorigin/mobatch/pkg/sql/colexec/streamagg"
	"github.com/matrixorigin/mobatch/pkg/sql/colexec/valuescan"
	"github.com/matrixorigin/mobatch/pkg/vm"
	"github.com/matrixorigin/mobatch/pkg/vm/process"
	"github.com/matrixorigin/mobatch/pkg/vm/spill"
)

const (
	keyField   batch.FieldID = 1
	valueField batch.FieldID = 2
	tagField   batch.FieldID = 3

	maxValue  = 1000
	nullEvery = 17
)

var inputSchema = batch.MustSchema(batch.SelectionNone,
	batch.Field{ID: keyField, Name: "k", Type: types.T_int64.ToType()},
	batch.Field{ID: valueField, Name: "v", Type: types.T_int64.ToType(), Nullable: true},
	batch.Field{ID: tagField, Name: "tag", Type: types.T_varchar.ToType()},
)

type pipelineKind int

const (
	aggPipeline pipelineKind = iota
	orderPipeline
)

func (k pipelineKind) String() string {
	if k == aggPipeline {
		return "agg"
	}
	return "order"
}

type summary struct {
	kind    pipelineKind
	id      int
	batches int
	rows    int64
	groups  int
	sum     int64
	first   int64
	last    int64
	sorted  bool
	elapsed time.Duration
}

func (s *summary) fields() []zap.Field {
	fields := []zap.Field{
		zap.Stringer("kind", s.kind),
		zap.Int("id", s.id),
		zap.Int("batches", s.batches),
		zap.Int64("rows", s.rows),
		zap.Duration("elapsed", s.elapsed),
	}
	if s.kind == aggPipeline {
		return append(fields, zap.Int("groups", s.groups), zap.Int64("sum", s.sum))
	}
	return append(fields, zap.Int64("first", s.first), zap.Int64("last", s.last), zap.Bool("sorted", s.sorted))
}

// generate builds rows generated rows in batches of batchRows.  Keys are
// ascending when sorted is set and random otherwise.
func generate(mp *mpool.MPool, cfg *config.Config, sorted bool, seed int64) (bats []*batch.Batch, err error) {
	defer func() {
		if err != nil {
			for _, bat := range bats {
				bat.Release()
			}
			bats = nil
		}
	}()
	rnd := rand.New(rand.NewSource(seed))
	rows := cfg.Pipeline.InputRows
	for start := 0; start < rows; start += cfg.Batch.Rows {
		end := min(start+cfg.Batch.Rows, rows)
		bat, err := generateBatch(mp, rnd, cfg, sorted, start, end)
		if err != nil {
			return bats, err
		}
		bats = append(bats, bat)
	}
	return bats, nil
}

func generateBatch(mp *mpool.MPool, rnd *rand.Rand, cfg *config.Config, sorted bool, start, end int) (*batch.Batch, error) {
	rows, keys := int64(cfg.Pipeline.InputRows), int64(cfg.Pipeline.Keys)
	k := vector.NewVec(types.T_int64.ToType())
	v := vector.NewVec(types.T_int64.ToType())
	tag := vector.NewVec(types.T_varchar.ToType())
	vecs := []*vector.Vector{k, v, tag}
	free := func() {
		for _, vec := range vecs {
			vec.Free(mp)
		}
	}

	for i := start; i < end; i++ {
		key := rnd.Int63n(keys)
		if sorted {
			key = int64(i) * keys / rows
		}
		if err := vector.AppendFixed(k, key, false, mp); err != nil {
			free()
			return nil, err
		}
		if err := vector.AppendFixed(v, rnd.Int63n(maxValue), i%nullEvery == nullEvery-1, mp); err != nil {
			free()
			return nil, err
		}
		if err := vector.AppendBytes(tag, []byte(fmt.Sprintf("row-%d", i)), false, mp); err != nil {
			free()
			return nil, err
		}
	}

	ctr := batch.NewContainer(mp)
	for i, id := range []batch.FieldID{keyField, valueField, tagField} {
		if err := ctr.Append(id, vecs[i]); err != nil {
			ctr.Release()
			for _, vec := range vecs[i:] {
				vec.Free(mp)
			}
			return nil, err
		}
	}
	return batch.New(inputSchema, ctr, nil)
}

// newPipeline assembles the operator tree of kind over input.
func newPipeline(kind pipelineKind, cfg *config.Config, input []*batch.Batch) (root vm.Operator, ord *order.Order) {
	scan := &valuescan.ValueScan{Batchs: input}
	if kind == aggPipeline {
		f := filter.NewArgument().WithField(valueField).WithBelow(cfg.Pipeline.FilterBelow)
		f.AppendChild(scan)
		agg := streamagg.NewArgument().WithKey(keyField).WithValue(valueField)
		agg.AppendChild(f)
		return agg, nil
	}
	ord = order.NewArgument().WithKey(keyField)
	ord.AppendChild(scan)
	return ord, ord
}

func runPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, store batch.SpillStore, kind pipelineKind, id int) (*summary, error) {
	name := fmt.Sprintf("%s-%d", kind, id)
	mp, err := mpool.NewMPool(name, cfg.MPool.Capacity)
	if err != nil {
		return nil, err
	}
	proc := process.New(ctx, mp, logger.With(zap.String("pipeline", name)), store)
	defer proc.Free()
	proc.Lim.BatchRows = int64(cfg.Batch.Rows)
	proc.Lim.Size = cfg.Spill.Threshold

	input, err := generate(mp, cfg, kind == aggPipeline, int64(id))
	if err != nil {
		return nil, err
	}
	root, ord := newPipeline(kind, cfg, input)

	s := &summary{kind: kind, id: id, sorted: true}
	begin := time.Now()
	var sink func(bat *batch.Batch) error
	if kind == aggPipeline {
		sink = func(bat *batch.Batch) error {
			counts, err := batch.GetFixed[int64](bat.Container(), streamagg.CountField)
			if err != nil {
				return err
			}
			sums, err := batch.GetFixed[int64](bat.Container(), streamagg.SumField)
			if err != nil {
				return err
			}
			s.batches++
			s.groups += bat.RowCount()
			for i := 0; i < bat.RowCount(); i++ {
				s.rows += counts.At(i)
				s.sum += sums.At(i)
			}
			return nil
		}
	} else {
		keyOnly := []batch.Field{inputSchema.Field(0)}
		sink = func(bat *batch.Batch) error {
			sel, ok := bat.Selection().(batch.ByRow32)
			if !ok {
				return moerr.NewInternalError(proc.Ctx, "order returned a %s batch", batch.ModeOf(bat.Selection()))
			}
			ctr, err := ord.WorkingSet().Gather(sel.SV, keyOnly)
			if err != nil {
				return err
			}
			defer ctr.Release()
			keys, err := batch.GetFixed[int64](ctr, keyField)
			if err != nil {
				return err
			}
			for i, key := range keys.Values() {
				if s.rows == 0 && i == 0 {
					s.first = key
				} else if key < s.last {
					s.sorted = false
				}
				s.last = key
			}
			s.batches++
			s.rows += int64(keys.Len())
			return nil
		}
	}
	if err := vm.Run(root, proc, sink); err != nil {
		return nil, err
	}
	s.elapsed = time.Since(begin)
	if nb := mp.CurrNB(); nb != 0 {
		proc.Logger().Warn("pipeline leaked memory", zap.Int64("bytes", nb))
	}
	return s, nil
}

// run executes an agg and an order pipeline per worker on an ants pool.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var store batch.SpillStore
	if cfg.Spill.Enable {
		s, err := spill.NewStore(cfg.Spill.Dir)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	pool, err := ants.NewPool(cfg.Pipeline.Workers, ants.WithPanicHandler(func(v interface{}) {
		logger.Error("pipeline worker panic", zap.Any("panic", v))
	}))
	if err != nil {
		return moerr.NewInternalError(ctx, "create worker pool: %v", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for id := 0; id < cfg.Pipeline.Workers; id++ {
		for _, kind := range []pipelineKind{aggPipeline, orderPipeline} {
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				s, err := runPipeline(ctx, cfg, logger, store, kind, id)
				if err != nil {
					logger.Error("pipeline failed", zap.Stringer("kind", kind), zap.Int("id", id), zap.Error(err))
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				logger.Info("pipeline done", s.fields()...)
			})
			if err != nil {
				wg.Done()
				wg.Wait()
				return moerr.NewInternalError(ctx, "submit pipeline: %v", err)
			}
		}
	}
	wg.Wait()
	return firstErr
}
