// Copyright 2021 - 2022 Matrix Origin
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

// Package mpool is the allocator behind every column vector and selection
// index buffer. Each allocation carries a small header so that Free can
// detect double frees and frees into the wrong pool.
package mpool

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
)

const (
	kMemHdrSz = 16

	kStateAlloc uint8 = 1
	kStateFree  uint8 = 2

	// NoLimit is the capacity of a pool that never reports OOM.
	NoLimit int64 = 0
)

var kGuard = [3]uint8{'m', 'p', 'l'}

var nextPoolID atomic.Uint32

type memHdr struct {
	allocSz int64
	poolID  uint32
	guard   [3]uint8
	state   uint8
}

func init() {
	if unsafe.Sizeof(memHdr{}) != kMemHdrSz {
		panic("mpool: bad header size")
	}
}

// MPoolStats is the allocation accounting of a pool.
type MPoolStats struct {
	NumAlloc      atomic.Int64 // number of allocations
	NumFree       atomic.Int64 // number of frees
	NumCurrBytes  atomic.Int64 // current number of bytes
	HighWaterMark atomic.Int64 // high water mark of NumCurrBytes
}

func (s *MPoolStats) String() string {
	return fmt.Sprintf("alloc %d, free %d, curr %d bytes, hwm %d bytes",
		s.NumAlloc.Load(), s.NumFree.Load(), s.NumCurrBytes.Load(), s.HighWaterMark.Load())
}

func (s *MPoolStats) recordAlloc(sz int64) int64 {
	s.NumAlloc.Add(1)
	curr := s.NumCurrBytes.Add(sz)
	for {
		hwm := s.HighWaterMark.Load()
		if curr <= hwm || s.HighWaterMark.CompareAndSwap(hwm, curr) {
			break
		}
	}
	return curr
}

func (s *MPoolStats) recordFree(sz int64) {
	s.NumFree.Add(1)
	s.NumCurrBytes.Add(-sz)
}

// MPool is a capacity bounded allocator.  It is safe for concurrent use,
// although a single pipeline only ever touches it from one goroutine.
type MPool struct {
	id    uint32
	tag   string
	cap   int64
	stats MPoolStats
}

// NewMPool creates a pool.  A capacity of NoLimit disables the OOM check.
func NewMPool(tag string, cap int64) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewBadConfig(context.TODO(), "mpool %s capacity %d", tag, cap)
	}
	return &MPool{
		id:  nextPoolID.Add(1),
		tag: tag,
		cap: cap,
	}, nil
}

func MustNew(tag string, cap int64) *MPool {
	mp, err := NewMPool(tag, cap)
	if err != nil {
		panic(err)
	}
	return mp
}

// MustNewZero returns an unlimited pool, used mostly by tests.
func MustNewZero() *MPool {
	return MustNew("zero", NoLimit)
}

func (mp *MPool) Tag() string {
	return mp.tag
}

func (mp *MPool) Cap() int64 {
	return mp.cap
}

func (mp *MPool) Stats() *MPoolStats {
	return &mp.stats
}

// CurrNB returns the number of bytes currently allocated from the pool.
func (mp *MPool) CurrNB() int64 {
	return mp.stats.NumCurrBytes.Load()
}

func (mp *MPool) String() string {
	return fmt.Sprintf("mpool %s (cap %d): %s", mp.tag, mp.cap, mp.stats.String())
}

// Alloc returns a zeroed buffer of sz bytes.  It fails with ErrOOM when the
// pool capacity would be exceeded, in which case nothing is allocated.
func (mp *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInternalErrorNoCtx("mpool %s: invalid alloc size %d", mp.tag, sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if mp.cap != NoLimit {
		if mp.stats.NumCurrBytes.Load()+int64(sz) > mp.cap {
			return nil, moerr.NewOOMNoCtx()
		}
	}

	buf := make([]byte, kMemHdrSz+sz)
	hdr := (*memHdr)(unsafe.Pointer(&buf[0]))
	hdr.allocSz = int64(sz)
	hdr.poolID = mp.id
	hdr.guard = kGuard
	hdr.state = kStateAlloc
	mp.stats.recordAlloc(int64(sz))
	return buf[kMemHdrSz : kMemHdrSz+sz : kMemHdrSz+sz], nil
}

func header(bs []byte) *memHdr {
	ptr := unsafe.Pointer(unsafe.SliceData(bs))
	return (*memHdr)(unsafe.Add(ptr, -kMemHdrSz))
}

// Free returns bs to the pool.  bs must be exactly a slice returned by
// Alloc/Realloc of this pool.  Freeing nil is a no-op, freeing twice panics.
func (mp *MPool) Free(bs []byte) {
	if cap(bs) == 0 {
		return
	}
	hdr := header(bs[:1])
	if hdr.guard != kGuard {
		panic(moerr.NewInternalErrorNoCtx("mpool %s: free of foreign memory", mp.tag))
	}
	if hdr.poolID != mp.id {
		panic(moerr.NewInternalErrorNoCtx("mpool %s: free to wrong pool", mp.tag))
	}
	if hdr.state != kStateAlloc {
		panic(moerr.NewInternalErrorNoCtx("mpool %s: double free", mp.tag))
	}
	hdr.state = kStateFree
	mp.stats.recordFree(hdr.allocSz)
}

// Realloc grows old to sz bytes, copying its content.  The grown tail is
// zeroed.  old is freed only if a new buffer was allocated.
func (mp *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if cap(old) == 0 {
		return mp.Alloc(sz)
	}
	if sz <= cap(old) {
		return old[:sz], nil
	}
	buf, err := mp.Alloc(sz)
	if err != nil {
		return old, err
	}
	copy(buf, old)
	mp.Free(old)
	return buf, nil
}

// Grow returns a capacity that is at least size, doubling small buffers.
func Grow(curr, size int) int {
	if size <= curr {
		return curr
	}
	newcap := curr + curr
	if newcap < 64 {
		newcap = 64
	}
	if size > newcap {
		return size
	}
	return newcap
}
