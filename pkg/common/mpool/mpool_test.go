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

package mpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
)

func BenchmarkMP(b *testing.B) {
	pool := MustNewZero()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := pool.Alloc(8)
		if err != nil {
			panic(err)
		}
		pool.Free(buf)
	}
}

func TestMPool(t *testing.T) {
	m, err := NewMPool("test-mpool-small", NoLimit)
	require.True(t, err == nil, "new mpool failed %v", err)

	nb0 := m.CurrNB()
	hw0 := m.Stats().HighWaterMark.Load()
	nalloc0 := m.Stats().NumAlloc.Load()
	nfree0 := m.Stats().NumFree.Load()

	require.True(t, nalloc0 == 0, "bad nalloc")
	require.True(t, nfree0 == 0, "bad nfree")

	for i := 1; i <= 1000; i++ {
		a, err := m.Alloc(i * 10)
		require.True(t, err == nil, "alloc failure, %v", err)
		require.True(t, len(a) == i*10, "allocation i size error")
		a[0] = 0xF0
		require.True(t, a[1] == 0, "allocation result not zeroed.")
		a[i*10-1] = 0xBA
		a, err = m.Realloc(a, i*20)
		require.True(t, err == nil, "realloc failure %v", err)
		require.True(t, len(a) == i*20, "allocation i size error")
		require.True(t, a[0] == 0xF0, "reallocation not copied")
		require.True(t, a[i*10-1] == 0xBA, "reallocation not copied")
		require.True(t, a[i*10] == 0, "reallocation not zeroed")
		require.True(t, a[i*20-1] == 0, "reallocation not zeroed")
		m.Free(a)
	}

	require.True(t, nb0 == m.CurrNB(), "leak")
	require.True(t, hw0+1000*30 == m.Stats().HighWaterMark.Load(), "hw")
	require.Equal(t, nalloc0+2000, m.Stats().NumAlloc.Load())
	require.Equal(t, m.Stats().NumAlloc.Load(), m.Stats().NumFree.Load())
}

func TestCapacity(t *testing.T) {
	m := MustNew("test-cap", 100)
	a, err := m.Alloc(60)
	require.NoError(t, err)

	_, err = m.Alloc(41)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, int64(60), m.CurrNB())

	b, err := m.Alloc(40)
	require.NoError(t, err)
	m.Free(a)
	m.Free(b)
	require.Equal(t, int64(0), m.CurrNB())

	_, err = NewMPool("bad", -1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestReallocOOMKeepsOld(t *testing.T) {
	m := MustNew("test-realloc", 100)
	a, err := m.Alloc(60)
	require.NoError(t, err)
	a[0] = 7
	b, err := m.Realloc(a, 80)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, byte(7), b[0])
	m.Free(b)
	require.Equal(t, int64(0), m.CurrNB())
}

func TestFreeChecks(t *testing.T) {
	m := MustNewZero()
	other := MustNewZero()

	m.Free(nil)
	zero, err := m.Alloc(0)
	require.NoError(t, err)
	require.Nil(t, zero)

	a, err := m.Alloc(16)
	require.NoError(t, err)
	require.Panics(t, func() { other.Free(a) })
	m.Free(a)
	require.Panics(t, func() { m.Free(a) })
	require.Panics(t, func() { m.Free(make([]byte, 32)[16:]) })
}

func TestGrow(t *testing.T) {
	require.Equal(t, 64, Grow(0, 1))
	require.Equal(t, 128, Grow(64, 65))
	require.Equal(t, 1000, Grow(64, 1000))
	require.Equal(t, 64, Grow(64, 10))
}

func TestMP(t *testing.T) {
	pool := MustNewZero()
	var wg sync.WaitGroup
	run := func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			buf, err := pool.Alloc(10)
			if err != nil {
				panic(err)
			}
			pool.Free(buf)
		}
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go run()
	}
	wg.Wait()
	require.Equal(t, int64(0), pool.CurrNB())
}
