// Copyright 2022 Matrix Origin
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

package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
)

func TestSel2View(t *testing.T) {
	idx := []uint16{4, 1, 1, 7}
	s := NewSel2View(idx)
	require.False(t, s.Owned())
	require.Equal(t, 4, s.Len())
	v, err := s.IndexAt(2)
	require.NoError(t, err)
	require.Equal(t, uint16(1), v)
	_, err = s.IndexAt(4)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrIndexOutOfBounds))
	require.True(t, moerr.IsMoErrCode(s.Append(3), moerr.ErrInvalidState))

	// a view reflects writes to the underlying memory
	idx[0] = 9
	v, _ = s.IndexAt(0)
	require.Equal(t, uint16(9), v)

	s.Release()
	s.Release()
	require.Equal(t, 0, s.Len())
}

func TestSel2Owned(t *testing.T) {
	mp := mpool.MustNewZero()
	s, err := NewSel2(mp, 2)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Append(uint16(i)))
	}
	require.Equal(t, 100, s.Len())
	require.NoError(t, s.Set(3, 42))
	require.Equal(t, uint16(42), s.Indices()[3])
	require.True(t, moerr.IsMoErrCode(s.Set(100, 1), moerr.ErrIndexOutOfBounds))

	s.Reset()
	require.Equal(t, 0, s.Len())
	require.NoError(t, s.Append(5))
	require.Equal(t, "sel2[5]", s.String())

	s.Release()
	s.Release()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSel2CloneIndependent(t *testing.T) {
	mp := mpool.MustNewZero()
	src, err := NewSel2(mp, 4)
	require.NoError(t, err)
	for _, v := range []uint16{0, 2, 4} {
		require.NoError(t, src.Append(v))
	}
	c, err := src.Clone(mp)
	require.NoError(t, err)
	require.True(t, c.Owned())

	// producer reuses its buffer for the next batch
	src.Reset()
	require.NoError(t, src.Append(1))
	require.Equal(t, []uint16{0, 2, 4}, c.Indices())

	src.Release()
	require.Equal(t, []uint16{0, 2, 4}, c.Indices())
	c.Release()
	require.Equal(t, int64(0), mp.CurrNB())

	// cloning an empty selection
	empty := NewSel2View(nil)
	c, err = empty.Clone(mp)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())
	c.Release()
}

func TestSel2OOM(t *testing.T) {
	mp := mpool.MustNew("small", 100)
	_, err := NewSel2(mp, 51)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))

	src := NewSel2View(make([]uint16, 60))
	_, err = src.Clone(mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestPack(t *testing.T) {
	v := Pack(3, 65535)
	require.Equal(t, uint32(3<<16|65535), v)
	slot, row := Unpack(v)
	require.Equal(t, uint16(3), slot)
	require.Equal(t, uint16(65535), row)
}

func TestSel4Window(t *testing.T) {
	mp := mpool.MustNewZero()
	s, err := NewSel4(mp, 0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(uint16(i%3), uint16(i)))
	}
	require.Equal(t, 10, s.Len())
	require.Equal(t, 10, s.Total())

	require.NoError(t, s.SetWindow(0, 4))
	require.Equal(t, 4, s.Len())
	require.False(t, s.Next(0))
	require.False(t, s.Next(-1))
	require.Equal(t, 4, s.Len())
	slot, row, err := s.SlotRowAt(3)
	require.NoError(t, err)
	require.Equal(t, uint16(0), slot)
	require.Equal(t, uint16(3), row)
	_, _, err = s.SlotRowAt(4)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrIndexOutOfBounds))

	require.True(t, s.Next(4))
	slot, row, _ = s.SlotRowAt(0)
	require.Equal(t, uint16(1), slot)
	require.Equal(t, uint16(4), row)

	require.True(t, s.Next(4))
	require.Equal(t, 2, s.Len())
	require.Equal(t, "sel4[2:8 0:9]", s.String())
	require.False(t, s.Next(4))
	require.Equal(t, 2, s.Len())

	require.True(t, moerr.IsMoErrCode(s.SetWindow(8, 3), moerr.ErrIndexOutOfBounds))
	require.NoError(t, s.Set(1, 7, 7))
	slot, row, _ = s.SlotRowAt(1)
	require.Equal(t, uint16(7), slot)
	require.Equal(t, uint16(7), row)

	s.Release()
	s.Release()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSel4Snapshot(t *testing.T) {
	mp := mpool.MustNewZero()
	s, err := NewSel4(mp, 8)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, s.Append(1, uint16(i)))
	}
	require.NoError(t, s.SetWindow(2, 3))

	snap, err := s.SnapshotCurrent(mp)
	require.NoError(t, err)
	require.True(t, snap.Owned())
	require.Equal(t, 3, snap.Len())

	// the snapshot does not follow the window of its source
	require.True(t, s.Next(3))
	_, row, _ := snap.SlotRowAt(0)
	require.Equal(t, uint16(2), row)

	s.Release()
	_, row, _ = snap.SlotRowAt(2)
	require.Equal(t, uint16(4), row)
	snap.Release()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSel4View(t *testing.T) {
	entries := []uint32{Pack(0, 1), Pack(1, 0)}
	s := NewSel4View(entries)
	require.False(t, s.Owned())
	require.Equal(t, 2, s.Len())
	require.True(t, moerr.IsMoErrCode(s.Append(0, 0), moerr.ErrInvalidState))
	s.Release()
	require.Equal(t, 0, s.Len())
}
