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

package vector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

func TestAppendFixed(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_int64.ToType())
	for i := 0; i < 100; i++ {
		require.NoError(t, AppendFixed(vec, int64(i), i == 50, mp))
	}
	require.Equal(t, 100, vec.Length())
	col := MustFixedCol[int64](vec)
	require.Equal(t, int64(99), col[99])
	require.Equal(t, int64(0), col[50])
	require.True(t, vec.IsNull(50))
	require.False(t, vec.IsNull(49))

	require.Error(t, AppendFixed(vec, float64(1), false, mp))
	require.Panics(t, func() { MustFixedCol[int32](vec) })

	vec.Free(mp)
	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAppendFixedList(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_float64.ToType())
	require.NoError(t, AppendFixedList(vec, []float64{1.5, 2.5, 3.5}, []bool{false, true, false}, mp))
	require.NoError(t, AppendFixedList[float64](vec, nil, nil, mp))
	require.Equal(t, []float64{1.5, 2.5, 3.5}, MustFixedCol[float64](vec))
	require.True(t, vec.IsNull(1))
	require.Equal(t, "DOUBLE[1.5 null 3.5]", vec.String())

	require.NoError(t, SetFixedAt(vec, 0, 9.0))
	require.Equal(t, 9.0, GetFixedAt[float64](vec, 0))
	err := SetFixedAt(vec, 3, 1.0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrIndexOutOfBounds))
	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAppendBytes(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_varchar.ToType())
	require.NoError(t, AppendStringList(vec, []string{"a", "", "hello", "x"}, []bool{false, false, false, true}, mp))
	require.Equal(t, 4, vec.Length())
	require.Equal(t, "a", vec.GetStringAt(0))
	require.Equal(t, "", vec.GetStringAt(1))
	require.Equal(t, "hello", vec.GetStringAt(2))
	require.True(t, vec.IsNull(3))
	require.Error(t, AppendBytes(NewVec(types.T_int8.ToType()), []byte("a"), false, mp))
	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAppendOOM(t *testing.T) {
	// room for exactly one growth step of 64 rows
	mp := mpool.MustNew("small", 512)
	vec := NewVec(types.T_int64.ToType())
	for i := 0; i < 64; i++ {
		require.NoError(t, AppendFixed(vec, int64(i), false, mp))
	}
	err := AppendFixed(vec, int64(64), false, mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, 64, vec.Length())
	require.Equal(t, int64(63), GetFixedAt[int64](vec, 63))
	vec.Free(mp)
}

func TestDup(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_varchar.ToType())
	require.NoError(t, AppendStringList(vec, []string{"x", "yy"}, nil, mp))
	dup, err := vec.Dup(mp)
	require.NoError(t, err)
	vec.Free(mp)
	require.Equal(t, "yy", dup.GetStringAt(1))
	dup.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestMarshal(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_int32.ToType())
	require.NoError(t, AppendFixedList(vec, []int32{4, 5, 6}, []bool{false, true, false}, mp))
	data, err := vec.MarshalBinary()
	require.NoError(t, err)

	got := NewVec(types.T_any.ToType())
	require.NoError(t, got.UnmarshalBinaryWithMpool(data, mp))
	require.Equal(t, vec.String(), got.String())

	str := NewVec(types.T_varchar.ToType())
	require.NoError(t, AppendStringList(str, []string{"abc", "de"}, nil, mp))
	data, err = str.MarshalBinary()
	require.NoError(t, err)
	got2 := NewVec(types.T_any.ToType())
	require.NoError(t, got2.UnmarshalBinaryWithMpool(data, mp))
	require.Equal(t, "de", got2.GetStringAt(1))

	bad := NewVec(types.T_any.ToType())
	require.Error(t, bad.UnmarshalBinaryWithMpool(data[:10], mp))

	for _, v := range []*Vector{vec, got, str, got2} {
		v.Free(mp)
	}
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestFixedView(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_int64.ToType())
	require.NoError(t, AppendFixedList(vec, []int64{7, 8}, []bool{true, false}, mp))

	fv, ok := ToFixedView[int64](vec)
	require.True(t, ok)
	require.Equal(t, 2, fv.Len())
	require.Equal(t, int64(8), fv.At(1))
	require.True(t, fv.IsNull(0))
	require.Equal(t, vec, fv.Vector())

	_, ok = ToFixedView[float64](vec)
	require.False(t, ok)
	vec.Free(mp)
}

func TestUnionOne(t *testing.T) {
	mp := mpool.MustNewZero()
	src := NewVec(types.T_int64.ToType())
	require.NoError(t, AppendFixedList(src, []int64{5, 6, 7}, []bool{false, true, false}, mp))
	dst := NewVec(types.T_int64.ToType())
	require.NoError(t, dst.UnionOne(src, 2, mp))
	require.NoError(t, dst.UnionOne(src, 1, mp))
	require.Equal(t, "BIGINT[7 null]", dst.String())

	err := dst.UnionOne(src, 3, mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrIndexOutOfBounds))

	strs := NewVec(types.T_varchar.ToType())
	require.NoError(t, AppendStringList(strs, []string{"a", "bc"}, []bool{true}, mp))
	err = dst.UnionOne(strs, 0, mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))

	out := NewVec(types.T_varchar.ToType())
	require.NoError(t, out.UnionOne(strs, 1, mp))
	require.NoError(t, out.UnionOne(strs, 0, mp))
	require.Equal(t, "VARCHAR[bc null]", out.String())

	for _, v := range []*Vector{src, dst, strs, out} {
		v.Free(mp)
	}
	require.Equal(t, int64(0), mp.CurrNB())
}
