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
	"bytes"
	"fmt"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/nulls"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

// Vector represent a column
type Vector struct {
	// type represent the type of column
	typ types.Type
	nsp *nulls.Nulls // nulls list

	// data of fixed length element, in case of varlen, the
	// (offset, length) descriptors into area
	data []byte

	// area for holding variable length values.
	area []byte

	capacity int
	length   int
}

func NewVec(typ types.Type) *Vector {
	return &Vector{
		typ: typ,
		nsp: &nulls.Nulls{},
	}
}

func (v *Vector) Length() int {
	return v.length
}

func (v *Vector) Capacity() int {
	return v.capacity
}

func (v *Vector) GetType() *types.Type {
	return &v.typ
}

func (v *Vector) GetNulls() *nulls.Nulls {
	return v.nsp
}

func (v *Vector) IsNull(i uint64) bool {
	return nulls.Contains(v.nsp, i)
}

// Size of data, used in (approximate) memory accounting.
func (v *Vector) Size() int {
	return v.length*v.typ.TypeSize() + len(v.area)
}

// Allocated returns the number of bytes the vector holds from its pool.
func (v *Vector) Allocated() int {
	return cap(v.data) + cap(v.area)
}

// PreExtend makes room for rows more values without reallocating.
func (v *Vector) PreExtend(rows int, mp *mpool.MPool) error {
	need := v.length + rows
	if need <= v.capacity {
		return nil
	}
	sz := v.typ.TypeSize()
	data, err := mp.Realloc(v.data, mpool.Grow(v.capacity, need)*sz)
	if err != nil {
		return err
	}
	v.data = data[:cap(data)]
	v.capacity = cap(data) / sz
	return nil
}

func (v *Vector) checkFixed(oid types.T) error {
	if v.typ.Oid != oid {
		return moerr.NewInternalErrorNoCtx("vector of %s accessed as %s", v.typ.String(), oid.String())
	}
	return nil
}

// AppendFixed appends a fixed size value, isNull marks the new row as NULL.
func AppendFixed[T types.FixedSizeT](v *Vector, val T, isNull bool, mp *mpool.MPool) error {
	if err := v.checkFixed(types.OidOf[T]()); err != nil {
		return err
	}
	if err := v.PreExtend(1, mp); err != nil {
		return err
	}
	col := types.DecodeSlice[T](v.data)
	if isNull {
		var zero T
		val = zero
		nulls.Add(v.nsp, uint64(v.length))
	}
	col[v.length] = val
	v.length++
	return nil
}

// AppendFixedList appends vals, isNulls may be nil or as long as vals.
func AppendFixedList[T types.FixedSizeT](v *Vector, vals []T, isNulls []bool, mp *mpool.MPool) error {
	if err := v.checkFixed(types.OidOf[T]()); err != nil {
		return err
	}
	if len(vals) == 0 {
		return nil
	}
	if err := v.PreExtend(len(vals), mp); err != nil {
		return err
	}
	col := types.DecodeSlice[T](v.data)
	copy(col[v.length:], vals)
	for i := range isNulls {
		if isNulls[i] {
			nulls.Add(v.nsp, uint64(v.length+i))
		}
	}
	v.length += len(vals)
	return nil
}

// AppendBytes appends a value to a varlen vector.
func AppendBytes(v *Vector, val []byte, isNull bool, mp *mpool.MPool) error {
	if !v.typ.IsVarlen() {
		return moerr.NewInternalErrorNoCtx("append bytes to %s vector", v.typ.String())
	}
	if isNull {
		val = nil
	}
	if err := v.PreExtend(1, mp); err != nil {
		return err
	}
	off := len(v.area)
	if len(val) > 0 {
		if off+len(val) > cap(v.area) {
			area, err := mp.Realloc(v.area, mpool.Grow(cap(v.area), off+len(val)))
			if err != nil {
				return err
			}
			v.area = area[:off]
		}
		v.area = append(v.area, val...)
	}
	desc := types.DecodeSlice[uint32](v.data)
	desc[2*v.length] = uint32(off)
	desc[2*v.length+1] = uint32(len(val))
	if isNull {
		nulls.Add(v.nsp, uint64(v.length))
	}
	v.length++
	return nil
}

func AppendStringList(v *Vector, vals []string, isNulls []bool, mp *mpool.MPool) error {
	for i, s := range vals {
		isNull := i < len(isNulls) && isNulls[i]
		if err := AppendBytes(v, []byte(s), isNull, mp); err != nil {
			return err
		}
	}
	return nil
}

// MustFixedCol returns the values of a fixed size vector, it panics if the
// vector does not hold T.
func MustFixedCol[T types.FixedSizeT](v *Vector) []T {
	if err := v.checkFixed(types.OidOf[T]()); err != nil {
		panic(err)
	}
	if v.length == 0 {
		return nil
	}
	return types.DecodeSlice[T](v.data)[:v.length]
}

func GetFixedAt[T types.FixedSizeT](v *Vector, idx int) T {
	return MustFixedCol[T](v)[idx]
}

func SetFixedAt[T types.FixedSizeT](v *Vector, idx int, t T) error {
	if err := v.checkFixed(types.OidOf[T]()); err != nil {
		return err
	}
	if idx < 0 || idx >= v.length {
		return moerr.NewIndexOutOfBoundsNoCtx(idx, v.length)
	}
	types.DecodeSlice[T](v.data)[idx] = t
	return nil
}

func (v *Vector) GetBytesAt(i int) []byte {
	if !v.typ.IsVarlen() {
		panic(moerr.NewInternalErrorNoCtx("get bytes from %s vector", v.typ.String()))
	}
	desc := types.DecodeSlice[uint32](v.data)
	off, n := desc[2*i], desc[2*i+1]
	return v.area[off : off+n]
}

func (v *Vector) GetStringAt(i int) string {
	return string(v.GetBytesAt(i))
}

// Free returns the buffers of the vector to mp.  Freeing a vector twice is
// a no-op.
func (v *Vector) Free(mp *mpool.MPool) {
	mp.Free(v.data)
	mp.Free(v.area)
	v.data = nil
	v.area = nil
	v.nsp = &nulls.Nulls{}
	v.length = 0
	v.capacity = 0
}

// Dup deep copies the vector into buffers allocated from mp.
func (v *Vector) Dup(mp *mpool.MPool) (*Vector, error) {
	w := NewVec(v.typ)
	w.nsp = v.nsp.Clone()
	if v.length > 0 {
		sz := v.length * v.typ.TypeSize()
		data, err := mp.Alloc(sz)
		if err != nil {
			return nil, err
		}
		copy(data, v.data[:sz])
		w.data = data
		w.capacity = v.length
		w.length = v.length
	}
	if len(v.area) > 0 {
		area, err := mp.Alloc(len(v.area))
		if err != nil {
			w.Free(mp)
			return nil, err
		}
		copy(area, v.area)
		w.area = area
	}
	return w, nil
}

func (v *Vector) String() string {
	var buf bytes.Buffer
	buf.WriteString(v.typ.String())
	buf.WriteByte('[')
	for i := 0; i < v.length; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		if v.IsNull(uint64(i)) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(v.valueString(i))
	}
	buf.WriteByte(']')
	return buf.String()
}

func (v *Vector) valueString(i int) string {
	switch v.typ.Oid {
	case types.T_bool:
		return fmt.Sprint(GetFixedAt[bool](v, i))
	case types.T_int8:
		return fmt.Sprint(GetFixedAt[int8](v, i))
	case types.T_int16:
		return fmt.Sprint(GetFixedAt[int16](v, i))
	case types.T_int32:
		return fmt.Sprint(GetFixedAt[int32](v, i))
	case types.T_int64:
		return fmt.Sprint(GetFixedAt[int64](v, i))
	case types.T_uint8:
		return fmt.Sprint(GetFixedAt[uint8](v, i))
	case types.T_uint16:
		return fmt.Sprint(GetFixedAt[uint16](v, i))
	case types.T_uint32:
		return fmt.Sprint(GetFixedAt[uint32](v, i))
	case types.T_uint64:
		return fmt.Sprint(GetFixedAt[uint64](v, i))
	case types.T_float32:
		return fmt.Sprint(GetFixedAt[float32](v, i))
	case types.T_float64:
		return fmt.Sprint(GetFixedAt[float64](v, i))
	case types.T_char, types.T_varchar:
		return v.GetStringAt(i)
	}
	return "?"
}

// UnionOne appends row sel of w to v, both must hold the same type.
func (v *Vector) UnionOne(w *Vector, sel int64, mp *mpool.MPool) error {
	if !v.typ.Eq(w.typ) {
		return moerr.NewInternalErrorNoCtx("union %s into %s vector", w.typ.String(), v.typ.String())
	}
	if sel < 0 || int(sel) >= w.length {
		return moerr.NewIndexOutOfBoundsNoCtx(int(sel), w.length)
	}
	isNull := w.IsNull(uint64(sel))
	if v.typ.IsVarlen() {
		if isNull {
			return AppendBytes(v, nil, true, mp)
		}
		return AppendBytes(v, w.GetBytesAt(int(sel)), false, mp)
	}
	if err := v.PreExtend(1, mp); err != nil {
		return err
	}
	sz := v.typ.TypeSize()
	if !isNull {
		copy(v.data[v.length*sz:(v.length+1)*sz], w.data[int(sel)*sz:(int(sel)+1)*sz])
	} else {
		clear(v.data[v.length*sz : (v.length+1)*sz])
		nulls.Add(v.nsp, uint64(v.length))
	}
	v.length++
	return nil
}
