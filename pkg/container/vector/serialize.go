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

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/nulls"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

func (v *Vector) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	{ // write type
		buf.Write(types.EncodeType(&v.typ))
	}
	{ // write length
		length := int64(v.length)
		buf.Write(types.EncodeInt64(&length))
	}
	{ // write nspLen, nsp
		data, err := v.nsp.Show()
		if err != nil {
			return nil, err
		}
		length := uint32(len(data))
		buf.Write(types.EncodeUint32(&length))
		if len(data) > 0 {
			buf.Write(data)
		}
	}
	{ // write col
		length := uint32(v.length * v.typ.TypeSize())
		buf.Write(types.EncodeUint32(&length))
		if length > 0 {
			buf.Write(v.data[:length])
		}
	}
	{ // write areaLen, area
		length := uint32(len(v.area))
		buf.Write(types.EncodeUint32(&length))
		if len(v.area) > 0 {
			buf.Write(v.area)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinaryWithMpool decodes data into v, copying the column data into
// buffers allocated from mp.  v must be empty.
func (v *Vector) UnmarshalBinaryWithMpool(data []byte, mp *mpool.MPool) (err error) {
	defer func() {
		if e := recover(); e != nil {
			v.Free(mp)
			err = moerr.NewInvalidInputNoCtx("corrupted vector encoding: %v", e)
		}
	}()
	{ // read typ
		v.typ = types.DecodeType(data[:types.TSize])
		data = data[types.TSize:]
	}
	{ // read length
		v.length = int(types.DecodeInt64(data[:8]))
		data = data[8:]
	}
	{ // read nsp
		v.nsp = &nulls.Nulls{}
		size := types.DecodeUint32(data)
		data = data[4:]
		if size > 0 {
			if err := v.nsp.Read(data[:size]); err != nil {
				return err
			}
			data = data[size:]
		}
	}
	{ // read col
		length := types.DecodeUint32(data)
		data = data[4:]
		if length > 0 {
			v.data, err = mp.Alloc(int(length))
			if err != nil {
				v.length = 0
				return err
			}
			copy(v.data, data[:length])
			v.capacity = v.length
			data = data[length:]
		}
	}
	{ // read area
		length := types.DecodeUint32(data)
		data = data[4:]
		if length > 0 {
			v.area, err = mp.Alloc(int(length))
			if err != nil {
				v.Free(mp)
				return err
			}
			copy(v.area, data[:length])
		}
	}
	return nil
}
