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
	"bytes"

	"github.com/pierrec/lz4"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
	"github.com/matrixorigin/mobatch/pkg/container/types"
	"github.com/matrixorigin/mobatch/pkg/container/vector"
)

const (
	spillRaw byte = iota
	spillLZ4
)

const (
	spillHeaderSize  = 5
	lz4HashTableSize = 64 << 10
)

// EncodeContainer serializes the vectors of c, lz4 compressed when that
// pays off.  Layout before compression:
//
//	| count uint32 | rows int64 | (id uint32, len uint32, vector)... |
func EncodeContainer(c *Container) ([]byte, error) {
	if c.moved {
		return nil, moerr.NewInvalidStateNoCtx("encode a moved-from container")
	}
	var buf bytes.Buffer
	count := uint32(len(c.entries))
	rows := int64(c.rows)
	buf.Write(types.EncodeUint32(&count))
	buf.Write(types.EncodeInt64(&rows))
	for _, e := range c.entries {
		data, err := e.vec.MarshalBinary()
		if err != nil {
			return nil, err
		}
		id := uint32(e.id)
		length := uint32(len(data))
		buf.Write(types.EncodeUint32(&id))
		buf.Write(types.EncodeUint32(&length))
		buf.Write(data)
	}
	raw := buf.Bytes()
	rawLen := uint32(len(raw))

	out := make([]byte, spillHeaderSize+lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, out[spillHeaderSize:], make([]int, lz4HashTableSize))
	if err != nil {
		return nil, moerr.NewInternalErrorNoCtx("lz4 compress: %v", err)
	}
	copy(out[1:], types.EncodeUint32(&rawLen))
	if n == 0 || n >= len(raw) {
		// incompressible
		out = append(out[:spillHeaderSize], raw...)
		out[0] = spillRaw
		return out, nil
	}
	out[0] = spillLZ4
	return out[:spillHeaderSize+n], nil
}

// DecodeContainer rebuilds a container encoded by EncodeContainer with
// vectors allocated from mp.
func DecodeContainer(data []byte, mp *mpool.MPool) (*Container, error) {
	if len(data) < spillHeaderSize {
		return nil, moerr.NewInvalidInputNoCtx("spilled container too short: %d bytes", len(data))
	}
	rawLen := int(types.DecodeUint32(data[1:]))
	var raw []byte
	switch data[0] {
	case spillRaw:
		raw = data[spillHeaderSize:]
	case spillLZ4:
		raw = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data[spillHeaderSize:], raw)
		if err != nil {
			return nil, moerr.NewInvalidInputNoCtx("corrupted spilled container: %v", err)
		}
		raw = raw[:n]
	default:
		return nil, moerr.NewInvalidInputNoCtx("unknown spill encoding %d", data[0])
	}
	if len(raw) != rawLen || len(raw) < 12 {
		return nil, moerr.NewInvalidInputNoCtx("spilled container size mismatch")
	}

	count := int(types.DecodeUint32(raw))
	rows := int(types.DecodeInt64(raw[4:]))
	raw = raw[12:]
	c := NewContainer(mp)
	for i := 0; i < count; i++ {
		if len(raw) < 8 {
			c.Release()
			return nil, moerr.NewInvalidInputNoCtx("spilled container truncated at field %d", i)
		}
		id := FieldID(types.DecodeUint32(raw))
		length := int(types.DecodeUint32(raw[4:]))
		raw = raw[8:]
		if len(raw) < length {
			c.Release()
			return nil, moerr.NewInvalidInputNoCtx("spilled container truncated at field %d", id)
		}
		vec := vector.NewVec(types.T_any.ToType())
		if err := vec.UnmarshalBinaryWithMpool(raw[:length], mp); err != nil {
			c.Release()
			return nil, err
		}
		raw = raw[length:]
		if err := c.Append(id, vec); err != nil {
			vec.Free(mp)
			c.Release()
			return nil, err
		}
	}
	if c.Len() > 0 && c.rows != rows {
		c.Release()
		return nil, moerr.NewInvalidInputNoCtx("spilled container has %d rows, expect %d", c.rows, rows)
	}
	c.rows = rows
	return c, nil
}
