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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/common/mpool"
)

func TestEncodeContainer(t *testing.T) {
	mp := mpool.MustNewZero()
	for _, rows := range []int{0, 1, 1000} {
		c := newTestContainer(t, mp, rows)
		data, err := EncodeContainer(c)
		require.NoError(t, err)
		if rows == 1000 {
			require.Equal(t, spillLZ4, data[0])
		}

		d, err := DecodeContainer(data, mp)
		require.NoError(t, err)
		require.Equal(t, c.String(), d.String())
		require.Equal(t, rows, d.RowCount())
		c.Release()
		d.Release()
	}
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestDecodeCorrupted(t *testing.T) {
	mp := mpool.MustNewZero()
	c := newTestContainer(t, mp, 10)
	data, err := EncodeContainer(c)
	require.NoError(t, err)
	c.Release()

	_, err = DecodeContainer(data[:3], mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	bad := append([]byte(nil), data...)
	bad[0] = 7
	_, err = DecodeContainer(bad, mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = DecodeContainer(data[:len(data)-4], mp)
	require.Error(t, err)
	require.Equal(t, int64(0), mp.CurrNB())

	moved := NewContainer(mp)
	_, err = TransferFrom(moved)
	require.NoError(t, err)
	_, err = EncodeContainer(moved)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))
}
