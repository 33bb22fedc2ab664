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

package spill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemStore()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
	}()
	require.Equal(t, "", s.Dir())

	require.NoError(t, s.Put(ctx, "k1", []byte("hello")))
	v, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)

	require.NoError(t, s.Delete(ctx, "k1"))
	_, err = s.Get(ctx, "k1")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "a", []byte{1, 2, 3}))
	require.NoError(t, s.Close())

	s, err = NewStore(dir)
	require.NoError(t, err)
	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, v)
	require.NoError(t, s.Close())
}

func TestCanceled(t *testing.T) {
	s, err := NewMemStore()
	require.NoError(t, err)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Put(ctx, "k", nil), context.Canceled)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.Delete(ctx, "k"), context.Canceled)
}
