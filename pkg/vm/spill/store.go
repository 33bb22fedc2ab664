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

// Package spill stores spilled batches in a pebble instance, on an in
// memory file system unless a directory is configured.
package spill

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
)

const memDir = "spill"

type Store struct {
	db  *pebble.DB
	dir string
}

// NewStore opens a store under dir, or in memory when dir is empty.
func NewStore(dir string) (*Store, error) {
	opts := &pebble.Options{}
	name := dir
	if dir == "" {
		opts.FS = vfs.NewMem()
		name = memDir
	}
	db, err := pebble.Open(name, opts)
	if err != nil {
		return nil, moerr.NewInternalErrorNoCtx("open spill store %s: %v", name, err)
	}
	return &Store{db: db, dir: dir}, nil
}

func NewMemStore() (*Store, error) {
	return NewStore("")
}

// Dir is the configured directory, empty for an in memory store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Set([]byte(key), data, pebble.NoSync)
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, moerr.NewInvalidInput(ctx, "spill key %s not found", key)
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Delete([]byte(key), pebble.NoSync)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
