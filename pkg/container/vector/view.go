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

package vector

import (
	"github.com/matrixorigin/mobatch/pkg/container/nulls"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

// FixedView is a type checked, read only view of a fixed size vector.
// It can only be obtained through ToFixedView, so holding one proves the
// vector stores T.
type FixedView[T types.FixedSizeT] struct {
	vec *Vector
	col []T
}

// ToFixedView returns ok == false if v does not hold T.
func ToFixedView[T types.FixedSizeT](v *Vector) (FixedView[T], bool) {
	if v.typ.Oid != types.OidOf[T]() {
		return FixedView[T]{}, false
	}
	return FixedView[T]{vec: v, col: MustFixedCol[T](v)}, true
}

func (fv FixedView[T]) Len() int {
	return len(fv.col)
}

func (fv FixedView[T]) At(i int) T {
	return fv.col[i]
}

func (fv FixedView[T]) IsNull(i int) bool {
	return nulls.Contains(fv.vec.nsp, uint64(i))
}

// Values returns the underlying column, it must not be modified.
func (fv FixedView[T]) Values() []T {
	return fv.col
}

func (fv FixedView[T]) Vector() *Vector {
	return fv.vec
}
