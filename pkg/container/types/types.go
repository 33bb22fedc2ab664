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

package types

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

type T uint8

const (
	T_any T = 0

	T_bool T = 10

	// numeric/integer family
	T_int8   T = 20
	T_int16  T = 21
	T_int32  T = 22
	T_int64  T = 23
	T_uint8  T = 25
	T_uint16 T = 26
	T_uint32 T = 27
	T_uint64 T = 28

	// numeric/float family
	T_float32 T = 30
	T_float64 T = 31

	// string family
	T_char    T = 40
	T_varchar T = 41
)

// VarlenaSize is the size of the per row (offset, length) descriptor of a
// variable length vector.
const VarlenaSize = 8

// TSize is the size of an encoded Type.
const TSize = 8

type Type struct {
	Oid  T
	Size int32 // fixed size of a value, VarlenaSize for varlen types
}

// Number is every fixed width numeric element a vector can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// FixedSizeT is every element type stored directly in a vector's data area.
type FixedSizeT interface {
	bool | Number
}

func New(oid T) Type {
	return Type{Oid: oid, Size: int32(TypeSize(oid))}
}

func (t T) ToType() Type {
	return New(t)
}

func (t Type) TypeSize() int {
	return int(t.Size)
}

func (t Type) IsVarlen() bool {
	return t.Oid == T_char || t.Oid == T_varchar
}

func (t Type) IsFixedLen() bool {
	return !t.IsVarlen()
}

func (t Type) IsNumeric() bool {
	return t.Oid.IsInteger() || t.Oid.IsFloat()
}

func (t Type) Eq(b Type) bool {
	return t.Oid == b.Oid && t.Size == b.Size
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t Type) DescString() string {
	return fmt.Sprintf("%s(%d)", t.Oid.OidString(), t.Size)
}

func (t T) IsInteger() bool {
	switch t {
	case T_int8, T_int16, T_int32, T_int64,
		T_uint8, T_uint16, T_uint32, T_uint64:
		return true
	}
	return false
}

func (t T) IsFloat() bool {
	return t == T_float32 || t == T_float64
}

// TypeSize returns the number of bytes a value of oid takes in the data
// area of a vector.
func TypeSize(oid T) int {
	switch oid {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_char, T_varchar:
		return VarlenaSize
	}
	return 0
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	}
	return fmt.Sprintf("unexpected type: %d", t)
}

// OidString returns T string
func (t T) OidString() string {
	switch t {
	case T_any:
		return "T_any"
	case T_bool:
		return "T_bool"
	case T_int8:
		return "T_int8"
	case T_int16:
		return "T_int16"
	case T_int32:
		return "T_int32"
	case T_int64:
		return "T_int64"
	case T_uint8:
		return "T_uint8"
	case T_uint16:
		return "T_uint16"
	case T_uint32:
		return "T_uint32"
	case T_uint64:
		return "T_uint64"
	case T_float32:
		return "T_float32"
	case T_float64:
		return "T_float64"
	case T_char:
		return "T_char"
	case T_varchar:
		return "T_varchar"
	}
	return "unknown_type"
}

// OidOf maps a go element type to its oid.  It is used by the typed
// accessors to check a vector before reinterpreting its data area.
func OidOf[V FixedSizeT]() T {
	var v V
	switch any(v).(type) {
	case bool:
		return T_bool
	case int8:
		return T_int8
	case int16:
		return T_int16
	case int32:
		return T_int32
	case int64:
		return T_int64
	case uint8:
		return T_uint8
	case uint16:
		return T_uint16
	case uint32:
		return T_uint32
	case uint64:
		return T_uint64
	case float32:
		return T_float32
	case float64:
		return T_float64
	}
	return T_any
}
