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
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/types"
)

type FieldID uint32

// SelectionMode tells which selection, if any, accompanies a batch.
type SelectionMode uint8

const (
	SelectionNone SelectionMode = iota
	SelectionRow16
	SelectionRow32Packed
)

func (m SelectionMode) String() string {
	switch m {
	case SelectionNone:
		return "NONE"
	case SelectionRow16:
		return "ROW16"
	case SelectionRow32Packed:
		return "ROW32_PACKED"
	}
	return fmt.Sprintf("unexpected selection mode: %d", m)
}

type Field struct {
	ID       FieldID
	Name     string
	Type     types.Type
	Nullable bool
}

func (f Field) String() string {
	if f.Nullable {
		return fmt.Sprintf("%d:%s %s NULL", f.ID, f.Name, f.Type)
	}
	return fmt.Sprintf("%d:%s %s", f.ID, f.Name, f.Type)
}

// Schema is the shape of a batch.  It never changes once built, producers
// build a new one when the shape changes and consumers compare them with
// Equal or Hash.
type Schema struct {
	fields []Field
	mode   SelectionMode
	hash   uint64
}

// NewSchema builds a schema, field ids and names must be unique.
func NewSchema(mode SelectionMode, fields ...Field) (*Schema, error) {
	if mode > SelectionRow32Packed {
		return nil, moerr.NewInvalidInputNoCtx("selection mode %d", mode)
	}
	ids := make(map[FieldID]struct{}, len(fields))
	names := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := ids[f.ID]; ok {
			return nil, moerr.NewDuplicateFieldNoCtx(uint32(f.ID))
		}
		if _, ok := names[f.Name]; ok {
			return nil, moerr.NewInvalidInputNoCtx("duplicate field name %s", f.Name)
		}
		ids[f.ID] = struct{}{}
		names[f.Name] = struct{}{}
	}
	s := &Schema{
		fields: append([]Field(nil), fields...),
		mode:   mode,
	}
	s.hash = s.computeHash()
	return s, nil
}

func MustSchema(mode SelectionMode, fields ...Field) *Schema {
	s, err := NewSchema(mode, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) computeHash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	buf[0] = byte(s.mode)
	_, _ = d.Write(buf[:1])
	for _, f := range s.fields {
		id := uint32(f.ID)
		_, _ = d.Write(types.EncodeUint32(&id))
		_, _ = d.WriteString(f.Name)
		_, _ = d.Write(types.EncodeType(&f.Type))
		if f.Nullable {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
		_, _ = d.Write(buf[:1])
	}
	return d.Sum64()
}

func (s *Schema) Len() int {
	return len(s.fields)
}

func (s *Schema) Mode() SelectionMode {
	return s.mode
}

func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) FieldByID(id FieldID) (Field, bool) {
	for _, f := range s.fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// WithMode returns a schema with the same fields and another selection mode.
func (s *Schema) WithMode(mode SelectionMode) *Schema {
	if mode == s.mode {
		return s
	}
	n := &Schema{fields: s.fields, mode: mode}
	n.hash = n.computeHash()
	return n
}

func (s *Schema) Hash() uint64 {
	return s.hash
}

func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if s.hash != o.hash || s.mode != o.mode || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		a, b := s.fields[i], o.fields[i]
		if a.ID != b.ID || a.Name != b.Name || !a.Type.Eq(b.Type) || a.Nullable != b.Nullable {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	var buf bytes.Buffer
	buf.WriteString("schema(")
	buf.WriteString(s.mode.String())
	for _, f := range s.fields {
		buf.WriteString(", ")
		buf.WriteString(f.String())
	}
	buf.WriteByte(')')
	return buf.String()
}
