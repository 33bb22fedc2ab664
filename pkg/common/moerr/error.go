// Copyright 2021 - 2022 Matrix Origin
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

package moerr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
)

const (
	// 0 - 99 is OK.  They do not contain info, and are special handled
	// using a static instance, no alloc.
	Ok    uint16 = 0
	OkMax uint16 = 99

	// Group 1: Internal errors
	ErrStart        uint16 = 20100
	ErrInternal     uint16 = 20101
	ErrNYI          uint16 = 20102
	ErrOOM          uint16 = 20103
	ErrNotSupported uint16 = 20105

	// Group 3: invalid input
	ErrBadConfig    uint16 = 20300
	ErrInvalidInput uint16 = 20301

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400
	ErrEmptyVector  uint16 = 20404

	// Group 10: batch and selection vector

	// ErrUnknownField the container holds no vector under the field id.
	ErrUnknownField uint16 = 21001
	// ErrDuplicateField the container already holds a vector under the field id.
	ErrDuplicateField uint16 = 21002
	// ErrTypeMismatch the accessor asked for a type the vector does not hold.
	ErrTypeMismatch uint16 = 21003
	// ErrIndexOutOfBounds a selection was read past its length.
	ErrIndexOutOfBounds uint16 = 21004
	// ErrTransferFailed an ownership transfer could not complete, the source
	// container is left intact.
	ErrTransferFailed uint16 = 21005
	// ErrSelectionMismatch the selection attached to a batch does not match
	// the selection mode of its schema.
	ErrSelectionMismatch uint16 = 21006

	// ErrEnd, the max value of MOErrorCode
	ErrEnd uint16 = 65535
)

var errorMsgRefer = map[uint16]string{
	// Group 1: Internal errors
	ErrStart:        "internal error: error code start",
	ErrInternal:     "internal error: %s",
	ErrNYI:          "%s is not yet implemented",
	ErrOOM:          "error: out of memory",
	ErrNotSupported: "not supported: %s",

	// Group 3: invalid input
	ErrBadConfig:    "invalid configuration: %s",
	ErrInvalidInput: "invalid input: %s",

	// Group 4: unexpected state
	ErrInvalidState: "invalid state %s",
	ErrEmptyVector:  "empty vector",

	// Group 10: batch and selection vector
	ErrUnknownField:      "unknown field %v",
	ErrDuplicateField:    "duplicate field %d",
	ErrTypeMismatch:      "type mismatch on field %d: expect %s, got %s",
	ErrIndexOutOfBounds:  "index %d out of bounds, length %d",
	ErrTransferFailed:    "transfer failed: %s",
	ErrSelectionMismatch: "selection %s does not match schema mode %s",
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	format, has := errorMsgRefer[code]
	if !has {
		panic(NewInternalError(ctx, "not exist MOErrorCode: %d", code))
	}
	err := &Error{
		code:    code,
		message: format,
	}
	if len(args) > 0 {
		err.message = fmt.Sprintf(format, args...)
	}
	if ctx != nil && ctx.Err() != nil {
		err.detail = ctx.Err().Error()
	}
	return err
}

type Error struct {
	code    uint16
	message string
	detail  string
	cause   error
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) Display() string {
	if len(e.detail) == 0 {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.detail)
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.cause
}

func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}

	var me *Error
	if !errors.As(e, &me) {
		// This is not a moerr
		return false
	}
	return me.code == rc
}

func DowncastError(e error) *Error {
	var err *Error
	if errors.As(e, &err) {
		return err
	}
	return newError(context.Background(), ErrInternal, fmt.Sprintf("downcast error failed: %v", e))
}

// ConvertPanicError converts a runtime panic to internal error.
func ConvertPanicError(ctx context.Context, v interface{}) *Error {
	if e, ok := v.(*Error); ok {
		return e
	}
	return newError(ctx, ErrInternal, fmt.Sprintf("panic %v: %s", v, debug.Stack()))
}

// ConvertGoError converts a go error into mo error.
// Note here we must return error, because nil error
// is the same as nil *Error -- Go strangeness.
func ConvertGoError(ctx context.Context, err error) error {
	// nil is nil
	if err == nil {
		return err
	}

	// already a moerr, return it as is
	var me *Error
	if errors.As(err, &me) {
		return err
	}

	var e *Error
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		e = newError(ctx, ErrInvalidInput, "unexpected end of input")
	} else {
		e = newError(ctx, ErrInternal, err.Error())
	}
	e.cause = err
	return e
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInternal, xmsg)
}

func NewInternalErrorNoCtx(msg string, args ...any) *Error {
	return NewInternalError(context.Background(), msg, args...)
}

func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrNYI, xmsg)
}

func NewNotSupported(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrNotSupported, xmsg)
}

func NewNotSupportedNoCtx(msg string, args ...any) *Error {
	return NewNotSupported(context.Background(), msg, args...)
}

func NewOOM(ctx context.Context) *Error {
	return newError(ctx, ErrOOM)
}

func NewOOMNoCtx() *Error {
	return newError(context.Background(), ErrOOM)
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrBadConfig, xmsg)
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidInput, xmsg)
}

func NewInvalidInputNoCtx(msg string, args ...any) *Error {
	return NewInvalidInput(context.Background(), msg, args...)
}

func NewInvalidState(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidState, xmsg)
}

func NewInvalidStateNoCtx(msg string, args ...any) *Error {
	return NewInvalidState(context.Background(), msg, args...)
}

func NewEmptyVector(ctx context.Context) *Error {
	return newError(ctx, ErrEmptyVector)
}

func NewUnknownField(ctx context.Context, id uint32) *Error {
	return newError(ctx, ErrUnknownField, id)
}

func NewUnknownFieldNoCtx(id uint32) *Error {
	return NewUnknownField(context.Background(), id)
}

func NewUnknownFieldName(ctx context.Context, name string) *Error {
	return newError(ctx, ErrUnknownField, name)
}

func NewUnknownFieldNameNoCtx(name string) *Error {
	return NewUnknownFieldName(context.Background(), name)
}

func NewDuplicateField(ctx context.Context, id uint32) *Error {
	return newError(ctx, ErrDuplicateField, id)
}

func NewDuplicateFieldNoCtx(id uint32) *Error {
	return NewDuplicateField(context.Background(), id)
}

func NewTypeMismatch(ctx context.Context, id uint32, expect, got string) *Error {
	return newError(ctx, ErrTypeMismatch, id, expect, got)
}

func NewTypeMismatchNoCtx(id uint32, expect, got string) *Error {
	return NewTypeMismatch(context.Background(), id, expect, got)
}

func NewIndexOutOfBounds(ctx context.Context, idx, length int) *Error {
	return newError(ctx, ErrIndexOutOfBounds, idx, length)
}

func NewIndexOutOfBoundsNoCtx(idx, length int) *Error {
	return NewIndexOutOfBounds(context.Background(), idx, length)
}

// NewTransferFailed wraps the bookkeeping failure that aborted a transfer.
func NewTransferFailed(ctx context.Context, cause error) *Error {
	msg := "unknown cause"
	if cause != nil {
		msg = cause.Error()
	}
	e := newError(ctx, ErrTransferFailed, msg)
	e.cause = cause
	return e
}

func NewTransferFailedNoCtx(cause error) *Error {
	return NewTransferFailed(context.Background(), cause)
}

func NewSelectionMismatch(ctx context.Context, sel, mode string) *Error {
	return newError(ctx, ErrSelectionMismatch, sel, mode)
}

func NewSelectionMismatchNoCtx(sel, mode string) *Error {
	return NewSelectionMismatch(context.Background(), sel, mode)
}
