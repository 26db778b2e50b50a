// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines the error type that carries an errno out of the
// kernel.
package errors

import (
	"fmt"

	"gokern.dev/gokern/pkg/abi/errno"
)

// Error is an error with the errno a failed syscall reports to the
// application.
//
// Two *Errors with the same errno match under errors.Is, so a handler may
// return a more descriptive error than the bare errno value.
type Error struct {
	errno   errno.Errno
	message string
}

// New returns an *Error for no with the given message.
func New(no errno.Errno, message string) *Error {
	return &Error{
		errno:   no,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the errno carried by e.
func (e *Error) Errno() errno.Errno { return e.errno }

// Is implements the interface used by errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.errno == t.errno
}

// GoString implements fmt.GoStringer.
func (e *Error) GoString() string {
	return fmt.Sprintf("errors.New(%d, %q)", e.errno, e.message)
}
