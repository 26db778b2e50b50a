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

package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"gokern.dev/gokern/pkg/abi/errno"
)

func TestIs(t *testing.T) {
	inval := New(errno.EINVAL, "invalid argument")
	misaligned := New(errno.EINVAL, "address is not page aligned")
	fault := New(errno.EFAULT, "bad address")
	for _, test := range []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"identical", inval, inval, true},
		{"same errno", misaligned, inval, true},
		{"wrapped", fmt.Errorf("mmap: %w", misaligned), inval, true},
		{"different errno", fault, inval, false},
		{"plain target", inval, goerrors.New("invalid argument"), false},
		{"nil target", inval, (*Error)(nil), false},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := goerrors.Is(test.err, test.target); got != test.want {
				t.Errorf("Is(%v, %v) got %v want %v", test.err, test.target, got, test.want)
			}
		})
	}
}

func TestErrorAndErrno(t *testing.T) {
	e := New(errno.ENOMEM, "out of memory")
	if got, want := e.Error(), "out of memory"; got != want {
		t.Errorf("Error got %q want %q", got, want)
	}
	if got := e.Errno(); got != errno.ENOMEM {
		t.Errorf("Errno got %d want %d", got, errno.ENOMEM)
	}
	if got, want := fmt.Sprintf("%#v", e), `errors.New(12, "out of memory")`; got != want {
		t.Errorf("GoString got %s want %s", got, want)
	}
}
