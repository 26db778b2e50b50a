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

// Package linuxerr contains syscall error codes exported as an error interface
// pointers. This allows for fast comparison and return operations comperable
// to unix.Errno constants.
package linuxerr

import (
	goerrors "errors"

	"gokern.dev/gokern/pkg/abi/errno"
	"gokern.dev/gokern/pkg/errors"
)

// The following errors are the subset of the errno space the kernel
// returns. Compare them by identity or with Equals.
var (
	noError *errors.Error = nil
	EPERM                 = errors.New(errno.EPERM, "operation not permitted")
	ESRCH                 = errors.New(errno.ESRCH, "no such process")
	EBADF                 = errors.New(errno.EBADF, "bad file number")
	ENOMEM                = errors.New(errno.ENOMEM, "out of memory")
	EACCES                = errors.New(errno.EACCES, "permission denied")
	EFAULT                = errors.New(errno.EFAULT, "bad address")
	EEXIST                = errors.New(errno.EEXIST, "file exists")
	EINVAL                = errors.New(errno.EINVAL, "invalid argument")
	ENOSYS                = errors.New(errno.ENOSYS, "invalid system call number")
)

// ToErrno returns the errno carried by err, or NOERRNO if err is nil or
// carries none.
func ToErrno(err error) errno.Errno {
	var e *errors.Error
	if err == nil || !goerrors.As(err, &e) || e == noError {
		return errno.NOERRNO
	}
	return e.Errno()
}

// Equals compares a linuxerr to a given error. It returns true if err carries
// the same errno as e, including through wrapping.
func Equals(e *errors.Error, err error) bool {
	if e == nil {
		return err == nil
	}
	return goerrors.Is(err, e)
}
