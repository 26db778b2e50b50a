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

package process

import (
	"context"

	"gokern.dev/gokern/pkg/abi/errno"
	"gokern.dev/gokern/pkg/errors"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/arch"
	"gokern.dev/gokern/pkg/sentry/kernel"
	"gokern.dev/gokern/pkg/sentry/mm"
)

var (
	// ErrMisalignedAddress is returned by mmap and munmap when the start
	// address is not page aligned.
	ErrMisalignedAddress = errors.New(errno.EINVAL, "address is not page aligned")

	// ErrInvalidPermission is returned by mmap when the permission mask sets
	// bits other than read, write and execute, or sets none of them.
	ErrInvalidPermission = errors.New(errno.EINVAL, "invalid permission mask")
)

// validateMmap checks the arguments of mmap and returns the access type
// requested by prot.
func validateMmap(start hostarch.Addr, prot uint64) (hostarch.AccessType, error) {
	if prot&^hostarch.PermMask != 0 {
		return hostarch.NoAccess, ErrInvalidPermission
	}
	at, ok := hostarch.AccessTypeFromMask(prot)
	if !ok {
		return hostarch.NoAccess, ErrInvalidPermission
	}
	if !start.IsPageAligned() {
		return hostarch.NoAccess, ErrMisalignedAddress
	}
	return at, nil
}

// validateMunmap checks the arguments of munmap.
func validateMunmap(start hostarch.Addr) error {
	if !start.IsPageAligned() {
		return ErrMisalignedAddress
	}
	return nil
}

// Mmap implements the mmap syscall: mmap(start, len, prot) maps
// [start, start+len) anonymously with permissions prot, len being rounded up
// to whole pages. The range must not overlap an existing mapping.
func Mmap(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	start := args[0].Pointer()
	length := args[1].Uint64()
	prot := args[2].Uint64()

	at, err := validateMmap(start, prot)
	if err != nil {
		return 0, nil, err
	}
	if err := t.MemoryManager().MMap(context.Background(), mm.MMapOpts{
		Addr:   start,
		Length: length,
		Perms:  at,
	}); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// Munmap implements the munmap syscall: munmap(start, len) unmaps
// [start, start+len), len being rounded up to whole pages. Every page of the
// range must be mapped.
func Munmap(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	start := args[0].Pointer()
	length := args[1].Uint64()

	if err := validateMunmap(start); err != nil {
		return 0, nil, err
	}
	return 0, nil, t.MemoryManager().MUnmap(context.Background(), start, length)
}
