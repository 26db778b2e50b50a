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
	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/arch"
	"gokern.dev/gokern/pkg/sentry/kernel"
)

// Standard file descriptors.
const (
	fdStdout = 1
)

// maxWriteChunk bounds the kernel buffer used by write.
const maxWriteChunk = hostarch.PageSize

// Write implements the write syscall for standard output, which is the
// kernel console. It returns the number of bytes written.
func Write(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].SizeT()

	if fd != fdStdout {
		return 0, nil, linuxerr.EBADF
	}
	buf := make([]byte, min(uint64(size), maxWriteChunk))
	var total uintptr
	for total < uintptr(size) {
		n := min(uint64(uintptr(size)-total), maxWriteChunk)
		cur := addr + hostarch.Addr(total)
		if _, err := t.CopyInBytes(cur, buf[:n]); err != nil {
			return faulted(t, cur, err)
		}
		if _, err := t.Kernel().WriteConsole(buf[:n]); err != nil {
			return total, nil, err
		}
		total += uintptr(n)
	}
	return total, nil, nil
}
