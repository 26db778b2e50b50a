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

package boot

import (
	"fmt"

	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/kernel"
)

// The helpers below are the user side of the syscall boundary: built-in
// programs only reach the kernel through t.Syscall, and only touch memory
// through t.UserWrite and t.UserRead, like code running in user mode.

// stdout is the file descriptor of the console.
const stdout = 1

// scratch returns the address of a size-byte area at the top of the stack.
// Every helper reuses it, so its contents only live until the next call.
func scratch(t *kernel.Task, size int) hostarch.Addr {
	return (t.StackTop() - hostarch.Addr(size)) &^ 7
}

func write(t *kernel.Task, b []byte) int64 {
	var total int64
	for len(b) > 0 {
		n := min(len(b), hostarch.PageSize)
		addr := scratch(t, n)
		t.UserWrite(addr, b[:n])
		ret := t.Syscall(abi.SysWrite, stdout, uintptr(addr), uintptr(n))
		if ret < 0 {
			return ret
		}
		total += ret
		b = b[n:]
	}
	return total
}

func printf(t *kernel.Task, format string, v ...any) {
	write(t, []byte(fmt.Sprintf(format, v...)))
}

func exit(t *kernel.Task, code int32) {
	t.Syscall(abi.SysExit, uintptr(code))
}

func yield(t *kernel.Task) int64 {
	return t.Syscall(abi.SysYield)
}

// getTime returns the time in milliseconds, or -1.
func getTime(t *kernel.Task) int64 {
	addr := scratch(t, abi.SizeOfTimeVal)
	if ret := t.Syscall(abi.SysGetTime, uintptr(addr), 0); ret < 0 {
		return ret
	}
	buf := make([]byte, abi.SizeOfTimeVal)
	t.UserRead(addr, buf)
	var tv abi.TimeVal
	tv.UnmarshalBytes(buf)
	return int64(tv.Micros() / 1000)
}

func taskInfo(t *kernel.Task, info *abi.TaskInfo) int64 {
	addr := scratch(t, abi.SizeOfTaskInfo)
	if ret := t.Syscall(abi.SysTaskInfo, uintptr(addr)); ret < 0 {
		return ret
	}
	buf := make([]byte, abi.SizeOfTaskInfo)
	t.UserRead(addr, buf)
	info.UnmarshalBytes(buf)
	return 0
}

func setPriority(t *kernel.Task, prio int64) int64 {
	return t.Syscall(abi.SysSetPriority, uintptr(prio))
}

func mmap(t *kernel.Task, start hostarch.Addr, length uint64, prot uint64) int64 {
	return t.Syscall(abi.SysMmap, uintptr(start), uintptr(length), uintptr(prot))
}

func munmap(t *kernel.Task, start hostarch.Addr, length uint64) int64 {
	return t.Syscall(abi.SysMunmap, uintptr(start), uintptr(length))
}

// expect makes t exit with code 1 if got is not want.
func expect(t *kernel.Task, what string, got, want int64) {
	if got != want {
		printf(t, "%s: got %d, want %d\n", what, got, want)
		exit(t, 1)
	}
}
