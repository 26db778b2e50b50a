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

package kernel

import (
	"runtime"
	"time"

	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/marshal"
	"gokern.dev/gokern/pkg/sentry/usermem"
)

// faultLog reports tasks killed for bad memory accesses.
var faultLog = log.BasicRateLimitedLogger(100 * time.Millisecond)

var _ marshal.CopyContext = (*Task)(nil)

// CopyOutBytes is a fast version of CopyOut if the caller can serialize the
// data without reflection. It writes src to t's memory at addr as the kernel,
// so it ignores the permissions of the mapping. Each page touched is
// translated through t's page tables separately.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) CopyOutBytes(addr hostarch.Addr, src []byte) (int, error) {
	return usermem.CopyOut(t.k.registry, t.k.mem, t.Token(), addr, src, usermem.KernelIO)
}

// CopyInBytes is a fast version of CopyIn if the caller can serialize the
// data without reflection. It reads len(dst) bytes of t's memory at addr
// into dst as the kernel.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) CopyInBytes(addr hostarch.Addr, dst []byte) (int, error) {
	return usermem.CopyIn(t.k.registry, t.k.mem, t.Token(), addr, dst, usermem.KernelIO)
}

// HandleFault kills t after a failed access to its memory at addr, and
// returns the control the calling syscall must return.
//
// Preconditions: t must be the running task.
func (t *Task) HandleFault(addr hostarch.Addr, err error) *SyscallControl {
	faultLog.Warningf("[kernel] PageFault in application %v, bad addr = %v (%v), kernel killed it.", t, addr, err)
	t.k.tasks.exitIfCurrent(t, ExitCodePageFault)
	return CtrlDoExit
}

// UserWrite stores src at addr from user mode: the pages written must be
// mapped user-accessible and writable. A violation is a page fault that
// kills t, in which case UserWrite does not return.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) UserWrite(addr hostarch.Addr, src []byte) {
	if _, err := usermem.CopyOut(t.k.registry, t.k.mem, t.Token(), addr, src, usermem.IOOpts{}); err != nil {
		t.HandleFault(addr, err)
		runtime.Goexit()
	}
}

// UserRead loads len(dst) bytes at addr into dst from user mode: the pages
// read must be mapped user-accessible and readable. A violation is a page
// fault that kills t, in which case UserRead does not return.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) UserRead(addr hostarch.Addr, dst []byte) {
	if _, err := usermem.CopyIn(t.k.registry, t.k.mem, t.Token(), addr, dst, usermem.IOOpts{}); err != nil {
		t.HandleFault(addr, err)
		runtime.Goexit()
	}
}

// StackTop returns the exclusive end of t's stack mapping.
func (t *Task) StackTop() hostarch.Addr {
	return t.k.stack.End
}
