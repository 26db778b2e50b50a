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
	"fmt"
	"sync"

	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/sentry/mm"
	"gokern.dev/gokern/pkg/sentry/pagetables"
)

// ThreadID is a task ID.
type ThreadID int32

// Exit codes of tasks killed by the kernel.
const (
	// ExitCodePageFault is the exit code of a task killed for accessing
	// user memory it has no valid mapping for.
	ExitCodePageFault int32 = -2

	// ExitCodeKilled is the exit code of a task that panicked, or that was
	// still alive when the kernel stopped.
	ExitCodeKilled int32 = -9
)

// Program is the code run by a task. The task exits with code 0 when the
// program returns. A program interacts with the kernel only through its
// task, chiefly Task.Syscall.
type Program func(t *Task)

// Task represents a thread of execution.
type Task struct {
	// The following fields are immutable.
	k       *Kernel
	tid     ThreadID
	name    string
	program Program

	// mm is the task's address space. It is released when the task exits.
	mm *mm.MemoryManager

	// wake receives the baton when the scheduler switches to the task.
	wake chan struct{}

	// exited is closed when the task exits.
	exited chan struct{}

	// The following fields are protected by the TaskSet mutex.
	status    abi.TaskStatus
	started   bool
	startTime uint64
	exitTime  uint64
	exitCode  int32

	// syscallMu protects syscallTimes.
	syscallMu sync.Mutex

	// syscallTimes counts invocations per syscall number.
	//
	// +checklocks:syscallMu
	syscallTimes [abi.MaxSyscallNum]uint32
}

// String implements fmt.Stringer.String.
func (t *Task) String() string {
	return fmt.Sprintf("%s[%d]", t.name, t.tid)
}

// Kernel returns the Kernel containing t.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// ThreadID returns t's ID.
func (t *Task) ThreadID() ThreadID {
	return t.tid
}

// Name returns t's name.
func (t *Task) Name() string {
	return t.name
}

// MemoryManager returns t's address space.
func (t *Task) MemoryManager() *mm.MemoryManager {
	return t.mm
}

// Token returns the token of t's page tables. It is read from the address
// space on every call.
func (t *Task) Token() pagetables.Token {
	return t.mm.Token()
}

// Status returns t's scheduling status.
func (t *Task) Status() abi.TaskStatus {
	t.k.tasks.mu.Lock()
	defer t.k.tasks.mu.Unlock()
	return t.status
}

// SyscallTimes returns a copy of t's per-syscall invocation counters.
func (t *Task) SyscallTimes() [abi.MaxSyscallNum]uint32 {
	t.syscallMu.Lock()
	defer t.syscallMu.Unlock()
	return t.syscallTimes
}

// countSyscall records an invocation of sysno.
func (t *Task) countSyscall(sysno uintptr) {
	if sysno >= abi.MaxSyscallNum {
		return
	}
	t.syscallMu.Lock()
	t.syscallTimes[sysno]++
	t.syscallMu.Unlock()
}

// RunningTimeMicros returns the time elapsed since t was first scheduled, or
// 0 if it never was. It stops growing when t exits.
func (t *Task) RunningTimeMicros() uint64 {
	t.k.tasks.mu.Lock()
	started, start := t.started, t.startTime
	exited, end := t.status == abi.TaskExited, t.exitTime
	t.k.tasks.mu.Unlock()
	if !started {
		return 0
	}
	if !exited {
		end = t.k.clock.NowMicros()
	}
	return end - start
}

// Exited returns a channel that is closed when t exits.
func (t *Task) Exited() <-chan struct{} {
	return t.exited
}

// ExitCode returns t's exit code. ok is false if t has not exited.
func (t *Task) ExitCode() (code int32, ok bool) {
	t.k.tasks.mu.Lock()
	defer t.k.tasks.mu.Unlock()
	return t.exitCode, t.status == abi.TaskExited
}
