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

// Package kerneltest provides kernels for tests.
package kerneltest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/kernel"
	"gokern.dev/gokern/pkg/sentry/ktime"
)

// Memory layout of test kernels.
const (
	MemoryBase     = hostarch.PhysAddr(0x80000000)
	MemoryFrames   = 256
	MaxUserAddress = hostarch.Addr(0x80000000)
	UserStackTop   = hostarch.Addr(0x7ffff000)
	UserStackPages = 2
)

// Kernel is a kernel built for a test.
type Kernel struct {
	*kernel.Kernel

	// Clock only moves when the test advances it.
	Clock *ktime.ManualClock

	// Console collects what tasks write to standard output.
	Console *SyncBuffer
}

// SyncBuffer is a bytes.Buffer safe for concurrent use.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.Write.
func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the contents of the buffer.
func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// New returns a kernel dispatching syscalls through table. It is released
// when the test ends.
func New(t testing.TB, table *kernel.SyscallTable) *Kernel {
	t.Helper()
	clock := &ktime.ManualClock{}
	console := &SyncBuffer{}
	k, err := kernel.New(kernel.InitKernelArgs{
		MemoryBase:     MemoryBase,
		MemorySize:     MemoryFrames * hostarch.PageSize,
		MaxUserAddress: MaxUserAddress,
		UserStackTop:   UserStackTop,
		UserStackPages: UserStackPages,
		Clock:          clock,
		SyscallTable:   table,
		Console:        console,
	})
	if err != nil {
		t.Fatalf("kernel.New failed: %v", err)
	}
	t.Cleanup(func() { k.Release() })
	return &Kernel{Kernel: k, Clock: clock, Console: console}
}

// Start creates a task for each program, in order.
func (k *Kernel) Start(t testing.TB, programs ...kernel.Program) []*kernel.Task {
	t.Helper()
	tasks := make([]*kernel.Task, 0, len(programs))
	for _, p := range programs {
		task, err := k.NewTask(t.Name(), p)
		if err != nil {
			t.Fatalf("NewTask failed: %v", err)
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Run runs the kernel until every task has exited, failing the test if that
// takes too long.
func (k *Kernel) Run(t testing.TB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := k.Kernel.Run(ctx); err != nil {
		t.Fatalf("kernel.Run failed: %v", err)
	}
}

// RunProgram runs program in a new task to completion and returns its exit
// code.
func (k *Kernel) RunProgram(t testing.TB, program kernel.Program) int32 {
	t.Helper()
	task := k.Start(t, program)[0]
	k.Run(t)
	code, ok := task.ExitCode()
	if !ok {
		t.Fatalf("task %v did not exit", task)
	}
	return code
}
