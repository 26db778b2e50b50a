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

// Package kernel provides an emulation of the kernel's task management and
// the user/kernel syscall boundary.
//
// Each task is a program running on its own goroutine, but only one task
// runs at a time. Control moves between tasks only when the running task
// yields or exits, through the TaskSet scheduler.
package kernel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/ktime"
	"gokern.dev/gokern/pkg/sentry/mm"
	"gokern.dev/gokern/pkg/sentry/pagetables"
	"gokern.dev/gokern/pkg/sentry/pgalloc"
	"gokern.dev/gokern/pkg/sentry/physmem"
)

// InitKernelArgs holds arguments to New.
type InitKernelArgs struct {
	// MemoryBase is the physical address of the first byte of memory.
	MemoryBase hostarch.PhysAddr

	// MemorySize is the size of physical memory in bytes.
	MemorySize uint64

	// MaxUserAddress is the exclusive upper bound of user mappings.
	MaxUserAddress hostarch.Addr

	// UserStackTop is the exclusive end of each task's stack mapping.
	UserStackTop hostarch.Addr

	// UserStackPages is the number of pages in each task's stack mapping.
	// If zero, tasks have no stack mapping.
	UserStackPages uint64

	// Clock is the time source of the kernel.
	Clock ktime.Clock

	// SyscallTable is the table syscalls are dispatched through.
	SyscallTable *SyscallTable

	// Console receives what tasks write to standard output. If nil, output
	// is discarded.
	Console io.Writer

	// Strace enables logging of every syscall.
	Strace bool

	// DumpMaps enables logging of the mappings of each task as it exits.
	DumpMaps bool
}

// Kernel represents an emulated kernel instance.
type Kernel struct {
	// The following fields are immutable after New.
	mem            *physmem.Memory
	mf             *pgalloc.Allocator
	registry       *pagetables.Registry
	clock          ktime.Clock
	syscalls       *SyscallTable
	maxUserAddress hostarch.Addr
	stack          hostarch.AddrRange
	strace         bool
	dumpMaps       bool

	// tasks is the set of all tasks and their scheduler.
	tasks *TaskSet

	// nextTID is the ID of the next task created.
	nextTID atomic.Int32

	consoleMu sync.Mutex

	// +checklocks:consoleMu
	console io.Writer
}

// New returns a kernel with args.MemorySize bytes of fresh physical memory.
func New(args InitKernelArgs) (*Kernel, error) {
	if args.SyscallTable == nil {
		return nil, fmt.Errorf("no syscall table")
	}
	if args.Clock == nil {
		return nil, fmt.Errorf("no clock")
	}
	if !args.MaxUserAddress.IsPageAligned() || args.MaxUserAddress == 0 {
		return nil, fmt.Errorf("max user address %v is not a positive page-aligned address", args.MaxUserAddress)
	}
	var stack hostarch.AddrRange
	if args.UserStackPages != 0 {
		if !args.UserStackTop.IsPageAligned() || args.UserStackTop > args.MaxUserAddress {
			return nil, fmt.Errorf("user stack top %v is not page-aligned or exceeds max user address %v", args.UserStackTop, args.MaxUserAddress)
		}
		size := args.UserStackPages * hostarch.PageSize
		if size/hostarch.PageSize != args.UserStackPages || size > uint64(args.UserStackTop) {
			return nil, fmt.Errorf("user stack of %d pages does not fit below %v", args.UserStackPages, args.UserStackTop)
		}
		stack = hostarch.AddrRange{Start: args.UserStackTop - hostarch.Addr(size), End: args.UserStackTop}
	}

	mem, err := physmem.New(args.MemoryBase, args.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("creating physical memory: %w", err)
	}
	console := args.Console
	if console == nil {
		console = io.Discard
	}
	args.SyscallTable.Init()
	k := &Kernel{
		mem:            mem,
		mf:             pgalloc.New(mem),
		registry:       pagetables.NewRegistry(),
		clock:          args.Clock,
		syscalls:       args.SyscallTable,
		maxUserAddress: args.MaxUserAddress,
		stack:          stack,
		strace:         args.Strace,
		dumpMaps:       args.DumpMaps,
		console:        console,
	}
	k.tasks = newTaskSet(k)
	log.Infof("[kernel] Physical memory [%v, %v), %d frames", mem.Base(), mem.Base()+hostarch.PhysAddr(mem.Size()), k.mf.TotalFrames())
	return k, nil
}

// NewTask creates a task running program and makes it ready to run. The task
// gets a fresh address space containing only its stack.
func (k *Kernel) NewTask(name string, program Program) (*Task, error) {
	m, err := mm.NewMemoryManager(k.mf, k.registry, k.maxUserAddress)
	if err != nil {
		return nil, fmt.Errorf("creating address space for %q: %w", name, err)
	}
	if k.stack.Length() != 0 {
		if err := m.MMap(context.Background(), mm.MMapOpts{
			Addr:   k.stack.Start,
			Length: uint64(k.stack.Length()),
			Perms:  hostarch.ReadWrite,
			Name:   "[stack]",
		}); err != nil {
			m.Release()
			return nil, fmt.Errorf("mapping stack of %q: %w", name, err)
		}
	}
	t := &Task{
		k:       k,
		tid:     ThreadID(k.nextTID.Add(1)),
		name:    name,
		program: program,
		mm:      m,
		wake:    make(chan struct{}, 1),
		exited:  make(chan struct{}),
	}
	k.tasks.add(t)
	log.Debugf("[kernel] Created task %v with token %v", t, m.Token())
	return t, nil
}

// Run runs tasks until none is left ready to run, or ctx is done. In the
// latter case, every task is killed and ctx.Err() is returned once the
// running task has reached its next syscall.
func (k *Kernel) Run(ctx context.Context) error {
	return k.tasks.run(ctx)
}

// Release frees the physical memory of k. It must be called only when no
// task is running.
func (k *Kernel) Release() error {
	return k.mem.Release()
}

// TaskSet returns the set of tasks of k.
func (k *Kernel) TaskSet() *TaskSet {
	return k.tasks
}

// Scheduler returns the scheduler of k.
func (k *Kernel) Scheduler() Scheduler {
	return k.tasks
}

// PageTables returns the registry of the page tables of every address space
// of k.
func (k *Kernel) PageTables() *pagetables.Registry {
	return k.registry
}

// PhysicalMemory returns the physical memory of k.
func (k *Kernel) PhysicalMemory() *physmem.Memory {
	return k.mem
}

// MemoryFile returns the frame allocator of k.
func (k *Kernel) MemoryFile() *pgalloc.Allocator {
	return k.mf
}

// Clock returns the time source of k.
func (k *Kernel) Clock() ktime.Clock {
	return k.clock
}

// SyscallTable returns the syscall table of k.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.syscalls
}

// WriteConsole writes b to the console.
func (k *Kernel) WriteConsole(b []byte) (int, error) {
	k.consoleMu.Lock()
	defer k.consoleMu.Unlock()
	return k.console.Write(b)
}
