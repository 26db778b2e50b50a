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
	"bytes"
	"sort"

	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/kernel"
)

// App is a built-in program.
type App struct {
	// Name identifies the app on the command line.
	Name string

	// Description is a one-line summary.
	Description string

	// Program is the code of the app.
	Program kernel.Program

	// ExitCode is the code the app exits with when the kernel behaves.
	ExitCode int32
}

// mmapStart is where the memory apps place their mappings.
const mmapStart = hostarch.Addr(0x10000000)

// sleepMillis is how long the sleep app waits.
const sleepMillis = 50

var apps = map[string]App{}

func register(a App) {
	if _, ok := apps[a.Name]; ok {
		panic("duplicate app " + a.Name)
	}
	apps[a.Name] = a
}

// Apps returns all built-in apps, sorted by name.
func Apps() []App {
	rv := make([]App, 0, len(apps))
	for _, a := range apps {
		rv = append(rv, a)
	}
	sort.Slice(rv, func(i, j int) bool { return rv[i].Name < rv[j].Name })
	return rv
}

// LookupApp returns the built-in app called name.
func LookupApp(name string) (App, bool) {
	a, ok := apps[name]
	return a, ok
}

func init() {
	register(App{
		Name:        "hello",
		Description: "prints a greeting",
		Program:     hello,
	})
	register(App{
		Name:        "yield",
		Description: "prints a few lines, yielding after each",
		Program:     yieldLoop,
	})
	register(App{
		Name:        "sleep",
		Description: "yields until some time has passed",
		Program:     sleep,
	})
	register(App{
		Name:        "get_time",
		Description: "checks that time does not go backwards",
		Program:     checkTime,
	})
	register(App{
		Name:        "task_info",
		Description: "checks its own task_info",
		Program:     checkTaskInfo,
	})
	register(App{
		Name:        "set_priority",
		Description: "checks that set_priority is rejected",
		Program:     checkSetPriority,
	})
	register(App{
		Name:        "mmap0",
		Description: "maps a page, fills it, reads it back and unmaps it",
		Program:     mmap0,
	})
	register(App{
		Name:        "mmap1",
		Description: "writes to a read-only mapping and gets killed",
		Program:     mmap1,
		ExitCode:    kernel.ExitCodePageFault,
	})
	register(App{
		Name:        "mmap2",
		Description: "passes invalid arguments to mmap",
		Program:     mmap2,
	})
	register(App{
		Name:        "mmap3",
		Description: "maps over existing mappings",
		Program:     mmap3,
	})
	register(App{
		Name:        "munmap",
		Description: "unmaps parts of mappings and unmapped memory",
		Program:     unmap,
	})
}

func hello(t *kernel.Task) {
	printf(t, "Hello, world from %s!\n", t)
}

func yieldLoop(t *kernel.Task) {
	for i := 0; i < 5; i++ {
		printf(t, "%s: iteration %d\n", t, i)
		yield(t)
	}
	printf(t, "%s: yield OK!\n", t)
}

func sleep(t *kernel.Task) {
	start := getTime(t)
	for getTime(t) < start+sleepMillis {
		yield(t)
	}
	printf(t, "Test sleep OK!\n")
}

func checkTime(t *kernel.Task) {
	prev := getTime(t)
	for i := 0; i < 10; i++ {
		now := getTime(t)
		if now < prev {
			printf(t, "time went backwards: %d < %d\n", now, prev)
			exit(t, 1)
		}
		prev = now
	}
	printf(t, "get_time OK! %d\n", prev)
}

func checkTaskInfo(t *kernel.Task) {
	getTime(t)
	yield(t)
	var info abi.TaskInfo
	expect(t, "task_info", taskInfo(t, &info), 0)
	expect(t, "status", int64(info.Status), int64(abi.TaskRunning))
	expect(t, "get_time calls", int64(info.SyscallTimes[abi.SysGetTime]), 1)
	expect(t, "sched_yield calls", int64(info.SyscallTimes[abi.SysYield]), 1)
	expect(t, "task_info calls", int64(info.SyscallTimes[abi.SysTaskInfo]), 1)
	printf(t, "Test task info OK! running for %dms\n", info.Time)
}

func checkSetPriority(t *kernel.Task) {
	expect(t, "set_priority(10)", setPriority(t, 10), -1)
	expect(t, "set_priority(-1)", setPriority(t, -1), -1)
	printf(t, "Test set_priority OK!\n")
}

func mmap0(t *kernel.Task) {
	const length = hostarch.PageSize
	expect(t, "mmap", mmap(t, mmapStart, length, hostarch.PermRead|hostarch.PermWrite), 0)
	want := make([]byte, length)
	for i := range want {
		want[i] = byte(i)
	}
	t.UserWrite(mmapStart, want)
	got := make([]byte, length)
	t.UserRead(mmapStart, got)
	if !bytes.Equal(got, want) {
		printf(t, "mapping does not hold what was written\n")
		exit(t, 1)
	}
	expect(t, "munmap", munmap(t, mmapStart, length), 0)
	printf(t, "Test mmap0 OK!\n")
}

func mmap1(t *kernel.Task) {
	const length = hostarch.PageSize
	expect(t, "mmap", mmap(t, mmapStart, length, hostarch.PermRead), 0)
	t.UserWrite(mmapStart, []byte{1})
	printf(t, "Should not reach here!\n")
}

func mmap2(t *kernel.Task) {
	const length = hostarch.PageSize
	expect(t, "mmap without permissions", mmap(t, mmapStart, length, 0), -1)
	expect(t, "mmap with unknown permission bits", mmap(t, mmapStart, length, hostarch.PermRead|8), -1)
	expect(t, "mmap at a misaligned address", mmap(t, mmapStart+1, length, hostarch.PermRead), -1)
	printf(t, "Test mmap2 OK!\n")
}

func mmap3(t *kernel.Task) {
	const length = hostarch.PageSize
	const prot = hostarch.PermRead | hostarch.PermWrite
	expect(t, "mmap", mmap(t, mmapStart, length, prot), 0)
	expect(t, "mmap overlapping the start", mmap(t, mmapStart-length, length+1, prot), -1)
	expect(t, "mmap over the same range", mmap(t, mmapStart, length, prot), -1)
	expect(t, "mmap after the mapping", mmap(t, mmapStart+length, length, prot), 0)
	printf(t, "Test mmap3 OK!\n")
}

func unmap(t *kernel.Task) {
	const length = hostarch.PageSize
	const prot = hostarch.PermRead | hostarch.PermWrite
	expect(t, "mmap", mmap(t, mmapStart, length, prot), 0)
	expect(t, "mmap next two pages", mmap(t, mmapStart+length, 2*length, prot), 0)
	expect(t, "munmap first page", munmap(t, mmapStart, length), 0)
	expect(t, "mmap page before", mmap(t, mmapStart-length, length+1, prot), 0)
	data := make([]byte, 4*length)
	t.UserWrite(mmapStart-length, data)
	expect(t, "munmap past the mappings", munmap(t, mmapStart+2*length, 2*length), -1)
	expect(t, "munmap everything", munmap(t, mmapStart-length, 4*length), 0)
	expect(t, "munmap unmapped page", munmap(t, mmapStart, length), -1)
	printf(t, "Test munmap OK!\n")
}
