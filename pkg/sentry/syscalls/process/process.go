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

// Package process implements the process management syscalls: exit, yield,
// time, priority, anonymous memory mapping and task introspection, plus
// console output.
package process

import (
	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/sentry/kernel"
	"gokern.dev/gokern/pkg/sentry/syscalls"
)

// Table is the syscall table of the kernel.
var Table = &kernel.SyscallTable{
	Name: "process",
	Table: map[uintptr]kernel.Syscall{
		abi.SysWrite:       syscalls.PartiallySupported("write", Write, "Only standard output is supported."),
		abi.SysExit:        syscalls.Supported("exit", Exit),
		abi.SysYield:       syscalls.Supported("sched_yield", Yield),
		abi.SysSetPriority: syscalls.Error("set_priority", linuxerr.ENOSYS, "Scheduling priorities are not supported"),
		abi.SysGetTime:     syscalls.Supported("get_time", GetTime),
		abi.SysMunmap:      syscalls.Supported("munmap", Munmap),
		abi.SysMmap:        syscalls.PartiallySupported("mmap", Mmap, "Only fixed anonymous mappings; the address must be page aligned."),
		abi.SysTaskInfo:    syscalls.Supported("task_info", TaskInfo),
	},
}
