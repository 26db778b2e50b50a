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

// Package abi describes the binary interface between user programs and the
// kernel: syscall numbers and the layout of structures exchanged through
// user memory.
package abi

// Syscall numbers. These follow the RISC-V Linux numbering where a Linux
// counterpart exists.
const (
	SysWrite       = 64
	SysExit        = 93
	SysYield       = 124
	SysSetPriority = 140
	SysGetTime     = 169
	SysMunmap      = 215
	SysMmap        = 222
	SysTaskInfo    = 410
)

// MaxSyscallNum bounds the syscall numbers whose invocations are counted per
// task. It is also the length of TaskInfo.SyscallTimes.
const MaxSyscallNum = 500
