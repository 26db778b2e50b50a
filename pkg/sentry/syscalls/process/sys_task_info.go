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
	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/sentry/arch"
	"gokern.dev/gokern/pkg/sentry/kernel"
)

// TaskInfo implements the task_info syscall. It reports the caller's status,
// how often it made each syscall (this call included) and how long it has
// been running, in milliseconds.
func TaskInfo(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	info := abi.TaskInfo{
		Status:       t.Status(),
		SyscallTimes: t.SyscallTimes(),
		Time:         t.RunningTimeMicros() / 1000,
	}
	if _, err := info.CopyOut(t, addr); err != nil {
		return faulted(t, addr, err)
	}
	return 0, nil, nil
}
