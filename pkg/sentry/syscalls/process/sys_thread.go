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
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/arch"
	"gokern.dev/gokern/pkg/sentry/kernel"
)

// Exit implements the exit syscall. It does not return to the caller.
func Exit(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	code := args[0].Int()
	log.Infof("[kernel] Application exited with code %d", code)
	t.Kernel().Scheduler().ExitCurrentAndRunNext(code)
	return 0, kernel.CtrlDoExit, nil
}

// Yield implements the sched_yield syscall: the caller goes to the back of
// the ready queue.
func Yield(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	t.Kernel().Scheduler().SuspendCurrentAndRunNext()
	return 0, nil, nil
}
