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

	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/arch"
)

// unsupportedLog reports unknown syscalls without flooding the log.
var unsupportedLog = log.BasicRateLimitedLogger(time.Second)

// Syscall executes syscall sysno with the given raw arguments on behalf of
// the running task t, and returns its result: the value produced by the
// syscall, or -1 if it failed.
//
// Syscall does not return if the syscall makes t exit.
//
// Preconditions: The caller must be running on the task goroutine of t, and
// t must hold the baton.
func (t *Task) Syscall(sysno uintptr, rawArgs ...uintptr) int64 {
	if t.k.tasks.killed() {
		t.k.tasks.exitIfCurrent(t, ExitCodeKilled)
		runtime.Goexit()
	}

	args := arch.ArgsFrom(rawArgs...)
	t.countSyscall(sysno)
	if t.k.strace {
		log.Infof("%v E %s(%s)", t, t.k.syscalls.LookupName(sysno), args.Format(len(rawArgs)))
	}

	rv, ctrl, err := t.executeSyscall(sysno, args)
	if ctrl != nil && ctrl.exit {
		if t.k.strace {
			log.Infof("%v X %s(%s) = exited", t, t.k.syscalls.LookupName(sysno), args.Format(len(rawArgs)))
		}
		runtime.Goexit()
	}

	ret := int64(rv)
	if err != nil {
		log.Debugf("%v: %s failed: %v (errno %d)", t, t.k.syscalls.LookupName(sysno), err, linuxerr.ToErrno(err))
		ret = -1
	}
	if t.k.strace {
		if err != nil {
			log.Infof("%v X %s(%s) = %d (%v)", t, t.k.syscalls.LookupName(sysno), args.Format(len(rawArgs)), ret, err)
		} else {
			log.Infof("%v X %s(%s) = %d", t, t.k.syscalls.LookupName(sysno), args.Format(len(rawArgs)), ret)
		}
	}
	return ret
}

// executeSyscall looks up and runs the implementation of sysno.
func (t *Task) executeSyscall(sysno uintptr, args arch.SyscallArguments) (uintptr, *SyscallControl, error) {
	fn := t.k.syscalls.Lookup(sysno)
	if fn == nil {
		unsupportedLog.Warningf("[kernel] Unsupported syscall_id: %d", sysno)
		return 0, nil, linuxerr.ENOSYS
	}
	return fn(t, args)
}
