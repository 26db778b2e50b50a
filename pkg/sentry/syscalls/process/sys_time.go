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
	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/marshal"
	"gokern.dev/gokern/pkg/sentry/arch"
	"gokern.dev/gokern/pkg/sentry/kernel"
)

// GetTime implements the get_time syscall. The timezone argument is ignored.
func GetTime(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	tv := abi.TimeValFromMicros(t.Kernel().Clock().NowMicros())
	if _, err := tv.CopyOut(t, addr); err != nil {
		return faulted(t, addr, err)
	}
	return 0, nil, nil
}

// faulted finishes a syscall whose copy to or from user memory at addr
// failed with err. A bad address kills the caller.
func faulted(t *kernel.Task, addr hostarch.Addr, err error) (uintptr, *kernel.SyscallControl, error) {
	if linuxerr.Equals(linuxerr.EFAULT, err) {
		return 0, t.HandleFault(addr, err), nil
	}
	return 0, nil, err
}

var _ marshal.Marshallable = (*abi.TimeVal)(nil)
