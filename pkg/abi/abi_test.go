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

package abi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gokern.dev/gokern/pkg/hostarch"
)

func TestTimeValLayout(t *testing.T) {
	tv := TimeValFromMicros(3_000_042)
	if tv.Sec != 3 || tv.Usec != 42 {
		t.Fatalf("TimeValFromMicros got %+v want {Sec:3 Usec:42}", tv)
	}
	buf := make([]byte, tv.SizeBytes())
	tv.MarshalBytes(buf)
	if got := hostarch.ByteOrder.Uint64(buf[0:]); got != 3 {
		t.Errorf("sec field got %d want 3", got)
	}
	if got := hostarch.ByteOrder.Uint64(buf[8:]); got != 42 {
		t.Errorf("usec field got %d want 42", got)
	}
	var back TimeVal
	back.UnmarshalBytes(buf)
	if back.Micros() != 3_000_042 {
		t.Errorf("Micros got %d want 3000042", back.Micros())
	}
}

func TestTaskInfoLayout(t *testing.T) {
	ti := TaskInfo{
		Status: TaskRunning,
		Time:   1234,
	}
	ti.SyscallTimes[SysGetTime] = 7
	ti.SyscallTimes[SysTaskInfo] = 1
	ti.SyscallTimes[MaxSyscallNum-1] = 9

	buf := make([]byte, ti.SizeBytes())
	for i := range buf {
		buf[i] = 0xff
	}
	ti.MarshalBytes(buf)

	if got := hostarch.ByteOrder.Uint32(buf[0:]); got != uint32(TaskRunning) {
		t.Errorf("status got %d want %d", got, TaskRunning)
	}
	if got := hostarch.ByteOrder.Uint32(buf[4+4*SysGetTime:]); got != 7 {
		t.Errorf("syscall_times[get_time] got %d want 7", got)
	}
	if got := hostarch.ByteOrder.Uint32(buf[2004:]); got != 0 {
		t.Errorf("padding got %#x want 0", got)
	}
	if got := hostarch.ByteOrder.Uint64(buf[2008:]); got != 1234 {
		t.Errorf("time got %d want 1234", got)
	}

	var back TaskInfo
	back.UnmarshalBytes(buf)
	if diff := cmp.Diff(ti, back); diff != "" {
		t.Errorf("TaskInfo changed across marshalling (-want +got):\n%s", diff)
	}
}

func TestTaskStatusString(t *testing.T) {
	for s, want := range map[TaskStatus]string{
		TaskUnInit:     "UnInit",
		TaskReady:      "Ready",
		TaskRunning:    "Running",
		TaskExited:     "Exited",
		TaskStatus(17): "TaskStatus(17)",
	} {
		if got := s.String(); got != want {
			t.Errorf("TaskStatus(%d).String() got %q want %q", uint32(s), got, want)
		}
	}
}
