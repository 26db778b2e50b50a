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

package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/sentry/syscalls/process"
	"gokern.dev/gokern/runk/boot"
)

func TestSyscallsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := outputJSON(&buf, getTableInfo(process.Table)); err != nil {
		t.Fatalf("outputJSON failed: %v", err)
	}
	var got TableInfo
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal failed: %v\n%s", err, buf.String())
	}
	if got.Name != "process" {
		t.Errorf("Name got %q want %q", got.Name, "process")
	}
	for num, name := range map[uintptr]string{
		abi.SysWrite:       "write",
		abi.SysExit:        "exit",
		abi.SysYield:       "sched_yield",
		abi.SysSetPriority: "set_priority",
		abi.SysGetTime:     "get_time",
		abi.SysMunmap:      "munmap",
		abi.SysMmap:        "mmap",
		abi.SysTaskInfo:    "task_info",
	} {
		if doc, ok := got.Syscalls[num]; !ok || doc.Name != name {
			t.Errorf("syscall %d got %+v want name %q", num, doc, name)
		}
	}
}

func TestSyscallsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := outputCSV(&buf, getTableInfo(process.Table)); err != nil {
		t.Fatalf("outputCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != len(process.Table.Table)+1 {
		t.Fatalf("got %d rows want %d", len(rows), len(process.Table.Table)+1)
	}
	if diff := cmp.Diff([]string{"Table", "Num", "Name", "Support", "Note"}, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	// Rows are sorted by number, so write comes first.
	if got, want := rows[1][1:3], []string{"64", "write"}; !cmp.Equal(got, want) {
		t.Errorf("first row got %v want %v", got, want)
	}
	if got, want := rows[len(rows)-1][1:3], []string{"410", "task_info"}; !cmp.Equal(got, want) {
		t.Errorf("last row got %v want %v", got, want)
	}
}

func TestSyscallsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := outputTable(&buf, getTableInfo(process.Table)); err != nil {
		t.Fatalf("outputTable failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"process:", "NUM", "set_priority", "Returns invalid system call number.", "Partial Support", "Unimplemented"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestAppNames(t *testing.T) {
	var all []string
	for _, a := range boot.Apps() {
		all = append(all, a.Name)
	}
	for _, tc := range []struct {
		name string
		apps string
		args []string
		want []string
	}{
		{
			name: "default",
			want: all,
		},
		{
			name: "flag",
			apps: "hello, mmap0,,yield",
			want: []string{"hello", "mmap0", "yield"},
		},
		{
			name: "flag and args",
			apps: "hello",
			args: []string{"sleep", "hello"},
			want: []string{"hello", "sleep", "hello"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &Run{apps: tc.apps}
			if diff := cmp.Diff(tc.want, r.appNames(tc.args)); diff != "" {
				t.Errorf("appNames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResults(&buf, []boot.Result{
		{App: "hello", TID: 1, Exited: true, ExitCode: 0},
		{App: "mmap1", TID: 2, Exited: true, ExitCode: -2},
		{App: "sleep", TID: 3},
	}); err != nil {
		t.Fatalf("writeResults failed: %v", err)
	}
	var got [][]string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		got = append(got, strings.Fields(line))
	}
	want := [][]string{
		{"TID", "APP", "EXIT", "CODE"},
		{"1", "hello", "0"},
		{"2", "mmap1", "-2"},
		{"3", "sleep", "killed", "before", "exit"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("writeResults mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")
	report := &boot.Report{
		Results:     []boot.Result{{App: "hello", TID: 1, Exited: true}},
		TotalFrames: 16,
	}
	if err := writeMetricsFile(path, report); err != nil {
		t.Fatalf("writeMetricsFile failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	for _, want := range []string{
		"# TYPE runk_memory_frames gauge",
		`runk_memory_frames{state="total"} 16`,
		`runk_task_exit_code{app="hello",tid="1"} 0`,
	} {
		if !strings.Contains(string(got), want) {
			t.Errorf("metrics file does not contain %q:\n%s", want, got)
		}
	}
	if err := writeMetricsFile(filepath.Join(t.TempDir(), "missing", "metrics.prom"), report); err == nil {
		t.Errorf("writeMetricsFile into a missing directory succeeded, want error")
	}
}
