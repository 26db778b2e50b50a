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
	"context"
	"errors"
	"flag"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gokern.dev/gokern/pkg/sentry/kernel"
	"gokern.dev/gokern/pkg/sentry/ktime"
	"gokern.dev/gokern/runk/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ignoreStats ignores the fields of Result that depend on timing.
var ignoreStats = cmpopts.IgnoreFields(Result{}, "RunningTime", "Syscalls")

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterFlags(fs)
	conf, err := config.NewFromFlags(fs)
	if err != nil {
		t.Fatalf("NewFromFlags failed: %v", err)
	}
	return conf
}

func TestApps(t *testing.T) {
	for _, a := range Apps() {
		t.Run(a.Name, func(t *testing.T) {
			console := &syncBuffer{}
			report, err := Run(context.Background(), Args{
				Conf:    defaultConfig(t),
				Apps:    []string{a.Name},
				Console: console,
				Timeout: 10 * time.Second,
			})
			if err != nil {
				t.Fatalf("Run failed: %v\nconsole:\n%s", err, console)
			}
			want := []Result{{App: a.Name, TID: 1, Exited: true, ExitCode: a.ExitCode}}
			if diff := cmp.Diff(want, report.Results, ignoreStats); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s\nconsole:\n%s", diff, console)
			}
			if a.ExitCode == 0 && !strings.Contains(console.String(), "OK!") && a.Name != "hello" {
				t.Errorf("console got %q, want a success message", console)
			}
			if strings.Contains(console.String(), "Should not reach here") {
				t.Errorf("console got %q", console)
			}
			if report.LeakedFrames != 0 {
				t.Errorf("LeakedFrames got %d want 0", report.LeakedFrames)
			}
		})
	}
}

func TestAppsTogether(t *testing.T) {
	var names []string
	for _, a := range Apps() {
		names = append(names, a.Name)
	}
	console := &syncBuffer{}
	report, err := Run(context.Background(), Args{
		Conf:    defaultConfig(t),
		Apps:    names,
		Console: console,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run failed: %v\nconsole:\n%s", err, console)
	}
	var want []Result
	for i, name := range names {
		a, _ := LookupApp(name)
		want = append(want, Result{App: name, TID: kernel.ThreadID(i + 1), Exited: true, ExitCode: a.ExitCode})
	}
	if diff := cmp.Diff(want, report.Results, ignoreStats); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s\nconsole:\n%s", diff, console)
	}
	if report.PeakUsedFrames == 0 || report.PeakUsedFrames > report.TotalFrames {
		t.Errorf("PeakUsedFrames got %d, want in (0, %d]", report.PeakUsedFrames, report.TotalFrames)
	}
	if report.LeakedFrames != 0 {
		t.Errorf("LeakedFrames got %d want 0", report.LeakedFrames)
	}
}

func TestYieldInterleaves(t *testing.T) {
	console := &syncBuffer{}
	if _, err := Run(context.Background(), Args{
		Conf:    defaultConfig(t),
		Apps:    []string{"yield", "yield"},
		Console: console,
		Timeout: 10 * time.Second,
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	want := []string{
		"yield[1]: iteration 0",
		"yield[2]: iteration 0",
		"yield[1]: iteration 1",
		"yield[2]: iteration 1",
	}
	if diff := cmp.Diff(want, lines[:len(want)]); diff != "" {
		t.Errorf("console mismatch (-want +got):\n%s", diff)
	}
}

func TestHello(t *testing.T) {
	console := &syncBuffer{}
	if _, err := Run(context.Background(), Args{
		Conf:    defaultConfig(t),
		Apps:    []string{"hello"},
		Console: console,
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got, want := console.String(), "Hello, world from hello[1]!\n"; got != want {
		t.Errorf("console got %q want %q", got, want)
	}
}

func TestRunErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		apps []string
	}{
		{name: "no apps"},
		{name: "unknown app", apps: []string{"hello", "nope"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Run(context.Background(), Args{Conf: defaultConfig(t), Apps: tc.apps}); err == nil {
				t.Errorf("Run succeeded, want error")
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	// The clock never moves, so sleep never finishes.
	report, err := Run(context.Background(), Args{
		Conf:    defaultConfig(t),
		Apps:    []string{"sleep", "hello"},
		Console: &syncBuffer{},
		Clock:   &ktime.ManualClock{},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run got err %v want %v", err, context.DeadlineExceeded)
	}
	want := []Result{
		{App: "sleep", TID: 1, Exited: true, ExitCode: kernel.ExitCodeKilled},
		{App: "hello", TID: 2, Exited: true, ExitCode: 0},
	}
	if diff := cmp.Diff(want, report.Results, ignoreStats); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupApp(t *testing.T) {
	if _, ok := LookupApp("hello"); !ok {
		t.Errorf("LookupApp(hello) not found")
	}
	if _, ok := LookupApp("bogus"); ok {
		t.Errorf("LookupApp(bogus) found")
	}
	apps := Apps()
	for i := 1; i < len(apps); i++ {
		if apps[i-1].Name >= apps[i].Name {
			t.Errorf("Apps not sorted: %q before %q", apps[i-1].Name, apps[i].Name)
		}
	}
}

func TestSyscallCounts(t *testing.T) {
	report, err := Run(context.Background(), Args{
		Conf:    defaultConfig(t),
		Apps:    []string{"set_priority", "mmap0"},
		Console: &syncBuffer{},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []map[string]uint32{
		{"set_priority": 2, "write": 1},
		{"mmap": 1, "munmap": 1, "write": 1},
	}
	for i, res := range report.Results {
		if diff := cmp.Diff(want[i], res.Syscalls); diff != "" {
			t.Errorf("app %s syscalls mismatch (-want +got):\n%s", res.App, diff)
		}
	}
}

func TestRunningTime(t *testing.T) {
	clock := &ktime.ManualClock{}
	report, err := Run(context.Background(), Args{
		Conf:    defaultConfig(t),
		Apps:    []string{"hello"},
		Console: &syncBuffer{},
		Clock:   clock,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := report.Results[0].RunningTime; got != 0 {
		t.Errorf("RunningTime on a stopped clock got %v want 0", got)
	}
}

func TestWriteMetrics(t *testing.T) {
	report := &Report{
		Results: []Result{
			{App: "hello", TID: 1, Exited: true, RunningTime: 1500 * time.Millisecond, Syscalls: map[string]uint32{"write": 1}},
			{App: "mmap1", TID: 2, Exited: true, ExitCode: -2, Syscalls: map[string]uint32{"mmap": 1}},
			{App: "sleep", TID: 3},
		},
		TotalFrames:    2048,
		PeakUsedFrames: 12,
	}
	var buf bytes.Buffer
	if err := report.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`runk_memory_frames{state="total"} 2048`,
		`runk_memory_frames{state="peak_used"} 12`,
		`runk_memory_frames{state="leaked"} 0`,
		`runk_task_exit_code{app="hello",tid="1"} 0`,
		`runk_task_exit_code{app="mmap1",tid="2"} -2`,
		`runk_task_running_time_seconds{app="hello",tid="1"} 1.5`,
		`runk_task_syscalls_total{app="hello",syscall="write",tid="1"} 1`,
		`runk_task_syscalls_total{app="mmap1",syscall="mmap",tid="2"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics do not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `runk_task_exit_code{app="sleep"`) {
		t.Errorf("metrics report an exit code for a task that did not exit:\n%s", out)
	}
}
