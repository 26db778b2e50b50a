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

package cli

import (
	"bytes"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"gokern.dev/gokern/pkg/log"
)

func TestCommands(t *testing.T) {
	var got []string
	forEachCmd(func(cmd subcommands.Command, _ string) {
		got = append(got, cmd.Name())
	})
	sort.Strings(got)
	want := []string{"apps", "commands", "flags", "help", "run", "syscalls"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestNewEmitter(t *testing.T) {
	for _, tc := range []struct {
		format string
		want   string
	}{
		{format: "text", want: "] hello 42"},
		{format: "json", want: `"msg":`},
		{format: "json-k8s", want: `"log":`},
	} {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			newEmitter(tc.format, &buf).Emit(0, log.Info, time.Now(), "hello %d", 42)
			for _, want := range []string{tc.want, "hello 42"} {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("emitted %q, want it to contain %q", buf.String(), want)
				}
			}
		})
	}
}
