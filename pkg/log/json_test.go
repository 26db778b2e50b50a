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

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelJSON(t *testing.T) {
	for _, tc := range []struct {
		level Level
		json  string
	}{
		{Warning, `"warning"`},
		{Info, `"info"`},
		{Debug, `"debug"`},
	} {
		b, err := json.Marshal(tc.level)
		if err != nil {
			t.Fatalf("Marshal(%v) failed: %v", tc.level, err)
		}
		if string(b) != tc.json {
			t.Errorf("Marshal(%v) got %s want %s", tc.level, b, tc.json)
		}
		var fromName, fromInt Level
		if err := json.Unmarshal(b, &fromName); err != nil || fromName != tc.level {
			t.Errorf("Unmarshal(%s) got (%v, %v) want (%v, nil)", b, fromName, err, tc.level)
		}
		if err := json.Unmarshal([]byte{'0' + byte(tc.level)}, &fromInt); err != nil || fromInt != tc.level {
			t.Errorf("Unmarshal(%d) got (%v, %v) want (%v, nil)", tc.level, fromInt, err, tc.level)
		}
	}

	var l Level
	if err := json.Unmarshal([]byte(`"fatal"`), &l); err == nil {
		t.Errorf("Unmarshal(fatal) succeeded")
	}
	if _, err := json.Marshal(Level(7)); err == nil {
		t.Errorf("Marshal(7) succeeded")
	}
}

func TestJSONEmitters(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, tc := range []struct {
		name    string
		emitter func(*Writer) Emitter
		msgKey  string
	}{
		{"json", func(w *Writer) Emitter { return JSONEmitter{w} }, "msg"},
		{"json-k8s", func(w *Writer) Emitter { return K8sJSONEmitter{w} }, "log"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.emitter(&Writer{Next: &buf}).Emit(0, Warning, ts, "page fault at %#x", 0x1000)

			var got map[string]any
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("Unmarshal(%q) failed: %v", buf.String(), err)
			}
			msg, _ := got[tc.msgKey].(string)
			if !strings.HasSuffix(msg, "page fault at 0x1000") {
				t.Errorf("%s got %q", tc.msgKey, msg)
			}
			if got["level"] != "warning" {
				t.Errorf("level got %v want warning", got["level"])
			}
			if got["time"] != "2024-05-06T07:08:09Z" {
				t.Errorf("time got %v", got["time"])
			}
		})
	}
}
