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

package arch

import "testing"

func TestArgumentConversions(t *testing.T) {
	a := SyscallArgument{Value: ^uintptr(0)}
	if got := a.Int(); got != -1 {
		t.Errorf("Int got %d want -1", got)
	}
	if got := a.Uint(); got != 0xffffffff {
		t.Errorf("Uint got %#x want 0xffffffff", got)
	}
	if got := a.Int64(); got != -1 {
		t.Errorf("Int64 got %d want -1", got)
	}
	if got := a.Pointer(); uint64(got) != uint64(^uintptr(0)) {
		t.Errorf("Pointer got %v", got)
	}
}

func TestArgsFrom(t *testing.T) {
	args := ArgsFrom(0x10000, 4096, 3)
	if args[0].Value != 0x10000 || args[1].SizeT() != 4096 || args[2].Uint64() != 3 || args[3].Value != 0 {
		t.Errorf("ArgsFrom got %v", args)
	}
	if got, want := args.Format(3), "0x10000, 0x1000, 0x3"; got != want {
		t.Errorf("Format got %q want %q", got, want)
	}
	// Extra values are dropped.
	if got := ArgsFrom(1, 2, 3, 4, 5, 6, 7); got[5].Value != 6 {
		t.Errorf("ArgsFrom with 7 values got %v", got)
	}
}
