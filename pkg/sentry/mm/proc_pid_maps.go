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

package mm

import (
	"bytes"
	"fmt"
	"strings"
)

// String returns mm's mappings in the format of /proc/[pid]/maps.
func (mm *MemoryManager) String() string {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	var b bytes.Buffer
	mm.vmas.Ascend(func(v vma) bool {
		b.Write(vmaMapsEntry(v))
		return true
	})
	return b.String()
}

// vmaMapsEntry returns a /proc/[pid]/maps entry for v, including the trailing
// newline. All mappings are private and anonymous.
func vmaMapsEntry(v vma) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%08x-%08x %sp %08x %02x:%02x %d ",
		uint64(v.ar.Start), uint64(v.ar.End), v.perms, 0, 0, 0, 0)
	if v.name != "" {
		// Per linux, we pad until the 74th character.
		if pad := 73 - b.Len(); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(v.name)
	}
	b.WriteString("\n")
	return b.Bytes()
}
