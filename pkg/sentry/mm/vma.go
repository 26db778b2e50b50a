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
	"gokern.dev/gokern/pkg/hostarch"
)

// overlapsLocked returns true if any vma intersects ar.
//
// Preconditions: mm.mu must be locked. ar.Length() != 0.
func (mm *MemoryManager) overlapsLocked(ar hostarch.AddrRange) bool {
	// vmas do not overlap, so the vma starting last before ar.End is the
	// only one that can reach into ar.
	overlaps := false
	mm.vmas.DescendLessOrEqual(vma{ar: hostarch.AddrRange{Start: ar.End - 1}}, func(v vma) bool {
		overlaps = v.ar.End > ar.Start
		return false
	})
	return overlaps
}

// unmapPagesLocked removes the page table entries for [first, end) and frees
// the frames they map. Pages in the range that are not mapped are skipped.
//
// Preconditions: mm.mu must be locked.
func (mm *MemoryManager) unmapPagesLocked(first, end hostarch.VPN) {
	for vpn := first; vpn < end; vpn++ {
		if pte, ok := mm.pt.Unmap(vpn); ok {
			mm.mf.Free(pte.PPN())
		}
	}
}

// removeVMAsLocked removes ar from the vma set, splitting vmas that extend
// beyond it.
//
// Preconditions: mm.mu must be locked.
func (mm *MemoryManager) removeVMAsLocked(ar hostarch.AddrRange) {
	var victims []vma
	mm.vmas.DescendLessOrEqual(vma{ar: hostarch.AddrRange{Start: ar.Start}}, func(v vma) bool {
		if v.ar.Start != ar.Start && v.ar.End > ar.Start {
			victims = append(victims, v)
		}
		return false
	})
	mm.vmas.AscendRange(vma{ar: hostarch.AddrRange{Start: ar.Start}}, vma{ar: hostarch.AddrRange{Start: ar.End}}, func(v vma) bool {
		victims = append(victims, v)
		return true
	})
	for _, v := range victims {
		mm.vmas.Delete(v)
		if v.ar.Start < ar.Start {
			left := v
			left.ar.End = ar.Start
			mm.vmas.ReplaceOrInsert(left)
		}
		if v.ar.End > ar.End {
			right := v
			right.ar.Start = ar.End
			mm.vmas.ReplaceOrInsert(right)
		}
	}
}
