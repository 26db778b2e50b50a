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
	"context"
	"fmt"

	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/pagetables"
)

// MMapOpts specifies options to MMap.
type MMapOpts struct {
	// Addr is the start of the mapping. It must be page-aligned.
	Addr hostarch.Addr

	// Length is the length of the mapping in bytes. It is rounded up to a
	// multiple of the page size.
	Length uint64

	// Perms is the set of permissions of the mapping. It must not be empty.
	Perms hostarch.AccessType

	// Name is shown in place of a file name in mm's maps listing.
	Name string
}

// MMap establishes an anonymous mapping at opts.Addr and backs every page of
// it with a zeroed frame.
//
// MMap either maps the whole range or leaves mm unchanged. It fails with
// EEXIST if the range overlaps an existing mapping and with ENOMEM if the
// range extends beyond the user address space or frames run out. A zero
// Length maps nothing and succeeds.
func (mm *MemoryManager) MMap(ctx context.Context, opts MMapOpts) error {
	if !opts.Addr.IsPageAligned() {
		return linuxerr.EINVAL
	}
	if !opts.Perms.Any() {
		return linuxerr.EINVAL
	}
	if opts.Length == 0 {
		return nil
	}
	length, ok := hostarch.Addr(opts.Length).RoundUp()
	if !ok {
		return linuxerr.ENOMEM
	}
	ar, ok := opts.Addr.ToRange(uint64(length))
	if !ok || ar.End > mm.maxAddr {
		return linuxerr.ENOMEM
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.released {
		return linuxerr.EFAULT
	}
	if mm.overlapsLocked(ar) {
		return linuxerr.EEXIST
	}

	first, end := ar.Pages()
	mapOpts := pagetables.MapOpts{AccessType: opts.Perms, User: true}
	for vpn := first; vpn < end; vpn++ {
		ppn, err := mm.mf.Allocate()
		if err != nil {
			mm.unmapPagesLocked(first, vpn)
			log.Debugf("MMap of %v failed after %d pages: %v", ar, vpn-first, err)
			return err
		}
		if mm.pt.Map(vpn, ppn, mapOpts) {
			panic(fmt.Sprintf("page %v of address space %v was mapped outside any vma", vpn.Addr(), mm.pt.Token()))
		}
	}
	mm.vmas.ReplaceOrInsert(vma{ar: ar, perms: opts.Perms, name: opts.Name})
	mm.usageAS += uint64(ar.Length())
	return nil
}

// MUnmap removes the mappings of the pages in [addr, addr+length), with
// length rounded up to a multiple of the page size, and frees their frames.
//
// Every page of the range must be mapped, otherwise MUnmap fails with EINVAL
// and mm is unchanged. Unmapping part of a mapping splits it. A zero length
// unmaps nothing and succeeds.
func (mm *MemoryManager) MUnmap(ctx context.Context, addr hostarch.Addr, length uint64) error {
	if !addr.IsPageAligned() {
		return linuxerr.EINVAL
	}
	if length == 0 {
		return nil
	}
	la, ok := hostarch.Addr(length).RoundUp()
	if !ok {
		return linuxerr.EINVAL
	}
	ar, ok := addr.ToRange(uint64(la))
	if !ok {
		return linuxerr.EINVAL
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	first, end := ar.Pages()
	if !mm.pt.AllMapped(first, end) {
		return linuxerr.EINVAL
	}
	mm.unmapPagesLocked(first, end)
	mm.removeVMAsLocked(ar)
	mm.usageAS -= uint64(ar.Length())
	return nil
}

// IsMapped returns true if every page in ar is mapped with at least the
// permissions in at.
func (mm *MemoryManager) IsMapped(ar hostarch.AddrRange, at hostarch.AccessType) bool {
	if !ar.WellFormed() {
		return false
	}
	start := ar.Start.RoundDown()
	stop, ok := ar.End.RoundUp()
	if !ok {
		return false
	}
	first, end := hostarch.AddrRange{Start: start, End: stop}.Pages()
	next := first
	mm.pt.IterateRange(first, end, func(vpn hostarch.VPN, pte pagetables.PTE) bool {
		if vpn != next || !pte.Opts().AccessType.SupersetOf(at) {
			ok = false
			return false
		}
		next++
		return true
	})
	return ok && next == end
}

// VirtualMemorySize returns the combined length in bytes of all mappings in
// mm.
func (mm *MemoryManager) VirtualMemorySize() uint64 {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.usageAS
}

// ResidentSetSize returns the number of bytes of frames backing mappings in
// mm. Page table frames are not included.
func (mm *MemoryManager) ResidentSetSize() uint64 {
	return uint64(mm.pt.Len()) * hostarch.PageSize
}

// NumMappings returns the number of vmas in mm.
func (mm *MemoryManager) NumMappings() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.vmas.Len()
}
