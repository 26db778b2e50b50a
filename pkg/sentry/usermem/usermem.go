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

// Package usermem translates user virtual addresses into physical addresses
// and copies data across the user/kernel boundary.
package usermem

import (
	"gokern.dev/gokern/pkg/abi/errno"
	"gokern.dev/gokern/pkg/errors"
	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/pagetables"
)

var (
	// ErrUnmapped is returned when a user address has no valid page table
	// entry in the address space it was resolved against.
	ErrUnmapped = errors.New(errno.EFAULT, "address is not mapped")

	// ErrPermission is returned when a user-mode access is not permitted by
	// the page table entry mapping it.
	ErrPermission = errors.New(errno.EFAULT, "access violates page permissions")
)

// PageTableLookup resolves a page of an address space to its page table
// entry. It is implemented by *pagetables.Registry.
type PageTableLookup interface {
	FindMapping(token pagetables.Token, vpn hostarch.VPN) (pagetables.PTE, bool)
}

// PhysicalMemory is the physical memory that translated addresses refer to.
// It is implemented by *physmem.Memory.
type PhysicalMemory interface {
	WriteAt(pa hostarch.PhysAddr, src []byte) (int, error)
	ReadAt(pa hostarch.PhysAddr, dst []byte) (int, error)
}

// IOOpts controls the permission checks applied to a copy.
type IOOpts struct {
	// If IgnorePermissions is true, the copy is a privileged kernel access:
	// any valid mapping may be read or written. Otherwise the mapping must
	// be user-accessible and permit the access.
	IgnorePermissions bool
}

// KernelIO are the options used by the kernel to copy syscall results to and
// from user buffers.
var KernelIO = IOOpts{IgnorePermissions: true}

// Translate returns the physical address that addr maps to in the address
// space named by token. Every call performs a page table lookup.
func Translate(pt PageTableLookup, token pagetables.Token, addr hostarch.Addr) (hostarch.PhysAddr, error) {
	pte, ok := pt.FindMapping(token, addr.RoundDown().PageNumber())
	if !ok {
		return 0, ErrUnmapped
	}
	return pte.PPN().Addr() + hostarch.PhysAddr(addr.PageOffset()), nil
}

// translateAccess is Translate with the permission checks selected by opts.
func translateAccess(pt PageTableLookup, token pagetables.Token, addr hostarch.Addr, at hostarch.AccessType, opts IOOpts) (hostarch.PhysAddr, error) {
	pte, ok := pt.FindMapping(token, addr.PageNumber())
	if !ok {
		return 0, ErrUnmapped
	}
	if !opts.IgnorePermissions {
		mo := pte.Opts()
		if !mo.User || !mo.AccessType.SupersetOf(at) {
			return 0, ErrPermission
		}
	}
	return pte.PPN().Addr() + hostarch.PhysAddr(addr.PageOffset()), nil
}

// forEachPage calls fn for each page-bounded piece of [addr, addr+n), with the
// physical address of the piece, its offset into the buffer and its length.
// It returns the number of bytes for which fn succeeded.
func forEachPage(pt PageTableLookup, token pagetables.Token, addr hostarch.Addr, n int, at hostarch.AccessType, opts IOOpts, fn func(pa hostarch.PhysAddr, off, length int) error) (int, error) {
	if _, ok := addr.AddLength(uint64(n)); !ok {
		return 0, linuxerr.EFAULT
	}
	done := 0
	for done < n {
		cur := addr + hostarch.Addr(done)
		pa, err := translateAccess(pt, token, cur, at, opts)
		if err != nil {
			return done, err
		}
		length := min(n-done, int(hostarch.PageSize-cur.PageOffset()))
		if err := fn(pa, done, length); err != nil {
			return done, err
		}
		done += length
	}
	return done, nil
}

// CopyOut copies src to user memory at addr in the address space named by
// token. Each page the buffer touches is translated separately, so the
// destination may straddle page boundaries. It returns the number of bytes
// copied.
func CopyOut(pt PageTableLookup, mem PhysicalMemory, token pagetables.Token, addr hostarch.Addr, src []byte, opts IOOpts) (int, error) {
	return forEachPage(pt, token, addr, len(src), hostarch.Write, opts, func(pa hostarch.PhysAddr, off, length int) error {
		_, err := mem.WriteAt(pa, src[off:off+length])
		return err
	})
}

// CopyIn copies len(dst) bytes from user memory at addr in the address space
// named by token into dst. It returns the number of bytes copied.
func CopyIn(pt PageTableLookup, mem PhysicalMemory, token pagetables.Token, addr hostarch.Addr, dst []byte, opts IOOpts) (int, error) {
	return forEachPage(pt, token, addr, len(dst), hostarch.Read, opts, func(pa hostarch.PhysAddr, off, length int) error {
		_, err := mem.ReadAt(pa, dst[off:off+length])
		return err
	})
}
