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

// Package mm provides a memory management subsystem: the set of anonymous
// mappings making up a task's address space and the page tables that back
// them.
//
// Mappings are populated eagerly: every page of a mapping has a frame from
// the moment the mapping is created until it is unmapped. The page tables
// are therefore the exact record of which pages are mapped.
package mm

import (
	"sync"

	"github.com/google/btree"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/pagetables"
)

// FrameAllocator provides the frames backing mappings. It is implemented by
// *pgalloc.Allocator.
type FrameAllocator interface {
	// Allocate returns a zeroed frame.
	Allocate() (hostarch.PPN, error)

	// Free returns a frame obtained from Allocate.
	Free(ppn hostarch.PPN)
}

// vma is a virtual memory area: a contiguous range of the address space
// mapped with uniform permissions.
type vma struct {
	ar    hostarch.AddrRange
	perms hostarch.AccessType

	// name is shown in place of a file name by String, e.g. "[stack]".
	name string
}

func vmaLess(a, b vma) bool {
	return a.ar.Start < b.ar.Start
}

// MemoryManager implements a virtual address space.
type MemoryManager struct {
	// mf and registry are immutable.
	mf       FrameAllocator
	registry *pagetables.Registry

	// maxAddr is the exclusive upper bound of user mappings. It is immutable.
	maxAddr hostarch.Addr

	// pt is the page tables of this address space. Its token is registered
	// with registry until Release.
	pt *pagetables.PageTables

	mu sync.Mutex

	// vmas holds non-overlapping vmas ordered by start address.
	//
	// +checklocks:mu
	vmas *btree.BTreeG[vma]

	// usageAS is the total size of all vmas in bytes.
	//
	// +checklocks:mu
	usageAS uint64

	// +checklocks:mu
	released bool
}

// NewMemoryManager returns an empty address space whose mappings may not
// extend beyond maxAddr. It reserves a frame for the root page table and
// registers the page tables with registry.
func NewMemoryManager(mf FrameAllocator, registry *pagetables.Registry, maxAddr hostarch.Addr) (*MemoryManager, error) {
	root, err := mf.Allocate()
	if err != nil {
		return nil, err
	}
	pt := pagetables.New(root)
	registry.Register(pt)
	log.Debugf("New address space with token %v", pt.Token())
	return &MemoryManager{
		mf:       mf,
		registry: registry,
		maxAddr:  maxAddr.RoundDown(),
		pt:       pt,
		vmas:     btree.NewG[vma](8, vmaLess),
	}, nil
}

// Token returns the token of mm's page tables.
func (mm *MemoryManager) Token() pagetables.Token {
	return mm.pt.Token()
}

// PageTables returns mm's page tables.
func (mm *MemoryManager) PageTables() *pagetables.PageTables {
	return mm.pt
}

// MaxUserAddress returns the exclusive upper bound of user mappings.
func (mm *MemoryManager) MaxUserAddress() hostarch.Addr {
	return mm.maxAddr
}

// Release frees every frame owned by mm, including the root page table, and
// unregisters its token. mm must not be used afterwards. Release is
// idempotent.
func (mm *MemoryManager) Release() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.released {
		return
	}
	mm.released = true

	var vpns []hostarch.VPN
	mm.pt.IterateRange(0, ^hostarch.VPN(0), func(vpn hostarch.VPN, _ pagetables.PTE) bool {
		vpns = append(vpns, vpn)
		return true
	})
	for _, vpn := range vpns {
		pte, _ := mm.pt.Unmap(vpn)
		mm.mf.Free(pte.PPN())
	}
	mm.vmas.Clear(false)
	mm.usageAS = 0
	mm.registry.Unregister(mm.pt.Token())
	mm.mf.Free(mm.pt.Root())
	log.Debugf("Released address space with token %v (%d frames)", mm.pt.Token(), len(vpns)+1)
}
