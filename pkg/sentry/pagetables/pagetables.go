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

// Package pagetables provides the per-address-space page tables of the
// simulated machine, and the registry through which the kernel finds the
// page tables named by an address space token.
package pagetables

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"gokern.dev/gokern/pkg/hostarch"
)

// btreeDegree is the degree of the btrees holding page table entries.
const btreeDegree = 16

// Token names a set of page tables, in the format loaded into the satp
// register: the paging mode in the top four bits and the frame number of the
// root table below.
type Token uint64

// tokenModeSv39 selects three-level 39-bit paging.
const tokenModeSv39 = Token(8) << 60

// TokenFor returns the token of page tables rooted at root.
func TokenFor(root hostarch.PPN) Token {
	return tokenModeSv39 | Token(root)
}

// Root returns the root frame named by t.
func (t Token) Root() hostarch.PPN {
	return hostarch.PPN(t &^ (Token(0xf) << 60))
}

// String implements fmt.Stringer.String.
func (t Token) String() string {
	return fmt.Sprintf("%#x", uint64(t))
}

// entry is a single mapped page.
type entry struct {
	vpn hostarch.VPN
	pte PTE
}

func entryLess(a, b entry) bool {
	return a.vpn < b.vpn
}

// PageTables is a set of page tables.
type PageTables struct {
	// root is the frame reserved for the root table. It is fixed at
	// creation and determines the token.
	root hostarch.PPN

	mu sync.RWMutex

	// entries holds the valid leaf entries, ordered by page number.
	//
	// +checklocks:mu
	entries *btree.BTreeG[entry]
}

// New returns empty page tables rooted at root.
func New(root hostarch.PPN) *PageTables {
	return &PageTables{
		root:    root,
		entries: btree.NewG[entry](btreeDegree, entryLess),
	}
}

// Root returns the root frame of p.
func (p *PageTables) Root() hostarch.PPN {
	return p.root
}

// Token returns the token naming p.
func (p *PageTables) Token() Token {
	return TokenFor(p.root)
}

// Map installs a mapping of page vpn to frame ppn.
//
// True is returned iff there was a previous mapping of vpn, which is replaced.
func (p *PageTables) Map(vpn hostarch.VPN, ppn hostarch.PPN, opts MapOpts) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, prev := p.entries.ReplaceOrInsert(entry{vpn: vpn, pte: NewPTE(ppn, opts)})
	return prev
}

// Unmap removes the mapping of vpn and returns the entry that was removed.
//
// ok is false iff vpn was not mapped.
func (p *PageTables) Unmap(vpn hostarch.VPN) (pte PTE, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries.Delete(entry{vpn: vpn})
	return e.pte, ok
}

// Lookup returns the entry mapping vpn.
func (p *PageTables) Lookup(vpn hostarch.VPN) (PTE, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries.Get(entry{vpn: vpn})
	if !ok || !e.pte.Valid() {
		return 0, false
	}
	return e.pte, true
}

// Len returns the number of mapped pages.
func (p *PageTables) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries.Len()
}

// IterateRange calls fn for every mapped page in [first, end), in ascending
// order, until fn returns false.
//
// fn must not call methods of p that mutate it.
func (p *PageTables) IterateRange(first, end hostarch.VPN, fn func(vpn hostarch.VPN, pte PTE) bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.entries.AscendRange(entry{vpn: first}, entry{vpn: end}, func(e entry) bool {
		return fn(e.vpn, e.pte)
	})
}

// AnyMapped returns true if any page in [first, end) is mapped.
func (p *PageTables) AnyMapped(first, end hostarch.VPN) bool {
	found := false
	p.IterateRange(first, end, func(hostarch.VPN, PTE) bool {
		found = true
		return false
	})
	return found
}

// AllMapped returns true if every page in [first, end) is mapped.
func (p *PageTables) AllMapped(first, end hostarch.VPN) bool {
	next := first
	p.IterateRange(first, end, func(vpn hostarch.VPN, _ PTE) bool {
		if vpn != next {
			return false
		}
		next++
		return true
	})
	return next == end
}
