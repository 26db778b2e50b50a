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

package pagetables

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gokern.dev/gokern/pkg/hostarch"
)

type mapping struct {
	vpn  hostarch.VPN
	ppn  hostarch.PPN
	opts MapOpts
}

func checkMappings(t *testing.T, pt *PageTables, want []mapping) {
	t.Helper()
	var found []mapping
	pt.IterateRange(0, ^hostarch.VPN(0), func(vpn hostarch.VPN, pte PTE) bool {
		found = append(found, mapping{vpn, pte.PPN(), pte.Opts()})
		return true
	})
	if diff := cmp.Diff(want, found, cmp.AllowUnexported(mapping{})); diff != "" {
		t.Errorf("mappings differ (-want +got):\n%s", diff)
	}
}

var userRW = MapOpts{AccessType: hostarch.ReadWrite, User: true}

func TestUnmap(t *testing.T) {
	pt := New(0x80000)

	// Map and unmap one entry.
	pt.Map(0x400, 42, userRW)
	pte, ok := pt.Unmap(0x400)
	if !ok || pte.PPN() != 42 {
		t.Errorf("Unmap got (%v, %v) want (ppn 42, true)", pte, ok)
	}
	if _, ok := pt.Unmap(0x400); ok {
		t.Errorf("second Unmap got ok want !ok")
	}

	checkMappings(t, pt, nil)
}

func TestReadOnly(t *testing.T) {
	pt := New(0x80000)

	ro := MapOpts{AccessType: hostarch.Read, User: true}
	pt.Map(0x400, 42, ro)

	checkMappings(t, pt, []mapping{
		{0x400, 42, ro},
	})
}

func TestSparseEntries(t *testing.T) {
	pt := New(0x80000)

	// Map entries out of order and far apart.
	pt.Map(0x7f0000000, 47, MapOpts{AccessType: hostarch.Read})
	pt.Map(0x400, 42, userRW)
	pt.Map(0x401, 43, userRW)

	checkMappings(t, pt, []mapping{
		{0x400, 42, userRW},
		{0x401, 43, userRW},
		{0x7f0000000, 47, MapOpts{AccessType: hostarch.Read}},
	})
	if !pt.AllMapped(0x400, 0x402) {
		t.Errorf("AllMapped([0x400, 0x402)) got false want true")
	}
	if pt.AllMapped(0x400, 0x403) {
		t.Errorf("AllMapped([0x400, 0x403)) got true want false")
	}
	if pt.AnyMapped(0x402, 0x7f0000000) {
		t.Errorf("AnyMapped over the hole got true want false")
	}
}

func TestMapReplaces(t *testing.T) {
	pt := New(0x80000)
	if prev := pt.Map(0x400, 42, userRW); prev {
		t.Errorf("first Map reported a previous mapping")
	}
	if prev := pt.Map(0x400, 43, userRW); !prev {
		t.Errorf("second Map did not report the previous mapping")
	}
	if pte, _ := pt.Lookup(0x400); pte.PPN() != 43 {
		t.Errorf("Lookup got %v want ppn 43", pte)
	}
}

func TestPTEEncoding(t *testing.T) {
	pte := NewPTE(0x80123, MapOpts{AccessType: hostarch.AccessType{Read: true, Execute: true}, User: true})
	if got, want := uint64(pte), uint64(0x80123<<10|0b11011); got != want {
		t.Errorf("NewPTE got %#x want %#x", got, want)
	}
	if !pte.Valid() || pte.PPN() != 0x80123 {
		t.Errorf("decoded %v", pte)
	}
	if got := pte.String(); got != "PTE(ppn=0x80123 r-xu)" {
		t.Errorf("String got %q", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, b := New(0x80000), New(0x80001)
	r.Register(a)
	r.Register(b)
	a.Map(0x10, 0x90000, userRW)
	b.Map(0x10, 0x90001, userRW)

	// The same page number resolves differently per address space.
	if pte, ok := r.FindMapping(a.Token(), 0x10); !ok || pte.PPN() != 0x90000 {
		t.Errorf("FindMapping(a) got (%v, %v) want ppn 0x90000", pte, ok)
	}
	if pte, ok := r.FindMapping(b.Token(), 0x10); !ok || pte.PPN() != 0x90001 {
		t.Errorf("FindMapping(b) got (%v, %v) want ppn 0x90001", pte, ok)
	}
	if _, ok := r.FindMapping(a.Token(), 0x11); ok {
		t.Errorf("FindMapping of an unmapped page got ok")
	}

	r.Unregister(a.Token())
	if _, ok := r.FindMapping(a.Token(), 0x10); ok {
		t.Errorf("FindMapping after Unregister got ok")
	}
	if got := b.Token().Root(); got != 0x80001 {
		t.Errorf("Token.Root got %#x want 0x80001", got)
	}
}
