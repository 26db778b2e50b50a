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

package usermem

import (
	"bytes"
	"testing"

	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/sentry/pagetables"
	"gokern.dev/gokern/pkg/sentry/physmem"
)

const memBase = hostarch.PhysAddr(0x80000000)

type testEnv struct {
	mem *physmem.Memory
	reg *pagetables.Registry
	pt  *pagetables.PageTables
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem, err := physmem.New(memBase, 16*hostarch.PageSize)
	if err != nil {
		t.Fatalf("physmem.New failed: %v", err)
	}
	t.Cleanup(func() { mem.Release() })
	reg := pagetables.NewRegistry()
	pt := pagetables.New(memBase.PageNumber())
	reg.Register(pt)
	return &testEnv{mem: mem, reg: reg, pt: pt}
}

func (e *testEnv) frame(i int) hostarch.PPN {
	return memBase.PageNumber() + hostarch.PPN(i)
}

var userRW = pagetables.MapOpts{AccessType: hostarch.ReadWrite, User: true}

func TestTranslate(t *testing.T) {
	e := newTestEnv(t)
	e.pt.Map(0x10, e.frame(3), userRW)

	for _, off := range []uint64{0, 1, 0x7ff, hostarch.PageSize - 1} {
		addr := hostarch.VPN(0x10).Addr() + hostarch.Addr(off)
		pa, err := Translate(e.reg, e.pt.Token(), addr)
		if err != nil {
			t.Fatalf("Translate(%v) failed: %v", addr, err)
		}
		if want := e.frame(3).Addr() + hostarch.PhysAddr(off); pa != want {
			t.Errorf("Translate(%v) got %v want %v", addr, pa, want)
		}
	}
}

func TestTranslateUnmapped(t *testing.T) {
	e := newTestEnv(t)
	e.pt.Map(0x10, e.frame(3), userRW)

	for _, addr := range []hostarch.Addr{0, 0xffff, 0x11000} {
		if _, err := Translate(e.reg, e.pt.Token(), addr); err != ErrUnmapped {
			t.Errorf("Translate(%v) got err %v want %v", addr, err, ErrUnmapped)
		}
	}
	// An unknown token resolves nothing.
	if _, err := Translate(e.reg, pagetables.TokenFor(1), 0x10000); err != ErrUnmapped {
		t.Errorf("Translate with unknown token got err %v want %v", err, ErrUnmapped)
	}
	if !linuxerr.Equals(linuxerr.EFAULT, ErrUnmapped) {
		t.Errorf("ErrUnmapped does not carry EFAULT")
	}
}

func TestCopyStraddlesPages(t *testing.T) {
	e := newTestEnv(t)
	// Virtually contiguous, physically discontiguous.
	e.pt.Map(0x10, e.frame(5), userRW)
	e.pt.Map(0x11, e.frame(2), userRW)

	src := []byte("0123456789abcdef")
	addr := hostarch.VPN(0x11).Addr() - 6
	n, err := CopyOut(e.reg, e.mem, e.pt.Token(), addr, src, KernelIO)
	if err != nil || n != len(src) {
		t.Fatalf("CopyOut got (%d, %v) want (%d, nil)", n, err, len(src))
	}

	// The tail of frame 5 and the head of frame 2 hold the pieces.
	head := make([]byte, 6)
	e.mem.ReadAt(e.frame(5).Addr()+hostarch.PhysAddr(hostarch.PageSize-6), head)
	tail := make([]byte, 10)
	e.mem.ReadAt(e.frame(2).Addr(), tail)
	if got := append(head, tail...); !bytes.Equal(got, src) {
		t.Errorf("physical contents got %q want %q", got, src)
	}

	dst := make([]byte, len(src))
	if n, err := CopyIn(e.reg, e.mem, e.pt.Token(), addr, dst, KernelIO); err != nil || n != len(dst) {
		t.Fatalf("CopyIn got (%d, %v) want (%d, nil)", n, err, len(dst))
	}
	if !bytes.Equal(dst, src) {
		t.Errorf("CopyIn got %q want %q", dst, src)
	}
}

func TestCopyOutPartial(t *testing.T) {
	e := newTestEnv(t)
	e.pt.Map(0x10, e.frame(0), userRW)

	addr := hostarch.VPN(0x11).Addr() - 4
	n, err := CopyOut(e.reg, e.mem, e.pt.Token(), addr, make([]byte, 8), KernelIO)
	if err != ErrUnmapped || n != 4 {
		t.Errorf("CopyOut across into an unmapped page got (%d, %v) want (4, %v)", n, err, ErrUnmapped)
	}
}

func TestPermissions(t *testing.T) {
	e := newTestEnv(t)
	e.pt.Map(0x10, e.frame(0), pagetables.MapOpts{AccessType: hostarch.Read, User: true})
	e.pt.Map(0x11, e.frame(1), pagetables.MapOpts{AccessType: hostarch.ReadWrite})

	for _, tc := range []struct {
		name string
		addr hostarch.Addr
		opts IOOpts
		want error
	}{
		{"user write to read-only page", 0x10000, IOOpts{}, ErrPermission},
		{"user write to kernel page", 0x11000, IOOpts{}, ErrPermission},
		{"kernel write to read-only page", 0x10000, KernelIO, nil},
		{"kernel write to kernel page", 0x11000, KernelIO, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := CopyOut(e.reg, e.mem, e.pt.Token(), tc.addr, []byte{1}, tc.opts); err != tc.want {
				t.Errorf("CopyOut got err %v want %v", err, tc.want)
			}
		})
	}

	// Reads of the read-only user page are allowed.
	if _, err := CopyIn(e.reg, e.mem, e.pt.Token(), 0x10000, make([]byte, 1), IOOpts{}); err != nil {
		t.Errorf("user read of read-only page failed: %v", err)
	}
}
