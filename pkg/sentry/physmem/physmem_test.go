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

package physmem

import (
	"bytes"
	"testing"

	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
)

const testBase = hostarch.PhysAddr(0x80000000)

func newTestMemory(t *testing.T, pages uint64) *Memory {
	t.Helper()
	m, err := New(testBase, pages*hostarch.PageSize)
	if err != nil {
		t.Fatalf("New got err %v want nil", err)
	}
	t.Cleanup(func() {
		if err := m.Release(); err != nil {
			t.Errorf("Release got err %v want nil", err)
		}
	})
	return m
}

func TestNewRejectsBadGeometry(t *testing.T) {
	for _, test := range []struct {
		name string
		base hostarch.PhysAddr
		size uint64
	}{
		{"misaligned base", testBase + 1, hostarch.PageSize},
		{"zero size", testBase, 0},
		{"partial page", testBase, hostarch.PageSize + 1},
		{"overflow", hostarch.PhysAddr(^uint64(0)) &^ (hostarch.PageSize - 1), 2 * hostarch.PageSize},
	} {
		t.Run(test.name, func(t *testing.T) {
			if m, err := New(test.base, test.size); err == nil {
				m.Release()
				t.Errorf("New(%v, %#x) got nil error", test.base, test.size)
			}
		})
	}
}

func TestWriteReadAt(t *testing.T) {
	m := newTestMemory(t, 2)
	first, end := m.Frames()
	if first != testBase.PageNumber() || end != first+2 {
		t.Errorf("Frames got [%#x, %#x) want [%#x, %#x)", first, end, testBase.PageNumber(), testBase.PageNumber()+2)
	}

	// Straddle the boundary between the two frames.
	pa := testBase + hostarch.PageSize - 3
	src := []byte("abcdef")
	if n, err := m.WriteAt(pa, src); err != nil || n != len(src) {
		t.Fatalf("WriteAt got (%d, %v) want (%d, nil)", n, err, len(src))
	}
	dst := make([]byte, len(src))
	if n, err := m.ReadAt(pa, dst); err != nil || n != len(dst) {
		t.Fatalf("ReadAt got (%d, %v) want (%d, nil)", n, err, len(dst))
	}
	if !bytes.Equal(dst, src) {
		t.Errorf("ReadAt got %q want %q", dst, src)
	}

	if err := m.Zero(pa, uint64(len(src))); err != nil {
		t.Fatalf("Zero got err %v want nil", err)
	}
	m.ReadAt(pa, dst)
	if !bytes.Equal(dst, make([]byte, len(src))) {
		t.Errorf("after Zero got %q want zeroes", dst)
	}
}

func TestOutOfRange(t *testing.T) {
	m := newTestMemory(t, 1)
	for _, pa := range []hostarch.PhysAddr{
		testBase - 1,
		testBase + hostarch.PageSize - 1,
		testBase + hostarch.PageSize,
	} {
		if _, err := m.WriteAt(pa, []byte{1, 2}); err != linuxerr.EFAULT {
			t.Errorf("WriteAt(%v) got err %v want EFAULT", pa, err)
		}
		if _, err := m.ReadAt(pa, make([]byte, 2)); err != linuxerr.EFAULT {
			t.Errorf("ReadAt(%v) got err %v want EFAULT", pa, err)
		}
	}
}
