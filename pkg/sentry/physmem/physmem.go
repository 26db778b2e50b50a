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

// Package physmem simulates machine physical memory. The memory is a single
// host mapping addressed by physical addresses starting at a configurable
// base, in the way RAM sits at a fixed offset in a board's physical map.
package physmem

import (
	"fmt"

	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"golang.org/x/sys/unix"
)

// Memory is a contiguous range of physical memory.
type Memory struct {
	// base is the physical address of data[0].
	base hostarch.PhysAddr

	// data is the host mapping backing the range.
	data []byte
}

// New maps size bytes of physical memory starting at physical address base.
func New(base hostarch.PhysAddr, size uint64) (*Memory, error) {
	if base.PageOffset() != 0 {
		return nil, fmt.Errorf("physical memory base %v is not page aligned", base)
	}
	if size == 0 || size%hostarch.PageSize != 0 {
		return nil, fmt.Errorf("physical memory size %#x is not a positive multiple of the page size", size)
	}
	if end := base + hostarch.PhysAddr(size); end < base {
		return nil, fmt.Errorf("physical memory [%v, +%#x) overflows", base, size)
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mapping %#x bytes of physical memory: %w", size, err)
	}
	return &Memory{base: base, data: data}, nil
}

// Release unmaps the memory. m must not be used afterwards.
func (m *Memory) Release() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// Base returns the first physical address of m.
func (m *Memory) Base() hostarch.PhysAddr {
	return m.base
}

// Size returns the size of m in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Frames returns the frame numbers covered by m as [first, end).
func (m *Memory) Frames() (first, end hostarch.PPN) {
	return m.base.PageNumber(), (m.base + hostarch.PhysAddr(len(m.data))).PageNumber()
}

// slice returns the host bytes backing [pa, pa+n).
func (m *Memory) slice(pa hostarch.PhysAddr, n int) ([]byte, error) {
	if pa < m.base {
		return nil, linuxerr.EFAULT
	}
	off := uint64(pa - m.base)
	if off > uint64(len(m.data)) || uint64(n) > uint64(len(m.data))-off {
		return nil, linuxerr.EFAULT
	}
	return m.data[off : off+uint64(n)], nil
}

// WriteAt copies src into physical memory at pa. This is the only path by
// which the kernel writes into memory owned by a user address space, and it
// ignores the permissions of any mapping of that memory.
//
// Preconditions: pa, and every address up to pa+len(src), must have been
// obtained by translating a user buffer through a valid page table entry.
func (m *Memory) WriteAt(pa hostarch.PhysAddr, src []byte) (int, error) {
	dst, err := m.slice(pa, len(src))
	if err != nil {
		return 0, err
	}
	return copy(dst, src), nil
}

// ReadAt copies physical memory at pa into dst.
func (m *Memory) ReadAt(pa hostarch.PhysAddr, dst []byte) (int, error) {
	src, err := m.slice(pa, len(dst))
	if err != nil {
		return 0, err
	}
	return copy(dst, src), nil
}

// Zero clears n bytes of physical memory starting at pa.
func (m *Memory) Zero(pa hostarch.PhysAddr, n uint64) error {
	b, err := m.slice(pa, int(n))
	if err != nil {
		return err
	}
	clear(b)
	return nil
}
