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

// Package pgalloc allocates physical page frames out of a physmem.Memory.
package pgalloc

import (
	"fmt"
	"sync"

	"gokern.dev/gokern/pkg/bitmap"
	"gokern.dev/gokern/pkg/errors/linuxerr"
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/physmem"
)

// Allocator hands out zeroed frames of a physmem.Memory.
type Allocator struct {
	mem *physmem.Memory

	// first is the frame number of bit 0 of used.
	first hostarch.PPN

	mu sync.Mutex

	// used holds one bit per frame; a set bit marks an allocated frame.
	//
	// +checklocks:mu
	used bitmap.Bitmap

	// hint is the frame index to start the next search from.
	//
	// +checklocks:mu
	hint uint64

	// peak is the highest number of frames allocated at once.
	//
	// +checklocks:mu
	peak uint64
}

// New returns an Allocator managing every frame of mem.
func New(mem *physmem.Memory) *Allocator {
	first, end := mem.Frames()
	return &Allocator{
		mem:   mem,
		first: first,
		used:  bitmap.New(uint64(end - first)),
	}
}

// Allocate returns a zeroed frame, or ENOMEM if every frame is in use.
func (a *Allocator) Allocate() (hostarch.PPN, error) {
	a.mu.Lock()
	i, ok := a.used.FirstZeroFrom(a.hint)
	if !ok {
		a.mu.Unlock()
		log.Debugf("Physical memory exhausted: all %d frames in use", a.used.Size())
		return 0, linuxerr.ENOMEM
	}
	a.used.Add(i)
	a.peak = max(a.peak, a.used.Count())
	a.hint = i + 1
	if a.hint == a.used.Size() {
		a.hint = 0
	}
	a.mu.Unlock()

	ppn := a.first + hostarch.PPN(i)
	if err := a.mem.Zero(ppn.Addr(), hostarch.PageSize); err != nil {
		panic(fmt.Sprintf("zeroing allocated frame %#x: %v", ppn, err))
	}
	return ppn, nil
}

// Free returns ppn to the allocator.
//
// Preconditions: ppn was returned by Allocate and has not been freed since.
func (a *Allocator) Free(ppn hostarch.PPN) {
	if ppn < a.first || uint64(ppn-a.first) >= a.used.Size() {
		panic(fmt.Sprintf("freeing frame %#x outside of [%#x, %#x)", ppn, a.first, a.first+hostarch.PPN(a.used.Size())))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.used.Remove(uint64(ppn - a.first)) {
		panic(fmt.Sprintf("freeing frame %#x which is not allocated", ppn))
	}
}

// TotalFrames returns the number of frames managed by a.
func (a *Allocator) TotalFrames() uint64 {
	return a.used.Size()
}

// UsedFrames returns the number of frames currently allocated.
func (a *Allocator) UsedFrames() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used.Count()
}

// FreeFrames returns the number of frames available for allocation.
func (a *Allocator) FreeFrames() uint64 {
	return a.TotalFrames() - a.UsedFrames()
}

// PeakUsedFrames returns the highest number of frames allocated at once.
func (a *Allocator) PeakUsedFrames() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}
