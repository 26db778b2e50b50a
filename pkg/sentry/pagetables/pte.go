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
	"fmt"

	"gokern.dev/gokern/pkg/hostarch"
)

// PTE is a leaf page table entry: the frame number above PTEFlagsShift and
// the flag bits below.
type PTE uint64

// Page table entry flags.
const (
	PTEValid   PTE = 1 << 0
	PTERead    PTE = 1 << 1
	PTEWrite   PTE = 1 << 2
	PTEExecute PTE = 1 << 3
	PTEUser    PTE = 1 << 4

	pteFlagsMask = PTE(1)<<hostarch.PTEFlagsShift - 1
)

// MapOpts are options for a single mapping.
type MapOpts struct {
	// AccessType defines permissions.
	AccessType hostarch.AccessType

	// User indicates the page is accessible from user mode.
	User bool
}

// NewPTE returns a valid entry mapping frame ppn with opts.
func NewPTE(ppn hostarch.PPN, opts MapOpts) PTE {
	pte := PTE(ppn)<<hostarch.PTEFlagsShift | PTEValid
	if opts.AccessType.Read {
		pte |= PTERead
	}
	if opts.AccessType.Write {
		pte |= PTEWrite
	}
	if opts.AccessType.Execute {
		pte |= PTEExecute
	}
	if opts.User {
		pte |= PTEUser
	}
	return pte
}

// Valid returns true iff this entry is valid.
func (p PTE) Valid() bool {
	return p&PTEValid != 0
}

// PPN returns the frame this entry maps.
func (p PTE) PPN() hostarch.PPN {
	return hostarch.PPN(p >> hostarch.PTEFlagsShift)
}

// Flags returns the flag bits of this entry.
func (p PTE) Flags() PTE {
	return p & pteFlagsMask
}

// Opts returns the mapping options encoded by this entry.
func (p PTE) Opts() MapOpts {
	return MapOpts{
		AccessType: hostarch.AccessType{
			Read:    p&PTERead != 0,
			Write:   p&PTEWrite != 0,
			Execute: p&PTEExecute != 0,
		},
		User: p&PTEUser != 0,
	}
}

// String implements fmt.Stringer.String.
func (p PTE) String() string {
	if !p.Valid() {
		return "PTE(invalid)"
	}
	opts := p.Opts()
	u := '-'
	if opts.User {
		u = 'u'
	}
	return fmt.Sprintf("PTE(ppn=%#x %s%c)", p.PPN(), opts.AccessType, u)
}
