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

package hostarch

// AccessType specifies memory access types. This is used for
// setting mapping permissions, as well as communicating faults.
type AccessType struct {
	// Read is read access.
	Read bool

	// Write is write access.
	Write bool

	// Execute is executable access.
	Execute bool
}

// Bits of a user permission mask, as passed to mmap.
const (
	PermRead  = 1 << 0
	PermWrite = 1 << 1
	PermExec  = 1 << 2

	// PermMask covers every defined permission bit.
	PermMask = PermRead | PermWrite | PermExec
)

// AccessTypeFromMask converts a user permission mask into an AccessType. ok
// is false if the mask sets bits above PermMask or sets no permission at all.
func AccessTypeFromMask(mask uint64) (at AccessType, ok bool) {
	if mask&^PermMask != 0 || mask&PermMask == 0 {
		return NoAccess, false
	}
	return AccessType{
		Read:    mask&PermRead != 0,
		Write:   mask&PermWrite != 0,
		Execute: mask&PermExec != 0,
	}, true
}

// Mask returns the user permission mask equivalent to a.
func (a AccessType) Mask() uint64 {
	var m uint64
	if a.Read {
		m |= PermRead
	}
	if a.Write {
		m |= PermWrite
	}
	if a.Execute {
		m |= PermExec
	}
	return m
}

// Any returns true if a.Read, a.Write, or a.Execute is true.
func (a AccessType) Any() bool {
	return a.Read || a.Write || a.Execute
}

// SupersetOf returns true if a is a superset of other.
func (a AccessType) SupersetOf(other AccessType) bool {
	if !a.Read && other.Read {
		return false
	}
	if !a.Write && other.Write {
		return false
	}
	if !a.Execute && other.Execute {
		return false
	}
	return true
}

// String returns a pretty representation of access. This looks like the
// familiar r-x, rw-, etc. and can be relied on as such.
func (a AccessType) String() string {
	bits := [3]byte{'-', '-', '-'}
	if a.Read {
		bits[0] = 'r'
	}
	if a.Write {
		bits[1] = 'w'
	}
	if a.Execute {
		bits[2] = 'x'
	}
	return string(bits[:])
}

// Convenient access types.
var (
	NoAccess  = AccessType{}
	Read      = AccessType{Read: true}
	Write     = AccessType{Write: true}
	Execute   = AccessType{Execute: true}
	ReadWrite = AccessType{Read: true, Write: true}
	AnyAccess = AccessType{Read: true, Write: true, Execute: true}
)
