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

package abi

import (
	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/marshal"
)

// SizeOfTimeVal is the size of a TimeVal struct in bytes.
const SizeOfTimeVal = 16

// TimeVal is the time since boot as written by get_time. Both fields are
// machine words.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

// TimeValFromMicros splits a microsecond count into a TimeVal.
func TimeValFromMicros(us uint64) TimeVal {
	return TimeVal{
		Sec:  us / 1_000_000,
		Usec: us % 1_000_000,
	}
}

// Micros returns the microsecond count tv represents.
func (tv TimeVal) Micros() uint64 {
	return tv.Sec*1_000_000 + tv.Usec
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (tv *TimeVal) SizeBytes() int {
	return SizeOfTimeVal
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (tv *TimeVal) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint64(dst[:8], tv.Sec)
	dst = dst[8:]
	hostarch.ByteOrder.PutUint64(dst[:8], tv.Usec)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (tv *TimeVal) UnmarshalBytes(src []byte) {
	tv.Sec = hostarch.ByteOrder.Uint64(src[:8])
	src = src[8:]
	tv.Usec = hostarch.ByteOrder.Uint64(src[:8])
}

// CopyOut writes tv to user memory at addr.
func (tv *TimeVal) CopyOut(cc marshal.CopyContext, addr hostarch.Addr) (int, error) {
	return marshal.CopyOut(cc, addr, tv)
}

// CopyIn reads tv from user memory at addr.
func (tv *TimeVal) CopyIn(cc marshal.CopyContext, addr hostarch.Addr) (int, error) {
	return marshal.CopyIn(cc, addr, tv)
}
