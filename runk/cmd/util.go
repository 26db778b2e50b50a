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

// Package cmd holds implementations of the runk commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"gokern.dev/gokern/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages are
// consumed by the user of runk, in addition to the debug log.
var ErrorLogger io.Writer = os.Stderr

// Errorf logs an error to the debug log and the error log.
func Errorf(format string, args ...any) {
	log.Warningf("FATAL ERROR: "+format, args...)
	fmt.Fprintf(ErrorLogger, "runk: "+format+"\n", args...)
}

// Fatalf logs the same way as Errorf, and then exits with status 128.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	os.Exit(128)
}
