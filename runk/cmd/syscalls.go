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

package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gokern.dev/gokern/pkg/sentry/kernel"
	"gokern.dev/gokern/pkg/sentry/syscalls/process"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
}

// SyscallDoc represents a single item of syscall documentation.
type SyscallDoc struct {
	Name string `json:"name"`
	num  uintptr

	Support string `json:"support"`
	Note    string `json:"note,omitempty"`
}

// TableInfo is the documentation of a syscall table.
type TableInfo struct {
	Name string `json:"name"`

	// Syscalls maps syscall numbers to their doc.
	Syscalls map[uintptr]SyscallDoc `json:"syscalls"`

	sorted []SyscallDoc
}

type outputFunc func(io.Writer, TableInfo) error

// A map of output type names to output functions.
var outputMap = map[string]outputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print compatibility information for syscalls."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print compatibility information for syscalls.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json).")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		Fatalf("Unsupported output format %q", s.output)
	}
	if err := out(os.Stdout, getTableInfo(process.Table)); err != nil {
		Fatalf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// getTableInfo returns the documentation of every syscall in t.
func getTableInfo(t *kernel.SyscallTable) TableInfo {
	info := TableInfo{
		Name:     t.Name,
		Syscalls: make(map[uintptr]SyscallDoc),
	}
	for _, num := range t.Sysnos() {
		sc := t.Table[num]
		doc := SyscallDoc{
			Name:    sc.Name,
			num:     num,
			Support: sc.SupportLevel.String(),
			Note:    sc.Note,
		}
		info.Syscalls[num] = doc
		info.sorted = append(info.sorted, doc)
	}
	return info
}

// outputTable outputs the syscall info in tabular format.
func outputTable(w io.Writer, info TableInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(w, "%s:\n\n", info.Name); err != nil {
		return err
	}

	// Write the header
	_, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		"NUM",
		"NAME",
		"SUPPORT",
		"NOTE",
	)
	if err != nil {
		return err
	}

	// Write each syscall entry
	for _, sc := range info.sorted {
		_, err = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			strconv.FormatInt(int64(sc.num), 10),
			sc.Name,
			sc.Support,
			sc.Note,
		)
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

// outputJSON outputs the syscall info in JSON format.
func outputJSON(w io.Writer, info TableInfo) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(info)
}

// outputCSV outputs the syscall info in CSV format.
func outputCSV(w io.Writer, info TableInfo) error {
	csvWriter := csv.NewWriter(w)

	// Write the header
	err := csvWriter.Write([]string{
		"Table",
		"Num",
		"Name",
		"Support",
		"Note",
	})
	if err != nil {
		return err
	}

	for _, sc := range info.sorted {
		err := csvWriter.Write([]string{
			info.Name,
			strconv.FormatInt(int64(sc.num), 10),
			sc.Name,
			sc.Support,
			sc.Note,
		})
		if err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
