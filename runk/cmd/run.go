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
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/runk/boot"
	"gokern.dev/gokern/runk/config"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	apps        string
	dumpMaps    bool
	timeout     time.Duration
	metricsFile string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "boot a kernel and run built-in apps on it"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] [app...] - boot a kernel and run built-in apps on it.

Apps are scheduled in the order given. Use "runk apps" to list them.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.apps, "apps", "", "comma-separated list of apps to run, in addition to positional arguments. If no app is given, all apps are run.")
	f.BoolVar(&r.dumpMaps, "dump-maps", false, "log the memory mappings of each task when it exits.")
	f.DurationVar(&r.timeout, "timeout", 0, "kill the apps if they have not finished after this long. 0 means no limit.")
	f.StringVar(&r.metricsFile, "metrics-file", "", "if set, write the task and memory statistics to this file in the Prometheus text format.")
}

// appNames returns the apps selected by the flags and arguments of r.
func (r *Run) appNames(args []string) []string {
	var names []string
	for _, name := range strings.Split(r.apps, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	names = append(names, args...)
	if len(names) == 0 {
		for _, a := range boot.Apps() {
			names = append(names, a.Name)
		}
	}
	return names
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)

	names := r.appNames(f.Args())
	log.Infof("Running apps %v", names)
	report, err := boot.Run(ctx, boot.Args{
		Conf:     conf,
		Apps:     names,
		DumpMaps: r.dumpMaps,
		Console:  os.Stdout,
		Timeout:  r.timeout,
	})
	if report != nil {
		if werr := writeResults(os.Stdout, report.Results); werr != nil {
			Errorf("error writing results: %v", werr)
		}
		if r.metricsFile != "" {
			if werr := writeMetricsFile(r.metricsFile, report); werr != nil {
				Errorf("error writing metrics to %q: %v", r.metricsFile, werr)
				return subcommands.ExitFailure
			}
		}
	}
	if err != nil {
		Errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeResults prints the exit code of each app.
func writeResults(w io.Writer, results []boot.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nTID\tAPP\tEXIT CODE\n")
	for _, r := range results {
		code := "killed before exit"
		if r.Exited {
			code = fmt.Sprintf("%d", r.ExitCode)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.TID, r.App, code)
	}
	return tw.Flush()
}

// writeMetricsFile writes the metrics of report to the file at path,
// replacing it if it exists.
func writeMetricsFile(path string, report *boot.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteMetrics(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
