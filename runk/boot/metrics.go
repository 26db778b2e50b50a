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

package boot

import (
	"io"
	"sort"
	"strconv"

	"gokern.dev/gokern/pkg/prometheus"
)

// WriteMetrics writes r to w in the Prometheus text format.
func (r *Report) WriteMetrics(w io.Writer) error {
	frames := prometheus.NewFamily(prometheus.Metric{
		Name: "runk_memory_frames",
		Type: prometheus.TypeGauge,
		Help: "Physical frames of the kernel, by state.",
	})
	frames.Add(float64(r.TotalFrames), prometheus.Labels{"state": "total"})
	frames.Add(float64(r.PeakUsedFrames), prometheus.Labels{"state": "peak_used"})
	frames.Add(float64(r.LeakedFrames), prometheus.Labels{"state": "leaked"})

	exitCodes := prometheus.NewFamily(prometheus.Metric{
		Name: "runk_task_exit_code",
		Type: prometheus.TypeGauge,
		Help: "Exit code of each task that exited.",
	})
	runningTime := prometheus.NewFamily(prometheus.Metric{
		Name: "runk_task_running_time_seconds",
		Type: prometheus.TypeGauge,
		Help: "Time between the first scheduling of each task and its exit.",
	})
	syscalls := prometheus.NewFamily(prometheus.Metric{
		Name: "runk_task_syscalls_total",
		Type: prometheus.TypeCounter,
		Help: "Syscalls made by each task, by syscall name.",
	})
	for _, res := range r.Results {
		labels := func() prometheus.Labels {
			return prometheus.Labels{"app": res.App, "tid": strconv.Itoa(int(res.TID))}
		}
		if res.Exited {
			exitCodes.Add(float64(res.ExitCode), labels())
		}
		runningTime.Add(res.RunningTime.Seconds(), labels())

		names := make([]string, 0, len(res.Syscalls))
		for name := range res.Syscalls {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			l := labels()
			l["syscall"] = name
			syscalls.Add(float64(res.Syscalls[name]), l)
		}
	}
	return prometheus.Write(w, []*prometheus.Family{frames, exitCodes, runningTime, syscalls})
}
