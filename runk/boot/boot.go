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

// Package boot builds a kernel from a runk configuration and runs built-in
// apps on it.
package boot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
	"gokern.dev/gokern/pkg/sentry/kernel"
	"gokern.dev/gokern/pkg/sentry/ktime"
	"gokern.dev/gokern/pkg/sentry/syscalls/process"
	"gokern.dev/gokern/runk/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Args are the arguments to Run.
type Args struct {
	// Conf is the runk configuration.
	Conf *config.Config

	// Apps names the apps to run, in the order they are first scheduled.
	Apps []string

	// DumpMaps logs the mappings of each task as it exits.
	DumpMaps bool

	// Console receives the output of the apps.
	Console io.Writer

	// Clock overrides the kernel clock. If nil, the host monotonic clock is
	// used.
	Clock ktime.Clock

	// Timeout kills all apps after the given time, if positive.
	Timeout time.Duration
}

// Result is the outcome of one app.
type Result struct {
	App      string
	TID      kernel.ThreadID
	Exited   bool
	ExitCode int32

	// RunningTime is how long the app ran, on the kernel clock.
	RunningTime time.Duration

	// Syscalls counts the syscalls made by the app, by name.
	Syscalls map[string]uint32
}

// Report is the outcome of Run.
type Report struct {
	// Results holds one entry per app, in the order apps were given.
	Results []Result

	// TotalFrames is the number of physical frames of the kernel.
	TotalFrames uint64

	// PeakUsedFrames is the highest number of frames in use at once.
	PeakUsedFrames uint64

	// LeakedFrames is the number of frames still in use after every app
	// exited.
	LeakedFrames uint64
}

// NewKernel creates a kernel configured by conf.
func NewKernel(conf *config.Config, clock ktime.Clock, console io.Writer, dumpMaps bool) (*kernel.Kernel, error) {
	if clock == nil {
		clock = ktime.NewMonotonicClock()
	}
	return kernel.New(kernel.InitKernelArgs{
		MemoryBase:     hostarch.PhysAddr(conf.MemoryBase),
		MemorySize:     conf.MemorySize,
		MaxUserAddress: hostarch.Addr(conf.MaxUserAddress),
		UserStackTop:   hostarch.Addr(conf.UserStackTop),
		UserStackPages: conf.UserStackPages,
		Clock:          clock,
		SyscallTable:   process.Table,
		Console:        console,
		Strace:         conf.Strace,
		DumpMaps:       dumpMaps,
	})
}

// Run boots a kernel, runs the requested apps on it until they all exit and
// returns their results. SIGINT and SIGTERM, as well as ctx and the timeout,
// kill the apps that are still running; Run then returns the report along
// with an error.
func Run(ctx context.Context, args Args) (*Report, error) {
	if len(args.Apps) == 0 {
		return nil, fmt.Errorf("no apps to run")
	}
	programs := make([]App, 0, len(args.Apps))
	for _, name := range args.Apps {
		a, ok := LookupApp(name)
		if !ok {
			return nil, fmt.Errorf("unknown app %q", name)
		}
		programs = append(programs, a)
	}

	k, err := NewKernel(args.Conf, args.Clock, args.Console, args.DumpMaps)
	if err != nil {
		return nil, fmt.Errorf("creating kernel: %w", err)
	}
	defer func() {
		if err := k.Release(); err != nil {
			log.Warningf("[boot] Releasing kernel memory: %v", err)
		}
	}()

	tasks := make([]*kernel.Task, 0, len(programs))
	for _, a := range programs {
		t, err := k.NewTask(a.Name, a.Program)
		if err != nil {
			return nil, fmt.Errorf("creating task for app %q: %w", a.Name, err)
		}
		tasks = append(tasks, t)
	}

	if args.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Stop the watcher once the apps are done.
		defer cancel()
		return k.Run(gctx)
	})
	g.Go(func() error {
		select {
		case sig := <-sigs:
			log.Warningf("[boot] Received %v, killing all tasks", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	runErr := g.Wait()

	report := newReport(k, tasks)
	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			return report, fmt.Errorf("apps did not finish in %v: %w", args.Timeout, runErr)
		}
		return report, fmt.Errorf("apps were interrupted: %w", runErr)
	}
	return report, nil
}

// newReport collects the outcome of tasks, which must all have exited.
func newReport(k *kernel.Kernel, tasks []*kernel.Task) *Report {
	mf := k.MemoryFile()
	r := &Report{
		Results:        make([]Result, 0, len(tasks)),
		TotalFrames:    mf.TotalFrames(),
		PeakUsedFrames: mf.PeakUsedFrames(),
		LeakedFrames:   mf.UsedFrames(),
	}
	table := k.SyscallTable()
	for _, t := range tasks {
		code, exited := t.ExitCode()
		syscalls := make(map[string]uint32)
		for sysno, n := range t.SyscallTimes() {
			if n != 0 {
				syscalls[table.LookupName(uintptr(sysno))] = n
			}
		}
		r.Results = append(r.Results, Result{
			App:         t.Name(),
			TID:         t.ThreadID(),
			Exited:      exited,
			ExitCode:    code,
			RunningTime: time.Duration(t.RunningTimeMicros()) * time.Microsecond,
			Syscalls:    syscalls,
		})
	}
	if r.LeakedFrames != 0 {
		log.Warningf("[boot] %d frames still in use after all apps exited", r.LeakedFrames)
	}
	return r
}
