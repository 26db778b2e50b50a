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

package kernel

// Task scheduling. Tasks pass a baton: a task runs only after receiving on
// its wake channel, and it always hands the baton on before it blocks or
// exits, so at most one task goroutine runs program code at any time.

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"gokern.dev/gokern/pkg/abi"
	"gokern.dev/gokern/pkg/log"
)

// Scheduler is the interface syscalls use to give up the CPU.
type Scheduler interface {
	// Current returns the running task, or nil.
	Current() *Task

	// SuspendCurrentAndRunNext moves the running task to the back of the
	// ready queue and runs the task at the front. It returns when the
	// calling task is scheduled again.
	SuspendCurrentAndRunNext()

	// ExitCurrentAndRunNext marks the running task exited with code,
	// releases its address space and runs the next ready task. The caller
	// must not return to the program afterwards.
	ExitCurrentAndRunNext(code int32)
}

// TaskSet is the set of all tasks of a kernel and the FIFO scheduler that
// runs them.
type TaskSet struct {
	k *Kernel

	mu sync.Mutex

	// tasks holds every task ever created, in creation order.
	//
	// +checklocks:mu
	tasks []*Task

	// ready holds the tasks waiting to run, in the order they will run.
	//
	// +checklocks:mu
	ready []*Task

	// current is the task holding the baton.
	//
	// +checklocks:mu
	current *Task

	// running is true while run is in progress.
	//
	// +checklocks:mu
	running bool

	// idle is closed when no task is left to run.
	//
	// +checklocks:mu
	idle chan struct{}

	// stop is closed to kill every task.
	//
	// +checklocks:mu
	stop chan struct{}

	// +checklocks:mu
	stopped bool
}

var _ Scheduler = (*TaskSet)(nil)

func newTaskSet(k *Kernel) *TaskSet {
	return &TaskSet{k: k, stop: make(chan struct{})}
}

// add makes t ready to run.
func (ts *TaskSet) add(t *Task) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tasks = append(ts.tasks, t)
	if ts.stopped {
		ts.exitLocked(t, ExitCodeKilled)
		return
	}
	t.status = abi.TaskReady
	ts.ready = append(ts.ready, t)
}

// Tasks returns every task ever created, in creation order.
func (ts *TaskSet) Tasks() []*Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]*Task(nil), ts.tasks...)
}

// Current implements Scheduler.Current.
func (ts *TaskSet) Current() *Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.current
}

// run schedules the first ready task and waits until no task is left to run.
func (ts *TaskSet) run(ctx context.Context) error {
	ts.mu.Lock()
	if ts.running {
		ts.mu.Unlock()
		return fmt.Errorf("kernel is already running")
	}
	if ts.stopped {
		ts.mu.Unlock()
		return fmt.Errorf("kernel has been stopped")
	}
	ts.running = true
	ts.idle = make(chan struct{})
	idle := ts.idle
	ts.runNextLocked()
	ts.mu.Unlock()

	defer func() {
		ts.mu.Lock()
		ts.running = false
		ts.mu.Unlock()
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		ts.kill()
		// The running task, if any, exits on its next syscall.
		<-idle
		return ctx.Err()
	}
}

// kill stops the kernel: tasks that are not running exit immediately with
// ExitCodeKilled, and the running task does so on its next syscall.
func (ts *TaskSet) kill() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.stopped {
		return
	}
	ts.stopped = true
	close(ts.stop)
	for _, t := range ts.ready {
		ts.exitLocked(t, ExitCodeKilled)
	}
	ts.ready = nil
	if ts.current == nil {
		ts.idleLocked()
	}
	log.Warningf("[kernel] Stopped, remaining tasks killed")
}

// killed returns true if the kernel has been stopped.
func (ts *TaskSet) killed() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.stopped
}

// SuspendCurrentAndRunNext implements Scheduler.SuspendCurrentAndRunNext.
func (ts *TaskSet) SuspendCurrentAndRunNext() {
	ts.mu.Lock()
	cur := ts.current
	if len(ts.ready) == 0 {
		// Nothing else to run; keep running.
		ts.mu.Unlock()
		return
	}
	cur.status = abi.TaskReady
	ts.ready = append(ts.ready, cur)
	ts.runNextLocked()
	stop := ts.stop
	ts.mu.Unlock()

	select {
	case <-cur.wake:
	case <-stop:
		// kill has already marked cur exited.
		runtime.Goexit()
	}
}

// ExitCurrentAndRunNext implements Scheduler.ExitCurrentAndRunNext.
func (ts *TaskSet) ExitCurrentAndRunNext(code int32) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	cur := ts.current
	if cur == nil {
		panic("ExitCurrentAndRunNext called with no running task")
	}
	ts.current = nil
	ts.exitLocked(cur, code)
	ts.runNextLocked()
}

// exitLocked marks t exited and releases its address space.
//
// +checklocks:ts.mu
func (ts *TaskSet) exitLocked(t *Task, code int32) {
	if t.status == abi.TaskExited {
		return
	}
	t.status = abi.TaskExited
	t.exitCode = code
	if t.started {
		t.exitTime = ts.k.clock.NowMicros()
	}
	if ts.k.dumpMaps {
		log.Infof("[kernel] Mappings of %v at exit:\n%s", t, t.mm)
	}
	t.mm.Release()
	close(t.exited)
	log.Debugf("[kernel] Task %v exited with code %d", t, code)
}

// runNextLocked hands the baton to the task at the front of the ready queue.
// If there is none, the kernel becomes idle.
//
// +checklocks:ts.mu
func (ts *TaskSet) runNextLocked() {
	if len(ts.ready) == 0 {
		ts.current = nil
		ts.idleLocked()
		return
	}
	next := ts.ready[0]
	ts.ready[0] = nil
	ts.ready = ts.ready[1:]

	ts.current = next
	next.status = abi.TaskRunning
	if next.started {
		next.wake <- struct{}{}
		return
	}
	next.started = true
	next.startTime = ts.k.clock.NowMicros()
	go next.run() // S/R-SAFE: the task holds the baton from its first instruction.
}

// idleLocked signals run that no task is left to run.
//
// +checklocks:ts.mu
func (ts *TaskSet) idleLocked() {
	if ts.idle == nil {
		return
	}
	close(ts.idle)
	ts.idle = nil
}

// run is the body of the task goroutine.
func (t *Task) run() {
	defer func() {
		ts := t.k.tasks
		if r := recover(); r != nil {
			log.Warningf("[kernel] Application %v panicked: %v, kernel killed it.", t, r)
			ts.exitIfCurrent(t, ExitCodeKilled)
			return
		}
		// The program returned without calling exit, or the goroutine
		// was terminated after the task exited.
		if ts.exitIfCurrent(t, 0) {
			log.Infof("[kernel] Application exited with code %d", 0)
		}
	}()
	t.program(t)
}

// exitIfCurrent exits t with code and runs the next task if t is running.
// It returns true if t was exited.
func (ts *TaskSet) exitIfCurrent(t *Task, code int32) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.current != t || t.status == abi.TaskExited {
		return false
	}
	ts.current = nil
	ts.exitLocked(t, code)
	ts.runNextLocked()
	return true
}
