package kernel

import (
	"io"
	"math/rand"
	"sync"

	"github.com/arush-mehrotra/penn-os/internal/klog"
	"github.com/arush-mehrotra/penn-os/internal/ksync"
)

// selectLevel implements spec §4.3's "sample uniformly from
// [0,19) with 9:6:4 cutoffs" rule, restricted to whichever subset of
// levels is currently populated — grounded directly on the original's
// select_job (pennos.c): 2 levels populated samples from a 5-way or
// 13-way split with the same ratio, 3 levels from 19-way.
func selectLevel(size0, size1, size2 int) int {
	switch {
	case size0+size1+size2 == 0:
		return -1
	case size0 > 0 && size1+size2 == 0:
		return 0
	case size1 > 0 && size0+size2 == 0:
		return 1
	case size2 > 0 && size0+size1 == 0:
		return 2
	case size0 > 0 && size1 > 0 && size2 == 0:
		if rand.Intn(5) <= 2 {
			return 0
		}
		return 1
	case size1 > 0 && size2 > 0 && size0 == 0:
		if rand.Intn(5) <= 2 {
			return 1
		}
		return 2
	case size0 > 0 && size2 > 0 && size1 == 0:
		if rand.Intn(13) <= 8 {
			return 0
		}
		return 2
	default:
		n := rand.Intn(19)
		switch {
		case n <= 8:
			return 0
		case n <= 14:
			return 1
		default:
			return 2
		}
	}
}

// evtTick fires once per scheduling quantum; the shell/host driver
// posts it on a timer, the same EventBox tick/wait/signal pattern the
// teacher uses for its terminal render loop.
const evtTick ksync.EventKind = iota

// Scheduler runs the PennOS cooperative process model: exactly one
// PCB's goroutine holds the baton at a time (spec §5 Concurrency
// Model). Each process goroutine calls Yield at its own natural
// breakpoints (syscalls, loop iterations); the scheduler only resumes
// the next goroutine once the current one has yielded, blocked, or
// exited.
type Scheduler struct {
	mu sync.Mutex

	Registry *Registry
	Log      *klog.Logger

	// Out is where job-control announcements ("[1]+ done sleep 5") are
	// written (spec §4.3/§4.5) — separate from Log, which only ever
	// writes the tick-log file.
	Out io.Writer

	ticks     int
	current   PID
	fgPID     PID
	loggedOut ksync.AtomicBool

	box *ksync.EventBox

	// runningDone signals the scheduler loop that the currently
	// scheduled goroutine has relinquished the baton.
	runningDone chan PID
}

// NewScheduler constructs a scheduler bound to registry and logger.
func NewScheduler(reg *Registry, log *klog.Logger) *Scheduler {
	return &Scheduler{
		Registry:    reg,
		Log:         log,
		Out:         io.Discard,
		box:         ksync.NewEventBox(),
		runningDone: make(chan PID, 1),
	}
}

// SetOutput directs job-control announcements to w (cmd/pennos wires
// this to the controlling terminal's stdout).
func (s *Scheduler) SetOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Out = w
}

// ForegroundPID returns the PID the scheduler last ran in the
// foreground (spec §5: the target of a forwarded host interrupt/stop
// signal).
func (s *Scheduler) ForegroundPID() PID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fgPID
}

// Ticks returns the current tick count (for klog/ps callers).
func (s *Scheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Current returns the PID the scheduler is presently running.
func (s *Scheduler) Current() PID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RequestLogout tells the scheduler to stop after the current quantum
// (spec §6 "logout" builtin).
func (s *Scheduler) RequestLogout() { s.loggedOut.Set(true) }

// PostTick is called by the host timer driver (cmd/pennos/main.go) on
// every quantum boundary; it wakes Run's Tick loop the same way the
// original's SIGALRM handler woke sigsuspend.
func (s *Scheduler) PostTick() { s.box.Set(evtTick, struct{}{}) }

// Run drives the scheduler until RequestLogout takes effect, blocking
// between quanta on the host timer's PostTick notifications (spec §5:
// "a host timer signal drives quantum boundaries").
func (s *Scheduler) Run() {
	for !s.loggedOut.Get() {
		s.box.Wait(func(events *ksync.Events) { events.Clear() })
		s.Tick()
	}
}

// ProcFunc is the body of a schedulable process; it must periodically
// call Yield(pid) to hand the baton back to the scheduler.
type ProcFunc func(pid PID) int

// Spawn creates a new PCB (spec §4.4 spawn) and launches fn in its own
// goroutine, parked until the scheduler first selects it.
func (s *Scheduler) Spawn(parentPID PID, name, commandLine string, background bool, fn ProcFunc) PID {
	proc := s.Registry.Create(parentPID, name, background)
	proc.CommandLine = commandLine

	s.Log.Log(s.Ticks(), klog.Create, int(proc.PID), proc.Priority, proc.Name)

	go func() {
		<-proc.run // wait for the scheduler's first baton hand-off
		status := fn(proc.PID)
		s.exit(proc.PID, status)
	}()

	return proc.PID
}

// Yield is called by a running process at a safe point to give the CPU
// back to the scheduler; it blocks until the scheduler schedules this
// PID again.
func (s *Scheduler) Yield(pid PID) {
	s.runningDone <- pid
	proc := s.Registry.Get(pid)
	if proc == nil {
		return
	}
	<-proc.run
}

// Tick drives one scheduling quantum: the sleep sweep, the weighted
// level pick, and handing the baton to the chosen process for exactly
// one Yield-to-Yield slice. Intended to be driven by a host ticker
// (spec §5: "a host timer signal drives quantum boundaries").
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.ticks++
	tick := s.ticks
	s.mu.Unlock()

	s.sleepCheck(tick)

	size0, size1, size2 := s.Registry.QueueSizes()
	level := selectLevel(size0, size1, size2)
	if level == -1 {
		return // nothing schedulable this quantum (spec: host keeps ticking)
	}

	pid, ok := s.Registry.PopLevel(level)
	if !ok {
		return
	}
	proc := s.Registry.Get(pid)
	if proc == nil {
		return
	}

	s.mu.Lock()
	if pid != s.current {
		s.Log.Log(tick, klog.Schedule, int(pid), level, proc.Name)
	}
	s.current = pid
	if !proc.IsBackground {
		s.fgPID = pid
	}
	s.mu.Unlock()

	proc.run <- struct{}{}
	donePID := <-s.runningDone
	_ = donePID

	// Only requeue onto a run level if the process is still runnable;
	// blocked/stopped/exited processes were already moved to the
	// inactive level (or removed) by whatever syscall changed their
	// status, mirroring add_job_back in the original scheduler.
	if proc.Status == StatusRunning {
		s.Registry.PushLevelBack(proc.Priority, pid)
	}
}

// sleepCheck decrements every sleeping PCB's counter; one that reaches
// zero becomes FINISHED, is queued on its parent's status changes, and
// unblocks its parent if that parent is waiting on it (spec §4.4 sleep).
func (s *Scheduler) sleepCheck(tick int) {
	for _, pid := range s.Registry.InactiveSnapshot() {
		proc := s.Registry.Get(pid)
		if proc == nil || proc.SleepTicks <= 0 || proc.Status != StatusBlocked {
			continue
		}
		proc.SleepTicks--
		if proc.SleepTicks == 0 {
			proc.Status = StatusFinished
			s.Registry.RecordStatusChange(proc.ParentPID, pid)
			if proc.Blocking {
				s.unblockParent(proc.ParentPID)
			}
		}
	}
}

func (s *Scheduler) unblockParent(parentPID PID) {
	parent := s.Registry.Get(parentPID)
	if parent == nil {
		return
	}
	parent.Status = StatusRunning
	s.Registry.MoveToRunnable(parentPID)
}

// exit implements spec §4.4 exit: move to FINISHED, notify the parent,
// log ZOMBIE/ORPHAN as appropriate, and wake a blocking parent.
func (s *Scheduler) exit(pid PID, _ int) {
	proc := s.Registry.Get(pid)
	if proc == nil {
		return
	}
	s.Registry.MoveToInactive(pid)
	proc.Status = StatusFinished

	tick := s.Ticks()
	s.Log.Log(tick, klog.Exited, int(pid), proc.Priority, proc.Name)
	if proc.ParentPID != NoParent {
		s.Log.Log(tick, klog.Zombie, int(pid), proc.Priority, proc.Name)
		s.Registry.RecordStatusChange(proc.ParentPID, pid)
	}
	for _, childPID := range proc.Children {
		if child := s.Registry.Get(childPID); child != nil {
			s.Log.Log(tick, klog.Orphan, int(childPID), child.Priority, child.Name)
		}
		break // spec §4.4: one ORPHAN line suffices to mark the event
	}

	if proc.Blocking && proc.ParentPID != NoParent {
		s.unblockParent(proc.ParentPID)
		s.Log.Log(tick, klog.Unblocked, int(proc.ParentPID), 0, "")
	}

	s.runningDone <- pid
}
