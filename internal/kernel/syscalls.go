// Process-lifecycle syscalls: spec §4.4's kill/waitpid/nice/sleep/
// fg/bg, translated from the original's s_kill/s_waitpid/s_nice/
// s_sleep/k_handle_fg/k_handle_bg (kernel_system.c, kernel.c).
package kernel

import (
	"fmt"
	"strings"

	"github.com/arush-mehrotra/penn-os/internal/klog"
	"github.com/arush-mehrotra/penn-os/internal/perrors"
)

// Kill delivers signal to pid (spec §4.4 kill). SIGCONT resumes a
// stopped job (BLOCKED if the job is a `sleep`, else RUNNING), SIGSTOP
// stops a running one, SIGTERM terminates it and orphans its children.
func (s *Scheduler) Kill(pid PID, sig Signal) error {
	proc := s.Registry.Get(pid)
	if proc == nil {
		return perrors.New(perrors.NoSuchFile)
	}
	if proc.Status.Exited() {
		return perrors.New(perrors.InvalidSignal)
	}

	tick := s.Ticks()
	prevStatus := proc.Status

	switch sig {
	case SigCont:
		newStatus := StatusRunning
		if strings.EqualFold(proc.Name, "sleep") {
			newStatus = StatusBlocked
		}
		s.Log.Log(tick, klog.Continued, int(pid), proc.Priority, proc.Name)
		s.transition(proc, newStatus, tick)
		if proc.ParentPID == 1 {
			fmt.Fprintf(s.Out, "[%d]%c %d continued %s\n", proc.JobID, s.plusMark(pid), pid, proc.CommandLine)
		}

	case SigStop:
		proc.StopTick = tick
		proc.IsBackground = true
		if proc.ParentPID == 1 && proc.JobID == 0 {
			proc.JobID = s.Registry.NextJobID()
		}
		s.Registry.SetPlusPID(pid)
		s.Log.Log(tick, klog.Stopped, int(pid), proc.Priority, proc.Name)
		s.transition(proc, StatusStopped, tick)
		if proc.ParentPID == 1 {
			fmt.Fprintf(s.Out, "[%d]+ %d suspended %s\n", proc.JobID, pid, proc.CommandLine)
		}

	case SigTerm:
		s.Log.Log(tick, klog.Signaled, int(pid), proc.Priority, proc.Name)
		if proc.ParentPID != NoParent {
			s.Log.Log(tick, klog.Zombie, int(pid), proc.Priority, proc.Name)
		}
		for _, childPID := range proc.Children {
			if child := s.Registry.Get(childPID); child != nil {
				s.Log.Log(tick, klog.Orphan, int(childPID), child.Priority, child.Name)
			}
			break
		}
		s.transition(proc, StatusTerminated, tick)
		if proc.IsBackground && proc.ParentPID == 1 {
			fmt.Fprintf(s.Out, "[%d]%c %d terminated %s\n", proc.JobID, s.plusMark(pid), pid, proc.CommandLine)
		}

	default:
		return perrors.New(perrors.InvalidSignal)
	}

	if proc.Status != prevStatus {
		s.Registry.RecordStatusChange(proc.ParentPID, pid)
	}
	return nil
}

// transition applies newStatus to proc, moves it between the run/
// inactive levels, and wakes a blocking parent when proc stops being
// RUNNING (mirrors k_send_signal's status-change bookkeeping).
func (s *Scheduler) transition(proc *PCB, newStatus Status, tick int) {
	prev := proc.Status
	if newStatus == prev {
		return
	}
	proc.Status = newStatus

	switch {
	case newStatus == StatusRunning:
		s.Registry.MoveToRunnable(proc.PID)
	case newStatus == StatusStopped || newStatus == StatusTerminated || newStatus == StatusFinished:
		s.Registry.MoveToInactive(proc.PID)
	}

	if proc.Blocking && newStatus != StatusRunning {
		if newStatus == StatusStopped {
			proc.Blocking = false
		}
		if parent := s.Registry.Get(proc.ParentPID); parent != nil {
			parent.Status = StatusRunning
			s.Registry.MoveToRunnable(parent.PID)
			s.Log.Log(tick, klog.Unblocked, int(parent.PID), parent.Priority, parent.Name)
		}
	}
}

// Nice implements spec §4.4 nice: moves a running job between
// priority levels.
func (s *Scheduler) Nice(pid PID, priority int) error {
	if priority < 0 || priority >= numPriorityLevels {
		return perrors.New(perrors.InvalidArg)
	}
	proc := s.Registry.Get(pid)
	if proc == nil {
		return perrors.New(perrors.NoSuchFile)
	}
	if proc.Status.Exited() {
		return perrors.New(perrors.InvalidArg)
	}

	old := proc.Priority
	if proc.Status == StatusRunning {
		s.Registry.removeFromLevel(old, pid)
		s.Registry.queues[priority] = append(s.Registry.queues[priority], pid)
	}
	s.Log.LogNice(s.Ticks(), int(pid), old, priority, proc.Name)
	proc.Priority = priority
	return nil
}

// Sleep implements spec §4.4 sleep: blocks the calling process for
// ticks quanta (the scheduler's sleepCheck wakes it).
func (s *Scheduler) Sleep(pid PID, ticks int) {
	proc := s.Registry.Get(pid)
	if proc == nil || proc.Status.Exited() {
		return
	}
	proc.Status = StatusBlocked
	proc.SleepTicks = ticks
	s.Registry.MoveToInactive(pid)
	s.Log.Log(s.Ticks(), klog.Blocked, int(pid), proc.Priority, proc.Name)
}

// WaitPID implements spec §4.4 wait. pid == -1 waits on any child;
// nohang mirrors WNOHANG. It returns (pid, status, true) after reaping
// an exited child, (0, 0, true) under nohang when no child has changed
// yet, and (-1, 0, false) when the caller or the target does not exist.
// A blocking wait with nothing to reap marks the caller BLOCKED on the
// inactive level and returns (0, 0, false); the caller then Yields and
// calls WaitPID again once resumed, as Shell.waitForeground does.
func (s *Scheduler) WaitPID(callerPID PID, target PID, nohang bool) (PID, Status, bool) {
	parent := s.Registry.Get(callerPID)
	if parent == nil {
		return -1, 0, false
	}

	if target == -1 {
		if len(parent.Children) == 0 {
			return -1, 0, false
		}
		for _, childPID := range parent.Children {
			child := s.Registry.Get(childPID)
			if child != nil && child.Status.Exited() {
				return s.reapWaited(parent, child)
			}
		}
		if nohang {
			return 0, 0, true
		}
		s.blockOnChildren(parent)
		return 0, 0, false // caller must Yield and retry
	}

	child := s.Registry.Get(target)
	if child == nil || !containsPID(parent.Children, target) {
		return -1, 0, false
	}
	if child.Status.Exited() {
		return s.reapWaited(parent, child)
	}
	if nohang {
		return 0, 0, true
	}
	child.Blocking = true
	s.blockOnChildren(parent)
	return 0, 0, false
}

func containsPID(list []PID, pid PID) bool {
	for _, p := range list {
		if p == pid {
			return true
		}
	}
	return false
}

func (s *Scheduler) blockOnChildren(parent *PCB) {
	parent.Status = StatusBlocked
	s.Registry.MoveToInactive(parent.PID)
	for _, childPID := range parent.Children {
		if child := s.Registry.Get(childPID); child != nil {
			child.Blocking = true
		}
	}
	s.Log.Log(s.Ticks(), klog.Blocked, int(parent.PID), parent.Priority, parent.Name)
}

func (s *Scheduler) reapWaited(parent, child *PCB) (PID, Status, bool) {
	s.Log.Log(s.Ticks(), klog.Waited, int(child.PID), child.Priority, child.Name)
	if child.IsBackground && child.Status == StatusFinished && child.ParentPID == 1 {
		fmt.Fprintf(s.Out, "[%d]%c done %s\n", child.JobID, s.plusMark(child.PID), child.CommandLine)
	}
	s.Registry.ConsumeStatusChange(parent.PID, child.PID)
	status := child.Status
	pid := child.PID
	s.Registry.Cleanup(child.PID)
	return pid, status, true
}

// plusMark returns '+' if pid is the current job-control "plus" job
// (the most recently stopped job, else the most recently backgrounded
// one) and ' ' otherwise, matching the original's plus_pid annotation
// recomputed fresh on every announcement rather than cached.
func (s *Scheduler) plusMark(pid PID) rune {
	best := s.Registry.MostRecentlyStopped()
	if best == nil {
		best = s.Registry.MostRecentlyBackgrounded()
	}
	if best != nil && best.PID == pid {
		return '+'
	}
	return ' '
}

// PS implements spec §6 ps: the header line plus one row per live PCB.
func (s *Scheduler) PS() string {
	var b strings.Builder
	b.WriteString("PID\tPPID\tPRI\tSTAT\tCMD\n")
	for _, p := range s.Registry.All() {
		b.WriteString(p.PSLine())
	}
	return b.String()
}

// Bg implements spec §6 bg: resumes a stopped job in the background.
// pid == -1 means "the most recently stopped job".
func (s *Scheduler) Bg(pid PID) error {
	var proc *PCB
	if pid == -1 {
		proc = s.Registry.MostRecentlyStopped()
	} else {
		proc = s.Registry.Get(pid)
	}
	if proc == nil || proc.Status != StatusStopped || proc.StopTick == -1 {
		return perrors.New(perrors.InvalidJob)
	}

	isSleep := strings.EqualFold(proc.Name, "sleep")
	proc.Status = StatusRunning
	if isSleep {
		proc.Status = StatusBlocked
	}
	proc.StopTick = 0
	if !isSleep {
		s.Registry.MoveToRunnable(proc.PID)
	}
	return nil
}

// Fg implements spec §6 fg: brings a stopped-or-backgrounded job to the
// foreground and blocks the shell on it. pid == -1 means "the most
// recently stopped job, or failing that the most recently backgrounded
// one".
func (s *Scheduler) Fg(shellPID, pid PID) (PID, error) {
	var proc *PCB
	if pid == -1 {
		proc = s.Registry.MostRecentlyStopped()
		if proc == nil {
			proc = s.Registry.MostRecentlyBackgrounded()
		}
	} else {
		proc = s.Registry.Get(pid)
	}
	if proc == nil || proc.Status.Exited() {
		return -1, perrors.New(perrors.InvalidJob)
	}

	isSleep := strings.EqualFold(proc.Name, "sleep")
	proc.IsBackground = false
	proc.Status = StatusRunning
	if isSleep {
		proc.Status = StatusBlocked
	}
	proc.StopTick = 0
	proc.Blocking = true

	if !isSleep {
		s.Registry.MoveToRunnable(proc.PID)
	}

	if shell := s.Registry.Get(shellPID); shell != nil {
		shell.Status = StatusBlocked
		s.Registry.MoveToInactive(shellPID)
	}
	return proc.PID, nil
}
