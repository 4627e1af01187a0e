package kernel

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/arush-mehrotra/penn-os/internal/klog"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "log")
	logger, err := klog.Open(logPath)
	if err != nil {
		t.Fatalf("klog.Open: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return NewScheduler(NewRegistry(), logger)
}

func TestSpawnAndExitReapable(t *testing.T) {
	s := newTestScheduler(t)
	shell := s.Registry.Create(NoParent, "shell", false)
	// This shell PCB has no goroutine behind it, so it must not sit on a
	// run queue: park it as a parent blocked in waitpid.
	shell.Status = StatusBlocked
	s.Registry.MoveToInactive(shell.PID)

	var ran bool
	var mu sync.Mutex
	child := s.Spawn(shell.PID, "echo", "echo hi", false, func(pid PID) int {
		mu.Lock()
		ran = true
		mu.Unlock()
		return 0
	})

	// Drive ticks until the child has run and exited.
	for i := 0; i < 20; i++ {
		s.Tick()
		mu.Lock()
		done := ran
		mu.Unlock()
		if done {
			break
		}
	}
	mu.Lock()
	if !ran {
		t.Fatal("spawned child never ran")
	}
	mu.Unlock()

	// Give the exit() goroutine a moment to record the status change.
	for i := 0; i < 20; i++ {
		if pid, status, ok := s.WaitPID(shell.PID, child, true); ok && pid == child {
			if !status.Exited() {
				t.Errorf("reaped status = %v, want Exited", status)
			}
			return
		}
		s.Tick()
	}
	t.Fatal("WaitPID never reaped the exited child")
}

func TestKillTermOrphansChildren(t *testing.T) {
	s := newTestScheduler(t)
	parent := s.Registry.Create(NoParent, "parent", false)
	child := s.Registry.Create(parent.PID, "child", false)

	if err := s.Kill(parent.PID, SigTerm); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	got := s.Registry.Get(parent.PID)
	if !got.Status.Exited() {
		t.Errorf("status after SIGTERM = %v, want Exited", got.Status)
	}
	if s.Registry.Get(child.PID) == nil {
		t.Error("child PCB unexpectedly removed by parent's termination")
	}
}

func TestKillStopThenCont(t *testing.T) {
	s := newTestScheduler(t)
	proc := s.Registry.Create(NoParent, "job", true)

	if err := s.Kill(proc.PID, SigStop); err != nil {
		t.Fatalf("Kill SIGSTOP: %v", err)
	}
	if s.Registry.Get(proc.PID).Status != StatusStopped {
		t.Fatalf("status after SIGSTOP = %v, want Stopped", s.Registry.Get(proc.PID).Status)
	}

	if err := s.Kill(proc.PID, SigCont); err != nil {
		t.Fatalf("Kill SIGCONT: %v", err)
	}
	if s.Registry.Get(proc.PID).Status != StatusRunning {
		t.Fatalf("status after SIGCONT = %v, want Running", s.Registry.Get(proc.PID).Status)
	}
}

func TestNiceMovesRunQueue(t *testing.T) {
	s := newTestScheduler(t)
	proc := s.Registry.Create(NoParent, "job", false)
	if err := s.Nice(proc.PID, 2); err != nil {
		t.Fatalf("Nice: %v", err)
	}
	if proc.Priority != 2 {
		t.Errorf("priority after Nice = %d, want 2", proc.Priority)
	}
	if _, s1, s2 := s.Registry.QueueSizes(); s1 != 0 || s2 != 1 {
		t.Errorf("run queues after Nice = (level1 %d, level2 %d), want (0, 1)", s1, s2)
	}
	if err := s.Nice(proc.PID, 5); err == nil {
		t.Error("expected error for out-of-range priority")
	}
}

func TestSelectLevelOnlyPopulated(t *testing.T) {
	if lvl := selectLevel(0, 0, 0); lvl != -1 {
		t.Errorf("selectLevel(0,0,0) = %d, want -1", lvl)
	}
	if lvl := selectLevel(5, 0, 0); lvl != 0 {
		t.Errorf("selectLevel(5,0,0) = %d, want 0", lvl)
	}
	if lvl := selectLevel(0, 0, 3); lvl != 2 {
		t.Errorf("selectLevel(0,0,3) = %d, want 2", lvl)
	}
}

func TestSelectLevelWeightedDistribution(t *testing.T) {
	counts := [3]int{}
	const trials = 20000
	for i := 0; i < trials; i++ {
		counts[selectLevel(1, 1, 1)]++
	}
	// Expect roughly 9:6:4 split; allow generous tolerance since this
	// is a statistical check, not an exact one.
	if counts[0] < counts[1] || counts[1] < counts[2] {
		t.Errorf("expected level0 >= level1 >= level2 in weighted pick, got %v", counts)
	}
}

