package kernel

import "testing"

func TestCreateLinksParentAndChild(t *testing.T) {
	r := NewRegistry()
	parent := r.Create(NoParent, "shell", false)
	child := r.Create(parent.PID, "cat", false)

	if len(parent.Children) != 1 || parent.Children[0] != child.PID {
		t.Fatalf("parent.Children = %v, want [%d]", parent.Children, child.PID)
	}
	if child.Priority != 1 {
		t.Errorf("new child priority = %d, want 1 (spec default)", child.Priority)
	}
}

func TestCleanupRemovesWholeSubtree(t *testing.T) {
	r := NewRegistry()
	parent := r.Create(NoParent, "shell", false)
	child := r.Create(parent.PID, "mid", false)
	grandchild := r.Create(child.PID, "leaf", false)

	r.Cleanup(child.PID)

	if r.Get(child.PID) != nil {
		t.Error("child still present after Cleanup")
	}
	if r.Get(grandchild.PID) != nil {
		t.Error("grandchild still present after Cleanup of its parent")
	}
	if len(parent.Children) != 0 {
		t.Errorf("parent.Children = %v, want empty", parent.Children)
	}
}

func TestStatusChangeQueueRoundTrip(t *testing.T) {
	r := NewRegistry()
	parent := r.Create(NoParent, "shell", false)
	child := r.Create(parent.PID, "cat", false)

	r.RecordStatusChange(parent.PID, child.PID)
	if len(parent.StatusChanges) != 1 {
		t.Fatalf("StatusChanges = %v, want 1 entry", parent.StatusChanges)
	}
	r.ConsumeStatusChange(parent.PID, child.PID)
	if len(parent.StatusChanges) != 0 {
		t.Errorf("StatusChanges after consume = %v, want empty", parent.StatusChanges)
	}
}

func TestMostRecentlyStoppedPicksLatestStopTick(t *testing.T) {
	r := NewRegistry()
	shell := r.Create(NoParent, "shell", false)
	a := r.Create(shell.PID, "a", true)
	b := r.Create(shell.PID, "b", true)

	a.Status = StatusStopped
	a.StopTick = 3
	r.MoveToInactive(a.PID)
	b.Status = StatusStopped
	b.StopTick = 7
	r.MoveToInactive(b.PID)

	best := r.MostRecentlyStopped()
	if best == nil || best.PID != b.PID {
		t.Fatalf("MostRecentlyStopped = %v, want pid %d", best, b.PID)
	}
}

func TestNextJobIDIncrementsMonotonically(t *testing.T) {
	r := NewRegistry()
	first := r.NextJobID()
	second := r.NextJobID()
	if second != first+1 {
		t.Errorf("job IDs = %d, %d; want monotonically increasing", first, second)
	}
}

func TestMoveToRunnableIsIdempotent(t *testing.T) {
	r := NewRegistry()
	proc := r.Create(NoParent, "job", false)
	r.MoveToInactive(proc.PID)
	r.MoveToRunnable(proc.PID)
	r.MoveToRunnable(proc.PID) // must not duplicate the PID in its run queue

	s0, s1, _ := r.QueueSizes()
	if s0+s1 != 1 {
		t.Errorf("run queues after repeated MoveToRunnable = (%d,%d), want exactly 1 entry total", s0, s1)
	}
}
