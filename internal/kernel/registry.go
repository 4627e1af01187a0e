package kernel

import "sync"

// Registry owns every live PCB plus the four priority queues (spec
// §4.3). Levels 0-2 are schedulable run queues; level 3 holds
// stopped/blocked/zombie-pending jobs, mirroring the original's
// priorityList[0..3] + PCBList pairing but collapsed into one
// lock-guarded map-of-pointers, which is the idiomatic Go analogue of
// a pointer-linked deque (no manual node bookkeeping).
type Registry struct {
	mu sync.Mutex

	procs map[PID]*PCB
	// queues[0..2] are the schedulable levels; queues[3] is inactive.
	queues [4][]PID

	nextPID  PID
	numBGJobs int
	plusPID  PID // "most recently stopped or backgrounded" — spec §6 job control
}

// NewRegistry returns an empty registry. PID 1 is reserved for the
// init/shell process by convention of the first Spawn call.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[PID]*PCB), nextPID: 1}
}

// Create allocates a new PCB, links it to parent (if any), and pushes
// it onto priority level 1's run queue (spec §4.3: "new processes
// start at priority 1").
func (r *Registry) Create(parentPID PID, name string, background bool) *PCB {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid := r.nextPID
	r.nextPID++

	child := newPCB(pid, parentPID, name, background)
	r.procs[pid] = child
	r.queues[child.Priority] = append(r.queues[child.Priority], pid)

	if parent, ok := r.procs[parentPID]; ok {
		parent.Children = append(parent.Children, pid)
	}

	if background && parentPID == 1 {
		r.numBGJobs++
		child.JobID = r.numBGJobs
	}

	return child
}

// Get returns the PCB for pid, or nil.
func (r *Registry) Get(pid PID) *PCB {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.procs[pid]
}

// removeFromQueue removes pid from queue level if present.
func removeFromQueue(q []PID, pid PID) []PID {
	for i, p := range q {
		if p == pid {
			return append(q[:i], q[i+1:]...)
		}
	}
	return q
}

func (r *Registry) removeFromLevel(level int, pid PID) {
	r.queues[level] = removeFromQueue(r.queues[level], pid)
}

func (r *Registry) inLevel(level int, pid PID) bool {
	for _, p := range r.queues[level] {
		if p == pid {
			return true
		}
	}
	return false
}

// MoveToRunnable moves pid out of the inactive level and onto its
// priority's run queue, unless it's already there.
func (r *Registry) MoveToRunnable(pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moveToRunnableLocked(pid)
}

func (r *Registry) moveToRunnableLocked(pid PID) {
	proc, ok := r.procs[pid]
	if !ok {
		return
	}
	r.removeFromLevel(inactiveLevel, pid)
	if !r.inLevel(proc.Priority, pid) {
		r.queues[proc.Priority] = append(r.queues[proc.Priority], pid)
	}
}

// MoveToInactive moves pid off its run queue and onto the inactive
// level.
func (r *Registry) MoveToInactive(pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moveToInactiveLocked(pid)
}

func (r *Registry) moveToInactiveLocked(pid PID) {
	proc, ok := r.procs[pid]
	if !ok {
		return
	}
	r.removeFromLevel(proc.Priority, pid)
	if !r.inLevel(inactiveLevel, pid) {
		r.queues[inactiveLevel] = append(r.queues[inactiveLevel], pid)
	}
}

// QueueSizes returns the population of the three schedulable levels,
// for the scheduler's weighted-selection step.
func (r *Registry) QueueSizes() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues[0]), len(r.queues[1]), len(r.queues[2])
}

// PopLevel pops and returns the PID at the front of level's queue.
func (r *Registry) PopLevel(level int) (PID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queues[level]) == 0 {
		return 0, false
	}
	pid := r.queues[level][0]
	r.queues[level] = r.queues[level][1:]
	return pid, true
}

// PushLevelBack appends pid to the back of level's queue (used by the
// scheduler to requeue a process after its quantum, spec §4.3 "round
// robin within a level").
func (r *Registry) PushLevelBack(level int, pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[level] = append(r.queues[level], pid)
}

// All returns every live PCB, in creation order, for `ps` (spec §6).
func (r *Registry) All() []*PCB {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PCB, 0, len(r.procs))
	for pid := PID(1); pid < r.nextPID; pid++ {
		if p, ok := r.procs[pid]; ok {
			out = append(out, p)
		}
	}
	return out
}

// MostRecentlyStopped finds the job spec §6's bg/fg (no-arg form) acts
// on: the last process that transitioned to STOPPED.
func (r *Registry) MostRecentlyStopped() *PCB {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *PCB
	for _, pid := range r.queues[inactiveLevel] {
		p := r.procs[pid]
		if p != nil && p.Status == StatusStopped && (best == nil || p.StopTick > best.StopTick) {
			best = p
		}
	}
	return best
}

// MostRecentlyBackgrounded finds the highest-PID background job still
// running, for `fg` with no argument when nothing is stopped.
func (r *Registry) MostRecentlyBackgrounded() *PCB {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *PCB
	for _, p := range r.procs {
		if p.IsBackground && !p.Status.Exited() && (best == nil || p.PID > best.PID) {
			best = p
		}
	}
	return best
}

// Cleanup recursively removes proc and its children from every queue
// and the registry, unlinking it from its parent's child list (spec
// §4.4 "zombie reaping"). Orphaned grandchildren are left as children
// of proc's own children, which are themselves being cleaned up here,
// so there is nothing further to reparent.
func (r *Registry) Cleanup(pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked(pid)
}

func (r *Registry) cleanupLocked(pid PID) {
	proc, ok := r.procs[pid]
	if !ok {
		return
	}
	r.removeFromLevel(proc.Priority, pid)
	r.removeFromLevel(inactiveLevel, pid)

	for _, childPID := range append([]PID(nil), proc.Children...) {
		r.cleanupLocked(childPID)
	}

	if proc.ParentPID != NoParent {
		if parent, ok := r.procs[proc.ParentPID]; ok {
			parent.Children = removeFromQueue(parent.Children, pid)
			if proc.Blocking && r.inLevel(inactiveLevel, parent.PID) {
				r.moveToRunnableLocked(parent.PID)
			}
		}
	}

	delete(r.procs, pid)
}

// RecordStatusChange appends pid to parent's status-change queue
// (spec §4.4: "each PCB carries a queue of child-status-change
// notifications consumed by wait").
func (r *Registry) RecordStatusChange(parentPID, pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if parent, ok := r.procs[parentPID]; ok {
		parent.StatusChanges = append(parent.StatusChanges, pid)
	}
}

// ConsumeStatusChange removes pid from parent's status-change queue,
// once waitpid has delivered it.
func (r *Registry) ConsumeStatusChange(parentPID, pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if parent, ok := r.procs[parentPID]; ok {
		parent.StatusChanges = removeFromQueue(parent.StatusChanges, pid)
	}
}

// SetPlusPID records the most recently stopped/backgrounded PID for
// job-control '+' annotation in announcements.
func (r *Registry) SetPlusPID(pid PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plusPID = pid
}

// PlusPID returns the job-control '+' job.
func (r *Registry) PlusPID() PID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plusPID
}

// NextJobID allocates the next background job-control number ("[N]").
func (r *Registry) NextJobID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numBGJobs++
	return r.numBGJobs
}

// InactiveSnapshot returns a copy of the inactive level's PID list, for
// the scheduler's sleep-countdown sweep (spec §4.4 sleep).
func (r *Registry) InactiveSnapshot() []PID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PID, len(r.queues[inactiveLevel]))
	copy(out, r.queues[inactiveLevel])
	return out
}
