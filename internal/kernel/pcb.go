// Package kernel implements the PennOS process model of spec §4.3/§4.4:
// a PCB registry, a priority-queue scheduler, signal delivery, and the
// wait/sleep/orphan/zombie process-lifecycle syscalls. Concurrency is
// cooperative — only the process the scheduler has handed the baton to
// may touch shared state — modeled the way the teacher's core.go event
// loop hands work to exactly one goroutine at a time via its EventBox,
// generalized here to PCB run/suspend signaling (internal/ksync).
package kernel

import (
	"fmt"
)

// Status is a process's scheduling state (spec §4.3; originally
// STATUS_RUNNING/STOPPED/BLOCKED/FINISHED/TERMINATED).
type Status int

const (
	StatusRunning Status = iota
	StatusStopped
	StatusBlocked
	StatusFinished
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "R"
	case StatusStopped:
		return "S"
	case StatusBlocked:
		return "B"
	case StatusFinished, StatusTerminated:
		return "Z"
	default:
		return "?"
	}
}

// Exited reports whether the process has left the scheduler's run
// queues permanently (spec §4.4 wait: only these statuses satisfy a
// waitpid).
func (s Status) Exited() bool {
	return s == StatusFinished || s == StatusTerminated
}

// Signal is one of the three signals PennOS processes understand (spec
// §4.4 kill/signal delivery).
type Signal int

const (
	SigCont Signal = iota
	SigStop
	SigTerm
)

// inactiveLevel is the priority-deque index reserved for
// stopped/blocked/zombie-pending jobs (spec §4.3: "a fourth, inactive
// level holds jobs not currently schedulable").
const inactiveLevel = 3

// numPriorityLevels is the count of real scheduling levels (0,1,2).
const numPriorityLevels = 3

// PID is a process ID. PIDs are the only cross-references between
// PCBs — never raw pointers — resolved through the Registry (spec §9
// Design Notes: avoids the cyclic-pointer-ownership problem of a
// pointer-linked process tree).
type PID int

// NoParent marks a PCB with no parent (the init/shell process).
const NoParent PID = -1

// PCB is one process control block (spec §3 Data Model).
type PCB struct {
	PID          PID
	ParentPID    PID
	Status       Status
	Priority     int // 0, 1, or 2
	Name         string
	IsBackground bool
	JobID        int
	StopTick     int  // tick at which the job was last stopped, -1 if never
	SleepTicks   int  // remaining sleep ticks, -1 if not sleeping
	Blocking     bool // true while this PCB's parent is waiting on it

	Children      []PID
	StatusChanges []PID // children whose status changed since the parent last looked

	// FDTable maps this process's local fd numbers to the global
	// open-file-table slot indices it has open (spec §3: "per-process
	// FD table").
	FDTable map[int]int

	// run is the scheduler baton: sent to hand this PCB's goroutine the
	// CPU for one quantum. The matching "handed back" signal travels on
	// the scheduler's own shared runningDone channel, not a per-PCB one,
	// since only one PCB is ever running at a time.
	run chan struct{}

	// CommandLine is the literal argv this process was spawned with,
	// used only for job-control announcements ("[1]+ done sleep 5").
	CommandLine string
}

func newPCB(pid, parentPID PID, name string, background bool) *PCB {
	return &PCB{
		PID:          pid,
		ParentPID:    parentPID,
		Status:       StatusRunning,
		Priority:     1,
		Name:         name,
		IsBackground: background,
		StopTick:     -1,
		SleepTicks:   -1,
		Blocking:     !background,
		FDTable:      map[int]int{0: 0, 1: 1, 2: 2},
		run:          make(chan struct{}),
	}
}

// PSLine formats this PCB the way spec §6's `ps` builtin prints a row.
func (p *PCB) PSLine() string {
	return fmt.Sprintf("%d\t%d\t%d\t%s\t%s\n", p.PID, p.ParentPID, p.Priority, p.Status, p.Name)
}
