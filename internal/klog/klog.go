// Package klog is the kernel's append-only event log (spec §6 "Kernel
// log file"). One physical write per event, synchronously, the same
// fixed-column wire format the original k_write_log produced.
package klog

import (
	"fmt"
	"os"
	"sync"
)

// Event is one of the kernel log event kinds named in spec §6.
type Event string

const (
	Create    Event = "CREATE"
	Schedule  Event = "SCHEDULE"
	Signaled  Event = "SIGNALED"
	Stopped   Event = "STOPPED"
	Continued Event = "CONTINUED"
	Exited    Event = "EXITED"
	Zombie    Event = "ZOMBIE"
	Orphan    Event = "ORPHAN"
	Waited    Event = "WAITED"
	Blocked   Event = "BLOCKED"
	Unblocked Event = "UNBLOCKED"
	Nice      Event = "NICE"
)

// Logger appends formatted event lines to a single host file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if necessary) the log file at path for append.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f}, nil
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Log writes "[tick] EVENT pid priority name" per spec §6.
func (l *Logger) Log(tick int, evt Event, pid int, priority int, name string) {
	l.writeLine(fmt.Sprintf("[%3d]\t%-9s\t%d\t%d\t%-15s\n", tick, evt, pid, priority, name))
}

// LogNice writes the NICE variant, which additionally carries the old
// and new priority.
func (l *Logger) LogNice(tick int, pid int, oldPriority, newPriority int, name string) {
	l.writeLine(fmt.Sprintf("[%3d]\t%-9s\t%d\t%d\t%d\t%-15s\n", tick, Nice, pid, oldPriority, newPriority, name))
}

func (l *Logger) writeLine(line string) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Best effort: a failed log write must never take down the
	// scheduler (spec §7 "the scheduler never terminates on task
	// failures").
	_, _ = l.file.WriteString(line)
}
