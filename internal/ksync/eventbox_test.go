package ksync

import (
	"testing"
	"time"
)

// Scheduler event kinds exercised by the test below.
const (
	EvtTick EventKind = iota
	EvtWaitWoken
	EvtSignal
)

func TestEventBox(t *testing.T) {
	eb := NewEventBox()

	ch := make(chan bool)

	go func() {
		eb.Set(EvtTick, 10)
		ch <- true
		<-ch
		eb.Set(EvtWaitWoken, 10)
		eb.Set(EvtWaitWoken, 15)
		eb.Set(EvtWaitWoken, 20)
		eb.Set(EvtSignal, 30)
		ch <- true
		<-ch
		eb.Set(EvtSignal, 40)
		ch <- true
		<-ch
	}()

	count := 0
	sum := 0
	looping := true
	for looping {
		<-ch
		eb.Wait(func(events *Events) {
			for _, value := range *events {
				if val, ok := value.(int); ok {
					sum += val
					looping = sum < 100
				}
			}
			events.Clear()
		})
		ch <- true
		count++
	}

	if count != 3 {
		t.Error("invalid number of events", count)
	}
	if sum != 100 {
		t.Error("invalid sum", sum)
	}
}

func TestEventBoxWatchUnwatch(t *testing.T) {
	eb := NewEventBox()
	eb.Unwatch(EvtTick)

	ready := make(chan struct{})
	woke := make(chan struct{}, 1)
	go func() {
		eb.Wait(func(events *Events) {
			close(ready)
		})
		woke <- struct{}{}
	}()

	// Give the goroutine a chance to block inside cond.Wait() on the
	// empty event set before we post anything.
	time.Sleep(10 * time.Millisecond)

	eb.Set(EvtTick, 1) // ignored: must not broadcast
	select {
	case <-woke:
		t.Fatal("Wait should not have woken while EvtTick is unwatched")
	case <-time.After(20 * time.Millisecond):
	}

	eb.Watch(EvtTick)
	eb.Set(EvtTick, 2) // now broadcasts
	<-woke
	<-ready
}
