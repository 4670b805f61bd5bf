// Package clock abstracts deferred execution so reconnect delays and
// display-grace removals can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	// AfterFunc runs f on its own goroutine after d elapses. The returned
	// Timer cancels the run if it has not fired yet.
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	// Stop cancels the pending run. It reports whether the cancel landed
	// before the function fired.
	Stop() bool
}

// Real delegates to the runtime timer wheel.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	fake    *Fake
	due     time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTask{fake: f, due: f.now + d, seq: f.seq, f: fn}
	f.tasks = append(f.tasks, t)
	return t
}

func (t *fakeTask) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the fake time forward and fires every due task in schedule
// order. Tasks run without the internal lock held, so they may schedule
// follow-up tasks, which fire too if they fall within the advance window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		task := f.nextDue(target)
		if task == nil {
			break
		}
		task.f()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// PendingCount reports how many tasks are armed and unfired.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (f *Fake) nextDue(target time.Duration) *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []*fakeTask
	for _, t := range f.tasks {
		if !t.fired && !t.stopped && t.due <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	next := due[0]
	next.fired = true
	if next.due > f.now {
		f.now = next.due
	}
	return next
}
