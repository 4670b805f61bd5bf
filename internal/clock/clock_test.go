package clock

import (
	"testing"
	"time"
)

func TestFakeFiresInScheduleOrder(t *testing.T) {
	f := NewFake()
	var got []string
	f.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	f.AfterFunc(time.Second, func() { got = append(got, "a") })
	f.AfterFunc(3*time.Second, func() { got = append(got, "c") })

	f.Advance(2 * time.Second)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("want [a b], got %v", got)
	}
	if f.PendingCount() != 1 {
		t.Fatalf("want 1 pending, got %d", f.PendingCount())
	}

	f.Advance(time.Second)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("want [a b c], got %v", got)
	}
}

func TestFakeStopPreventsFire(t *testing.T) {
	f := NewFake()
	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatalf("first Stop should report cancellation")
	}
	if timer.Stop() {
		t.Fatalf("second Stop should report already stopped")
	}

	f.Advance(5 * time.Second)
	if fired {
		t.Fatalf("stopped task fired")
	}
}

func TestFakeChainedTasksFireWithinWindow(t *testing.T) {
	f := NewFake()
	var got []string
	f.AfterFunc(time.Second, func() {
		got = append(got, "first")
		f.AfterFunc(time.Second, func() { got = append(got, "second") })
	})

	f.Advance(3 * time.Second)
	if len(got) != 2 || got[1] != "second" {
		t.Fatalf("chained task did not fire: %v", got)
	}
}
