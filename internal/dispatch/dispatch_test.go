package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEnqueuePreservesPerChatOrder(t *testing.T) {
	d := New(Options{LaneSize: 128})
	defer d.Close()

	const jobs = 100
	var (
		mu  sync.Mutex
		got []int
	)
	var wg sync.WaitGroup
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		n := i
		if err := d.Enqueue(42, func() {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatalf("enqueue %d: %v", n, err)
		}
	}
	wg.Wait()

	for i, n := range got {
		if n != i {
			t.Fatalf("job %d ran at position %d", n, i)
		}
	}
}

func TestChatsRunConcurrently(t *testing.T) {
	d := New(Options{LaneSize: 8})
	defer d.Close()

	blocked := make(chan struct{})
	release := make(chan struct{})
	if err := d.Enqueue(1, func() {
		close(blocked)
		<-release
	}); err != nil {
		t.Fatalf("enqueue blocker: %v", err)
	}
	<-blocked

	ran := make(chan struct{})
	if err := d.Enqueue(2, func() { close(ran) }); err != nil {
		t.Fatalf("enqueue other chat: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job for other chat was held back by a busy lane")
	}
	close(release)
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	d := New(Options{})
	d.Close()
	if err := d.Enqueue(1, func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestSaturatedLaneDrops(t *testing.T) {
	d := New(Options{LaneSize: 1})
	defer d.Close()

	blocked := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	if err := d.Enqueue(7, func() {
		close(blocked)
		<-release
	}); err != nil {
		t.Fatalf("enqueue blocker: %v", err)
	}
	<-blocked

	// Lane worker is busy; fill the single buffered slot, then overflow.
	if err := d.Enqueue(7, func() {}); err != nil {
		t.Fatalf("enqueue buffered: %v", err)
	}
	if err := d.Enqueue(7, func() {}); !errors.Is(err, ErrLaneFull) {
		t.Fatalf("err = %v, want ErrLaneFull", err)
	}
	if d.DroppedCount() != 1 {
		t.Fatalf("DroppedCount() = %d, want 1", d.DroppedCount())
	}
}

func TestCloseDrainsAcceptedJobs(t *testing.T) {
	d := New(Options{LaneSize: 16})
	var (
		mu    sync.Mutex
		count int
	)
	for i := 0; i < 10; i++ {
		if err := d.Enqueue(3, func() {
			mu.Lock()
			count++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	d.Close()
	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
}

func TestIdleLaneReclaimed(t *testing.T) {
	d := New(Options{LaneSize: 4, IdleTTL: 20 * time.Millisecond})
	defer d.Close()

	done := make(chan struct{})
	if err := d.Enqueue(9, func() { close(done) }); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-done

	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		n := len(d.lanes)
		d.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("lane still alive after idle TTL, lanes = %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A reclaimed chat gets a fresh lane transparently.
	again := make(chan struct{})
	if err := d.Enqueue(9, func() { close(again) }); err != nil {
		t.Fatalf("enqueue after reclaim: %v", err)
	}
	select {
	case <-again:
	case <-time.After(2 * time.Second):
		t.Fatal("job after reclaim never ran")
	}
}
