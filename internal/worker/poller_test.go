package worker

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerRunsJobUntilStopped(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller(time.Second, nil)
	p.Start(func() { runs.Add(1) })

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	<-p.Stop().Done()
	if runs.Load() == 0 {
		t.Fatal("job never ran")
	}

	after := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job ran after stop: %d -> %d", after, runs.Load())
	}
}

type registrar struct{ registered, removed bool }

func (r *registrar) RegisterHandlers() func() {
	r.registered = true
	return func() { r.removed = true }
}

func TestStartNotificationWorker(t *testing.T) {
	r := &registrar{}
	stop := StartNotificationWorker(r)
	if !r.registered {
		t.Fatal("handlers not registered")
	}
	stop()
	if !r.removed {
		t.Fatal("handlers not removed")
	}
	StartNotificationWorker(nil)()
}
