package queue

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestJobsRunAndReportErrors(t *testing.T) {
	rqm := NewRequestQueueManager(4, 2)
	defer rqm.Shutdown()

	var ran atomic.Int32
	expected := errors.New("boom")

	for i := 0; i < 5; i++ {
		errc := make(chan error, 1)
		fail := i == 3
		rqm.EnqueueJob(Job{
			Fn: func() error {
				ran.Add(1)
				if fail {
					return expected
				}
				return nil
			},
			Errc: errc,
		})

		err := <-errc
		if fail && !errors.Is(err, expected) {
			t.Fatalf("expected job error, got %v", err)
		}
		if !fail && err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ran.Load() != 5 {
		t.Fatalf("expected 5 jobs to run, got %d", ran.Load())
	}
}

func TestPanickingJobKeepsWorkerAlive(t *testing.T) {
	rqm := NewRequestQueueManager(1, 1)
	defer rqm.Shutdown()

	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { panic("bad handler") }, Errc: errc})
	if err := <-errc; err == nil {
		t.Fatal("expected panic to surface as an error")
	}

	rqm.EnqueueJob(Job{Fn: func() error { return nil }, Errc: errc})
	if err := <-errc; err != nil {
		t.Fatalf("expected worker to keep serving, got %v", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	rqm := NewRequestQueueManager(0, 1)
	rqm.Shutdown()
	rqm.Shutdown()
}

func TestTryEnqueueJobDoesNotBlock(t *testing.T) {
	rqm := NewRequestQueueManager(1, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	if !rqm.TryEnqueueJob(Job{Fn: func() error {
		close(started)
		<-release
		return nil
	}}) {
		t.Fatal("expected first job to be accepted")
	}
	<-started

	if !rqm.TryEnqueueJob(Job{Fn: func() error { return nil }}) {
		t.Fatal("expected job to fill the free slot")
	}
	if rqm.TryEnqueueJob(Job{Fn: func() error { return nil }}) {
		t.Fatal("expected full queue to refuse the job")
	}

	close(release)
	rqm.Shutdown()

	if rqm.TryEnqueueJob(Job{Fn: func() error { return nil }}) {
		t.Fatal("expected shut down queue to refuse the job")
	}
}
