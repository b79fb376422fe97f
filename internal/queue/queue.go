package queue

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	wg         sync.WaitGroup
	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
}

func NewRequestQueueManager(queueSize int, maxWorkers int) *RequestQueueManager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			log.Debug().Int("worker", workerID).Msg("queue worker started")
			for job := range rqm.JobQueue {
				err := run(job.Fn)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			log.Debug().Int("worker", workerID).Msg("queue worker stopped")
		}(i)
	}
}

// run keeps a panicking handler from taking the worker down with it.
func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("queue job panicked")
			err = fmt.Errorf("queue job panicked: %v", r)
		}
	}()
	return fn()
}

func (rqm *RequestQueueManager) EnqueueJob(job Job) {
	rqm.JobQueue <- job
}

// TryEnqueueJob queues job without blocking. It reports false when the queue
// is full or already shut down.
func (rqm *RequestQueueManager) TryEnqueueJob(job Job) bool {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		return false
	}

	select {
	case rqm.JobQueue <- job:
		return true
	default:
		return false
	}
}

// Depth reports the number of jobs waiting for a worker.
func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

func (rqm *RequestQueueManager) Shutdown() {
	rqm.closeOnce.Do(func() {
		rqm.mu.Lock()
		rqm.closed = true
		close(rqm.JobQueue)
		rqm.mu.Unlock()
	})
	rqm.wg.Wait()
}
