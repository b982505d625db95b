package worker

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"sync"
)

// ResultCallback is invoked after a removal finishes (from a worker goroutine).
type ResultCallback func(path string, err error)

// Pool is a fixed-size pool that deletes temporary files off the caller's path.
// Removals that don't fit in the queue run on their own goroutine so nothing
// is ever dropped.
type Pool struct {
	jobs     chan job
	wg       sync.WaitGroup
	overflow sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type job struct {
	path string
	cb   ResultCallback
}

// New creates a pool with size workers and a queue of the same depth. Size
// defaults to 1 when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, size)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				run(j)
			}
		}()
	}
}

// Remove schedules path for deletion and returns immediately. A missing file
// counts as success. After Close the removal runs synchronously.
func (p *Pool) Remove(path string, cb ResultCallback) {
	j := job{path: path, cb: cb}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		run(j)
		return
	}

	select {
	case p.jobs <- j:
	default:
		p.overflow.Add(1)
		go func() {
			defer p.overflow.Done()
			run(j)
		}()
	}
}

// Close stops the pool after draining queued and in-flight removals.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.overflow.Wait()
}

func run(j job) {
	err := os.Remove(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	if err != nil {
		log.Printf("Worker: failed to remove %s: %v", j.path, err)
	}
	if j.cb != nil {
		j.cb(j.path, err)
	}
}
