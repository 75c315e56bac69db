package async

import (
	"log/slog"
	"sync"
)

// Pool is a bounded worker pool for fire-and-forget tasks. Callers submit
// and return immediately; completion happens on a pool goroutine.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New starts workers goroutines draining a queue of the given depth.
func New(workers, depth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{tasks: make(chan func(), depth)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		run(task)
	}
}

// run isolates a single task so a panic never takes down the pool.
func run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("async task panicked", "panic", r)
		}
	}()
	task()
}

// Submit enqueues the task without blocking. It returns false when the queue
// is saturated or the pool has shut down.
func (p *Pool) Submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown stops intake and waits for in-flight tasks to finish. Safe to
// call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
