package analysis

import "sync"

// pool runs jobs on at most size goroutines. A size of one runs every job
// inline on the caller goroutine.
type pool struct {
	size      int
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	return &pool{
		size:      size,
		semaphore: make(chan struct{}, size),
	}
}

// Submit blocks while every worker is busy.
func (p *pool) Submit(job func()) {
	if p.size == 1 {
		job()
		return
	}

	p.wg.Add(1)
	p.semaphore <- struct{}{}
	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (p *pool) Wait() {
	p.wg.Wait()
}
