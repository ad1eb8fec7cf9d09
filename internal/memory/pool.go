package memory

import (
	"sync"
)

// Pool keeps a bounded number of float64 scratch buffers for reuse.
type Pool struct {
	bufs    [][]float64
	maxSize int
	hits    int64
	misses  int64
	mu      sync.Mutex
}

func NewPool(maxSize int) *Pool {
	return &Pool{
		bufs:    make([][]float64, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get returns a buffer of length n, reusing a pooled one with enough
// capacity when available.
func (p *Pool) Get(n int) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.bufs) - 1; i >= 0; i-- {
		if cap(p.bufs[i]) >= n {
			buf := p.bufs[i][:n]
			p.bufs = append(p.bufs[:i], p.bufs[i+1:]...)
			p.hits++
			return buf
		}
	}
	p.misses++
	return make([]float64, n)
}

// Put returns buf to the pool. It reports false when the pool is full.
func (p *Pool) Put(buf []float64) bool {
	if buf == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.bufs) >= p.maxSize {
		return false
	}
	p.bufs = append(p.bufs, buf[:0])
	return true
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bufs)
}

// Counters returns pool hits and misses.
func (p *Pool) Counters() (int64, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

// Cleanup empties the pool and returns how many buffers were dropped.
func (p *Pool) Cleanup() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := len(p.bufs)
	p.bufs = p.bufs[:0]
	return count
}
