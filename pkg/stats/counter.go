package stats

import "sync/atomic"

type Counter struct {
	tag   string
	count uint64
}

func NewCounter(tag string) Counter {
	return Counter{
		tag:   tag,
		count: 0,
	}
}

func (c *Counter) Incr() {
	c.count += 1
}

func (c *Counter) Add(n uint64) {
	c.count += n
}

func (c *Counter) GetCount() uint64 {
	return c.count
}

type AtomicCounter struct {
	tag   string
	count uint64
}

func NewAtomicCounter(tag string) AtomicCounter {
	return AtomicCounter{
		tag:   tag,
		count: 0,
	}
}

func (c *AtomicCounter) Incr() {
	atomic.AddUint64(&c.count, 1)
}

func (c *AtomicCounter) Add(n uint64) {
	atomic.AddUint64(&c.count, n)
}

func (c *AtomicCounter) GetCount() uint64 {
	return atomic.LoadUint64(&c.count)
}
