package snapshot

import (
	"sync"
	"sync/atomic"
)

// Publisher hands the latest snapshot from the simulation goroutine to any
// number of readers. Publish is last-writer-wins: readers that fall behind
// skip intermediate snapshots and never block the writer.
type Publisher struct {
	latest  atomic.Pointer[Snapshot]
	updates chan struct{}

	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewPublisher seeds the publisher with initial so Latest is never nil.
func NewPublisher(initial *Snapshot) *Publisher {
	if initial == nil {
		initial = &Snapshot{}
	}
	p := &Publisher{
		updates: make(chan struct{}, 1),
		subs:    make(map[int]chan struct{}),
	}
	p.latest.Store(initial)
	return p
}

// Publish replaces the current snapshot and signals waiting readers.
func (p *Publisher) Publish(s *Snapshot) {
	if s == nil {
		return
	}
	p.latest.Store(s)
	signal(p.updates)

	p.mu.Lock()
	for _, ch := range p.subs {
		signal(ch)
	}
	p.mu.Unlock()
}

func (p *Publisher) Latest() *Snapshot {
	return p.latest.Load()
}

// Updates receives a value when at least one snapshot has been published
// since the last receive. It is shared by all callers; use Subscribe for an
// independent stream.
func (p *Publisher) Updates() <-chan struct{} {
	return p.updates
}

// Subscribe returns a coalescing notification channel of its own and a
// function that releases it.
func (p *Publisher) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
