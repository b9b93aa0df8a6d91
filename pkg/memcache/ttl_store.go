package memcache

import (
	"container/list"
	"sync"
	"time"
)

// Store is a size-bounded map whose entries expire after a fixed TTL.
// When full, the oldest inserted entry is evicted.
type Store[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	order   *list.List
	data    map[string]*list.Element
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewStore[V any](ttl time.Duration, maxSize int, opts ...Option) *Store[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Store[V]{
		ttl:     ttl,
		maxSize: maxSize,
		order:   list.New(),
		data:    make(map[string]*list.Element),
		now:     o.now,
		stop:    make(chan struct{}),
	}
}

func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)
	if el, ok := s.data[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		s.order.MoveToBack(el)
		return
	}

	for s.order.Len() >= s.maxSize {
		s.removeElement(s.order.Front())
	}
	s.data[key] = s.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	el, ok := s.data[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if s.now().After(e.expiresAt) {
		s.removeElement(el)
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.data[key]; ok {
		s.removeElement(el)
	}
}

func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Sweep drops every expired entry and reports how many were removed.
func (s *Store[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*entry[V]).expiresAt) {
			s.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until Close is called.
func (s *Store[V]) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Store[V]) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store[V]) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	s.order.Remove(el)
	delete(s.data, el.Value.(*entry[V]).key)
}
