/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/sourcegraph/conc"
)

// Subscriber is one open display connection. Implementations must be
// pointer types, as the registry tracks subscribers by identity.
type Subscriber interface {
	Send(Notification) error
}

// ConnectionRegistry tracks live display subscribers and fans notifications
// out to them, pruning any subscriber whose send fails.
type ConnectionRegistry struct {
	cfg     *Config
	metrics *metrics

	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
}

func newConnectionRegistry(cfg *Config, m *metrics) *ConnectionRegistry {
	return &ConnectionRegistry{
		cfg:         cfg,
		metrics:     m,
		subscribers: make(map[Subscriber]struct{}),
	}
}

func (r *ConnectionRegistry) Register(s Subscriber) Subscriber {
	r.mu.Lock()
	r.subscribers[s] = struct{}{}
	r.mu.Unlock()

	return s
}

// Unregister is safe to call more than once for the same subscriber.
func (r *ConnectionRegistry) Unregister(s Subscriber) {
	r.mu.Lock()
	delete(r.subscribers, s)
	r.mu.Unlock()
}

func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscribers)
}

func (r *ConnectionRegistry) snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscriber, 0, len(r.subscribers))
	for s := range r.subscribers {
		subs = append(subs, s)
	}

	return subs
}

// SendOne delivers n to a single subscriber. Unlike Broadcast, failures are
// returned rather than pruned.
func (r *ConnectionRegistry) SendOne(s Subscriber, n Notification) error {
	return deliver(s, n)
}

// Broadcast delivers n to every subscriber registered when the call starts,
// and returns once every delivery has finished and every subscriber that
// failed has been unregistered. It reports how many deliveries succeeded.
func (r *ConnectionRegistry) Broadcast(n Notification) int {
	subs := r.snapshot()

	var (
		mu     sync.Mutex
		failed = make(map[Subscriber]error)
		wg     conc.WaitGroup
	)

	for _, s := range subs {
		s := s
		wg.Go(func() {
			if err := deliver(s, n); err != nil {
				mu.Lock()
				failed[s] = err
				mu.Unlock()
			}
		})
	}

	wg.Wait()

	for s, err := range failed {
		r.Unregister(s)
		r.metrics.subscriberPruned()

		logf(r.cfg, "DISPLAY: Dropped %s after failed %s notification: %v", subscriberName(s), n.Kind, err)
	}

	r.metrics.notificationSent(n.Kind, len(subs)-len(failed))

	return len(subs) - len(failed)
}

// CloseAll closes every subscriber that can be closed and empties the registry.
func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s := range r.subscribers {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
		delete(r.subscribers, s)
	}
}

// deliver turns both send errors and panics into ErrSubscriberSend.
func deliver(s Subscriber, n Notification) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSubscriberSend, p)
		}
	}()

	if err := s.Send(n); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscriberSend, err)
	}

	return nil
}

func subscriberName(s Subscriber) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}

	return fmt.Sprintf("%T(%p)", s, s)
}
