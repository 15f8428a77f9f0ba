package main

import (
	"strings"
	"sync"
	"sync/atomic"
)

// ClaimState is a point-in-time view of the shield.
type ClaimState struct {
	Claimed bool
	Name    string
}

// ClaimCoordinator owns the single-use claim state. Claim, Reset and Join are
// serialized so every subscriber observes transitions in the order they were
// applied; Status never blocks on them.
type ClaimCoordinator struct {
	cfg      *Config
	metrics  *metrics
	registry *ConnectionRegistry

	mu      sync.Mutex
	claimed atomic.Pointer[string]
}

func newClaimCoordinator(cfg *Config, registry *ConnectionRegistry, m *metrics) *ClaimCoordinator {
	return &ClaimCoordinator{
		cfg:      cfg,
		metrics:  m,
		registry: registry,
	}
}

func (c *ClaimCoordinator) Status() ClaimState {
	name := c.claimed.Load()
	if name == nil {
		return ClaimState{}
	}

	return ClaimState{Claimed: true, Name: *name}
}

// Claim stores the trimmed candidate name if nobody has claimed the shield
// yet, then notifies every display before returning.
func (c *ClaimCoordinator) Claim(candidate string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current := c.claimed.Load(); current != nil {
		c.metrics.claimAttempt(claimResultTaken)

		return "", &AlreadyClaimedError{Name: *current}
	}

	name := strings.TrimSpace(candidate)
	if name == "" {
		c.metrics.claimAttempt(claimResultInvalid)

		return "", ErrInvalidName
	}

	c.claimed.Store(&name)
	c.metrics.claimAttempt(claimResultWon)

	delivered := c.registry.Broadcast(claimedNotification(name))

	logf(c.cfg, "CLAIM: Shield claimed by %q, notified %d display(s)", name, delivered)

	return name, nil
}

// Reset clears any claim and notifies every display. Resetting an unclaimed
// shield still broadcasts.
func (c *ClaimCoordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.claimed.Swap(nil)
	c.metrics.reset()

	delivered := c.registry.Broadcast(resetNotification())

	if previous != nil {
		logf(c.cfg, "RESET: Cleared claim by %q, notified %d display(s)", *previous, delivered)
	} else {
		logf(c.cfg, "RESET: Shield was already unclaimed, notified %d display(s)", delivered)
	}
}

// Join registers s and greets it with the current status. If the greeting
// cannot be delivered, s is unregistered again and the error returned.
func (c *ClaimCoordinator) Join(s Subscriber) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Register(s)

	if err := c.registry.SendOne(s, statusNotification(c.Status())); err != nil {
		c.registry.Unregister(s)

		return err
	}

	return nil
}

func (c *ClaimCoordinator) Leave(s Subscriber) {
	c.registry.Unregister(s)
}
