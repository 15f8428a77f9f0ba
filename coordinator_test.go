package main

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCoordinator() (*ClaimCoordinator, *ConnectionRegistry) {
	cfg := &Config{}
	registry := newConnectionRegistry(cfg, nil)

	return newClaimCoordinator(cfg, registry, nil), registry
}

func TestClaimCoordinator_Starts_Unclaimed(t *testing.T) {
	coord, _ := newTestCoordinator()

	require.Equal(t, ClaimState{}, coord.Status())
}

func TestClaimCoordinator_Claim_Trims_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	viewer := &fakeSubscriber{}
	registry.Register(viewer)

	name, err := coord.Claim("  Bob ")

	req.NoError(err)
	req.Equal("Bob", name)
	req.Equal(ClaimState{Claimed: true, Name: "Bob"}, coord.Status())

	// Delivery has finished by the time Claim returns
	req.Equal([]Notification{{Kind: KindClaimed, Name: "Bob"}}, viewer.Received())
}

func TestClaimCoordinator_Claim_Rejects_Blank_Names(t *testing.T) {
	for _, candidate := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", candidate), func(t *testing.T) {
			req := require.New(t)
			coord, registry := newTestCoordinator()
			viewer := &fakeSubscriber{}
			registry.Register(viewer)

			_, err := coord.Claim(candidate)

			req.ErrorIs(err, ErrInvalidName)
			req.Equal(ClaimState{}, coord.Status())
			req.Empty(viewer.Received())
		})
	}
}

func TestClaimCoordinator_Claim_First_Wins(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	viewer := &fakeSubscriber{}
	registry.Register(viewer)

	_, err := coord.Claim("Ann")
	req.NoError(err)

	_, err = coord.Claim("Bob")

	var taken *AlreadyClaimedError
	req.ErrorAs(err, &taken)
	req.Equal("Ann", taken.Name)
	req.ErrorIs(err, ErrAlreadyClaimed)
	req.Equal(ClaimState{Claimed: true, Name: "Ann"}, coord.Status())

	// Only the winning claim is broadcast
	req.Len(viewer.Received(), 1)
}

func TestClaimCoordinator_Claim_Already_Claimed_Before_Validation(t *testing.T) {
	coord, _ := newTestCoordinator()

	_, err := coord.Claim("Ann")
	require.NoError(t, err)

	_, err = coord.Claim("   ")

	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestClaimCoordinator_Reset_Starts_New_Round(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	viewer := &fakeSubscriber{}
	registry.Register(viewer)

	_, err := coord.Claim("Bob")
	req.NoError(err)

	coord.Reset()

	req.Equal(ClaimState{}, coord.Status())

	name, err := coord.Claim("Ann")
	req.NoError(err)
	req.Equal("Ann", name)

	req.Equal([]Notification{
		{Kind: KindClaimed, Name: "Bob"},
		{Kind: KindReset},
		{Kind: KindClaimed, Name: "Ann"},
	}, viewer.Received())
}

func TestClaimCoordinator_Reset_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	viewer := &fakeSubscriber{}
	registry.Register(viewer)

	coord.Reset()
	coord.Reset()

	req.Equal(ClaimState{}, coord.Status())
	req.Equal([]Notification{{Kind: KindReset}, {Kind: KindReset}}, viewer.Received())
}

func TestClaimCoordinator_Claim_Prunes_Dead_Viewers(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	alive := &fakeSubscriber{}
	dead := &fakeSubscriber{err: errors.New("closed")}
	registry.Register(alive)
	registry.Register(dead)

	_, err := coord.Claim("Ann")

	req.NoError(err)
	req.Equal(1, registry.Len())
	req.Len(alive.Received(), 1)
}

func TestClaimCoordinator_Join_Greets_With_Status(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()

	early := &fakeSubscriber{}
	req.NoError(coord.Join(early))
	req.Equal([]Notification{{Kind: KindStatus}}, early.Received())

	_, err := coord.Claim("Ann")
	req.NoError(err)

	// A late joiner sees a status snapshot, not the claimed event
	late := &fakeSubscriber{}
	req.NoError(coord.Join(late))
	req.Equal([]Notification{{Kind: KindStatus, Name: "Ann"}}, late.Received())

	req.Equal(2, registry.Len())
}

func TestClaimCoordinator_Join_Failure_Unregisters(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()

	err := coord.Join(&fakeSubscriber{err: errors.New("closed")})

	req.ErrorIs(err, ErrSubscriberSend)
	req.Equal(0, registry.Len())
}

func TestClaimCoordinator_Leave(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	viewer := &fakeSubscriber{}

	req.NoError(coord.Join(viewer))
	coord.Leave(viewer)
	coord.Leave(viewer)

	req.Equal(0, registry.Len())
}

func TestClaimCoordinator_Concurrent_Claims_Have_One_Winner(t *testing.T) {
	req := require.New(t)
	coord, registry := newTestCoordinator()
	viewer := &fakeSubscriber{}
	registry.Register(viewer)

	const contenders = 64

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  []string
	)

	for i := 0; i < contenders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			name, err := coord.Claim(fmt.Sprintf("player-%d", i))

			mu.Lock()
			defer mu.Unlock()

			var taken *AlreadyClaimedError
			switch {
			case err == nil:
				winners = append(winners, name)
			case errors.As(err, &taken):
				losers = append(losers, taken.Name)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	req.Len(winners, 1)
	req.Len(losers, contenders-1)
	for _, name := range losers {
		req.Equal(winners[0], name)
	}
	req.Equal(ClaimState{Claimed: true, Name: winners[0]}, coord.Status())
	req.Equal([]Notification{{Kind: KindClaimed, Name: winners[0]}}, viewer.Received())
}
