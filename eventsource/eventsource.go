// Package eventsource is the Event-Source client boundary (spec.md §6):
// guildsync only ever reads a member's public profile through it (to link an
// identity and to render the linked-account embed); the sync task that
// ingests event series from the Event-Source is explicitly out of scope
// (spec.md §1 Non-goals), so this package is interface-only.
package eventsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/guildsync/guildsync/domain"
)

// Client resolves an Event-Source (Meetup-like) member account.
type Client interface {
	// GetMemberProfile fetches the public profile for a member id.
	// Returns domain.ErrRemoteNotFound if the account doesn't exist.
	GetMemberProfile(ctx context.Context, memberID string) (*domain.Profile, error)
}

// Fake is an in-memory Client used by the identity and commands tests.
type Fake struct {
	Profiles map[string]*domain.Profile
}

// NewFake returns a Fake with no registered members.
func NewFake() *Fake {
	return &Fake{Profiles: map[string]*domain.Profile{}}
}

func (f *Fake) GetMemberProfile(ctx context.Context, memberID string) (*domain.Profile, error) {
	p, ok := f.Profiles[memberID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", memberID, domain.ErrRemoteNotFound)
	}
	return p, nil
}

var _ Client = (*Fake)(nil)

// IsNotFound reports whether err indicates the member id doesn't exist
// remotely, as opposed to a transport/upstream failure.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrRemoteNotFound)
}
