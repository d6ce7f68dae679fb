package identity_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/domain"
	"github.com/guildsync/guildsync/eventsource"
	"github.com/guildsync/guildsync/identity"
	"github.com/guildsync/guildsync/store"
)

type fakeLinkURLGenerator struct{ url string }

func (f *fakeLinkURLGenerator) GenerateLinkURL(ctx context.Context, discordUserID string) (string, error) {
	return f.url, nil
}

func newTestLinker(t *testing.T) (*identity.Linker, *eventsource.Fake) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	events := eventsource.NewFake()
	events.Profiles["meetup1"] = &domain.Profile{Name: "Alice", PhotoURL: "https://example.com/a.png"}

	return identity.New(store.New(rdb), events, &fakeLinkURLGenerator{url: "https://link.example/abc"}), events
}

func TestLinkIssuesURLWhenUnlinked(t *testing.T) {
	l, _ := newTestLinker(t)
	ctx := context.Background()

	status, profile, url, err := l.Link(ctx, "discord1")
	require.NoError(t, err)
	require.Equal(t, identity.LinkStatusURLIssued, status)
	require.Nil(t, profile)
	require.Equal(t, "https://link.example/abc", url)
}

func TestLinkOrganizerBindsFreshPair(t *testing.T) {
	l, _ := newTestLinker(t)
	ctx := context.Background()

	result, profile, _, err := l.LinkOrganizer(ctx, "discord1", "meetup1")
	require.NoError(t, err)
	require.Equal(t, identity.LinkOrganizerBound, result)
	require.NotNil(t, profile)
	require.Equal(t, "Alice", profile.Name)

	status, _, existing, err := l.Link(ctx, "discord1")
	require.ErrorIs(t, err, domain.ErrAlreadyLinkedSelf)
	require.Equal(t, identity.LinkStatusAlreadyLinked, status)
	require.Equal(t, "meetup1", existing)
}

func TestLinkOrganizerRejectsSecondDiscordAccountForSameMeetupID(t *testing.T) {
	l, _ := newTestLinker(t)
	ctx := context.Background()

	_, _, _, err := l.LinkOrganizer(ctx, "discord1", "meetup1")
	require.NoError(t, err)

	result, _, conflictingDiscordID, err := l.LinkOrganizer(ctx, "discord2", "meetup1")
	require.ErrorIs(t, err, domain.ErrAlreadyLinkedOther)
	require.Equal(t, identity.LinkOrganizerMeetupTaken, result)
	require.Equal(t, "discord1", conflictingDiscordID)
}

func TestLinkOrganizerAlreadySelfIsIdempotent(t *testing.T) {
	l, _ := newTestLinker(t)
	ctx := context.Background()

	_, _, _, err := l.LinkOrganizer(ctx, "discord1", "meetup1")
	require.NoError(t, err)

	result, _, _, err := l.LinkOrganizer(ctx, "discord1", "meetup1")
	require.ErrorIs(t, err, domain.ErrAlreadyLinkedSelf)
	require.Equal(t, identity.LinkOrganizerAlreadySelf, result)
}

func TestUnlinkRemovesBothDirections(t *testing.T) {
	l, _ := newTestLinker(t)
	ctx := context.Background()

	_, _, _, err := l.LinkOrganizer(ctx, "discord1", "meetup1")
	require.NoError(t, err)

	wasLinked, err := l.Unlink(ctx, "discord1")
	require.NoError(t, err)
	require.True(t, wasLinked)

	wasLinked, err = l.Unlink(ctx, "discord1")
	require.NoError(t, err)
	require.False(t, wasLinked)

	// The meetup side is free again, so another Discord account can bind it.
	result, _, _, err := l.LinkOrganizer(ctx, "discord2", "meetup1")
	require.NoError(t, err)
	require.Equal(t, identity.LinkOrganizerBound, result)
}
