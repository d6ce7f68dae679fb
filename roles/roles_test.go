package roles_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/roles"
	"github.com/guildsync/guildsync/store"
)

func newFixture(t *testing.T) (*store.Client, *chatplatform.Fake) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return store.New(rdb), chatplatform.NewFake("bot1")
}

func TestPropagateAssignsRSVPdUsers(t *testing.T) {
	s, chat := newFixture(t)
	chat.Members["discord1"] = map[string]bool{}
	ctx := context.Background()

	roleID, err := chat.CreateRole(ctx, "players")
	require.NoError(t, err)

	require.NoError(t, s.SAdd(ctx, store.EventUsersKey("event1"), "meetup1"))
	require.NoError(t, s.Set(ctx, store.MeetupUserDiscordKey("meetup1"), "discord1"))

	require.NoError(t, roles.Propagate(ctx, s, chat, []string{"event1"}, "chan1", roleID, false))

	has, err := chat.HasRole(ctx, "discord1", roleID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestPropagateSkipsManuallyRemovedUsers(t *testing.T) {
	s, chat := newFixture(t)
	ctx := context.Background()

	roleID, err := chat.CreateRole(ctx, "players")
	require.NoError(t, err)

	require.NoError(t, s.SAdd(ctx, store.EventUsersKey("event1"), "meetup1"))
	require.NoError(t, s.Set(ctx, store.MeetupUserDiscordKey("meetup1"), "discord1"))
	require.NoError(t, s.SAdd(ctx, store.ChannelRemovedUsersKey("chan1"), "discord1"))

	require.NoError(t, roles.Propagate(ctx, s, chat, []string{"event1"}, "chan1", roleID, false))

	has, err := chat.HasRole(ctx, "discord1", roleID)
	require.NoError(t, err)
	require.False(t, has, "a manually-removed user must not be re-assigned the role")
}

func TestPropagateHostRoleSuppressedByUserRemoval(t *testing.T) {
	s, chat := newFixture(t)
	ctx := context.Background()

	hostRoleID, err := chat.CreateRole(ctx, "host-players")
	require.NoError(t, err)

	require.NoError(t, s.SAdd(ctx, store.EventHostsKey("event1"), "meetup1"))
	require.NoError(t, s.Set(ctx, store.MeetupUserDiscordKey("meetup1"), "discord1"))
	// Removed as a plain user (not explicitly as a host) - still suppresses
	// the host role per the asymmetric suppression rule.
	require.NoError(t, s.SAdd(ctx, store.ChannelRemovedUsersKey("chan1"), "discord1"))

	require.NoError(t, roles.Propagate(ctx, s, chat, []string{"event1"}, "chan1", hostRoleID, true))

	has, err := chat.HasRole(ctx, "discord1", hostRoleID)
	require.NoError(t, err)
	require.False(t, has)
}

func TestPropagateGameMasterRoleNoopWhenUnconfigured(t *testing.T) {
	s, chat := newFixture(t)
	ctx := context.Background()
	require.NoError(t, roles.PropagateGameMaster(ctx, s, chat, []string{"event1"}, ""))
}
