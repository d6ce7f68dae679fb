package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/admin"
	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/store"
)

func newFixture(t *testing.T) (*store.Client, *chatplatform.Fake, *admin.Admin) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := store.New(rdb)
	chat := chatplatform.NewFake("bot1")
	return s, chat, admin.New(s, chat, 24*time.Hour)
}

func setUpControlledChannel(t *testing.T, ctx context.Context, s *store.Client, chat *chatplatform.Fake, channelID string) (roleID, hostRoleID string) {
	t.Helper()
	roleID, err := chat.CreateRole(ctx, "players")
	require.NoError(t, err)
	hostRoleID, err = chat.CreateRole(ctx, "hosts")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.ChannelRoleKey(channelID), roleID))
	require.NoError(t, s.Set(ctx, store.ChannelHostRoleKey(channelID), hostRoleID))
	return roleID, hostRoleID
}

func TestGetChannelRolesExternalWhenNeitherKeySet(t *testing.T) {
	s, _, _ := newFixture(t)
	ctx := context.Background()
	_, status, err := admin.GetChannelRoles(ctx, s, "chan1")
	require.NoError(t, err)
	require.Equal(t, admin.ChannelExternal, status)
}

func TestGetChannelRolesSchemaViolationWhenOnlyOneKeySet(t *testing.T) {
	s, _, _ := newFixture(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, store.ChannelRoleKey("chan1"), "role1"))
	_, _, err := admin.GetChannelRoles(ctx, s, "chan1")
	require.Error(t, err)
}

func TestAddUserGrantsRole(t *testing.T) {
	s, chat, a := newFixture(t)
	ctx := context.Background()
	roleID, _ := setUpControlledChannel(t, ctx, s, chat, "chan1")
	chat.Channels["chan1"] = chatplatform.ChannelInfo{ID: "chan1"}

	require.NoError(t, a.AddOrRemoveUser(ctx, "chan1", "user1", true, false))

	has, err := chat.HasRole(ctx, "user1", roleID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestRemoveHostDoesNotSuppressPlayerRole(t *testing.T) {
	// Preserves original_source's documented asymmetry (spec.md §9 Open
	// Question): removing a user *as host only* records them in
	// removed_hosts but never removed_users, so roles.Propagate will still
	// re-assign them the plain player role on the next sync.
	s, chat, a := newFixture(t)
	ctx := context.Background()
	setUpControlledChannel(t, ctx, s, chat, "chan1")
	chat.Channels["chan1"] = chatplatform.ChannelInfo{ID: "chan1"}

	require.NoError(t, a.AddOrRemoveUser(ctx, "chan1", "user1", false, true))

	removedHosts, err := s.SMembers(ctx, store.ChannelRemovedHostsKey("chan1"))
	require.NoError(t, err)
	require.Contains(t, removedHosts, "user1")

	removedUsers, err := s.SMembers(ctx, store.ChannelRemovedUsersKey("chan1"))
	require.NoError(t, err)
	require.NotContains(t, removedUsers, "user1")
}

func TestCloseChannelSchedulesDeletion(t *testing.T) {
	s, chat, a := newFixture(t)
	ctx := context.Background()
	setUpControlledChannel(t, ctx, s, chat, "chan1")

	scheduled, alreadyMarked, notYetCloseable, err := a.CloseChannel(ctx, "chan1")
	require.NoError(t, err)
	require.True(t, scheduled)
	require.False(t, alreadyMarked)
	require.False(t, notYetCloseable)
}

func TestCloseChannelRefusesBeforeExpiration(t *testing.T) {
	s, chat, a := newFixture(t)
	ctx := context.Background()
	setUpControlledChannel(t, ctx, s, chat, "chan1")
	require.NoError(t, s.Set(ctx, store.ChannelExpirationKey("chan1"), time.Now().Add(time.Hour).UTC().Format(time.RFC3339)))

	_, _, notYetCloseable, err := a.CloseChannel(ctx, "chan1")
	require.NoError(t, err)
	require.True(t, notYetCloseable)
}

func TestSendWelcomeMessageSendsTwoParts(t *testing.T) {
	_, chat, a := newFixture(t)
	ctx := context.Background()
	require.NoError(t, a.SendWelcomeMessage(ctx, "user1"))
	require.Len(t, chat.DMs, 2)
}
