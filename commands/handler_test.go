package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/admin"
	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/commands"
	"github.com/guildsync/guildsync/config"
	"github.com/guildsync/guildsync/eventsource"
	"github.com/guildsync/guildsync/identity"
	"github.com/guildsync/guildsync/scheduler"
	"github.com/guildsync/guildsync/seriessync"
	"github.com/guildsync/guildsync/store"
)

type fakeLinkURLGenerator struct{}

func (fakeLinkURLGenerator) GenerateLinkURL(ctx context.Context, discordUserID string) (string, error) {
	return "https://link.example/" + discordUserID, nil
}

func newFixture(t *testing.T) (*commands.Handler, *chatplatform.Fake, *store.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := store.New(rdb)
	chat := chatplatform.NewFake("bot1")
	cctx := &config.Context{
		Config: &config.Config{GuildID: "guild1", OrganizerRoleID: "organizer-role"},
		Store:  s,
		Chat:   chat,
		Events: eventsource.NewFake(),
	}
	linker := identity.New(s, cctx.Events, fakeLinkURLGenerator{})
	syncer := seriessync.New(s, chat, cctx.Config)
	adm := admin.New(s, chat, 24*time.Hour)
	clock := scheduler.NewWallClock(context.Background())
	t.Cleanup(clock.Close)
	exec := scheduler.NewExecutor(time.Second)

	h := commands.NewHandler(cctx, commands.Compile("bot1"), linker, syncer, adm, clock, exec)
	return h, chat, s
}

func makeOrganizer(t *testing.T, ctx context.Context, chat *chatplatform.Fake, userID string) {
	t.Helper()
	chat.Roles["organizer-role"] = chatplatform.RoleInfo{ID: "organizer-role", Name: "organizer"}
	require.NoError(t, chat.AddRole(ctx, userID, "organizer-role"))
}

func TestHandleLinkMeetupDMIssuesURL(t *testing.T) {
	h, chat, _ := newFixture(t)
	ctx := context.Background()
	err := h.Handle(ctx, commands.IncomingMessage{ChannelID: "dm1", AuthorID: "user1", Content: "link meetup", IsDM: true})
	require.NoError(t, err)
	require.Len(t, chat.DMs, 1)
	require.Contains(t, chat.DMs[0].Content, "https://link.example/user1")
}

func TestHandleSyncDiscordRequiresOrganizer(t *testing.T) {
	h, chat, _ := newFixture(t)
	ctx := context.Background()
	err := h.Handle(ctx, commands.IncomingMessage{ChannelID: "chan1", AuthorID: "user1", Content: "<@bot1> sync discord", IsDM: false})
	require.NoError(t, err)
	require.Len(t, chat.Messages, 1)
	require.Contains(t, chat.Messages[0].Content, "organiser")
}

func TestHandleSyncDiscordStartsSweepForOrganizer(t *testing.T) {
	h, chat, _ := newFixture(t)
	ctx := context.Background()
	makeOrganizer(t, ctx, chat, "user1")

	err := h.Handle(ctx, commands.IncomingMessage{ChannelID: "chan1", AuthorID: "user1", Content: "<@bot1> sync discord", IsDM: false})
	require.NoError(t, err)
	require.Len(t, chat.Messages, 1)
	require.Contains(t, chat.Messages[0].Content, "Started Discord synchronization task")
}

func TestHandleAddUserGrantsRoleWhenCallerIsHost(t *testing.T) {
	h, chat, s := newFixture(t)
	ctx := context.Background()

	roleID, err := chat.CreateRole(ctx, "players")
	require.NoError(t, err)
	hostRoleID, err := chat.CreateRole(ctx, "hosts")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.ChannelRoleKey("chan1"), roleID))
	require.NoError(t, s.Set(ctx, store.ChannelHostRoleKey("chan1"), hostRoleID))
	chat.Channels["chan1"] = chatplatform.ChannelInfo{ID: "chan1"}
	require.NoError(t, chat.AddRole(ctx, "host1", hostRoleID))

	err = h.Handle(ctx, commands.IncomingMessage{ChannelID: "chan1", AuthorID: "host1", Content: "<@bot1> add <@42>", IsDM: false})
	require.NoError(t, err)

	has, err := chat.HasRole(ctx, "42", roleID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestHandleAddUserRefusedForNonAdmin(t *testing.T) {
	h, chat, s := newFixture(t)
	ctx := context.Background()

	roleID, err := chat.CreateRole(ctx, "players")
	require.NoError(t, err)
	hostRoleID, err := chat.CreateRole(ctx, "hosts")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.ChannelRoleKey("chan1"), roleID))
	require.NoError(t, s.Set(ctx, store.ChannelHostRoleKey("chan1"), hostRoleID))
	chat.Channels["chan1"] = chatplatform.ChannelInfo{ID: "chan1"}

	err = h.Handle(ctx, commands.IncomingMessage{ChannelID: "chan1", AuthorID: "rando", Content: "<@bot1> add <@42>", IsDM: false})
	require.NoError(t, err)

	has, err := chat.HasRole(ctx, "42", roleID)
	require.NoError(t, err)
	require.False(t, has)
	require.Len(t, chat.Messages, 1)
}

func TestHandleUnlinkSelfReportsNotLinked(t *testing.T) {
	h, chat, _ := newFixture(t)
	ctx := context.Background()
	err := h.Handle(ctx, commands.IncomingMessage{ChannelID: "chan1", AuthorID: "user1", Content: "<@bot1> unlink meetup", IsDM: false})
	require.NoError(t, err)
	require.Len(t, chat.Messages, 1)
	require.Contains(t, chat.Messages[0].Content, "doesn't seem to be")
}

func TestHandleUnrecognizedMessageIsIgnored(t *testing.T) {
	h, chat, _ := newFixture(t)
	ctx := context.Background()
	err := h.Handle(ctx, commands.IncomingMessage{ChannelID: "chan1", AuthorID: "user1", Content: "<@bot1> do a backflip", IsDM: false})
	require.NoError(t, err)
	require.Empty(t, chat.Messages)
	require.Empty(t, chat.DMs)
}
