package chatplatform

import (
	"context"
	"testing"
)

func TestNewBot(t *testing.T) {
	bot, err := NewBot("test-token", "test-guild-id")
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	if bot.GuildID() != "test-guild-id" {
		t.Fatalf("expected guild id test-guild-id, got %s", bot.GuildID())
	}
	if bot.Session() == nil {
		t.Fatal("Session() should not be nil")
	}
}

func TestFakeCreateChannelThenAddRoleRoundTrip(t *testing.T) {
	f := NewFake("bot1")
	ctx := context.Background()

	roleID, err := f.CreateRole(ctx, "players")
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := f.AddRole(ctx, "user1", roleID); err != nil {
		t.Fatalf("AddRole: %v", err)
	}
	has, err := f.HasRole(ctx, "user1", roleID)
	if err != nil {
		t.Fatalf("HasRole: %v", err)
	}
	if !has {
		t.Fatal("expected user1 to hold the role after AddRole")
	}
}
