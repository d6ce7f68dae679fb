// Package chatplatform is the Chat Platform client boundary (spec.md §6):
// every operation the reconciliation and admin packages consume from
// Discord, expressed as an interface so reconcile/seriessync/roles/admin can
// be tested against a fake. The concrete implementation wraps
// github.com/bwmarrin/discordgo, adapted from
// _examples/A-Archives-and-Forks-yao/integrations/discord.
package chatplatform

import "context"

// OverwriteType distinguishes a role-targeted from a member-targeted
// permission overwrite (discordgo.PermissionOverwriteType).
type OverwriteType int

const (
	OverwriteRole OverwriteType = iota
	OverwriteMember
)

// PermissionOverwrite mirrors a single Discord channel permission overwrite
// entry (spec.md §4.4 step 5 / §6).
type PermissionOverwrite struct {
	TargetID string
	Type     OverwriteType
	Allow    int64
	Deny     int64
}

// RoleInfo is the subset of a guild role guildsync cares about.
type RoleInfo struct {
	ID   string
	Name string
}

// ChannelInfo is the subset of a guild channel guildsync cares about.
type ChannelInfo struct {
	ID         string
	Topic      string
	CategoryID string
}

// Embed is a minimal Discord rich embed (title, description, image).
type Embed struct {
	Title       string
	Description string
	ImageURL    string
	Color       int
}

// ChatPlatform is every Discord operation guildsync's core depends on.
// Implemented by *Bot (discordgo-backed) and by fakes in package tests.
type ChatPlatform interface {
	// BotUserID returns the bot's own user id (verifies the token).
	BotUserID(ctx context.Context) (string, error)

	// GetChannel resolves a channel by id. ok is false if the channel does
	// not exist remotely (used by reconcile.Ensure's liveness probe).
	GetChannel(ctx context.Context, channelID string) (info ChannelInfo, ok bool, err error)

	// GetRole resolves a guild role by id among GuildRoles. ok is false if
	// no such role exists remotely.
	GetRole(ctx context.Context, roleID string) (info RoleInfo, ok bool, err error)

	// GuildRoles lists every role in the configured guild.
	GuildRoles(ctx context.Context) ([]RoleInfo, error)

	// HasRole reports whether userID currently holds roleID.
	HasRole(ctx context.Context, userID, roleID string) (bool, error)

	// AddRole and RemoveRole grant/revoke a guild role on a member.
	AddRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error

	// CreateChannel creates a guild text channel with the given initial
	// permission overwrites, returning its new id.
	CreateChannel(ctx context.Context, name string, overwrites []PermissionOverwrite) (channelID string, err error)

	// CreateRole creates a guild role with no permissions, returning its new id.
	CreateRole(ctx context.Context, name string) (roleID string, err error)

	// SetPermissionOverwrite sets (creates or replaces) one permission
	// overwrite entry on a channel without touching any other entry
	// (spec.md §4.4 step 5 / §9: additive, never clears unrelated entries).
	SetPermissionOverwrite(ctx context.Context, channelID string, overwrite PermissionOverwrite) error

	// EditChannelTopicAndCategory updates a channel's topic and, if
	// categoryID is non-empty, its parent category.
	EditChannelTopicAndCategory(ctx context.Context, channelID, topic, categoryID string) error

	// DeleteChannel and DeleteRole remove a remote resource. Used by
	// reconcile.Ensure to discard a losing temporary resource.
	DeleteChannel(ctx context.Context, channelID string) error
	DeleteRole(ctx context.Context, roleID string) error

	// SendMessage sends plain text to a channel.
	SendMessage(ctx context.Context, channelID, content string) error

	// SendEmbed sends a rich embed to a channel.
	SendEmbed(ctx context.Context, channelID string, embed Embed) (messageID string, err error)

	// SendDirectMessage sends plain text as a DM. Returns the new message
	// id so callers can react to it afterwards.
	SendDirectMessage(ctx context.Context, userID, content string) (messageID string, err error)

	// SendDirectEmbed sends a rich embed as a DM.
	SendDirectEmbed(ctx context.Context, userID string, embed Embed) (messageID string, err error)

	// React adds a reaction emoji to a message (e.g. the checkmark on a
	// successful linking DM, original_source's `msg.react(ctx, "✅")`).
	React(ctx context.Context, channelID, messageID, emoji string) error
}
