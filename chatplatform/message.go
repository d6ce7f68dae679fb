package chatplatform

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/guildsync/guildsync/domain"
)

// wrapErr classifies a discordgo REST error, surfacing "resource gone" as
// domain.ErrRemoteNotFound (reconcile.Ensure's liveness probes rely on this)
// and everything else as domain.ErrUpstream.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == 404 {
		return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrRemoteNotFound, err))
	}
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrUpstream, err))
}

func (b *Bot) BotUserID(ctx context.Context) (string, error) {
	u, err := b.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("bot user", err)
	}
	return u.ID, nil
}

func (b *Bot) GetChannel(ctx context.Context, channelID string) (ChannelInfo, bool, error) {
	ch, err := b.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if errors.Is(wrapErr("get channel", err), domain.ErrRemoteNotFound) {
			return ChannelInfo{}, false, nil
		}
		return ChannelInfo{}, false, wrapErr("get channel", err)
	}
	return ChannelInfo{ID: ch.ID, Topic: ch.Topic, CategoryID: ch.ParentID}, true, nil
}

func (b *Bot) GetRole(ctx context.Context, roleID string) (RoleInfo, bool, error) {
	roles, err := b.GuildRoles(ctx)
	if err != nil {
		return RoleInfo{}, false, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, true, nil
		}
	}
	return RoleInfo{}, false, nil
}

func (b *Bot) GuildRoles(ctx context.Context) ([]RoleInfo, error) {
	roles, err := b.session.GuildRoles(b.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapErr("guild roles", err)
	}
	out := make([]RoleInfo, len(roles))
	for i, r := range roles {
		out[i] = RoleInfo{ID: r.ID, Name: r.Name}
	}
	return out, nil
}

func (b *Bot) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	member, err := b.session.GuildMember(b.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if errors.Is(wrapErr("guild member", err), domain.ErrRemoteNotFound) {
			return false, nil
		}
		return false, wrapErr("guild member", err)
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (b *Bot) AddRole(ctx context.Context, userID, roleID string) error {
	err := b.session.GuildMemberRoleAdd(b.guildID, userID, roleID, discordgo.WithContext(ctx))
	return wrapErr("add role", err)
}

func (b *Bot) RemoveRole(ctx context.Context, userID, roleID string) error {
	err := b.session.GuildMemberRoleRemove(b.guildID, userID, roleID, discordgo.WithContext(ctx))
	return wrapErr("remove role", err)
}

func (b *Bot) CreateChannel(ctx context.Context, name string, overwrites []PermissionOverwrite) (string, error) {
	data := discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: toDiscordOverwrites(overwrites),
	}
	ch, err := b.session.GuildChannelCreateComplex(b.guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("create channel", err)
	}
	return ch.ID, nil
}

func (b *Bot) CreateRole(ctx context.Context, name string) (string, error) {
	role, err := b.session.GuildRoleCreate(b.guildID, &discordgo.RoleParams{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("create role", err)
	}
	return role.ID, nil
}

func (b *Bot) SetPermissionOverwrite(ctx context.Context, channelID string, o PermissionOverwrite) error {
	typ := discordgo.PermissionOverwriteTypeRole
	if o.Type == OverwriteMember {
		typ = discordgo.PermissionOverwriteTypeMember
	}
	err := b.session.ChannelPermissionSet(channelID, o.TargetID, typ, o.Allow, o.Deny, discordgo.WithContext(ctx))
	return wrapErr("set permission overwrite", err)
}

func (b *Bot) EditChannelTopicAndCategory(ctx context.Context, channelID, topic, categoryID string) error {
	edit := &discordgo.ChannelEdit{Topic: topic}
	if categoryID != "" {
		edit.ParentID = categoryID
	}
	_, err := b.session.ChannelEditComplex(channelID, edit, discordgo.WithContext(ctx))
	return wrapErr("edit channel", err)
}

func (b *Bot) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := b.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return wrapErr("delete channel", err)
}

func (b *Bot) DeleteRole(ctx context.Context, roleID string) error {
	err := b.session.GuildRoleDelete(b.guildID, roleID, discordgo.WithContext(ctx))
	return wrapErr("delete role", err)
}

func (b *Bot) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return wrapErr("send message", err)
}

func (b *Bot) SendEmbed(ctx context.Context, channelID string, embed Embed) (string, error) {
	e := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	if embed.ImageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: embed.ImageURL}
	}
	msg, err := b.session.ChannelMessageSendEmbed(channelID, e, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("send embed", err)
	}
	return msg.ID, nil
}

func (b *Bot) SendDirectMessage(ctx context.Context, userID, content string) (string, error) {
	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("open dm channel", err)
	}
	msg, err := b.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("send dm", err)
	}
	return msg.ID, nil
}

func (b *Bot) SendDirectEmbed(ctx context.Context, userID string, embed Embed) (string, error) {
	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("open dm channel", err)
	}
	return b.SendEmbed(ctx, ch.ID, embed)
}

func (b *Bot) React(ctx context.Context, channelID, messageID, emoji string) error {
	err := b.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
	return wrapErr("react", err)
}

func toDiscordOverwrites(overwrites []PermissionOverwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, len(overwrites))
	for i, o := range overwrites {
		typ := discordgo.PermissionOverwriteTypeRole
		if o.Type == OverwriteMember {
			typ = discordgo.PermissionOverwriteTypeMember
		}
		out[i] = &discordgo.PermissionOverwrite{
			ID:    o.TargetID,
			Type:  typ,
			Allow: o.Allow,
			Deny:  o.Deny,
		}
	}
	return out
}

var _ ChatPlatform = (*Bot)(nil)
