// Package admin implements the channel admin commands (spec.md §4.6, C6):
// add/remove a user or host, close a channel, and the welcome DM a new guild
// member receives. Grounded on
// original_source/src/discord_bot_commands.rs::get_channel_roles,
// channel_add_or_remove_user, close_channel, send_welcome_message.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/domain"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/store"
)

var log = guildlog.New("admin")

// Admin runs the channel admin commands against a store and Chat Platform.
type Admin struct {
	store              *store.Client
	chat               chatplatform.ChatPlatform
	closureGracePeriod time.Duration
}

// New builds an Admin. closureGracePeriod is the delay between CloseChannel
// marking a channel for deletion and an external reaper acting on it
// (spec.md §9 Open Question, config.Config.ClosureGracePeriod).
func New(s *store.Client, chat chatplatform.ChatPlatform, closureGracePeriod time.Duration) *Admin {
	return &Admin{store: s, chat: chat, closureGracePeriod: closureGracePeriod}
}

// ChannelControlStatus classifies a channel relative to guildsync's
// bookkeeping: fully bot-controlled (both roles present), a schema
// violation (exactly one role present - data corruption), or external (no
// roles at all, not a guildsync channel).
type ChannelControlStatus int

const (
	ChannelExternal ChannelControlStatus = iota
	ChannelControlled
	ChannelSchemaViolation
)

// GetChannelRoles classifies channelID and, if controlled, returns its roles.
func GetChannelRoles(ctx context.Context, s *store.Client, channelID string) (domain.ChannelRoles, ChannelControlStatus, error) {
	roleID, roleOK, err := s.Get(ctx, store.ChannelRoleKey(channelID))
	if err != nil {
		return domain.ChannelRoles{}, 0, err
	}
	hostRoleID, hostOK, err := s.Get(ctx, store.ChannelHostRoleKey(channelID))
	if err != nil {
		return domain.ChannelRoles{}, 0, err
	}
	switch {
	case roleOK && hostOK:
		return domain.ChannelRoles{User: roleID, Host: hostRoleID}, ChannelControlled, nil
	case !roleOK && !hostOK:
		return domain.ChannelRoles{}, ChannelExternal, nil
	default:
		return domain.ChannelRoles{}, ChannelSchemaViolation, fmt.Errorf("channel %s: %w", channelID, domain.ErrSchemaViolation)
	}
}

// IsChannelAdmin reports whether callerID may run channel admin commands on a
// controlled channel: guild organizers always may, and so may the channel's
// current host.
func IsChannelAdmin(ctx context.Context, chat chatplatform.ChatPlatform, callerID, organizerRoleID string, roles domain.ChannelRoles) (bool, error) {
	isOrganizer, err := chat.HasRole(ctx, callerID, organizerRoleID)
	if err != nil {
		return false, err
	}
	if isOrganizer {
		return true, nil
	}
	return chat.HasRole(ctx, callerID, roles.Host)
}

// AddOrRemoveUser grants or revokes channel membership for discordID,
// optionally as a host. Removing always strips the host role (a user
// removed as a plain user also loses hosting); removing as host only
// (asHost=true) keeps the plain user role and does NOT add to removed_users — spec.md §9's documented
// Open Question, preserved rather than silently fixed (see DESIGN.md).
func (a *Admin) AddOrRemoveUser(ctx context.Context, channelID, discordID string, add, asHost bool) error {
	roles, status, err := GetChannelRoles(ctx, a.store, channelID)
	if err != nil {
		if errors.Is(err, domain.ErrSchemaViolation) {
			return err
		}
		return err
	}
	if status != ChannelControlled {
		return fmt.Errorf("channel %s is not bot controlled: %w", channelID, domain.ErrRemoteNotFound)
	}

	if add {
		return a.addUser(ctx, channelID, discordID, roles, asHost)
	}
	return a.removeUser(ctx, channelID, discordID, roles, asHost)
}

func (a *Admin) addUser(ctx context.Context, channelID, discordID string, roles domain.ChannelRoles, asHost bool) error {
	if err := a.chat.AddRole(ctx, discordID, roles.User); err != nil {
		log.Error("could not assign channel role: %v", err)
		return fmt.Errorf("add channel role: %w", err)
	}
	if err := a.chat.SendMessage(ctx, channelID, fmt.Sprintf("Welcome <@%s>!", discordID)); err != nil {
		log.Error("could not announce new member: %v", err)
	}
	if !asHost {
		return nil
	}
	if err := a.chat.AddRole(ctx, discordID, roles.Host); err != nil {
		log.Error("could not assign host channel role: %v", err)
		return fmt.Errorf("add host role: %w", err)
	}
	if err := a.chat.SendMessage(ctx, channelID, fmt.Sprintf("<@%s> is now a host of this channel", discordID)); err != nil {
		log.Error("could not announce new host: %v", err)
	}
	return nil
}

func (a *Admin) removeUser(ctx context.Context, channelID, discordID string, roles domain.ChannelRoles, asHost bool) error {
	if err := a.chat.RemoveRole(ctx, discordID, roles.Host); err != nil {
		log.Error("could not remove host channel role: %v", err)
	}
	if !asHost {
		if err := a.chat.RemoveRole(ctx, discordID, roles.User); err != nil {
			log.Error("could not remove channel role: %v", err)
		}
	}

	if asHost {
		return a.store.SAdd(ctx, store.ChannelRemovedHostsKey(channelID), discordID)
	}
	return a.store.SAdd(ctx, store.ChannelRemovedUsersKey(channelID), discordID)
}

// CloseChannel marks channelID for deletion closureGracePeriod from now,
// unless a deletion time that has not yet passed is already recorded, and refuses if the channel's
// expiration time (spec.md §4.4's per-event expiration) hasn't passed yet.
// The actual deletion is performed by an external reaper (out of scope,
// spec.md §1) once deletion_time elapses.
func (a *Admin) CloseChannel(ctx context.Context, channelID string) (scheduled bool, alreadyMarked bool, notYetCloseable bool, err error) {
	expirationStr, ok, err := a.store.Get(ctx, store.ChannelExpirationKey(channelID))
	if err != nil {
		return false, false, false, err
	}
	if ok {
		expiration, perr := time.Parse(time.RFC3339, expirationStr)
		if perr == nil && expiration.After(time.Now().UTC()) {
			return false, false, true, nil
		}
	}

	now := time.Now().UTC()
	newDeletionTime := now.Add(a.closureGracePeriod)
	currentStr, ok, err := a.store.Get(ctx, store.ChannelDeletionKey(channelID))
	if err != nil {
		return false, false, false, err
	}
	if ok {
		current, perr := time.Parse(time.RFC3339, currentStr)
		if perr == nil && !current.Before(now) {
			return false, true, false, nil
		}
	}

	if err := a.store.Set(ctx, store.ChannelDeletionKey(channelID), newDeletionTime.Format(time.RFC3339)); err != nil {
		return false, false, false, err
	}
	return true, false, false, nil
}

// welcomeMessagePart1 and the embed text mirror original_source's
// strings::WELCOME_MESSAGE_* constants (spec.md §6's welcome DM).
const welcomeMessagePart1 = "Welcome! I'm the bot that manages this server's game channels."
const welcomeEmbedTitle = "Link your Meetup account"
const welcomeEmbedContent = "Send me a direct message saying \"link meetup\" to connect your Meetup RSVPs to your Discord roles."

// SendWelcomeMessage DMs a new guild member the two-part welcome (plain text
// followed by an embed), spec.md §6 / original_source's send_welcome_message.
func (a *Admin) SendWelcomeMessage(ctx context.Context, discordUserID string) error {
	if _, err := a.chat.SendDirectMessage(ctx, discordUserID, welcomeMessagePart1); err != nil {
		return fmt.Errorf("send welcome message: %w", err)
	}
	if _, err := a.chat.SendDirectEmbed(ctx, discordUserID, chatplatform.Embed{
		Title:       welcomeEmbedTitle,
		Description: welcomeEmbedContent,
		Color:       0xFF1744,
	}); err != nil {
		return fmt.Errorf("send welcome embed: %w", err)
	}
	return nil
}
