// Package roles propagates Event-Source RSVP membership onto Discord guild
// roles (spec.md §4.5, C5). Grounded on
// original_source/src/discord_sync.rs::sync_user_role_assignments and
// sync_game_master_role.
package roles

import (
	"context"

	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/store"
)

var log = guildlog.New("roles")

// Propagate grants roleID to every Discord user mapped (via the identity
// link) from a Meetup RSVP or host of any event in eventIDs, skipping users
// recorded in the channel's manual-removal sets (spec.md §4.5: a manual
// `remove` suppresses automatic re-assignment).
//
// isHost selects which manual-removal sets suppress assignment: a host role
// is suppressed by either removed_hosts or removed_users (being removed as a
// plain user also strips host privileges), a plain user role only by
// removed_users. This is the exact asymmetry original_source's
// sync_user_role_assignments encodes.
func Propagate(ctx context.Context, s *store.Client, chat chatplatform.ChatPlatform, eventIDs []string, channelID, roleID string, isHost bool) error {
	if len(eventIDs) == 0 {
		log.Info("no events for channel %s, skipping role propagation", channelID)
		return nil
	}

	rsvpKeys := make([]string, 0, len(eventIDs))
	for _, eventID := range eventIDs {
		if isHost {
			rsvpKeys = append(rsvpKeys, store.EventHostsKey(eventID))
		} else {
			rsvpKeys = append(rsvpKeys, store.EventUsersKey(eventID))
		}
	}
	meetupIDs, err := s.SUnion(ctx, rsvpKeys...)
	if err != nil {
		return err
	}
	if len(meetupIDs) == 0 {
		return nil
	}

	discordKeys := make([]string, len(meetupIDs))
	for i, meetupID := range meetupIDs {
		discordKeys[i] = store.MeetupUserDiscordKey(meetupID)
	}
	discordIDs, oks, err := s.MGet(ctx, discordKeys...)
	if err != nil {
		return err
	}

	ignored, err := ignoredUserIDs(ctx, s, channelID, isHost)
	if err != nil {
		return err
	}

	for i, discordID := range discordIDs {
		if !oks[i] || discordID == "" {
			continue
		}
		if ignored[discordID] {
			continue
		}
		has, err := chat.HasRole(ctx, discordID, roleID)
		if err != nil {
			log.Error("could not check role %s for user %s: %v", roleID, discordID, err)
			continue
		}
		if has {
			continue
		}
		if err := chat.AddRole(ctx, discordID, roleID); err != nil {
			log.Error("could not assign user %s to role %s: %v", discordID, roleID, err)
			continue
		}
		log.Info("assigned user %s to role %s", discordID, roleID)
	}
	return nil
}

func ignoredUserIDs(ctx context.Context, s *store.Client, channelID string, isHost bool) (map[string]bool, error) {
	var ids []string
	var err error
	if isHost {
		ids, err = s.SUnion(ctx, store.ChannelRemovedHostsKey(channelID), store.ChannelRemovedUsersKey(channelID))
	} else {
		ids, err = s.SMembers(ctx, store.ChannelRemovedUsersKey(channelID))
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// PropagateGameMaster grants the guild-wide game master role to every Meetup
// host mapped to a Discord user, across every event in eventIDs. gameMasterRoleID
// empty disables propagation (spec.md §4.4 step 7 / config.GameMasterRoleID).
func PropagateGameMaster(ctx context.Context, s *store.Client, chat chatplatform.ChatPlatform, eventIDs []string, gameMasterRoleID string) error {
	if gameMasterRoleID == "" || len(eventIDs) == 0 {
		return nil
	}
	hostKeys := make([]string, len(eventIDs))
	for i, eventID := range eventIDs {
		hostKeys[i] = store.EventHostsKey(eventID)
	}
	meetupHostIDs, err := s.SUnion(ctx, hostKeys...)
	if err != nil {
		return err
	}
	if len(meetupHostIDs) == 0 {
		return nil
	}
	discordKeys := make([]string, len(meetupHostIDs))
	for i, meetupID := range meetupHostIDs {
		discordKeys[i] = store.MeetupUserDiscordKey(meetupID)
	}
	discordIDs, oks, err := s.MGet(ctx, discordKeys...)
	if err != nil {
		return err
	}
	for i, discordID := range discordIDs {
		if !oks[i] || discordID == "" {
			continue
		}
		has, err := chat.HasRole(ctx, discordID, gameMasterRoleID)
		if err != nil {
			log.Error("could not check game master role for user %s: %v", discordID, err)
			continue
		}
		if has {
			continue
		}
		if err := chat.AddRole(ctx, discordID, gameMasterRoleID); err != nil {
			log.Error("could not assign user %s to the game master role: %v", discordID, err)
			continue
		}
		log.Info("assigned user %s to the game master role", discordID)
	}
	return nil
}
