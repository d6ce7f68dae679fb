// Package seriessync implements the seven-step per-series sync pipeline
// (spec.md §4.4, C4): ensure channel, ensure both roles, apply permissions,
// propagate membership, propagate the game master role, and keep the
// channel topic/category current. Grounded on
// original_source/src/discord_sync.rs::sync_event_series.
package seriessync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/go-multierror"

	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/config"
	"github.com/guildsync/guildsync/domain"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/reconcile"
	"github.com/guildsync/guildsync/roles"
	"github.com/guildsync/guildsync/store"
)

var log = guildlog.New("seriessync")

// Syncer runs the per-series pipeline over a Chat Platform and store.
type Syncer struct {
	store  *store.Client
	chat   chatplatform.ChatPlatform
	config *config.Config
}

// New builds a Syncer.
func New(s *store.Client, chat chatplatform.ChatPlatform, cfg *config.Config) *Syncer {
	return &Syncer{store: s, chat: chat, config: cfg}
}

// SweepAll syncs every known event series, aggregating (not stopping on) any
// individual series failures (spec.md §4.4: "a failed series sync ... must
// not prevent other series from being synced").
func (sy *Syncer) SweepAll(ctx context.Context) error {
	seriesIDs, err := sy.store.SMembers(ctx, store.SeriesSet)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, seriesID := range seriesIDs {
		if err := sy.SyncSeries(ctx, seriesID); err != nil {
			log.Error("event series syncing task failed for %s: %v", seriesID, err)
			result = multierror.Append(result, fmt.Errorf("series %s: %w", seriesID, err))
		}
	}
	return result.ErrorOrNil()
}

// SyncSeries runs the seven-step pipeline for one series id.
func (sy *Syncer) SyncSeries(ctx context.Context, seriesID string) error {
	eventIDs, err := sy.store.SMembers(ctx, store.SeriesEventsKey(seriesID))
	if err != nil {
		return err
	}
	nextEvent, ok, err := sy.nextUpcomingEvent(ctx, eventIDs)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("event series %q has no upcoming events, not syncing", seriesID)
		return nil
	}

	seriesName, err := seriesNameFromEventName(nextEvent.Name)
	if err != nil {
		return err
	}

	// Step 1: channel.
	channelID, err := sy.ensureChannel(ctx, seriesID, seriesName)
	if err != nil {
		return fmt.Errorf("ensure channel: %w", err)
	}

	// Step 2 & 3: player and host roles.
	roleID, err := sy.ensureRole(ctx, channelID, seriesName, false)
	if err != nil {
		return fmt.Errorf("ensure role: %w", err)
	}
	hostRoleID, err := sy.ensureRole(ctx, channelID, "[Host] "+seriesName, true)
	if err != nil {
		return fmt.Errorf("ensure host role: %w", err)
	}

	// Step 4: permissions.
	if err := sy.applyPermissions(ctx, channelID, roleID, hostRoleID); err != nil {
		return fmt.Errorf("apply permissions: %w", err)
	}

	// Step 5: RSVP'd membership, player then host.
	if err := roles.Propagate(ctx, sy.store, sy.chat, eventIDs, channelID, roleID, false); err != nil {
		return fmt.Errorf("propagate user role: %w", err)
	}
	if err := roles.Propagate(ctx, sy.store, sy.chat, eventIDs, channelID, hostRoleID, true); err != nil {
		return fmt.Errorf("propagate host role: %w", err)
	}

	// Step 6: guild-wide game master role.
	if err := roles.PropagateGameMaster(ctx, sy.store, sy.chat, eventIDs, sy.config.GameMasterRoleID); err != nil {
		return fmt.Errorf("propagate game master role: %w", err)
	}

	// Step 7: topic and category.
	if err := sy.syncTopicAndCategory(ctx, seriesID, channelID, nextEvent); err != nil {
		return fmt.Errorf("sync topic and category: %w", err)
	}

	return nil
}

func (sy *Syncer) nextUpcomingEvent(ctx context.Context, eventIDs []string) (domain.Event, bool, error) {
	var events []domain.Event
	for _, eventID := range eventIDs {
		fields, err := sy.store.HGetFields(ctx, store.EventKey(eventID), "time", "name", "link")
		if err != nil {
			return domain.Event{}, false, err
		}
		t, err := time.Parse(time.RFC3339, fields[0])
		if err != nil {
			log.Error("could not parse event time for event %s: %v", eventID, err)
			continue
		}
		events = append(events, domain.Event{ID: eventID, Time: t, Name: fields[1], Link: fields[2]})
	}
	now := time.Now().UTC()
	var upcoming []domain.Event
	for _, e := range events {
		if e.Time.After(now) {
			upcoming = append(upcoming, e)
		}
	}
	if len(upcoming) == 0 {
		return domain.Event{}, false, nil
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Time.Before(upcoming[j].Time) })
	return upcoming[0], true, nil
}

func (sy *Syncer) ensureChannel(ctx context.Context, seriesID, name string) (string, error) {
	slot := reconcile.Slot{
		PrimaryKey:    store.SeriesChannelKey(seriesID),
		OwnerID:       seriesID,
		ReverseKeyFor: store.ChannelSeriesKey,
		IndexSet:      store.DiscordChannelsSet,
		OrphanSet:     store.OrphanedChannelsSet,
	}
	return reconcile.Ensure(ctx, sy.store, slot,
		func(ctx context.Context, channelID string) (bool, error) {
			_, ok, err := sy.chat.GetChannel(ctx, channelID)
			return ok, err
		},
		func(ctx context.Context) (string, error) {
			botID, err := sy.chat.BotUserID(ctx)
			if err != nil {
				return "", err
			}
			return sy.chat.CreateChannel(ctx, name, initialOverwrites(sy.config.GuildID, botID))
		},
		sy.chat.DeleteChannel,
	)
}

func (sy *Syncer) ensureRole(ctx context.Context, channelID, name string, isHost bool) (string, error) {
	primaryKey := store.ChannelRoleKey(channelID)
	reverseKeyFor := store.RoleChannelKey
	indexSet := store.DiscordRolesSet
	if isHost {
		primaryKey = store.ChannelHostRoleKey(channelID)
		reverseKeyFor = store.HostRoleChannelKey
		indexSet = store.DiscordHostRolesSet
	}
	slot := reconcile.Slot{
		PrimaryKey:    primaryKey,
		OwnerID:       channelID,
		ReverseKeyFor: reverseKeyFor,
		IndexSet:      indexSet,
		OrphanSet:     store.OrphanedRolesSet,
	}
	return reconcile.Ensure(ctx, sy.store, slot,
		func(ctx context.Context, roleID string) (bool, error) {
			_, ok, err := sy.chat.GetRole(ctx, roleID)
			return ok, err
		},
		func(ctx context.Context) (string, error) { return sy.chat.CreateRole(ctx, name) },
		sy.chat.DeleteRole,
	)
}

// initialOverwrites replicates sync_channel_permissions's "private channel"
// shape at creation time: @everyone denied, bot allowed (so it can operate in
// the channel even before roles exist).
func initialOverwrites(guildID, botID string) []chatplatform.PermissionOverwrite {
	return []chatplatform.PermissionOverwrite{
		{TargetID: guildID, Type: chatplatform.OverwriteRole, Deny: discordgo.PermissionViewChannel},
		{TargetID: botID, Type: chatplatform.OverwriteMember, Allow: discordgo.PermissionViewChannel},
	}
}

// applyPermissions sets the four canonical overwrites spec.md §4.4 step 4 /
// §9 describes; it never clears any other overwrite entry on the channel
// (see DESIGN.md's Open Question decision on additive overwrites).
func (sy *Syncer) applyPermissions(ctx context.Context, channelID, roleID, hostRoleID string) error {
	botID, err := sy.chat.BotUserID(ctx)
	if err != nil {
		return err
	}
	overwrites := []chatplatform.PermissionOverwrite{
		{TargetID: sy.config.GuildID, Type: chatplatform.OverwriteRole, Deny: discordgo.PermissionViewChannel},
		{TargetID: botID, Type: chatplatform.OverwriteMember, Allow: discordgo.PermissionViewChannel},
		{TargetID: roleID, Type: chatplatform.OverwriteRole, Allow: discordgo.PermissionViewChannel | discordgo.PermissionMentionEveryone},
		{TargetID: hostRoleID, Type: chatplatform.OverwriteRole, Allow: discordgo.PermissionViewChannel | discordgo.PermissionMentionEveryone | discordgo.PermissionManageMessages},
	}
	for _, o := range overwrites {
		if err := sy.chat.SetPermissionOverwrite(ctx, channelID, o); err != nil {
			return err
		}
	}
	return nil
}

func (sy *Syncer) syncTopicAndCategory(ctx context.Context, seriesID, channelID string, nextEvent domain.Event) error {
	topic := "Next session: " + nextEvent.Link

	seriesType, _, err := sy.store.Get(ctx, store.SeriesTypeKey(seriesID))
	if err != nil {
		return err
	}
	categoryID := sy.config.CampaignCategoryID
	switch domain.SeriesType(seriesType) {
	case domain.SeriesCampaign:
		categoryID = sy.config.CampaignCategoryID
	case domain.SeriesAdventure:
		categoryID = sy.config.OneShotCategoryID
	default:
		log.Error("event series %s does not have a type of 'campaign' or 'adventure'", seriesID)
	}

	current, ok, err := sy.chat.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if ok && current.Topic == topic && (categoryID == "" || current.CategoryID == categoryID) {
		return nil
	}
	return sy.chat.EditChannelTopicAndCategory(ctx, channelID, topic, categoryID)
}
