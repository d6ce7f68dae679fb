package store

import "fmt"

// Global index sets (spec.md §4.1 / I4).
const (
	SeriesSet           = "event_series"
	DiscordChannelsSet  = "discord_channels"
	DiscordRolesSet     = "discord_roles"
	DiscordHostRolesSet = "discord_host_roles"
	OrphanedChannelsSet = "orphaned_discord_channels"
	OrphanedRolesSet    = "orphaned_discord_roles"
	// OrphanedHostRolesSet is not a separate key in spec.md §4.1: host
	// roles orphan into the same set as user roles, distinguished only by
	// caller context (both are "discord_role" shaped ids to Discord).
	MeetupUsersSet  = "meetup_users"
	DiscordUsersSet = "discord_users"
)

// Series keys.
func SeriesEventsKey(seriesID string) string {
	return fmt.Sprintf("event_series:%s:meetup_events", seriesID)
}

func SeriesTypeKey(seriesID string) string {
	return fmt.Sprintf("event_series:%s:type", seriesID)
}

func SeriesChannelKey(seriesID string) string {
	return fmt.Sprintf("event_series:%s:discord_channel", seriesID)
}

// Event keys.
func EventKey(eventID string) string {
	return fmt.Sprintf("meetup_event:%s", eventID)
}

func EventUsersKey(eventID string) string {
	return fmt.Sprintf("meetup_event:%s:meetup_users", eventID)
}

func EventHostsKey(eventID string) string {
	return fmt.Sprintf("meetup_event:%s:meetup_hosts", eventID)
}

// Channel keys.
func ChannelSeriesKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:event_series", channelID)
}

func ChannelRoleKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:discord_role", channelID)
}

func ChannelHostRoleKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:discord_host_role", channelID)
}

func ChannelRemovedUsersKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:removed_users", channelID)
}

func ChannelRemovedHostsKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:removed_hosts", channelID)
}

func ChannelExpirationKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:expiration_time", channelID)
}

func ChannelDeletionKey(channelID string) string {
	return fmt.Sprintf("discord_channel:%s:deletion_time", channelID)
}

// Role keys (reverse bindings back to the owning channel).
func RoleChannelKey(roleID string) string {
	return fmt.Sprintf("discord_role:%s:discord_channel", roleID)
}

func HostRoleChannelKey(roleID string) string {
	return fmt.Sprintf("discord_host_role:%s:discord_channel", roleID)
}

// Identity link keys.
func DiscordUserMeetupKey(discordID string) string {
	return fmt.Sprintf("discord_user:%s:meetup_user", discordID)
}

func MeetupUserDiscordKey(meetupID string) string {
	return fmt.Sprintf("meetup_user:%s:discord_user", meetupID)
}

// LinkTokenKey maps a one-time OAuth linking token back to the Discord user
// id that requested it (identity.DefaultLinkURLGenerator).
func LinkTokenKey(token string) string {
	return fmt.Sprintf("meetup_link_token:%s:discord_user", token)
}
