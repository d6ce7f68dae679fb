// Package commands implements guildsync's text command surface: the
// compiled regex set a Discord message is matched against, and the
// dispatcher that turns a match into a call against identity, seriessync,
// roles, admin and scheduler (spec.md §4.10/§9). Grounded on
// original_source/src/discord_bot_commands.rs::compile_regexes and
// original_source/src/discord_bot.rs's message handler.
package commands

import (
	"fmt"
	"regexp"
)

// mentionPattern matches a Discord user mention and captures its snowflake
// id, mirroring original_source's MENTION_PATTERN.
const mentionPattern = `<@(?P<mention_id>[0-9]+)>`

// Regexes is every compiled pattern a message is tried against, plus the
// literal mention string used both to detect an addressed (non-DM-style)
// message and to build the rest of the patterns.
type Regexes struct {
	BotMention string

	LinkMeetupDM               *regexp.Regexp
	LinkMeetupMention          *regexp.Regexp
	LinkMeetupOrganizerDM      *regexp.Regexp
	LinkMeetupOrganizerMention *regexp.Regexp

	UnlinkMeetupDM               *regexp.Regexp
	UnlinkMeetupMention          *regexp.Regexp
	UnlinkMeetupOrganizerDM      *regexp.Regexp
	UnlinkMeetupOrganizerMention *regexp.Regexp

	SyncMeetupMention  *regexp.Regexp
	SyncDiscordMention *regexp.Regexp

	AddUserMention    *regexp.Regexp
	AddHostMention    *regexp.Regexp
	RemoveUserMention *regexp.Regexp
	RemoveHostMention *regexp.Regexp

	StopOrganizerDM      *regexp.Regexp
	StopOrganizerMention *regexp.Regexp

	SendExpirationReminderOrganizerMention *regexp.Regexp
	CloseChannelHostMention                *regexp.Regexp
}

// Compile builds the full Regexes set addressed at botID, the bot's own
// Discord snowflake.
func Compile(botID string) *Regexes {
	botMention := fmt.Sprintf("<@%s>", botID)

	linkMeetupOrganizer := fmt.Sprintf(`link[ -]?meetup\s+%s\s+(?P<meetupid>[0-9]+)`, mentionPattern)
	unlinkMeetup := `unlink[ -]?meetup`
	unlinkMeetupOrganizer := fmt.Sprintf(`unlink[ -]?meetup\s+%s`, mentionPattern)

	return &Regexes{
		BotMention: botMention,

		LinkMeetupDM:               regexp.MustCompile(`^link[ -]?meetup\s*$`),
		LinkMeetupMention:          regexp.MustCompile(fmt.Sprintf(`^%s\s+link[ -]?meetup\s*$`, botMention)),
		LinkMeetupOrganizerDM:      regexp.MustCompile(fmt.Sprintf(`^%s\s*$`, linkMeetupOrganizer)),
		LinkMeetupOrganizerMention: regexp.MustCompile(fmt.Sprintf(`^%s\s+%s\s*$`, botMention, linkMeetupOrganizer)),

		UnlinkMeetupDM:               regexp.MustCompile(fmt.Sprintf(`^%s\s*$`, unlinkMeetup)),
		UnlinkMeetupMention:          regexp.MustCompile(fmt.Sprintf(`^%s\s+%s\s*$`, botMention, unlinkMeetup)),
		UnlinkMeetupOrganizerDM:      regexp.MustCompile(fmt.Sprintf(`^%s\s*$`, unlinkMeetupOrganizer)),
		UnlinkMeetupOrganizerMention: regexp.MustCompile(fmt.Sprintf(`^%s\s+%s\s*$`, botMention, unlinkMeetupOrganizer)),

		SyncMeetupMention:  regexp.MustCompile(fmt.Sprintf(`^%s\s+sync\s+meetup\s*$`, botMention)),
		SyncDiscordMention: regexp.MustCompile(fmt.Sprintf(`^%s\s+sync\s+discord\s*$`, botMention)),

		AddUserMention:    regexp.MustCompile(fmt.Sprintf(`^%s\s+add\s+%s\s*$`, botMention, mentionPattern)),
		AddHostMention:    regexp.MustCompile(fmt.Sprintf(`^%s\s+add\s+host\s+%s\s*$`, botMention, mentionPattern)),
		RemoveUserMention: regexp.MustCompile(fmt.Sprintf(`^%s\s+remove\s+%s\s*$`, botMention, mentionPattern)),
		RemoveHostMention: regexp.MustCompile(fmt.Sprintf(`^%s\s+remove\s+host\s+%s\s*$`, botMention, mentionPattern)),

		StopOrganizerDM:      regexp.MustCompile(`(?i)^stop\s*$`),
		StopOrganizerMention: regexp.MustCompile(fmt.Sprintf(`(?i)^%s\s+stop\s*$`, regexp.QuoteMeta(botMention))),

		SendExpirationReminderOrganizerMention: regexp.MustCompile(fmt.Sprintf(`(?i)^%s\s+remind\s+expiration\s*$`, regexp.QuoteMeta(botMention))),
		CloseChannelHostMention:                regexp.MustCompile(fmt.Sprintf(`(?i)^%s\s+close\s+channel\s*$`, regexp.QuoteMeta(botMention))),
	}
}

func namedGroup(re *regexp.Regexp, s, name string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	for i, n := range re.SubexpNames() {
		if n == name {
			return m[i], true
		}
	}
	return "", false
}
