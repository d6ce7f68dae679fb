package commands

import "regexp"

// Kind identifies which command a message matched.
type Kind int

const (
	KindNone Kind = iota
	KindStop
	KindLinkMeetup
	KindLinkMeetupOrganizer
	KindUnlinkMeetup
	KindUnlinkMeetupOrganizer
	KindSyncMeetup
	KindSyncDiscord
	KindAddUser
	KindAddHost
	KindRemoveUser
	KindRemoveHost
	KindSendExpirationReminder
	KindCloseChannel
)

// Match is what Route found: the command kind plus whatever ids the
// pattern captured.
type Match struct {
	Kind      Kind
	DiscordID string
	MeetupID  string
}

// Route normalizes text the way original_source's message handler does
// (DM-with-mention-prefix is treated as an addressed, non-DM message) and
// tries every compiled pattern in the same priority order the original
// if/else chain used, returning the first match.
//
// isDM tells Route whether text arrived over a direct message channel;
// Route itself handles the "DM that still starts with the bot mention"
// flip (original_source/src/discord_bot.rs lines 157-171).
func (r *Regexes) Route(text string, isDM bool) (Match, bool) {
	effectiveDM := isDM
	if isDM && hasPrefix(text, r.BotMention) {
		effectiveDM = false
	}
	if !effectiveDM && !isDM && !hasPrefix(text, r.BotMention) {
		return Match{}, false
	}

	if r.stopRegex(effectiveDM).MatchString(text) {
		return Match{Kind: KindStop}, true
	}
	if r.linkMeetupRegex(effectiveDM).MatchString(text) {
		return Match{Kind: KindLinkMeetup}, true
	}
	if m, ok := matchLinkOrganizer(r.linkMeetupOrganizerRegex(effectiveDM), text); ok {
		return m, true
	}
	if r.unlinkMeetupRegex(effectiveDM).MatchString(text) {
		return Match{Kind: KindUnlinkMeetup}, true
	}
	if m, ok := matchMentionOnly(r.unlinkMeetupOrganizerRegex(effectiveDM), text, KindUnlinkMeetupOrganizer); ok {
		return m, true
	}
	if r.SyncMeetupMention.MatchString(text) {
		return Match{Kind: KindSyncMeetup}, true
	}
	if r.SyncDiscordMention.MatchString(text) {
		return Match{Kind: KindSyncDiscord}, true
	}
	if r.SendExpirationReminderOrganizerMention.MatchString(text) {
		return Match{Kind: KindSendExpirationReminder}, true
	}
	if m, ok := matchMentionOnly(r.AddUserMention, text, KindAddUser); ok {
		return m, true
	}
	if m, ok := matchMentionOnly(r.AddHostMention, text, KindAddHost); ok {
		return m, true
	}
	if m, ok := matchMentionOnly(r.RemoveUserMention, text, KindRemoveUser); ok {
		return m, true
	}
	if m, ok := matchMentionOnly(r.RemoveHostMention, text, KindRemoveHost); ok {
		return m, true
	}
	if r.CloseChannelHostMention.MatchString(text) {
		return Match{Kind: KindCloseChannel}, true
	}
	return Match{}, false
}

func (r *Regexes) stopRegex(isDM bool) *regexp.Regexp {
	if isDM {
		return r.StopOrganizerDM
	}
	return r.StopOrganizerMention
}

func (r *Regexes) linkMeetupRegex(isDM bool) *regexp.Regexp {
	if isDM {
		return r.LinkMeetupDM
	}
	return r.LinkMeetupMention
}

func (r *Regexes) linkMeetupOrganizerRegex(isDM bool) *regexp.Regexp {
	if isDM {
		return r.LinkMeetupOrganizerDM
	}
	return r.LinkMeetupOrganizerMention
}

func (r *Regexes) unlinkMeetupRegex(isDM bool) *regexp.Regexp {
	if isDM {
		return r.UnlinkMeetupDM
	}
	return r.UnlinkMeetupMention
}

func (r *Regexes) unlinkMeetupOrganizerRegex(isDM bool) *regexp.Regexp {
	if isDM {
		return r.UnlinkMeetupOrganizerDM
	}
	return r.UnlinkMeetupOrganizerMention
}

func matchLinkOrganizer(re *regexp.Regexp, text string) (Match, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Match{}, false
	}
	var discordID, meetupID string
	for i, name := range re.SubexpNames() {
		switch name {
		case "mention_id":
			discordID = m[i]
		case "meetupid":
			meetupID = m[i]
		}
	}
	return Match{Kind: KindLinkMeetupOrganizer, DiscordID: discordID, MeetupID: meetupID}, true
}

func matchMentionOnly(re *regexp.Regexp, text string, kind Kind) (Match, bool) {
	discordID, ok := namedGroup(re, text, "mention_id")
	if !ok {
		return Match{}, false
	}
	return Match{Kind: kind, DiscordID: discordID}, true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
