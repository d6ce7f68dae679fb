// Package identity links and unlinks a Discord account to an Event-Source
// (Meetup-like) account (spec.md §4.2, C2). Grounded on
// original_source/src/discord_bot_commands.rs's link_meetup/
// link_meetup_organizer/unlink_meetup.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/guildsync/guildsync/domain"
	"github.com/guildsync/guildsync/eventsource"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/store"
)

var log = guildlog.New("identity")

// LinkURLGenerator mints the one-time OAuth linking URL a Discord user
// follows to authorize their Event-Source account (the OAuth exchange
// itself is out of scope, spec.md §1).
type LinkURLGenerator interface {
	GenerateLinkURL(ctx context.Context, discordUserID string) (string, error)
}

// Linker implements the self-service and organizer-driven linking commands.
type Linker struct {
	store      *store.Client
	events     eventsource.Client
	linkURLGen LinkURLGenerator
}

// New builds a Linker over the given collaborators.
func New(s *store.Client, events eventsource.Client, linkURLGen LinkURLGenerator) *Linker {
	return &Linker{store: s, events: events, linkURLGen: linkURLGen}
}

// LinkStatus reports what Link found/did, so the command layer can choose
// the right reply without duplicating the lookup.
type LinkStatus int

const (
	// LinkStatusAlreadyLinked means the caller already had a linked
	// Event-Source account (profile is populated when it could be
	// resolved, nil if the Event-Source account itself has disappeared).
	LinkStatusAlreadyLinked LinkStatus = iota
	// LinkStatusURLIssued means a fresh linking URL was generated and
	// should be DM'd to the user.
	LinkStatusURLIssued
)

// Link begins (or reports) the self-service linking flow for a Discord user
// who has not gone through an organizer (spec.md §4.2 "self link"). The
// returned error is domain.ErrAlreadyLinkedSelf (not a failure) when status
// is LinkStatusAlreadyLinked.
func (l *Linker) Link(ctx context.Context, discordUserID string) (LinkStatus, *domain.Profile, string, error) {
	linkedMeetupID, ok, err := l.store.Get(ctx, store.DiscordUserMeetupKey(discordUserID))
	if err != nil {
		return 0, nil, "", err
	}
	if ok {
		profile, perr := l.events.GetMemberProfile(ctx, linkedMeetupID)
		if perr != nil && !eventsource.IsNotFound(perr) {
			return 0, nil, "", perr
		}
		return LinkStatusAlreadyLinked, profile, linkedMeetupID, domain.ErrAlreadyLinkedSelf
	}

	url, err := l.linkURLGen.GenerateLinkURL(ctx, discordUserID)
	if err != nil {
		return 0, nil, "", fmt.Errorf("generate link url: %w", err)
	}
	return LinkStatusURLIssued, nil, url, nil
}

// LinkOrganizerResult is the three-way branch original_source's
// link_meetup_organizer preserves: the fresh bind is the only case that
// actually mutates the store.
type LinkOrganizerResult int

const (
	// LinkOrganizerBound is the success case: the pair was fresh and is now linked.
	LinkOrganizerBound LinkOrganizerResult = iota
	// LinkOrganizerAlreadySelf means this exact pair was already linked.
	LinkOrganizerAlreadySelf
	// LinkOrganizerDiscordTaken means discordUserID is linked to a different
	// Event-Source account.
	LinkOrganizerDiscordTaken
	// LinkOrganizerMeetupTaken means meetupUserID is linked to a different
	// Discord account.
	LinkOrganizerMeetupTaken
)

// LinkOrganizer binds discordUserID to meetupUserID directly, as issued by an
// organizer (spec.md §4.2 "organizer link"). profile is populated only on
// LinkOrganizerBound. The returned error is domain.ErrAlreadyLinkedSelf for
// LinkOrganizerAlreadySelf and domain.ErrAlreadyLinkedOther for
// LinkOrganizerDiscordTaken/LinkOrganizerMeetupTaken — neither is a failure,
// callers branch on the result instead of treating these as errors to log.
func (l *Linker) LinkOrganizer(ctx context.Context, discordUserID, meetupUserID string) (LinkOrganizerResult, *domain.Profile, string, error) {
	existingMeetupID, ok, err := l.store.Get(ctx, store.DiscordUserMeetupKey(discordUserID))
	if err != nil {
		return 0, nil, "", err
	}
	if ok {
		if existingMeetupID == meetupUserID {
			return LinkOrganizerAlreadySelf, nil, existingMeetupID, domain.ErrAlreadyLinkedSelf
		}
		return LinkOrganizerDiscordTaken, nil, existingMeetupID, domain.ErrAlreadyLinkedOther
	}

	existingDiscordID, ok, err := l.store.Get(ctx, store.MeetupUserDiscordKey(meetupUserID))
	if err != nil {
		return 0, nil, "", err
	}
	if ok {
		return LinkOrganizerMeetupTaken, nil, existingDiscordID, domain.ErrAlreadyLinkedOther
	}

	profile, err := l.events.GetMemberProfile(ctx, meetupUserID)
	if err != nil {
		return 0, nil, "", err
	}

	d2m := store.DiscordUserMeetupKey(discordUserID)
	m2d := store.MeetupUserDiscordKey(meetupUserID)
	bound := false
	txnErr := l.store.RunTxn(ctx, []string{d2m, m2d}, func(ctx context.Context, tx *redis.Tx) error {
		_, d2mErr := tx.Get(ctx, d2m).Result()
		_, m2dErr := tx.Get(ctx, m2d).Result()
		d2mTaken := !errors.Is(d2mErr, redis.Nil)
		m2dTaken := !errors.Is(m2dErr, redis.Nil)
		if d2mTaken || m2dTaken {
			// Lost the race between our read above and this transaction:
			// leave bound=false and don't mutate anything.
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, store.MeetupUsersSet, meetupUserID)
			pipe.SAdd(ctx, store.DiscordUsersSet, discordUserID)
			pipe.Set(ctx, d2m, meetupUserID, 0)
			pipe.Set(ctx, m2d, discordUserID, 0)
			return nil
		})
		bound = err == nil
		return err
	})
	if txnErr != nil {
		return 0, nil, "", txnErr
	}
	if !bound {
		log.Warn("link_organizer race lost for discord=%s meetup=%s, asking caller to retry", discordUserID, meetupUserID)
		return 0, nil, "", fmt.Errorf("link organizer race: %w", domain.ErrRaceConflict)
	}
	return LinkOrganizerBound, profile, "", nil
}

// Unlink removes discordUserID's linked Event-Source account, if any.
// wasLinked is false if there was nothing to unlink.
func (l *Linker) Unlink(ctx context.Context, discordUserID string) (wasLinked bool, err error) {
	d2m := store.DiscordUserMeetupKey(discordUserID)
	meetupID, ok, err := l.store.Get(ctx, d2m)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	m2d := store.MeetupUserDiscordKey(meetupID)
	if err := l.store.Del(ctx, d2m, m2d); err != nil {
		return false, err
	}
	return true, nil
}
