package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guildsync/guildsync/admin"
	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/config"
	"github.com/guildsync/guildsync/domain"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/identity"
	"github.com/guildsync/guildsync/scheduler"
	"github.com/guildsync/guildsync/seriessync"
)

var log = guildlog.New("commands")

// IncomingMessage is the minimal shape a chat-event gateway (out of scope,
// spec.md §1) would hand to Handle: who sent it, where, and whether the
// channel is a direct message.
type IncomingMessage struct {
	ChannelID string
	AuthorID  string
	Content   string
	IsDM      bool
}

// Handler ties the compiled Regexes to the packages that actually carry out
// a command: identity for linking, seriessync/roles for synchronization,
// admin for channel membership and closure, scheduler for the two
// asynchronous commands. It holds no state of its own beyond its
// collaborators, consistent with spec.md §9's explicit-context decision
// (config.Context).
type Handler struct {
	regexes *Regexes
	cctx    *config.Context
	linker  *identity.Linker
	syncer  *seriessync.Syncer
	admin   *admin.Admin
	clock   *scheduler.WallClock
	exec    *scheduler.Executor

	// EventSourceSync runs the "sync meetup" command's background refresh.
	// The Event-Source connector itself is out of scope (spec.md §1); by
	// default this is a no-op so the command still round-trips cleanly in
	// deployments that don't wire one in.
	EventSourceSync func(ctx context.Context) error

	// ExpirationReminder runs the "remind expiration" command's background
	// task. End-of-game reminder content is out of scope (spec.md §1
	// Non-goals); nil means the task is submitted but does nothing.
	ExpirationReminder func(ctx context.Context) error
}

// NewHandler builds a Handler over the given collaborators and a regex set
// already compiled (by Compile) against the Chat Platform's own bot id.
func NewHandler(cctx *config.Context, regexes *Regexes, linker *identity.Linker, syncer *seriessync.Syncer, adm *admin.Admin, clock *scheduler.WallClock, exec *scheduler.Executor) *Handler {
	return &Handler{regexes: regexes, cctx: cctx, linker: linker, syncer: syncer, admin: adm, clock: clock, exec: exec}
}

// Handle routes msg through Route and, on a match, runs the corresponding
// command. It returns nil (having already replied) for every recognized
// command, even ones that fail for user-facing reasons (wrong permissions,
// bad input); it returns a non-nil error only for unexpected I/O failures
// the caller should log.
func (h *Handler) Handle(ctx context.Context, msg IncomingMessage) error {
	match, ok := h.regexes.Route(msg.Content, msg.IsDM)
	if !ok {
		return nil
	}
	switch match.Kind {
	case KindStop:
		return h.handleStop(ctx, msg)
	case KindLinkMeetup:
		return h.handleLinkMeetup(ctx, msg)
	case KindLinkMeetupOrganizer:
		return h.handleLinkMeetupOrganizer(ctx, msg, match)
	case KindUnlinkMeetup:
		return h.handleUnlink(ctx, msg, msg.AuthorID, false)
	case KindUnlinkMeetupOrganizer:
		return h.handleUnlink(ctx, msg, match.DiscordID, true)
	case KindSyncMeetup:
		return h.handleSyncMeetup(ctx, msg)
	case KindSyncDiscord:
		return h.handleSyncDiscord(ctx, msg)
	case KindSendExpirationReminder:
		return h.handleExpirationReminder(ctx, msg)
	case KindAddUser:
		return h.handleAddOrRemove(ctx, msg, match.DiscordID, true, false)
	case KindAddHost:
		return h.handleAddOrRemove(ctx, msg, match.DiscordID, true, true)
	case KindRemoveUser:
		return h.handleAddOrRemove(ctx, msg, match.DiscordID, false, false)
	case KindRemoveHost:
		return h.handleAddOrRemove(ctx, msg, match.DiscordID, false, true)
	case KindCloseChannel:
		return h.handleCloseChannel(ctx, msg)
	default:
		return nil
	}
}

// requireOrganizer replies and reports ok=false if the caller lacks the
// organizer role. Once the reply is sent, the returned error is
// domain.ErrPermissionDenied rather than nil, so the denial is classifiable
// with errors.Is; callers swallow it back to nil via swallowHandled.
func (h *Handler) requireOrganizer(ctx context.Context, msg IncomingMessage) (bool, error) {
	isOrganizer, err := h.cctx.Chat.HasRole(ctx, msg.AuthorID, h.cctx.Config.OrganizerRoleID)
	if err != nil {
		return false, err
	}
	if !isOrganizer {
		if err := h.say(ctx, msg, "Sorry, you need to be an organiser to do that"); err != nil {
			return false, err
		}
		return false, domain.ErrPermissionDenied
	}
	return true, nil
}

// swallowHandled turns a denial sentinel whose reply has already been sent
// into nil, so Handle keeps its contract of returning an error only for
// unexpected I/O failures.
func swallowHandled(err error) error {
	if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrSchemaViolation) {
		return nil
	}
	return err
}

func (h *Handler) handleStop(ctx context.Context, msg IncomingMessage) error {
	ok, err := h.requireOrganizer(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	// Process lifecycle management (the original shells out to
	// "systemctl stop bot") is out of scope here; guildsync only closes
	// down the scheduler so no further sweeps fire.
	h.clock.Close()
	return nil
}

func (h *Handler) handleLinkMeetup(ctx context.Context, msg IncomingMessage) error {
	status, profile, extra, err := h.linker.Link(ctx, msg.AuthorID)
	if err != nil && !errors.Is(err, domain.ErrAlreadyLinkedSelf) {
		log.Error("link meetup for %s failed: %v", msg.AuthorID, err)
		return h.say(ctx, msg, "Sorry, something went wrong")
	}
	switch status {
	case identity.LinkStatusAlreadyLinked:
		if profile != nil {
			_, err = h.cctx.Chat.SendDirectMessage(ctx, msg.AuthorID, fmt.Sprintf("You are already linked to Meetup account %q", profile.Name))
		} else {
			_, err = h.cctx.Chat.SendDirectMessage(ctx, msg.AuthorID, fmt.Sprintf("Your linked Meetup account (id %s) does not seem to exist anymore", extra))
		}
	case identity.LinkStatusURLIssued:
		_, err = h.cctx.Chat.SendDirectMessage(ctx, msg.AuthorID, fmt.Sprintf("Visit the following link to connect your Meetup profile: %s", extra))
	}
	if err != nil {
		log.Error("could not send Meetup linking DM to %s: %v", msg.AuthorID, err)
		return h.say(ctx, msg, "There was an error trying to send you instructions.")
	}
	return nil
}

func (h *Handler) handleLinkMeetupOrganizer(ctx context.Context, msg IncomingMessage, match Match) error {
	ok, err := h.requireOrganizer(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	result, profile, extra, err := h.linker.LinkOrganizer(ctx, match.DiscordID, match.MeetupID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyLinkedSelf), errors.Is(err, domain.ErrAlreadyLinkedOther):
			// Not a failure: result below carries which specific reply to send.
		case errors.Is(err, domain.ErrRaceConflict):
			return h.say(ctx, msg, "Could not assign Meetup id (timing error)")
		default:
			log.Error("organizer link failed: %v", err)
			return h.say(ctx, msg, "Sorry, something went wrong")
		}
	}
	switch result {
	case identity.LinkOrganizerAlreadySelf:
		return h.say(ctx, msg, fmt.Sprintf("All good, this Meetup account was already linked to <@%s>", match.DiscordID))
	case identity.LinkOrganizerDiscordTaken:
		return h.say(ctx, msg, fmt.Sprintf("<@%s> is already linked to a different Meetup account. To change this, unlink it first with:\n%s unlink meetup <@%s>", match.DiscordID, h.regexes.BotMention, match.DiscordID))
	case identity.LinkOrganizerMeetupTaken:
		_, err := h.cctx.Chat.SendDirectMessage(ctx, match.DiscordID, fmt.Sprintf("This Meetup account is already linked to <@%s>. To change this, unlink it first with:\n%s unlink meetup <@%s>", extra, h.regexes.BotMention, extra))
		return err
	case identity.LinkOrganizerBound:
		name := match.MeetupID
		if profile != nil {
			name = profile.Name
		}
		_, err := h.cctx.Chat.SendEmbed(ctx, msg.ChannelID, embedForLink(match.DiscordID, name, profile))
		return err
	}
	return nil
}

func embedForLink(discordID, meetupName string, profile *domain.Profile) chatplatform.Embed {
	e := chatplatform.Embed{
		Title:       "Linked Meetup account",
		Description: fmt.Sprintf("Successfully linked <@%s> to %s's Meetup account", discordID, meetupName),
	}
	if profile != nil {
		e.ImageURL = profile.PhotoURL
	}
	return e
}

func (h *Handler) handleUnlink(ctx context.Context, msg IncomingMessage, discordID string, isOrganizerCommand bool) error {
	if isOrganizerCommand {
		ok, err := h.requireOrganizer(ctx, msg)
		if err != nil || !ok {
			return swallowHandled(err)
		}
	}
	wasLinked, err := h.linker.Unlink(ctx, discordID)
	if err != nil {
		log.Error("unlink for %s failed: %v", discordID, err)
		return h.say(ctx, msg, "Sorry, something went wrong")
	}
	switch {
	case wasLinked && isOrganizerCommand:
		return h.say(ctx, msg, fmt.Sprintf("Unlinked <@%s>'s Meetup account", discordID))
	case wasLinked:
		return h.say(ctx, msg, "Your Meetup account has been unlinked")
	case isOrganizerCommand:
		return h.say(ctx, msg, fmt.Sprintf("There was seemingly no Meetup account linked to <@%s>", discordID))
	default:
		return h.say(ctx, msg, "There doesn't seem to be a Meetup account linked to your Discord account")
	}
}

func (h *Handler) handleSyncMeetup(ctx context.Context, msg IncomingMessage) error {
	ok, err := h.requireOrganizer(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	if h.EventSourceSync != nil {
		result := h.exec.Submit(context.Background(), h.EventSourceSync)
		go func() {
			if err := <-result; err != nil {
				if errors.Is(err, domain.ErrTimeout) {
					log.Error("Meetup synchronization task timed out: %v", err)
				} else {
					log.Error("Meetup synchronization task failed: %v", err)
				}
			}
		}()
	}
	return h.say(ctx, msg, "Started asynchronous Meetup synchronization task")
}

func (h *Handler) handleSyncDiscord(ctx context.Context, msg IncomingMessage) error {
	ok, err := h.requireOrganizer(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	h.clock.AddTask(time.Now(), func(taskCtx context.Context) scheduler.Result {
		if err := h.syncer.SweepAll(taskCtx); err != nil {
			log.Error("Discord synchronization task failed: %v", err)
		}
		return scheduler.Done()
	})
	return h.say(ctx, msg, "Started Discord synchronization task")
}

func (h *Handler) handleExpirationReminder(ctx context.Context, msg IncomingMessage) error {
	ok, err := h.requireOrganizer(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	h.clock.AddTask(time.Now(), func(taskCtx context.Context) scheduler.Result {
		if h.ExpirationReminder != nil {
			if err := h.ExpirationReminder(taskCtx); err != nil {
				log.Error("expiration reminder task failed: %v", err)
			}
		}
		return scheduler.Done()
	})
	return h.say(ctx, msg, "Started expiration reminder task")
}

func (h *Handler) channelAdminGate(ctx context.Context, msg IncomingMessage) (domain.ChannelRoles, bool, error) {
	roles, status, err := admin.GetChannelRoles(ctx, h.cctx.Store, msg.ChannelID)
	if err != nil {
		if errors.Is(err, domain.ErrSchemaViolation) {
			if sayErr := h.say(ctx, msg, "This channel's bookkeeping looks corrupted, ask an organiser to investigate"); sayErr != nil {
				return domain.ChannelRoles{}, false, sayErr
			}
			return domain.ChannelRoles{}, false, err
		}
		return domain.ChannelRoles{}, false, err
	}
	if status != admin.ChannelControlled {
		return domain.ChannelRoles{}, false, h.say(ctx, msg, "This channel is not managed by the bot")
	}
	isAdmin, err := admin.IsChannelAdmin(ctx, h.cctx.Chat, msg.AuthorID, h.cctx.Config.OrganizerRoleID, roles)
	if err != nil {
		return domain.ChannelRoles{}, false, err
	}
	if !isAdmin {
		if sayErr := h.say(ctx, msg, "Sorry, you need to be an organiser or this channel's host to do that"); sayErr != nil {
			return domain.ChannelRoles{}, false, sayErr
		}
		return domain.ChannelRoles{}, false, domain.ErrPermissionDenied
	}
	return roles, true, nil
}

func (h *Handler) handleAddOrRemove(ctx context.Context, msg IncomingMessage, discordID string, add, asHost bool) error {
	_, ok, err := h.channelAdminGate(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	if err := h.admin.AddOrRemoveUser(ctx, msg.ChannelID, discordID, add, asHost); err != nil {
		log.Error("add/remove user failed: %v", err)
		return h.say(ctx, msg, "Something went wrong")
	}
	return nil
}

func (h *Handler) handleCloseChannel(ctx context.Context, msg IncomingMessage) error {
	_, ok, err := h.channelAdminGate(ctx, msg)
	if err != nil || !ok {
		return swallowHandled(err)
	}
	scheduled, alreadyMarked, notYetCloseable, err := h.admin.CloseChannel(ctx, msg.ChannelID)
	if err != nil {
		log.Error("close channel failed: %v", err)
		return h.say(ctx, msg, "Something went wrong")
	}
	switch {
	case notYetCloseable:
		return h.say(ctx, msg, "This channel's event hasn't happened yet, so it cannot be closed")
	case alreadyMarked:
		return h.say(ctx, msg, "This channel is already scheduled to be closed")
	case scheduled:
		return h.say(ctx, msg, "This channel has been scheduled to be closed")
	}
	return nil
}

func (h *Handler) say(ctx context.Context, msg IncomingMessage, content string) error {
	return h.cctx.Chat.SendMessage(ctx, msg.ChannelID, content)
}
