package chatplatform

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Bot is the discordgo-backed ChatPlatform implementation, adapted from the
// teacher's integrations/discord.Bot: same session-ownership shape, narrowed
// to a single guild and to the operations spec.md §6 names.
type Bot struct {
	token   string
	guildID string
	session *discordgo.Session
}

// NewBot creates (but does not open) a discordgo session bound to token,
// scoped to guildID.
// guildsync never joins more than one guild (spec.md §1 Non-goals).
func NewBot(token, guildID string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers
	return &Bot{
		token:   token,
		guildID: guildID,
		session: session,
	}, nil
}

// Open starts the gateway connection. Callers must Close it on shutdown.
func (b *Bot) Open() error  { return b.session.Open() }
func (b *Bot) Close() error { return b.session.Close() }

// Session exposes the underlying discordgo session for the command router,
// which registers its own message-create handler.
func (b *Bot) Session() *discordgo.Session { return b.session }

// GuildID returns the single guild this Bot operates in.
func (b *Bot) GuildID() string { return b.guildID }
