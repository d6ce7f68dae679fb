package chatplatform

import (
	"context"
	"fmt"
	"sync"

	"github.com/guildsync/guildsync/domain"
)

// Fake is an in-memory ChatPlatform used by reconcile/identity/seriessync/
// roles/admin tests (spec.md §8's properties are exercised against it rather
// than a live Discord guild). Adapted from the teacher's table-driven test
// style in integrations/discord/bot_test.go, generalized into a reusable
// stand-in instead of one-off per-test structs.
type Fake struct {
	mu sync.Mutex

	nextID  int
	botID   string
	Members map[string]map[string]bool // userID -> roleID -> held
	Roles   map[string]RoleInfo
	Channels map[string]ChannelInfo
	Messages []FakeMessage
	DMs      []FakeMessage

	// FailNextCreateChannel, when >0, makes the next N CreateChannel calls
	// fail, letting tests exercise reconcile.Ensure's create-failure path.
	FailNextCreateChannel int
}

// FakeMessage records one SendMessage/SendEmbed/SendDirectMessage call.
type FakeMessage struct {
	ChannelID string
	UserID    string
	Content   string
	Embed     Embed
}

// NewFake returns a ready-to-use Fake with no channels, roles or members.
func NewFake(botID string) *Fake {
	return &Fake{
		botID:    botID,
		Members:  map[string]map[string]bool{},
		Roles:    map[string]RoleInfo{},
		Channels: map[string]ChannelInfo{},
	}
}

func (f *Fake) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *Fake) BotUserID(ctx context.Context) (string, error) { return f.botID, nil }

func (f *Fake) GetChannel(ctx context.Context, channelID string) (ChannelInfo, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[channelID]
	return ch, ok, nil
}

func (f *Fake) GetRole(ctx context.Context, roleID string) (RoleInfo, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Roles[roleID]
	return r, ok, nil
}

func (f *Fake) GuildRoles(ctx context.Context) ([]RoleInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RoleInfo, 0, len(f.Roles))
	for _, r := range f.Roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *Fake) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Members[userID][roleID], nil
}

func (f *Fake) AddRole(ctx context.Context, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Roles[roleID]; !ok {
		return fmt.Errorf("add role: %w", domain.ErrRemoteNotFound)
	}
	if f.Members[userID] == nil {
		f.Members[userID] = map[string]bool{}
	}
	f.Members[userID][roleID] = true
	return nil
}

func (f *Fake) RemoveRole(ctx context.Context, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Members[userID], roleID)
	return nil
}

func (f *Fake) CreateChannel(ctx context.Context, name string, overwrites []PermissionOverwrite) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextCreateChannel > 0 {
		f.FailNextCreateChannel--
		return "", fmt.Errorf("create channel: %w", domain.ErrUpstream)
	}
	id := f.genID("chan")
	f.Channels[id] = ChannelInfo{ID: id}
	return id, nil
}

func (f *Fake) CreateRole(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.genID("role")
	f.Roles[id] = RoleInfo{ID: id, Name: name}
	return id, nil
}

func (f *Fake) SetPermissionOverwrite(ctx context.Context, channelID string, o PermissionOverwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Channels[channelID]; !ok {
		return fmt.Errorf("set permission overwrite: %w", domain.ErrRemoteNotFound)
	}
	return nil
}

func (f *Fake) EditChannelTopicAndCategory(ctx context.Context, channelID, topic, categoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[channelID]
	if !ok {
		return fmt.Errorf("edit channel: %w", domain.ErrRemoteNotFound)
	}
	ch.Topic = topic
	if categoryID != "" {
		ch.CategoryID = categoryID
	}
	f.Channels[channelID] = ch
	return nil
}

func (f *Fake) DeleteChannel(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Channels, channelID)
	return nil
}

func (f *Fake) DeleteRole(ctx context.Context, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Roles, roleID)
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, FakeMessage{ChannelID: channelID, Content: content})
	return nil
}

func (f *Fake) SendEmbed(ctx context.Context, channelID string, embed Embed) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, FakeMessage{ChannelID: channelID, Embed: embed})
	return f.genID("msg"), nil
}

func (f *Fake) SendDirectMessage(ctx context.Context, userID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DMs = append(f.DMs, FakeMessage{UserID: userID, Content: content})
	return f.genID("msg"), nil
}

func (f *Fake) SendDirectEmbed(ctx context.Context, userID string, embed Embed) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DMs = append(f.DMs, FakeMessage{UserID: userID, Embed: embed})
	return f.genID("msg"), nil
}

func (f *Fake) React(ctx context.Context, channelID, messageID, emoji string) error {
	return nil
}

var _ ChatPlatform = (*Fake)(nil)
