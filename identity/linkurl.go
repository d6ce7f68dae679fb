package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guildsync/guildsync/store"
)

// linkTokenTTL bounds how long an unused linking token stays valid. The
// actual OAuth exchange that redeems it is out of scope (spec.md §1); this
// only covers minting and recording the token so the exchange has something
// to look up the requesting Discord user by.
const linkTokenTTL = 15 * time.Minute

// DefaultLinkURLGenerator mints a one-time token, records it against the
// requesting Discord user, and appends it to baseURL. It satisfies
// LinkURLGenerator.
type DefaultLinkURLGenerator struct {
	store   *store.Client
	baseURL string
}

// NewDefaultLinkURLGenerator returns a generator that appends its tokens to
// baseURL (e.g. "https://guildsync.example/link?token=").
func NewDefaultLinkURLGenerator(s *store.Client, baseURL string) *DefaultLinkURLGenerator {
	return &DefaultLinkURLGenerator{store: s, baseURL: baseURL}
}

func (g *DefaultLinkURLGenerator) GenerateLinkURL(ctx context.Context, discordUserID string) (string, error) {
	token := uuid.NewString()
	if err := g.store.Raw().Set(ctx, store.LinkTokenKey(token), discordUserID, linkTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("record link token: %w", err)
	}
	return g.baseURL + token, nil
}

var _ LinkURLGenerator = (*DefaultLinkURLGenerator)(nil)
