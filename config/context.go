package config

import (
	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/eventsource"
	"github.com/guildsync/guildsync/store"
)

// Context bundles the handles every command and sync package needs.
// original_source kept these in a serenity type-keyed global map
// (RedisConnectionKey, MeetupClientKey, BotIdKey, ...); spec.md §9 replaces
// that with this explicit struct passed to constructors instead.
type Context struct {
	Config *Config
	Store  *store.Client
	Chat   chatplatform.ChatPlatform
	Events eventsource.Client
}
