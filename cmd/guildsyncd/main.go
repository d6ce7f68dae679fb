// Command guildsyncd runs guildsync: it loads configuration, connects to the
// Chat Platform and Redis Store, wires every reconciliation/command package
// together, and serves until it receives SIGINT/SIGTERM. The raw
// message-ingestion gateway itself is a thin adapter over discordgo's own
// handler registration (spec.md §1: the gateway's retry/backpressure
// internals are out of scope; this only converts a MessageCreate event into
// a commands.IncomingMessage).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/guildsync/guildsync/admin"
	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/commands"
	"github.com/guildsync/guildsync/config"
	"github.com/guildsync/guildsync/eventsource"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/identity"
	"github.com/guildsync/guildsync/scheduler"
	"github.com/guildsync/guildsync/seriessync"
	"github.com/guildsync/guildsync/store"
)

var log = guildlog.New("guildsyncd")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "guildsyncd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	s := store.New(rdb)

	bot, err := chatplatform.NewBot(cfg.DiscordBotToken, cfg.GuildID)
	if err != nil {
		return fmt.Errorf("create chat platform client: %w", err)
	}

	cctx := &config.Context{
		Config: cfg,
		Store:  s,
		Chat:   bot,
		// The Event-Source connector itself is out of scope (spec.md §1);
		// guildsync ships with a client that always reports a profile as
		// not found until a real implementation is wired in.
		Events: eventsource.NewFake(),
	}

	linker := identity.New(s, cctx.Events, identity.NewDefaultLinkURLGenerator(s, "https://guildsync.example/link?token="))
	syncer := seriessync.New(s, bot, cfg)
	adm := admin.New(s, bot, cfg.ClosureGracePeriod)
	clock := scheduler.NewWallClock(ctx)
	defer clock.Close()
	exec := scheduler.NewExecutor(cfg.EventSourceSyncTimeout)

	orphanReporter, err := scheduler.NewOrphanReporter(s, "0 * * * *")
	if err != nil {
		return fmt.Errorf("schedule orphan reporter: %w", err)
	}
	orphanReporter.Start()
	defer orphanReporter.Stop()

	botID, err := bot.BotUserID(ctx)
	if err != nil {
		return fmt.Errorf("fetch bot user id: %w", err)
	}
	handler := commands.NewHandler(cctx, commands.Compile(botID), linker, syncer, adm, clock, exec)

	bot.Session().AddHandler(func(sess *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author.ID == botID {
			return
		}
		if m.GuildID != "" && m.GuildID != cfg.GuildID {
			return
		}
		msg := commands.IncomingMessage{
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Content:   m.Content,
			IsDM:      m.GuildID == "",
		}
		if err := handler.Handle(context.Background(), msg); err != nil {
			log.Error("command handling failed for channel %s: %v", msg.ChannelID, err)
		}
	})

	if err := bot.Open(); err != nil {
		return fmt.Errorf("open chat platform connection: %w", err)
	}
	defer bot.Close()

	scheduleSweeps(clock, syncer, cfg.SweepInterval, cfg.SweepRetryInterval)

	log.Info("guildsyncd started for guild %s", cfg.GuildID)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// scheduleSweeps arms the first seriessync sweep and has every run re-arm
// itself: interval on success, the shorter retry interval on failure
// (spec.md §4.4/§5).
func scheduleSweeps(clock *scheduler.WallClock, syncer *seriessync.Syncer, interval, retryInterval time.Duration) {
	var task scheduler.Task
	task = func(ctx context.Context) scheduler.Result {
		next := interval
		if err := syncer.SweepAll(ctx); err != nil {
			log.Error("event series sweep failed: %v", err)
			next = retryInterval
		}
		return scheduler.Repeat(time.Now().Add(next))
	}
	clock.AddTask(time.Now().Add(interval), task)
}
