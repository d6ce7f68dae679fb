package reconcile_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/chatplatform"
	"github.com/guildsync/guildsync/reconcile"
	"github.com/guildsync/guildsync/store"
)

func newTestStore(t *testing.T) *store.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return store.New(rdb)
}

func roleSlot(channelID string) reconcile.Slot {
	return reconcile.Slot{
		PrimaryKey:    "discord_channel:" + channelID + ":discord_role",
		OwnerID:       channelID,
		ReverseKeyFor: func(roleID string) string { return "discord_role:" + roleID + ":discord_channel" },
		IndexSet:      "discord_roles",
		OrphanSet:     "orphaned_discord_roles",
	}
}

func TestEnsureCreatesOnFirstCall(t *testing.T) {
	s := newTestStore(t)
	chat := chatplatform.NewFake("bot1")
	ctx := context.Background()
	slot := roleSlot("chan1")

	id, err := reconcile.Ensure(ctx, s, slot,
		func(ctx context.Context, roleID string) (bool, error) { _, ok, _ := chat.GetRole(ctx, roleID); return ok, nil },
		func(ctx context.Context) (string, error) { return chat.CreateRole(ctx, "players") },
		func(ctx context.Context, roleID string) error { return chat.DeleteRole(ctx, roleID) },
	)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := reconcile.Ensure(ctx, s, slot,
		func(ctx context.Context, roleID string) (bool, error) { _, ok, _ := chat.GetRole(ctx, roleID); return ok, nil },
		func(ctx context.Context) (string, error) { return chat.CreateRole(ctx, "players") },
		func(ctx context.Context, roleID string) error { return chat.DeleteRole(ctx, roleID) },
	)
	require.NoError(t, err)
	require.Equal(t, id, again, "second Ensure call must reuse the bound role")
}

// TestEnsureConcurrentCreatorsConvergeOnOneWinner exercises spec.md §8 P2:
// many goroutines racing Ensure over the same slot all observe the same
// final bound id, and every losing temporary role gets deleted.
func TestEnsureConcurrentCreatorsConvergeOnOneWinner(t *testing.T) {
	s := newTestStore(t)
	chat := chatplatform.NewFake("bot1")
	ctx := context.Background()
	slot := roleSlot("chan1")

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			id, err := reconcile.Ensure(ctx, s, slot,
				func(ctx context.Context, roleID string) (bool, error) { _, ok, _ := chat.GetRole(ctx, roleID); return ok, nil },
				func(ctx context.Context) (string, error) { return chat.CreateRole(ctx, fmt.Sprintf("players-%d", i)) },
				func(ctx context.Context, roleID string) error { return chat.DeleteRole(ctx, roleID) },
			)
			require.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		require.Equal(t, ids[0], ids[i], "every racing Ensure call must converge on the same role id")
	}

	roles, err := chat.GuildRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1, "every losing temporary role must have been deleted")
}

func TestEnsureRepairsStaleBinding(t *testing.T) {
	s := newTestStore(t)
	chat := chatplatform.NewFake("bot1")
	ctx := context.Background()
	slot := roleSlot("chan1")

	id, err := reconcile.Ensure(ctx, s, slot,
		func(ctx context.Context, roleID string) (bool, error) { _, ok, _ := chat.GetRole(ctx, roleID); return ok, nil },
		func(ctx context.Context) (string, error) { return chat.CreateRole(ctx, "players") },
		func(ctx context.Context, roleID string) error { return chat.DeleteRole(ctx, roleID) },
	)
	require.NoError(t, err)

	// Simulate the role having been deleted out-of-band on Discord, without
	// Redis hearing about it.
	delete(chat.Roles, id)

	repaired, err := reconcile.Ensure(ctx, s, slot,
		func(ctx context.Context, roleID string) (bool, error) { _, ok, _ := chat.GetRole(ctx, roleID); return ok, nil },
		func(ctx context.Context) (string, error) { return chat.CreateRole(ctx, "players") },
		func(ctx context.Context, roleID string) error { return chat.DeleteRole(ctx, roleID) },
	)
	require.NoError(t, err)
	require.NotEqual(t, id, repaired, "a stale binding must be replaced by a freshly created role")
}
