// Package reconcile implements the create-or-reuse-or-repair pattern
// (spec.md §4.3, C3) that seriessync uses for both channels and roles.
// Grounded on original_source/src/discord_sync.rs's sync_role/sync_role_impl
// and sync_channel/sync_channel_impl, which are the same algorithm
// instantiated three times in the Rust original; this package generalizes it
// into one Slot-parameterised function instead of repeating it.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/guildsync/guildsync/domain"
	"github.com/guildsync/guildsync/guildlog"
	"github.com/guildsync/guildsync/store"
)

var log = guildlog.New("reconcile")

// maxRepairRetries bounds the "role/channel vanished underneath us" repair
// loop (spec.md §4.3 step 2: "bounded retry budget, 1 additional attempt in
// current design").
const maxRepairRetries = 1

// Slot names the keys binding a reconciled remote resource (channel or
// role) to its owner and to the set it's indexed under.
type Slot struct {
	// PrimaryKey holds the remote resource id once bound (e.g.
	// event_series:{seriesID}:discord_channel, or
	// discord_channel:{channelID}:discord_role).
	PrimaryKey string
	// OwnerID is the value written to the reverse key: it identifies
	// whatever PrimaryKey's owner is (e.g. the channel id a role belongs to).
	OwnerID string
	// ReverseKeyFor builds the reverse-lookup key for a bound remote id
	// (e.g. "discord_role:{remoteID}:discord_channel"), written atomically
	// alongside PrimaryKey with value OwnerID.
	ReverseKeyFor func(remoteID string) string
	// IndexSet is the global set the remote id is added to/removed from
	// (e.g. discord_roles, discord_channels).
	IndexSet string
	// OrphanSet is where a remote id goes if it was created but Redis
	// could neither bind it nor be told to discard it cleanly.
	OrphanSet string
}

// CreateFunc creates a brand-new remote resource and returns its id.
type CreateFunc func(ctx context.Context) (remoteID string, err error)

// ExistsFunc reports whether a remote id still exists (spec.md §4.3 step 1's
// liveness probe, checked against the live Chat Platform rather than trusting
// a stale Redis value).
type ExistsFunc func(ctx context.Context, remoteID string) (bool, error)

// DeleteFunc deletes a remote resource by id, used to discard a losing
// bind-or-discard attempt or a confirmed-stale binding.
type DeleteFunc func(ctx context.Context, remoteID string) error

// Ensure returns the remote id bound to slot.PrimaryKey, creating one if none
// is bound yet, and repairing the binding if the previously-bound id no
// longer exists remotely (spec.md §4.3).
func Ensure(ctx context.Context, s *store.Client, slot Slot, exists ExistsFunc, create CreateFunc, del DeleteFunc) (string, error) {
	for attempt := 0; ; attempt++ {
		// Fast path: already bound.
		current, ok, err := s.Get(ctx, slot.PrimaryKey)
		if err != nil {
			return "", err
		}
		if ok {
			live, err := exists(ctx, current)
			if err != nil {
				return "", err
			}
			if live {
				return current, nil
			}
			if attempt >= maxRepairRetries {
				return "", fmt.Errorf("reconcile %s: %w", slot.PrimaryKey, domain.ErrRaceConflict)
			}
			// Repair: the bound id is stale. Remove it if it's still the
			// one on record (it may have been repaired by a concurrent
			// caller already).
			repaired := false
			err = s.RunTxn(ctx, []string{slot.PrimaryKey}, func(ctx context.Context, tx *redis.Tx) error {
				stillCurrent, terr := tx.Get(ctx, slot.PrimaryKey).Result()
				if errors.Is(terr, redis.Nil) {
					repaired = true
					return nil
				}
				if terr != nil {
					return terr
				}
				if stillCurrent != current {
					// Someone else already repaired it; retry the outer
					// loop and look at whatever is there now.
					return nil
				}
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, slot.PrimaryKey)
					pipe.Del(ctx, slot.ReverseKeyFor(current))
					pipe.SRem(ctx, slot.IndexSet, current)
					return nil
				})
				repaired = err == nil
				return err
			})
			if err != nil {
				return "", err
			}
			log.Info("repaired stale binding %s (was %s, repaired=%v)", slot.PrimaryKey, current, repaired)
			continue
		}

		// Not bound: create, then try to bind. Two callers can race here;
		// the loser discards its own temporary resource.
		remoteID, err := create(ctx)
		if err != nil {
			return "", err
		}

		bound := ""
		txnErr := s.RunTxn(ctx, []string{slot.PrimaryKey}, func(ctx context.Context, tx *redis.Tx) error {
			existing, terr := tx.Get(ctx, slot.PrimaryKey).Result()
			if terr != nil && !errors.Is(terr, redis.Nil) {
				return terr
			}
			if terr == nil {
				// Someone else already bound this slot; keep their winner.
				bound = existing
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SAdd(ctx, slot.IndexSet, remoteID)
				pipe.Set(ctx, slot.PrimaryKey, remoteID, 0)
				pipe.Set(ctx, slot.ReverseKeyFor(remoteID), slot.OwnerID, 0)
				return nil
			})
			if err == nil {
				bound = remoteID
			}
			return err
		})
		if txnErr != nil {
			return "", txnErr
		}

		if bound == remoteID {
			return bound, nil
		}

		// We lost the race: our temporary resource is unused. Discard it,
		// falling back to orphan bookkeeping if the delete itself fails.
		if err := del(ctx, remoteID); err != nil {
			log.Error("could not delete losing temporary resource %s: %v", remoteID, err)
			if serr := s.SAdd(ctx, slot.OrphanSet, remoteID); serr != nil {
				log.Error("could not record orphaned resource %s: %v", remoteID, serr)
			}
		}
		return bound, nil
	}
}
