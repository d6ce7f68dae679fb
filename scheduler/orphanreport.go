package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/guildsync/guildsync/store"
)

// OrphanReporter periodically logs the size of guildsync's orphaned-resource
// sets (spec.md §4.3's orphan bookkeeping has no automatic cleanup by
// design; an operator needs a standing signal to notice and hand-clean
// orphans). Unlike WallClock's dynamically re-arming tasks, this runs on a
// genuinely fixed interval, so it's built on robfig/cron/v3 instead.
type OrphanReporter struct {
	cron *cron.Cron
}

// NewOrphanReporter schedules a report at the given standard cron spec
// (e.g. "0 * * * *" for hourly) against store s.
func NewOrphanReporter(s *store.Client, spec string) (*OrphanReporter, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		channels, err := s.SMembers(ctx, store.OrphanedChannelsSet)
		if err != nil {
			log.Error("orphan report: could not read %s: %v", store.OrphanedChannelsSet, err)
			return
		}
		rolesIDs, err := s.SMembers(ctx, store.OrphanedRolesSet)
		if err != nil {
			log.Error("orphan report: could not read %s: %v", store.OrphanedRolesSet, err)
			return
		}
		if len(channels) == 0 && len(rolesIDs) == 0 {
			return
		}
		log.Warn("orphan report: %d orphaned channel(s), %d orphaned role(s) awaiting manual cleanup", len(channels), len(rolesIDs))
	})
	if err != nil {
		return nil, err
	}
	return &OrphanReporter{cron: c}, nil
}

// Start begins running the reporter in the background.
func (r *OrphanReporter) Start() { r.cron.Start() }

// Stop halts the reporter, waiting for any in-flight run to finish.
func (r *OrphanReporter) Stop() { <-r.cron.Stop().Done() }
