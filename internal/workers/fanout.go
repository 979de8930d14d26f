package workers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"launchpro/internal/campaign"
)

// forEach fans a batch out with bounded parallelism. Item closures record
// their own outcome and always return nil, so one campaign's failure never
// cancels its siblings.
func forEach(ctx context.Context, limit int, items []*campaign.Campaign, fn func(context.Context, *campaign.Campaign)) {
	if limit <= 0 {
		limit = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for _, item := range items {
		item := item
		group.Go(func() error {
			fn(groupCtx, item)
			return nil
		})
	}
	_ = group.Wait()
}
