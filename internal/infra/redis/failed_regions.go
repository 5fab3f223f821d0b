package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mfenwick/racecollect/internal/core/domain"
)

// retentionTTL keeps failed-region sets around long enough for a weekly
// triage pass.
const retentionTTL = 7 * 24 * time.Hour

func failedKey(kind domain.JobKind, date string) string {
	return fmt.Sprintf("failed_regions:%s:%s", kind, strings.ReplaceAll(date, "/", "-"))
}

// PushFailedRegions records regions that exhausted their budget for one
// kind/date.
func (c *Client) PushFailedRegions(ctx context.Context, kind domain.JobKind, date string, regions []domain.Region) error {
	if len(regions) == 0 {
		return nil
	}

	key := failedKey(kind, date)
	members := make([]interface{}, 0, len(regions))
	for _, r := range regions {
		members = append(members, string(r))
	}

	if err := c.rdb.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("sadd failed regions: %w", err)
	}
	if err := c.rdb.Expire(ctx, key, retentionTTL).Err(); err != nil {
		return fmt.Errorf("expire failed regions: %w", err)
	}
	return nil
}

// FailedRegions returns the recorded failures for one kind/date.
func (c *Client) FailedRegions(ctx context.Context, kind domain.JobKind, date string) ([]domain.Region, error) {
	members, err := c.rdb.SMembers(ctx, failedKey(kind, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed regions: %w", err)
	}

	regions := make([]domain.Region, 0, len(members))
	for _, m := range members {
		regions = append(regions, domain.Region(m))
	}
	return regions, nil
}
