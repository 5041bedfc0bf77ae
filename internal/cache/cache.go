package cache

import (
	"context"
	"encoding/json"
	"time"
)

// ReportCache holds serialized summary-report responses. Entries expire
// by TTL only; a freshly closed session may be invisible in a cached
// report for up to the TTL.
type ReportCache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (json.RawMessage, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ json.RawMessage, _ time.Duration) error {
	return nil
}
