package eviction

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
)

// DefaultMaxEntries bounds the image partition.
const DefaultMaxEntries = 50

// EnforceLimit deletes the oldest entries of p until at most limit remain and
// returns how many were removed. A negative limit is treated as zero.
func EnforceLimit(ctx context.Context, p *partition.Partition, limit int) (int, error) {
	if limit < 0 {
		limit = 0
	}
	keys, err := p.Keys(ctx)
	if err != nil {
		return 0, err
	}
	excess := len(keys) - limit
	if excess <= 0 {
		return 0, nil
	}

	removed := 0
	for _, key := range keys[:excess] {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		deleted, err := p.DeleteKey(ctx, key)
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}

// Policy bounds one named partition. It never creates the partition.
type Policy struct {
	registry     *partition.Registry
	name         string
	maxEntries   int
	metadataSink metadata.MetadataSink
}

func NewPolicy(registry *partition.Registry, name string, maxEntries int, metadataSink metadata.MetadataSink) *Policy {
	return &Policy{
		registry:     registry,
		name:         name,
		maxEntries:   maxEntries,
		metadataSink: metadataSink,
	}
}

func (p *Policy) Partition() string {
	return p.name
}

// Clean enforces the limit once and records the outcome.
func (p *Policy) Clean(ctx context.Context) (int, error) {
	handle := p.registry.Partition(p.name)
	removed, err := EnforceLimit(ctx, handle, p.maxEntries)
	if err != nil {
		p.metadataSink.RecordError(
			time.Now(),
			"eviction",
			"Policy.Clean",
			metadata.CauseStorageFailure,
			err.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrPartition, p.name)},
		)
		return removed, fmt.Errorf("evict %s: %w", p.name, err)
	}

	remaining, err := handle.Count(ctx)
	if err != nil {
		remaining = -1
	}
	p.metadataSink.RecordEviction(p.name, removed, remaining)
	return removed, nil
}
