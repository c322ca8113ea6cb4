package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/catalog-backend/internal/media"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

const (
	orphanBlobSweepName      = "orphan_blob_sweep"
	defaultOrphanGracePeriod = 24 * time.Hour
)

type referencedKeySource interface {
	ReferencedKeys(ctx context.Context) ([]string, error)
}

type OrphanBlobSweepJobParams struct {
	Logger      *logger.Logger
	Store       storage.ObjectStore
	Images      referencedKeySource
	Metrics     *metrics.CronJobMetrics
	GracePeriod time.Duration
	DryRun      bool
}

// NewOrphanBlobSweepJob deletes stored blobs that no gallery row references
// once they are older than the grace period. Younger blobs may belong to a
// product write that has not committed yet.
func NewOrphanBlobSweepJob(params OrphanBlobSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Images == nil {
		return nil, fmt.Errorf("image key source required")
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultOrphanGracePeriod
	}
	return &orphanBlobSweepJob{
		logg:    params.Logger,
		store:   params.Store,
		images:  params.Images,
		metrics: params.Metrics,
		grace:   grace,
		dryRun:  params.DryRun,
		now:     time.Now,
	}, nil
}

type orphanBlobSweepJob struct {
	logg    *logger.Logger
	store   storage.ObjectStore
	images  referencedKeySource
	metrics *metrics.CronJobMetrics
	grace   time.Duration
	dryRun  bool
	now     func() time.Time
}

func (j *orphanBlobSweepJob) Name() string { return orphanBlobSweepName }

func (j *orphanBlobSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)

	// Blobs are listed before references are read so a row committed in
	// between is seen as referenced.
	objects, err := j.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	stale := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Updated.IsZero() || obj.Updated.Before(cutoff) {
			stale = append(stale, obj.Key)
		}
	}

	referenced, err := j.images.ReferencedKeys(ctx)
	if err != nil {
		return fmt.Errorf("load referenced keys: %w", err)
	}
	orphans := media.Unreferenced(stale, referenced)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"objects": len(objects),
		"stale":   len(stale),
		"orphans": len(orphans),
		"dry_run": j.dryRun,
	})
	if len(orphans) == 0 {
		j.logg.Info(logCtx, "no orphaned blobs")
		return nil
	}
	if j.dryRun {
		j.logg.Info(j.logg.WithField(logCtx, "keys", orphans), "orphaned blobs found")
		return nil
	}

	if err := media.DeleteKeys(ctx, j.store, orphans); err != nil {
		return fmt.Errorf("delete orphaned blobs: %w", err)
	}
	j.metrics.AddItems(orphanBlobSweepName, len(orphans))
	j.logg.Info(logCtx, "orphaned blobs deleted")
	return nil
}
