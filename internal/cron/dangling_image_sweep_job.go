package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

const (
	danglingImageSweepName = "dangling_image_sweep"
	danglingImagePageSize  = 500
	// rows younger than this may reference a blob written after the listing
	danglingImageSkew = 5 * time.Minute
)

type objectLister interface {
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

type galleryRepairer interface {
	ImagesAfter(ctx context.Context, afterID int64, limit int) ([]models.ProductImage, error)
	RemoveImage(ctx context.Context, image models.ProductImage) error
}

// Invalidator drops cached reads for products the jobs repaired.
type Invalidator interface {
	InvalidateList(ctx context.Context) error
	InvalidateProduct(ctx context.Context, id int64) error
	InvalidateImages(ctx context.Context, keys ...string) error
}

type DanglingImageSweepJobParams struct {
	Logger      *logger.Logger
	Store       objectLister
	Gallery     galleryRepairer
	Invalidator Invalidator
	Metrics     *metrics.CronJobMetrics
	PageSize    int
	DryRun      bool
}

// NewDanglingImageSweepJob removes gallery rows whose blob no longer exists
// and renumbers the affected galleries.
func NewDanglingImageSweepJob(params DanglingImageSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Gallery == nil {
		return nil, fmt.Errorf("gallery repairer required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = danglingImagePageSize
	}
	return &danglingImageSweepJob{
		logg:        params.Logger,
		store:       params.Store,
		gallery:     params.Gallery,
		invalidator: params.Invalidator,
		metrics:     params.Metrics,
		pageSize:    pageSize,
		dryRun:      params.DryRun,
		now:         time.Now,
	}, nil
}

type danglingImageSweepJob struct {
	logg        *logger.Logger
	store       objectLister
	gallery     galleryRepairer
	invalidator Invalidator
	metrics     *metrics.CronJobMetrics
	pageSize    int
	dryRun      bool
	now         func() time.Time
}

func (j *danglingImageSweepJob) Name() string { return danglingImageSweepName }

func (j *danglingImageSweepJob) Run(ctx context.Context) error {
	listedAt := j.now().UTC()
	objects, err := j.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	stored := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		stored[obj.Key] = struct{}{}
	}
	cutoff := listedAt.Add(-danglingImageSkew)

	var (
		afterID  int64
		scanned  int
		dangling []models.ProductImage
	)
	for {
		rows, err := j.gallery.ImagesAfter(ctx, afterID, j.pageSize)
		if err != nil {
			return fmt.Errorf("page product images: %w", err)
		}
		for _, row := range rows {
			scanned++
			if _, ok := stored[row.ImageURL]; ok {
				continue
			}
			if row.CreatedAt.After(cutoff) {
				continue
			}
			dangling = append(dangling, row)
		}
		if len(rows) < j.pageSize {
			break
		}
		afterID = rows[len(rows)-1].ID
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":  scanned,
		"dangling": len(dangling),
		"dry_run":  j.dryRun,
	})
	if len(dangling) == 0 || j.dryRun {
		j.logg.Info(logCtx, "dangling image sweep complete")
		return nil
	}

	touched := map[int64]struct{}{}
	removed := make([]string, 0, len(dangling))
	for _, row := range dangling {
		if err := j.gallery.RemoveImage(ctx, row); err != nil {
			return fmt.Errorf("remove image %d: %w", row.ID, err)
		}
		touched[row.ProductID] = struct{}{}
		removed = append(removed, row.ImageURL)
	}
	j.invalidate(ctx, touched, removed)
	j.metrics.AddItems(danglingImageSweepName, len(dangling))
	j.logg.Info(j.logg.WithField(logCtx, "products", len(touched)), "dangling images removed")
	return nil
}

func (j *danglingImageSweepJob) invalidate(ctx context.Context, ids map[int64]struct{}, keys []string) {
	if j.invalidator == nil {
		return
	}
	if err := j.invalidator.InvalidateImages(ctx, keys...); err != nil {
		j.logg.Error(j.logg.WithField(ctx, "keys", keys), "failed to invalidate image cache", err)
	}
	for id := range ids {
		if err := j.invalidator.InvalidateProduct(ctx, id); err != nil {
			j.logg.Error(j.logg.WithProductID(ctx, id), "failed to invalidate product cache", err)
		}
	}
	if err := j.invalidator.InvalidateList(ctx); err != nil {
		j.logg.Error(ctx, "failed to invalidate product list cache", err)
	}
}
