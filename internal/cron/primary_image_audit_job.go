package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
)

const primaryImageAuditName = "primary_image_audit"

type primaryAuditor interface {
	MismatchedPrimaries(ctx context.Context) ([]int64, error)
	ResyncPrimaryImage(ctx context.Context, productID int64) (string, error)
}

type PrimaryImageAuditJobParams struct {
	Logger      *logger.Logger
	Products    primaryAuditor
	Invalidator Invalidator
	Metrics     *metrics.CronJobMetrics
	DryRun      bool
}

// NewPrimaryImageAuditJob rewrites Product.image wherever it disagrees with
// the lowest ordered gallery row.
func NewPrimaryImageAuditJob(params PrimaryImageAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product auditor required")
	}
	return &primaryImageAuditJob{
		logg:        params.Logger,
		products:    params.Products,
		invalidator: params.Invalidator,
		metrics:     params.Metrics,
		dryRun:      params.DryRun,
	}, nil
}

type primaryImageAuditJob struct {
	logg        *logger.Logger
	products    primaryAuditor
	invalidator Invalidator
	metrics     *metrics.CronJobMetrics
	dryRun      bool
}

func (j *primaryImageAuditJob) Name() string { return primaryImageAuditName }

func (j *primaryImageAuditJob) Run(ctx context.Context) error {
	ids, err := j.products.MismatchedPrimaries(ctx)
	if err != nil {
		return fmt.Errorf("find mismatched primaries: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"mismatched": len(ids),
		"dry_run":    j.dryRun,
	})
	if len(ids) == 0 || j.dryRun {
		j.logg.Info(logCtx, "primary image audit complete")
		return nil
	}

	for _, id := range ids {
		if _, err := j.products.ResyncPrimaryImage(ctx, id); err != nil {
			return fmt.Errorf("resync product %d: %w", id, err)
		}
		if j.invalidator != nil {
			if err := j.invalidator.InvalidateProduct(ctx, id); err != nil {
				j.logg.Error(j.logg.WithProductID(ctx, id), "failed to invalidate product cache", err)
			}
		}
	}
	if j.invalidator != nil {
		if err := j.invalidator.InvalidateList(ctx); err != nil {
			j.logg.Error(ctx, "failed to invalidate product list cache", err)
		}
	}
	j.metrics.AddItems(primaryImageAuditName, len(ids))
	j.logg.Info(logCtx, "primary images resynced")
	return nil
}
