package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stock-alert-service/internal/threshold"
	"stock-alert-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sweepLockKey = "reconcile-all"
	sweepLockTTL = 10 * time.Minute
)

// ReconcileReport summarizes a reconciliation sweep
type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Opened   int      `json:"opened"`
	Resolved int      `json:"resolved"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
	Duration string   `json:"duration"`
}

// ReconcileProduct re-evaluates one product under its lock and repairs its
// active alert so it matches the current quantity and threshold. Unlike
// stock updates it does not touch the product row.
func (e *AlertEngine) ReconcileProduct(ctx context.Context, productID string) (*MutationResult, error) {
	res, _, err := e.mutateProduct(ctx, productMutation{
		op:        "reconcile",
		productID: productID,
		evaluate:  true,
	})
	return res, err
}

// ReconcileAll runs ReconcileProduct for every product, at most concurrency
// at a time. Products deleted mid-sweep are skipped. Per-product failures
// are counted, not returned; only a failure to list products is an error.
func (e *AlertEngine) ReconcileAll(ctx context.Context, concurrency int) (*ReconcileReport, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.ReconcileAll")
	defer span.End()

	if e.sweepLock != nil {
		token, acquired, err := e.sweepLock.AcquireLock(ctx, sweepLockKey, sweepLockTTL)
		switch {
		case err != nil:
			e.logger.Warn("Sweep lock unavailable, reconciling without it", zap.Error(err))
		case !acquired:
			return nil, fmt.Errorf("%w: reconciliation already running", ErrConflict)
		default:
			defer func() {
				if err := e.sweepLock.ReleaseLock(context.Background(), sweepLockKey, token); err != nil {
					e.logger.Warn("Failed to release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	products, err := e.store.GetProducts(ctx)
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	report := &ReconcileReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, p := range products {
		productID := p.ID
		g.Go(func() error {
			res, err := e.ReconcileProduct(gctx, productID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNotFound):
			case err != nil:
				report.Failed++
				report.Failures = append(report.Failures, productID+": "+err.Error())
				e.logger.Warn("Reconcile failed for product",
					zap.String("product_id", productID),
					zap.Error(err))
			default:
				report.Checked++
				switch res.AlertAction {
				case threshold.ActionOpen.String():
					report.Opened++
				case threshold.ActionResolve.String():
					report.Resolved++
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start).String()
	e.logger.Info("Reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("opened", report.Opened),
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", report.Failed),
		zap.String("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, translate(err)
	}
	return report, nil
}
