package profile

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Refresher 批量刷新过期画像，画像刷新批任务的入口。
type Refresher struct {
	Updater  *Updater
	Profiles interface {
		ListStale(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)
	}

	// StaleAfter 是画像视为过期的时长，默认 7 天。
	StaleAfter time.Duration

	// Concurrency 是并发刷新的用户数，默认 8。
	Concurrency int

	// BatchLimit 是单次扫描的最大用户数，默认 1000。
	BatchLimit int

	Logger *zap.Logger
}

func (r *Refresher) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func (r *Refresher) staleAfter() time.Duration {
	if r.StaleAfter > 0 {
		return r.StaleAfter
	}
	return 7 * 24 * time.Hour
}

func (r *Refresher) concurrency() int {
	if r.Concurrency > 0 {
		return r.Concurrency
	}
	return 8
}

func (r *Refresher) batchLimit() int {
	if r.BatchLimit > 0 {
		return r.BatchLimit
	}
	return 1000
}

// RefreshStale 找出过期画像并发刷新，返回成功刷新的用户数。
// 单个用户失败只记录日志，不影响其他用户。
func (r *Refresher) RefreshStale(ctx context.Context) (int, error) {
	ids, err := r.Profiles.ListStale(ctx, time.Now().Add(-r.staleAfter()), r.batchLimit())
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())

	done := make([]bool, len(ids))
	for i, userID := range ids {
		i, userID := i, userID
		g.Go(func() error {
			if _, err := r.Updater.Refresh(ctx, userID); err != nil {
				r.logger().Warn("profile refresh failed",
					zap.Int64("user_id", userID), zap.Error(err))
				return nil
			}
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	refreshed := 0
	for _, ok := range done {
		if ok {
			refreshed++
		}
	}
	r.logger().Info("stale profile refresh completed",
		zap.Int("scanned", len(ids)),
		zap.Int("refreshed", refreshed))
	return refreshed, nil
}
