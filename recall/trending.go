package recall

import (
	"context"
	"time"

	"github.com/novelhub/storyrec/core"
)

// TrendingRecall 是近期热门召回源，用于冷启动与匿名流量。
type TrendingRecall struct {
	Catalog core.CatalogStore

	// Window 是热度统计的时间窗，默认 30 天。
	Window time.Duration
}

func (r *TrendingRecall) Name() string { return "recall.trending" }

func (r *TrendingRecall) window() time.Duration {
	if r.Window > 0 {
		return r.Window
	}
	return 30 * 24 * time.Hour
}

func (r *TrendingRecall) Recall(ctx context.Context, q *Query) ([]*core.StoryRecord, error) {
	if q == nil || q.Limit <= 0 {
		return nil, nil
	}
	// 多取一倍吸收排除集
	stories, err := r.Catalog.GetTrendingStories(ctx, time.Now().Add(-r.window()), q.Limit*2)
	if err != nil {
		return nil, err
	}
	return filterExcluded(stories, q, q.Limit), nil
}
