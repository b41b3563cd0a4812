package coldstart

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
)

// NewUserStrategy 服务没有足够历史的用户：按 70/30 混合近期热门与高口碑。
//
// 适用条件：阅读数 + 评分数 <= MaxInteractions，或匿名用户（userID == 0）。
// 热门覆盖"现在大家在读什么"，高口碑兜底"经久不衰的好故事"，
// 两路去重后热门在前。
type NewUserStrategy struct {
	Interactions core.InteractionStore
	Catalog      core.CatalogStore

	// MaxInteractions 是判定新用户的交互数上限（含），默认 3。
	MaxInteractions int

	// TrendingWindow 是热门统计的时间窗，默认 30 天。
	TrendingWindow time.Duration

	// MinRatings 是高口碑入选的最低评分数门槛（严格大于），默认 10。
	MinRatings int

	Logger *zap.Logger
}

var _ Strategy = (*NewUserStrategy)(nil)

func (s *NewUserStrategy) Name() string  { return "cold_start.new_user" }
func (s *NewUserStrategy) Priority() int { return 10 }

func (s *NewUserStrategy) maxInteractions() int {
	if s.MaxInteractions > 0 {
		return s.MaxInteractions
	}
	return 3
}

func (s *NewUserStrategy) window() time.Duration {
	if s.TrendingWindow > 0 {
		return s.TrendingWindow
	}
	return 30 * 24 * time.Hour
}

func (s *NewUserStrategy) minRatings() int {
	if s.MinRatings > 0 {
		return s.MinRatings
	}
	return 10
}

func (s *NewUserStrategy) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *NewUserStrategy) Applicable(ctx context.Context, userID int64) (bool, error) {
	if userID == 0 {
		return true, nil
	}
	reads, err := s.Interactions.CountInteractions(ctx, userID, core.KindRead)
	if err != nil {
		return false, err
	}
	ratings, err := s.Interactions.CountInteractions(ctx, userID, core.KindRated)
	if err != nil {
		return false, err
	}
	return reads+ratings <= s.maxInteractions(), nil
}

func (s *NewUserStrategy) Recommend(ctx context.Context, userID int64, limit int) ([]*core.StoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	// 70% 热门 + 30% 高口碑，热门占大头
	trendingQuota := limit * 7 / 10
	if trendingQuota < 1 {
		trendingQuota = 1
	}

	out := make([]*core.StoryRecord, 0, limit)
	seen := make(map[int64]struct{}, limit)

	trending, err := s.Catalog.GetTrendingStories(ctx, time.Now().Add(-s.window()), trendingQuota*2)
	if err != nil {
		// 热门不可用时整份配额让给高口碑
		s.logger().Warn("trending unavailable for new user", zap.Error(err))
	} else {
		for _, st := range trending {
			if st == nil {
				continue
			}
			seen[st.ID] = struct{}{}
			out = append(out, st)
			if len(out) >= trendingQuota {
				break
			}
		}
	}

	topRated, err := s.Catalog.GetTopRatedStories(ctx, limit*2)
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		return out, nil
	}
	for _, st := range topRated {
		if st == nil || st.TotalRatings <= s.minRatings() {
			continue
		}
		if _, dup := seen[st.ID]; dup {
			continue
		}
		seen[st.ID] = struct{}{}
		out = append(out, st)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
