package coldstart

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/core"
)

// Selector 裁决多个冷启动策略：单策略走最高优先级，混合模式按配额分摊。
type Selector struct {
	Strategies []Strategy

	// MixedLimit 是混合模式最多取几个策略，默认 3。
	MixedLimit int

	Logger *zap.Logger
}

func (s *Selector) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *Selector) mixedLimit() int {
	if s.MixedLimit > 0 {
		return s.MixedLimit
	}
	return 3
}

// IsColdStart 判断用户是否处于冷启动（任一策略适用即是）。
func (s *Selector) IsColdStart(ctx context.Context, userID int64) (bool, error) {
	for _, st := range s.Strategies {
		ok, err := st.Applicable(ctx, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// BestStrategy 返回适用策略中优先级最高的；没有适用策略时返回 nil。
func (s *Selector) BestStrategy(ctx context.Context, userID int64) (Strategy, error) {
	var best Strategy
	for _, st := range s.Strategies {
		ok, err := st.Applicable(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if best == nil || st.Priority() > best.Priority() {
			best = st
		}
	}
	return best, nil
}

// Recommend 用最高优先级的适用策略生成推荐。
func (s *Selector) Recommend(ctx context.Context, userID int64, limit int) (*core.Recommendation, error) {
	best, err := s.BestStrategy(ctx, userID)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeNotSupported,
			"cold_start: no applicable strategy")
	}
	stories, err := best.Recommend(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &core.Recommendation{
		Stories:     stories,
		Algorithm:   core.AlgorithmColdStart,
		TotalCount:  len(stories),
		Explanation: "Getting to know your taste — here's what readers are loving",
	}, nil
}

// RecommendMixed 把配额分摊给优先级最高的若干个适用策略（默认最多 3 个）：
// 每个策略分到 limit/n，余数按优先级顺序每个策略多分一个。策略内部多取一倍以吸收跨策略去重，
// 单个策略失败只记录日志并跳过。
func (s *Selector) RecommendMixed(ctx context.Context, userID int64, limit int) (*core.Recommendation, error) {
	if limit <= 0 {
		return nil, core.NewInvalidInput(core.ModuleRecommend, "cold_start: limit must be positive")
	}

	var applicable []Strategy
	for _, st := range s.Strategies {
		ok, err := st.Applicable(ctx, userID)
		if err != nil {
			return nil, err
		}
		if ok {
			applicable = append(applicable, st)
		}
	}
	if len(applicable) == 0 {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeNotSupported,
			"cold_start: no applicable strategy")
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority() > applicable[j].Priority()
	})
	if len(applicable) > s.mixedLimit() {
		applicable = applicable[:s.mixedLimit()]
	}

	quota := limit / len(applicable)
	remainder := limit % len(applicable)

	out := make([]*core.StoryRecord, 0, limit)
	seen := make(map[int64]struct{}, limit)

	for i, st := range applicable {
		want := quota
		if i < remainder {
			want++
		}
		if want <= 0 {
			continue
		}
		stories, err := st.Recommend(ctx, userID, want*2)
		if err != nil {
			s.logger().Warn("cold start strategy failed",
				zap.String("strategy", st.Name()),
				zap.Int64("user_id", userID),
				zap.Error(err))
			continue
		}
		added := 0
		for _, story := range stories {
			if story == nil {
				continue
			}
			if _, dup := seen[story.ID]; dup {
				continue
			}
			seen[story.ID] = struct{}{}
			out = append(out, story)
			added++
			if added >= want {
				break
			}
		}
	}

	return &core.Recommendation{
		Stories:     out,
		Algorithm:   core.AlgorithmColdStart,
		TotalCount:  len(out),
		Explanation: "A mix of trending reads and fresh arrivals to get you started",
	}, nil
}
