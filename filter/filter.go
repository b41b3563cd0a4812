package filter

import (
	"context"

	"github.com/novelhub/storyrec/core"
)

// Filter 是过滤器的抽象接口，用于判断一个故事是否应该从推荐结果中剔除。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 story 是否应该被过滤
	ShouldFilter(ctx context.Context, story *core.StoryRecord) (bool, error)
}

// Chain 按顺序执行一组过滤器，任一命中即过滤。
type Chain struct {
	Filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{Filters: filters}
}

func (c *Chain) ShouldFilter(ctx context.Context, story *core.StoryRecord) (bool, error) {
	for _, f := range c.Filters {
		drop, err := f.ShouldFilter(ctx, story)
		if err != nil {
			return false, err
		}
		if drop {
			return true, nil
		}
	}
	return false, nil
}
