package filter

import (
	"context"

	"github.com/novelhub/storyrec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉运营下架/屏蔽的故事。
type BlacklistFilter struct {
	StoryIDs map[int64]struct{}
}

var _ Filter = (*BlacklistFilter)(nil)

func NewBlacklistFilter(ids ...int64) *BlacklistFilter {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &BlacklistFilter{StoryIDs: set}
}

func (f *BlacklistFilter) Name() string { return "filter.blacklist" }

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, story *core.StoryRecord) (bool, error) {
	if story == nil {
		return true, nil
	}
	_, blocked := f.StoryIDs[story.ID]
	return blocked, nil
}
