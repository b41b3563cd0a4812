// Package recall 提供推荐链路的候选召回源（内容/协同/热门/高分）。
//
// 每个 Source 输出一个按相关度降序的故事列表，并各自应用调用方给定的
// 排除集；融合层只消费排序位置，不消费各源不可比的原始分数。
package recall

import (
	"context"

	"github.com/novelhub/storyrec/core"
)

// Query 是一次召回请求：用户、数量上限、排除集。
type Query struct {
	// UserID 是请求用户；0 表示匿名（个性化源会返回空）。
	UserID int64

	// Limit 是期望的最大候选数。
	Limit int

	// Exclude 是不允许出现在结果中的故事 ID 集合
	// （通常是用户已交互过的故事；评测时只含训练集）。
	Exclude map[int64]struct{}
}

// Excluded 判断故事是否在排除集中。
func (q *Query) Excluded(storyID int64) bool {
	if q == nil || q.Exclude == nil {
		return false
	}
	_, ok := q.Exclude[storyID]
	return ok
}

// Source 表示一个可复用的召回源。
// 返回列表按相关度降序，且不得包含排除集中的故事。
type Source interface {
	Name() string
	Recall(ctx context.Context, q *Query) ([]*core.StoryRecord, error)
}
