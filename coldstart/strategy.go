// Package coldstart 处理交互数据不足时的推荐兜底：
// 新用户（没有足够历史推导偏好）与新故事（没有足够曝光进入常规召回）。
package coldstart

import (
	"context"

	"github.com/novelhub/storyrec/core"
)

// Strategy 是一个冷启动策略。多个策略可同时适用，由 Selector 按优先级裁决。
type Strategy interface {
	// Name 返回策略名称
	Name() string

	// Priority 返回优先级，数值越大越优先。
	Priority() int

	// Applicable 判断策略当前是否适用于该用户。
	Applicable(ctx context.Context, userID int64) (bool, error)

	// Recommend 按策略生成推荐。
	Recommend(ctx context.Context, userID int64, limit int) ([]*core.StoryRecord, error)
}
