package core

import (
	"context"
	"time"
)

// InteractionStore 是交互数据的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 核心对交互数据完全只读
//   - 所有列表均按时间倒序（最近优先）返回
type InteractionStore interface {
	// GetInteractions 获取用户某类交互记录，最近优先，最多 limit 条。
	GetInteractions(ctx context.Context, userID int64, kind InteractionKind, limit int) ([]*InteractionRecord, error)

	// GetStoryRatings 获取某故事的评分记录（协同过滤用），最近优先。
	GetStoryRatings(ctx context.Context, storyID int64, limit int) ([]*InteractionRecord, error)

	// CountInteractions 统计用户某类交互的总数（冷启动判定用）。
	CountInteractions(ctx context.Context, userID int64, kind InteractionKind) (int, error)

	// ListUserIDs 枚举有过交互的用户 ID（离线评测的用户样本）。
	ListUserIDs(ctx context.Context, limit int) ([]int64, error)
}

// CatalogStore 是故事目录的领域接口，由外部目录服务实现。
type CatalogStore interface {
	// GetStoryByID 获取单个故事；不存在时返回 ErrStoryNotFound。
	GetStoryByID(ctx context.Context, storyID int64) (*StoryRecord, error)

	// GetStoriesByIDs 批量获取故事；缺失的 ID 直接跳过，不报错。
	// 返回顺序不保证与入参一致，调用方需要自行按原序重排。
	GetStoriesByIDs(ctx context.Context, ids []int64) ([]*StoryRecord, error)

	// GetStoriesByGenre 获取某题材下的故事。
	GetStoriesByGenre(ctx context.Context, genreID int64, limit int) ([]*StoryRecord, error)

	// GetTrendingStories 获取 since 之后有活跃的热门故事，按热度降序。
	GetTrendingStories(ctx context.Context, since time.Time, limit int) ([]*StoryRecord, error)

	// GetTopRatedStories 获取高分故事，按平均分降序、评分数降序。
	GetTopRatedStories(ctx context.Context, limit int) ([]*StoryRecord, error)

	// GetNewestStories 获取 since 之后入库的故事，按创建时间降序。
	GetNewestStories(ctx context.Context, since time.Time, limit int) ([]*StoryRecord, error)

	// CountStories 返回目录中的故事总数。
	CountStories(ctx context.Context) (int, error)
}

// ProfileStore 是用户画像的读写接口。
//
// 并发约束：同一用户的读-改-写必须由实现方保证"至多一个写者"
// （行锁或乐观版本），否则加权平均这类非幂等更新会丢失。
type ProfileStore interface {
	// GetOrCreate 获取用户画像；不存在时创建一份空画像。
	GetOrCreate(ctx context.Context, userID int64) (*UserProfile, error)

	// Save 整体保存画像。
	Save(ctx context.Context, profile *UserProfile) error

	// UpdateEmbedding 只更新画像向量。
	UpdateEmbedding(ctx context.Context, userID int64, embedding []float64) error

	// ListStale 枚举超过 olderThan 未更新的用户 ID（画像刷新批任务用）。
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)
}

// VectorIndex 是向量近邻检索的领域接口（召回场景专用）。
//
// 实现可以是内存暴力搜索（store.MemoryVectorIndex）、pgvector、
// Milvus 等；核心只依赖"按向量取 TopK 相似故事 ID"这一个能力。
type VectorIndex interface {
	// FindNearest 按余弦相似度返回最相似的 topK 个故事 ID（降序）。
	FindNearest(ctx context.Context, embedding []float64, topK int) ([]int64, error)
}
