// Package storyrec 是一个面向连载故事平台的推荐引擎。
//
// 设计要点：
// - 多路召回 + 排名加权融合（内容偏好 / 协同过滤 / 热门 / 高口碑）
// - 冷启动策略化: 新用户与新故事各自独立兜底，按优先级裁决或配额混合
// - 画像长期化: 交互向量的时间衰减加权平均 + 阅读行为统计
// - 评测内建: 确定性切分 + Precision/Recall/MAP/NDCG/MRR/覆盖率/多样性
package storyrec

import (
	"github.com/novelhub/storyrec/config"
	"github.com/novelhub/storyrec/core"
)

// 轻量 facade：便于用户直接 import "storyrec" 使用核心抽象。
type StoryRecord = core.StoryRecord
type InteractionRecord = core.InteractionRecord
type UserProfile = core.UserProfile
type Recommendation = core.Recommendation
type Config = config.Config
type System = config.System

const (
	KindRead      = core.KindRead
	KindRated     = core.KindRated
	KindFavorited = core.KindFavorited
)

// DefaultConfig 返回带默认值的配置。
func DefaultConfig() *Config { return config.Default() }

// Build 按配置装配整套推荐组件。
func Build(cfg *Config, deps config.Deps) (*System, error) { return config.Build(cfg, deps) }
