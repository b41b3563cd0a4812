package core

import "time"

// UserProfile 是按用户聚合的长期画像：语义向量 + 阅读行为统计。
//
// 设计要点：
//   - 每个用户一份，首次访问时由 ProfileStore 惰性创建
//   - Embedding 由画像更新器按时间衰减加权平均维护
//   - 核心只更新、不删除（删除属于账号生命周期，范围之外）
//   - 同一用户的并发更新由 ProfileStore 负责串行化（行锁或乐观版本）
type UserProfile struct {
	UserID int64

	// Embedding 是用户交互故事向量的时间衰减加权平均；可能为空（无可用向量）。
	Embedding []float64

	// 阅读行为统计
	TotalStoriesRead  int
	TotalChaptersRead int

	// CompletionRate 是完读率（进度 >= 90% 的故事占比），取值 0-1。
	CompletionRate float64

	// ChaptersPerWeek 是近 30 天的阅读速度（章/周）。
	ChaptersPerWeek float64

	// GenreDiversity 是题材分布的归一化香农熵，取值 0-1。
	GenreDiversity float64

	LastUpdate time.Time
}

// Stale 判断画像是否超过给定时长未更新。
func (p *UserProfile) Stale(threshold time.Duration) bool {
	if p == nil || p.LastUpdate.IsZero() {
		return true
	}
	return time.Since(p.LastUpdate) > threshold
}
