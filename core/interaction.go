package core

import "time"

// InteractionKind 标记用户与故事的交互类型。
type InteractionKind string

const (
	// KindRead 阅读记录：Value 为阅读进度百分比（0-100），可随续读更新。
	KindRead InteractionKind = "read"
	// KindRated 评分记录：Value 为 1-5 星评分，创建后不可变。
	KindRated InteractionKind = "rated"
	// KindFavorited 收藏记录：Value 无意义，存在即信号。
	KindFavorited InteractionKind = "favorited"
)

// InteractionRecord 是交互存储（外部协作方）提供的只读行为记录。
// 核心所有信号（偏好、协同、画像、评测）都由它推导。
type InteractionRecord struct {
	UserID  int64
	StoryID int64

	// ChapterID 是阅读记录关联的章节；0 表示未关联章节。
	ChapterID int64

	Kind InteractionKind

	// Value 的语义取决于 Kind：评分 1-5 或阅读进度 0-100。
	Value float64

	Timestamp time.Time
}

// Rating 返回评分值；非评分记录返回 0。
func (r *InteractionRecord) Rating() int {
	if r == nil || r.Kind != KindRated {
		return 0
	}
	return int(r.Value)
}

// Completed 判断阅读记录是否达到完读阈值（进度 >= 90%）。
func (r *InteractionRecord) Completed() bool {
	return r != nil && r.Kind == KindRead && r.Value >= 90
}
