// Package rerank 在排序之后、截断之前对推荐列表做重排。
package rerank

import (
	"context"

	"github.com/novelhub/storyrec/core"
)

// Reranker 对已排序的故事列表做重排，不增删元素以外的语义。
type Reranker interface {
	// Name 返回重排器名称
	Name() string

	// Rerank 重排列表；实现可以丢弃元素（如去重），但不得引入新元素。
	Rerank(ctx context.Context, stories []*core.StoryRecord) ([]*core.StoryRecord, error)
}

// GenreSpread 是题材多样性重排：限制每个主题材在列表前段的出现次数，
// 超出的条目推到列表尾部，组内保持原有排序。没有题材的故事不受限制。
type GenreSpread struct {
	// MaxPerGenre 是每个主题材在前段最多出现的次数，默认 3。
	MaxPerGenre int
}

var _ Reranker = (*GenreSpread)(nil)

func (n *GenreSpread) Name() string { return "rerank.genre_spread" }

func (n *GenreSpread) maxPerGenre() int {
	if n.MaxPerGenre > 0 {
		return n.MaxPerGenre
	}
	return 3
}

func (n *GenreSpread) Rerank(ctx context.Context, stories []*core.StoryRecord) ([]*core.StoryRecord, error) {
	if len(stories) == 0 {
		return stories, nil
	}
	limit := n.maxPerGenre()

	counts := make(map[int64]int, 8)
	head := make([]*core.StoryRecord, 0, len(stories))
	var tail []*core.StoryRecord

	for _, s := range stories {
		if s == nil {
			continue
		}
		genre, ok := s.PrimaryGenre()
		if !ok {
			head = append(head, s)
			continue
		}
		if counts[genre.ID] >= limit {
			tail = append(tail, s)
			continue
		}
		counts[genre.ID]++
		head = append(head, s)
	}
	return append(head, tail...), nil
}
