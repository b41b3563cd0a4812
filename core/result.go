package core

// Algorithm 标记一次推荐结果使用的算法，方便 explain / 观测。
type Algorithm string

const (
	AlgorithmContentBased  Algorithm = "content_based" // 基于题材偏好
	AlgorithmCollaborative Algorithm = "collaborative" // 基于相似用户
	AlgorithmSemantic      Algorithm = "semantic"      // 基于向量相似度
	AlgorithmTrending      Algorithm = "trending"      // 近期热门
	AlgorithmHybrid        Algorithm = "hybrid"        // 多路融合
	AlgorithmColdStart     Algorithm = "cold_start"    // 冷启动策略
)

// Recommendation 是一次推荐调用的统一返回结构。
type Recommendation struct {
	Stories     []*StoryRecord
	Algorithm   Algorithm
	TotalCount  int
	Explanation string
}

// StoryIDs 返回推荐结果的故事 ID 列表（保持排序）。
func (r *Recommendation) StoryIDs() []int64 {
	if r == nil {
		return nil
	}
	ids := make([]int64, 0, len(r.Stories))
	for _, s := range r.Stories {
		if s != nil {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
