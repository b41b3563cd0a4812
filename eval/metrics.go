// Package eval 提供离线评测：把历史交互切成训练/测试集，
// 用训练集生成推荐，对照测试集计算排序质量指标。
package eval

import "math"

// Precision 是推荐列表中相关物品的占比：hits / len(recommended)。
func Precision(recommended []int64, relevant map[int64]struct{}) float64 {
	if len(recommended) == 0 {
		return 0
	}
	return float64(hits(recommended, relevant)) / float64(len(recommended))
}

// Recall 是相关物品被推荐到的占比：hits / len(relevant)。
func Recall(recommended []int64, relevant map[int64]struct{}) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(recommended, relevant)) / float64(len(relevant))
}

// F1 是 Precision 与 Recall 的调和平均。
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// AveragePrecision 是单用户的平均精度（MAP@K 的单用户项）：
// 对前 K 个位置中的每个命中位置 i（1 起），累加 P@i，再除以 min(len(relevant), k)。
func AveragePrecision(recommended []int64, relevant map[int64]struct{}, k int) float64 {
	if len(relevant) == 0 || len(recommended) == 0 || k <= 0 {
		return 0
	}
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	sum := 0.0
	found := 0
	for i, id := range recommended {
		if _, ok := relevant[id]; ok {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	denom := len(relevant)
	if k < denom {
		denom = k
	}
	return sum / float64(denom)
}

// NDCG 是归一化折损累计增益，相关性为二元（命中 1，未命中 0）：
//
//	DCG  = Σ 1/log2(i+2)，i 为前 K 个位置中的命中位置（0 起）
//	IDCG = 前 min(K, len(relevant)) 个位置全命中的 DCG
func NDCG(recommended []int64, relevant map[int64]struct{}, k int) float64 {
	if len(relevant) == 0 || len(recommended) == 0 || k <= 0 {
		return 0
	}
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	dcg := 0.0
	for i, id := range recommended {
		if _, ok := relevant[id]; ok {
			dcg += 1 / math.Log2(float64(i)+2)
		}
	}
	ideal := len(relevant)
	if k < ideal {
		ideal = k
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// MRR 是第一个命中的倒数排名；没有命中时为 0。
func MRR(recommended []int64, relevant map[int64]struct{}) float64 {
	for i, id := range recommended {
		if _, ok := relevant[id]; ok {
			return 1 / float64(i+1)
		}
	}
	return 0
}

func hits(recommended []int64, relevant map[int64]struct{}) int {
	n := 0
	for _, id := range recommended {
		if _, ok := relevant[id]; ok {
			n++
		}
	}
	return n
}
