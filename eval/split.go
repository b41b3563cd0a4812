package eval

import (
	"math/rand"
	"sort"
)

// SplitRatio 是训练集占比。
const SplitRatio = 0.8

// Split 把一个用户的故事集合切成训练/测试两份（80/20）。
//
// 切分是确定性的：ID 排序后用以 userID 为种子的随机序洗牌，
// 同一用户多次评测得到完全相同的切分，结果可复现。
// 不足 2 个故事时全部进训练集，测试集为空。
func Split(userID int64, storyIDs []int64) (train, test []int64) {
	ids := append([]int64(nil), storyIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) < 2 {
		return ids, nil
	}

	rng := rand.New(rand.NewSource(userID))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	cut := int(float64(len(ids)) * SplitRatio)
	if cut < 1 {
		cut = 1
	}
	if cut >= len(ids) {
		cut = len(ids) - 1
	}
	return ids[:cut], ids[cut:]
}
