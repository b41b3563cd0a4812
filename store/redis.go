package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novelhub/storyrec/core"
)

// RedisStore 是 Redis 实现的三个存储契约，生产环境常用。
//
// 数据布局：
//   - story:{id}                 故事详情（JSON）
//   - stories:toprated           zset，score = 平均分
//   - stories:newest             zset，score = 创建时间（Unix 秒）
//   - stories:genre:{genreID}    zset，score = 平均分
//   - stories:activity           zset，score = 最近一次交互时间（Unix 秒）
//   - user:{id}:inter:{kind}     zset，member = storyID:chapterID，score = 时间戳
//   - user:{id}:inter:{kind}:val hash，field = storyID:chapterID，value = 评分/进度
//   - story:{id}:ratings         zset，member = userID，score = 时间戳
//   - story:{id}:ratings:val     hash，field = userID，value = 评分
//
// 交互的 member 不含 value，同一条记录的更新（如阅读进度）原地覆盖，
// 不会在 zset 里产生重复成员。
//   - users:known                zset，member = userID，score = 最近活跃时间
//   - profile:{id}               画像（JSON）
//   - profiles:updated           zset，member = userID，score = LastUpdate（Unix 秒）
type RedisStore struct {
	client *redis.Client
}

var (
	_ core.CatalogStore     = (*RedisStore)(nil)
	_ core.InteractionStore = (*RedisStore)(nil)
	_ core.ProfileStore     = (*RedisStore)(nil)
)

func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient 复用已有连接，便于注入集群/哨兵客户端的单机兼容封装。
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Close() error { return r.client.Close() }

func storyKey(id int64) string        { return fmt.Sprintf("story:%d", id) }
func genreKey(genreID int64) string   { return fmt.Sprintf("stories:genre:%d", genreID) }
func profileKey(userID int64) string  { return fmt.Sprintf("profile:%d", userID) }
func ratingsKey(storyID int64) string    { return fmt.Sprintf("story:%d:ratings", storyID) }
func ratingsValKey(storyID int64) string { return fmt.Sprintf("story:%d:ratings:val", storyID) }
func interKey(userID int64, kind core.InteractionKind) string {
	return fmt.Sprintf("user:%d:inter:%s", userID, kind)
}
func interValKey(userID int64, kind core.InteractionKind) string {
	return fmt.Sprintf("user:%d:inter:%s:val", userID, kind)
}

const (
	keyTopRated    = "stories:toprated"
	keyNewest      = "stories:newest"
	keyActivity    = "stories:activity"
	keyKnownUsers  = "users:known"
	keyProfByStamp = "profiles:updated"
)

// AddStory 写入故事详情并维护各排序索引。
func (r *RedisStore) AddStory(ctx context.Context, s *core.StoryRecord) error {
	if s == nil {
		return core.NewInvalidInput(core.ModuleCatalog, "nil story")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, storyKey(s.ID), data, 0)
	pipe.ZAdd(ctx, keyTopRated, redis.Z{Score: s.AverageRating, Member: s.ID})
	pipe.ZAdd(ctx, keyNewest, redis.Z{Score: float64(s.CreatedAt.Unix()), Member: s.ID})
	for _, g := range s.Genres {
		pipe.ZAdd(ctx, genreKey(g.ID), redis.Z{Score: s.AverageRating, Member: s.ID})
	}
	_, err = pipe.Exec(ctx)
	return err
}

// AddInteraction 追加一条行为记录并维护热度/评分索引。
func (r *RedisStore) AddInteraction(ctx context.Context, it *core.InteractionRecord) error {
	if it == nil {
		return core.NewInvalidInput(core.ModuleInteraction, "nil interaction")
	}
	ts := float64(it.Timestamp.Unix())
	member := fmt.Sprintf("%d:%d", it.StoryID, it.ChapterID)
	pipe := r.client.Pipeline()
	pipe.ZAdd(ctx, interKey(it.UserID, it.Kind), redis.Z{Score: ts, Member: member})
	pipe.HSet(ctx, interValKey(it.UserID, it.Kind), member, it.Value)
	pipe.ZAdd(ctx, keyActivity, redis.Z{Score: ts, Member: it.StoryID})
	pipe.ZAdd(ctx, keyKnownUsers, redis.Z{Score: ts, Member: it.UserID})
	if it.Kind == core.KindRated {
		pipe.ZAdd(ctx, ratingsKey(it.StoryID), redis.Z{Score: ts, Member: it.UserID})
		pipe.HSet(ctx, ratingsValKey(it.StoryID), strconv.FormatInt(it.UserID, 10), it.Value)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetStoryByID(ctx context.Context, id int64) (*core.StoryRecord, error) {
	data, err := r.client.Get(ctx, storyKey(id)).Bytes()
	if err == redis.Nil {
		return nil, core.ErrStoryNotFound
	}
	if err != nil {
		return nil, err
	}
	var s core.StoryRecord
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) GetStoriesByIDs(ctx context.Context, ids []int64) ([]*core.StoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, storyKey(id))
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*core.StoryRecord, 0, len(ids))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // 缺失的 id 直接跳过
		}
		var s core.StoryRecord
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *RedisStore) GetStoriesByGenre(ctx context.Context, genreID int64, limit int) ([]*core.StoryRecord, error) {
	return r.storiesByZSet(ctx, genreKey(genreID), limit)
}

func (r *RedisStore) GetTrendingStories(ctx context.Context, since time.Time, limit int) ([]*core.StoryRecord, error) {
	ids, err := r.client.ZRevRangeByScore(ctx, keyActivity, &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.Unix(), 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	return r.resolveMembers(ctx, ids)
}

func (r *RedisStore) GetTopRatedStories(ctx context.Context, limit int) ([]*core.StoryRecord, error) {
	return r.storiesByZSet(ctx, keyTopRated, limit)
}

func (r *RedisStore) GetNewestStories(ctx context.Context, since time.Time, limit int) ([]*core.StoryRecord, error) {
	ids, err := r.client.ZRevRangeByScore(ctx, keyNewest, &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.Unix(), 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	return r.resolveMembers(ctx, ids)
}

func (r *RedisStore) CountStories(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, keyNewest).Result()
	return int(n), err
}

func (r *RedisStore) storiesByZSet(ctx context.Context, key string, limit int) ([]*core.StoryRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRevRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return r.resolveMembers(ctx, ids)
}

func (r *RedisStore) resolveMembers(ctx context.Context, members []string) ([]*core.StoryRecord, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	stories, err := r.GetStoriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// MGet 按 key 顺序返回，这里按 zset 排序回填
	byID := make(map[int64]*core.StoryRecord, len(stories))
	for _, s := range stories {
		byID[s.ID] = s
	}
	out := make([]*core.StoryRecord, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *RedisStore) GetInteractions(ctx context.Context, userID int64, kind core.InteractionKind, limit int) ([]*core.InteractionRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, interKey(userID, kind), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(zs))
	scores := make([]float64, 0, len(zs))
	for _, z := range zs {
		if member, ok := z.Member.(string); ok {
			fields = append(fields, member)
			scores = append(scores, z.Score)
		}
	}
	vals, err := r.client.HMGet(ctx, interValKey(userID, kind), fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*core.InteractionRecord, 0, len(fields))
	for i, member := range fields {
		var storyID, chapterID int64
		if _, err := fmt.Sscanf(member, "%d:%d", &storyID, &chapterID); err != nil {
			continue
		}
		out = append(out, &core.InteractionRecord{
			UserID:    userID,
			StoryID:   storyID,
			ChapterID: chapterID,
			Kind:      kind,
			Value:     hashFloat(vals, i),
			Timestamp: time.Unix(int64(scores[i]), 0),
		})
	}
	return out, nil
}

// hashFloat 解析 HMGet 第 i 位的数值，缺失或不可解析时为 0。
func hashFloat(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	s, ok := vals[i].(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func (r *RedisStore) GetStoryRatings(ctx context.Context, storyID int64, limit int) ([]*core.InteractionRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, ratingsKey(storyID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(zs))
	scores := make([]float64, 0, len(zs))
	for _, z := range zs {
		if member, ok := z.Member.(string); ok {
			fields = append(fields, member)
			scores = append(scores, z.Score)
		}
	}
	vals, err := r.client.HMGet(ctx, ratingsValKey(storyID), fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*core.InteractionRecord, 0, len(fields))
	for i, member := range fields {
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &core.InteractionRecord{
			UserID:    userID,
			StoryID:   storyID,
			Kind:      core.KindRated,
			Value:     hashFloat(vals, i),
			Timestamp: time.Unix(int64(scores[i]), 0),
		})
	}
	return out, nil
}

func (r *RedisStore) CountInteractions(ctx context.Context, userID int64, kind core.InteractionKind) (int, error) {
	n, err := r.client.ZCard(ctx, interKey(userID, kind)).Result()
	return int(n), err
}

func (r *RedisStore) ListUserIDs(ctx context.Context, limit int) ([]int64, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := r.client.ZRevRange(ctx, keyKnownUsers, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *RedisStore) GetOrCreate(ctx context.Context, userID int64) (*core.UserProfile, error) {
	data, err := r.client.Get(ctx, profileKey(userID)).Bytes()
	if err == redis.Nil {
		p := &core.UserProfile{UserID: userID}
		if err := r.Save(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	var p core.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisStore) Save(ctx context.Context, p *core.UserProfile) error {
	if p == nil {
		return core.NewInvalidInput(core.ModuleProfile, "nil profile")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, profileKey(p.UserID), data, 0)
	pipe.ZAdd(ctx, keyProfByStamp, redis.Z{Score: float64(p.LastUpdate.Unix()), Member: p.UserID})
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) UpdateEmbedding(ctx context.Context, userID int64, embedding []float64) error {
	p, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	p.Embedding = append([]float64(nil), embedding...)
	p.LastUpdate = time.Now()
	return r.Save(ctx, p)
}

func (r *RedisStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	count := int64(-1)
	if limit > 0 {
		count = int64(limit)
	}
	members, err := r.client.ZRangeByScore(ctx, keyProfByStamp, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(olderThan.Unix(), 10),
		Count: count,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
