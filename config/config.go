// Package config 定义推荐服务的配置结构（YAML/JSON）与装配工厂。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是推荐服务的完整配置。
type Config struct {
	Weights    WeightsConfig   `yaml:"weights" json:"weights"`
	Limits     LimitsConfig    `yaml:"limits" json:"limits"`
	Profile    ProfileConfig   `yaml:"profile" json:"profile"`
	ColdStart  ColdStartConfig `yaml:"cold_start" json:"cold_start"`
	Eval       EvalConfig      `yaml:"eval" json:"eval"`
	Rerank     RerankConfig    `yaml:"rerank" json:"rerank"`
	FilterExpr []string        `yaml:"filter_rules" json:"filter_rules"` // CEL 表达式，命中即过滤
	Blacklist  []int64         `yaml:"blacklist" json:"blacklist"`
}

// WeightsConfig 是混合推荐各召回源的融合权重。
type WeightsConfig struct {
	Content       float64 `yaml:"content" json:"content"`
	Collaborative float64 `yaml:"collaborative" json:"collaborative"`
	Trending      float64 `yaml:"trending" json:"trending"`
	TopRated      float64 `yaml:"top_rated" json:"top_rated"`
}

// LimitsConfig 是各环节的数量阈值。
type LimitsConfig struct {
	HistoryLimit    int `yaml:"history_limit" json:"history_limit"`       // 偏好分析每类交互条数
	ExclusionLimit  int `yaml:"exclusion_limit" json:"exclusion_limit"`   // 排除集每类交互条数
	NeighborLimit   int `yaml:"neighbor_limit" json:"neighbor_limit"`     // 协同过滤邻居数
	NeighborHistory int `yaml:"neighbor_history" json:"neighbor_history"` // 每个邻居取的评分条数
	MinRatings      int `yaml:"min_ratings" json:"min_ratings"`           // 高口碑评分数门槛
	TrendingDays    int `yaml:"trending_days" json:"trending_days"`       // 热门时间窗（天）
}

// ProfileConfig 是画像更新与批刷新配置。
type ProfileConfig struct {
	HistoryLimit int `yaml:"history_limit" json:"history_limit"` // 行为统计每类交互条数
	EmbedLimit   int `yaml:"embed_limit" json:"embed_limit"`     // 向量重算每类交互条数
	StaleDays    int `yaml:"stale_days" json:"stale_days"`       // 画像过期天数
	Concurrency  int `yaml:"concurrency" json:"concurrency"`     // 批刷新并发
}

// ColdStartConfig 是冷启动策略配置。
type ColdStartConfig struct {
	MaxInteractions int `yaml:"max_interactions" json:"max_interactions"` // 新用户判定阈值
	NewItemDays     int `yaml:"new_item_days" json:"new_item_days"`       // 新故事时间窗（天）
	MixedLimit      int `yaml:"mixed_limit" json:"mixed_limit"`           // 混合模式策略数
}

// RerankConfig 是结果重排配置。
type RerankConfig struct {
	// GenreSpread 为 true 时启用题材多样性重排。
	GenreSpread bool `yaml:"genre_spread" json:"genre_spread"`
	// MaxPerGenre 是每个主题材在列表前段的最大条数，默认 3。
	MaxPerGenre int `yaml:"max_per_genre" json:"max_per_genre"`
}

// EvalConfig 是离线评测配置。
type EvalConfig struct {
	RelevantLimit int `yaml:"relevant_limit" json:"relevant_limit"` // 相关集每类交互条数
	Concurrency   int `yaml:"concurrency" json:"concurrency"`       // 评测并发用户数
	MaxUsers      int `yaml:"max_users" json:"max_users"`           // 系统评测最大用户数
}

// Default 返回一份带默认值的配置。
func Default() *Config {
	return &Config{
		Weights: WeightsConfig{
			Content:       0.4,
			Collaborative: 0.3,
			Trending:      0.2,
			TopRated:      0.1,
		},
		Limits: LimitsConfig{
			HistoryLimit:    100,
			ExclusionLimit:  200,
			NeighborLimit:   10,
			NeighborHistory: 50,
			MinRatings:      10,
			TrendingDays:    30,
		},
		Profile: ProfileConfig{
			HistoryLimit: 500,
			EmbedLimit:   100,
			StaleDays:    7,
			Concurrency:  8,
		},
		ColdStart: ColdStartConfig{
			MaxInteractions: 3,
			NewItemDays:     14,
			MixedLimit:      3,
		},
		Eval: EvalConfig{
			RelevantLimit: 200,
			Concurrency:   8,
			MaxUsers:      1000,
		},
	}
}

// LoadFromYAML 从 YAML 文件加载配置，未给出的字段用默认值补齐。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置，未给出的字段用默认值补齐。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的自洽性。
func (c *Config) Validate() error {
	w := c.Weights
	if w.Content < 0 || w.Collaborative < 0 || w.Trending < 0 || w.TopRated < 0 {
		return fmt.Errorf("config: weights must be non-negative")
	}
	if w.Content+w.Collaborative+w.Trending+w.TopRated <= 0 {
		return fmt.Errorf("config: at least one recall weight must be positive")
	}
	if c.Profile.StaleDays < 0 || c.ColdStart.NewItemDays < 0 || c.Limits.TrendingDays < 0 {
		return fmt.Errorf("config: day windows must be non-negative")
	}
	return nil
}

// TrendingWindow 把天数配置转成时长。
func (c *Config) TrendingWindow() time.Duration {
	return time.Duration(c.Limits.TrendingDays) * 24 * time.Hour
}
