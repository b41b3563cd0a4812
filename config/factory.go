package config

import (
	"time"

	"go.uber.org/zap"

	"github.com/novelhub/storyrec/coldstart"
	"github.com/novelhub/storyrec/core"
	"github.com/novelhub/storyrec/eval"
	"github.com/novelhub/storyrec/filter"
	"github.com/novelhub/storyrec/preference"
	"github.com/novelhub/storyrec/profile"
	"github.com/novelhub/storyrec/recall"
	"github.com/novelhub/storyrec/recommend"
	"github.com/novelhub/storyrec/rerank"
)

// Deps 是装配工厂需要的外部依赖。Vector 与 Logger 可空。
type Deps struct {
	Interactions core.InteractionStore
	Catalog      core.CatalogStore
	Profiles     core.ProfileStore
	Vector       core.VectorIndex
	Logger       *zap.Logger
}

// System 是装配完成的一整套推荐组件。
type System struct {
	Pref      *preference.Analyzer
	Hybrid    *recommend.Hybrid
	Similar   *recommend.Similar
	ColdStart *coldstart.Selector
	Updater   *profile.Updater
	Refresher *profile.Refresher
	Eval      *eval.Engine
}

// Build 按配置装配整套推荐组件。
func Build(cfg *Config, deps Deps) (*System, error) {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pref := &preference.Analyzer{
		Interactions:   deps.Interactions,
		Catalog:        deps.Catalog,
		HistoryLimit:   cfg.Limits.HistoryLimit,
		ExclusionLimit: cfg.Limits.ExclusionLimit,
		Logger:         logger,
	}

	window := cfg.TrendingWindow()
	sources := []recommend.WeightedSource{
		{
			Source: &recall.ContentRecall{
				Pref:           pref,
				Catalog:        deps.Catalog,
				TrendingWindow: window,
				Logger:         logger,
			},
			Weight:    cfg.Weights.Content,
			Overfetch: 2,
		},
		{
			Source: &recall.CollaborativeRecall{
				Interactions:    deps.Interactions,
				Catalog:         deps.Catalog,
				NeighborLimit:   cfg.Limits.NeighborLimit,
				NeighborHistory: cfg.Limits.NeighborHistory,
				Logger:          logger,
			},
			Weight:    cfg.Weights.Collaborative,
			Overfetch: 2,
		},
		{
			Source: &recall.TrendingRecall{Catalog: deps.Catalog, Window: window},
			Weight: cfg.Weights.Trending,
		},
		{
			Source: &recall.TopRatedRecall{Catalog: deps.Catalog, MinRatings: cfg.Limits.MinRatings},
			Weight: cfg.Weights.TopRated,
		},
	}

	var filters []filter.Filter
	if len(cfg.Blacklist) > 0 {
		filters = append(filters, filter.NewBlacklistFilter(cfg.Blacklist...))
	}
	for _, expr := range cfg.FilterExpr {
		rule, err := filter.NewRuleFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, rule)
	}
	var chain *filter.Chain
	if len(filters) > 0 {
		chain = filter.NewChain(filters...)
	}

	var rerankers []rerank.Reranker
	if cfg.Rerank.GenreSpread {
		rerankers = append(rerankers, &rerank.GenreSpread{MaxPerGenre: cfg.Rerank.MaxPerGenre})
	}

	hybrid := &recommend.Hybrid{
		Sources:   sources,
		Pref:      pref,
		Catalog:   deps.Catalog,
		Filters:   chain,
		Rerankers: rerankers,
		Logger:    logger,
	}

	similar := &recommend.Similar{
		Catalog:        deps.Catalog,
		Vector:         deps.Vector,
		Pref:           pref,
		TrendingWindow: window,
		Logger:         logger,
	}

	selector := &coldstart.Selector{
		Strategies: []coldstart.Strategy{
			&coldstart.NewUserStrategy{
				Interactions:    deps.Interactions,
				Catalog:         deps.Catalog,
				MaxInteractions: cfg.ColdStart.MaxInteractions,
				TrendingWindow:  window,
				MinRatings:      cfg.Limits.MinRatings,
				Logger:          logger,
			},
			&coldstart.NewItemStrategy{
				Catalog: deps.Catalog,
				Window:  time.Duration(cfg.ColdStart.NewItemDays) * 24 * time.Hour,
			},
		},
		MixedLimit: cfg.ColdStart.MixedLimit,
		Logger:     logger,
	}

	updater := &profile.Updater{
		Interactions: deps.Interactions,
		Catalog:      deps.Catalog,
		Profiles:     deps.Profiles,
		HistoryLimit: cfg.Profile.HistoryLimit,
		EmbedLimit:   cfg.Profile.EmbedLimit,
		Logger:       logger,
	}

	refresher := &profile.Refresher{
		Updater:     updater,
		Profiles:    deps.Profiles,
		StaleAfter:  time.Duration(cfg.Profile.StaleDays) * 24 * time.Hour,
		Concurrency: cfg.Profile.Concurrency,
		Logger:      logger,
	}

	engine := &eval.Engine{
		Interactions:  deps.Interactions,
		Catalog:       deps.Catalog,
		Recommender:   hybrid,
		RelevantLimit: cfg.Eval.RelevantLimit,
		Concurrency:   cfg.Eval.Concurrency,
		Logger:        logger,
	}

	return &System{
		Pref:      pref,
		Hybrid:    hybrid,
		Similar:   similar,
		ColdStart: selector,
		Updater:   updater,
		Refresher: refresher,
		Eval:      engine,
	}, nil
}
