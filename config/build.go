package config

import (
	"math"
	"os"
	"time"

	"github.com/stylekit/stylekit/core"
	"github.com/stylekit/stylekit/engine"
	"github.com/stylekit/stylekit/extractor"
	"github.com/stylekit/stylekit/featurestore"
	"github.com/stylekit/stylekit/filter"
	"github.com/stylekit/stylekit/index"
	"github.com/stylekit/stylekit/scorer"
)

// BuildExtractor 根据配置构建特征提取器：
// 配了 model.endpoint 走远程推理服务，否则退回进程内哈希提取器
// （开发/测试用，向量无语义）。
func (c *Config) BuildExtractor() core.FeatureExtractor {
	if c.Model.Endpoint != "" {
		opts := []extractor.RemoteOption{}
		if c.Model.TimeoutSec > 0 {
			opts = append(opts, extractor.WithTimeout(c.ModelTimeout()))
		}
		return extractor.NewRemoteExtractor(
			c.Model.Endpoint, c.Model.Name, c.Model.Version, c.Model.Dim, opts...)
	}
	h := extractor.NewHashExtractor(c.Model.Dim)
	h.ValidateImages = true
	return h
}

// BuildIndex 根据配置构建视觉索引；index.path 存在时从文件加载。
// 维度/模型版本漂移返回 DIMENSION_MISMATCH，调用方应视为启动失败。
func (c *Config) BuildIndex(ext core.FeatureExtractor) (*index.VisualIndex, error) {
	opts := []index.Option{}
	if c.Index.MinSimilarity != nil {
		min := *c.Index.MinSimilarity
		if min <= -1 {
			min = math.Inf(-1)
		}
		opts = append(opts, index.WithMinSimilarity(min))
	}
	idx := index.New(ext.Dim(), ext.ModelVersion(), opts...)

	if c.Index.Path != "" {
		if _, err := os.Stat(c.Index.Path); err == nil {
			if err := idx.Load(c.Index.Path); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// BuildEngine 根据配置组装引擎。catalog 与 interactions 由调用方提供
// （目录数据的生命周期不归引擎管理）。
func (c *Config) BuildEngine(
	ext core.FeatureExtractor,
	idx *index.VisualIndex,
	catalog core.CatalogStore,
	interactions core.InteractionStore,
	extraOpts ...engine.Option,
) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithScorers(c.buildScorers(ext, idx)...),
	}
	if len(c.Engine.Weights) > 0 {
		opts = append(opts, engine.WithWeights(engine.Weights(c.Engine.Weights)))
	}
	if !c.NormalizeWeightsEnabled() {
		opts = append(opts, engine.WithDisableWeightNorm())
	}
	if c.Engine.ScorerTimeoutSec > 0 {
		opts = append(opts, engine.WithScorerTimeout(c.ScorerTimeout()))
	}
	if c.Engine.MaxConcurrent > 0 {
		opts = append(opts, engine.WithMaxConcurrent(c.Engine.MaxConcurrent))
	}
	if c.Engine.InteractionWindowDays > 0 {
		opts = append(opts, engine.WithInteractionWindow(c.InteractionWindow()))
	}
	for _, expr := range c.Engine.FilterRules {
		rf, err := filter.NewRuleFilter(expr)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
				"config: bad filter rule "+expr+": "+err.Error())
		}
		opts = append(opts, engine.WithFilters(rf))
	}
	if c.Feast.Host != "" {
		prefs, err := featurestore.NewGrpcClient(
			c.Feast.Host, c.Feast.Port, c.Feast.Project, c.Feast.Features)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithPreferenceProvider(prefs))
	}
	opts = append(opts, extraOpts...)
	return engine.New(ext, idx, catalog, interactions, opts...)
}

func (c *Config) buildScorers(ext core.FeatureExtractor, idx *index.VisualIndex) []scorer.Scorer {
	s := c.Scorers
	return []scorer.Scorer{
		&scorer.Content{Metric: s.Content.Metric, MinScore: s.Content.MinScore},
		&scorer.Favorites{Metric: s.Favorites.Metric},
		&scorer.Wardrobe{Boost: s.Wardrobe.Boost, Metric: s.Wardrobe.Metric},
		&scorer.Collaborative{
			TopKUsers:      s.Collaborative.TopKUsers,
			MinSimilarity:  s.Collaborative.MinSimilarity,
			MinCommonItems: s.Collaborative.MinCommonItems,
		},
		&scorer.Trending{
			Window:       time.Duration(s.Trending.WindowDays) * 24 * time.Hour,
			HalfLife:     time.Duration(s.Trending.HalfLifeHrs) * time.Hour,
			KindWeighted: s.Trending.KindWeighted,
		},
		&scorer.Visual{Index: idx, Extractor: ext, Fanout: s.Visual.Fanout},
	}
}
