// Package engine 组装提取器、索引、策略与过滤器，对外提供四个推荐操作：
// 以图搜图、以物搜物、个性化推荐、物品入库。
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/stylekit/stylekit/core"
	"github.com/stylekit/stylekit/filter"
	"github.com/stylekit/stylekit/index"
	"github.com/stylekit/stylekit/pkg/utils"
	"github.com/stylekit/stylekit/scorer"
)

// Engine 是推荐引擎的服务对象：持有全部依赖，不使用包级全局状态，
// 同一进程可并存多个实例（多租户 / 多模型灰度）。
type Engine struct {
	extractor    core.FeatureExtractor
	index        *index.VisualIndex
	catalog      core.CatalogStore
	interactions core.InteractionStore
	prefs        core.PreferenceProvider
	logger       core.Logger

	agg *Aggregator

	// window 是快照读取行为日志的回看窗口（0 表示全量）。
	window time.Duration
}

// Option 是 Engine 的配置选项。
type Option func(*Engine)

// WithPreferenceProvider 注入存量偏好来源（特征库），用于冷启动画像兜底。
func WithPreferenceProvider(p core.PreferenceProvider) Option {
	return func(e *Engine) { e.prefs = p }
}

// WithLogger 注入日志实现（默认丢弃）。
func WithLogger(l core.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithWeights 覆盖策略融合权重。
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.agg.Weights = w }
}

// WithDisableWeightNorm 关闭权重归一化，按原始权重融合。
func WithDisableWeightNorm() Option {
	return func(e *Engine) { e.agg.DisableWeightNorm = true }
}

// WithScorerTimeout 设置单个策略的超时时间。
func WithScorerTimeout(d time.Duration) Option {
	return func(e *Engine) { e.agg.Timeout = d }
}

// WithMaxConcurrent 限制并发执行的策略数。
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) { e.agg.MaxConcurrent = n }
}

// WithScorers 覆盖默认策略集。
func WithScorers(scorers ...scorer.Scorer) Option {
	return func(e *Engine) { e.agg.Scorers = scorers }
}

// WithFilters 追加过滤器（默认已含已购/已拒过滤与类目过滤）。
func WithFilters(filters ...filter.Filter) Option {
	return func(e *Engine) { e.agg.Filters = append(e.agg.Filters, filters...) }
}

// WithInteractionWindow 设置快照读取行为日志的回看窗口。
func WithInteractionWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// New 创建推荐引擎。extractor 与 idx 的维度必须一致。
func New(
	extractor core.FeatureExtractor,
	idx *index.VisualIndex,
	catalog core.CatalogStore,
	interactions core.InteractionStore,
	opts ...Option,
) (*Engine, error) {
	if extractor == nil || idx == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: extractor and index are required")
	}
	if extractor.Dim() != idx.Dim() {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeDimensionMismatch,
			fmt.Sprintf("engine: extractor dim %d, index dim %d", extractor.Dim(), idx.Dim()))
	}
	if catalog == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: catalog store is required")
	}

	e := &Engine{
		extractor:    extractor,
		index:        idx,
		catalog:      catalog,
		interactions: interactions,
		logger:       core.NopLogger{},
		agg:          &Aggregator{},
	}
	e.agg.Scorers = []scorer.Scorer{
		&scorer.Content{},
		&scorer.Favorites{},
		&scorer.Wardrobe{},
		&scorer.Collaborative{},
		&scorer.Trending{},
		&scorer.Visual{Index: idx, Extractor: extractor},
	}
	e.agg.Filters = []filter.Filter{
		&filter.InteractedFilter{},
		&filter.CategoryFilter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.agg.Logger = e.logger
	return e, nil
}

// Index 返回底层视觉索引（持久化 / 重建任务使用）。
func (e *Engine) Index() *index.VisualIndex { return e.index }

// Extractor 返回特征提取器。
func (e *Engine) Extractor() core.FeatureExtractor { return e.extractor }

// FindSimilarByImage 以上传图片为查询做视觉相似检索。
//
//   - 图片损坏/格式不支持 → UNREADABLE_IMAGE
//   - 模型不可用 → EXTRACTION_FAILED
//   - 空索引返回空列表，不是错误
//
// 返回的 Score 是原始余弦相似度 ∈ [-1, 1]，降序。
func (e *Engine) FindSimilarByImage(
	ctx context.Context,
	image []byte,
	category core.Category,
	k int,
) ([]*core.ScoredItem, error) {
	if len(image) == 0 {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnreadableImage,
			"engine: empty image")
	}
	vec, err := e.extractor.Extract(ctx, image)
	if err != nil {
		return nil, err
	}
	results, err := e.index.Query(vec, k, category)
	if err != nil {
		return nil, err
	}
	return e.toScoredItems(results, "image"), nil
}

// FindSimilarByID 以目录物品为查询做视觉相似检索，结果不含查询物品自身。
//
//   - 目录中不存在该物品 → NOT_FOUND
//   - 物品存在但尚未入索引 → INDEX_UNAVAILABLE
func (e *Engine) FindSimilarByID(
	ctx context.Context,
	itemID string,
	category core.Category,
	k int,
) ([]*core.ScoredItem, error) {
	if _, err := e.catalog.GetItem(ctx, itemID); err != nil {
		if core.IsNotFound(err) || core.IsStoreNotFound(err) {
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
				"engine: unknown item: "+itemID)
		}
		return nil, err
	}
	vec, ok := e.index.Vector(itemID)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeIndexUnavailable,
			"engine: item not embedded yet: "+itemID)
	}
	// 查询向量在索引中，自身必然命中，多取一个再剔除
	results, err := e.index.Query(vec, k+1, category)
	if err != nil {
		return nil, err
	}
	filtered := results[:0]
	for _, r := range results {
		if r.ID == itemID {
			continue
		}
		filtered = append(filtered, r)
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return e.toScoredItems(filtered, "item:"+itemID), nil
}

// RecommendFromHistory 基于用户行为历史做多策略融合推荐。
// 冷启动用户（零信号）返回空列表，不是错误。
func (e *Engine) RecommendFromHistory(
	ctx context.Context,
	userID string,
	category core.Category,
	limit int,
) ([]*core.ScoredItem, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: empty user id")
	}
	if limit <= 0 {
		limit = 10
	}

	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rctx := &core.RecommendContext{
		UserID:   userID,
		Category: category,
		Limit:    limit,
		Snapshot: snap,
		Profile:  e.buildProfile(ctx, snap, userID),
	}
	return e.agg.Aggregate(ctx, rctx)
}

// AddItemToIndex 提取物品图片特征并写入索引。重复调用覆盖旧向量。
// 成功后置位 item.Embedded。
func (e *Engine) AddItemToIndex(ctx context.Context, item *core.CatalogItem, image []byte) error {
	if item == nil || item.ID == "" {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: nil item or empty id")
	}
	vec, err := e.extractor.Extract(ctx, image)
	if err != nil {
		return err
	}
	if err := e.index.Add(item.ID, vec, item.Category); err != nil {
		return err
	}
	item.Embedded = true
	e.logger.Debugf("indexed item %s (%s), index size %d", item.ID, item.Category, e.index.Len())
	return nil
}

// RemoveItemFromIndex 从索引中删除物品向量（目录下架时调用）。
func (e *Engine) RemoveItemFromIndex(item *core.CatalogItem) {
	if item == nil {
		return
	}
	e.index.Remove(item.ID)
	item.Embedded = false
}

// StyleProfile 重算并返回用户风格画像（诊断 / 展示用）。
func (e *Engine) StyleProfile(ctx context.Context, userID string) (*core.StyleProfile, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: empty user id")
	}
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return e.buildProfile(ctx, snap, userID), nil
}

// snapshot 一次性读取目录与行为日志，构成本次请求的只读视图。
func (e *Engine) snapshot(ctx context.Context) (*core.Snapshot, error) {
	items, err := e.catalog.ListItems(ctx, core.CategoryAny)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var ins []core.Interaction
	if e.interactions != nil {
		var since time.Time
		if e.window > 0 {
			since = now.Add(-e.window)
		}
		ins, err = e.interactions.ListInteractions(ctx, since)
		if err != nil {
			// 行为日志不可用时按零行为推荐（热度等策略自然降级）
			e.logger.Warnf("interaction log unavailable: %v", err)
			ins = nil
		}
	}
	return core.NewSnapshot(items, ins, now), nil
}

// buildProfile 重算用户画像；特征库不可用时按纯行为画像降级。
func (e *Engine) buildProfile(ctx context.Context, snap *core.Snapshot, userID string) *core.StyleProfile {
	var stored map[string]float64
	if e.prefs != nil {
		tags, err := e.prefs.UserTags(ctx, userID)
		if err != nil {
			e.logger.Warnf("preference provider unavailable for %s: %v", userID, err)
		} else {
			stored = tags
		}
	}
	return core.BuildStyleProfile(snap, userID, stored)
}

func (e *Engine) toScoredItems(results []index.Result, source string) []*core.ScoredItem {
	out := make([]*core.ScoredItem, 0, len(results))
	for _, r := range results {
		it := core.NewScoredItem(r.ID)
		it.Score = r.Similarity
		it.PutLabel("strategy", utils.Label{Value: "visual", Source: "engine"})
		it.PutLabel("query", utils.Label{Value: source, Source: "engine"})
		out = append(out, it)
	}
	return out
}

// Close 释放引擎持有的资源（提取器连接等）。
func (e *Engine) Close() error {
	return e.extractor.Close()
}
