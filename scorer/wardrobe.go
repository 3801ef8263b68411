package scorer

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// Wardrobe 是衣橱补全策略：用户拥有（购买）物品少的类目获得乘性加成。
//
// 算法：
//  1. 由画像取类目覆盖率 coverage[cat] = owned[cat] / ownedTotal
//  2. completion_boost = Boost × (1 - coverage[cat])
//  3. score = 基础内容相似 × (1 + completion_boost)，截断到 [0, 1]
//
// 用户没有任何购买记录时无"衣橱"可补，返回空 map。
type Wardrobe struct {
	// Boost 是补全加成上限（默认 0.5：空缺类目最多 ×1.5）
	Boost float64

	// Metric 基础相似度度量：cosine / jaccard（默认 cosine）
	Metric string
}

func (s *Wardrobe) Name() string { return "wardrobe" }

func (s *Wardrobe) Score(
	_ context.Context,
	rctx *core.RecommendContext,
) (map[string]float64, error) {
	out := make(map[string]float64)
	if rctx == nil || rctx.Snapshot == nil || rctx.Profile.Empty() {
		return out, nil
	}

	owned := rctx.Profile.CategoryCounts
	var ownedTotal int
	for _, n := range owned {
		ownedTotal += n
	}
	if ownedTotal == 0 {
		return out, nil
	}

	boost := s.Boost
	if boost <= 0 {
		boost = 0.5
	}
	metric := s.Metric
	if metric == "" {
		metric = "cosine"
	}

	for _, item := range rctx.Snapshot.Items() {
		features := itemFeatures(item)
		var base float64
		switch metric {
		case "jaccard":
			base = jaccardSimilarity(rctx.Profile.TagWeights, features)
		default:
			base = cosineSimilarityForMaps(rctx.Profile.TagWeights, features)
		}
		if base <= 0 {
			continue
		}
		coverage := float64(owned[item.Category]) / float64(ownedTotal)
		completion := boost * (1 - coverage)
		out[item.ID] = clamp01(base * (1 + completion))
	}
	return out, nil
}
