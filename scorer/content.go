package scorer

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// Content 是基于内容的打分策略（Content-Based）。
//
// 核心思想："用户喜欢具有某些标签的物品，给具有相似标签的物品高分"。
// 分数 = 用户画像标签权重与物品标签集的相似度；无重合记 0 分（不写入结果）。
type Content struct {
	// Metric 相似度度量：cosine / jaccard（默认 cosine）
	Metric string

	// MinScore 低于该值的物品不进入结果（剪掉长尾噪声）
	MinScore float64
}

func (s *Content) Name() string { return "content" }

func (s *Content) Score(
	_ context.Context,
	rctx *core.RecommendContext,
) (map[string]float64, error) {
	out := make(map[string]float64)
	if rctx == nil || rctx.Snapshot == nil || rctx.Profile.Empty() {
		return out, nil
	}

	metric := s.Metric
	if metric == "" {
		metric = "cosine"
	}

	for _, item := range rctx.Snapshot.Items() {
		features := itemFeatures(item)
		var score float64
		switch metric {
		case "jaccard":
			score = jaccardSimilarity(rctx.Profile.TagWeights, features)
		default:
			score = cosineSimilarityForMaps(rctx.Profile.TagWeights, features)
		}
		if score > s.MinScore && score > 0 {
			out[item.ID] = clamp01(score)
		}
	}
	return out, nil
}

// itemFeatures 把物品转成标签权重表；类目作为一个合成标签参与匹配，
// 与画像侧（core.BuildStyleProfile）的口径一致。
func itemFeatures(item *core.CatalogItem) map[string]float64 {
	features := item.AttrWeights()
	features["category:"+string(item.Category)] = 1.0
	return features
}
