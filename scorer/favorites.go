package scorer

import (
	"context"

	"github.com/stylekit/stylekit/core"
)

// Favorites 是收藏亲和策略：只看用户显式收藏过的物品，
// 给标签相似的物品高分。与 Content 的区别在于信号源更窄更强——
// 收藏是显式正反馈，不被浏览等弱信号稀释。
type Favorites struct {
	// Metric 相似度度量：cosine / jaccard（默认 cosine）
	Metric string
}

func (s *Favorites) Name() string { return "favorites" }

func (s *Favorites) Score(
	_ context.Context,
	rctx *core.RecommendContext,
) (map[string]float64, error) {
	out := make(map[string]float64)
	if rctx == nil || rctx.Snapshot == nil || rctx.UserID == "" {
		return out, nil
	}
	snap := rctx.Snapshot

	// 收藏物品的标签聚合
	favTags := make(map[string]float64)
	var favCount int
	for _, in := range snap.UserInteractions(rctx.UserID) {
		if in.Kind != core.KindFavorite {
			continue
		}
		item, ok := snap.Item(in.ItemID)
		if !ok {
			continue
		}
		favCount++
		for tag, w := range itemFeatures(item) {
			favTags[tag] += w
		}
	}
	if favCount == 0 {
		return out, nil
	}

	metric := s.Metric
	if metric == "" {
		metric = "cosine"
	}

	for _, item := range snap.Items() {
		features := itemFeatures(item)
		var score float64
		switch metric {
		case "jaccard":
			score = jaccardSimilarity(favTags, features)
		default:
			score = cosineSimilarityForMaps(favTags, features)
		}
		if score > 0 {
			out[item.ID] = clamp01(score)
		}
	}
	return out, nil
}
