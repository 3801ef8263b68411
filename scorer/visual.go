package scorer

import (
	"context"
	"sort"

	"github.com/stylekit/stylekit/core"
	"github.com/stylekit/stylekit/index"
)

// maxVisualSeeds 是以历史行为做种子时的最大种子数。
const maxVisualSeeds = 5

// Visual 是视觉相似策略：物品由嵌入向量表示，分数来自索引的余弦检索。
//
// 种子选取优先级：
//  1. QueryImage 非空：走特征抽取，以图搜图
//  2. QueryItemID 非空：取该物品的入库向量做查询
//  3. 兜底：用户最近的试穿 / 收藏物品（最多 maxVisualSeeds 个）
//
// 多种子时取各种子相似度的最大值（用户只要与任一件喜欢的单品相似即可）。
// 余弦相似 ∈ [-1, 1]，线性映射到 [0, 1] 与其他策略对齐。
// 索引为空或无种子不是错误，返回空 map；特征抽取失败向上抛，
// 由聚合层降级处理。
type Visual struct {
	// Index 是视觉索引，必填。
	Index *index.VisualIndex

	// Extractor 负责把 QueryImage 转成向量；只做文本推荐时可为 nil。
	Extractor core.FeatureExtractor

	// Fanout 是每个种子的检索条数（默认 50）。
	Fanout int
}

func (s *Visual) Name() string { return "visual" }

func (s *Visual) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
) (map[string]float64, error) {
	out := make(map[string]float64)
	if rctx == nil || s.Index == nil || s.Index.Len() == 0 {
		return out, nil
	}

	fanout := s.Fanout
	if fanout <= 0 {
		fanout = 50
	}

	seeds, excluded, err := s.seedVectors(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return out, nil
	}

	for _, vec := range seeds {
		results, err := s.Index.Query(vec, fanout, rctx.Category)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if _, skip := excluded[r.ID]; skip {
				continue
			}
			score := (r.Similarity + 1) / 2
			if score > out[r.ID] {
				out[r.ID] = clamp01(score)
			}
		}
	}
	return out, nil
}

// seedVectors 按优先级收集查询向量，并返回要从结果中排除的 ID
// （查询物品自身、种子物品）。
func (s *Visual) seedVectors(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([][]float64, map[string]struct{}, error) {
	excluded := make(map[string]struct{})

	if len(rctx.QueryImage) > 0 {
		if s.Extractor == nil {
			return nil, nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeNotSupported,
				"visual: image query without extractor")
		}
		vec, err := s.Extractor.Extract(ctx, rctx.QueryImage)
		if err != nil {
			return nil, nil, err
		}
		return [][]float64{vec}, excluded, nil
	}

	if rctx.QueryItemID != "" {
		vec, ok := s.Index.Vector(rctx.QueryItemID)
		if !ok {
			return nil, nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeNotFound,
				"visual: query item not in index: "+rctx.QueryItemID)
		}
		excluded[rctx.QueryItemID] = struct{}{}
		return [][]float64{vec}, excluded, nil
	}

	if rctx.UserID == "" || rctx.Snapshot == nil {
		return nil, excluded, nil
	}

	// 兜底：最近的试穿 / 收藏物品做种子（时间降序，同刻按物品 ID 升序）
	ins := make([]core.Interaction, 0)
	for _, in := range rctx.Snapshot.UserInteractions(rctx.UserID) {
		if in.Kind != core.KindTryOn && in.Kind != core.KindFavorite {
			continue
		}
		ins = append(ins, in)
	}
	sort.Slice(ins, func(i, j int) bool {
		if !ins[i].At.Equal(ins[j].At) {
			return ins[i].At.After(ins[j].At)
		}
		return ins[i].ItemID < ins[j].ItemID
	})

	seeds := make([][]float64, 0, maxVisualSeeds)
	for _, in := range ins {
		if _, dup := excluded[in.ItemID]; dup {
			continue
		}
		vec, ok := s.Index.Vector(in.ItemID)
		if !ok {
			continue
		}
		excluded[in.ItemID] = struct{}{}
		seeds = append(seeds, vec)
		if len(seeds) >= maxVisualSeeds {
			break
		}
	}
	return seeds, excluded, nil
}
