package scorer

import (
	"context"
	"sort"

	"github.com/stylekit/stylekit/core"
)

// Collaborative 是基于用户的协同过滤策略（User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"。
//
// 算法流程：
//  1. 目标用户 → 交互物品集合
//  2. 对快照内其他用户算集合 Jaccard 相似度
//  3. 取 TopK 相似用户（同分按用户 ID 升序，保证确定性）
//  4. 物品分 = Σ(交互过该物品的相似用户的相似度) / Σ(全部相似用户的相似度)
//     —— 即按相似度加权的"相似用户触达比例"，天然落在 [0, 1]
//
// 冷启动用户（无交互历史）返回空 map。
type Collaborative struct {
	// TopKUsers 参与打分的相似用户数（默认 10）
	TopKUsers int

	// MinSimilarity 低于该相似度的用户不算"相似"（默认 0，不设门槛）
	MinSimilarity float64

	// MinCommonItems 两个用户至少要有多少个共同交互物品（默认 1）
	MinCommonItems int
}

func (s *Collaborative) Name() string { return "collaborative" }

func (s *Collaborative) Score(
	_ context.Context,
	rctx *core.RecommendContext,
) (map[string]float64, error) {
	out := make(map[string]float64)
	if rctx == nil || rctx.Snapshot == nil || rctx.UserID == "" {
		return out, nil
	}
	snap := rctx.Snapshot

	targetSet := snap.UserItemSet(rctx.UserID)
	if len(targetSet) == 0 {
		return out, nil
	}

	topK := s.TopKUsers
	if topK <= 0 {
		topK = 10
	}
	minCommon := s.MinCommonItems
	if minCommon <= 0 {
		minCommon = 1
	}

	type userSim struct {
		userID string
		sim    float64
	}
	sims := make([]userSim, 0)
	for _, uid := range snap.UserIDs() {
		if uid == rctx.UserID {
			continue
		}
		otherSet := snap.UserItemSet(uid)
		common := 0
		for id := range targetSet {
			if _, ok := otherSet[id]; ok {
				common++
			}
		}
		if common < minCommon {
			continue
		}
		sim := jaccardSets(targetSet, otherSet)
		if sim <= s.MinSimilarity {
			continue
		}
		sims = append(sims, userSim{userID: uid, sim: sim})
	}
	if len(sims) == 0 {
		return out, nil
	}

	sort.Slice(sims, func(i, j int) bool {
		if sims[i].sim != sims[j].sim {
			return sims[i].sim > sims[j].sim
		}
		return sims[i].userID < sims[j].userID
	})
	if len(sims) > topK {
		sims = sims[:topK]
	}

	var simTotal float64
	for _, us := range sims {
		simTotal += us.sim
	}

	// 相似用户触达的物品按相似度加权累积
	weighted := make(map[string]float64)
	for _, us := range sims {
		for itemID := range snap.UserItemSet(us.userID) {
			weighted[itemID] += us.sim
		}
	}
	for itemID, w := range weighted {
		out[itemID] = clamp01(w / simTotal)
	}
	return out, nil
}
