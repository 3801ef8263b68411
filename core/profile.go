package core

import "sort"

// StyleProfile 是用户风格画像：标签权重的加权聚合。
//
// 画像不落库、按需重算——避免第一类可变实体带来的陈旧问题。
// 权重来源：favorite / purchase / try_on / view 行为触达的物品标签，
// 按行为类型加权（InteractionKind.ProfileWeight）。
type StyleProfile struct {
	UserID string

	// TagWeights 是标签 -> 归一化权重（最大值归一到 1.0）。
	TagWeights map[string]float64

	// CategoryCounts 是用户拥有（购买）物品的类目分布，驱动衣橱补全策略。
	CategoryCounts map[Category]int

	// InteractionCount 是参与画像计算的行为条数；为 0 表示冷启动用户。
	InteractionCount int
}

// BuildStyleProfile 从快照重算用户画像。
// storedPrefs 是特征库中的存量偏好标签（可为 nil），用于冷启动兜底：
// 行为数据存在时与其叠加，不存在时直接作为画像。
func BuildStyleProfile(snap *Snapshot, userID string, storedPrefs map[string]float64) *StyleProfile {
	p := &StyleProfile{
		UserID:         userID,
		TagWeights:     make(map[string]float64),
		CategoryCounts: make(map[Category]int),
	}
	if snap == nil {
		return p
	}

	for _, in := range snap.UserInteractions(userID) {
		w := in.Kind.ProfileWeight()
		if w == 0 {
			continue
		}
		item, ok := snap.Item(in.ItemID)
		if !ok {
			continue
		}
		p.InteractionCount++
		for _, tag := range item.Attrs {
			p.TagWeights[tag] += w
		}
		// 类目也作为画像信号参与内容相似
		p.TagWeights["category:"+string(item.Category)] += w
		if in.Kind == KindPurchase {
			p.CategoryCounts[item.Category]++
		}
	}

	for tag, w := range storedPrefs {
		p.TagWeights[tag] += w
	}

	// 最大值归一，保证相似度输入的尺度稳定
	var max float64
	for _, w := range p.TagWeights {
		if w > max {
			max = w
		}
	}
	if max > 0 {
		for tag := range p.TagWeights {
			p.TagWeights[tag] /= max
		}
	}
	return p
}

// Empty 判断画像是否无任何信号。
func (p *StyleProfile) Empty() bool {
	return p == nil || len(p.TagWeights) == 0
}

// TopTags 返回权重最高的 n 个标签（权重降序，同权按标签字典序，保证确定性）。
func (p *StyleProfile) TopTags(n int) []string {
	type tw struct {
		tag string
		w   float64
	}
	all := make([]tw, 0, len(p.TagWeights))
	for tag, w := range p.TagWeights {
		all = append(all, tw{tag, w})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].w != all[j].w {
			return all[i].w > all[j].w
		}
		return all[i].tag < all[j].tag
	})
	if n > len(all) {
		n = len(all)
	}
	out := make([]string, 0, n)
	for _, t := range all[:n] {
		out = append(out, t.tag)
	}
	return out
}
