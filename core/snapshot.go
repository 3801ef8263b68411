package core

import "time"

// Snapshot 是单次推荐请求的不可变数据视图：目录物品 + 行为记录。
//
// 设计原则：
//   - 策略（Scorer）只读 Snapshot，不直接访问存储，保证可独立测试
//   - 一次请求对应一次快照读取，请求内部无跨策略事务
//   - 并发写入后的秒级陈旧是可接受的
type Snapshot struct {
	items        []*CatalogItem
	byID         map[string]*CatalogItem
	interactions []Interaction
	byUser       map[string][]Interaction

	// Now 是快照时间，热度衰减等时间计算以此为基准（保证可重放）。
	Now time.Time
}

// NewSnapshot 构建快照。items 顺序即目录插入顺序（Seq 未设置时按位置补齐）。
func NewSnapshot(items []*CatalogItem, interactions []Interaction, now time.Time) *Snapshot {
	s := &Snapshot{
		items:        items,
		byID:         make(map[string]*CatalogItem, len(items)),
		interactions: interactions,
		byUser:       make(map[string][]Interaction),
		Now:          now,
	}
	for i, it := range items {
		if it == nil {
			continue
		}
		if it.Seq == 0 {
			it.Seq = int64(i + 1)
		}
		s.byID[it.ID] = it
	}
	for _, in := range interactions {
		s.byUser[in.UserID] = append(s.byUser[in.UserID], in)
	}
	return s
}

// Item 按 ID 查找物品。
func (s *Snapshot) Item(id string) (*CatalogItem, bool) {
	it, ok := s.byID[id]
	return it, ok
}

// Items 返回全部候选物品（目录插入顺序）。
func (s *Snapshot) Items() []*CatalogItem {
	return s.items
}

// Seq 返回物品的目录插入序号；未知物品返回一个比所有已知序号都大的值，
// 保证未知物品在平局时排在最后。
func (s *Snapshot) Seq(id string) int64 {
	if it, ok := s.byID[id]; ok {
		return it.Seq
	}
	return int64(len(s.items)) + 1<<40
}

// Interactions 返回全部行为记录。
func (s *Snapshot) Interactions() []Interaction {
	return s.interactions
}

// UserInteractions 返回指定用户的行为记录（快照内顺序）。
func (s *Snapshot) UserInteractions(userID string) []Interaction {
	return s.byUser[userID]
}

// UserIDs 返回快照内出现过行为的全部用户 ID（无序）。
func (s *Snapshot) UserIDs() []string {
	ids := make([]string, 0, len(s.byUser))
	for uid := range s.byUser {
		ids = append(ids, uid)
	}
	return ids
}

// UserItemSet 返回用户交互过的物品 ID 集合。
// kinds 为空时统计全部行为类型。
func (s *Snapshot) UserItemSet(userID string, kinds ...InteractionKind) map[string]struct{} {
	set := make(map[string]struct{})
	for _, in := range s.byUser[userID] {
		if len(kinds) > 0 && !containsKind(kinds, in.Kind) {
			continue
		}
		set[in.ItemID] = struct{}{}
	}
	return set
}

// InteractionsSince 返回快照时间往前 window 内的全部行为记录。
// window <= 0 表示不限时间。
func (s *Snapshot) InteractionsSince(window time.Duration) []Interaction {
	if window <= 0 {
		return s.interactions
	}
	cutoff := s.Now.Add(-window)
	out := make([]Interaction, 0, len(s.interactions))
	for _, in := range s.interactions {
		if !in.At.Before(cutoff) {
			out = append(out, in)
		}
	}
	return out
}

func containsKind(kinds []InteractionKind, k InteractionKind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}
