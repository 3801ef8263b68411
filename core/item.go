package core

import "github.com/stylekit/stylekit/pkg/utils"

// Category 是服装类目枚举。
// 类目是推荐链路中的硬约束：category_filter 在排序前生效。
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryDress     Category = "dress"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"

	// CategoryAny 表示不过滤类目。
	CategoryAny Category = ""
)

// Valid 判断类目是否为已知枚举值（CategoryAny 视为合法）。
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryDress, CategoryShoes, CategoryAccessory, CategoryAny:
		return true
	default:
		return false
	}
}

// Categories 返回全部类目（不含 CategoryAny），顺序固定。
func Categories() []Category {
	return []Category{CategoryTop, CategoryBottom, CategoryDress, CategoryShoes, CategoryAccessory}
}

// CatalogItem 是目录物品：推荐候选的最小单元。
//
// 所有权：目录数据由外部存储层持有，引擎只读；
// Embedded 由 VisualIndex 在物品入索引后置位。
type CatalogItem struct {
	ID       string
	Category Category

	// Attrs 是属性标签集合：style / color / occasion / season 等。
	// 内容策略与画像构建基于标签重合度计算相似。
	Attrs []string

	// Seq 是目录插入序号，作为同分物品的确定性平局键（越小越旧）。
	Seq int64

	// Meta 承载名称、品牌、价格、图片地址等展示元信息，引擎不参与计算。
	Meta map[string]any

	// Embedded 表示该物品的视觉向量已进入索引。
	Embedded bool
}

// HasAttr 判断物品是否带有指定标签。
func (it *CatalogItem) HasAttr(tag string) bool {
	for _, a := range it.Attrs {
		if a == tag {
			return true
		}
	}
	return false
}

// AttrWeights 把标签集合转成权重表（每个标签权重 1.0），供相似度计算使用。
func (it *CatalogItem) AttrWeights() map[string]float64 {
	w := make(map[string]float64, len(it.Attrs))
	for _, a := range it.Attrs {
		w[a] = 1.0
	}
	return w
}

// ScoredItem 是推荐结果中的统一承载结构：分数 + 可解释标签。
// Labels 记录每个策略的贡献与推荐理由；Score 用于最终排序。
type ScoredItem struct {
	ID     string
	Score  float64
	Labels map[string]utils.Label
}

func NewScoredItem(id string) *ScoredItem {
	return &ScoredItem{
		ID:     id,
		Score:  0,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *ScoredItem) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *ScoredItem) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}
