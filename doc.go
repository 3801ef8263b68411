// Package stylekit 是一个服装推荐与视觉相似检索工具包。
//
// 设计要点：
// - Engine-first: 四个操作（以图搜图 / 以物搜物 / 个性化推荐 / 物品入库）由服务对象 Engine 承载，无包级全局状态
// - Strategy: 六个独立策略（content / favorites / wardrobe / collaborative / trending / visual）并发打分、加权融合
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 规则过滤
package stylekit

import (
	"github.com/stylekit/stylekit/core"
	"github.com/stylekit/stylekit/engine"
	"github.com/stylekit/stylekit/index"
	"github.com/stylekit/stylekit/scorer"
)

// 轻量 facade：便于用户直接 import "stylekit" 使用核心抽象。
type Engine = engine.Engine
type Weights = engine.Weights
type Scorer = scorer.Scorer
type VisualIndex = index.VisualIndex
type CatalogItem = core.CatalogItem
type Interaction = core.Interaction
type ScoredItem = core.ScoredItem
type Category = core.Category

const (
	CategoryTop       = core.CategoryTop
	CategoryBottom    = core.CategoryBottom
	CategoryDress     = core.CategoryDress
	CategoryShoes     = core.CategoryShoes
	CategoryAccessory = core.CategoryAccessory
	CategoryAny       = core.CategoryAny
)

const (
	KindView     = core.KindView
	KindFavorite = core.KindFavorite
	KindPurchase = core.KindPurchase
	KindTryOn    = core.KindTryOn
	KindDismiss  = core.KindDismiss
)
