package store

import (
	"context"
	"sync"

	"github.com/stylekit/stylekit/core"
)

// MemoryCatalog 是目录存储的内存实现：物品按插入顺序编号（Seq），
// 可选地保存物品原图供全量重建使用。
type MemoryCatalog struct {
	mu      sync.RWMutex
	items   []*core.CatalogItem
	byID    map[string]*core.CatalogItem
	images  map[string][]byte
	nextSeq int64
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		byID:   make(map[string]*core.CatalogItem),
		images: make(map[string][]byte),
	}
}

var _ core.CatalogStore = (*MemoryCatalog)(nil)

// PutItem 新增或覆盖物品。新物品分配递增 Seq；覆盖保留原 Seq
// （平局键跟随首次上架时间）。
func (c *MemoryCatalog) PutItem(_ context.Context, item *core.CatalogItem) error {
	if item == nil || item.ID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			"catalog: nil item or empty id")
	}
	if !item.Category.Valid() || item.Category == core.CategoryAny {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			"catalog: invalid category: "+string(item.Category))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.byID[item.ID]; ok {
		item.Seq = old.Seq
		for i, it := range c.items {
			if it.ID == item.ID {
				c.items[i] = item
				break
			}
		}
	} else {
		c.nextSeq++
		item.Seq = c.nextSeq
		c.items = append(c.items, item)
	}
	c.byID[item.ID] = item
	return nil
}

// PutImage 保存物品原图（全量重建索引时通过 GetImage 取回）。
func (c *MemoryCatalog) PutImage(_ context.Context, itemID string, image []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[itemID] = image
	return nil
}

// GetImage 取物品原图；无图返回 NOT_FOUND。
func (c *MemoryCatalog) GetImage(_ context.Context, itemID string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[itemID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
			"catalog: no image for item: "+itemID)
	}
	return img, nil
}

func (c *MemoryCatalog) GetItem(_ context.Context, id string) (*core.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.byID[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
			"catalog: unknown item: "+id)
	}
	return item, nil
}

func (c *MemoryCatalog) ListItems(_ context.Context, category core.Category) ([]*core.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*core.CatalogItem, 0, len(c.items))
	for _, it := range c.items {
		if category != core.CategoryAny && it.Category != category {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// RemoveItem 下架物品（含原图）。删除不存在的 ID 是 no-op。
func (c *MemoryCatalog) RemoveItem(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id]; !ok {
		return nil
	}
	delete(c.byID, id)
	delete(c.images, id)
	for i, it := range c.items {
		if it.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	return nil
}

// Len 返回目录物品数。
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
