package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stylekit/stylekit/core"
)

// ImageSource 提供物品原图，全量重建索引时逐个拉取。
type ImageSource interface {
	// GetImage 获取物品图片原始字节；无图返回 NOT_FOUND
	GetImage(ctx context.Context, itemID string) ([]byte, error)
}

// RebuildTask 是一次后台全量重建。重建在暂存区进行，
// 在役索引持续服务查询，完成后原子换入。
type RebuildTask struct {
	total   int64
	indexed int64
	skipped int64

	done chan struct{}

	mu  sync.Mutex
	err error
}

// Done 在任务结束（成功、失败或取消）后关闭。
func (t *RebuildTask) Done() <-chan struct{} { return t.done }

// Err 返回任务的终态错误；任务未结束或成功时为 nil。
func (t *RebuildTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Progress 返回 (已入库, 已跳过, 总数)。
func (t *RebuildTask) Progress() (indexed, skipped, total int64) {
	return atomic.LoadInt64(&t.indexed), atomic.LoadInt64(&t.skipped), atomic.LoadInt64(&t.total)
}

func (t *RebuildTask) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// StartRebuild 启动后台全量重建：遍历目录、逐个提取特征灌入暂存区，
// 成功后整体换入。单个物品取图/提取失败只跳过该物品并计数，
// 不使整次重建失败；ctx 取消则丢弃暂存区，在役索引不受影响。
// 目录非空但全部物品失败时同样丢弃暂存区，以免用空索引换掉在役数据。
func (e *Engine) StartRebuild(ctx context.Context, images ImageSource) (*RebuildTask, error) {
	if images == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: image source is required")
	}
	items, err := e.catalog.ListItems(ctx, core.CategoryAny)
	if err != nil {
		return nil, err
	}

	task := &RebuildTask{done: make(chan struct{})}
	atomic.StoreInt64(&task.total, int64(len(items)))
	build := e.index.StartBuild()

	go func() {
		for _, item := range items {
			if ctx.Err() != nil {
				build.Abort()
				task.finish(ctx.Err())
				return
			}
			img, err := images.GetImage(ctx, item.ID)
			if err != nil {
				e.logger.Warnf("rebuild: no image for %s: %v", item.ID, err)
				atomic.AddInt64(&task.skipped, 1)
				continue
			}
			vec, err := e.extractor.Extract(ctx, img)
			if err != nil {
				e.logger.Warnf("rebuild: extract failed for %s: %v", item.ID, err)
				atomic.AddInt64(&task.skipped, 1)
				continue
			}
			if err := build.Add(item.ID, vec, item.Category); err != nil {
				e.logger.Warnf("rebuild: index add failed for %s: %v", item.ID, err)
				atomic.AddInt64(&task.skipped, 1)
				continue
			}
			item.Embedded = true
			atomic.AddInt64(&task.indexed, 1)
		}
		indexed := atomic.LoadInt64(&task.indexed)
		skipped := atomic.LoadInt64(&task.skipped)
		if indexed == 0 && len(items) > 0 {
			build.Abort()
			e.logger.Warnf("rebuild aborted: all %d items skipped, keeping current index", skipped)
			task.finish(core.NewDomainError(core.ModuleEngine, core.ErrorCodeExtractionFailed,
				"engine: rebuild produced no entries"))
			return
		}
		build.Swap()
		e.logger.Infof("rebuild done: %d indexed, %d skipped", indexed, skipped)
		task.finish(nil)
	}()
	return task, nil
}
