// Package index 实现视觉相似索引（VisualIndex）：
// 归一化向量的 arena 存储 + id→行号映射，余弦相似检索退化为点积。
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/stylekit/stylekit/core"
)

// State 是索引生命周期状态：EMPTY → BUILDING（批量灌入）→ READY。
// READY 索引接受增量 Add/Remove；全量重建回到 BUILDING，
// 旧索引在重建期间持续可查，成功后原子换入。
type State string

const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

// Result 是一次 kNN 查询的单条结果。
type Result struct {
	ID         string
	Similarity float64 // 余弦相似度 ∈ [-1, 1]，降序返回
}

// arena 是索引数据的不可变快照单元：向量连续追加，删除走墓碑。
// 追加式布局避免每次插入 O(n) 重写，也支撑重建期间的旧快照可查。
type arena struct {
	dim     int
	vectors []float32       // rows*dim，按行追加
	ids     []string        // 行号 -> 物品 ID
	cats    []core.Category // 行号 -> 类目
	vers    []uint64        // 行号 -> 插入版本
	dead    []bool          // 行号 -> 墓碑
	rows    map[string]int  // 物品 ID -> 存活行号
	tombs   int
}

func newArena(dim int) *arena {
	return &arena{
		dim:  dim,
		rows: make(map[string]int),
	}
}

// add 追加或替换一行。重复 ID 的旧行打墓碑并递增插入版本。
func (a *arena) add(id string, vec []float32, cat core.Category, ver uint64) {
	if old, ok := a.rows[id]; ok {
		a.dead[old] = true
		a.tombs++
	}
	row := len(a.ids)
	a.vectors = append(a.vectors, vec...)
	a.ids = append(a.ids, id)
	a.cats = append(a.cats, cat)
	a.vers = append(a.vers, ver)
	a.dead = append(a.dead, false)
	a.rows[id] = row
}

func (a *arena) remove(id string) bool {
	row, ok := a.rows[id]
	if !ok {
		return false
	}
	a.dead[row] = true
	a.tombs++
	delete(a.rows, id)
	return true
}

func (a *arena) vector(row int) []float32 {
	return a.vectors[row*a.dim : (row+1)*a.dim]
}

func (a *arena) live() int {
	return len(a.rows)
}

// compact 重写 arena，丢弃墓碑行（存活行保持插入顺序）。
func (a *arena) compact() *arena {
	out := newArena(a.dim)
	for row, id := range a.ids {
		if a.dead[row] {
			continue
		}
		out.add(id, a.vector(row), a.cats[row], a.vers[row])
	}
	return out
}

// VisualIndex 持有 (item_id → 归一化向量) 并响应 kNN 查询。
//
// 并发模型：
//   - 写（Add/Remove/Swap/Load）持写锁，单写者串行
//   - 读（Query/Vector/Has）持读锁，彼此并发
//   - 全量重建在独立的 Build 上进行，不触碰在役 arena；
//     Swap 原子换入，换入瞬间前后读者各见一个一致快照
type VisualIndex struct {
	mu    sync.RWMutex
	dim   int
	model string
	a     *arena
	state State
	ver   uint64 // 单调递增的插入版本号

	// minSimilarity 是查询的相似度下界；低于它的候选被丢弃。
	// math.Inf(-1) 表示不过滤（负相似度照常返回、排在最后）。
	minSimilarity float64
}

// Option 是 VisualIndex 的配置选项。
type Option func(*VisualIndex)

// WithMinSimilarity 设置查询相似度下界（如 0 表示丢弃负相关候选）。
func WithMinSimilarity(min float64) Option {
	return func(idx *VisualIndex) {
		idx.minSimilarity = min
	}
}

// New 创建一个空索引。dim 必须与 FeatureExtractor 输出维度一致，
// model 是骨干模型版本串（持久化时写入文件头）。
func New(dim int, model string, opts ...Option) *VisualIndex {
	idx := &VisualIndex{
		dim:           dim,
		model:         model,
		a:             newArena(dim),
		state:         StateEmpty,
		minSimilarity: math.Inf(-1),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

func (idx *VisualIndex) Dim() int             { return idx.dim }
func (idx *VisualIndex) ModelVersion() string { return idx.model }

// State 返回当前生命周期状态。
func (idx *VisualIndex) State() State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Len 返回存活条目数。
func (idx *VisualIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.a.live()
}

// Add 插入或替换一个物品向量。入库前归一化到单位长度，
// 使余弦相似退化为点积。重复插入替换旧条目并递增插入版本。
func (idx *VisualIndex) Add(id string, vec []float64, category core.Category) error {
	if id == "" {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: empty item id")
	}
	normalized, err := idx.normalize(vec)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ver++
	idx.a.add(id, normalized, category, idx.ver)
	idx.maybeCompactLocked()
	if idx.state == StateEmpty {
		idx.state = StateReady
	}
	return nil
}

// Remove 删除一个物品（墓碑式）。墓碑行不会出现在查询结果中；
// 墓碑占比过半时惰性重排。删除不存在的 ID 是 no-op。
func (idx *VisualIndex) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.a.remove(id) {
		idx.maybeCompactLocked()
	}
}

func (idx *VisualIndex) maybeCompactLocked() {
	if idx.a.tombs > 0 && idx.a.tombs >= idx.a.live() {
		idx.a = idx.a.compact()
	}
}

// Has 判断物品是否在索引中（墓碑不算）。
func (idx *VisualIndex) Has(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.a.rows[id]
	return ok
}

// Vector 返回物品的归一化向量副本（faiss reconstruct 的对应物）。
func (idx *VisualIndex) Vector(id string) ([]float64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	row, ok := idx.a.rows[id]
	if !ok {
		return nil, false
	}
	raw := idx.a.vector(row)
	out := make([]float64, idx.dim)
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, true
}

// InsertionVersion 返回物品的插入版本；重复 Add 会使其递增。
func (idx *VisualIndex) InsertionVersion(id string) (uint64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	row, ok := idx.a.rows[id]
	if !ok {
		return 0, false
	}
	return idx.a.vers[row], true
}

// Query 返回与查询向量最相似的 k 个物品。
//
// 契约：
//   - 相似度降序；同分按物品 ID 升序（确定性）
//   - category 非 CategoryAny 时只返回该类目
//   - 空索引返回空切片而非错误
//   - 低于 minSimilarity 下界的候选被丢弃
func (idx *VisualIndex) Query(vec []float64, k int, category core.Category) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}
	normalized, err := idx.normalize(vec)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	a := idx.a
	results := make([]Result, 0, k)
	for row, id := range a.ids {
		if a.dead[row] {
			continue
		}
		// 活行可能被替换行遮蔽：只认 rows 映射中的当前行
		if a.rows[id] != row {
			continue
		}
		if category != core.CategoryAny && a.cats[row] != category {
			continue
		}
		sim := dot(normalized, a.vector(row))
		if sim < idx.minSimilarity {
			continue
		}
		results = append(results, Result{ID: id, Similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// normalize 校验维度并把向量归一化为 float32 单位向量。
func (idx *VisualIndex) normalize(vec []float64) ([]float32, error) {
	if len(vec) != idx.dim {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeDimensionMismatch,
			fmt.Sprintf("index: vector dim %d, want %d", len(vec), idx.dim))
	}
	var norm float64
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: vector contains NaN/Inf")
		}
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: zero-norm vector")
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Build 是一次全量（重）建的暂存区：批量 Add 不触碰在役索引，
// Swap 成功后整体换入。
type Build struct {
	idx  *VisualIndex
	a    *arena
	ver  uint64
	done bool
	mu   sync.Mutex
}

// StartBuild 开始一次全量构建。索引状态切到 BUILDING，
// 但在役数据继续服务查询，直到 Swap。
func (idx *VisualIndex) StartBuild() *Build {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.state = StateBuilding
	return &Build{idx: idx, a: newArena(idx.dim)}
}

// Add 向暂存区灌入一个物品向量（归一化后暂存）。
func (b *Build) Add(id string, vec []float64, category core.Category) error {
	if id == "" {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: empty item id")
	}
	normalized, err := b.idx.normalize(vec)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: build already finished")
	}
	b.ver++
	b.a.add(id, normalized, category, b.ver)
	return nil
}

// Len 返回暂存区内的条目数。
func (b *Build) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.a.live()
}

// Swap 原子换入新数据并把索引置为 READY。
// 换入前到达的读请求继续命中旧快照，两侧各自一致。
func (b *Build) Swap() {
	b.mu.Lock()
	b.done = true
	a := b.a
	ver := b.ver
	b.mu.Unlock()

	b.idx.mu.Lock()
	defer b.idx.mu.Unlock()
	b.idx.a = a
	b.idx.ver = ver
	if a.live() > 0 {
		b.idx.state = StateReady
	} else {
		b.idx.state = StateEmpty
	}
}

// Abort 丢弃暂存区，索引回到换入前的状态。
func (b *Build) Abort() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()

	b.idx.mu.Lock()
	defer b.idx.mu.Unlock()
	if b.idx.a.live() > 0 {
		b.idx.state = StateReady
	} else {
		b.idx.state = StateEmpty
	}
}
