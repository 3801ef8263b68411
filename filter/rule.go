package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/stylekit/stylekit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// RuleFilter 是规则过滤器：用 CEL (Common Expression Language) 表达式
// 描述"什么候选该被裁掉"，表达式返回 true 即过滤。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：item.category == "shoes" / item.score < 0.1
//   - 标签：label.strategy == "trending"（取 Label 的 value）
//   - 逻辑：item.category == "accessory" && item.score < 0.3
//   - 存在性：label.reason != null
//   - 包含："vintage" in item.attrs
//
// 表达式在构造时编译一次，之后可并发复用。
type RuleFilter struct {
	expr string
	prg  cel.Program
}

// NewRuleFilter 编译表达式并返回规则过滤器。
// 空表达式合法，表示不过滤任何候选。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	f := &RuleFilter{expr: expr}
	if expr == "" {
		return f, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	f.prg = prg
	return f, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.ScoredItem,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.prg == nil {
		return false, nil
	}

	out, _, err := f.prg.Eval(f.buildInput(rctx, item))
	if err != nil {
		// 访问不存在的 key 会报错；用 label.key != null 检查存在性
		return false, fmt.Errorf("eval error: %v", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (f *RuleFilter) buildInput(rctx *core.RecommendContext, item *core.ScoredItem) map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	for k, v := range item.Labels {
		labels[k] = map[string]any{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.strategy 直接取 value，访问不存在的 key 用 != null 判断
		labelAccessor[k] = v.Value
	}

	itemInput := map[string]any{
		"id":     item.ID,
		"score":  item.Score,
		"labels": labels,
	}
	if rctx != nil && rctx.Snapshot != nil {
		if cat, ok := rctx.Snapshot.Item(item.ID); ok {
			itemInput["category"] = string(cat.Category)
			itemInput["attrs"] = cat.Attrs
			itemInput["meta"] = cat.Meta
		}
	}

	rctxInput := map[string]any{}
	if rctx != nil {
		rctxInput = map[string]any{
			"user_id":  rctx.UserID,
			"category": string(rctx.Category),
			"limit":    rctx.Limit,
			"params":   rctx.Params,
		}
	}

	return map[string]any{
		"item":  itemInput,
		"label": labelAccessor,
		"rctx":  rctxInput,
	}
}
