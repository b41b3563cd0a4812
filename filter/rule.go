package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/novelhub/storyrec/core"
)

// RuleFilter 是规则过滤器，使用 CEL (Common Expression Language) 表达式
// 描述过滤条件。表达式在构造时编译一次，之后逐条求值，线程安全。
//
// 表达式可访问的变量：
//   - story.id              故事 ID (int)
//   - story.title           标题 (string)
//   - story.total_ratings   评分数 (int)
//   - story.average_rating  平均分 (double)
//   - story.days_old        入库天数 (double)
//   - story.genres          题材名列表 (list<string>)
//
// 示例：
//   - `story.average_rating < 2.0`                     → 过滤低分故事
//   - `story.total_ratings > 5 && story.average_rating < 2.5` → 样本充足且口碑差
//   - `"horror" in story.genres && story.days_old < 1` → 刚上架的恐怖题材
type RuleFilter struct {
	expr string
	prg  cel.Program
}

var _ Filter = (*RuleFilter)(nil)

// NewRuleFilter 编译 CEL 表达式并返回过滤器。表达式必须返回布尔值。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("story", cel.DynType),
	)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter: compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter: program %q: %w", expr, err)
	}
	return &RuleFilter{expr: expr, prg: prg}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule" }

func (f *RuleFilter) ShouldFilter(ctx context.Context, story *core.StoryRecord) (bool, error) {
	if story == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]interface{}{
		"story": f.buildInput(story),
	})
	if err != nil {
		return false, fmt.Errorf("filter: eval %q: %w", f.expr, err)
	}
	drop, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter: expression %q must return boolean, got %T", f.expr, out.Value())
	}
	return drop, nil
}

func (f *RuleFilter) buildInput(story *core.StoryRecord) map[string]interface{} {
	genres := make([]string, 0, len(story.Genres))
	for _, g := range story.Genres {
		genres = append(genres, g.Name)
	}
	return map[string]interface{}{
		"id":             story.ID,
		"title":          story.Title,
		"total_ratings":  story.TotalRatings,
		"average_rating": story.AverageRating,
		"days_old":       time.Since(story.CreatedAt).Hours() / 24,
		"genres":         genres,
	}
}
