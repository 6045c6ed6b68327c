// Package filter selects cards with CEL expressions such as
// `starred && ease < 2.0` or `term.startsWith("le ") && !due`.
package filter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/hrygo/flashdeck/plugin/review"
	"github.com/hrygo/flashdeck/store"
)

// MaxExpressionLength bounds the size of a filter expression.
const MaxExpressionLength = 1024

// Filter is a compiled card filter. It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

var env *cel.Env

func init() {
	var err error
	env, err = cel.NewEnv(
		cel.Variable("term", cel.StringType),
		cel.Variable("definition", cel.StringType),
		cel.Variable("starred", cel.BoolType),
		cel.Variable("repetitions", cel.IntType),
		cel.Variable("interval_days", cel.IntType),
		cel.Variable("ease", cel.DoubleType),
		cel.Variable("due", cel.BoolType),
		cel.Variable("mastery", cel.IntType),
		cel.Variable("correct_streak", cel.IntType),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create filter environment: %v", err))
	}
}

// Compile parses and type-checks expr. The expression must evaluate to a bool.
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, fmt.Errorf("filter expression is empty")
	}
	if len(expr) > MaxExpressionLength {
		return nil, fmt.Errorf("filter expression exceeds %d bytes", MaxExpressionLength)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}
	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against card at now.
func (f *Filter) Match(card *store.Card, now time.Time) (bool, error) {
	out, _, err := f.program.Eval(activation(card, now))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q: %w", f.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T", f.expr, out.Value())
	}
	return matched, nil
}

// Predicate adapts the filter to a plain predicate. Cards that fail to evaluate do not match.
func (f *Filter) Predicate(now time.Time) func(*store.Card) bool {
	return func(card *store.Card) bool {
		matched, err := f.Match(card, now)
		if err != nil {
			slog.Debug("card filter evaluation failed", "card_id", card.ID, "error", err)
			return false
		}
		return matched
	}
}

func activation(card *store.Card, now time.Time) map[string]any {
	vars := map[string]any{
		"term":           card.Term,
		"definition":     card.Definition,
		"starred":        card.Starred,
		"repetitions":    int64(0),
		"interval_days":  int64(0),
		"ease":           review.DefaultEase,
		"due":            true,
		"mastery":        int64(0),
		"correct_streak": int64(card.MasteryCount),
	}
	if stats := review.FromStore(card.Stats); stats != nil {
		vars["repetitions"] = int64(stats.Repetitions)
		vars["interval_days"] = int64(stats.IntervalDays)
		vars["ease"] = stats.Ease
		vars["due"] = review.IsDue(stats, now)
		vars["mastery"] = int64(review.MasteryLevel(*stats))
	}
	return vars
}
