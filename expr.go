package xlkinetics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	notationBegin = "${"
	notationEnd   = "}"
)

// evaluator compiles and runs expressions used by layouts: the sample label
// template and the sheet filter condition.
type evaluator struct {
	cache sync.Map // expression string → compiled *vm.Program
}

func newEvaluator() *evaluator {
	return &evaluator{}
}

func (e *evaluator) evaluate(expression string, env map[string]any) (any, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := e.compile(expression, env)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

// isConditionTrue evaluates a boolean condition. A nil result counts as false.
func (e *evaluator) isConditionTrue(condition string, env map[string]any) (bool, error) {
	result, err := e.evaluate(condition, env)
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, expected bool", condition, result)
	}
	return b, nil
}

func (e *evaluator) compile(expression string, env map[string]any) (*vm.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache.Store(expression, program)
	return program, nil
}

// render expands every ${...} segment of tmpl against env.
func (e *evaluator) render(tmpl string, env map[string]any) (string, error) {
	var b strings.Builder
	for _, seg := range parseTemplate(tmpl) {
		if !seg.isExpression {
			b.WriteString(seg.text)
			continue
		}
		v, err := e.evaluate(seg.text, env)
		if err != nil {
			return "", err
		}
		if v != nil {
			fmt.Fprint(&b, v)
		}
	}
	return b.String(), nil
}

// templateSegment is either literal text or an expression without delimiters.
type templateSegment struct {
	isExpression bool
	text         string
}

// parseTemplate splits "${plate}-${well}" into expression and literal segments.
// An unterminated "${" is kept as literal text.
func parseTemplate(value string) []templateSegment {
	var segments []templateSegment
	remaining := value

	for {
		startIdx := strings.Index(remaining, notationBegin)
		if startIdx < 0 {
			break
		}
		searchFrom := startIdx + len(notationBegin)
		endIdx := findMatchingEnd(remaining[searchFrom:])
		if endIdx < 0 {
			break
		}
		endIdx += searchFrom

		if startIdx > 0 {
			segments = append(segments, templateSegment{text: remaining[:startIdx]})
		}
		segments = append(segments, templateSegment{
			isExpression: true,
			text:         remaining[searchFrom:endIdx],
		})
		remaining = remaining[endIdx+len(notationEnd):]
	}

	if remaining != "" {
		segments = append(segments, templateSegment{text: remaining})
	}
	return segments
}

// findMatchingEnd returns the index of the closing delimiter, skipping nested pairs.
func findMatchingEnd(s string) int {
	depth := 0
	for i := 0; i <= len(s)-len(notationEnd); i++ {
		if strings.HasPrefix(s[i:], notationBegin) {
			depth++
		} else if strings.HasPrefix(s[i:], notationEnd) {
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// checkSyntax compiles every expression of a template without an environment.
func checkSyntax(tmpl string) error {
	for _, seg := range parseTemplate(tmpl) {
		if !seg.isExpression {
			continue
		}
		if _, err := expr.Compile(seg.text, expr.AllowUndefinedVariables()); err != nil {
			return fmt.Errorf("invalid expression %q: %w", seg.text, err)
		}
	}
	return nil
}
