package ruleexpr

import (
	"fmt"
	"strings"
	"time"
)

// Context carries the values an expression tree is evaluated against: a
// JSON-shaped snapshot map, a fixed evaluation clock and the predicate
// registry. The same context is reused across every rule in a batch.
type Context struct {
	Values     map[string]any
	Now        time.Time
	Predicates Registry
}

// NewContext builds an evaluation context. A nil registry gets the default
// predicate set.
func NewContext(values map[string]any, now time.Time, reg Registry) *Context {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Context{Values: values, Now: now, Predicates: reg}
}

// Resolve walks a dot-path through nested maps. The second return reports
// whether every segment resolved; a missing segment yields (nil, false).
func (c *Context) Resolve(path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = c.Values
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Evaluate interprets the rule's condition tree and returns the raw result.
// Action resolution (then/fallback) is the caller's concern.
func (r *Rule) Evaluate(ctx *Context) (any, error) {
	if r.If == nil {
		return nil, fmt.Errorf("rule has no condition tree")
	}
	return r.If.Eval(ctx)
}

// Eval for a comparison coerces both sides to a common type. Numeric
// comparison is attempted first; == and != additionally compare strings and
// booleans. A nil operand makes every comparison false except !=.
func (c *Compare) Eval(ctx *Context) (any, error) {
	left, err := c.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	right, err := c.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}

	if left == nil || right == nil {
		return c.Op == "!=" && left != right, nil
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		switch c.Op {
		case ">":
			return lf > rf, nil
		case "<":
			return lf < rf, nil
		case ">=":
			return lf >= rf, nil
		case "<=":
			return lf <= rf, nil
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		}
	}

	switch c.Op {
	case "==":
		return fmt.Sprint(left) == fmt.Sprint(right), nil
	case "!=":
		return fmt.Sprint(left) != fmt.Sprint(right), nil
	default:
		return nil, fmt.Errorf("operator %q requires numeric operands, got %T and %T", c.Op, left, right)
	}
}

// Eval short-circuits: "and" stops on the first falsy operand, "or" on the
// first truthy one.
func (b *Bool) Eval(ctx *Context) (any, error) {
	switch b.Op {
	case "and":
		for _, op := range b.Operands {
			v, err := op.Eval(ctx)
			if err != nil {
				return nil, err
			}
			if !Truthy(v) {
				return false, nil
			}
		}
		return true, nil
	case "or":
		for _, op := range b.Operands {
			v, err := op.Eval(ctx)
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, fmt.Errorf("unknown boolean combinator %q", b.Op)
	}
}

// Eval resolves the predicate from the registry and applies it to the
// evaluated arguments.
func (p *Predicate) Eval(ctx *Context) (any, error) {
	fn, ok := ctx.Predicates[p.Name]
	if !ok {
		return nil, fmt.Errorf("unregistered predicate %q", p.Name)
	}
	args := make([]any, 0, len(p.Args))
	for i, arg := range p.Args {
		v, err := arg.Eval(ctx)
		if err != nil {
			return nil, fmt.Errorf("predicate %q arg %d: %w", p.Name, i, err)
		}
		args = append(args, v)
	}
	out, err := fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("predicate %q: %w", p.Name, err)
	}
	return out, nil
}

// Eval resolves the field path; unresolvable paths evaluate to nil.
func (f *Field) Eval(ctx *Context) (any, error) {
	v, _ := ctx.Resolve(f.Path)
	return v, nil
}

// Eval returns the literal value.
func (l *Literal) Eval(*Context) (any, error) {
	return l.Value, nil
}

// Truthy reports whether a result counts as true for boolean combination
// and action resolution: nil, false, zero and empty string/slice are falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		return true
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	default:
		return 0, false
	}
}

// toTime coerces a context value into a timestamp. Catalog JSON carries
// timestamps as RFC3339 strings; values built in-process are time.Time.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// toStrings coerces a context value into a string list.
func toStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{t}, true
	default:
		return nil, false
	}
}
