package ruleexpr

import (
	"fmt"
	"strings"
)

// PredicateFunc is a named domain predicate. Arguments arrive already
// evaluated; the context is available for predicates that read patient
// state directly (age, medications, codes) or the evaluation clock.
type PredicateFunc func(ctx *Context, args []any) (any, error)

// Registry maps predicate names to implementations. Catalog validation
// rejects rules that reference names missing from the registry.
type Registry map[string]PredicateFunc

// DefaultRegistry returns the standard clinical predicate set.
func DefaultRegistry() Registry {
	return Registry{
		"in_range":          InRange,
		"age_in_range":      AgeInRange,
		"text_contains_any": TextContainsAny,
		"has_medication":    HasMedication,
		"has_code_prefix":   HasCodePrefix,
		"hours_since":       HoursSince,
	}
}

// InRange reports whether a numeric value lies in [min, max], inclusive.
// Args: value, min, max.
func InRange(_ *Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("in_range expects 3 args (value, min, max), got %d", len(args))
	}
	v, ok := toFloat(args[0])
	if !ok {
		// A missing field resolves to nil; treat as out of range.
		if args[0] == nil {
			return false, nil
		}
		return nil, fmt.Errorf("in_range value is not numeric: %T", args[0])
	}
	min, ok := toFloat(args[1])
	if !ok {
		return nil, fmt.Errorf("in_range min is not numeric: %T", args[1])
	}
	max, ok := toFloat(args[2])
	if !ok {
		return nil, fmt.Errorf("in_range max is not numeric: %T", args[2])
	}
	return v >= min && v <= max, nil
}

// AgeInRange reports whether the patient's age lies in [min, max]. Args:
// min, max. Age is read from the context.
func AgeInRange(ctx *Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("age_in_range expects 2 args (min, max), got %d", len(args))
	}
	raw, ok := ctx.Resolve("age")
	if !ok {
		return false, nil
	}
	age, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("context age is not numeric: %T", raw)
	}
	min, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("age_in_range min is not numeric: %T", args[0])
	}
	max, ok := toFloat(args[1])
	if !ok {
		return nil, fmt.Errorf("age_in_range max is not numeric: %T", args[1])
	}
	return age >= min && age <= max, nil
}

// TextContainsAny reports whether any element of a string list contains any
// of the given patterns, case-insensitive. Args: list, patterns.
func TextContainsAny(_ *Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("text_contains_any expects 2 args (texts, patterns), got %d", len(args))
	}
	if args[0] == nil {
		return false, nil
	}
	texts, ok := toStrings(args[0])
	if !ok {
		return nil, fmt.Errorf("text_contains_any texts is not a string list: %T", args[0])
	}
	patterns, ok := toStrings(args[1])
	if !ok {
		return nil, fmt.Errorf("text_contains_any patterns is not a string list: %T", args[1])
	}
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, pattern := range patterns {
			if pattern == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(pattern)) {
				return true, nil
			}
		}
	}
	return false, nil
}

// HasMedication reports whether the medication list contains the named
// drug, case-insensitive substring match. Args: drug name.
func HasMedication(ctx *Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("has_medication expects 1 arg (name), got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("has_medication name must be a non-empty string")
	}
	raw, ok := ctx.Resolve("medications")
	if !ok {
		return false, nil
	}
	meds, ok := toStrings(raw)
	if !ok {
		return false, nil
	}
	needle := strings.ToLower(name)
	for _, med := range meds {
		if strings.Contains(strings.ToLower(med), needle) {
			return true, nil
		}
	}
	return false, nil
}

// HasCodePrefix reports whether any diagnosis code starts with the given
// prefix. Args: prefix.
func HasCodePrefix(ctx *Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("has_code_prefix expects 1 arg (prefix), got %d", len(args))
	}
	prefix, ok := args[0].(string)
	if !ok || prefix == "" {
		return nil, fmt.Errorf("has_code_prefix prefix must be a non-empty string")
	}
	raw, ok := ctx.Resolve("diagnosis_codes")
	if !ok {
		return false, nil
	}
	codes, ok := toStrings(raw)
	if !ok {
		return false, nil
	}
	upper := strings.ToUpper(prefix)
	for _, code := range codes {
		if strings.HasPrefix(strings.ToUpper(code), upper) {
			return true, nil
		}
	}
	return false, nil
}

// HoursSince returns the hours elapsed between a timestamp and the
// context's evaluation clock. Args: timestamp (time.Time or RFC3339).
func HoursSince(ctx *Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("hours_since expects 1 arg (timestamp), got %d", len(args))
	}
	ts, ok := toTime(args[0])
	if !ok {
		return nil, fmt.Errorf("hours_since arg is not a timestamp: %T", args[0])
	}
	return ctx.Now.Sub(ts).Hours(), nil
}
