package qdrant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	filterOpAnd = "$and"
	filterOpOr  = "$or"
	filterOpNot = "$not"
	filterOpIn  = "$in"
	filterOpNin = "$nin"
	filterOpEq  = "$eq"
	filterOpNe  = "$ne"

	opFilterTranslate = "filter_translate"
)

type translatedFilter struct {
	Must    []any
	Should  []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.Should) > 0 {
		out["should"] = f.Should
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

func (f *translatedFilter) merge(src translatedFilter) {
	f.Must = append(f.Must, src.Must...)
	f.Should = append(f.Should, src.Should...)
	f.MustNot = append(f.MustNot, src.MustNot...)
}

// translateFilterMap converts the vectorstore operator language into a qdrant filter.
// Keys are visited in sorted order so the output is deterministic.
func translateFilterMap(filter map[string]any) (translatedFilter, error) {
	out := translatedFilter{}
	for _, key := range sortedKeys(filter) {
		value := filter[key]
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if !strings.HasPrefix(k, "$") {
			part, err := translateFieldFilter(k, value)
			if err != nil {
				return translatedFilter{}, err
			}
			out.merge(part)
			continue
		}

		switch strings.ToLower(k) {
		case filterOpAnd, filterOpOr:
			items, err := toObjectSlice(value)
			if err != nil {
				return translatedFilter{}, opErr(opFilterTranslate, OperationErrorValidation,
					fmt.Sprintf("operator %s expects array of objects", k), err)
			}
			for _, item := range items {
				sub, err := translateFilterMap(item)
				if err != nil {
					return translatedFilter{}, err
				}
				if strings.ToLower(k) == filterOpAnd {
					out.Must = append(out.Must, sub.asMap())
				} else {
					out.Should = append(out.Should, sub.asMap())
				}
			}
		case filterOpNot:
			item, ok := value.(map[string]any)
			if !ok {
				return translatedFilter{}, opErr(opFilterTranslate, OperationErrorValidation,
					fmt.Sprintf("operator %s expects an object", filterOpNot), nil)
			}
			sub, err := translateFilterMap(item)
			if err != nil {
				return translatedFilter{}, err
			}
			out.MustNot = append(out.MustNot, sub.asMap())
		default:
			return translatedFilter{}, opErr(opFilterTranslate, OperationErrorUnsupportedFilter,
				fmt.Sprintf("unsupported top-level filter operator %q", k), nil)
		}
	}
	return out, nil
}

func translateFieldFilter(field string, value any) (translatedFilter, error) {
	out := translatedFilter{}
	ops, isOps := value.(map[string]any)
	if !isOps {
		scalar, ok := toScalarValue(value)
		if !ok {
			return out, opErr(opFilterTranslate, OperationErrorValidation,
				fmt.Sprintf("field %q expects scalar value or operator object", field), nil)
		}
		out.Must = append(out.Must, matchValue(field, scalar))
		return out, nil
	}
	if len(ops) == 0 {
		return out, opErr(opFilterTranslate, OperationErrorValidation,
			fmt.Sprintf("field %q has empty operator map", field), nil)
	}

	for _, op := range sortedKeys(ops) {
		opVal := ops[op]
		switch normalized := strings.ToLower(strings.TrimSpace(op)); normalized {
		case filterOpEq, filterOpNe:
			scalar, ok := toScalarValue(opVal)
			if !ok {
				return translatedFilter{}, opErr(opFilterTranslate, OperationErrorValidation,
					fmt.Sprintf("operator %s for field %q expects scalar value", normalized, field), nil)
			}
			if normalized == filterOpEq {
				out.Must = append(out.Must, matchValue(field, scalar))
			} else {
				out.MustNot = append(out.MustNot, matchValue(field, scalar))
			}
		case filterOpIn, filterOpNin:
			values, err := toScalarSlice(opVal)
			if err != nil {
				return translatedFilter{}, opErr(opFilterTranslate, OperationErrorValidation,
					fmt.Sprintf("operator %s for field %q expects scalar array", normalized, field), err)
			}
			if len(values) == 0 {
				return translatedFilter{}, opErr(opFilterTranslate, OperationErrorValidation,
					fmt.Sprintf("operator %s for field %q cannot be empty", normalized, field), nil)
			}
			cond := map[string]any{"key": field, "match": map[string]any{"any": values}}
			if normalized == filterOpIn {
				out.Must = append(out.Must, cond)
			} else {
				out.MustNot = append(out.MustNot, cond)
			}
		default:
			return translatedFilter{}, opErr(opFilterTranslate, OperationErrorUnsupportedFilter,
				fmt.Sprintf("unsupported filter operator %q for field %q", op, field), nil)
		}
	}
	return out, nil
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toObjectSlice(value any) ([]map[string]any, error) {
	switch typed := value.(type) {
	case []map[string]any:
		return typed, nil
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected map[string]any in array, got %T", item)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected []any, got %T", value)
	}
}

func toScalarSlice(value any) ([]any, error) {
	switch typed := value.(type) {
	case []any:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			scalar, ok := toScalarValue(v)
			if !ok {
				return nil, fmt.Errorf("expected scalar, got %T", v)
			}
			out = append(out, scalar)
		}
		return out, nil
	case []string:
		return anySlice(typed), nil
	case []int:
		return anySlice(typed), nil
	case []int64:
		return anySlice(typed), nil
	case []float64:
		return anySlice(typed), nil
	case []bool:
		return anySlice(typed), nil
	default:
		return nil, fmt.Errorf("expected scalar array, got %T", value)
	}
}

func anySlice[T any](in []T) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	return out
}

func toScalarValue(value any) (any, bool) {
	switch typed := value.(type) {
	case string, bool, int, int64, uint, uint64, float64:
		return typed, true
	case int32:
		return int(typed), true
	case float32:
		return float64(typed), true
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, true
		}
		if f, err := typed.Float64(); err == nil {
			return f, true
		}
		return nil, false
	default:
		return nil, false
	}
}
