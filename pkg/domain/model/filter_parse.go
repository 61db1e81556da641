package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const (
	opAnd = "$and"
	opEq  = "$eq"
	opGte = "$gte"
	opLte = "$lte"

	legacyDateRange = "date_range"
)

// ParseFilter decodes the operator tree accepted by the chat API:
//
//	{"$and":[{"patient_name":{"$eq":"Juan Pérez"}},{"date":{"$gte":"2025-07-01","$lte":"2025-07-31"}}]}
//
// A bare value is shorthand for $eq, several top-level keys are an implicit
// AND and {"date_range":[from,to]} is accepted. null, "" and {} condition
// values are ignored. An empty document yields a nil Filter.
func ParseFilter(raw json.RawMessage) (Filter, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	v, err := decodeJSON(trimmed)
	if err != nil {
		return nil, goerr.Wrap(ErrValidation, "filter is not valid JSON", goerr.V("error", err.Error()))
	}

	f, err := parseNode(v)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseNode(v any) (Filter, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, goerr.Wrap(ErrValidation, "filter node must be an object", goerr.V("node", v))
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filters []Filter
	for _, key := range keys {
		value := obj[key]
		switch {
		case key == opAnd:
			children, err := parseAnd(value)
			if err != nil {
				return nil, err
			}
			filters = append(filters, children...)

		case key == legacyDateRange:
			f, err := parseDateRange(value)
			if err != nil {
				return nil, err
			}
			if f != nil {
				filters = append(filters, f)
			}

		case strings.HasPrefix(key, "$"):
			return nil, goerr.Wrap(ErrValidation, "unsupported filter operator", goerr.V("operator", key))

		default:
			field := FilterField(key)
			if err := field.Validate(); err != nil {
				return nil, err
			}
			fs, err := parseCondition(field, value)
			if err != nil {
				return nil, err
			}
			filters = append(filters, fs...)
		}
	}

	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0], nil
	default:
		return &And{Filters: filters}, nil
	}
}

func parseAnd(v any) ([]Filter, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, goerr.Wrap(ErrValidation, "$and expects an array", goerr.V("value", v))
	}
	var filters []Filter
	for _, item := range items {
		f, err := parseNode(item)
		if err != nil {
			return nil, err
		}
		if f != nil {
			filters = append(filters, f)
		}
	}
	return filters, nil
}

func parseDateRange(v any) (Filter, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		return nil, goerr.Wrap(ErrValidation, "date_range expects [from, to]", goerr.V("value", v))
	}

	r := &Range{Field: FieldDate}
	if s, ok := items[0].(string); ok && s != "" {
		r.Min = s
	} else if items[0] != nil && !ok {
		return nil, goerr.Wrap(ErrValidation, "date_range bound must be a string", goerr.V("value", items[0]))
	}
	if s, ok := items[1].(string); ok && s != "" {
		r.Max = s
	} else if items[1] != nil && !ok {
		return nil, goerr.Wrap(ErrValidation, "date_range bound must be a string", goerr.V("value", items[1]))
	}

	if r.Min == nil && r.Max == nil {
		return nil, nil
	}
	return r, nil
}

func parseCondition(field FilterField, v any) ([]Filter, error) {
	ops, ok := v.(map[string]any)
	if !ok {
		if isEmptyValue(v) {
			return nil, nil
		}
		value, err := convertValue(field, v)
		if err != nil {
			return nil, err
		}
		return []Filter{&Equality{Field: field, Value: value}}, nil
	}

	var filters []Filter
	rng := &Range{Field: field}
	for _, op := range sortedKeys(ops) {
		raw := ops[op]
		if op != opEq && op != opGte && op != opLte {
			return nil, goerr.Wrap(ErrValidation, "unsupported filter operator",
				goerr.V("operator", op), goerr.V("field", string(field)))
		}
		if isEmptyValue(raw) {
			continue
		}
		value, err := convertValue(field, raw)
		if err != nil {
			return nil, err
		}
		switch op {
		case opEq:
			filters = append(filters, &Equality{Field: field, Value: value})
		case opGte:
			rng.Min = value
		case opLte:
			rng.Max = value
		}
	}
	if rng.Min != nil || rng.Max != nil {
		filters = append(filters, rng)
	}
	return filters, nil
}

func convertValue(field FilterField, v any) (any, error) {
	switch field {
	case FieldPatientName, FieldDate:
		s, ok := v.(string)
		if !ok {
			return nil, goerr.Wrap(ErrValidation, "filter value must be a string",
				goerr.V("field", string(field)), goerr.V("value", v))
		}
		return strings.TrimSpace(s), nil

	case FieldAge:
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, goerr.Wrap(ErrValidation, "age filter value must be an integer", goerr.V("value", n.String()))
			}
			return int(i), nil
		default:
			return nil, goerr.Wrap(ErrValidation, "age filter value must be a number", goerr.V("value", v))
		}
	}
	return nil, goerr.Wrap(ErrValidation, "unknown filter field", goerr.V("field", string(field)))
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
