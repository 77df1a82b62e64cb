package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Coerce converts a raw environment value to the given kind.
func Coerce(raw string, kind Kind) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindBool:
		return parseBool(raw), nil
	case KindInt:
		return parseInt(raw)
	case KindFloat:
		n, ok := parseNumber(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a number", ErrCoercion, raw)
		}
		return n, nil
	case KindStringList:
		return parseList(raw), nil
	case KindObject:
		if v, ok := parseJSON(raw); ok {
			return v, nil
		}
		return raw, nil
	default:
		return infer(raw), nil
	}
}

// parseBool accepts true, 1, yes and on in any case; everything else is false.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// parseInt accepts an integer or a whole decimal that fits in an int.
func parseInt(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(s, 10, strconv.IntSize)
	if err == nil {
		return int(n), nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrCoercion, raw)
	}
	f, ok := parseNumber(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrCoercion, raw)
	}
	return wholeInt(f)
}

// wholeInt converts f to an int when it is whole and within range.
func wholeInt(f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrCoercion, f)
	}
	if f < math.MinInt || f >= -math.MinInt {
		return 0, fmt.Errorf("%w: %v is out of range", ErrCoercion, f)
	}
	return int(f), nil
}

// parseNumber tries an integer first, then a decimal.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n), true
	}
	if !strings.Contains(s, ".") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseList accepts a JSON array of strings or a comma separated list.
func parseList(raw string) []string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") && gjson.Valid(s) {
		items := gjson.Parse(s).Array()
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.String())
		}
		return out
	}

	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseJSON(raw string) (any, bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	return gjson.Parse(raw).Value(), true
}

// infer guesses the type of an untyped value: boolean, number, JSON, string.
func infer(raw string) any {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, strconv.IntSize); err == nil {
		return int(n)
	}
	if n, ok := parseNumber(raw); ok {
		return n
	}
	if v, ok := parseJSON(raw); ok {
		return v
	}
	return raw
}
