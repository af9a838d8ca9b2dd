// Package payload normalizes loosely typed JSON values decoded from remote
// services whose field names and scalar encodings are not stable.
package payload

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var numericToken = regexp.MustCompile(`[-+]?(?:\d+(?:\.\d+)?|\.\d+)`)

// timeLayouts lists accepted timestamp encodings in match order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ToString returns the trimmed textual form of v. Empty strings, objects,
// arrays, booleans and nil are reported as absent.
func ToString(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		s := strings.TrimSpace(value)
		return s, s != ""
	case json.Number:
		s := strings.TrimSpace(value.String())
		return s, s != ""
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return "", false
		}
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case float32:
		return ToString(float64(value))
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case int32:
		return strconv.FormatInt(int64(value), 10), true
	default:
		return "", false
	}
}

// ToNumber coerces v into a finite float64. Strings have decimal commas
// normalized to dots and the first numeric token extracted, so "12,5 kg"
// yields 12.5 while a label such as "pendiente" is absent.
func ToNumber(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return finite(value)
	case float32:
		return finite(float64(value))
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case int32:
		return float64(value), true
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return finite(f)
		}
		return parseNumber(value.String())
	case string:
		return parseNumber(value)
	default:
		return 0, false
	}
}

func parseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, false
	}
	token := numericToken.FindString(s)
	if token == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToBool understands JSON booleans, non-zero numbers and common English and
// Spanish yes/no tokens.
func ToBool(v any) (bool, bool) {
	switch value := v.(type) {
	case bool:
		return value, true
	case string:
		switch Fold(value) {
		case "true", "1", "si", "s", "yes", "y", "verdadero":
			return true, true
		case "false", "0", "no", "n", "falso":
			return false, true
		}
		return false, false
	default:
		if f, ok := ToNumber(v); ok {
			return f != 0, true
		}
		return false, false
	}
}

// ToTime parses RFC 3339 and a handful of local date layouts, plus epoch
// seconds or milliseconds. Results are normalized to UTC.
func ToTime(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	f, ok := ToNumber(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// Fold lowercases s, trims it and strips combining accents so that
// "Aprobación" and "aprobacion" compare equal.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FoldKey folds s and drops separators, making camelCase and snake_case
// spellings of one field name identical.
func FoldKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '.':
			return -1
		}
		return r
	}, Fold(s))
}
