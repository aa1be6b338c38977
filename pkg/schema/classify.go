package schema

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Datetime shapes accepted by the classifier. Fractional seconds are limited to
// microsecond precision.
var datetimeRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,6})?$`)

const datetimeLayout = "2006-01-02T15:04:05"

// Classify infers the type of a textual value. The attempts run in a fixed
// order and the first one that succeeds wins:
//
//  1. empty            -> String
//  2. integer literal  -> Integer
//  3. float literal    -> Float
//  4. "true"/"false"   -> Boolean (case-insensitive)
//  5. datetime pattern -> DateTime
//  6. anything else    -> String
//
// Because integers are tried first, "1" and "0" are Integer, never Boolean.
// Surrounding whitespace is tolerated by the numeric attempts only: " 5 " is
// Integer, while " true" and " 2020-01-01T00:00:00" are String.
func Classify(value string) Type {
	if value == "" {
		return String
	}
	if v := strings.TrimSpace(value); v != "" {
		if isInteger(v) {
			return Integer
		}
		if isFloat(v) {
			return Float
		}
	}
	if isBoolean(value) {
		return Boolean
	}
	if isDateTime(value) {
		return DateTime
	}
	return String
}

// ClassifyValue infers the type of a JSON-native value by coercing it to text
// and applying the same attempts as Classify. Arrays and objects have no scalar
// form and classify as String.
func ClassifyValue(v any) Type {
	switch val := v.(type) {
	case nil:
		return String
	case string:
		return Classify(val)
	case []byte:
		return Classify(string(val))
	case bool:
		return Classify(strconv.FormatBool(val))
	case float64:
		return Classify(strconv.FormatFloat(val, 'f', -1, 64))
	case float32:
		return Classify(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case int:
		return Integer
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer
	case interface{ String() string }:
		// json.Number and similar literal-preserving types
		return Classify(val.String())
	default:
		return String
	}
}

func isInteger(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	// ErrRange is only reported for syntactically valid literals.
	return err == nil || errors.Is(err, strconv.ErrRange)
}

func isFloat(v string) bool {
	lower := strings.ToLower(strings.TrimLeft(v, "+-"))
	if strings.HasPrefix(lower, "0x") || strings.Contains(v, "_") {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

func isBoolean(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
}

func isDateTime(v string) bool {
	if !datetimeRegex.MatchString(v) {
		return false
	}
	_, err := time.Parse(datetimeLayout, v)
	return err == nil
}
