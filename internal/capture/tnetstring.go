package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// maxLengthDigits bounds the size prefix of a tnetstring.
const maxLengthDigits = 12

// maxRecordSize caps the payload of a single top-level record. mitmproxy
// writes one record per flow, so only a corrupt prefix gets near it.
const maxRecordSize = 1 << 30

// errNotTNetString reports a record that does not follow the
// "<length>:<payload><tag>" layout.
var errNotTNetString = errors.New("malformed tnetstring")

// readTNetString reads one tnetstring value from br. It returns io.EOF only
// when br is exhausted before the first byte of a record.
//
// Decoded types: ',' []byte, ';' string, '#' int64, '^' float64, '!' bool,
// '~' nil, ']' []any, '}' map[string]any.
func readTNetString(br *bufio.Reader) (any, error) {
	length, err := readLength(br)
	if err != nil {
		return nil, err
	}

	if length > maxRecordSize {
		return nil, fmt.Errorf("%w: record length %d exceeds %d bytes", errNotTNetString, length, maxRecordSize)
	}

	// The buffer grows with the bytes actually present, so a lying prefix
	// fails as truncated instead of allocating its claimed size.
	var payload bytes.Buffer
	if _, err := io.CopyN(&payload, br, int64(length)); err != nil {
		return nil, fmt.Errorf("%w: truncated payload: %v", errNotTNetString, err)
	}

	tag, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing type tag", errNotTNetString)
	}

	return parsePayload(payload.Bytes(), tag)
}

func readLength(br *bufio.Reader) (int, error) {
	var digits []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(digits) == 0 {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("%w: truncated length", errNotTNetString)
		}
		if c == ':' {
			break
		}
		if c < '0' || c > '9' || len(digits) >= maxLengthDigits {
			return 0, fmt.Errorf("%w: invalid length prefix", errNotTNetString)
		}
		digits = append(digits, c)
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("%w: empty length prefix", errNotTNetString)
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNotTNetString, err)
	}
	return n, nil
}

// parseTNetString decodes a complete value held in data and returns the
// remaining bytes.
func parseTNetString(data []byte) (any, []byte, error) {
	colon := -1
	for i := 0; i < len(data) && i <= maxLengthDigits; i++ {
		if data[i] == ':' {
			colon = i
			break
		}
		if data[i] < '0' || data[i] > '9' {
			break
		}
	}
	if colon <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid length prefix", errNotTNetString)
	}

	length, err := strconv.Atoi(string(data[:colon]))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errNotTNetString, err)
	}
	end := colon + 1 + length
	if end >= len(data) {
		return nil, nil, fmt.Errorf("%w: truncated payload", errNotTNetString)
	}

	v, err := parsePayload(data[colon+1:end], data[end])
	if err != nil {
		return nil, nil, err
	}
	return v, data[end+1:], nil
}

func parsePayload(payload []byte, tag byte) (any, error) {
	switch tag {
	case ',':
		return payload, nil
	case ';':
		return string(payload), nil
	case '#':
		n, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid integer %q", errNotTNetString, payload)
		}
		return n, nil
	case '^':
		f, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid float %q", errNotTNetString, payload)
		}
		return f, nil
	case '!':
		switch string(payload) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: invalid boolean %q", errNotTNetString, payload)
	case '~':
		if len(payload) != 0 {
			return nil, fmt.Errorf("%w: null with payload", errNotTNetString)
		}
		return nil, nil
	case ']':
		var list []any
		for rest := payload; len(rest) > 0; {
			v, tail, err := parseTNetString(rest)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
			rest = tail
		}
		return list, nil
	case '}':
		dict := make(map[string]any)
		for rest := payload; len(rest) > 0; {
			k, tail, err := parseTNetString(rest)
			if err != nil {
				return nil, err
			}
			key, ok := asString(k)
			if !ok {
				return nil, fmt.Errorf("%w: dictionary key of type %T", errNotTNetString, k)
			}
			if len(tail) == 0 {
				return nil, fmt.Errorf("%w: dictionary key %q without value", errNotTNetString, key)
			}
			v, tail, err := parseTNetString(tail)
			if err != nil {
				return nil, err
			}
			dict[key] = v
			rest = tail
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("%w: unknown type tag %q", errNotTNetString, tag)
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
