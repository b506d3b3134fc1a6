package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/creditlens/internal/model"
)

type shape int

const (
	shapeAbsent shape = iota // missing or null
	shapeList
	shapeObject
	shapeScalar
)

func shapeOf(raw json.RawMessage) shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return shapeAbsent
	}
	switch trimmed[0] {
	case '[':
		return shapeList
	case '{':
		return shapeObject
	default:
		return shapeScalar
	}
}

// timeLayouts are tried in order for string timestamps
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime normalises the timestamp encodings that have been persisted:
// RFC 3339 strings, epoch milliseconds as numbers, and epoch milliseconds as
// strings. Missing values become the zero time. Results are always UTC.
func parseTime(raw json.RawMessage) (time.Time, error) {
	if shapeOf(raw) == shapeAbsent {
		return time.Time{}, nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", model.ErrFormat, err)
	}

	switch val := v.(type) {
	case json.Number:
		n = val
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, nil
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = json.Number(s)
			break
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", model.ErrFormat, s)
	default:
		return time.Time{}, fmt.Errorf("%w: timestamp must be a string or number", model.ErrFormat)
	}

	ms, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp %s", model.ErrFormat, n)
		}
		ms = int64(f)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// looseString accepts strings, numbers, and booleans
func looseString(raw json.RawMessage) (string, error) {
	switch shapeOf(raw) {
	case shapeAbsent:
		return "", nil
	case shapeScalar:
	default:
		return "", fmt.Errorf("%w: expected a scalar", model.ErrFormat)
	}

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrFormat, err)
		}
		return s, nil
	}
	return string(trimmed), nil
}
