package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Stringify renders a decoded JSON value as trimmed text. ok is false for nil,
// blank strings, and containers.
func Stringify(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	case map[string]any, []any:
		return "", false
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
