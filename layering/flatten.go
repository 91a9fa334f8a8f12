package layering

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Flatten walks nested maps and slices under prefix and returns one entry per
// scalar leaf. Map keys are joined with "." and slice elements are addressed
// as "[i]", so {"a": {"b": [1]}} becomes {"a.b[0]": "1"}.
func Flatten(prefix string, value any) map[string]string {
	out := map[string]string{}
	flattenInto(out, prefix, value)
	return out
}

func flattenInto(out map[string]string, path string, value any) {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if path != "" {
				out[path] = ""
			}
			return
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flattenInto(out, joinKey(path, key), typed[key])
		}
	case []any:
		if len(typed) == 0 {
			if path != "" {
				out[path] = ""
			}
			return
		}
		for i, item := range typed {
			flattenInto(out, fmt.Sprintf("%s[%d]", path, i), item)
		}
	case []string:
		items := make([]any, len(typed))
		for i := range typed {
			items[i] = typed[i]
		}
		flattenInto(out, path, items)
	default:
		if path == "" {
			return
		}
		out[path] = Scalar(typed)
	}
}

// Scalar renders a decoded JSON or YAML leaf as a property string.
func Scalar(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Merge composes flat layers ordered from strongest to weakest. A key defined
// by a stronger layer is never replaced by a weaker one.
func Merge(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for i := len(layers) - 1; i >= 0; i-- {
		for key, value := range layers[i] {
			out[key] = value
		}
	}
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
