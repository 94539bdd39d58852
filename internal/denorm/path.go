package denorm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// extract resolves a dotted path against a node's raw content and returns the
// scalar values found there, stringified. Arrays encountered at any step are
// traversed element-wise, so "genus_species.text" collects the text of every
// entry. Missing segments yield no values, never an error: absence is a
// legitimate outcome the caller turns into the not-present sentinel.
func extract(content json.RawMessage, path string) []string {
	var root any
	if err := json.Unmarshal(content, &root); err != nil {
		return nil
	}
	var out []string
	collect(root, strings.Split(path, "."), &out)
	return out
}

func collect(v any, segments []string, out *[]string) {
	switch val := v.(type) {
	case []any:
		for _, elem := range val {
			collect(elem, segments, out)
		}
	case map[string]any:
		if len(segments) == 0 {
			return
		}
		next, ok := val[segments[0]]
		if !ok {
			return
		}
		collect(next, segments[1:], out)
	case string:
		if len(segments) == 0 && val != "" {
			*out = append(*out, val)
		}
	case float64:
		if len(segments) == 0 {
			*out = append(*out, strconv.FormatFloat(val, 'f', -1, 64))
		}
	case bool:
		if len(segments) == 0 {
			*out = append(*out, strconv.FormatBool(val))
		}
	}
}
