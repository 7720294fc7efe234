// Package tags encodes model information as an object-store tag string.
package tags

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// Encode renders info as key=value pairs joined by '&'. The "untagged" key is
// dropped, keys and values are query-escaped, and keys are sorted. Strings
// are written as-is; other values as JSON.
func Encode(info map[string]any) string {
	keys := make([]string, 0, len(info))
	for k := range info {
		if k == models.InfoUntagged {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(render(info[k])))
	}
	return b.String()
}

func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Decode parses a tag string produced by Encode. Malformed pairs are skipped.
func Decode(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}
	for _, pair := range strings.Split(s, "&") {
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		out[key] = val
	}
	return out
}
