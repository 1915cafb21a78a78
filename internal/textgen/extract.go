package textgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	fenceStartRe   = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceEndRe     = regexp.MustCompile("\\s*```$")
	objectBlockRe  = regexp.MustCompile(`\{[\s\S]*\}`)
	doubleQuotedRe = regexp.MustCompile(`"insight"\s*:\s*"((?:\\.|[^"\\])*)"`)
	singleQuotedRe = regexp.MustCompile(`'insight'\s*:\s*'((?:\\.|[^'\\])*)'`)
	labelledRe     = regexp.MustCompile(`(?is)\binsight\b\s*[:：]\s*(.+?)(?:\n\s*\breferences\b\s*[:：]|\z)`)
	referencesRe   = regexp.MustCompile(`"references"\s*:\s*(\[[\s\S]*?\])`)
)

var contentKeys = []string{"insight", "Insight", "output", "result"}

// StripCodeFences removes a surrounding markdown code fence
func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	t = fenceStartRe.ReplaceAllString(t, "")
	t = fenceEndRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// ExtractJSONObject recovers a JSON object from model output, tolerating fences,
// surrounding prose and almost-JSON with raw newlines inside strings.
func ExtractJSONObject(text string) map[string]any {
	if text == "" {
		return map[string]any{}
	}
	t := StripCodeFences(text)

	if obj, ok := parseObject(t); ok {
		return obj
	}

	block := t
	if m := objectBlockRe.FindString(t); m != "" {
		block = m
	}
	if obj, ok := parseObject(block); ok {
		return obj
	}

	if m := doubleQuotedRe.FindStringSubmatch(block); m != nil {
		return map[string]any{
			"insight":    strings.TrimSpace(decodeEscaped(m[1])),
			"references": referencesFromText(block),
		}
	}
	if m := singleQuotedRe.FindStringSubmatch(block); m != nil {
		return map[string]any{
			"insight":    strings.TrimSpace(decodeEscaped(m[1])),
			"references": referencesFromText(block),
		}
	}
	if m := labelledRe.FindStringSubmatch(t); m != nil {
		return map[string]any{
			"insight":    strings.TrimSpace(m[1]),
			"references": referencesFromText(t),
		}
	}
	return map[string]any{}
}

func parseObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, true
	}
	return obj, true
}

func decodeEscaped(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	if out, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return out
	}
	return s
}

func referencesFromText(text string) []any {
	m := referencesRe.FindStringSubmatch(text)
	if m == nil {
		return []any{}
	}
	var arr []any
	if err := json.Unmarshal([]byte(m[1]), &arr); err != nil {
		return []any{}
	}
	return arr
}

// contentOf returns the first non-empty content field
func contentOf(out map[string]any) string {
	for _, k := range contentKeys {
		switch v := out[k].(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		default:
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

// referencesOf keeps reference objects; bare strings become {"title": s}
func referencesOf(out map[string]any) []map[string]any {
	arr, ok := out["references"].([]any)
	if !ok {
		return []map[string]any{}
	}
	refs := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		switch r := it.(type) {
		case map[string]any:
			refs = append(refs, r)
		case string:
			if strings.TrimSpace(r) != "" {
				refs = append(refs, map[string]any{"title": r})
			}
		}
	}
	return refs
}
