package entity

import "strings"

// flattenTags turns a tags dict {a:1,b:2} into the alternating list
// [a,1,b,2] the spec requires, a multiset-equivalent round trip of the
// original dict.
func flattenTags(tags any) []any {
	switch t := tags.(type) {
	case map[string]any:
		flat := make([]any, 0, len(t)*2)
		for k, v := range t {
			flat = append(flat, k, v)
		}
		return flat
	default:
		return nil
	}
}

// normalizeDisplayName folds displayName/display_name into name,
// mirroring the original's ad-hoc post-processing.
func normalizeDisplayName(props map[string]any) {
	if dn, ok := props["displayName"]; ok {
		props["name"] = dn
		delete(props, "displayName")
	}
	if dn, ok := props["display_name"]; ok {
		props["name"] = dn
		delete(props, "display_name")
	}
}

// isPrimitive reports whether v is a value that can be stored directly
// as a node property (string, number, or bool), matching the original's
// _parseProperty primitive check.
func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

// isPrimitiveList reports whether every element of a list is primitive,
// in which case the list is kept as-is; lists containing nested objects
// are dropped from first-class properties and only survive in raw.
func isPrimitiveList(v []any) bool {
	if len(v) == 0 {
		return false
	}
	for _, item := range v {
		if !isPrimitive(item) {
			return false
		}
	}
	return true
}

// canonicalizeProperties flattens "properties" into the top-level
// attribute map, keeps only primitive or primitive-list values as
// first-class node properties, flattens tags, normalizes display names,
// and always preserves the full original record as a serialized "raw"
// string property for anything dropped along the way.
func canonicalizeProperties(raw map[string]any, rawJSON string) map[string]any {
	out := make(map[string]any)

	for k, v := range raw {
		if k == "properties" || k == "tags" {
			continue
		}
		if addIfPrimitive(out, k, v) {
			continue
		}
	}

	if nested, ok := raw["properties"].(map[string]any); ok {
		for k, v := range nested {
			addIfPrimitive(out, k, v)
		}
	}

	if tags, ok := raw["tags"]; ok {
		out["tags"] = flattenTags(tags)
	}

	normalizeDisplayName(out)

	for k, v := range out {
		if s, ok := v.(string); ok && (k == "id" || k == "objectId") {
			out[k] = strings.ToLower(s)
		}
	}

	out["raw"] = rawJSON
	return out
}

func addIfPrimitive(out map[string]any, key string, v any) bool {
	if isPrimitive(v) {
		out[key] = v
		return true
	}
	if list, ok := v.([]any); ok && isPrimitiveList(list) {
		out[key] = list
		return true
	}
	return false
}
