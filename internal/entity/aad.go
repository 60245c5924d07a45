package entity

import (
	"encoding/json"
	"strings"
)

// DeriveAAD builds the node and implicit edges for one AAD record of the
// given class (User, Group, ServicePrincipal, Application,
// DirectoryRole).
func DeriveAAD(class string, raw map[string]any) Result {
	id := lowerID(stringField(raw, "id", "objectId"))
	rawJSON, _ := json.Marshal(raw)
	props := canonicalizeProperties(raw, string(rawJSON))

	node := Node{
		ID:          id,
		ClassLabel:  "AAD" + class,
		FamilyLabel: FamilyAADObject,
		Properties:  props,
	}

	result := Result{Nodes: []Node{node}}

	switch class {
	case "Group":
		for _, member := range stringSlice(raw["members"]) {
			result.Relationships = append(result.Relationships, Relationship{
				SourceID:          lowerID(member),
				SourceFamilyLabel: FamilyAADObject,
				TargetID:          id,
				TargetFamilyLabel: FamilyAADObject,
				RelationName:      RelMemberOf,
			})
		}
		for _, owner := range stringSlice(raw["owners"]) {
			result.Relationships = append(result.Relationships, Relationship{
				SourceID:          lowerID(owner),
				SourceFamilyLabel: FamilyAADObject,
				TargetID:          id,
				TargetFamilyLabel: FamilyAADObject,
				RelationName:      RelOwns,
			})
		}

	case "DirectoryRole":
		for _, member := range stringSlice(raw["members"]) {
			result.Relationships = append(result.Relationships, Relationship{
				SourceID:          lowerID(member),
				SourceFamilyLabel: FamilyAADObject,
				TargetID:          id,
				TargetFamilyLabel: FamilyAADObject,
				RelationName:      RelMemberOf,
			})
		}

	case "ServicePrincipal", "Application":
		for _, owner := range stringSlice(raw["owners"]) {
			result.Relationships = append(result.Relationships, Relationship{
				SourceID:          lowerID(owner),
				SourceFamilyLabel: FamilyAADObject,
				TargetID:          id,
				TargetFamilyLabel: FamilyAADObject,
				RelationName:      RelOwns,
			})
		}
	}

	return result
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return strs
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// stripWhitespace removes all whitespace from a role name to compute an
// RBAC relation name. Collisions after stripping (e.g.
// "KeyVaultAdministrator" vs "Key Vault Administrator") are intentionally
// preserved, not disambiguated: the source behavior here is ambiguous and
// the spec instructs preserving it as-is.
func stripWhitespace(name string) string {
	return strings.Join(strings.Fields(name), "")
}
