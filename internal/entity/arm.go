package entity

import (
	"encoding/json"
	"strings"
)

// noResourceGroupTypes are the ARM-family types that live outside a
// resource group and so never get a default Contains edge.
var noResourceGroupTypes = map[string]bool{
	"tenant":        true,
	"subscription":  true,
	"resourcegroup": true,
}

// DeriveARM builds the node and implicit edges for one generic ARM
// resource record. armType is the resource's ARM type, e.g.
// "microsoft.keyvault/vaults", or one of "tenant", "subscription",
// "resourcegroup" for the non-resource-group-scoped records.
func DeriveARM(armType string, raw map[string]any) Result {
	id := lowerID(stringField(raw, "id", "Id"))
	rawJSON, _ := json.Marshal(raw)
	props := canonicalizeProperties(raw, string(rawJSON))

	node := Node{
		ID:          id,
		ClassLabel:  classLabelForType(armType, raw),
		FamilyLabel: FamilyARMResource,
		Properties:  props,
	}

	result := Result{Nodes: []Node{node}}

	if !noResourceGroupTypes[strings.ToLower(armType)] {
		if rg := resourceGroupID(id); rg != "" {
			result.Relationships = append(result.Relationships, Relationship{
				SourceID:          rg,
				SourceFamilyLabel: FamilyARMResource,
				TargetID:          id,
				TargetFamilyLabel: FamilyARMResource,
				RelationName:      RelContains,
			})
		}
	}

	if identity, ok := raw["identity"].(map[string]any); ok {
		if spnResult, spnRel, ok := deriveManagedIdentity(id, identity); ok {
			result.Nodes = append(result.Nodes, spnResult)
			result.Relationships = append(result.Relationships, spnRel)
		}
	}

	typeRels := deriveTypeSpecific(armType, id, raw)
	result.Relationships = append(result.Relationships, typeRels...)

	// A subscription's managing tenants get a synthesized Tenant node at
	// the source end of each Manages edge.
	if strings.EqualFold(armType, "subscription") {
		for _, rel := range typeRels {
			if rel.RelationName == RelManages {
				result.Nodes = append(result.Nodes, Node{
					ID:          rel.SourceID,
					ClassLabel:  "Tenant",
					FamilyLabel: FamilyARMResource,
					Properties:  map[string]any{"id": rel.SourceID},
				})
			}
		}
	}

	return result
}

// classLabelForType maps an ARM type to its class label: "Tenant",
// "Subscription" or "ResourceGroup" for those three top-level types,
// otherwise the last path segment of the record's own "type" field
// (capitalization as in the record), or of armType when the record has
// no type.
func classLabelForType(armType string, raw map[string]any) string {
	switch strings.ToLower(armType) {
	case "tenant":
		return "Tenant"
	case "subscription":
		return "Subscription"
	case "resourcegroup":
		return "ResourceGroup"
	}
	if t, ok := raw["type"].(string); ok && t != "" {
		parts := strings.Split(t, "/")
		return parts[len(parts)-1]
	}
	parts := strings.Split(armType, "/")
	return parts[len(parts)-1]
}

// resourceGroupID returns the resource ID prefix up to (exclusive) the
// "/providers" segment, the id of the owning resource group.
func resourceGroupID(id string) string {
	idx := strings.Index(strings.ToLower(id), "/providers")
	if idx < 0 {
		return ""
	}
	return id[:idx]
}

// deriveManagedIdentity synthesizes an AADServicePrincipal node for a
// resource's managed identity, and the (resource) -Is-> (spn) edge, when
// identity.type != "None".
func deriveManagedIdentity(resourceID string, identity map[string]any) (Node, Relationship, bool) {
	identityType, _ := identity["type"].(string)
	if identityType == "" || strings.EqualFold(identityType, "None") {
		return Node{}, Relationship{}, false
	}

	principalID := lowerID(stringField(identity, "principal_id", "principalId"))
	if principalID == "" {
		return Node{}, Relationship{}, false
	}

	node := Node{
		ID:          principalID,
		ClassLabel:  "AADServicePrincipal",
		FamilyLabel: FamilyAADObject,
		Properties: map[string]any{
			"id":       principalID,
			"tenantId": stringField(identity, "tenant_id", "tenantId"),
		},
	}

	rel := Relationship{
		SourceID:          resourceID,
		SourceFamilyLabel: FamilyARMResource,
		TargetID:          principalID,
		TargetFamilyLabel: FamilyAADObject,
		RelationName:      RelIs,
	}

	return node, rel, true
}
