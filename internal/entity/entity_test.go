package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAADGroupMembership(t *testing.T) {
	raw := map[string]any{
		"id":      "Group-1",
		"members": []any{"User-A", "User-B"},
		"owners":  []any{"User-C"},
	}

	result := DeriveAAD("Group", raw)

	require.Len(t, result.Nodes, 1)
	node := result.Nodes[0]
	assert.Equal(t, "group-1", node.ID)
	assert.Equal(t, "AADGroup", node.ClassLabel)
	assert.Equal(t, FamilyAADObject, node.FamilyLabel)

	require.Len(t, result.Relationships, 3)
	var memberOf, owns int
	for _, rel := range result.Relationships {
		assert.Equal(t, "group-1", rel.TargetID)
		switch rel.RelationName {
		case RelMemberOf:
			memberOf++
		case RelOwns:
			owns++
		}
	}
	assert.Equal(t, 2, memberOf)
	assert.Equal(t, 1, owns)
}

func TestDeriveAADIDIsLowercased(t *testing.T) {
	result := DeriveAAD("User", map[string]any{"id": "AAAA-BBBB"})
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "aaaa-bbbb", result.Nodes[0].ID)
}

func TestDeriveARMDefaultContainsEdge(t *testing.T) {
	raw := map[string]any{
		"id":   "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.KeyVault/vaults/kv1",
		"type": "Microsoft.KeyVault/vaults",
	}

	result := DeriveARM("microsoft.keyvault/vaults", raw)

	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "vaults", result.Nodes[0].ClassLabel)

	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, RelContains, rel.RelationName)
	assert.Equal(t, "/subscriptions/sub1/resourcegroups/rg1", rel.SourceID)
	assert.Equal(t, "/subscriptions/sub1/resourcegroups/rg1/providers/microsoft.keyvault/vaults/kv1", rel.TargetID)
}

func TestDeriveARMNoContainsEdgeForTopLevelTypes(t *testing.T) {
	for _, armType := range []string{"tenant", "subscription", "resourcegroup"} {
		raw := map[string]any{"id": "/tenants/t1"}
		result := DeriveARM(armType, raw)
		for _, rel := range result.Relationships {
			assert.NotEqual(t, RelContains, rel.RelationName, "type %s should not get a default Contains edge", armType)
		}
	}
}

func TestDeriveARMManagedIdentitySynthesizesNode(t *testing.T) {
	raw := map[string]any{
		"id":   "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm1",
		"type": "Microsoft.Compute/virtualMachines",
		"identity": map[string]any{
			"type":        "SystemAssigned",
			"principalId": "PRINCIPAL-1",
			"tenantId":    "TENANT-1",
		},
	}

	result := DeriveARM("microsoft.compute/virtualmachines", raw)

	require.Len(t, result.Nodes, 2)
	spn := result.Nodes[1]
	assert.Equal(t, "principal-1", spn.ID)
	assert.Equal(t, "AADServicePrincipal", spn.ClassLabel)
	assert.Equal(t, FamilyAADObject, spn.FamilyLabel)

	var sawIs bool
	for _, rel := range result.Relationships {
		if rel.RelationName == RelIs {
			sawIs = true
			assert.Equal(t, "principal-1", rel.TargetID)
		}
	}
	assert.True(t, sawIs)
}

func TestDeriveARMManagedIdentityNoneSkipped(t *testing.T) {
	raw := map[string]any{
		"id":       "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm1",
		"identity": map[string]any{"type": "None"},
	}
	result := DeriveARM("microsoft.compute/virtualmachines", raw)
	assert.Len(t, result.Nodes, 1)
}

func TestDeriveKeyVaultAccessPolicies(t *testing.T) {
	raw := map[string]any{
		"id": "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.KeyVault/vaults/kv1",
		"properties": map[string]any{
			"accessPolicies": []any{
				map[string]any{
					"objectId":    "OBJ-1",
					"permissions": map[string]any{"keys": []any{"get", "list"}},
				},
			},
		},
	}

	result := DeriveARM("microsoft.keyvault/vaults", raw)

	var found bool
	for _, rel := range result.Relationships {
		if rel.RelationName == RelHasAccessPolicies {
			found = true
			assert.Equal(t, "obj-1", rel.SourceID)
			assert.NotNil(t, rel.Properties)
		}
	}
	assert.True(t, found)
}

func TestDeriveNetworkInterfaceEdges(t *testing.T) {
	raw := map[string]any{
		"id": "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Network/networkInterfaces/nic1",
		"properties": map[string]any{
			"virtualMachine":       map[string]any{"id": "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm1"},
			"networkSecurityGroup": map[string]any{"id": "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Network/networkSecurityGroups/nsg1"},
			"ipConfigurations": []any{
				map[string]any{
					"id": "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Network/networkInterfaces/nic1/ipConfigurations/ipconfig1",
					"properties": map[string]any{
						"publicIPAddress": map[string]any{"id": "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Network/publicIPAddresses/pip1"},
					},
				},
			},
		},
	}

	result := DeriveARM("microsoft.network/networkinterfaces", raw)

	var relations []string
	for _, rel := range result.Relationships {
		relations = append(relations, rel.RelationName)
	}
	assert.Contains(t, relations, RelAttachedTo)
	assert.Contains(t, relations, RelAssociatedTo)
	assert.Contains(t, relations, RelExposes)
}

func TestDeriveSubscriptionTenantAndManagedBy(t *testing.T) {
	raw := map[string]any{
		"id":       "/subscriptions/sub1",
		"tenantId": "TENANT-1",
		"managedByTenants": []any{
			map[string]any{"tenantId": "TENANT-2"},
		},
	}

	result := DeriveARM("subscription", raw)

	var contains, manages bool
	for _, rel := range result.Relationships {
		switch rel.RelationName {
		case RelContains:
			contains = true
			assert.Equal(t, "/tenants/tenant-1", rel.SourceID)
		case RelManages:
			manages = true
			assert.Equal(t, "/tenants/tenant-2", rel.SourceID)
		}
	}
	assert.True(t, contains)
	assert.True(t, manages)
}

func TestDeriveRBACRoleNameBecomesRelation(t *testing.T) {
	result := DeriveRBAC("PRINCIPAL-1", "/subscriptions/sub1", "Key Vault Administrator", "BuiltInRole", "desc", nil)

	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, "KeyVaultAdministrator", rel.RelationName)
	assert.Equal(t, "principal-1", rel.SourceID)
	assert.Equal(t, FamilyAADObject, rel.SourceFamilyLabel)
	assert.Equal(t, "/subscriptions/sub1", rel.TargetID)
	assert.Equal(t, FamilyARMResource, rel.TargetFamilyLabel)
	assert.Empty(t, result.Nodes, "RBAC derivation creates no nodes of its own")
}

func TestDeriveRBACWhitespaceCollisionPreserved(t *testing.T) {
	a := DeriveRBAC("p", "s", "KeyVaultAdministrator", "", "", nil)
	b := DeriveRBAC("p", "s", "Key Vault Administrator", "", "", nil)
	assert.Equal(t, a.Relationships[0].RelationName, b.Relationships[0].RelationName)
}

func TestDeriveRBACEmptyNameFallsBackToHasRole(t *testing.T) {
	result := DeriveRBAC("p", "s", "   ", "", "", nil)
	assert.Equal(t, RelHasRole, result.Relationships[0].RelationName)
}

func TestCanonicalizePropertiesFlattensAndKeepsRaw(t *testing.T) {
	raw := map[string]any{
		"id":         "ID-1",
		"name":       "res1",
		"tags":       map[string]any{"env": "prod"},
		"properties": map[string]any{"sku": "Standard", "nested": map[string]any{"a": 1}},
	}

	props := canonicalizeProperties(raw, `{"id":"ID-1"}`)

	assert.Equal(t, "id-1", props["id"])
	assert.Equal(t, "Standard", props["sku"])
	assert.NotContains(t, props, "nested")
	assert.NotContains(t, props, "properties")
	assert.NotContains(t, props, "env")
	tags, ok := props["tags"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"env", "prod"}, tags)
	assert.Equal(t, `{"id":"ID-1"}`, props["raw"])
}

func TestNormalizeDisplayName(t *testing.T) {
	props := map[string]any{"displayName": "Alice"}
	normalizeDisplayName(props)
	assert.Equal(t, "Alice", props["name"])
	assert.NotContains(t, props, "displayName")
}
