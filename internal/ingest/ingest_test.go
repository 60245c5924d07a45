package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileOrderAADBeforeGenericBeforeRBAC(t *testing.T) {
	assert.Less(t, fileOrder("user.sqlite"), fileOrder("microsoft.keyvault-vaults.sqlite"))
	assert.Less(t, fileOrder("microsoft.keyvault-vaults.sqlite"), fileOrder("rbac.sqlite"))
	assert.Less(t, fileOrder("group.sqlite"), fileOrder("rbac.sqlite"))
}

func TestFileOrderCaseInsensitiveAADMatch(t *testing.T) {
	assert.Equal(t, 0, fileOrder("USER.sqlite"))
	assert.Equal(t, 0, fileOrder("servicePrincipal.sqlite"))
}

func TestIsAADClass(t *testing.T) {
	assert.True(t, isAADClass("User"))
	assert.True(t, isAADClass("directoryrole"))
	assert.False(t, isAADClass("microsoft.compute/virtualmachines"))
	assert.False(t, isAADClass("rbac"))
}

func TestDeriveRBACRecordExtractsFields(t *testing.T) {
	raw := map[string]any{
		"principal_id":    "p1",
		"scope":           "/subscriptions/sub1",
		"roleName":        "Reader",
		"roleType":        "BuiltInRole",
		"roleDescription": "Lets you view everything",
		"permissions": []any{
			map[string]any{"actions": []any{"*/read"}},
		},
	}

	result := deriveRBACRecord(raw)

	if assert.Len(t, result.Relationships, 1) {
		rel := result.Relationships[0]
		assert.Equal(t, "p1", rel.SourceID)
		assert.Equal(t, "/subscriptions/sub1", rel.TargetID)
		assert.Equal(t, "Reader", rel.RelationName)
	}
}

func TestDeriveRBACRecordToleratesMissingFields(t *testing.T) {
	result := deriveRBACRecord(map[string]any{})
	assert.Len(t, result.Relationships, 1)
}
