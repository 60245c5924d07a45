package graphwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabelStripsNonIdentifierChars(t *testing.T) {
	assert.Equal(t, "ARMResource", sanitizeLabel("ARMResource"))
	assert.Equal(t, "Key_Vault", sanitizeLabel("Key_Vault"))
	assert.Equal(t, "KeyVault", sanitizeLabel("Key-Vault!"))
}

func TestSanitizeRelationFallsBackWhenEmpty(t *testing.T) {
	assert.Equal(t, "HasRole", sanitizeRelation("!!!"))
	assert.Equal(t, "KeyVaultAdministrator", sanitizeRelation("KeyVaultAdministrator"))
}

func TestSanitizeStringEscapesAndStripsQuotes(t *testing.T) {
	assert.Equal(t, "", sanitizeString(""))
	assert.Equal(t, `a\\b`, sanitizeString(`a\b`))
	assert.Equal(t, "its fine", sanitizeString("it's fine"))
}

func TestPropertySetClauseEmptyPropsNoOp(t *testing.T) {
	clause, params := propertySetClause("n", nil)
	assert.Equal(t, "n.id = n.id", clause)
	assert.Empty(t, params)
}

func TestPropertySetClauseSanitizesValues(t *testing.T) {
	clause, params := propertySetClause("n", map[string]any{"name": "it's a vm"})
	assert.Contains(t, clause, "n.name = $p0")
	assert.Equal(t, "its a vm", params["p0"])
}

func TestPropertySetClauseSanitizesListValues(t *testing.T) {
	_, params := propertySetClause("n", map[string]any{"tags": []any{"it's", "plain"}})
	list, ok := params["p0"].([]any)
	if assert.True(t, ok) {
		assert.Equal(t, "its", list[0])
		assert.Equal(t, "plain", list[1])
	}
}
