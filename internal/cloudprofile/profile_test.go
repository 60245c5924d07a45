package cloudprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownCloud(t *testing.T) {
	profile, err := Resolve("PUBLIC")
	require.NoError(t, err)
	assert.Equal(t, "https://graph.microsoft.com", profile.MicrosoftGraph)
	assert.Equal(t, "https://management.azure.com", profile.ResourceManager)
}

func TestResolveUnknownCloud(t *testing.T) {
	_, err := Resolve("MARS")
	assert.Error(t, err)
}

func TestResolveIsCaseSensitive(t *testing.T) {
	_, err := Resolve("public")
	assert.Error(t, err)
}
