package arm

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsupportedVersionErr(body string) error {
	return &azcore.ResponseError{
		ErrorCode: "NoRegisteredProviderFound",
		RawResponse: &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		},
	}
}

func TestNegotiateVersionPicksLatestUntried(t *testing.T) {
	err := unsupportedVersionErr(`{"error":{"code":"NoRegisteredProviderFound","message":"No registered resource provider found for location 'westus'. The supported api-versions are '2019-01-01, 2020-06-01, 2021-04-01'."}}`)

	version, ok, negotiateErr := negotiateVersion(err, map[string]bool{})
	require.True(t, ok)
	require.NoError(t, negotiateErr)
	assert.Equal(t, "2021-04-01", version)
}

func TestNegotiateVersionSkipsAlreadyTried(t *testing.T) {
	err := unsupportedVersionErr(`{"error":{"message":"No registered resource provider found for location 'westus'. The supported api-versions are '2019-01-01, 2020-06-01, 2021-04-01'."}}`)

	version, ok, negotiateErr := negotiateVersion(err, map[string]bool{"2021-04-01": true})
	require.True(t, ok)
	require.NoError(t, negotiateErr)
	assert.Equal(t, "2020-06-01", version)
}

func TestNegotiateVersionExhausted(t *testing.T) {
	err := unsupportedVersionErr(`{"error":{"message":"No registered resource provider found for location 'westus'. The supported api-versions are '2019-01-01'."}}`)

	_, ok, negotiateErr := negotiateVersion(err, map[string]bool{"2019-01-01": true})
	require.True(t, ok)
	assert.ErrorIs(t, negotiateErr, ErrNoVersionRemains)
}

func TestNegotiateVersionUnrelatedErrorDoesNotMatch(t *testing.T) {
	_, ok, negotiateErr := negotiateVersion(errors.New("boom"), map[string]bool{})
	assert.False(t, ok)
	assert.NoError(t, negotiateErr)
}

func TestNegotiateVersionOtherResponseErrorDoesNotMatch(t *testing.T) {
	err := unsupportedVersionErr(`{"error":{"code":"ResourceNotFound","message":"the resource was not found"}}`)
	_, ok, _ := negotiateVersion(err, map[string]bool{})
	assert.False(t, ok)
}
