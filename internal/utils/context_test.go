package utils

import (
	"context"
	"testing"

	azcorearm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContextRoundTrips(t *testing.T) {
	logger := testr.New(t)
	ctx := ContextWithLogger(context.Background(), logger)
	assert.Equal(t, logger, LoggerFromContext(ctx))
}

func TestLoggerFromContextFallsBackWithoutOne(t *testing.T) {
	logger := LoggerFromContext(context.Background())
	assert.NotNil(t, logger.GetSink())
}

func TestTenantIDFromContextRoundTrips(t *testing.T) {
	ctx := ContextWithTenantID(context.Background(), "tenant-1")
	id, err := TenantIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)
}

func TestTenantIDFromContextMissing(t *testing.T) {
	_, err := TenantIDFromContext(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tenantID")
}

func TestResourceIDFromContextRoundTrips(t *testing.T) {
	resourceID, err := azcorearm.ParseResourceID("/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm1")
	require.NoError(t, err)

	ctx := ContextWithResourceID(context.Background(), resourceID)
	got, err := ResourceIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, resourceID, got)
}

func TestResourceIDFromContextMissing(t *testing.T) {
	_, err := ResourceIDFromContext(context.Background())
	assert.Error(t, err)
}

func TestLogValuesChaining(t *testing.T) {
	values := LogValues{}.AddSubscriptionID("SUB-1").AddResourceGroup("RG-1").AddClassName("User")
	assert.Equal(t, LogValues{
		"subscription_id", "sub-1",
		"resource_group", "rg-1",
		"class_name", "user",
	}, values)
}

func TestAddLogValuesForResourceIDNil(t *testing.T) {
	values := LogValues{}.AddLogValuesForResourceID(nil)
	assert.Empty(t, values)
}

func TestAddLogValuesForResourceIDStringFallsBackOnParseFailure(t *testing.T) {
	values := LogValues{}.AddLogValuesForResourceIDString("not-a-resource-id")
	assert.Equal(t, LogValues{"resource_id", "not-a-resource-id"}, values)
}

func TestAddLogValuesForResourceIDStringParsesValidID(t *testing.T) {
	values := LogValues{}.AddLogValuesForResourceIDString("/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/RG1/providers/Microsoft.Compute/virtualMachines/vm1")
	assert.Contains(t, values, "subscription_id")
	assert.Contains(t, values, "resource_group")
	idx := indexOf(values, "resource_group")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "rg1", values[idx+1])
}

func indexOf(values LogValues, key string) int {
	for i, v := range values {
		if s, ok := v.(string); ok && s == key {
			return i
		}
	}
	return -1
}
