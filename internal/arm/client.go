package arm

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// TenantsClient is the subset of armsubscriptions.TenantsClient this
// package calls.
type TenantsClient interface {
	NewListPager(options *armsubscriptions.TenantsClientListOptions) *runtime.Pager[armsubscriptions.TenantsClientListResponse]
}

var _ TenantsClient = (*armsubscriptions.TenantsClient)(nil)

// SubscriptionsClient is the subset of armsubscriptions.Client this
// package calls.
type SubscriptionsClient interface {
	NewListPager(options *armsubscriptions.ClientListOptions) *runtime.Pager[armsubscriptions.ClientListResponse]
}

var _ SubscriptionsClient = (*armsubscriptions.Client)(nil)

// ProvidersClient is the subset of armresources.ProvidersClient this
// package calls: listing resource providers and their resource types to
// build the per-subscription api-version table.
type ProvidersClient interface {
	NewListPager(options *armresources.ProvidersClientListOptions) *runtime.Pager[armresources.ProvidersClientListResponse]
}

var _ ProvidersClient = (*armresources.ProvidersClient)(nil)

// ResourceGroupsClient is the subset of armresources.ResourceGroupsClient
// this package calls.
type ResourceGroupsClient interface {
	NewListPager(options *armresources.ResourceGroupsClientListOptions) *runtime.Pager[armresources.ResourceGroupsClientListResponse]
}

var _ ResourceGroupsClient = (*armresources.ResourceGroupsClient)(nil)

// ResourcesClient is the subset of armresources.Client this package
// calls: listing every resource in a subscription and fetching one
// resource body by ID at a negotiated api-version.
type ResourcesClient interface {
	NewListPager(options *armresources.ClientListOptions) *runtime.Pager[armresources.ClientListResponse]
	GetByID(ctx context.Context, resourceID, apiVersion string, options *armresources.ClientGetByIDOptions) (armresources.ClientGetByIDResponse, error)
}

var _ ResourcesClient = (*armresources.Client)(nil)
