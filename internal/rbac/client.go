// Package rbac lists role assignments and definitions per subscription,
// annotating each assignment with its role definition, and surfaces the
// distinct principal IDs the assignments reference so they can be
// back-filled.
package rbac

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
)

// RoleAssignmentsClient is the subset of
// armauthorization.RoleAssignmentsClient this package calls.
type RoleAssignmentsClient interface {
	NewListForSubscriptionPager(options *armauthorization.RoleAssignmentsClientListForSubscriptionOptions) *runtime.Pager[armauthorization.RoleAssignmentsClientListForSubscriptionResponse]
}

var _ RoleAssignmentsClient = (*armauthorization.RoleAssignmentsClient)(nil)

// RoleDefinitionsClient is the subset of
// armauthorization.RoleDefinitionsClient this package calls: fetching
// one role definition synchronously by its fully qualified ID.
type RoleDefinitionsClient interface {
	GetByID(ctx context.Context, roleID string, options *armauthorization.RoleDefinitionsClientGetByIDOptions) (armauthorization.RoleDefinitionsClientGetByIDResponse, error)
}

var _ RoleDefinitionsClient = (*armauthorization.RoleDefinitionsClient)(nil)
