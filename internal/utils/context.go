// Copyright 2025 Microsoft Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	azcorearm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
)

type ContextError struct {
	got any
	key contextKey
}

func (c *ContextError) Error() string {
	return fmt.Sprintf(
		"error retrieving value for key %q from context, value obtained was '%v' and type obtained was '%T'",
		c.key,
		c.got,
		c.got)
}

type contextKey int

func (c contextKey) String() string {
	switch c {
	case contextKeyResourceID:
		return "resourceID"
	case contextKeyTenantID:
		return "tenantID"
	}
	return "<unknown>"
}

const (
	contextKeyResourceID contextKey = iota
	contextKeyTenantID
)

func ContextWithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

func LoggerFromContext(ctx context.Context) logr.Logger {
	logger, err := logr.FromContext(ctx)
	if err != nil {
		// Fail safe to the default logger, but record that the lookup failed.
		logger = DefaultLogger()
		logger.Error(err, "failed to get logger from context")
	}
	return logger
}

func ContextWithResourceID(ctx context.Context, resourceID *azcorearm.ResourceID) context.Context {
	return context.WithValue(ctx, contextKeyResourceID, resourceID)
}

func ResourceIDFromContext(ctx context.Context) (*azcorearm.ResourceID, error) {
	resourceID, ok := ctx.Value(contextKeyResourceID).(*azcorearm.ResourceID)
	if !ok {
		return resourceID, &ContextError{got: resourceID, key: contextKeyResourceID}
	}
	return resourceID, nil
}

func ContextWithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKeyTenantID, tenantID)
}

func TenantIDFromContext(ctx context.Context) (string, error) {
	tenantID, ok := ctx.Value(contextKeyTenantID).(string)
	if !ok {
		return tenantID, &ContextError{got: tenantID, key: contextKeyTenantID}
	}
	return tenantID, nil
}

// LogValues is a slice of key/value pairs for use with logger.WithValues.
// It supports method chaining for a fluent API:
//
//	logger.WithValues(
//	    utils.LogValues{}.
//	        AddClassName(val).
//	        AddSubscriptionID(val)...)
//
// This keeps log key names stable across the codebase and centralizes
// redaction-by-lowercasing of identifier values.
type LogValues []any

func (lv LogValues) AddAPIVersion(value string) LogValues {
	return append(lv, "api_version", strings.ToLower(value))
}

func (lv LogValues) AddRequestID(value string) LogValues {
	return append(lv, "request_id", value)
}

// AddClientRequestID adds the "client_request_id" key, value as given.
func (lv LogValues) AddClientRequestID(value string) LogValues {
	return append(lv, "client_request_id", value)
}

// AddErrorCode adds the "error_code" key with the lowercased value.
func (lv LogValues) AddErrorCode(value string) LogValues {
	return append(lv, "error_code", strings.ToLower(value))
}

// AddCloud adds the "cloud" key with the lowercased value.
func (lv LogValues) AddCloud(value string) LogValues {
	return append(lv, "cloud", strings.ToLower(value))
}

// AddTenantID adds the "tenant_id" key with the lowercased value.
func (lv LogValues) AddTenantID(value string) LogValues {
	return append(lv, "tenant_id", strings.ToLower(value))
}

// AddSubscriptionID adds the "subscription_id" key with the lowercased value.
func (lv LogValues) AddSubscriptionID(value string) LogValues {
	return append(lv, "subscription_id", strings.ToLower(value))
}

// AddPrincipalID adds the "principal_id" key with the lowercased value.
func (lv LogValues) AddPrincipalID(value string) LogValues {
	return append(lv, "principal_id", strings.ToLower(value))
}

// AddClassName adds the "class_name" key with the lowercased value.
func (lv LogValues) AddClassName(value string) LogValues {
	return append(lv, "class_name", strings.ToLower(value))
}

// AddResourceType adds the "resource_type" key with the lowercased value.
func (lv LogValues) AddResourceType(value string) LogValues {
	return append(lv, "resource_type", strings.ToLower(value))
}

// AddResourceGroup adds the "resource_group" key with the lowercased value.
func (lv LogValues) AddResourceGroup(value string) LogValues {
	return append(lv, "resource_group", strings.ToLower(value))
}

// AddResourceID adds the "resource_id" key with the lowercased value.
func (lv LogValues) AddResourceID(value string) LogValues {
	return append(lv, "resource_id", strings.ToLower(value))
}

// AddOperation adds the "operation" key with the lowercased value.
func (lv LogValues) AddOperation(value string) LogValues {
	return append(lv, "operation", strings.ToLower(value))
}

// AddAuditID adds the "audit_id" key, value as given.
func (lv LogValues) AddAuditID(value string) LogValues {
	return append(lv, "audit_id", value)
}

// AddLogValuesForResourceID adds subscription_id, resource_group,
// resource_type, and resource_id from a parsed ARM resource ID.
func (lv LogValues) AddLogValuesForResourceID(resourceID *azcorearm.ResourceID) LogValues {
	if resourceID == nil {
		return lv
	}
	return lv.AddSubscriptionID(resourceID.SubscriptionID).
		AddResourceGroup(resourceID.ResourceGroupName).
		AddResourceType(resourceID.ResourceType.String()).
		AddResourceID(resourceID.String())
}

// AddLogValuesForResourceIDString parses a resource ID string first.
// If parsing fails, only resource_id is added.
func (lv LogValues) AddLogValuesForResourceIDString(resourceIDString string) LogValues {
	resourceID, err := azcorearm.ParseResourceID(resourceIDString)
	if err != nil {
		return lv.AddResourceID(resourceIDString)
	}
	return lv.AddLogValuesForResourceID(resourceID)
}
