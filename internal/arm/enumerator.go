package arm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/stormspotter-go/stormspotter/internal/recordstore"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// SubscriptionFilter applies the collector's --include-subs/--exclude-subs
// lists: include (allow-list) is applied before exclude (deny-list).
type SubscriptionFilter struct {
	Include []string
	Exclude []string
}

func (f SubscriptionFilter) allows(subscriptionID string) bool {
	if len(f.Include) > 0 && !contains(f.Include, subscriptionID) {
		return false
	}
	if contains(f.Exclude, subscriptionID) {
		return false
	}
	return true
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// Enumerator walks tenants, subscriptions, providers, resource groups,
// and resources, appending each to the Record Store.
type Enumerator struct {
	tenants   TenantsClient
	subs      SubscriptionsClient
	newScoped func(subscriptionID string) (ScopedClients, error)
	store     recordstore.Appender
	filter    SubscriptionFilter
}

// ScopedClients groups the per-subscription ARM clients the enumerator
// needs: provider inventory, resource groups, and resources.
type ScopedClients struct {
	Providers      ProvidersClient
	ResourceGroups ResourceGroupsClient
	Resources      ResourcesClient
}

// NewEnumerator builds an Enumerator. newScoped constructs the
// per-subscription client set (it differs per subscription because ARM
// clients are constructed with a subscription ID).
func NewEnumerator(tenants TenantsClient, subs SubscriptionsClient, newScoped func(string) (ScopedClients, error), store recordstore.Appender, filter SubscriptionFilter) *Enumerator {
	return &Enumerator{tenants: tenants, subs: subs, newScoped: newScoped, store: store, filter: filter}
}

// Run walks every visible tenant and its surviving subscriptions,
// persisting Tenant, Subscription, resource-group, and resource records.
// It returns the discovered subscription IDs so the RBAC collector can
// fan out per subscription.
func (e *Enumerator) Run(ctx context.Context) ([]string, error) {
	logger := utils.LoggerFromContext(ctx)
	var subscriptionIDs []string

	pager := e.tenants.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tenants: %w", err)
		}
		for _, tenant := range page.Value {
			if err := e.store.Append("tenant", tenant); err != nil {
				logger.Error(err, "failed to persist tenant")
			}
		}
	}

	subPager := e.subs.NewListPager(nil)
	for subPager.More() {
		page, err := subPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub.SubscriptionID == nil || !e.filter.allows(*sub.SubscriptionID) {
				continue
			}
			if err := e.store.Append("subscription", sub); err != nil {
				logger.Error(err, "failed to persist subscription")
			}
			subscriptionIDs = append(subscriptionIDs, *sub.SubscriptionID)
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, subscriptionID := range subscriptionIDs {
		subscriptionID := subscriptionID
		group.Go(func() error {
			if err := e.runSubscription(gctx, subscriptionID); err != nil {
				logger.Error(err, "subscription enumeration failed", "subscription_id", strings.ToLower(subscriptionID))
			}
			return nil
		})
	}
	_ = group.Wait()

	return subscriptionIDs, nil
}

func (e *Enumerator) runSubscription(ctx context.Context, subscriptionID string) error {
	logger := utils.LoggerFromContext(ctx).WithValues(utils.LogValues{}.AddSubscriptionID(subscriptionID)...)
	logger.Info("querying resources in subscription")

	clients, err := e.newScoped(subscriptionID)
	if err != nil {
		return fmt.Errorf("constructing clients for subscription %s: %w", subscriptionID, err)
	}

	versionTable, err := buildAPIVersionTable(ctx, clients.Providers)
	if err != nil {
		return fmt.Errorf("building api-version table for %s: %w", subscriptionID, err)
	}

	rgPager := clients.ResourceGroups.NewListPager(nil)
	for rgPager.More() {
		page, err := rgPager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing resource groups for %s: %w", subscriptionID, err)
		}
		for _, rg := range page.Value {
			if err := e.store.Append("resourcegroup", rg); err != nil {
				logger.Error(err, "failed to persist resource group")
			}
		}
	}

	resPager := clients.Resources.NewListPager(nil)
	for resPager.More() {
		page, err := resPager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing resources for %s: %w", subscriptionID, err)
		}
		for _, resource := range page.Value {
			if err := e.fetchAndPersist(ctx, clients.Resources, subscriptionID, resource, versionTable, logger); err != nil {
				logger.Error(err, "could not access resource", "resource_id", strings.ToLower(derefStr(resource.ID)))
			}
		}
	}

	logger.Info("finished querying subscription")
	return nil
}

// buildAPIVersionTable lists resource providers and their types, mapping
// lowercased "namespace/type" to the preferred api-version (the
// provider's default if present, else the first listed).
func buildAPIVersionTable(ctx context.Context, providers ProvidersClient) (map[string]string, error) {
	table := make(map[string]string)

	pager := providers.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, provider := range page.Value {
			if provider.Namespace == nil {
				continue
			}
			for _, rt := range provider.ResourceTypes {
				if rt.ResourceType == nil {
					continue
				}
				key := strings.ToLower(*provider.Namespace + "/" + *rt.ResourceType)
				version := preferredVersion(rt)
				if version != "" {
					table[key] = version
				}
			}
		}
	}
	return table, nil
}

func preferredVersion(rt *armresources.ProviderResourceType) string {
	if rt.DefaultAPIVersion != nil && *rt.DefaultAPIVersion != "" {
		return *rt.DefaultAPIVersion
	}
	if len(rt.APIVersions) > 0 && rt.APIVersions[0] != nil {
		return *rt.APIVersions[0]
	}
	return ""
}

// fetchAndPersist issues the per-resource GET at the provider map's
// preferred api-version, retrying per negotiateVersion on the known
// unsupported-version error, and appends the result to
// {subscriptionID}.sqlite.
func (e *Enumerator) fetchAndPersist(ctx context.Context, client ResourcesClient, subscriptionID string, resource *armresources.GenericResourceExpanded, versionTable map[string]string, logger logr.Logger) error {
	resourceID := derefStr(resource.ID)
	resourceType := strings.ToLower(derefStr(resource.Type))

	version := versionTable[resourceType]
	if version == "" {
		version = defaultAPIVersion
	}

	body, err := e.getByID(ctx, client, resourceID, version, map[string]bool{})
	if err != nil {
		return err
	}
	if body == nil {
		logger.Info("skipping resource: no api version remains", "resource_id", strings.ToLower(resourceID))
		return nil
	}

	return e.store.Append(subscriptionID, body)
}

// getByID performs the api-version negotiation loop from the spec: on
// the known "No registered resource provider found for location" error,
// parse the suggested versions, drop ones already tried, and retry with
// the latest remaining.
func (e *Enumerator) getByID(ctx context.Context, client ResourcesClient, resourceID, apiVersion string, tried map[string]bool) (map[string]any, error) {
	tried[apiVersion] = true

	resp, err := client.GetByID(ctx, resourceID, apiVersion, nil)
	if err != nil {
		next, matched, negotiateErr := negotiateVersion(err, tried)
		if !matched {
			return nil, fmt.Errorf("getting resource %s at %s: %w", resourceID, apiVersion, err)
		}
		if negotiateErr != nil {
			return nil, nil
		}
		return e.getByID(ctx, client, resourceID, next, tried)
	}

	encoded, err := json.Marshal(resp.GenericResource)
	if err != nil {
		return nil, fmt.Errorf("encoding resource %s: %w", resourceID, err)
	}
	var body map[string]any
	if err := json.Unmarshal(encoded, &body); err != nil {
		return nil, fmt.Errorf("decoding resource %s: %w", resourceID, err)
	}
	return body, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
