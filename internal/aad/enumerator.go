package aad

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/stormspotter-go/stormspotter/internal/recordstore"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// Enumerator walks Microsoft Graph for every AAD class and appends
// parsed records to the Record Store, expanding owners/members where the
// spec calls for it.
type Enumerator struct {
	client   *Client
	store    recordstore.Appender
	tenantID string
}

// NewEnumerator builds an Enumerator against client, appending to store.
func NewEnumerator(client *Client, store recordstore.Appender, tenantID string) *Enumerator {
	return &Enumerator{client: client, store: store, tenantID: tenantID}
}

// graphResponse is the shape of a Graph collection response: a page of
// values plus an optional next-page link.
type graphResponse struct {
	Value    []map[string]any `json:"value"`
	NextLink string           `json:"@odata.nextLink"`
	Error    map[string]any   `json:"error"`
}

// Run performs a full scan of every AAD class.
func (e *Enumerator) Run(ctx context.Context) error {
	logger := utils.LoggerFromContext(ctx)

	if err := e.client.ProbeAccess(ctx); err != nil {
		logger.Error(err, "aad enumeration aborted: access probe failed")
		return nil
	}

	for _, class := range AllClasses() {
		if err := e.queryClass(ctx, class, ""); err != nil {
			logger.Error(err, "class enumeration failed", "class_name", strings.ToLower(class))
		}
	}
	return nil
}

// Backfill enumerates exactly the object IDs named in byClass, dispatched
// to the class-specific parser without a full scan. byClass maps class
// name to the set of object IDs to fetch individually.
func (e *Enumerator) Backfill(ctx context.Context, byClass map[string][]string) error {
	logger := utils.LoggerFromContext(ctx)
	for class, ids := range byClass {
		for _, id := range ids {
			if err := e.queryClass(ctx, class, id); err != nil {
				logger.Error(err, "backfill item failed", "class_name", strings.ToLower(class), "principal_id", strings.ToLower(id))
			}
		}
	}
	return nil
}

// queryClass pages (or, if objectID is set, fetches a single object)
// through one class's Graph resource, expanding navigation properties
// per class, and appends each parsed record.
func (e *Enumerator) queryClass(ctx context.Context, class, objectID string) error {
	resource, ok := resourceFor[class]
	if !ok {
		return fmt.Errorf("unknown aad class %q", class)
	}

	logger := utils.LoggerFromContext(ctx).WithValues(utils.LogValues{}.AddClassName(class)...)

	var url string
	if objectID != "" {
		url = fmt.Sprintf("%s/v1.0/%s/%s", e.client.graphBase, resource, objectID)
	} else {
		logger.Info("starting query")
		url = fmt.Sprintf("%s/v1.0/%s", e.client.graphBase, resource)
		// directoryRoles doesn't page the same way as the other Graph
		// resources and rejects $top.
		if class != ClassDirectoryRole {
			url += "?$top=999"
		}
	}

	for url != "" {
		var resp graphResponse
		if objectID != "" {
			var single map[string]any
			if err := e.client.get(ctx, url, &single); err != nil {
				return err
			}
			if errBody, ok := single["error"]; ok {
				return fmt.Errorf("graph error fetching %s/%s: %v", resource, objectID, errBody)
			}
			if err := e.parseAndStore(ctx, class, single, logger); err != nil {
				return err
			}
			return nil
		}

		if err := e.client.get(ctx, url, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			return fmt.Errorf("graph error listing %s: %v", resource, resp.Error)
		}

		for _, value := range resp.Value {
			if err := e.parseAndStore(ctx, class, value, logger); err != nil {
				logger.Error(err, "skipping item")
			}
		}

		url = resp.NextLink
	}

	if objectID == "" {
		logger.Info("finished query")
	}
	return nil
}

func (e *Enumerator) parseAndStore(ctx context.Context, class string, value map[string]any, logger logr.Logger) error {
	parsed, err := e.parse(ctx, class, value)
	if err != nil {
		return fmt.Errorf("parsing %s object: %w", class, err)
	}
	return e.store.Append(class, parsed)
}

// parse expands owners/members per class, mirroring the original
// per-subclass parse() overrides.
func (e *Enumerator) parse(ctx context.Context, class string, value map[string]any) (map[string]any, error) {
	id := objectID(value)

	switch class {
	case ClassGroup:
		members, err := e.expand(ctx, ClassGroup, id, "members")
		if err != nil {
			return nil, err
		}
		owners, err := e.expand(ctx, ClassGroup, id, "owners")
		if err != nil {
			return nil, err
		}
		value["members"] = members
		value["owners"] = owners

	case ClassDirectoryRole:
		members, err := e.expand(ctx, ClassDirectoryRole, id, "members")
		if err != nil {
			return nil, err
		}
		value["members"] = members

	case ClassServicePrincipal, ClassApplication:
		if isFirstParty(value) {
			value["owners"] = []string{}
			break
		}
		owners, err := e.expand(ctx, class, id, "owners")
		if err != nil {
			return nil, err
		}
		value["owners"] = owners

	case ClassUser:
		// No expansion.
	}

	return value, nil
}

// expand fetches a navigation property (owners or members) for one
// object and returns the flat list of referenced object IDs.
func (e *Enumerator) expand(ctx context.Context, class, id, prop string) ([]string, error) {
	resource := resourceFor[class]
	url := fmt.Sprintf("%s/v1.0/%s/%s/%s", e.client.graphBase, resource, id, prop)

	var resp graphResponse
	if err := e.client.get(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("expanding %s for %s: %w", prop, id, err)
	}

	ids := make([]string, 0, len(resp.Value))
	for _, v := range resp.Value {
		ids = append(ids, objectID(v))
	}
	return ids, nil
}

func objectID(v map[string]any) string {
	if id, ok := v["id"].(string); ok && id != "" {
		return id
	}
	if id, ok := v["objectId"].(string); ok {
		return id
	}
	return ""
}

// isFirstParty reports whether an application/service principal record
// belongs to Microsoft's own first-party tenant, in which case owner
// expansion is skipped to avoid gratuitous 403s.
func isFirstParty(value map[string]any) bool {
	if appOwnerTenantID, ok := value["appOwnerOrganizationId"].(string); ok {
		return strings.EqualFold(appOwnerTenantID, firstPartyTenantID)
	}
	return false
}
