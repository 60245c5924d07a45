package rbac

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"golang.org/x/sync/errgroup"

	"github.com/stormspotter-go/stormspotter/internal/recordstore"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// maxDefinitionWorkers bounds the synchronous role-definition fetch pool;
// that SDK path is synchronous, so this is the one place the system runs
// genuinely parallel OS-thread work rather than cooperative goroutines.
const maxDefinitionWorkers = 8

// Record is one RBAC assignment record, annotated with its role
// definition, as persisted to rbac.sqlite. It carries no node identity of
// its own; the Entity Model turns it directly into an edge.
type Record struct {
	PrincipalID      string           `msgpack:"principal_id"`
	PrincipalType    string           `msgpack:"principal_type"`
	Scope            string           `msgpack:"scope"`
	RoleDefinitionID string           `msgpack:"role_definition_id"`
	RoleName         string           `msgpack:"roleName"`
	RoleType         string           `msgpack:"roleType"`
	RoleDescription  string           `msgpack:"roleDescription"`
	Permissions      []map[string]any `msgpack:"permissions"`
}

// Collector lists role assignments for a subscription and resolves each
// assignment's role definition through a bounded worker pool.
type Collector struct {
	assignments RoleAssignmentsClient
	definitions RoleDefinitionsClient
	store       recordstore.Appender
}

func NewCollector(assignments RoleAssignmentsClient, definitions RoleDefinitionsClient, store recordstore.Appender) *Collector {
	return &Collector{assignments: assignments, definitions: definitions, store: store}
}

// Run lists all role assignments for the subscription, resolves their
// definitions concurrently (bounded), persists annotated records to
// rbac.sqlite, and returns the set of principal IDs seen, grouped by
// principal type, for the caller to hand to AAD back-fill.
func (c *Collector) Run(ctx context.Context, subscriptionID string) (map[string][]string, error) {
	logger := utils.LoggerFromContext(ctx).WithValues(utils.LogValues{}.AddSubscriptionID(subscriptionID)...)
	logger.Info("enumerating rbac permissions")

	type assignment struct {
		principalID      string
		principalType    string
		scope            string
		roleDefinitionID string
	}

	var pending []assignment
	pager := c.assignments.NewListForSubscriptionPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing role assignments for %s: %w", subscriptionID, err)
		}
		for _, a := range page.Value {
			if a.Properties == nil {
				continue
			}
			pending = append(pending, assignment{
				principalID:      derefStr(a.Properties.PrincipalID),
				principalType:    derefPrincipalType(a.Properties.PrincipalType),
				scope:            derefStr(a.Properties.Scope),
				roleDefinitionID: derefStr(a.Properties.RoleDefinitionID),
			})
		}
	}

	records := make([]Record, len(pending))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(maxDefinitionWorkers)

	for i, a := range pending {
		i, a := i, a
		group.Go(func() error {
			def, err := c.definitions.GetByID(gctx, a.roleDefinitionID, nil)
			if err != nil {
				logger.Error(err, "failed to resolve role definition", "operation", "rbac")
				records[i] = Record{
					PrincipalID:   a.principalID,
					PrincipalType: a.principalType,
					Scope:         a.scope,
				}
				return nil
			}

			rec := Record{
				PrincipalID:      a.principalID,
				PrincipalType:    a.principalType,
				Scope:            a.scope,
				RoleDefinitionID: a.roleDefinitionID,
			}
			if def.Properties != nil {
				rec.RoleName = derefStr(def.Properties.RoleName)
				rec.RoleType = derefStr(def.Properties.RoleType)
				rec.RoleDescription = derefStr(def.Properties.Description)
				for _, p := range def.Properties.Permissions {
					if p == nil {
						continue
					}
					rec.Permissions = append(rec.Permissions, map[string]any{
						"actions":        p.Actions,
						"notActions":     p.NotActions,
						"dataActions":    p.DataActions,
						"notDataActions": p.NotDataActions,
					})
				}
			}
			records[i] = rec
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("resolving role definitions for %s: %w", subscriptionID, err)
	}

	backfill := make(map[string][]string)
	seen := make(map[string]bool)
	for _, rec := range records {
		if err := c.store.Append("rbac", rec); err != nil {
			logger.Error(err, "failed to persist rbac record")
		}
		if rec.PrincipalID != "" && !seen[rec.PrincipalID] {
			seen[rec.PrincipalID] = true
			backfill[rec.PrincipalType] = append(backfill[rec.PrincipalType], rec.PrincipalID)
		}
	}

	logger.Info("finished rbac permissions")
	return backfill, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefPrincipalType(p *armauthorization.PrincipalType) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
