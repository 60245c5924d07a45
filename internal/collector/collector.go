// Package collector is the collection run's top-level orchestrator: it
// resolves the cloud profile, builds the credential provider and token
// gates, fans out the AAD, ARM, and RBAC enumerators, and archives the
// results directory.
package collector

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	azcorearm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/stormspotter-go/stormspotter/internal/aad"
	"github.com/stormspotter-go/stormspotter/internal/archive"
	"github.com/stormspotter-go/stormspotter/internal/arm"
	"github.com/stormspotter-go/stormspotter/internal/azsdk"
	"github.com/stormspotter-go/stormspotter/internal/cloudprofile"
	"github.com/stormspotter-go/stormspotter/internal/credential"
	"github.com/stormspotter-go/stormspotter/internal/rbac"
	"github.com/stormspotter-go/stormspotter/internal/recordstore"
	"github.com/stormspotter-go/stormspotter/internal/telemetry"
	"github.com/stormspotter-go/stormspotter/internal/tokengate"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// Mode selects which enumerators a run launches.
type Mode string

const (
	ModeAAD  Mode = "AAD"
	ModeARM  Mode = "ARM"
	ModeBoth Mode = "BOTH"
)

// Options configures one collection run, built by cmd/collect from CLI
// flags.
type Options struct {
	Profile            cloudprofile.Profile
	Credential         credential.Provider
	Mode               Mode
	Backfill           bool
	SubscriptionFilter arm.SubscriptionFilter
	HTTPClient         *http.Client
	OutputRoot         string
}

// Summary is the per-class record counters surfaced at the end of a run.
type Summary struct {
	Dir         string
	ArchivePath string
	Counts      map[string]int64
}

// Run executes one collection: it creates a timestamped output
// directory, launches the enumerators the mode selects, archives the
// directory, and returns a count summary.
func Run(ctx context.Context, opts Options) (Summary, error) {
	logger := utils.LoggerFromContext(ctx)

	outputRoot := opts.OutputRoot
	if outputRoot == "" {
		outputRoot = "."
	}
	dir := fmt.Sprintf("%s/results_%s", outputRoot, runTimestamp(ctx))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating results directory %s: %w", dir, err)
	}

	store := recordstore.New(dir)
	counts := cmap.New[int64]()
	cstore := countingStore{store, counts}

	group, gctx := errgroup.WithContext(ctx)

	var rbacBackfill map[string][]string

	if opts.Mode == ModeAAD || opts.Mode == ModeBoth {
		group.Go(func() error {
			gate := tokengate.New(gctx, opts.Credential, opts.Profile.MicrosoftGraph, "aad")
			client := aad.NewClient(opts.Profile.MicrosoftGraph, opts.HTTPClient, gate)
			enumerator := aad.NewEnumerator(client, cstore, opts.Profile.Name)
			if err := enumerator.Run(gctx); err != nil {
				return fmt.Errorf("aad enumeration: %w", err)
			}
			return nil
		})
	}

	if opts.Mode == ModeARM || opts.Mode == ModeBoth {
		group.Go(func() error {
			backfill, err := runARMAndRBAC(gctx, opts, cstore)
			if err != nil {
				return err
			}
			rbacBackfill = backfill
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error(err, "collection run encountered errors")
	}

	// Back-fill only applies to an ARM-only run: a BOTH run already did a
	// full AAD scan, and an AAD-only run has no RBAC principal IDs to
	// back-fill from.
	if opts.Mode == ModeARM && opts.Backfill && len(rbacBackfill) > 0 {
		gate := tokengate.New(ctx, opts.Credential, opts.Profile.MicrosoftGraph, "aad-backfill")
		client := aad.NewClient(opts.Profile.MicrosoftGraph, opts.HTTPClient, gate)
		enumerator := aad.NewEnumerator(client, cstore, opts.Profile.Name)
		var principalIDs []string
		for _, ids := range rbacBackfill {
			principalIDs = append(principalIDs, ids...)
		}
		byClass, err := client.ResolveClasses(ctx, principalIDs)
		if err != nil {
			logger.Error(err, "aad backfill class resolution failed")
		} else if err := enumerator.Backfill(ctx, byClass); err != nil {
			logger.Error(err, "aad backfill failed")
		}
	}

	if err := store.Close(); err != nil {
		logger.Error(err, "failed to close record store")
	}

	archivePath, err := archive.Pack(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("archiving results: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Error(err, "failed to remove results directory after archiving", "dir", dir)
	}

	snapshot := make(map[string]int64, counts.Count())
	for entry := range counts.IterBuffered() {
		snapshot[entry.Key] = entry.Val
	}

	return Summary{Dir: dir, ArchivePath: archivePath, Counts: snapshot}, nil
}

// runARMAndRBAC walks ARM for every subscription the filter allows, then
// runs the RBAC collector per subscription, returning the principal IDs
// seen grouped by principal type, for AAD back-fill when requested.
func runARMAndRBAC(ctx context.Context, opts Options, store countingStore) (map[string][]string, error) {
	armOpts := &azcorearm.ClientOptions{ClientOptions: azsdk.NewClientOptions(azsdk.ComponentCollect)}

	tenants, err := armsubscriptions.NewTenantsClient(opts.Credential.Underlying(), armOpts)
	if err != nil {
		return nil, fmt.Errorf("constructing tenants client: %w", err)
	}
	subs, err := armsubscriptions.NewClient(opts.Credential.Underlying(), armOpts)
	if err != nil {
		return nil, fmt.Errorf("constructing subscriptions client: %w", err)
	}

	newScoped := func(subscriptionID string) (arm.ScopedClients, error) {
		providers, err := armresources.NewProvidersClient(subscriptionID, opts.Credential.Underlying(), armOpts)
		if err != nil {
			return arm.ScopedClients{}, err
		}
		resourceGroups, err := armresources.NewResourceGroupsClient(subscriptionID, opts.Credential.Underlying(), armOpts)
		if err != nil {
			return arm.ScopedClients{}, err
		}
		resources, err := armresources.NewClient(subscriptionID, opts.Credential.Underlying(), armOpts)
		if err != nil {
			return arm.ScopedClients{}, err
		}
		return arm.ScopedClients{Providers: providers, ResourceGroups: resourceGroups, Resources: resources}, nil
	}

	enumerator := arm.NewEnumerator(tenants, subs, newScoped, store, opts.SubscriptionFilter)
	subscriptionIDs, err := enumerator.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("arm enumeration: %w", err)
	}

	backfill := make(map[string][]string)
	var backfillMu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	for _, subscriptionID := range subscriptionIDs {
		subscriptionID := subscriptionID
		group.Go(func() error {
			logger := utils.LoggerFromContext(gctx)

			assignments, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, opts.Credential.Underlying(), armOpts)
			if err != nil {
				logger.Error(err, "constructing role assignments client failed", "subscription_id", subscriptionID)
				return nil
			}
			definitions, err := armauthorization.NewRoleDefinitionsClient(opts.Credential.Underlying(), armOpts)
			if err != nil {
				logger.Error(err, "constructing role definitions client failed", "subscription_id", subscriptionID)
				return nil
			}

			rbacCollector := rbac.NewCollector(assignments, definitions, store)
			perSub, err := rbacCollector.Run(gctx, subscriptionID)
			if err != nil {
				logger.Error(err, "rbac collection failed", "subscription_id", subscriptionID)
				return nil
			}

			backfillMu.Lock()
			for principalType, ids := range perSub {
				backfill[principalType] = append(backfill[principalType], ids...)
			}
			backfillMu.Unlock()

			if opts.Profile.Management != "" {
				token, err := opts.Credential.GetToken(gctx, opts.Profile.Management)
				if err != nil {
					logger.Error(err, "failed to obtain management token", "subscription_id", subscriptionID)
					return nil
				}
				if err := arm.QueryManagementCerts(gctx, opts.HTTPClient, opts.Profile.Management, subscriptionID, token.Token, store); err != nil {
					logger.Error(err, "management certs query failed", "subscription_id", subscriptionID)
				}
			}
			return nil
		})
	}
	_ = group.Wait()

	return backfill, nil
}

// countingStore wraps a recordstore.Store so every Append also increments
// the result-counter map and a Prometheus counter, without the Record
// Store itself knowing about either.
type countingStore struct {
	*recordstore.Store
	counts cmap.ConcurrentMap[string, int64]
}

func (c countingStore) Append(class string, record any) error {
	telemetry.RecordsCollected.WithLabelValues(class).Inc()
	c.counts.Upsert(class, 1, func(exists bool, valueInMap, newValue int64) int64 {
		if exists {
			return valueInMap + newValue
		}
		return newValue
	})
	return c.Store.Append(class, record)
}

func runTimestamp(ctx context.Context) string {
	if t, ok := ctx.Value(runTimestampKey{}).(time.Time); ok {
		return t.Format("20060102-150405")
	}
	return time.Now().Format("20060102-150405")
}

type runTimestampKey struct{}

// WithRunTimestamp pins the results directory's timestamp, for tests that
// need a deterministic directory name.
func WithRunTimestamp(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, runTimestampKey{}, t)
}
