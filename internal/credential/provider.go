// Package credential provides cached bearer tokens for the Azure
// audiences the collector talks to: ARM, Microsoft Graph, the legacy AAD
// Graph, and the classic Management endpoint. It is safe for concurrent
// use by many enumerators.
package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// cacheSkew mirrors the Token Gate's pre-expiry margin: a cached token is
// reused while it still has more than this much life left.
const cacheSkew = 15 * time.Second

// Provider obtains and caches bearer tokens per audience, for callers
// (the Token Gate, the hand-rolled AAD Graph and Management clients)
// that authenticate outside the Azure SDK's own client pipeline.
type Provider interface {
	GetToken(ctx context.Context, audience string) (azcore.AccessToken, error)

	// Underlying returns the azcore.TokenCredential backing this
	// Provider, for constructing ARM SDK clients (armresources,
	// armsubscriptions, armauthorization), which manage their own
	// token acquisition and caching through the SDK's auth pipeline
	// and have no need for the Token Gate.
	Underlying() azcore.TokenCredential
}

// provider wraps an azcore.TokenCredential (either an interactive Azure
// CLI credential or a client-secret/SPN credential) with a per-audience
// cache.
type provider struct {
	cred azcore.TokenCredential

	mu    sync.RWMutex
	cache map[string]azcore.AccessToken
}

// NewAzureCLI builds a Provider that piggybacks on the external `az login`
// sign-in cache (interactive delegated mode).
func NewAzureCLI(tenantID string) (Provider, error) {
	opts := &azidentity.AzureCLICredentialOptions{}
	if tenantID != "" {
		opts.TenantID = tenantID
	}
	cred, err := azidentity.NewAzureCLICredential(opts)
	if err != nil {
		return nil, fmt.Errorf("constructing azure cli credential: %w", err)
	}
	return &provider{cred: cred, cache: make(map[string]azcore.AccessToken)}, nil
}

// NewClientSecret builds a Provider for client-credentials (SPN) mode.
func NewClientSecret(tenantID, clientID, secret string) (Provider, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, secret, nil)
	if err != nil {
		return nil, fmt.Errorf("constructing client secret credential: %w", err)
	}
	return &provider{cred: cred, cache: make(map[string]azcore.AccessToken)}, nil
}

// GetToken returns a cached token for audience while it has more than
// cacheSkew left before expiry; otherwise it requests a fresh one.
func (p *provider) GetToken(ctx context.Context, audience string) (azcore.AccessToken, error) {
	p.mu.RLock()
	cached, ok := p.cache[audience]
	p.mu.RUnlock()
	if ok && time.Until(cached.ExpiresOn) > cacheSkew {
		return cached, nil
	}

	token, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{scopeFor(audience)},
	})
	if err != nil {
		return azcore.AccessToken{}, fmt.Errorf("getting token for %s: %w", audience, err)
	}

	p.mu.Lock()
	p.cache[audience] = token
	p.mu.Unlock()

	return token, nil
}

// scopeFor turns an audience base URL into the default OAuth2 scope the
// Azure SDK credentials expect.
func scopeFor(audience string) string {
	return audience + "/.default"
}

func (p *provider) Underlying() azcore.TokenCredential {
	return p.cred
}
