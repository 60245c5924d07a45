// Package tokengate guards token-dependent work across bearer-token
// rotation: every enumerator awaits "ready" before issuing a request, and
// a background refresh loop pauses the gate around each rotation instead
// of letting in-flight requests see expired-token failures.
package tokengate

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/go-logr/logr"

	"github.com/stormspotter-go/stormspotter/internal/credential"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

const (
	preExpiryPause = 15 * time.Second
	refreshPoll    = 5 * time.Second
)

// Gate publishes the current bearer token for one (credential, audience)
// pair and a binary ready/not-ready state, pausing callers across token
// rotation rather than letting them see expired-token failures.
type Gate struct {
	provider credential.Provider
	audience string

	mu      sync.Mutex
	token   azcore.AccessToken
	ready   chan struct{}
	closed  bool
	logName string
}

// New starts the background refresh loop for (provider, audience). Cancel
// ctx to stop the loop.
func New(ctx context.Context, provider credential.Provider, audience, logName string) *Gate {
	g := &Gate{
		provider: provider,
		audience: audience,
		ready:    make(chan struct{}),
		logName:  logName,
	}
	go g.run(ctx)
	return g
}

// Wait blocks until the gate is ready or ctx is canceled.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ready := g.ready
		closed := g.closed
		g.mu.Unlock()
		if closed {
			return context.Canceled
		}
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Token returns the currently published access token. Callers must only
// use it after a successful Wait.
func (g *Gate) Token() azcore.AccessToken {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

func (g *Gate) setToken(t azcore.AccessToken) {
	g.mu.Lock()
	g.token = t
	g.mu.Unlock()
}

func (g *Gate) open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ready:
		// already open
	default:
		close(g.ready)
	}
}

func (g *Gate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ready:
		g.ready = make(chan struct{})
	default:
		// already closed
	}
}

func (g *Gate) run(ctx context.Context) {
	logger := utils.LoggerFromContext(ctx).WithValues(utils.LogValues{}.AddClassName(g.logName)...)
	defer func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
	}()

	for {
		token, err := g.provider.GetToken(ctx, g.audience)
		if err != nil {
			logger.Error(err, "failed to obtain token, retrying", "audience", g.audience)
			if !sleepOrDone(ctx, refreshPoll) {
				return
			}
			continue
		}
		g.setToken(token)
		g.open()

		if !sleepUntilPreExpiry(ctx, token, logger) {
			return
		}

		g.close()
		logger.Info("pausing enumeration for token rotation", "audience", g.audience, "class", g.logName)

		if !g.refreshUntilValid(ctx, logger) {
			return
		}
		logger.Info("resuming enumeration", "audience", g.audience, "class", g.logName)
	}
}

func (g *Gate) refreshUntilValid(ctx context.Context, logger logr.Logger) bool {
	for {
		token, err := g.provider.GetToken(ctx, g.audience)
		if err == nil && time.Now().Before(token.ExpiresOn) {
			g.setToken(token)
			g.open()
			return true
		}
		if err != nil {
			logger.Error(err, "token refresh failed, backing off", "audience", g.audience)
		}
		if !sleepOrDone(ctx, refreshPoll) {
			return false
		}
	}
}

func sleepUntilPreExpiry(ctx context.Context, token azcore.AccessToken, logger logr.Logger) bool {
	d := time.Until(token.ExpiresOn) - preExpiryPause
	if d < 0 {
		d = 0
	}
	return sleepOrDone(ctx, d)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
