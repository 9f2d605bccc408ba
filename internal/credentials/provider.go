package credentials

import (
	"context"
	"fmt"
	"sync/atomic"

	"foxglove-bridge/internal/client"

	"github.com/sirupsen/logrus"
)

// Credentials is a short-lived token/url pair authorizing a remote
// visualization connection. Instances are immutable snapshots; a new pair
// replaces the old one wholesale.
type Credentials struct {
	Token string
	URL   string
}

// SessionAuthorizer produces new session authorizations. *device.Device
// satisfies this.
type SessionAuthorizer interface {
	AuthorizeSession(ctx context.Context) (*client.SessionAuthorization, error)
}

// Provider caches the current session credentials for a device.
//
// Reads are lock-free: Current returns the latest installed snapshot
// without blocking on any in-flight refresh. Refreshes are single-flight:
// the refresh gate guarantees at most one network call is in flight no
// matter how many callers race on a cold cache.
//
// The platform does not communicate an expiry, so a cached credential is
// served until the holder observes it failing downstream and calls Clear.
type Provider struct {
	authorizer SessionAuthorizer
	current    atomic.Pointer[Credentials]

	// refreshGate serializes the decision to refresh, not the read path.
	// A buffered channel instead of a mutex so waiters can honor context
	// cancellation.
	refreshGate chan struct{}

	logger *logrus.Entry
}

// NewProvider creates a credentials provider for the given authorizer.
func NewProvider(authorizer SessionAuthorizer, logger *logrus.Logger) (*Provider, error) {
	if authorizer == nil {
		return nil, fmt.Errorf("session authorizer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Provider{
		authorizer:  authorizer,
		refreshGate: make(chan struct{}, 1),
		logger:      logger.WithField("component", "credentials"),
	}, nil
}

// Current returns the cached credentials, or nil if none are cached. It
// never blocks and never touches the network.
func (p *Provider) Current() *Credentials {
	return p.current.Load()
}

// Load returns cached credentials when available, refreshing over the
// network otherwise. Concurrent callers on a cold cache trigger exactly
// one network call; the rest observe its result once the gate is released.
func (p *Provider) Load(ctx context.Context) (*Credentials, error) {
	if creds := p.Current(); creds != nil {
		return creds, nil
	}

	if err := p.acquireGate(ctx); err != nil {
		return nil, err
	}
	defer p.releaseGate()

	// Another caller may have completed a refresh while we waited.
	if creds := p.Current(); creds != nil {
		return creds, nil
	}

	return p.refresh(ctx)
}

// Refresh unconditionally fetches new credentials, replacing any cached
// pair. It serializes with Load through the same gate, so at most one
// network refresh is ever in flight.
func (p *Provider) Refresh(ctx context.Context) (*Credentials, error) {
	if err := p.acquireGate(ctx); err != nil {
		return nil, err
	}
	defer p.releaseGate()

	return p.refresh(ctx)
}

// Clear drops the cached credentials. It never blocks: a refresh that
// completes after Clear still installs its result (last write wins).
func (p *Provider) Clear() {
	p.current.Store(nil)
	p.logger.Debug("Session credentials cleared")
}

func (p *Provider) acquireGate(ctx context.Context) error {
	select {
	case p.refreshGate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) releaseGate() {
	<-p.refreshGate
}

// refresh performs the network call. Callers must hold the refresh gate.
// On failure the cached value is left untouched; nothing is negatively
// cached.
func (p *Provider) refresh(ctx context.Context) (*Credentials, error) {
	authz, err := p.authorizer.AuthorizeSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credentials: %w", err)
	}

	creds := &Credentials{
		Token: authz.Token,
		URL:   authz.URL,
	}
	p.current.Store(creds)

	p.logger.Debug("Session credentials refreshed")
	return creds, nil
}
