package viz

import (
	"context"
	"errors"

	"foxglove-bridge/internal/credentials"

	"github.com/sirupsen/logrus"
)

// Session connects to the visualization stream using cached credentials
// from a provider. A stale credential has no declared expiry, so the only
// staleness signal is the platform rejecting it at dial time; Session
// handles that by clearing the cache and redialing once with a fresh pair.
type Session struct {
	provider *credentials.Provider
	logger   *logrus.Logger
}

// NewSession creates a session bound to the given credentials provider.
func NewSession(provider *credentials.Provider, logger *logrus.Logger) (*Session, error) {
	if provider == nil {
		return nil, errors.New("credentials provider is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Session{provider: provider, logger: logger}, nil
}

// Connect loads credentials (cached or fresh) and dials the stream. If the
// dial is rejected as unauthorized, the cached credentials are cleared and
// the dial is retried exactly once with a freshly loaded pair.
func (s *Session) Connect(ctx context.Context) (*Stream, error) {
	creds, err := s.provider.Load(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := Dial(ctx, creds, s.logger)
	if err == nil {
		return stream, nil
	}

	var dialErr *DialError
	if !errors.As(err, &dialErr) || !dialErr.authRejected() {
		return nil, err
	}

	s.logger.WithField("status_code", dialErr.StatusCode).
		Warn("Stream dial rejected, refreshing session credentials")

	s.provider.Clear()
	creds, err = s.provider.Load(ctx)
	if err != nil {
		return nil, err
	}

	return Dial(ctx, creds, s.logger)
}
