package cache

import (
	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/core/ports"
)

// Option configures a Cell.
type Option func(*options)

type options struct {
	eager       bool
	cacheKey    string
	credentials ports.CredentialsPolicy
	logger      *zerolog.Logger
}

// WithEager starts the initial load when the cell is created instead of on
// first read.
func WithEager() Option {
	return func(o *options) { o.eager = true }
}

// WithCacheKey overrides the identity the cell is registered under.
func WithCacheKey(key string) Option {
	return func(o *options) { o.cacheKey = key }
}

// WithCredentials sets the credentials policy handed to the fetcher and
// reused by actions that refresh this cell.
func WithCredentials(p ports.CredentialsPolicy) Option {
	return func(o *options) { o.credentials = p }
}

// WithLogger sets the cell logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
