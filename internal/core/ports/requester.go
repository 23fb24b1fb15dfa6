package ports

import (
	"context"
	"net/url"
)

// CredentialsPolicy controls whether cross-origin cookies accompany a request.
type CredentialsPolicy int

const (
	// CredentialsOmit never sends or stores cookies.
	CredentialsOmit CredentialsPolicy = iota
	// CredentialsInclude sends and stores cookies for every request.
	CredentialsInclude
)

func (p CredentialsPolicy) String() string {
	if p == CredentialsInclude {
		return "include"
	}
	return "omit"
}

// RequestOptions carries the per-call knobs of Requester.Do.
type RequestOptions struct {
	Credentials CredentialsPolicy
	Query       url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Requester performs one network call relative to the configured base address.
// It returns the raw response body on 2xx, *domain.HTTPStatusError on any
// other status, and *domain.TransportError when no status was received.
type Requester interface {
	Do(ctx context.Context, method, path string, opts RequestOptions) ([]byte, error)
}

// ConfigProvider supplies the base address every endpoint path is joined to.
type ConfigProvider interface {
	BaseURL() string
}
