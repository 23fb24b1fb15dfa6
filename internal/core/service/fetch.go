package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/core/ports"
)

// getJSON builds a fetcher that GETs path and decodes the body into T. The
// cell decides the credentials policy.
func getJSON[T any](req ports.Requester, path string, opts ports.RequestOptions) cache.Fetcher[T] {
	return func(ctx context.Context, fr cache.FetchRequest) (T, error) {
		var out T
		call := opts
		call.Credentials = fr.Credentials
		body, err := req.Do(ctx, http.MethodGet, path, call)
		if err != nil {
			return out, fmt.Errorf("fetch %s: %w", fr.Key, err)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return out, fmt.Errorf("decode %s: %w", fr.Key, err)
		}
		return out, nil
	}
}
