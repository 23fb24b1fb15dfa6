package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
)

const (
	profilesPath = "/profiles/"

	DefaultProfileCacheSize = 64
)

type profileEnvelope struct {
	Profile domain.Opt[domain.PublicProfile] `json:"profile"`
}

// ProfileDirectory caches public profiles, one cell per user id. Only the
// most recently viewed profiles keep their cell; older ones are evicted from
// the registry.
type ProfileDirectory struct {
	reg    *cache.Registry
	req    ports.Requester
	recent *lru.Cache[string, struct{}]
	log    zerolog.Logger
}

var _ ports.ProfileReader = (*ProfileDirectory)(nil)

// NewProfileDirectory keeps at most size profile cells alive. size <= 0 means
// DefaultProfileCacheSize.
func NewProfileDirectory(reg *cache.Registry, req ports.Requester, size int, log zerolog.Logger) (*ProfileDirectory, error) {
	if size <= 0 {
		size = DefaultProfileCacheSize
	}
	recent, err := lru.NewWithEvict[string, struct{}](size, func(id string, _ struct{}) {
		reg.Evict(ProfileCacheKey(id))
		log.Debug().Str("profile_id", id).Msg("profile cell evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("profile directory: %w", err)
	}
	return &ProfileDirectory{reg: reg, req: req, recent: recent, log: log}, nil
}

// ProfileCacheKey is the registry key of the profile of id.
func ProfileCacheKey(id string) string { return "profile:" + id }

// Profile returns the public profile of id, loading it on first use. An unknown
// id yields ok=false without an error.
func (d *ProfileDirectory) Profile(ctx context.Context, id string) (domain.PublicProfile, bool, error) {
	id, err := ValidatePathID("profileId", id)
	if err != nil {
		return domain.PublicProfile{}, false, fmt.Errorf("profile: %w", err)
	}

	snap, err := d.load(ctx, id)
	if errors.Is(err, domain.ErrCellClosed) && ctx.Err() == nil {
		// Evicted while waiting; a fresh cell takes over.
		snap, err = d.load(ctx, id)
	}
	if err != nil {
		if domain.StatusCode(err) == http.StatusNotFound {
			return domain.PublicProfile{}, false, nil
		}
		return domain.PublicProfile{}, false, fmt.Errorf("profile: %w", err)
	}
	p, ok := snap.Value.Get()
	return p, ok, nil
}

func (d *ProfileDirectory) load(ctx context.Context, id string) (cache.Snapshot[domain.Opt[domain.PublicProfile]], error) {
	cell, err := cache.Use(d.reg, ProfileCacheKey(id),
		d.fetcher(id),
		domain.None[domain.PublicProfile](),
		cache.WithCredentials(ports.CredentialsInclude),
		cache.WithLogger(d.log),
	)
	if err != nil {
		return cache.Snapshot[domain.Opt[domain.PublicProfile]]{}, err
	}
	d.recent.Add(id, struct{}{})

	// A settled failure is retried instead of joined.
	if cell.Err() != nil {
		err := cell.Refresh(ctx)
		return cell.Snapshot(), err
	}
	return cell.Await(ctx)
}

func (d *ProfileDirectory) fetcher(id string) cache.Fetcher[domain.Opt[domain.PublicProfile]] {
	inner := getJSON[profileEnvelope](d.req, profilesPath+url.PathEscape(id), ports.RequestOptions{})
	return func(ctx context.Context, fr cache.FetchRequest) (domain.Opt[domain.PublicProfile], error) {
		env, err := inner(ctx, fr)
		if err != nil {
			return domain.None[domain.PublicProfile](), err
		}
		return env.Profile, nil
	}
}
