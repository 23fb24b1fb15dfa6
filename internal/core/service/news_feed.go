package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/cache"
	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
)

const (
	newsPath         = "/news"
	DefaultNewsLimit = 3
)

// NewsFeed is the lazily loaded list of the latest news.
type NewsFeed struct {
	cell  *cache.Cell[[]domain.NewsItem]
	items *cache.View[[]domain.NewsItem, []domain.NewsItem]
}

var _ ports.NewsReader = (*NewsFeed)(nil)

// NewsCacheKey is the registry key of the feed showing limit items.
func NewsCacheKey(limit int) string {
	return "news:" + strconv.Itoa(limit)
}

// NewNewsFeed registers the feed cell. Nothing is fetched until the first read.
func NewNewsFeed(reg *cache.Registry, req ports.Requester, limit int, log zerolog.Logger) (*NewsFeed, error) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}

	cell, err := cache.Use(reg, NewsCacheKey(limit),
		getJSON[[]domain.NewsItem](req, newsPath, ports.RequestOptions{Query: query}),
		[]domain.NewsItem{},
		cache.WithCredentials(ports.CredentialsOmit),
		cache.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("news feed: %w", err)
	}
	return &NewsFeed{cell: cell, items: cache.Derive(cell, nonNilItems)}, nil
}

// Cell exposes the underlying cache cell.
func (f *NewsFeed) Cell() *cache.Cell[[]domain.NewsItem] { return f.cell }

// Items is never nil; before the first load it is empty.
func (f *NewsFeed) Items() []domain.NewsItem { return f.items.Get() }

func (f *NewsFeed) Refresh(ctx context.Context) error { return f.cell.Refresh(ctx) }

func (f *NewsFeed) Loading() bool { return f.cell.Loading() }

func (f *NewsFeed) Err() error { return f.cell.Err() }

func nonNilItems(items []domain.NewsItem) []domain.NewsItem {
	if items == nil {
		return []domain.NewsItem{}
	}
	return items
}
