// package services defines clients for the two external data sources
//
// Roon (via a local bridge extension) and Discogs
package services

import (
	"context"
	"strconv"
	"time"
)

// LibraryService is the session-oriented client for the media-library
// browser. Navigation is stateful: the bridge keeps a cursor that browse
// calls move and load calls page through.
type LibraryService interface {
	// Connect establishes the bridge session. Calling Connect on an
	// already-connected service is a no-op.
	Connect(ctx context.Context) error

	// Close tears the session down. Safe to call when not connected.
	Close(ctx context.Context) error

	// FetchAlbums navigates to the album listing and pages through it,
	// returning every album item.
	FetchAlbums(ctx context.Context) ([]LibraryItem, error)

	// FetchTaggedAlbums pages the members of each named tag
	// (case-insensitive) and returns (album title, tag) pairs. Names
	// with no matching tag come back in missing instead of failing the
	// fetch.
	FetchTaggedAlbums(ctx context.Context, tagNames []string) (tagged []TaggedAlbum, missing []string, err error)

	// Name returns the name of the service (e.g. "Roon")
	Name() string
}

// CatalogService is the paginated REST client for the marketplace catalog.
type CatalogService interface {
	// CollectionReleases retrieves one page of the user's collection.
	CollectionReleases(ctx context.Context, page int) (*CollectionPage, error)

	// Wants retrieves one page of the user's wantlist.
	Wants(ctx context.Context, page int) (*WantlistPage, error)

	// MarketplaceStats retrieves current sale stats for a release.
	MarketplaceStats(ctx context.Context, releaseID int64) (*MarketplaceStats, error)

	// Release retrieves the full release record including its track list.
	Release(ctx context.Context, releaseID int64) (*DiscogsRelease, error)

	// Name returns the name of the service (e.g. "Discogs")
	Name() string
}

// LibraryItem is one entry from the bridge's load endpoint. In an album
// listing the title is the album and the subtitle the artist; in menu
// listings the title is the menu entry name.
type LibraryItem struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ItemKey  string `json:"item_key"`
	ImageKey string `json:"image_key"`
}

// TaggedAlbum pairs an album title with the tag it was found under.
type TaggedAlbum struct {
	Title string
	Tag   string
}

// sleepContext pauses for d or until the context ends, whichever is first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfterSeconds reads an integer Retry-After header value,
// returning zero for anything unparseable.
func parseRetryAfterSeconds(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
