package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// syncRoonAlbums replaces the album snapshot with the library's current
// album listing.
func (e *CatalogEngine) syncRoonAlbums(ctx context.Context, progress chan<- ProgressUpdate, force bool) SourceResult {
	source := models.SourceRoonAlbums

	if skipped, err := e.shouldSkip(source, force, e.store.Albums.Count); err != nil {
		return SourceResult{Err: err}
	} else if skipped != nil {
		return *skipped
	}

	e.sendProgress(progress, fetchUpdate(source, "browsing the album listing"))
	items, err := e.library.FetchAlbums(ctx)
	if err != nil {
		return SourceResult{Err: err}
	}
	if len(items) == 0 {
		return SourceResult{Err: fmt.Errorf("no albums found in the library")}
	}

	albums := make([]models.RoonAlbum, 0, len(items))
	for _, item := range items {
		albums = append(albums, models.RoonAlbum{
			AlbumTitle: item.Title,
			Artist:     item.Subtitle,
			ItemKey:    item.ItemKey,
			ImageKey:   item.ImageKey,
		})
	}

	e.sendProgress(progress, storeUpdate(source, len(albums)))
	count, err := e.store.Albums.Replace(albums)
	if err != nil {
		return SourceResult{Err: err}
	}

	return SourceResult{Records: count}
}

// syncRoonTags re-derives the physical-dupe flags from the configured tags.
// The pass always runs when tags are configured since the album replace that
// precedes it clears every flag. Albums are matched by title alone, so two
// distinct albums sharing a title are both flagged.
func (e *CatalogEngine) syncRoonTags(ctx context.Context, progress chan<- ProgressUpdate) SourceResult {
	source := models.SourceRoonTags

	if len(e.physicalTags) == 0 {
		return SourceResult{Skipped: true, Reason: "no physical tags configured"}
	}

	e.sendProgress(progress, fetchUpdate(source, "browsing tag members"))
	tagged, missing, err := e.library.FetchTaggedAlbums(ctx, e.physicalTags)
	if err != nil {
		return SourceResult{Err: err}
	}
	if len(missing) == len(e.physicalTags) {
		return SourceResult{
			MissingTags: missing,
			Err:         fmt.Errorf("%w: none of the configured tags exist in the library", shared.ErrMenuNotFound),
		}
	}

	// Flags are only cleared once the fetch has succeeded, so a dead bridge
	// leaves the previous pass intact.
	if err := e.store.Albums.EnsureDupeColumns(); err != nil {
		return SourceResult{MissingTags: missing, Err: err}
	}
	if _, err := e.store.Albums.ResetDupeFlags(); err != nil {
		return SourceResult{MissingTags: missing, Err: err}
	}

	e.sendProgress(progress, storeUpdate(source, len(tagged)))
	var flagged int64
	for _, album := range tagged {
		matched, err := e.store.Albums.MarkPhysicalDupe(album.Title, album.Tag)
		if err != nil {
			return SourceResult{Records: flagged, MissingTags: missing, Err: err}
		}
		flagged += matched
	}

	return SourceResult{Records: flagged, MissingTags: missing}
}
