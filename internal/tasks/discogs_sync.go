package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/services"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// Discogs collection notes carry the grading in fixed field slots.
const (
	mediaConditionField  = 1
	sleeveConditionField = 2
)

// syncDiscogsCollection upserts every release in the collection feed, along
// with a marketplace valuation and the release track list for each. The two
// per-item fetches are best effort: a miss is counted on the result and the
// item keeps NULL stats or its previous tracks.
func (e *CatalogEngine) syncDiscogsCollection(ctx context.Context, progress chan<- ProgressUpdate, force bool) SourceResult {
	source := models.SourceDiscogsCollection

	if skipped, err := e.shouldSkip(source, force, e.store.Collection.Count); err != nil {
		return SourceResult{Err: err}
	} else if skipped != nil {
		return *skipped
	}

	releases, aborted, err := e.fetchCollection(ctx, progress)
	if err != nil {
		return SourceResult{Err: err}
	}

	result := SourceResult{Aborted: aborted}

	// Releases that vanished upstream keep their row but lose the owned
	// flag; everything still in the feed gets it back on upsert.
	if _, err := e.store.Collection.MarkAllNotInCollection(); err != nil {
		result.Err = err
		return result
	}

	seen := make(map[int64]bool, len(releases))
	for i, release := range releases {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		e.sendProgress(progress, statsUpdate(source, i+1, len(releases)))
		stats, err := e.catalog.MarketplaceStats(ctx, release.ID)
		if err != nil {
			result.StatsMisses++
			stats = nil
		}

		item := collectionItem(release, stats)
		if seen[release.ID] {
			result.Duplicates = append(result.Duplicates,
				fmt.Sprintf("release %d: %s - %s", release.ID, item.Artist, item.AlbumTitle))
		}
		seen[release.ID] = true

		id, _, err := e.store.Collection.Upsert(item)
		if err != nil {
			result.Err = err
			return result
		}

		tracks, err := e.fetchTracklist(ctx, release.ID)
		if err != nil {
			result.TrackMisses++
			continue
		}
		stored, err := e.store.Collection.ReplaceTracks(id, tracks)
		if err != nil {
			result.Err = err
			return result
		}
		result.Tracks += stored
	}

	result.Records = int64(len(releases))
	return result
}

// syncDiscogsWantlist replaces the wantlist snapshot with the current feed,
// stamping each want with a best-effort marketplace valuation.
func (e *CatalogEngine) syncDiscogsWantlist(ctx context.Context, progress chan<- ProgressUpdate, force bool) SourceResult {
	source := models.SourceDiscogsWantlist

	if skipped, err := e.shouldSkip(source, force, e.store.Wantlist.Count); err != nil {
		return SourceResult{Err: err}
	} else if skipped != nil {
		return *skipped
	}

	wants, aborted, err := e.fetchWants(ctx, progress)
	if err != nil {
		return SourceResult{Err: err}
	}

	result := SourceResult{Aborted: aborted}

	items := make([]models.WantlistItem, 0, len(wants))
	for i, want := range wants {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		e.sendProgress(progress, statsUpdate(source, i+1, len(wants)))
		stats, err := e.catalog.MarketplaceStats(ctx, want.ID)
		if err != nil {
			result.StatsMisses++
			stats = nil
		}

		items = append(items, wantlistItem(want, stats))
	}

	e.sendProgress(progress, storeUpdate(source, len(items)))
	count, err := e.store.Wantlist.Replace(items)
	if err != nil {
		result.Err = err
		return result
	}

	result.Records = count
	return result
}

// fetchCollection pages through the collection feed until the server-reported
// page count is reached. An API error mid-listing returns what was gathered
// plus the abort reason; an error before anything was gathered fails the
// fetch outright.
func (e *CatalogEngine) fetchCollection(ctx context.Context, progress chan<- ProgressUpdate) ([]services.CollectionRelease, string, error) {
	var all []services.CollectionRelease
	for page := 1; ; page++ {
		data, err := e.catalog.CollectionReleases(ctx, page)
		if err != nil {
			if len(all) > 0 && errors.Is(err, shared.ErrAPIRequest) {
				return all, fmt.Sprintf("listing stopped at page %d: %v", page, err), nil
			}
			return nil, "", err
		}

		all = append(all, data.Releases...)
		e.sendProgress(progress, pageUpdate(models.SourceDiscogsCollection, data.Pagination.Page, data.Pagination.Pages, len(all)))

		if page >= data.Pagination.Pages {
			break
		}
	}
	return all, "", nil
}

// fetchWants pages through the wantlist feed with the same partial-listing
// behavior as fetchCollection.
func (e *CatalogEngine) fetchWants(ctx context.Context, progress chan<- ProgressUpdate) ([]services.Want, string, error) {
	var all []services.Want
	for page := 1; ; page++ {
		data, err := e.catalog.Wants(ctx, page)
		if err != nil {
			if len(all) > 0 && errors.Is(err, shared.ErrAPIRequest) {
				return all, fmt.Sprintf("listing stopped at page %d: %v", page, err), nil
			}
			return nil, "", err
		}

		all = append(all, data.Wants...)
		e.sendProgress(progress, pageUpdate(models.SourceDiscogsWantlist, data.Pagination.Page, data.Pagination.Pages, len(all)))

		if page >= data.Pagination.Pages {
			break
		}
	}
	return all, "", nil
}

// fetchTracklist pulls the full release record and flattens its track list
// into rows for the owning collection item.
func (e *CatalogEngine) fetchTracklist(ctx context.Context, releaseID int64) ([]models.CollectionTrack, error) {
	release, err := e.catalog.Release(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.CollectionTrack, 0, len(release.Tracklist))
	for _, track := range release.Tracklist {
		tracks = append(tracks, models.CollectionTrack{
			Position:     track.Position,
			Title:        track.Title,
			Duration:     track.Duration,
			Artists:      joinArtists(track.Artists),
			ExtraArtists: joinArtists(track.ExtraArtists),
		})
	}
	return tracks, nil
}

// collectionItem maps one feed release onto a collection row. Stats may be
// nil; the row then carries NULL valuation fields rather than zeros.
func collectionItem(release services.CollectionRelease, stats *services.MarketplaceStats) *models.CollectionItem {
	basic := release.BasicInfo

	item := &models.CollectionItem{
		ReleaseID:    release.ID,
		InstanceID:   release.InstanceID,
		Artist:       firstArtist(basic.Artists),
		AlbumTitle:   basic.Title,
		Year:         int64(basic.Year),
		Rating:       int64(release.Rating),
		InCollection: true,
	}

	if len(basic.Labels) > 0 {
		item.Label = basic.Labels[0].Name
	}
	if len(basic.Formats) > 0 {
		item.Format = basic.Formats[0].Name
	}
	if !release.DateAdded.IsZero() {
		added := release.DateAdded
		item.DateAdded = &added
	}

	for _, note := range release.Notes {
		switch note.FieldID {
		case mediaConditionField:
			item.MediaCondition = note.Value
		case sleeveConditionField:
			item.SleeveCondition = note.Value
		}
	}

	if stats != nil {
		numForSale := stats.NumForSale
		item.NumForSale = &numForSale
		if stats.LowestPrice != nil {
			price := stats.LowestPrice.Value
			item.LowestPrice = &price
		}
	}

	return item
}

// wantlistItem maps one want onto a wantlist row. Unlike collection rows a
// want missing its stats gets zero for-sale listings, not NULL, and the
// marketplace link is always populated.
func wantlistItem(want services.Want, stats *services.MarketplaceStats) models.WantlistItem {
	basic := want.BasicInfo

	var numForSale int64
	var lowestPrice *float64
	if stats != nil {
		numForSale = stats.NumForSale
		if stats.LowestPrice != nil {
			price := stats.LowestPrice.Value
			lowestPrice = &price
		}
	}

	item := models.WantlistItem{
		ReleaseID:      want.ID,
		Artist:         firstArtist(basic.Artists),
		AlbumTitle:     basic.Title,
		Year:           int64(basic.Year),
		Notes:          want.Notes,
		Rating:         int64(want.Rating),
		NumForSale:     &numForSale,
		LowestPrice:    lowestPrice,
		Available:      numForSale > 0,
		MarketplaceURL: fmt.Sprintf("https://www.discogs.com/sell/release/%d", want.ID),
	}

	if len(basic.Labels) > 0 {
		item.Label = basic.Labels[0].Name
	}
	if len(basic.Formats) > 0 {
		item.Format = basic.Formats[0].Name
	}

	return item
}

// firstArtist returns the primary artist credit, or "Unknown" when the
// release carries none.
func firstArtist(artists []services.DiscogsArtist) string {
	if len(artists) == 0 {
		return "Unknown"
	}
	return artists[0].Name
}

// joinArtists flattens a credit list into a comma-separated string, dropping
// empty names.
func joinArtists(artists []services.DiscogsArtist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist.Name != "" {
			names = append(names, artist.Name)
		}
	}
	return strings.Join(names, ", ")
}
