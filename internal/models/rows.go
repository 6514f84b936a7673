package models

import "time"

// RoonAlbum is one album row from the Roon library. The table is replaced
// wholesale on each sync; the dupe flag and tag are re-derived afterwards by
// the tag pass.
type RoonAlbum struct {
	ID             int64
	AlbumTitle     string
	Artist         string
	ImageKey       string
	ItemKey        string
	ArtistNorm     string
	AlbumNorm      string
	MatchKey       string
	IsPhysicalDupe bool
	PhysicalTag    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoonTrack is one row from the Roon library CSV export.
type RoonTrack struct {
	ID           int64
	AlbumArtist  string
	Album        string
	DiscNumber   *int64
	TrackNumber  *int64
	TrackTitle   string
	TrackArtists string
	Composers    string
	ExternalID   string
	Source       string
	IsDuplicate  bool
	IsHidden     bool
	Tags         string
	CreatedAt    time.Time
}

// PlayHistoryEntry is one play event from the Roon history JSON export.
type PlayHistoryEntry struct {
	ID           int64
	AlbumArtist  string
	Album        string
	DiscNumber   *int64
	TrackNumber  *int64
	TrackTitle   string
	TrackArtists string
	Composers    string
	ExternalID   string
	Source       string
	PlayedAt     *time.Time
	CreatedAt    time.Time
}

// CollectionItem is one owned release from the Discogs collection. Identity
// fields are written once; marketplace stats and user fields (last listened,
// notes, in-collection flag) evolve independently. Nil stats pointers mean
// the secondary valuation fetch did not succeed for this item.
type CollectionItem struct {
	ID              int64
	ReleaseID       int64
	InstanceID      int64
	Artist          string
	AlbumTitle      string
	Year            int64
	Label           string
	Format          string
	MediaCondition  string
	SleeveCondition string
	DateAdded       *time.Time
	Rating          int64
	NumForSale      *int64
	LowestPrice     *float64
	ArtistNorm      string
	AlbumNorm       string
	MatchKey        string
	LastListened    *time.Time
	Notes           string
	InCollection    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CollectionTrack is one track of an owned release, replaced together with
// its siblings whenever the owning release is re-synced.
type CollectionTrack struct {
	ID           int64
	CollectionID int64
	Position     string
	Title        string
	Duration     string
	Artists      string
	ExtraArtists string
	CreatedAt    time.Time
}

// WantlistItem is one wanted release with a price/availability snapshot.
// The table is replaced wholesale on each sync.
type WantlistItem struct {
	ID             int64
	ReleaseID      int64
	Artist         string
	AlbumTitle     string
	Year           int64
	Label          string
	Format         string
	Notes          string
	Rating         int64
	NumForSale     *int64
	LowestPrice    *float64
	Available      bool
	MarketplaceURL string
	ArtistNorm     string
	AlbumNorm      string
	MatchKey       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ListeningEntry is an append-only "listened to this album" event logged by
// the user, distinct from the bulk-imported play history.
type ListeningEntry struct {
	ID         int64
	Artist     string
	AlbumTitle string
	Source     string
	ListenedAt time.Time
	Notes      string
	CreatedAt  time.Time
}

// TrackIndexEntry is one row of the derived cross-source track index.
// Disposable; rebuilt wholesale.
type TrackIndexEntry struct {
	ID         int64
	TrackTitle string
	AlbumTitle string
	Artist     string
	Source     string
}

// RunSnapshot records table counts at the end of a full sync run.
type RunSnapshot struct {
	ID                string
	Forced            bool
	Duration          time.Duration
	RoonAlbums        int64
	RoonTracks        int64
	RoonPlayHistory   int64
	DiscogsCollection int64
	DiscogsTracks     int64
	DiscogsWantlist   int64
	TrackIndex        int64
	CreatedAt         time.Time
}

// LibraryStats aggregates the overview numbers served to the query surface.
type LibraryStats struct {
	RoonAlbums        int64
	RoonTracks        int64
	RoonPlayHistory   int64
	DiscogsCollection int64
	DiscogsTracks     int64
	DiscogsWantlist   int64
	TrackIndex        int64
	ListeningHistory  int64
	AlbumsInBoth      int64
	PhysicalDupes     int64
	InCollection      int64
	WantlistAvailable int64
	WantlistValue     float64
}

// SearchResult is one album row matched by a cross-source search.
type SearchResult struct {
	Source     string
	Artist     string
	AlbumTitle string
	Year       int64
}
