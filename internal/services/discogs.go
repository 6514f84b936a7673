package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/shelfsync/internal/shared"
)

const (
	defaultDiscogsBaseURL = "https://api.discogs.com"

	// discogsUserAgent identifies the client. The API rejects requests
	// without a User-Agent.
	discogsUserAgent = "shelfsync/0.1 +https://github.com/desertthunder/shelfsync"

	// maxDiscogsPageSize is the largest per_page the API accepts.
	maxDiscogsPageSize = 100

	// defaultCooldown is how long to back off after a 429 when the
	// response carries no Retry-After header.
	defaultCooldown = 10 * time.Second
)

// DiscogsService is an authenticated client for the Discogs REST API.
// Every request passes through a rate limiter so paging a large
// collection stays under the API's per-minute budget.
type DiscogsService struct {
	baseURL    string
	username   string
	token      string
	userAgent  string
	perPage    int
	httpClient *http.Client
	limiter    *rate.Limiter
	cooldown   time.Duration
}

// DiscogsPagination is the paging envelope on every listing response.
// Pages is the server-reported page count that drives fetch loops.
type DiscogsPagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

type DiscogsArtist struct {
	Name string `json:"name"`
}

type DiscogsFormat struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

type DiscogsLabel struct {
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

// BasicInfo is the release summary embedded in collection and wantlist
// entries.
type BasicInfo struct {
	ID         int64           `json:"id"`
	Title      string          `json:"title"`
	Year       int             `json:"year"`
	Artists    []DiscogsArtist `json:"artists"`
	Formats    []DiscogsFormat `json:"formats"`
	Labels     []DiscogsLabel  `json:"labels"`
	CoverImage string          `json:"cover_image"`
	Thumb      string          `json:"thumb"`
}

// CollectionNote is a user-defined field value on a collection instance.
// Field 1 is media condition and field 2 sleeve condition on a default
// account.
type CollectionNote struct {
	FieldID int    `json:"field_id"`
	Value   string `json:"value"`
}

type CollectionRelease struct {
	ID         int64            `json:"id"`
	InstanceID int64            `json:"instance_id"`
	Rating     int              `json:"rating"`
	DateAdded  time.Time        `json:"date_added"`
	BasicInfo  BasicInfo        `json:"basic_information"`
	Notes      []CollectionNote `json:"notes"`
}

type CollectionPage struct {
	Pagination DiscogsPagination   `json:"pagination"`
	Releases   []CollectionRelease `json:"releases"`
}

type Want struct {
	ID        int64     `json:"id"`
	Rating    int       `json:"rating"`
	DateAdded time.Time `json:"date_added"`
	BasicInfo BasicInfo `json:"basic_information"`
	Notes     string    `json:"notes"`
}

type WantlistPage struct {
	Pagination DiscogsPagination `json:"pagination"`
	Wants      []Want            `json:"wants"`
}

type Price struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

// MarketplaceStats is the current sale snapshot for a release.
// LowestPrice is null when nothing is for sale.
type MarketplaceStats struct {
	NumForSale      int64  `json:"num_for_sale"`
	LowestPrice     *Price `json:"lowest_price"`
	BlockedFromSale bool   `json:"blocked_from_sale"`
}

type ReleaseTrack struct {
	Position     string          `json:"position"`
	Type         string          `json:"type_"`
	Title        string          `json:"title"`
	Duration     string          `json:"duration"`
	Artists      []DiscogsArtist `json:"artists"`
	ExtraArtists []DiscogsArtist `json:"extraartists"`
}

type DiscogsRelease struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Year      int             `json:"year"`
	Artists   []DiscogsArtist `json:"artists"`
	Tracklist []ReleaseTrack  `json:"tracklist"`
	URI       string          `json:"uri"`
}

// NewDiscogsService creates a Discogs client for the given account. Page
// size and pacing fall back to the API maximum and one request per second
// when unset.
func NewDiscogsService(cfg shared.DiscogsConfig) *DiscogsService {
	perPage := cfg.PerPage
	if perPage <= 0 || perPage > maxDiscogsPageSize {
		perPage = maxDiscogsPageSize
	}

	pacing := time.Duration(cfg.PacingSeconds) * time.Second
	if pacing <= 0 {
		pacing = time.Second
	}

	return &DiscogsService{
		baseURL:   defaultDiscogsBaseURL,
		username:  cfg.Username,
		token:     cfg.Token,
		userAgent: discogsUserAgent,
		perPage:   perPage,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Every(pacing), 1),
		cooldown: defaultCooldown,
	}
}

// CollectionReleases retrieves one page of the user's collection, oldest
// additions first.
func (d *DiscogsService) CollectionReleases(ctx context.Context, page int) (*CollectionPage, error) {
	if d.username == "" {
		return nil, fmt.Errorf("%w: discogs username not configured", shared.ErrMissingCredentials)
	}

	endpoint := fmt.Sprintf("/users/%s/collection/folders/0/releases?page=%d&per_page=%d&sort=added&sort_order=asc",
		url.PathEscape(d.username), page, d.perPage)

	var result CollectionPage
	if err := d.doRequest(ctx, http.MethodGet, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch collection page %d: %w", page, err)
	}

	return &result, nil
}

// Wants retrieves one page of the user's wantlist.
func (d *DiscogsService) Wants(ctx context.Context, page int) (*WantlistPage, error) {
	if d.username == "" {
		return nil, fmt.Errorf("%w: discogs username not configured", shared.ErrMissingCredentials)
	}

	endpoint := fmt.Sprintf("/users/%s/wants?page=%d&per_page=%d",
		url.PathEscape(d.username), page, d.perPage)

	var result WantlistPage
	if err := d.doRequest(ctx, http.MethodGet, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch wantlist page %d: %w", page, err)
	}

	return &result, nil
}

// MarketplaceStats retrieves the current sale stats for a release.
func (d *DiscogsService) MarketplaceStats(ctx context.Context, releaseID int64) (*MarketplaceStats, error) {
	endpoint := fmt.Sprintf("/marketplace/stats/%d?curr_abbr=USD", releaseID)

	var result MarketplaceStats
	if err := d.doRequest(ctx, http.MethodGet, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch marketplace stats for release %d: %w", releaseID, err)
	}

	return &result, nil
}

// Release retrieves the full release record including its track list.
func (d *DiscogsService) Release(ctx context.Context, releaseID int64) (*DiscogsRelease, error) {
	endpoint := fmt.Sprintf("/releases/%d", releaseID)

	var result DiscogsRelease
	if err := d.doRequest(ctx, http.MethodGet, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch release %d: %w", releaseID, err)
	}

	return &result, nil
}

// Name returns the name of the service
func (d *DiscogsService) Name() string {
	return "Discogs"
}

// doRequest performs a paced request against the API. A 429 answer backs
// off for the server-suggested interval and retries the same request;
// any other non-2xx status is surfaced as an error.
func (d *DiscogsService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	if d.token == "" {
		return fmt.Errorf("%w: discogs token not configured", shared.ErrMissingCredentials)
	}

	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, d.baseURL+endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", d.userAgent)
		if d.token != "" {
			req.Header.Set("Authorization", "Discogs token="+d.token)
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()

			delay := d.cooldown
			if retryAfter := parseRetryAfterSeconds(resp.Header.Get("Retry-After")); retryAfter > 0 {
				delay = retryAfter
			}
			if err := sleepContext(ctx, delay); err != nil {
				return fmt.Errorf("%w: interrupted while backing off: %v", shared.ErrRateLimited, err)
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var detail struct {
				Message string `json:"message"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&detail)
			resp.Body.Close()

			if detail.Message != "" {
				return fmt.Errorf("%w: discogs error (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, detail.Message)
			}
			return fmt.Errorf("%w: discogs error (status %d)", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result == nil {
			resp.Body.Close()
			return nil
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		return nil
	}
}
