package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/shelfsync/internal/shared"
)

const (
	// defaultBridgeURL is where the bridge extension listens when run on
	// the same machine as the Roon core.
	defaultBridgeURL = "http://localhost:9330"

	// browseHierarchy is the bridge hierarchy every navigation call uses.
	browseHierarchy = "browse"

	// browsePageSize is how many items a single load call requests.
	browsePageSize = 100

	// maxNavAttempts bounds how many times a navigation sequence is tried
	// before the error is surfaced. The session is reset between attempts
	// because item keys do not survive a dropped connection.
	maxNavAttempts = 2

	// playTagSentinel is the action entry the bridge injects at the top of
	// every tag member listing. It is not an album.
	playTagSentinel = "Play Tag"
)

// RoonService talks to the local bridge extension that exposes the Roon
// browse API over HTTP.
type RoonService struct {
	bridgeURL  string
	token      string
	httpClient *http.Client

	connected bool
	coreName  string

	pageSize     int
	connectDelay time.Duration
	settleDelay  time.Duration
	pageDelay    time.Duration
	retryDelay   time.Duration
}

type connectResponse struct {
	CoreName string `json:"core_name"`
	CoreID   string `json:"core_id"`
}

type browseRequest struct {
	Hierarchy string `json:"hierarchy"`
	ItemKey   string `json:"item_key,omitempty"`
	PopAll    bool   `json:"pop_all,omitempty"`
}

// listHeader describes the listing the browse cursor currently points at.
// Count is the total number of items available to load.
type listHeader struct {
	Title string `json:"title"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

type browseResponse struct {
	Action string     `json:"action"`
	List   listHeader `json:"list"`
}

type loadRequest struct {
	Hierarchy string `json:"hierarchy"`
	Offset    int    `json:"offset"`
	Count     int    `json:"count"`
}

type loadResponse struct {
	Items  []LibraryItem `json:"items"`
	Offset int           `json:"offset"`
	List   listHeader    `json:"list"`
}

// NewRoonService creates a client for the bridge at cfg.BridgeURL. The
// returned service is not yet connected.
func NewRoonService(cfg shared.RoonConfig) *RoonService {
	url := strings.TrimSuffix(cfg.BridgeURL, "/")
	if url == "" {
		url = defaultBridgeURL
	}

	return &RoonService{
		bridgeURL: url,
		token:     cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pageSize:     browsePageSize,
		connectDelay: 2 * time.Second,
		settleDelay:  500 * time.Millisecond,
		pageDelay:    100 * time.Millisecond,
		retryDelay:   2 * time.Second,
	}
}

// Connect establishes the bridge session and waits for core pairing to
// settle. Connecting an already-connected service is a no-op.
func (r *RoonService) Connect(ctx context.Context) error {
	if r.connected {
		return nil
	}

	var result connectResponse
	if err := r.doRequest(ctx, "/api/connect", nil, &result); err != nil {
		return fmt.Errorf("bridge connect failed: %w", err)
	}

	r.coreName = result.CoreName
	r.connected = true

	return sleepContext(ctx, r.connectDelay)
}

// Close tears the bridge session down. The service is marked disconnected
// even when the disconnect request itself fails.
func (r *RoonService) Close(ctx context.Context) error {
	if !r.connected {
		return nil
	}

	r.connected = false
	r.coreName = ""

	if err := r.doRequest(ctx, "/api/disconnect", nil, nil); err != nil {
		return fmt.Errorf("bridge disconnect failed: %w", err)
	}

	return nil
}

// Reset drops the session and establishes a fresh one. Disconnect errors
// are discarded since the session being reset is usually already broken.
func (r *RoonService) Reset(ctx context.Context) error {
	_ = r.Close(ctx)
	return r.Connect(ctx)
}

// CoreName returns the name of the paired core, empty until connected.
func (r *RoonService) CoreName() string {
	return r.coreName
}

// FetchAlbums navigates Library > Albums and pages through the full
// listing. Album items carry the album title in Title and the artist in
// Subtitle.
func (r *RoonService) FetchAlbums(ctx context.Context) ([]LibraryItem, error) {
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}

	var list *listHeader
	err := r.withNavRetry(ctx, func() error {
		var navErr error
		list, navErr = r.navigate(ctx, "Library", "Albums")
		return navErr
	})
	if err != nil {
		return nil, err
	}

	return r.loadAll(ctx, list.Count)
}

// FetchTaggedAlbums collects the member albums of each named tag. Tag
// names are matched case-insensitively against the Library > Tags listing;
// names with no matching tag are returned in missing rather than failing
// the whole fetch. The "Play Tag" action entry is filtered out of every
// member listing.
func (r *RoonService) FetchTaggedAlbums(ctx context.Context, tagNames []string) ([]TaggedAlbum, []string, error) {
	if len(tagNames) == 0 {
		return nil, nil, nil
	}

	if err := r.Connect(ctx); err != nil {
		return nil, nil, err
	}

	var tagged []TaggedAlbum
	var missing []string
	for _, name := range tagNames {
		var members []LibraryItem
		found := false

		err := r.withNavRetry(ctx, func() error {
			var navErr error
			members, found, navErr = r.fetchTagMembers(ctx, name)
			return navErr
		})
		if err != nil {
			return nil, nil, err
		}
		if !found {
			missing = append(missing, name)
			continue
		}

		for _, item := range members {
			if item.Title == playTagSentinel {
				continue
			}
			tagged = append(tagged, TaggedAlbum{Title: item.Title, Tag: name})
		}
	}

	return tagged, missing, nil
}

// Name returns the name of the service
func (r *RoonService) Name() string {
	return "Roon"
}

// fetchTagMembers navigates to the tag listing, locates the named tag, and
// loads its members. Navigation restarts from the root for every tag
// because item keys go stale once the cursor moves.
func (r *RoonService) fetchTagMembers(ctx context.Context, name string) ([]LibraryItem, bool, error) {
	list, err := r.navigate(ctx, "Library", "Tags")
	if err != nil {
		return nil, false, err
	}

	tags, err := r.loadAll(ctx, list.Count)
	if err != nil {
		return nil, false, err
	}

	var key string
	for _, tag := range tags {
		if strings.EqualFold(tag.Title, name) {
			key = tag.ItemKey
			break
		}
	}
	if key == "" {
		return nil, false, nil
	}

	members, err := r.browse(ctx, browseRequest{Hierarchy: browseHierarchy, ItemKey: key})
	if err != nil {
		return nil, false, err
	}

	items, err := r.loadAll(ctx, members.Count)
	if err != nil {
		return nil, false, err
	}

	return items, true, nil
}

// navigate pops the browse cursor to the root and descends through the
// named menu entries, returning the header of the final listing.
func (r *RoonService) navigate(ctx context.Context, path ...string) (*listHeader, error) {
	list, err := r.browse(ctx, browseRequest{Hierarchy: browseHierarchy, PopAll: true})
	if err != nil {
		return nil, err
	}

	for _, name := range path {
		page, err := r.loadPage(ctx, 0, r.pageSize)
		if err != nil {
			return nil, err
		}

		var key string
		for _, item := range page.Items {
			if strings.EqualFold(item.Title, name) {
				key = item.ItemKey
				break
			}
		}
		if key == "" {
			return nil, fmt.Errorf("%w: %q not in %q listing", shared.ErrMenuNotFound, name, list.Title)
		}

		list, err = r.browse(ctx, browseRequest{Hierarchy: browseHierarchy, ItemKey: key})
		if err != nil {
			return nil, err
		}
	}

	return list, nil
}

// loadAll pages through the current listing until total items have been
// loaded or the bridge returns an empty page, whichever comes first.
func (r *RoonService) loadAll(ctx context.Context, total int) ([]LibraryItem, error) {
	var items []LibraryItem
	for offset := 0; offset < total; offset += r.pageSize {
		page, err := r.loadPage(ctx, offset, r.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		items = append(items, page.Items...)

		if err := sleepContext(ctx, r.pageDelay); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// withNavRetry runs a navigation sequence, resetting the session and
// retrying once when it fails. Missing menu entries are not retried since
// a fresh session would produce the same listing.
func (r *RoonService) withNavRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxNavAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, shared.ErrMenuNotFound) || attempt == maxNavAttempts {
			break
		}

		if resetErr := r.Reset(ctx); resetErr != nil {
			return fmt.Errorf("%w: reconnect after failed navigation: %v", shared.ErrConnectionReset, resetErr)
		}
		if sleepErr := sleepContext(ctx, r.retryDelay); sleepErr != nil {
			return sleepErr
		}
	}

	return err
}

func (r *RoonService) browse(ctx context.Context, req browseRequest) (*listHeader, error) {
	if !r.connected {
		return nil, shared.ErrSessionClosed
	}

	var result browseResponse
	if err := r.doRequest(ctx, "/api/browse", req, &result); err != nil {
		return nil, err
	}

	if result.Action != "list" {
		return nil, fmt.Errorf("%w: browse returned action %q", shared.ErrMenuNotFound, result.Action)
	}

	// the bridge needs a beat before the new level is loadable
	if err := sleepContext(ctx, r.settleDelay); err != nil {
		return nil, err
	}

	return &result.List, nil
}

func (r *RoonService) loadPage(ctx context.Context, offset, count int) (*loadResponse, error) {
	if !r.connected {
		return nil, shared.ErrSessionClosed
	}

	var result loadResponse
	req := loadRequest{Hierarchy: browseHierarchy, Offset: offset, Count: count}
	if err := r.doRequest(ctx, "/api/load", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// doRequest performs a POST against the bridge and decodes the JSON
// response into result when one is expected.
func (r *RoonService) doRequest(ctx context.Context, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.bridgeURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("X-Bridge-Token", r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: bridge unreachable: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("%w: bridge error (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("%w: bridge error (status %d)", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
