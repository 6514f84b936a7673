package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/shelfsync/internal/shared"
	tu "github.com/desertthunder/shelfsync/internal/testing"
)

func newTestDiscogs(serverURL string) *DiscogsService {
	svc := NewDiscogsService(shared.DiscogsConfig{Username: "thunder", Token: "abc123"})
	svc.baseURL = serverURL
	svc.limiter = rate.NewLimiter(rate.Inf, 1)
	svc.cooldown = time.Millisecond
	return svc
}

func TestDiscogsService(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		svc := NewDiscogsService(shared.DiscogsConfig{Username: "thunder"})
		if svc.perPage != maxDiscogsPageSize {
			t.Errorf("expected per page default %d, got %d", maxDiscogsPageSize, svc.perPage)
		}
		if svc.baseURL != defaultDiscogsBaseURL {
			t.Errorf("expected base URL %q, got %q", defaultDiscogsBaseURL, svc.baseURL)
		}

		capped := NewDiscogsService(shared.DiscogsConfig{Username: "thunder", PerPage: 500})
		if capped.perPage != maxDiscogsPageSize {
			t.Errorf("expected per page capped at %d, got %d", maxDiscogsPageSize, capped.perPage)
		}
	})

	t.Run("CollectionReleases", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/users/thunder/collection/folders/0/releases" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("per_page"); got != "100" {
				t.Errorf("expected per_page=100, got %s", got)
			}
			if got := r.Header.Get("Authorization"); got != "Discogs token=abc123" {
				t.Errorf("unexpected auth header %q", got)
			}
			if r.Header.Get("User-Agent") == "" {
				t.Error("expected a User-Agent header")
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"pagination": map[string]any{"page": 1, "pages": 3, "per_page": 100, "items": 250},
				"releases": []map[string]any{
					{
						"id":          1477432,
						"instance_id": 900001,
						"rating":      4,
						"date_added":  "2019-03-30T11:35:17-07:00",
						"basic_information": map[string]any{
							"id":    1477432,
							"title": "Abbey Road",
							"year":  1969,
							"artists": []map[string]any{
								{"name": "The Beatles"},
							},
							"formats": []map[string]any{
								{"name": "Vinyl", "qty": "1", "descriptions": []string{"LP", "Album"}},
							},
							"labels": []map[string]any{
								{"name": "Apple Records", "catno": "PCS 7088"},
							},
						},
						"notes": []map[string]any{
							{"field_id": 1, "value": "Near Mint (NM or M-)"},
							{"field_id": 2, "value": "Very Good Plus (VG+)"},
						},
					},
				},
			})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		page, err := svc.CollectionReleases(ctx, 1)
		if err != nil {
			t.Fatalf("CollectionReleases failed: %v", err)
		}

		if page.Pagination.Pages != 3 || page.Pagination.Items != 250 {
			t.Errorf("unexpected pagination: %+v", page.Pagination)
		}
		if len(page.Releases) != 1 {
			t.Fatalf("expected 1 release, got %d", len(page.Releases))
		}

		release := page.Releases[0]
		if release.ID != 1477432 || release.InstanceID != 900001 {
			t.Errorf("unexpected identifiers: %+v", release)
		}
		if release.BasicInfo.Title != "Abbey Road" {
			t.Errorf("expected title 'Abbey Road', got %q", release.BasicInfo.Title)
		}
		if len(release.BasicInfo.Artists) != 1 || release.BasicInfo.Artists[0].Name != "The Beatles" {
			t.Errorf("unexpected artists: %+v", release.BasicInfo.Artists)
		}
		if release.DateAdded.Year() != 2019 {
			t.Errorf("expected date added in 2019, got %v", release.DateAdded)
		}
		if len(release.Notes) != 2 || release.Notes[0].FieldID != 1 {
			t.Errorf("unexpected notes: %+v", release.Notes)
		}
	})

	t.Run("Wants", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/users/thunder/wants" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("page"); got != "2" {
				t.Errorf("expected page=2, got %s", got)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"pagination": map[string]any{"page": 2, "pages": 2, "per_page": 100, "items": 120},
				"wants": []map[string]any{
					{
						"id":         3214567,
						"rating":     0,
						"date_added": "2021-06-01T09:00:00-07:00",
						"basic_information": map[string]any{
							"id":    3214567,
							"title": "In Rainbows",
							"artists": []map[string]any{
								{"name": "Radiohead"},
							},
						},
						"notes": "gatefold only",
					},
				},
			})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		page, err := svc.Wants(ctx, 2)
		if err != nil {
			t.Fatalf("Wants failed: %v", err)
		}

		if page.Pagination.Pages != 2 {
			t.Errorf("expected 2 pages, got %d", page.Pagination.Pages)
		}
		if len(page.Wants) != 1 || page.Wants[0].BasicInfo.Title != "In Rainbows" {
			t.Errorf("unexpected wants: %+v", page.Wants)
		}
		if page.Wants[0].Notes != "gatefold only" {
			t.Errorf("expected want notes, got %q", page.Wants[0].Notes)
		}
	})

	t.Run("MarketplaceStats", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/marketplace/stats/1477432" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"num_for_sale":      14,
				"lowest_price":      map[string]any{"currency": "USD", "value": 24.99},
				"blocked_from_sale": false,
			})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		stats, err := svc.MarketplaceStats(ctx, 1477432)
		if err != nil {
			t.Fatalf("MarketplaceStats failed: %v", err)
		}

		if stats.NumForSale != 14 {
			t.Errorf("expected 14 for sale, got %d", stats.NumForSale)
		}
		if stats.LowestPrice == nil || stats.LowestPrice.Value != 24.99 {
			t.Errorf("unexpected lowest price: %+v", stats.LowestPrice)
		}
	})

	t.Run("MarketplaceStatsWithNothingForSale", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"num_for_sale":      0,
				"lowest_price":      nil,
				"blocked_from_sale": false,
			})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		stats, err := svc.MarketplaceStats(ctx, 99)
		if err != nil {
			t.Fatalf("MarketplaceStats failed: %v", err)
		}

		if stats.NumForSale != 0 || stats.LowestPrice != nil {
			t.Errorf("expected empty stats, got %+v", stats)
		}
	})

	t.Run("Release", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/releases/1477432" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":    1477432,
				"title": "Abbey Road",
				"year":  1969,
				"artists": []map[string]any{
					{"name": "The Beatles"},
				},
				"tracklist": []map[string]any{
					{"position": "A1", "type_": "track", "title": "Come Together", "duration": "4:20"},
					{"position": "A2", "type_": "track", "title": "Something", "duration": "3:03",
						"extraartists": []map[string]any{{"name": "George Harrison"}}},
				},
				"uri": "https://www.discogs.com/release/1477432",
			})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		release, err := svc.Release(ctx, 1477432)
		if err != nil {
			t.Fatalf("Release failed: %v", err)
		}

		if len(release.Tracklist) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(release.Tracklist))
		}
		if release.Tracklist[0].Position != "A1" || release.Tracklist[0].Duration != "4:20" {
			t.Errorf("unexpected first track: %+v", release.Tracklist[0])
		}
		if len(release.Tracklist[1].ExtraArtists) != 1 {
			t.Errorf("expected extra artists on second track: %+v", release.Tracklist[1])
		}
	})

	t.Run("RateLimitRetriesSameRequest", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"pagination": map[string]any{"page": 1, "pages": 1, "items": 0},
				"wants":      []map[string]any{},
			})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		page, err := svc.Wants(ctx, 1)
		if err != nil {
			t.Fatalf("Wants failed after rate limit: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected the request to be retried once, got %d calls", calls)
		}
		if page.Pagination.Pages != 1 {
			t.Errorf("unexpected pagination after retry: %+v", page.Pagination)
		}
	})

	t.Run("ErrorStatusAborts", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "something went sideways"})
		}))
		defer server.Close()

		svc := newTestDiscogs(server.URL)
		_, err := svc.CollectionReleases(ctx, 1)
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "something went sideways") {
			t.Errorf("expected server message in error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected no retry on a server error, got %d calls", calls)
		}
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		svc := NewDiscogsService(shared.DiscogsConfig{Token: "abc123"})
		if _, err := svc.CollectionReleases(ctx, 1); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials without a username, got %v", err)
		}
		if _, err := svc.Wants(ctx, 1); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials without a username, got %v", err)
		}

		svc = NewDiscogsService(shared.DiscogsConfig{Username: "thunder"})
		if _, err := svc.Release(ctx, 101); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials without a token, got %v", err)
		}
	})

	t.Run("TransportError", func(t *testing.T) {
		svc := newTestDiscogs("http://discogs.invalid")
		svc.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}

		_, err := svc.CollectionReleases(ctx, 1)
		if err == nil {
			t.Fatal("expected error when the transport fails")
		}
		if !strings.Contains(err.Error(), "request failed") {
			t.Errorf("expected request failure, got %v", err)
		}
	})

	t.Run("BodyReadError", func(t *testing.T) {
		svc := newTestDiscogs("http://discogs.invalid")
		svc.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(&http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}}, nil),
		}

		_, err := svc.Release(ctx, 101)
		if err == nil {
			t.Fatal("expected error when the body cannot be read")
		}
		if !strings.Contains(err.Error(), "failed to decode response") {
			t.Errorf("expected decode failure, got %v", err)
		}
	})
}

func TestParseRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "empty", value: "", want: 0},
		{name: "seconds", value: "30", want: 30 * time.Second},
		{name: "zero", value: "0", want: 0},
		{name: "negative", value: "-5", want: 0},
		{name: "http date is ignored", value: "Wed, 21 Oct 2025 07:28:00 GMT", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseRetryAfterSeconds(tc.value); got != tc.want {
				t.Errorf("parseRetryAfterSeconds(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}
