// Package services defines the [LibraryService] and [CatalogService] interfaces for the two external data sources and implements them for Roon and Discogs.
//
// # Library Interface
//
// [RoonService] talks to the local bridge extension that exposes the Roon browse API over HTTP.
//
// Navigation is stateful: browse calls move a server-side cursor and load calls page through the current listing.
// Item keys are session-scoped, so every fetch restarts from the root.
// The bridge token is sent via X-Bridge-Token header on each request.
// Navigation failures are retried once after an explicit session reset.
//
// # Catalog Interface
//
// [DiscogsService] pages the Discogs REST API with a personal access token.
//
// Every request passes through a shared rate limiter so large collections stay under the API's per-minute budget.
// A 429 answer backs off for the server-suggested cooldown and retries the same request; any other non-2xx status aborts the fetch.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : non-2xx response from either service
//   - [shared.ErrServiceUnavailable] : bridge unreachable
//   - [shared.ErrMenuNotFound] : navigation target absent from a listing
//   - [shared.ErrRateLimited] : interrupted while backing off from a 429
//   - [shared.ErrConnectionReset] : reconnect during navigation retry failed
//
// This enables errors.Is() checks throughout the sync engine.
package services
