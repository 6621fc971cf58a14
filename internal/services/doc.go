// Package services defines the [MediaServer] and [Catalog] interfaces and implements them for Jellyfin and AniList.
//
// # Executor
//
// Every AniList call goes through an [Executor], which performs a single HTTP request and retries it exactly once:
//   - HTTP 429: wait the rate-limit backoff (10s by default), then retry
//   - transport failure: wait one second, then retry
//
// Any other non-2xx status, and any failure on the retry, is returned as a [*RemoteError] carrying the status
// and body. RemoteError unwraps to [shared.ErrRemoteFailure], plus [shared.ErrRateLimited] or
// [shared.ErrTransientIO] when those caused the failure. An optional [rate.Limiter] shared by all clients gates
// each attempt.
//
// # AniList Implementation
//
// [AniListService] posts GraphQL documents with variables to https://graphql.anilist.co.
// Tokens are attached by an [oauth2] static token source. A GraphQL errors array without data is
// [shared.ErrAPIRequest]; a null Media is [shared.ErrCatalogNotFound].
//
// # Jellyfin Implementation
//
// [JellyfinService] calls the Jellyfin REST API with the X-Emby-Token header.
// It also implements [LibraryRefresher], used by the Sonarr webhook to rescan imported series.
//
// # Per-user clients
//
// [CatalogRegistry] maps Jellyfin usernames to catalog clients built from their own tokens,
// falling back to a client for the global token.
package services
