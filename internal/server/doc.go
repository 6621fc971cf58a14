// Package server receives Jellyfin and Sonarr webhooks and hosts the AniList OAuth callback.
//
// # Routes
//
//   - POST /webhook and POST / : Jellyfin webhook plugin deliveries, always answered with 200
//   - POST /sonarr : Sonarr events, registered when sonarr.enabled is set
//   - GET /health : status and the users with their own AniList token
//
// # Jellyfin Events
//
// UserDataSaved and PlaybackStarted sync one series for the notifying user. A played event uses
// [tasks.SyncEngine.SyncEpisodeEvent]; anything else recomputes the series from scratch.
// AuthenticationSuccess starts a background library sync when bulk updates are enabled for the user.
// At most one library sync runs per user, and shutdown cancels and waits for them.
//
// # Router Infrastructure
//
// [BasicRouter] uses [http.ServeMux] for paths and dispatches methods per path. [Middleware] wraps
// handlers in reverse order (last added executes first). [RequestLogger] and [Recoverer] are always installed.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code for a token,
// and sends the result through a channel. It only processes one callback.
package server
