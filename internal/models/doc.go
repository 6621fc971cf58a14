// Package models defines domain entities and persistence interfaces for anisync.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs describing media server and catalog data
//   - [SeriesRecord] : a Jellyfin series with its provider ids
//   - [EpisodeProgress] : one episode and whether the user has played it
//   - [Library] : a Jellyfin virtual folder
//   - [CatalogIdentity] : an AniList search candidate
//   - [CatalogMedia] / [ListEntry] : AniList media and the viewer's list entry
//   - [SyncResult] : the outcome of syncing one series
//   - [MissingSeriesEntry] : a series that could not be matched
//
// 2. Persistent Entities: database-backed models with lifecycle management
//   - [SyncRun] : one bulk sync and its per-status totals
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
