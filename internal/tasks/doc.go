// Package tasks synchronizes watch progress from the media server into AniList list entries.
//
// # Core Operations
//
// The [SyncEngine] interface defines the exposed operations:
//
//  1. [SyncEngine.SyncOneSeries] : Recompute progress for one series
//     - Fetches the series and the user's episodes
//     - Resolves the AniList id ([Resolver])
//     - Writes progress to the list entry ([Coordinator])
//
//  2. [SyncEngine.SyncLibrary] : Sync every series of a library
//     - Processes series in order with a fixed pause between them ([Orchestrator])
//     - Records unmatched series in the [Ledger]
//     - Optionally records a [models.SyncRun] through a [RunRecorder]
//
//  3. [SyncEngine.SyncEpisodeEvent] : Webhook path for a played episode
//
//  4. [SyncEngine.Resolve] : Identity lookup only
//
// # Identity Resolution
//
// A numeric AniList provider id on the series is trusted as is. Otherwise the series name is normalized
// with [NormalizeTitle] and searched, preferring an exact romaji or english title match within a year
// of the premiere date.
//
// # Progress Reporting
//
// Library syncs send [ProgressUpdate] values on an optional channel. Updates use select with default
// so a slow reader never blocks a sync.
package tasks
