// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for syncing a Jellyfin library to AniList:
//  1. [LibraryListView] : Browse and select Jellyfin libraries
//  2. [SeriesListView] : Preview series and their AniList links before syncing
//  3. [ConfirmView] : Confirm the sync
//  4. [SyncView] : Monitor real-time progress updates
//  5. [ResultView] : Display per-status counts, unmatched series and failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from [tasks.SyncEngine.SyncLibrary]; the final results arrive on a separate
// buffered channel once the progress channel closes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
