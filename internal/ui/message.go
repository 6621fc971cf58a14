package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLibrariesFetched MsgKind = iota
	MsgSeriesFetched
	MsgProgressUpdate
	MsgSyncComplete
)

type librariesFetched struct {
	libraries []models.Library
	err       error
}

type seriesFetched struct {
	library models.Library
	series  []models.SeriesRecord
	err     error
}

type syncComplete struct {
	results []models.SyncResult
	err     error
}

// librariesFetchedMsg is the constructor for [MsgLibrariesFetched]
func librariesFetchedMsg(libraries []models.Library, err error) Msg {
	return Msg{kind: MsgLibrariesFetched, data: librariesFetched{libraries, err}}
}

// seriesFetchedMsg is the constructor for [MsgSeriesFetched]
func seriesFetchedMsg(library models.Library, series []models.SeriesRecord, err error) Msg {
	return Msg{kind: MsgSeriesFetched, data: seriesFetched{library, series, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(results []models.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{results, err}}
}
