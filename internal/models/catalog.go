package models

import "encoding/json"

// List entry statuses used when creating entries.
const (
	ListStatusCurrent = "CURRENT"
)

// CatalogIdentity is an AniList search candidate.
type CatalogIdentity struct {
	ID           int    `json:"id"`
	RomajiTitle  string `json:"romajiTitle"`
	EnglishTitle string `json:"englishTitle,omitempty"`
	NativeTitle  string `json:"nativeTitle,omitempty"`
	StartYear    int    `json:"startYear,omitempty"`
	Format       string `json:"format,omitempty"`
	Status       string `json:"status,omitempty"`
}

// CatalogMedia is the result of a by-id lookup, including the viewer's list entry if one exists.
type CatalogMedia struct {
	ID          int
	RomajiTitle string
	Entry       *ListEntry
}

// ListEntry is an AniList media list entry.
//
// Raw holds the response body of the mutation that produced it.
type ListEntry struct {
	ID       int             `json:"id"`
	MediaID  int             `json:"mediaId"`
	Progress int             `json:"progress"`
	Status   string          `json:"status"`
	Title    string          `json:"title,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// CatalogUser is the AniList account behind a token.
type CatalogUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
