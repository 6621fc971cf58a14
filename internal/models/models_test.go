package models

import (
	"encoding/json"
	"testing"
)

func TestSeriesRecord(t *testing.T) {
	t.Run("ProviderID ignores case", func(t *testing.T) {
		s := SeriesRecord{ProviderIDs: map[string]string{"anilist": "21", "Tvdb": ""}}

		if id, ok := s.ProviderID(ProviderAniList); !ok || id != "21" {
			t.Errorf("ProviderID(AniList) = %q, %v; want 21, true", id, ok)
		}
		if s.HasProviderID("Tvdb") {
			t.Error("empty provider value should count as absent")
		}
		if s.HasProviderID("Imdb") {
			t.Error("unexpected Imdb provider id")
		}
	})

	t.Run("PremiereYear", func(t *testing.T) {
		tc := []struct {
			date   string
			want   int
			wantOK bool
		}{
			{"2002-10-03T00:00:00.0000000Z", 2002, true},
			{"2019-04-06T00:00:00Z", 2019, true},
			{"2011-04-06", 2011, true},
			{"1998-04-03 garbage", 1998, true},
			{"", 0, false},
			{"soon", 0, false},
		}
		for _, tt := range tc {
			t.Run(tt.date, func(t *testing.T) {
				got, ok := SeriesRecord{PremiereDate: tt.date}.PremiereYear()
				if got != tt.want || ok != tt.wantOK {
					t.Errorf("PremiereYear(%q) = %d, %v; want %d, %v", tt.date, got, ok, tt.want, tt.wantOK)
				}
			})
		}
	})
}

func TestEpisodes(t *testing.T) {
	episodes := []EpisodeProgress{
		{EpisodeID: "c", SeasonNumber: 2, EpisodeNumber: 1, IsPlayed: false},
		{EpisodeID: "b", SeasonNumber: 1, EpisodeNumber: 2, IsPlayed: true},
		{EpisodeID: "a", SeasonNumber: 1, EpisodeNumber: 1, IsPlayed: true},
		{EpisodeID: "d", SeasonNumber: 1, EpisodeNumber: 10, IsPlayed: false},
	}

	t.Run("SortEpisodes", func(t *testing.T) {
		sorted := append([]EpisodeProgress(nil), episodes...)
		SortEpisodes(sorted)

		want := []string{"a", "b", "d", "c"}
		for i, id := range want {
			if sorted[i].EpisodeID != id {
				t.Fatalf("position %d: got %s, want %s", i, sorted[i].EpisodeID, id)
			}
		}
	})

	t.Run("LastWatched", func(t *testing.T) {
		last, ok := LastWatched(episodes)
		if !ok || last.EpisodeID != "b" {
			t.Errorf("LastWatched() = %+v, %v; want episode b", last, ok)
		}
	})

	t.Run("LastWatched across seasons", func(t *testing.T) {
		eps := []EpisodeProgress{
			{SeasonNumber: 2, EpisodeNumber: 3, IsPlayed: true},
			{SeasonNumber: 1, EpisodeNumber: 12, IsPlayed: true},
		}
		last, _ := LastWatched(eps)
		if last.SeasonNumber != 2 || last.EpisodeNumber != 3 {
			t.Errorf("expected S2E3, got S%dE%d", last.SeasonNumber, last.EpisodeNumber)
		}
	})

	t.Run("nothing played", func(t *testing.T) {
		if _, ok := LastWatched(episodes[:1]); ok {
			t.Error("expected no last watched episode")
		}
	})
}

func TestSyncStatus(t *testing.T) {
	for _, s := range SyncStatuses {
		t.Run(s.String(), func(t *testing.T) {
			parsed, err := ParseSyncStatus(s.String())
			if err != nil || parsed != s {
				t.Errorf("ParseSyncStatus(%q) = %v, %v", s.String(), parsed, err)
			}
		})
	}

	data, err := json.Marshal(SyncResult{Status: StatusNoIdentity})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["status"] != "no_identity" {
		t.Errorf("expected status no_identity in JSON, got %v", out["status"])
	}

	if _, err := ParseSyncStatus("maybe"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestSyncRun(t *testing.T) {
	run := NewSyncRun(1, "user-1", "lib-1", TriggerCLI)
	if err := run.Validate(); err != nil {
		t.Fatalf("new run should validate: %v", err)
	}

	run.Complete([]SyncResult{
		{Status: StatusSuccess},
		{Status: StatusSuccessViaSearch},
		{Status: StatusSuccessViaSearch},
		{Status: StatusNoIdentity},
		{Status: StatusError},
	})

	if run.Total() != 5 || run.Succeeded() != 1 || run.ViaSearch() != 2 || run.NoIdentity() != 1 || run.Failed() != 1 {
		t.Errorf("unexpected totals: total=%d ok=%d search=%d none=%d failed=%d",
			run.Total(), run.Succeeded(), run.ViaSearch(), run.NoIdentity(), run.Failed())
	}
	if run.Status() != RunStatusCompleted || run.CompletedAt() == nil {
		t.Error("expected completed run with completion time")
	}

	t.Run("Validate", func(t *testing.T) {
		if err := NewSyncRun(1, "", "lib", TriggerCLI).Validate(); err == nil {
			t.Error("expected error for missing user id")
		}

		bad := NewSyncRun(1, "u", "lib", TriggerCLI)
		bad.SetCounts(3, 1, 0, 0, 0)
		if err := bad.Validate(); err == nil {
			t.Error("expected error for mismatched totals")
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		data, err := json.Marshal(run)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if out["status"] != RunStatusCompleted {
			t.Errorf("expected status %q, got %v", RunStatusCompleted, out["status"])
		}
		if out["viaSearch"] != float64(2) {
			t.Errorf("expected viaSearch 2, got %v", out["viaSearch"])
		}
		if items, ok := out["items"].([]any); !ok || len(items) != 5 {
			t.Errorf("expected 5 items, got %v", out["items"])
		}
	})
}
