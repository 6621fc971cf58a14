package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// SonarrPayload is the subset of a Sonarr webhook the server reads.
type SonarrPayload struct {
	EventType string `json:"eventType"`
	Series    struct {
		ID     int    `json:"id"`
		Title  string `json:"title"`
		TvdbID int    `json:"tvdbId"`
		ImdbID string `json:"imdbId"`
	} `json:"series"`
	Episodes []struct {
		SeasonNumber  int    `json:"seasonNumber"`
		EpisodeNumber int    `json:"episodeNumber"`
		Title         string `json:"title"`
	} `json:"episodes"`
	Release struct {
		ReleaseTitle string `json:"releaseTitle"`
		Quality      struct {
			Quality struct {
				Name string `json:"name"`
			} `json:"quality"`
		} `json:"quality"`
	} `json:"release"`
}

func (s *Server) sonarrAuthorized(r *http.Request) bool {
	want := s.cfg.Sonarr.APIKey
	if want == "" {
		return true
	}
	got := r.Header.Get("X-Api-Key")
	if got == "" {
		got = r.URL.Query().Get("apikey")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) handleSonarr(w http.ResponseWriter, r *http.Request) {
	if !s.sonarrAuthorized(r) {
		s.logger.Warn("rejected Sonarr webhook with bad API key", "remote", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Error("failed to read Sonarr body", "error", err)
		writeOK(w)
		return
	}

	var payload SonarrPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Error("invalid JSON in Sonarr webhook", "error", err)
		writeOK(w)
		return
	}

	logger := s.logger.With("event", payload.EventType, "series", payload.Series.Title)
	switch payload.EventType {
	case "Download", "ImportComplete":
		logger.Info("Sonarr import complete", "tvdb", payload.Series.TvdbID, "episodes", len(payload.Episodes))
		s.refreshSeries(context.WithoutCancel(r.Context()), payload)
	case "Grab":
		logger.Info("Sonarr grab", "release", payload.Release.ReleaseTitle, "quality", payload.Release.Quality.Quality.Name)
	case "Test":
		logger.Info("Sonarr test webhook received")
	case "":
		logger.Warn("no eventType in Sonarr webhook")
	default:
		logger.Info("unhandled Sonarr event")
	}
	writeOK(w)
}

func (s *Server) refreshSeries(ctx context.Context, p SonarrPayload) {
	logger := s.logger.With("series", p.Series.Title, "tvdb", p.Series.TvdbID)
	if !s.cfg.Sonarr.RefreshJellyfin {
		logger.Debug("Jellyfin refresh disabled")
		return
	}
	if s.refresher == nil {
		logger.Warn("no library refresher configured")
		return
	}
	if p.Series.TvdbID <= 0 {
		logger.Warn("no TVDB id for Sonarr series")
		return
	}

	series, err := s.refresher.FindSeriesByTvdbID(ctx, strconv.Itoa(p.Series.TvdbID))
	if err != nil {
		logger.Warn("series not found in Jellyfin", "error", err)
		return
	}
	if err := s.refresher.RefreshSeries(ctx, series.ID); err != nil {
		logger.Error("failed to refresh Jellyfin series", "id", series.ID, "error", err)
		return
	}
	logger.Info("Jellyfin series refresh triggered", "id", series.ID)
}
