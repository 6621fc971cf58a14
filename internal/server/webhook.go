package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/tasks"
)

// maxWebhookBody caps webhook payloads read into memory.
const maxWebhookBody = 1 << 20

// Jellyfin notification types handled by the webhook.
const (
	NotificationUserDataSaved         = "UserDataSaved"
	NotificationPlaybackStarted       = "PlaybackStarted"
	NotificationAuthenticationSuccess = "AuthenticationSuccess"
)

// JellyfinPayload is the subset of the Jellyfin webhook plugin payload the server reads.
type JellyfinPayload struct {
	NotificationType     string `json:"NotificationType"`
	NotificationUsername string `json:"NotificationUsername"`
	UserID               string `json:"UserId"`
	SeriesID             string `json:"SeriesId"`
	SeriesName           string `json:"SeriesName"`
	SeasonNumber         int    `json:"SeasonNumber"`
	EpisodeNumber        int    `json:"EpisodeNumber"`
	Played               bool   `json:"Played"`
	SaveReason           string `json:"SaveReason"`
	DeviceName           string `json:"DeviceName"`
	Client               string `json:"Client"`
}

// handleJellyfin always answers 200 so the plugin does not retry deliveries.
func (s *Server) handleJellyfin(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Error("failed to read webhook body", "error", err)
		writeOK(w)
		return
	}

	var payload JellyfinPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Error("invalid JSON in webhook", "error", err)
		writeOK(w)
		return
	}
	s.logger.Debug("received webhook", "type", payload.NotificationType, "user", payload.NotificationUsername)

	// Syncs outlive the delivery; Jellyfin may hang up first.
	ctx := context.WithoutCancel(r.Context())

	switch payload.NotificationType {
	case NotificationUserDataSaved, NotificationPlaybackStarted:
		s.handleUserData(ctx, payload)
	case NotificationAuthenticationSuccess:
		s.handleLogin(payload)
	default:
		s.logger.Info("ignoring notification", "type", payload.NotificationType)
	}
	writeOK(w)
}

func (s *Server) handleUserData(ctx context.Context, p JellyfinPayload) {
	logger := s.logger.With("user", p.NotificationUsername, "series", p.SeriesName)
	logger.Info("user data changed", "season", p.SeasonNumber, "episode", p.EpisodeNumber, "played", p.Played, "reason", p.SaveReason)

	if p.NotificationUsername == "" {
		logger.Warn("no username in webhook")
		return
	}
	engine, err := s.engines.For(p.NotificationUsername)
	if err != nil {
		logger.Warn("no AniList token configured for user", "hint", "add the user to anilist.user_tokens")
		return
	}
	if p.SeriesID == "" {
		logger.Warn("skipping update without series id")
		return
	}

	autoAdd := s.cfg.AutoAddForUser(p.NotificationUsername)

	var result models.SyncResult
	if p.Played {
		result = engine.SyncEpisodeEvent(ctx, p.SeriesID, p.UserID, p.EpisodeNumber, autoAdd)
	} else {
		if p.UserID == "" {
			logger.Warn("no user id for series sync")
			return
		}
		result = engine.SyncOneSeries(ctx, p.SeriesID, p.UserID, autoAdd)
	}

	if result.Status.IsSuccess() {
		logger.Info("series synced", "status", result.Status, "message", result.Message)
	} else {
		logger.Warn("series sync failed", "status", result.Status, "message", result.Message)
	}
}

func (s *Server) handleLogin(p JellyfinPayload) {
	username := p.NotificationUsername
	logger := s.logger.With("user", username, "device", p.DeviceName, "client", p.Client)

	if username == "" || !s.cfg.BulkUpdateForUser(username) {
		logger.Debug("bulk update disabled for user")
		return
	}
	engine, err := s.engines.For(username)
	if err != nil {
		logger.Warn("no AniList token configured for user")
		return
	}
	autoAdd := s.cfg.AutoAddForUser(username)

	started := s.bulk.start(username, func(ctx context.Context) {
		libraries, err := s.media.Libraries(ctx)
		if err != nil {
			logger.Error("failed to list libraries", "error", err)
			return
		}
		library, ok := tasks.FindLibrary(libraries, s.cfg.LibraryNames)
		if !ok {
			logger.Warn("no anime library found", "looking_for", s.cfg.LibraryNames)
			for _, lib := range libraries {
				logger.Info("available library", "name", lib.Name, "type", lib.CollectionType, "id", lib.ItemID)
			}
			return
		}

		logger.Info("starting login library sync", "library", library.Name, "id", library.ItemID)
		if _, err := engine.SyncLibrary(ctx, library.ItemID, p.UserID, autoAdd, nil); err != nil {
			logger.Error("library sync failed", "error", err)
		}
	})
	if !started {
		logger.Info("library sync already running, skipping")
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}
