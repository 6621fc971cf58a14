package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/anisync/internal/server"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
)

// authTimeout bounds how long [Runner.AuthAniList] waits for the browser callback.
const authTimeout = 2 * time.Minute

// AuthAniList runs the AniList authorization code flow and stores the token for a Jellyfin user.
func (r *Runner) AuthAniList(ctx context.Context, cmd *cli.Command) error {
	user := cmd.String("user")
	if user == "" {
		return fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}

	cfg := r.config.AniList
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("%w: anilist.client_id and anilist.client_secret are required", shared.ErrMissingCredentials)
	}

	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = "http://" + r.config.Webhook.Addr() + server.DefaultCallbackPath
	}
	oauthCfg := services.AniListOAuthConfig(cfg.ClientID, cfg.ClientSecret, redirect)

	token, err := r.doOAuth(ctx, oauthCfg, callbackAddr(redirect, r.config.Webhook.Addr()))
	if err != nil {
		return err
	}

	r.config.SetUserToken(user, token.AccessToken)
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return err
	}
	r.logger.Info("stored AniList token", "user", user, "config", r.configPath)

	catalog := r.newCatalog(token.AccessToken)
	if viewer, err := catalog.Viewer(ctx); err == nil {
		return r.writePlain("✓ %s is linked to AniList account %s (%d)\n", user, viewer.Name, viewer.ID)
	}
	return r.writePlain("✓ Token saved for %s\n", user)
}

// callbackAddr returns the host:port the redirect URI points at, or fallback.
func callbackAddr(redirect, fallback string) string {
	u, err := url.Parse(redirect)
	if err != nil || u.Host == "" {
		return fallback
	}
	if u.Port() == "" {
		return net.JoinHostPort(u.Hostname(), "80")
	}
	return u.Host
}

// doOAuth serves the callback on addr, opens the browser and waits for the token.
func (r *Runner) doOAuth(ctx context.Context, oauthCfg *oauth2.Config, addr string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthCfg.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(oauthCfg, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for AniList authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil || result.Token.AccessToken == "" {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// AuthStatus checks every configured AniList token against the Viewer query.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	users := r.catalogs.Users()
	if len(users) == 0 && !r.catalogs.HasFallback() {
		return r.writePlain("No AniList tokens configured. Run 'anisync auth anilist --user NAME'.\n")
	}

	failed := 0
	check := func(label string, catalog services.Catalog) {
		viewer, err := catalog.Viewer(ctx)
		if err != nil {
			failed++
			r.logger.Debug("viewer query failed", "user", label, "error", err)
			r.writePlain("✗ %s: %v\n", label, err)
			return
		}
		r.writePlain("✓ %s: %s (%d)\n", label, viewer.Name, viewer.ID)
	}

	for _, user := range users {
		catalog, err := r.catalogs.For(user)
		if err != nil {
			failed++
			r.writePlain("✗ %s: %v\n", user, err)
			continue
		}
		check(user, catalog)
	}
	if r.catalogs.HasFallback() {
		check("global token", r.newCatalog(r.config.AniList.GlobalToken))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d token(s) rejected", shared.ErrAuthFailed, failed)
	}
	return nil
}
