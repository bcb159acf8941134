package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/earshot/internal/server"
	"github.com/desertthunder/earshot/internal/services"
	"github.com/desertthunder/earshot/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization,
// and exchanges the auth code for tokens stored in config.toml.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			config, err = shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	token, err := r.doOAuth(config, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.config = config
	r.configPath = configPath
	r.spotify = spotifyService
	r.rebuildEngine()

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: earshot discover\n")

	return nil
}

// AuthStatus reports the stored token state and verifies it by fetching
// the user profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		r.writePlain("✗ Not authenticated\n")
		r.writePlain("Run 'earshot auth login' to connect Spotify.\n")
		return nil
	}

	r.writePlain("✓ Tokens stored\n")
	if !token.Expiry.IsZero() {
		if token.Expiry.Before(time.Now()) {
			r.writePlain("Access token: expired %s\n", token.Expiry.Format(time.RFC3339))
		} else {
			r.writePlain("Access token: valid until %s\n", token.Expiry.Format(time.RFC3339))
		}
	}
	if token.RefreshToken != "" {
		r.writePlain("Refresh token: present\n")
	}

	profiler, ok := r.spotify.(interface {
		UserProfile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
	})
	if !ok {
		return nil
	}

	accessToken, err := r.ensureToken(ctx)
	if err != nil {
		r.writePlain("API check: ✗ %v\n", err)
		return nil
	}

	profile, err := profiler.UserProfile(ctx, accessToken)
	if err != nil {
		r.writePlain("API check: ✗ %v\n", err)
		return nil
	}

	r.writePlain("API check: ✓ authenticated as %s (%s)\n", profile.DisplayName, profile.ID)
	return nil
}

// AuthRefresh forces a token refresh using the stored refresh token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client not configured", shared.ErrServiceUnavailable)
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return fmt.Errorf("%w: run 'earshot auth login' first", shared.ErrNotAuthenticated)
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: reauthorize with 'earshot auth login'", shared.ErrNoRefreshToken)
	}

	refreshed, err := r.spotify.Refresh(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if err := r.saveTokens(refreshed); err != nil {
		return err
	}

	r.writePlain("✓ Access token refreshed\n")
	return nil
}

// ensureToken returns a usable access token, refreshing the stored pair
// when it has expired.
func (r *Runner) ensureToken(ctx context.Context) (string, error) {
	if r.spotify == nil {
		return "", fmt.Errorf("%w: Spotify client not configured", shared.ErrServiceUnavailable)
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return "", fmt.Errorf("%w: run 'earshot auth login' first", shared.ErrNotAuthenticated)
	}

	if token.Valid() {
		return token.AccessToken, nil
	}

	if token.RefreshToken == "" {
		return "", fmt.Errorf("%w: reauthorize with 'earshot auth login'", shared.ErrNoRefreshToken)
	}

	refreshed, err := r.spotify.Refresh(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if err := r.saveTokens(refreshed); err != nil {
		r.logger.Warn("failed to persist refreshed tokens", "error", err)
	}

	return refreshed.AccessToken, nil
}

// reauthorize runs the full OAuth2 flow to replace expired tokens.
func (r *Runner) reauthorize(ctx context.Context, configPath string) (*shared.Config, error) {
	token, err := r.doOAuth(r.config, r.spotify, "reauthorization")
	if err != nil {
		return nil, err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return nil, fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Reauthorization successful")
	r.writePlain("✓ New tokens saved to %s\n", configPath)

	return r.config, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// handleAuthError checks if an error is a token expiration error and triggers reauthorization if needed.
func (r *Runner) handleAuthError(ctx context.Context, err error, cmd *cli.Command) (bool, error) {
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	r.writePlainln("⚠ Access token expired. Starting reauthorization...\n")

	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}

	if r.spotify == nil {
		return true, fmt.Errorf("%w: Spotify client not configured", shared.ErrServiceUnavailable)
	}

	if _, reauthErr := r.reauthorize(ctx, configPath); reauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...\n")

	return true, nil
}
