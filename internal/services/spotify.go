// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// savedPageSize is the Spotify /me/tracks page limit.
	savedPageSize = 50
	maxAttempts   = 3
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	Popularity int             `json:"popularity"`
	PreviewURL string          `json:"preview_url"`
	URI        string          `json:"uri"`
}

// SpotifyPaging represents a generic paginated envelope.
type SpotifyPaging[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPlayHistory represents one entry of the recently-played feed.
type SpotifyPlayHistory struct {
	PlayedAt string       `json:"played_at"`
	Track    SpotifyTrack `json:"track"`
}

// SpotifyService implements the [Catalog] interface against the Spotify Web API.
//
// Requests are rate limited client-side and retried with backoff on 429
// and 5xx responses, so callers see transient failures as either a slow
// success or a single error after the retry budget is spent.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8523/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-top-read",
			"user-read-recently-played",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 2),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the underlying OAuth2 config for callback handling.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Refresh exchanges a stored token for a fresh one.
func (s *SpotifyService) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	fresh, err := s.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return fresh, nil
}

// doRequest performs an authenticated GET against the Spotify API with
// rate limiting and bounded retry. 401 maps to [shared.ErrTokenExpired]
// and 403 to [shared.ErrInsufficientScope] so callers can degrade
// optional data sources to empty.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, result any) error {
	if accessToken == "" {
		return shared.ErrNotAuthenticated
	}

	apiURL := spotifyBaseURL + endpoint

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return lastErr
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("%w: spotify returned 403", shared.ErrInsufficientScope)
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp, backoff(attempt))
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status 429", shared.ErrRateLimited)
			if err := sleepCtx(ctx, wait); err != nil {
				return lastErr
			}
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return lastErr
			}
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			resp.Body.Close()
			return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		err = nil
		if result != nil {
			err = json.NewDecoder(resp.Body).Decode(result)
		}
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return lastErr
}

// backoff returns the retry delay for the given attempt number.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}

// retryAfter parses the Retry-After header, falling back to fallback.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetTopArtists retrieves the listener's top artists for a time range.
func (s *SpotifyService) GetTopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]models.Artist, error) {
	if timeRange == "" {
		timeRange = "medium_term"
	}
	limit = clampLimit(limit, 20, 50)

	endpoint := fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d", url.QueryEscape(timeRange), limit)

	var page SpotifyPaging[SpotifyArtist]
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(page.Items))
	for _, item := range page.Items {
		if item.ID == "" {
			continue
		}
		artists = append(artists, toArtist(item))
	}
	return artists, nil
}

// GetTopTracks retrieves the listener's top tracks for a time range.
func (s *SpotifyService) GetTopTracks(ctx context.Context, accessToken, timeRange string, limit int) ([]models.Track, error) {
	if timeRange == "" {
		timeRange = "medium_term"
	}
	limit = clampLimit(limit, 20, 50)

	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", url.QueryEscape(timeRange), limit)

	var page SpotifyPaging[SpotifyTrack]
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	return toTracks(page.Items), nil
}

// GetArtistTopTracks retrieves up to take of an artist's most popular tracks.
func (s *SpotifyService) GetArtistTopTracks(ctx context.Context, accessToken, artistID string, take int) ([]models.Track, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: empty artist id", shared.ErrInvalidArgument)
	}

	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=from_token", url.PathEscape(artistID))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := toTracks(response.Tracks)
	if take > 0 && take < len(tracks) {
		tracks = tracks[:take]
	}
	return tracks, nil
}

// GetRelatedArtists retrieves up to take artists related to the given artist.
func (s *SpotifyService) GetRelatedArtists(ctx context.Context, accessToken, artistID string, take int) ([]models.Artist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: empty artist id", shared.ErrInvalidArgument)
	}

	endpoint := fmt.Sprintf("/artists/%s/related-artists", url.PathEscape(artistID))

	var response struct {
		Artists []SpotifyArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Artists))
	for _, item := range response.Artists {
		if item.ID == "" {
			continue
		}
		artists = append(artists, toArtist(item))
		if take > 0 && len(artists) == take {
			break
		}
	}
	return artists, nil
}

// GetRecentlyPlayedTrackIDs retrieves up to limit recently played track identifiers.
func (s *SpotifyService) GetRecentlyPlayedTrackIDs(ctx context.Context, accessToken string, limit int) (map[string]struct{}, error) {
	limit = clampLimit(limit, 50, 50)

	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", limit)

	var page SpotifyPaging[SpotifyPlayHistory]
	if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(page.Items))
	for _, item := range page.Items {
		if item.Track.ID == "" {
			continue
		}
		ids[strings.ToLower(item.Track.ID)] = struct{}{}
	}
	return ids, nil
}

// GetSavedTrackIDs retrieves up to max saved-track identifiers.
//
// Pages through /me/tracks 50 at a time and stops early when a page
// yields no previously-unseen identifiers.
func (s *SpotifyService) GetSavedTrackIDs(ctx context.Context, accessToken string, max int) (map[string]struct{}, error) {
	if max <= 0 {
		max = 300
	}

	ids := make(map[string]struct{})
	for offset := 0; offset < max; offset += savedPageSize {
		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", savedPageSize, offset)

		var page SpotifyPaging[SpotifySavedTrack]
		if err := s.doRequest(ctx, accessToken, endpoint, &page); err != nil {
			return ids, err
		}

		added := 0
		for _, item := range page.Items {
			if item.Track.ID == "" {
				continue
			}
			key := strings.ToLower(item.Track.ID)
			if _, seen := ids[key]; !seen {
				ids[key] = struct{}{}
				added++
			}
			if len(ids) >= max {
				return ids, nil
			}
		}

		if added == 0 || page.Next == nil {
			break
		}
	}
	return ids, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, accessToken, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func toArtist(a SpotifyArtist) models.Artist {
	artist := models.Artist{
		ID:     a.ID,
		Name:   a.Name,
		Genres: a.Genres,
	}
	if len(a.Images) > 0 {
		artist.ImageURL = a.Images[0].URL
	}
	return artist
}

func toTrack(t SpotifyTrack) models.Track {
	track := models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Popularity: t.Popularity,
		PreviewURL: t.PreviewURL,
		URI:        t.URI,
	}
	for _, artist := range t.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	if len(t.Album.Images) > 0 {
		track.ArtworkURL = t.Album.Images[0].URL
	}
	return track
}

// toTracks converts Spotify payloads, skipping malformed items without an
// identifier so one bad entry never sinks the batch.
func toTracks(items []SpotifyTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, toTrack(item))
	}
	return tracks
}
