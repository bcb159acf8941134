// package services defines interface Catalog for interacting with music catalog APIs
package services

import (
	"context"

	"github.com/desertthunder/earshot/internal/models"
	"golang.org/x/oauth2"
)

// Catalog defines the gateway interface the discovery engine consumes.
//
// Every method is a single bounded network request (or a short, bounded
// page walk). Implementations handle retry, backoff, and rate limiting
// internally; an empty collection is a valid return and callers must not
// treat it as an error signal.
type Catalog interface {
	// GetTopArtists retrieves the listener's top artists for a time range
	// ("short_term", "medium_term", "long_term").
	GetTopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]models.Artist, error)

	// GetTopTracks retrieves the listener's top tracks for a time range.
	GetTopTracks(ctx context.Context, accessToken, timeRange string, limit int) ([]models.Track, error)

	// GetArtistTopTracks retrieves up to take of an artist's most popular tracks.
	GetArtistTopTracks(ctx context.Context, accessToken, artistID string, take int) ([]models.Track, error)

	// GetRelatedArtists retrieves up to take artists related to the given artist.
	GetRelatedArtists(ctx context.Context, accessToken, artistID string, take int) ([]models.Artist, error)

	// GetRecentlyPlayedTrackIDs retrieves up to limit recently played track identifiers.
	GetRecentlyPlayedTrackIDs(ctx context.Context, accessToken string, limit int) (map[string]struct{}, error)

	// GetSavedTrackIDs retrieves up to max saved-track identifiers, paging
	// through the listener's library 50 at a time and stopping early once a
	// page yields no previously-unseen identifiers.
	GetSavedTrackIDs(ctx context.Context, accessToken string, max int) (map[string]struct{}, error)
}

// OAuthService extends Catalog for providers that authenticate users via
// the OAuth2 authorization-code flow.
type OAuthService interface {
	Catalog

	// GetAuthURL returns the provider's consent URL for the given CSRF state.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the underlying [oauth2.Config] for callback handling.
	GetOAuthConfig() *oauth2.Config

	// Refresh exchanges a stored token for a fresh one when expired.
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)

	// Name returns the provider name (e.g. "Spotify").
	Name() string
}
