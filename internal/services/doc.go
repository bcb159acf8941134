// Package services implements the catalog gateway consumed by the
// discovery engine.
//
// The [Catalog] interface describes every lookup the engine performs:
// top artists/tracks, an artist's top tracks, related artists, and the
// listener's recently-played and saved track identifiers. The concrete
// [SpotifyService] talks to the Spotify Web API with client-side rate
// limiting ([rate.Limiter]) and bounded retry with backoff on 429/5xx
// responses, so transient failures stay invisible to the engine.
//
// The [OAuthService] interface extends [Catalog] for providers that
// authenticate via OAuth2; the CLI's auth command and the callback
// server consume it.
//
// Empty collections are valid responses everywhere. Permission failures
// on optional sources (recently played, saved tracks) surface as
// [shared.ErrInsufficientScope] and callers degrade them to empty sets.
package services
