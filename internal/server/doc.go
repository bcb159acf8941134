// Package server provides HTTP routing, middleware, and OAuth handling for the discovery service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # CLI Usage
//
// When the user runs the auth command, a temporary HTTP server starts on the configured
// localhost port, handles the callback, and shuts down after receiving the OAuth token.
//
// # Serve Mode
//
// The serve command runs a long-lived server exposing the discovery engine over JSON:
//
//	GET /healthz            → liveness probe
//	GET /api/discover       → run a discovery pass (limit, verbose query params)
//	GET /api/runs           → list saved runs
//	GET /api/runs/{id}      → fetch one saved run with its tracks
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
