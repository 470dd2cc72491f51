// Package server runs the local HTTP endpoint that completes the Google OAuth
// authorization code flow for `photomirror auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers method patterns on an [http.ServeMux] and wraps every
// handler in the [Middleware] stack, first added outermost.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, exchanges the authorization
// code for a token and sends the result through a channel. It processes only
// the first callback.
//
// [CallbackServer] binds the configured redirect address, serves the handler
// until a result arrives and shuts down.
package server
