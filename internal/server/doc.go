// Package server provides HTTP routing, the WebSocket event bus bridge and the OAuth callback handler.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers method patterns on
// an [http.ServeMux]; [Middleware] is applied outermost first. [Logging] records one line per request.
// [Serve] runs a router until its context is cancelled.
//
// # Bus Bridge
//
// [BusBridge] connects the external player process to the queue's event bus. Each peer sends frames of the form
//
//	{"channel":"player","event":{"NextPressed":null}}
//
// which are published on the player channel. Drop payloads are split into individual links on the way in.
// Everything the queue publishes on the playlist channel is written back to every peer in order; a peer whose
// send buffer fills up is disconnected.
//
// [SendFrame] is the one-shot client side, used by the CLI to inject player events.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback for Spotify login. It validates the state parameter,
// exchanges the code for a token and delivers the result once through [OAuthHandler.Wait].
package server
