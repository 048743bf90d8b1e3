// Package server implements the local loopback endpoint that completes the
// OAuth2 handshake.
//
// # Flow
//
// The companion backend exchanges the provider's authorization code and
// delivers the resulting tokens by POSTing them to this endpoint. The
// [Loopback] listener therefore never sees the authorization code itself,
// only the finished token pair.
//
// A session lives from [Loopback.Start] until exactly one terminal outcome:
// a valid POST /token (success), an explicit GET ?error= callback or a
// malformed token payload (failure), or the session timeout. CORS preflights
// and unrecognized requests (a browser's /favicon.ico probe, say) are
// answered but do not end the session; the port stays open until a
// recognized terminal request arrives or the timeout fires.
//
// # Delivery guarantees
//
// Each session delivers exactly one [Result] on the channel returned by
// [Loopback.Result], never zero and never more than one. The remaining-seconds
// countdown on [Loopback.Countdown] is a read-only projection of the session
// deadline sampled once per second; it has no control effect.
package server
