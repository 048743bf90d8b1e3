// package server hosts the loopback listener for the OAuth token handoff
package server

import (
	"net/http"
)

// TokenSaver receives the token pair delivered by a valid callback.
// Implemented by the settings store.
type TokenSaver interface {
	SetTokens(access, refresh string)
}

// permissive CORS headers for the backend's browser-driven POST.
func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "86400")
}
