package handlers

import "net/http"

// Healthz is a plain liveness probe.
func Healthz(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil)
}
